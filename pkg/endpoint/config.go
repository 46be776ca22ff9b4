package endpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AuthType is the authentication scheme of a source config.
type AuthType string

const (
	AuthNone   AuthType = ""
	AuthBearer AuthType = "bearer"
	AuthAPIKey AuthType = "api_key"
	AuthBasic  AuthType = "basic"
)

// SourceConfig is one external API: base URL, auth and its endpoints.
// Secret fields may reference environment variables as ${NAME}.
type SourceConfig struct {
	ID             string            `json:"id" yaml:"id" validate:"required"`
	BaseURL        string            `json:"base_url" yaml:"base_url" validate:"required,url"`
	Headers        map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Auth           Auth              `json:"auth" yaml:"auth"`
	TimeoutSeconds int               `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
	MaxRetries     int               `json:"max_retries,omitempty" yaml:"max_retries,omitempty"`
	Endpoints      []Endpoint        `json:"endpoints" yaml:"endpoints" validate:"dive"`
}

type Auth struct {
	Type           AuthType `json:"type,omitempty" yaml:"type,omitempty"`
	Token          string   `json:"token,omitempty" yaml:"token,omitempty"`
	APIKey         string   `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	APIKeyName     string   `json:"api_key_name,omitempty" yaml:"api_key_name,omitempty"`
	APIKeyLocation string   `json:"api_key_location,omitempty" yaml:"api_key_location,omitempty"`
	Username       string   `json:"username,omitempty" yaml:"username,omitempty"`
	Password       string   `json:"password,omitempty" yaml:"password,omitempty"`
}

type Endpoint struct {
	ID             string `json:"id" yaml:"id" validate:"required"`
	Method         string `json:"method" yaml:"method" validate:"required,oneof=GET POST PUT PATCH DELETE"`
	Path           string `json:"path" yaml:"path"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
}

const defaultTimeout = 30 * time.Second

func (s *SourceConfig) endpoint(id string) (*Endpoint, bool) {
	for i := range s.Endpoints {
		if s.Endpoints[i].ID == id {
			return &s.Endpoints[i], true
		}
	}

	return nil, false
}

func (s *SourceConfig) timeout(e *Endpoint) time.Duration {
	switch {
	case e.TimeoutSeconds > 0:
		return time.Duration(e.TimeoutSeconds) * time.Second
	case s.TimeoutSeconds > 0:
		return time.Duration(s.TimeoutSeconds) * time.Second
	default:
		return defaultTimeout
	}
}

// LoadConfigs reads a list of SourceConfig from path. Files ending in .yaml or .yml are
// parsed as YAML, anything else as JSON.
func LoadConfigs(path string) ([]SourceConfig, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read endpoints file: %w", err)
	}

	var configs []SourceConfig

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &configs)
	default:
		err = json.Unmarshal(data, &configs)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to parse endpoints file: %w", err)
	}

	return configs, nil
}
