package endpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dukex/chatflow/pkg/expression"
	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"
)

// HTTPExecutor performs calls with resty against a registry of SourceConfig.
// Each source gets its own client so retry policies stay per API.
type HTTPExecutor struct {
	logger   *slog.Logger
	validate *validator.Validate
	mu       sync.RWMutex
	sources  map[string]registeredSource
}

type registeredSource struct {
	config SourceConfig
	client *resty.Client
}

func NewHTTPExecutor(logger *slog.Logger, configs []SourceConfig) (*HTTPExecutor, error) {
	e := &HTTPExecutor{
		logger:   logger.With("module", "endpoint_executor"),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		sources:  make(map[string]registeredSource),
	}

	for _, cfg := range configs {
		if err := e.Register(cfg); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// Register validates and adds or replaces a source config.
func (e *HTTPExecutor) Register(cfg SourceConfig) error {
	if err := e.validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid source config %q: %w", cfg.ID, err)
	}

	client := resty.New().
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(4*time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if r == nil || r.Request == nil || !safeToRetry(r.Request.Method) {
				return false
			}

			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		}).
		SetHeader("User-Agent", "chatflow/1.0")

	e.mu.Lock()
	defer e.mu.Unlock()

	e.sources[cfg.ID] = registeredSource{config: cfg, client: client}

	return nil
}

func (e *HTTPExecutor) Execute(ctx context.Context, sourceConfigID, endpointID string, params Params, execCtx ExecContext) (*Result, error) {
	e.mu.RLock()
	registered, ok := e.sources[sourceConfigID]
	e.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, sourceConfigID)
	}

	source := registered.config

	ep, ok := source.endpoint(endpointID)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrEndpointNotFound, sourceConfigID, endpointID)
	}

	ctx, cancel := context.WithTimeout(ctx, source.timeout(ep))
	defer cancel()

	query := make(map[string]string, len(params.Query))
	for k, v := range params.Query {
		query[k] = expression.Format(v)
	}

	req := registered.client.R().
		SetContext(ctx).
		SetHeaders(source.Headers).
		SetHeader("X-Chatflow-Company", execCtx.CompanyID).
		SetHeader("X-Chatflow-Contact", execCtx.ContactKey)

	applyAuth(req, source.Auth, query)

	if len(query) > 0 {
		req.SetQueryParams(query)
	}

	method := strings.ToUpper(ep.Method)
	if method != http.MethodGet && params.Body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(params.Body)
	}

	target := strings.TrimRight(source.BaseURL, "/") + expandPath(ep.Path, params.Path)

	start := time.Now()

	resp, err := req.Execute(method, target)
	if err != nil {
		e.logger.ErrorContext(ctx, "Endpoint call failed",
			"source_config_id", sourceConfigID,
			"endpoint_id", endpointID,
			"error", err)

		return nil, fmt.Errorf("call %s %s: %w", method, endpointID, err)
	}

	e.logger.DebugContext(ctx, "Endpoint called",
		"source_config_id", sourceConfigID,
		"endpoint_id", endpointID,
		"status", resp.StatusCode(),
		"duration", time.Since(start))

	result := &Result{
		Success:    resp.IsSuccess(),
		Data:       decodeBody(resp.Body()),
		StatusCode: resp.StatusCode(),
	}

	if !result.Success {
		result.Error = fmt.Sprintf("Error %d: %s", resp.StatusCode(), http.StatusText(resp.StatusCode()))
	}

	return result, nil
}

func applyAuth(req *resty.Request, auth Auth, query map[string]string) {
	switch auth.Type {
	case AuthBearer:
		req.SetAuthToken(os.ExpandEnv(auth.Token))
	case AuthBasic:
		req.SetBasicAuth(os.ExpandEnv(auth.Username), os.ExpandEnv(auth.Password))
	case AuthAPIKey:
		key := os.ExpandEnv(auth.APIKey)

		if auth.APIKeyLocation == "query" {
			name := auth.APIKeyName
			if name == "" {
				name = "api_key"
			}

			query[name] = key

			return
		}

		name := auth.APIKeyName
		if name == "" {
			name = "X-API-Key"
		}

		req.SetHeader(name, key)
	case AuthNone:
	}
}

// safeToRetry limits retries to read-only methods; a write that reached the server may
// already have taken effect.
func safeToRetry(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

// expandPath substitutes {name} placeholders and whole :name segments with escaped
// path params.
func expandPath(path string, params map[string]any) string {
	if len(params) == 0 {
		return path
	}

	segments := strings.Split(path, "/")

	for i, segment := range segments {
		if name, ok := strings.CutPrefix(segment, ":"); ok {
			if v, found := params[name]; found {
				segments[i] = url.PathEscape(expression.Format(v))
			}

			continue
		}

		segments[i] = expandBraces(segment, params)
	}

	return strings.Join(segments, "/")
}

func expandBraces(segment string, params map[string]any) string {
	var out strings.Builder

	rest := segment
	for {
		start := strings.Index(rest, "{")
		if start < 0 {
			break
		}

		end := strings.Index(rest[start:], "}")
		if end < 0 {
			break
		}

		end += start

		out.WriteString(rest[:start])

		if v, found := params[rest[start+1:end]]; found {
			out.WriteString(url.PathEscape(expression.Format(v)))
		} else {
			out.WriteString(rest[start : end+1])
		}

		rest = rest[end+1:]
	}

	out.WriteString(rest)

	return out.String()
}

func decodeBody(body []byte) any {
	if len(body) == 0 {
		return nil
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return string(body)
	}

	return data
}
