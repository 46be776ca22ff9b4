// Package keyword answers single-call keyword triggers: one message, one endpoint call,
// one templated reply.
package keyword

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/dukex/chatflow/pkg/models"
	"golang.org/x/text/cases"
)

// Match is a keyword configuration selected for a message, with its extracted parameters.
type Match struct {
	Config     *models.KeywordConfig
	Params     map[string]any
	Exact      bool
	Confidence float64
}

// Find returns the first active configuration whose keyword equals the message or starts
// it followed by a space. Higher priority configurations are tried first; ties keep their
// order. Parameters are extracted for the winner when it asks for it.
func Find(logger *slog.Logger, message string, configs []*models.KeywordConfig) *Match {
	folded := strings.TrimSpace(cases.Fold().String(message))
	if folded == "" {
		return nil
	}

	candidates := make([]*models.KeywordConfig, 0, len(configs))

	for _, cfg := range configs {
		if cfg != nil && cfg.Active {
			candidates = append(candidates, cfg)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Priority > candidates[j].Priority
	})

	for _, cfg := range candidates {
		keyword := strings.TrimSpace(cases.Fold().String(cfg.Keyword))
		if keyword == "" {
			continue
		}

		exact := folded == keyword
		if !exact && !strings.HasPrefix(folded, keyword+" ") {
			continue
		}

		match := &Match{Config: cfg, Params: map[string]any{}, Exact: exact, Confidence: 0.9}
		if exact {
			match.Confidence = 1
		}

		if cfg.ExtractParams {
			match.Params = ExtractParams(logger, message, cfg)
		}

		return match
	}

	return nil
}

// ExtractParams fills the configured parameters from fixed values or from the first
// capture group of a case-insensitive pattern. Parameters that cannot be extracted are
// left out.
func ExtractParams(logger *slog.Logger, message string, cfg *models.KeywordConfig) map[string]any {
	params := make(map[string]any, len(cfg.Params))

	for _, p := range cfg.Params {
		switch p.From {
		case models.ParamSourceFixed:
			params[p.Name] = p.FixedValue
		case models.ParamSourceMessage:
			if p.Pattern == "" {
				continue
			}

			value, err := firstGroup(p.Pattern, message)
			if err != nil {
				logger.Warn("Invalid parameter pattern", "keyword_id", cfg.ID, "param", p.Name, "error", err)

				continue
			}

			if value != "" {
				params[p.Name] = value
			}
		}
	}

	return params
}

func firstGroup(pattern, message string) (string, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return "", fmt.Errorf("compile %q: %w", pattern, err)
	}

	groups := re.FindStringSubmatch(message)
	if len(groups) < 2 {
		return "", nil
	}

	return strings.TrimSpace(groups[1]), nil
}
