package workflowstate

import (
	"github.com/dukex/chatflow/pkg/expression"
	"github.com/dukex/chatflow/pkg/models"
)

// Option is one selectable entry derived from an endpoint payload.
type Option struct {
	ID    string
	Label string
	Emoji string
}

var (
	idFallbacks    = []string{"id", "code"}
	labelFallbacks = []string{"name", "nombre", "title"}
	emojiFields    = []string{"icono", "emoji"}
)

// ExtractList finds the array inside an endpoint payload: ArrayPath at the top level or
// under "data", otherwise one level of "data" unwrapping.
func ExtractList(data any, cfg *models.ResponseListConfig) []any {
	if obj, ok := data.(map[string]any); ok {
		switch {
		case cfg != nil && cfg.ArrayPath != "":
			if v, ok := obj[cfg.ArrayPath]; ok {
				data = v
			} else if inner, ok := obj["data"].(map[string]any); ok {
				if v, ok := inner[cfg.ArrayPath]; ok {
					data = v
				}
			}
		default:
			switch inner := obj["data"].(type) {
			case map[string]any, []any:
				data = inner
			}
		}
	}

	list, _ := data.([]any)

	return list
}

// NormalizeOptions maps an endpoint payload to options using the configured id and
// display fields, falling back to id/code and name/nombre/title.
func NormalizeOptions(data any, cfg *models.ResponseListConfig) []Option {
	list := ExtractList(data, cfg)
	options := make([]Option, 0, len(list))

	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			if item == nil {
				continue
			}

			text := expression.Format(item)
			options = append(options, Option{ID: text, Label: text})

			continue
		}

		var idField, displayField string
		if cfg != nil {
			idField, displayField = cfg.IDField, cfg.DisplayField
		}

		options = append(options, Option{
			ID:    firstString(obj, idField, idFallbacks),
			Label: firstString(obj, displayField, labelFallbacks),
			Emoji: firstString(obj, "", emojiFields),
		})
	}

	return options
}

func firstString(obj map[string]any, preferred string, fallbacks []string) string {
	if preferred != "" {
		if s := stringValue(obj[preferred]); s != "" {
			return s
		}
	}

	for _, field := range fallbacks {
		if s := stringValue(obj[field]); s != "" {
			return s
		}
	}

	return ""
}

func stringValue(v any) string {
	switch v.(type) {
	case nil, map[string]any, []any:
		return ""
	default:
		return expression.Format(v)
	}
}
