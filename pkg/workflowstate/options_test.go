package workflowstate

import (
	"testing"

	"github.com/dukex/chatflow/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeOptions(t *testing.T) {
	payload := map[string]any{
		"data": []any{
			map[string]any{"id": 1.0, "name": "Fútbol", "emoji": "⚽"},
			map[string]any{"code": "TEN", "nombre": "Tenis"},
			map[string]any{"id": "pad", "title": "Pádel"},
		},
	}

	options := NormalizeOptions(payload, nil)

	assert.Equal(t, []Option{
		{ID: "1", Label: "Fútbol", Emoji: "⚽"},
		{ID: "TEN", Label: "Tenis"},
		{ID: "pad", Label: "Pádel"},
	}, options)
}

func TestNormalizeOptions_ConfiguredFields(t *testing.T) {
	payload := map[string]any{
		"data": map[string]any{
			"sports": []any{
				map[string]any{"sport_id": "s1", "label": "Vóley", "id": "ignored"},
			},
		},
	}

	options := NormalizeOptions(payload, &models.ResponseListConfig{
		IDField: "sport_id", DisplayField: "label", ArrayPath: "sports",
	})

	assert.Equal(t, []Option{{ID: "s1", Label: "Vóley"}}, options)
}

func TestExtractList(t *testing.T) {
	assert.Len(t, ExtractList([]any{"a", "b"}, nil), 2)
	assert.Len(t, ExtractList(map[string]any{"items": []any{1.0}}, &models.ResponseListConfig{ArrayPath: "items"}), 1)
	assert.Nil(t, ExtractList(map[string]any{"data": "nope"}, nil))
	assert.Nil(t, ExtractList("text", nil))

	options := NormalizeOptions([]any{"North", nil, "South"}, nil)
	assert.Equal(t, []Option{{ID: "North", Label: "North"}, {ID: "South", Label: "South"}}, options)
}
