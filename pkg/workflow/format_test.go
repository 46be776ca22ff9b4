package workflow

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/dukex/chatflow/pkg/workflowstate"
	"github.com/stretchr/testify/assert"
)

func TestFormatResults(t *testing.T) {
	items := make([]any, 0, 7)
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		items = append(items, map[string]any{"nombre": name})
	}

	tests := []struct {
		name string
		data any
		want string
	}{
		{name: "capped list", data: items, want: "1. a\n2. b\n3. c\n4. d\n5. e\n... y 2 más"},
		{name: "wrapped in data", data: map[string]any{"data": []any{"x", 3.0}}, want: "1. x\n2. 3"},
		{name: "empty", data: []any{}, want: noResultsMessage},
		{name: "nil", data: nil, want: noResultsMessage},
		{name: "scalar", data: "ok", want: "ok"},
		{name: "object", data: map[string]any{"status": "booked"}, want: "{\n  \"status\": \"booked\"\n}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatResults(tt.data))
		})
	}
}

func TestRenderResponse(t *testing.T) {
	collected := map[string]any{"city": "South", "guests": 2.0}
	data := map[string]any{"data": []any{"Hotel Sur"}, "total": 1.0}

	got := RenderResponse("{{city}} ({{guests}}): {{resultado}} [{{data.total}}] {{unknown}}", collected, data)

	assert.Equal(t, "South (2): 1. Hotel Sur [1] {{unknown}}", got)
	assert.NotContains(t, collected, "resultados")
}

func TestDefaultResponse(t *testing.T) {
	assert.Equal(t, "Listo\n\n1. x", DefaultResponse("Listo", []any{"x"}))
	assert.Equal(t, "1. x", DefaultResponse("", []any{"x"}))
}

func TestFormatOptionList(t *testing.T) {
	options := []workflowstate.Option{{ID: "n", Label: "North"}, {ID: "s", Label: "South"}, {ID: "e", Label: "East"}}

	assert.Equal(t, "n: North, s: South o e: East", FormatOptionList(options, false))
	assert.Equal(t, "1️⃣ North\n2️⃣ South\n3️⃣ East", FormatOptionList(options, true))
}

func TestTruncate(t *testing.T) {
	short := strings.Repeat("á", MaxResponseLength)
	assert.Equal(t, short, Truncate(short))

	long := strings.Repeat("á", MaxResponseLength+1)
	got := Truncate(long)

	assert.True(t, strings.HasSuffix(got, truncationNotice))
	assert.Equal(t, truncatedLength+utf8.RuneCountInString(truncationNotice), utf8.RuneCountInString(got))
	assert.LessOrEqual(t, utf8.RuneCountInString(got), MaxResponseLength)
}
