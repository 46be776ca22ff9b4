package validation

import (
	"testing"

	"github.com/dukex/chatflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_NilRule(t *testing.T) {
	result := Validate("  raw  ", nil)

	assert.True(t, result.OK)
	assert.Equal(t, "  raw  ", result.Value)
}

func TestValidate_Text(t *testing.T) {
	rule := &models.ValidationRule{Kind: models.ValidationText}

	result := Validate("  Juan  ", rule)
	assert.True(t, result.OK)
	assert.Equal(t, "Juan", result.Value)

	result = Validate("   ", rule)
	assert.False(t, result.OK)
	assert.Equal(t, DefaultTextMessage, result.Message)
}

func TestValidate_Number(t *testing.T) {
	rule := &models.ValidationRule{Kind: models.ValidationNumber, ErrorMessage: "Solo números"}

	result := Validate(" 42.5 ", rule)
	require.True(t, result.OK)
	assert.InDelta(t, 42.5, result.Value, 0.0001)

	for _, input := range []string{"abc", "", "NaN", "Inf", "1e400"} {
		result = Validate(input, rule)
		assert.False(t, result.OK, input)
		assert.Equal(t, "Solo números", result.Message)
	}
}

func TestValidate_OptionIsSymmetricSubstring(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		options  []string
		ok       bool
		expected string
	}{
		{name: "input contained in option", input: "sí", options: []string{"Sí, confirmo", "No"}, ok: true, expected: "Sí, confirmo"},
		{name: "option contained in input", input: "no gracias", options: []string{"No"}, ok: true, expected: "No"},
		{name: "case insensitive exact", input: "south", options: []string{"North", "South"}, ok: true, expected: "South"},
		{name: "diacritics and spaces", input: "  CÓRDOBA   capital ", options: []string{"Cordoba Capital"}, ok: true, expected: "Cordoba Capital"},
		{name: "exact wins over substring", input: "norte", options: []string{"Norte grande", "Norte"}, ok: true, expected: "Norte"},
		{name: "no match", input: "west", options: []string{"North", "South"}},
		{name: "blank input", input: "  ", options: []string{"North"}},
		{name: "no options accepts anything", input: "whatever", ok: true, expected: "whatever"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.input, &models.ValidationRule{Kind: models.ValidationOption, Options: tt.options})

			assert.Equal(t, tt.ok, result.OK)

			if tt.ok {
				assert.Equal(t, tt.expected, result.Value)
			} else {
				assert.Contains(t, result.Message, DefaultOptionMessage)
			}
		})
	}
}

func TestValidate_Regex(t *testing.T) {
	rule := &models.ValidationRule{Kind: models.ValidationRegex, Pattern: `^[a-z]{3}\d{3}$`}

	assert.True(t, Validate("ABC123", rule).OK)

	result := Validate("12", rule)
	assert.False(t, result.OK)
	assert.Equal(t, DefaultRegexMessage, result.Message)

	assert.True(t, Validate("anything", &models.ValidationRule{Kind: models.ValidationRegex}).OK)
}

func TestValidate_InvalidRegexFailsOpen(t *testing.T) {
	result := Validate("anything", &models.ValidationRule{Kind: models.ValidationRegex, Pattern: "(["})

	assert.True(t, result.OK)
	assert.Equal(t, "anything", result.Value)
	assert.Error(t, result.PatternErr)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "si, confirmo", Normalize("  Sí,   CONFIRMO "))
	assert.Equal(t, "nino", Normalize("Niño"))
}

func TestFormatOptions(t *testing.T) {
	assert.Empty(t, FormatOptions(nil))
	assert.Equal(t, "a", FormatOptions([]string{"a"}))
	assert.Equal(t, "a o b", FormatOptions([]string{"a", "b"}))
	assert.Equal(t, "a, b o c", FormatOptions([]string{"a", "b", "c"}))
	assert.Equal(t, "1️⃣ a\n2️⃣ b", FormatOptions([]string{"1️⃣ a", "2️⃣ b"}))
	assert.Equal(t, "11.", NumberEmoji(11))
}
