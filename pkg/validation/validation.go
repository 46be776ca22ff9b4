// Package validation checks contact answers against a step's ValidationRule.
package validation

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/dukex/chatflow/pkg/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	DefaultTextMessage   = "Por favor ingresa un texto válido"
	DefaultNumberMessage = "Por favor ingresa un número válido"
	DefaultOptionMessage = "Por favor selecciona una opción válida"
	DefaultRegexMessage  = "El formato ingresado no es válido"
)

// Result is the outcome of validating one answer. Value is the canonical value to store:
// the trimmed text, a float64 for numbers or the matching option as configured.
// PatternErr is set when a regex rule could not be compiled and the input was accepted anyway.
type Result struct {
	OK         bool
	Value      any
	Message    string
	PatternErr error
}

// Validate checks input against rule. A nil rule accepts the raw input.
func Validate(input string, rule *models.ValidationRule) Result {
	if rule == nil {
		return Result{OK: true, Value: input}
	}

	trimmed := strings.TrimSpace(input)

	switch rule.Kind {
	case models.ValidationText:
		if trimmed == "" {
			return fail(rule, DefaultTextMessage)
		}

		return Result{OK: true, Value: trimmed}
	case models.ValidationNumber:
		n, err := strconv.ParseFloat(trimmed, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return fail(rule, DefaultNumberMessage)
		}

		return Result{OK: true, Value: n}
	case models.ValidationOption:
		return validateOption(trimmed, rule)
	case models.ValidationRegex:
		return validateRegex(trimmed, rule)
	default:
		return Result{OK: true, Value: trimmed}
	}
}

func validateOption(input string, rule *models.ValidationRule) Result {
	if len(rule.Options) == 0 {
		return Result{OK: true, Value: input}
	}

	needle := Normalize(input)
	if needle == "" {
		return fail(rule, optionMessage(rule.Options))
	}

	for _, option := range rule.Options {
		if Normalize(option) == needle {
			return Result{OK: true, Value: option}
		}
	}

	for _, option := range rule.Options {
		candidate := Normalize(option)
		if candidate == "" {
			continue
		}

		if strings.Contains(candidate, needle) || strings.Contains(needle, candidate) {
			return Result{OK: true, Value: option}
		}
	}

	return fail(rule, optionMessage(rule.Options))
}

func validateRegex(input string, rule *models.ValidationRule) Result {
	if rule.Pattern == "" {
		return Result{OK: true, Value: input}
	}

	re, err := regexp.Compile("(?i)" + rule.Pattern)
	if err != nil {
		return Result{OK: true, Value: input, PatternErr: fmt.Errorf("compile %q: %w", rule.Pattern, err)}
	}

	if !re.MatchString(input) {
		return fail(rule, DefaultRegexMessage)
	}

	return Result{OK: true, Value: input}
}

func fail(rule *models.ValidationRule, defaultMessage string) Result {
	message := rule.ErrorMessage
	if message == "" {
		message = defaultMessage
	}

	return Result{Message: message}
}

func optionMessage(options []string) string {
	return DefaultOptionMessage + ": " + strings.Join(options, ", ")
}

// Normalize case-folds s, strips diacritics and collapses whitespace.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC, cases.Fold())

	out, _, err := transform.String(t, s)
	if err != nil {
		out = strings.ToLower(s)
	}

	return strings.Join(strings.Fields(out), " ")
}
