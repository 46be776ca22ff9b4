package workflow

import (
	"fmt"
	"maps"
	"strings"
	"unicode/utf8"

	"github.com/dukex/chatflow/pkg/expression"
	"github.com/dukex/chatflow/pkg/models"
	"github.com/dukex/chatflow/pkg/validation"
	"github.com/dukex/chatflow/pkg/workflowstate"
)

const (
	MaxResponseLength = 4000
	truncatedLength   = 3950
	truncationNotice  = "\n\n... (resultados truncados)"

	maxListedResults = 5
	noResultsMessage = "No se encontraron resultados."

	defaultRepeatQuestion = "¿Deseas realizar otra búsqueda?"
	defaultRepeatOption   = "Buscar otro"
	defaultFinishOption   = "Terminar"
)

var labelFields = []string{"name", "nombre", "title", "titulo"}

// FormatOptionList renders options for a question. With a list configuration the
// entries are numbered with keycap emoji; otherwise they read "id: label".
func FormatOptionList(options []workflowstate.Option, numbered bool) string {
	lines := make([]string, 0, len(options))

	for i, option := range options {
		if numbered {
			lines = append(lines, strings.TrimSpace(fmt.Sprintf("%s %s %s", validation.NumberEmoji(i+1), option.Label, option.Emoji)))

			continue
		}

		lines = append(lines, fmt.Sprintf("%s: %s", option.ID, option.Label))
	}

	return validation.FormatOptions(lines)
}

// RenderResponse substitutes collected variables into template. {{resultados}} and
// {{resultado}} render the endpoint payload as a short list.
func RenderResponse(template string, collected map[string]any, data any) string {
	globals := maps.Clone(collected)
	if globals == nil {
		globals = make(map[string]any)
	}

	results := FormatResults(data)
	globals["resultados"] = results
	globals["resultado"] = results

	return expression.ResolveString(template, expression.Scope{
		Globals: globals,
		Nodes:   map[string]any{"data": data},
	})
}

// DefaultResponse is used when a workflow has no response template.
func DefaultResponse(finalMessage string, data any) string {
	results := FormatResults(data)
	if finalMessage == "" {
		return results
	}

	return finalMessage + "\n\n" + results
}

// FormatResults lists at most five entries of the payload, then "... y N más".
func FormatResults(data any) string {
	list, isList := data.([]any)
	if !isList {
		list = workflowstate.ExtractList(data, nil)
		isList = list != nil
	}

	if !isList {
		if data == nil {
			return noResultsMessage
		}

		return expression.Format(data)
	}

	if len(list) == 0 {
		return noResultsMessage
	}

	shown := min(len(list), maxListedResults)
	lines := make([]string, 0, shown+1)

	for i, item := range list[:shown] {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, resultLabel(item)))
	}

	if rest := len(list) - shown; rest > 0 {
		lines = append(lines, fmt.Sprintf("... y %d más", rest))
	}

	return strings.Join(lines, "\n")
}

func resultLabel(item any) string {
	obj, ok := item.(map[string]any)
	if !ok {
		return expression.Format(item)
	}

	for _, field := range labelFields {
		if v, ok := obj[field]; ok && v != nil {
			return expression.Format(v)
		}
	}

	return expression.Format(obj)
}

// Truncate keeps responses within MaxResponseLength characters.
func Truncate(response string) string {
	if utf8.RuneCountInString(response) <= MaxResponseLength {
		return response
	}

	runes := []rune(response)

	return string(runes[:truncatedLength]) + truncationNotice
}

func repeatOffer(cfg *models.RepeatConfig) string {
	question := cfg.Question
	if question == "" {
		question = defaultRepeatQuestion
	}

	return question + "\n\n" + repeatChoices(cfg)
}

func repeatChoices(cfg *models.RepeatConfig) string {
	repeat := cfg.RepeatOption
	if repeat == "" {
		repeat = defaultRepeatOption
	}

	finish := cfg.FinishOption
	if finish == "" {
		finish = defaultFinishOption
	}

	return "1: " + repeat + "\n2: " + finish
}
