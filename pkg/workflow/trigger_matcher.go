package workflow

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/dukex/chatflow/pkg/models"
	"golang.org/x/text/cases"
)

// TriggerMatcher handles matching inbound messages against workflow triggers
type TriggerMatcher struct {
	logger *slog.Logger
}

// TriggerInput is what a trigger can look at: the message text and the contact's history.
// A nil Contact means the history could not be read.
type TriggerInput struct {
	Text    string
	Contact *models.Contact
}

// MatchResult represents the result of trigger matching
type MatchResult struct {
	Workflow *models.WorkflowDefinition
	Reason   string
}

// NewTriggerMatcher creates a new trigger matcher
func NewTriggerMatcher(logger *slog.Logger) *TriggerMatcher {
	return &TriggerMatcher{
		logger: logger.With("module", "trigger_matcher"),
	}
}

// FirstMatch returns the highest priority active workflow whose trigger matches input.
// Workflows with equal priority keep the order they were given in.
func (tm *TriggerMatcher) FirstMatch(input TriggerInput, workflows []*models.WorkflowDefinition) *MatchResult {
	candidates := make([]*models.WorkflowDefinition, 0, len(workflows))

	for _, wf := range workflows {
		if wf != nil && wf.Active {
			candidates = append(candidates, wf)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Priority > candidates[j].Priority
	})

	tm.logger.Debug("Matching message against workflows", "workflows_count", len(candidates))

	for _, wf := range candidates {
		if reason, ok := tm.matchTrigger(input, wf.Trigger.Trigger); ok {
			tm.logger.Debug("Found matching workflow",
				"workflow_id", wf.ID,
				"workflow_name", wf.Name,
				"priority", wf.Priority,
				"reason", reason)

			return &MatchResult{Workflow: wf, Reason: reason}
		}
	}

	return nil
}

func (tm *TriggerMatcher) matchTrigger(input TriggerInput, trigger models.Trigger) (string, bool) {
	switch t := trigger.(type) {
	case models.KeywordTrigger:
		return matchKeywordTrigger(input.Text, t)
	case models.FirstMessageTrigger:
		return matchFirstMessageTrigger(input.Contact)
	default:
		tm.logger.Warn("Unknown trigger type", "type", trigger)

		return "", false
	}
}

// matchKeywordTrigger accepts the keyword anywhere in the message.
func matchKeywordTrigger(text string, trigger models.KeywordTrigger) (string, bool) {
	folded := cases.Fold().String(text)

	for _, keyword := range trigger.Keywords {
		k := strings.TrimSpace(cases.Fold().String(keyword))
		if k != "" && strings.Contains(folded, k) {
			return "keyword: " + keyword, true
		}
	}

	return "", false
}

// matchFirstMessageTrigger accepts a contact that never interacted or has no history.
func matchFirstMessageTrigger(contact *models.Contact) (string, bool) {
	if contact == nil {
		return "", false
	}

	if contact.InteractionCount == 0 {
		return "first message: no interactions", true
	}

	if contact.HistoryLength == 0 {
		return "first message: empty history", true
	}

	return "", false
}
