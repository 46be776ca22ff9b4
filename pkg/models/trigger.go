package models

import (
	"encoding/json"
	"fmt"
)

// TriggerType identifies the trigger variant on the wire.
type TriggerType string

const (
	TriggerTypeKeyword      TriggerType = "keyword"
	TriggerTypeFirstMessage TriggerType = "first_message"
)

// Trigger is the closed set of conditions that start a workflow.
// Implementations live in this package only.
type Trigger interface {
	Type() TriggerType
	isTrigger()
}

// KeywordTrigger starts a workflow when the message contains any keyword.
type KeywordTrigger struct {
	Keywords []string `json:"keywords"`
}

func (KeywordTrigger) Type() TriggerType { return TriggerTypeKeyword }
func (KeywordTrigger) isTrigger()        {}

// FirstMessageTrigger starts a workflow on a contact's first interaction.
type FirstMessageTrigger struct{}

func (FirstMessageTrigger) Type() TriggerType { return TriggerTypeFirstMessage }
func (FirstMessageTrigger) isTrigger()        {}

// TriggerSpec carries a Trigger through JSON as {"type": ..., ...}.
type TriggerSpec struct {
	Trigger Trigger
}

type triggerWire struct {
	Type     TriggerType `json:"type"`
	Keywords []string    `json:"keywords,omitempty"`
}

func (s TriggerSpec) MarshalJSON() ([]byte, error) {
	switch t := s.Trigger.(type) {
	case KeywordTrigger:
		return json.Marshal(triggerWire{Type: TriggerTypeKeyword, Keywords: t.Keywords})
	case FirstMessageTrigger:
		return json.Marshal(triggerWire{Type: TriggerTypeFirstMessage})
	case nil:
		return []byte("null"), nil
	default:
		return nil, fmt.Errorf("unsupported trigger %T", t)
	}
}

func (s *TriggerSpec) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		s.Trigger = nil

		return nil
	}

	var wire triggerWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	switch wire.Type {
	case TriggerTypeKeyword:
		s.Trigger = KeywordTrigger{Keywords: wire.Keywords}
	case TriggerTypeFirstMessage:
		s.Trigger = FirstMessageTrigger{}
	default:
		return fmt.Errorf("unknown trigger type %q", wire.Type)
	}

	return nil
}
