package models

// RouteAction is the handling strategy chosen for an inbound message.
type RouteAction string

const (
	ActionContinueWorkflow RouteAction = "continue_workflow"
	ActionStartWorkflow    RouteAction = "start_workflow"
	ActionExecuteAPI       RouteAction = "execute_api"
	ActionContinueFlow     RouteAction = "continue_flow"
	ActionConversational   RouteAction = "conversational"
)

// Route priorities; lower wins.
const (
	PriorityWorkflow       = 3
	PriorityAPIKeyword     = 4
	PriorityGuidedFlow     = 5
	PriorityConversational = 7
)

// Handler names reported in decisions.
const (
	HandlerWorkflow       = "workflow_conversational_handler"
	HandlerAPIKeyword     = "api_keyword_handler"
	HandlerFlowManager    = "flow_manager"
	HandlerConversational = "conversational"
)

// Message is an inbound chat message.
type Message struct {
	Text              string `json:"text"`
	ContactPhone      string `json:"contact_phone"            validate:"required"`
	CompanyID         string `json:"company_id"               validate:"required"`
	CurrentLegacyFlow string `json:"current_flow,omitempty"`
}

// Decision is the router's verdict for a message.
type Decision struct {
	Action      RouteAction     `json:"action"`
	Priority    int             `json:"priority"`
	HandlerName string          `json:"handler_name"`
	Metadata    DecisionDetails `json:"metadata"`
}

// DecisionDetails carries what the chosen handler needs.
type DecisionDetails struct {
	ContactKey string              `json:"contact_key,omitempty"`
	Workflow   *WorkflowDefinition `json:"-"`
	State      *WorkflowState      `json:"-"`
	Keyword    *KeywordConfig      `json:"-"`
	WorkflowID string              `json:"workflow_id,omitempty"`
	KeywordID  string              `json:"keyword_id,omitempty"`
	Params     map[string]any      `json:"params,omitempty"`
	FlowName   string              `json:"flow_name,omitempty"`
	Confidence float64             `json:"confidence,omitempty"`
}
