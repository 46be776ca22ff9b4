// Package router decides which handler owns an inbound chat message.
package router

import (
	"context"
	"log/slog"

	"github.com/dukex/chatflow/pkg/keyword"
	"github.com/dukex/chatflow/pkg/models"
	"github.com/dukex/chatflow/pkg/otelhelper"
	"github.com/dukex/chatflow/pkg/persistence"
	"github.com/dukex/chatflow/pkg/workflow"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Router evaluates, in order: the contact's active workflow, workflow triggers, single-call
// keywords, the caller's guided flow and finally the conversational default. It never
// writes and never fails; a collaborator error only skips the step that needed it.
type Router struct {
	states      persistence.StateRepository
	definitions persistence.DefinitionRepository
	contacts    persistence.ContactRepository
	matcher     *workflow.TriggerMatcher
	tracer      trace.Tracer
	logger      *slog.Logger
}

type Option func(*Router)

func WithTracer(tracer trace.Tracer) Option {
	return func(r *Router) { r.tracer = tracer }
}

func New(
	logger *slog.Logger,
	states persistence.StateRepository,
	definitions persistence.DefinitionRepository,
	contacts persistence.ContactRepository,
	opts ...Option,
) *Router {
	r := &Router{
		states:      states,
		definitions: definitions,
		contacts:    contacts,
		matcher:     workflow.NewTriggerMatcher(logger),
		tracer:      otelhelper.NoopTracer(),
		logger:      logger.With("module", "router"),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *Router) Route(ctx context.Context, msg models.Message) models.Decision {
	ctx, span := otelhelper.StartSpan(ctx, r.tracer, "chatflow.route",
		attribute.String(otelhelper.CompanyIDKey, msg.CompanyID),
		attribute.String(otelhelper.ContactIDKey, msg.ContactPhone),
	)
	defer span.End()

	decision := r.route(ctx, msg)

	span.SetAttributes(attribute.String(otelhelper.RouteActionKey, string(decision.Action)))

	r.logger.DebugContext(ctx, "Message routed",
		"company_id", msg.CompanyID,
		"contact_phone", msg.ContactPhone,
		"action", decision.Action,
		"handler", decision.HandlerName)

	return decision
}

func (r *Router) route(ctx context.Context, msg models.Message) models.Decision {
	contactKey, err := models.ContactKey(msg.CompanyID, msg.ContactPhone)
	if err != nil {
		r.logger.WarnContext(ctx, "Cannot identify contact, skipping workflow routing", "error", err)
	} else {
		if d, ok := r.activeWorkflow(ctx, msg.CompanyID, contactKey); ok {
			return d
		}

		if d, ok := r.workflowTrigger(ctx, msg, contactKey); ok {
			return d
		}
	}

	if d, ok := r.keywordTrigger(ctx, msg, contactKey); ok {
		return d
	}

	if msg.CurrentLegacyFlow != "" {
		return models.Decision{
			Action:      models.ActionContinueFlow,
			Priority:    models.PriorityGuidedFlow,
			HandlerName: models.HandlerFlowManager,
			Metadata:    models.DecisionDetails{ContactKey: contactKey, FlowName: msg.CurrentLegacyFlow},
		}
	}

	return models.Decision{
		Action:      models.ActionConversational,
		Priority:    models.PriorityConversational,
		HandlerName: models.HandlerConversational,
		Metadata:    models.DecisionDetails{ContactKey: contactKey},
	}
}

// activeWorkflow treats a state whose definition is gone as no state at all.
func (r *Router) activeWorkflow(ctx context.Context, companyID, contactKey string) (models.Decision, bool) {
	state, err := r.states.GetState(ctx, contactKey)
	if err != nil {
		if !persistence.IsStateNotFound(err) {
			r.logger.WarnContext(ctx, "Active workflow lookup failed", "contact_key", contactKey, "error", err)
		}

		return models.Decision{}, false
	}

	def, err := r.definitions.WorkflowByID(ctx, companyID, state.WorkflowID)
	if err != nil {
		r.logger.WarnContext(ctx, "Active workflow definition unavailable",
			"contact_key", contactKey,
			"workflow_id", state.WorkflowID,
			"error", err)

		return models.Decision{}, false
	}

	return models.Decision{
		Action:      models.ActionContinueWorkflow,
		Priority:    models.PriorityWorkflow,
		HandlerName: models.HandlerWorkflow,
		Metadata: models.DecisionDetails{
			ContactKey: contactKey,
			Workflow:   def,
			State:      state,
			WorkflowID: def.ID,
			Confidence: 1,
		},
	}, true
}

func (r *Router) workflowTrigger(ctx context.Context, msg models.Message, contactKey string) (models.Decision, bool) {
	workflows, err := r.definitions.ActiveWorkflows(ctx, msg.CompanyID)
	if err != nil {
		r.logger.WarnContext(ctx, "Workflow lookup failed", "company_id", msg.CompanyID, "error", err)

		return models.Decision{}, false
	}

	if len(workflows) == 0 {
		return models.Decision{}, false
	}

	match := r.matcher.FirstMatch(workflow.TriggerInput{
		Text:    msg.Text,
		Contact: r.contact(ctx, contactKey),
	}, workflows)
	if match == nil {
		return models.Decision{}, false
	}

	return models.Decision{
		Action:      models.ActionStartWorkflow,
		Priority:    models.PriorityWorkflow,
		HandlerName: models.HandlerWorkflow,
		Metadata: models.DecisionDetails{
			ContactKey: contactKey,
			Workflow:   match.Workflow,
			WorkflowID: match.Workflow.ID,
			Confidence: 1,
		},
	}, true
}

// contact returns a zero-count contact when none is stored yet and nil when the
// lookup failed.
func (r *Router) contact(ctx context.Context, contactKey string) *models.Contact {
	contact, err := r.contacts.GetContact(ctx, contactKey)
	if err == nil {
		return contact
	}

	if persistence.IsContactNotFound(err) {
		return &models.Contact{Key: contactKey}
	}

	r.logger.WarnContext(ctx, "Contact lookup failed", "contact_key", contactKey, "error", err)

	return nil
}

func (r *Router) keywordTrigger(ctx context.Context, msg models.Message, contactKey string) (models.Decision, bool) {
	configs, err := r.definitions.KeywordConfigs(ctx, msg.CompanyID)
	if err != nil {
		r.logger.WarnContext(ctx, "Keyword lookup failed", "company_id", msg.CompanyID, "error", err)

		return models.Decision{}, false
	}

	match := keyword.Find(r.logger, msg.Text, configs)
	if match == nil {
		return models.Decision{}, false
	}

	return models.Decision{
		Action:      models.ActionExecuteAPI,
		Priority:    models.PriorityAPIKeyword,
		HandlerName: models.HandlerAPIKeyword,
		Metadata: models.DecisionDetails{
			ContactKey: contactKey,
			Keyword:    match.Config,
			KeywordID:  match.Config.ID,
			Params:     match.Params,
			Confidence: match.Confidence,
		},
	}, true
}
