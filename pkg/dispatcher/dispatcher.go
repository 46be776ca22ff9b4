// Package dispatcher routes each inbound message and hands it to the chosen handler,
// one message at a time per contact.
package dispatcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukex/chatflow/pkg/events"
	"github.com/dukex/chatflow/pkg/keyword"
	"github.com/dukex/chatflow/pkg/models"
	"github.com/dukex/chatflow/pkg/persistence"
	"github.com/dukex/chatflow/pkg/workflow"
	"github.com/dukex/chatflow/pkg/workflowstate"
)

// DefaultWorkflowTimeout is how long a workflow may sit idle before it is abandoned.
const DefaultWorkflowTimeout = 30 * time.Minute

const internalErrorMessage = "❌ Ocurrió un error. Por favor intentá de nuevo."

type Router interface {
	Route(ctx context.Context, msg models.Message) models.Decision
}

type WorkflowExecutor interface {
	StartWorkflow(ctx context.Context, contactKey string, def *models.WorkflowDefinition) (*workflow.Result, error)
	ContinueWorkflow(ctx context.Context, message, contactKey string, state *models.WorkflowState, def *models.WorkflowDefinition) (*workflow.Result, error)
}

type KeywordExecutor interface {
	Execute(ctx context.Context, contactKey string, match *keyword.Match) *keyword.Result
}

// Reply is the outcome of one message. Handled is false when the decision belongs to a
// handler outside this service (guided flows and the conversational default).
type Reply struct {
	Decision  models.Decision `json:"decision"`
	Response  string          `json:"response,omitempty"`
	Completed bool            `json:"completed"`
	Handled   bool            `json:"handled"`
	TimedOut  bool            `json:"timed_out,omitempty"`
	Metadata  any             `json:"metadata,omitempty"`
}

type Dispatcher struct {
	router    Router
	workflows WorkflowExecutor
	keywords  KeywordExecutor
	store     *workflowstate.Store
	contacts  persistence.ContactRepository
	timeout   time.Duration
	locks     *contactLocks
	logger    *slog.Logger
}

type Option func(*Dispatcher)

func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.timeout = timeout }
}

func New(
	logger *slog.Logger,
	router Router,
	workflows WorkflowExecutor,
	keywords KeywordExecutor,
	store *workflowstate.Store,
	contacts persistence.ContactRepository,
	opts ...Option,
) *Dispatcher {
	d := &Dispatcher{
		router:    router,
		workflows: workflows,
		keywords:  keywords,
		store:     store,
		contacts:  contacts,
		timeout:   DefaultWorkflowTimeout,
		locks:     newContactLocks(),
		logger:    logger.With("module", "dispatcher"),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Handle processes msg. The error is set only for an unidentifiable contact or when ctx
// ends while waiting for the contact's previous message.
func (d *Dispatcher) Handle(ctx context.Context, msg models.Message) (*Reply, error) {
	contactKey, err := models.ContactKey(msg.CompanyID, msg.ContactPhone)
	if err != nil {
		return nil, err
	}

	release, err := d.locks.acquire(ctx, contactKey)
	if err != nil {
		return nil, err
	}
	defer release()

	logger := d.logger.With("contact_key", contactKey)

	timedOut, err := d.store.CheckTimeout(ctx, contactKey, d.timeout)
	if err != nil {
		logger.ErrorContext(ctx, "Timeout check failed", "error", err)
	}

	decision := d.router.Route(ctx, msg)

	// Counted after routing so first-message triggers see the contact as it was.
	if _, err := d.contacts.RecordInteraction(ctx, msg.CompanyID, msg.ContactPhone); err != nil {
		logger.ErrorContext(ctx, "Failed to record interaction", "error", err)
	}

	reply := d.dispatch(ctx, logger, msg, contactKey, decision)
	reply.TimedOut = timedOut

	return reply, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, logger *slog.Logger, msg models.Message, contactKey string, decision models.Decision) *Reply {
	reply := &Reply{Decision: decision}
	meta := decision.Metadata

	switch decision.Action {
	case models.ActionContinueWorkflow:
		result, err := d.workflows.ContinueWorkflow(ctx, msg.Text, contactKey, meta.State, meta.Workflow)

		return d.workflowReply(ctx, logger, reply, contactKey, result, err)
	case models.ActionStartWorkflow:
		result, err := d.workflows.StartWorkflow(ctx, contactKey, meta.Workflow)

		return d.workflowReply(ctx, logger, reply, contactKey, result, err)
	case models.ActionExecuteAPI:
		result := d.keywords.Execute(ctx, contactKey, &keyword.Match{
			Config:     meta.Keyword,
			Params:     meta.Params,
			Confidence: meta.Confidence,
		})

		reply.Handled = true
		reply.Completed = true
		reply.Response = result.Response
		reply.Metadata = result.Metadata
	default:
		logger.DebugContext(ctx, "Message left to external handler", "handler", decision.HandlerName)
	}

	return reply
}

// workflowReply turns a state store failure into a generic answer and drops the state so
// the contact is not stuck on a half-written step.
func (d *Dispatcher) workflowReply(ctx context.Context, logger *slog.Logger, reply *Reply, contactKey string, result *workflow.Result, err error) *Reply {
	reply.Handled = true

	if err != nil {
		logger.ErrorContext(ctx, "Workflow step failed", "workflow_id", reply.Decision.Metadata.WorkflowID, "error", err)

		if abandonErr := d.store.Abandon(ctx, contactKey, events.ReasonStorageFailed); abandonErr != nil {
			logger.ErrorContext(ctx, "Failed to abandon workflow", "error", abandonErr)
		}

		reply.Response = internalErrorMessage
		reply.Completed = true

		return reply
	}

	reply.Response = result.Response
	reply.Completed = result.Completed
	reply.Metadata = result.Metadata

	return reply
}
