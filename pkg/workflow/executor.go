// Package workflow runs conversational workflows one message at a time.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dukex/chatflow/pkg/endpoint"
	"github.com/dukex/chatflow/pkg/events"
	"github.com/dukex/chatflow/pkg/expression"
	"github.com/dukex/chatflow/pkg/models"
	"github.com/dukex/chatflow/pkg/otelhelper"
	"github.com/dukex/chatflow/pkg/validation"
	"github.com/dukex/chatflow/pkg/workflowstate"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultFinalMessage   = "✅ Flujo completado"
	DefaultAbandonMessage = "🚫 Flujo cancelado"

	tooManyAttemptsPrefix = "❌ Demasiados intentos fallidos. "
	executeFailedMessage  = "❌ No pude completar tu solicitud. Por favor intentá de nuevo más tarde."
	configErrorMessage    = "❌ Lo siento, hubo un error de configuración. Por favor intentá de nuevo más tarde."
	noOptionsMessage      = "(No hay opciones disponibles)"
	optionsPlaceholder    = "{{opciones}}"
)

var abandonWords = map[string]bool{
	"cancelar": true,
	"salir":    true,
	"stop":     true,
}

// Result is the reply produced for one message of a workflow conversation.
type Result struct {
	Response  string   `json:"response"`
	Completed bool     `json:"completed"`
	Metadata  Metadata `json:"metadata"`
}

type Metadata struct {
	WorkflowID     string         `json:"workflow_id"`
	WorkflowName   string         `json:"workflow_name"`
	CurrentStep    int            `json:"current_step"`
	TotalSteps     int            `json:"total_steps"`
	CollectedData  map[string]any `json:"collected_data,omitempty"`
	AwaitingRepeat bool           `json:"awaiting_repeat,omitempty"`
	AbandonReason  string         `json:"abandon_reason,omitempty"`
	ChainedFrom    string         `json:"chained_from,omitempty"`
}

// Definitions looks up the workflow a finished one chains into.
type Definitions interface {
	WorkflowByID(ctx context.Context, companyID, workflowID string) (*models.WorkflowDefinition, error)
}

// Executor drives collect and execute steps against the state store and the
// endpoint executor.
type Executor struct {
	store       *workflowstate.Store
	endpoints   endpoint.Executor
	definitions Definitions
	tracer      trace.Tracer
	logger      *slog.Logger
}

type ExecutorOption func(*Executor)

func WithTracer(tracer trace.Tracer) ExecutorOption {
	return func(e *Executor) { e.tracer = tracer }
}

// WithDefinitions enables chained workflows (WorkflowDefinition.Next).
func WithDefinitions(definitions Definitions) ExecutorOption {
	return func(e *Executor) { e.definitions = definitions }
}

func NewExecutor(logger *slog.Logger, store *workflowstate.Store, endpoints endpoint.Executor, opts ...ExecutorOption) *Executor {
	e := &Executor{
		store:     store,
		endpoints: endpoints,
		tracer:    otelhelper.NoopTracer(),
		logger:    logger.With("module", "workflow_executor"),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// StartWorkflow creates the contact's state and asks the first question. The error is
// only set when the state could not be persisted.
func (e *Executor) StartWorkflow(ctx context.Context, contactKey string, def *models.WorkflowDefinition) (*Result, error) {
	result, _, err := e.start(ctx, contactKey, def)

	return result, err
}

// start reports whether a state was created. A definition that cannot start leaves
// the contact without a workflow and answers with the generic apology.
func (e *Executor) start(ctx context.Context, contactKey string, def *models.WorkflowDefinition) (*Result, bool, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "chatflow.workflow.start",
		attribute.String(otelhelper.CompanyIDKey, def.CompanyID),
		attribute.String(otelhelper.ContactIDKey, contactKey),
		attribute.String(otelhelper.WorkflowIDKey, def.ID),
	)
	defer span.End()

	logger := e.logger.With("contact_key", contactKey, "workflow_id", def.ID)

	first, ok := def.StepByOrder(1)
	if !ok || first.Kind != models.StepKindCollect {
		logger.ErrorContext(ctx, "Workflow cannot start: first step must be a collect step")

		return &Result{Response: configErrorMessage, Metadata: e.metadata(def, 0)}, false, nil
	}

	state, err := e.store.Start(ctx, contactKey, def.CompanyID, def.ID, def.SourceConfigID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, false, fmt.Errorf("failed to start workflow %s: %w", def.ID, err)
	}

	logger.InfoContext(ctx, "Workflow started", "total_steps", len(def.Steps))

	var response strings.Builder
	if def.InitialMessage != "" {
		response.WriteString(def.InitialMessage)
		response.WriteString("\n\n")
	}

	response.WriteString(e.ask(ctx, state, def, first, endpoint.Params{}))

	return &Result{Response: response.String(), Metadata: e.metadata(def, 0)}, true, nil
}

// ContinueWorkflow processes message against the step after state.CurrentStep.
func (e *Executor) ContinueWorkflow(ctx context.Context, message, contactKey string, state *models.WorkflowState, def *models.WorkflowDefinition) (*Result, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "chatflow.workflow.continue",
		attribute.String(otelhelper.CompanyIDKey, def.CompanyID),
		attribute.String(otelhelper.ContactIDKey, contactKey),
		attribute.String(otelhelper.WorkflowIDKey, def.ID),
		attribute.Int(otelhelper.StepOrderKey, state.CurrentStep+1),
	)
	defer span.End()

	if def.AllowAbandon && abandonWords[strings.ToLower(strings.TrimSpace(message))] {
		return e.abandon(ctx, contactKey, def, state.CurrentStep, events.ReasonCancelled, abandonMessage(def))
	}

	if state.AwaitingRepeatDecision && def.RepeatEnabled() {
		return e.repeatDecision(ctx, message, contactKey, def, state)
	}

	step, ok := def.StepByOrder(state.CurrentStep + 1)
	if !ok {
		e.logger.ErrorContext(ctx, "Workflow step not found",
			"contact_key", contactKey,
			"workflow_id", def.ID,
			"step", state.CurrentStep+1)

		return e.abandon(ctx, contactKey, def, state.CurrentStep, events.ReasonConfiguration, configErrorMessage)
	}

	var (
		result *Result
		err    error
	)

	switch step.Kind {
	case models.StepKindExecute:
		result, err = e.execute(ctx, contactKey, state, def, step)
	default:
		result, err = e.collect(ctx, message, contactKey, state, def, step)
	}

	if err != nil {
		otelhelper.SetError(span, err)
	}

	return result, err
}

func (e *Executor) collect(ctx context.Context, message, contactKey string, state *models.WorkflowState, def *models.WorkflowDefinition, step *models.WorkflowStep) (*Result, error) {
	logger := e.logger.With("contact_key", contactKey, "workflow_id", def.ID, "step", step.Order)

	validated := validation.Validate(message, step.Validation)
	if validated.PatternErr != nil {
		logger.WarnContext(ctx, "Invalid validation pattern, accepting input", "error", validated.PatternErr)
	}

	if !validated.OK {
		attempts, err := e.store.RecordFailedAttempt(ctx, contactKey)
		if err != nil {
			return nil, err
		}

		maxAttempts := step.EffectiveMaxAttempts()

		logger.InfoContext(ctx, "Validation failed", "attempt", attempts, "max_attempts", maxAttempts)

		if attempts >= maxAttempts {
			return e.abandon(ctx, contactKey, def, state.CurrentStep, events.ReasonAttemptsExhausted,
				tooManyAttemptsPrefix+abandonMessage(def))
		}

		return &Result{
			Response: fmt.Sprintf("%s\n\n(Intento %d/%d)", validated.Message, attempts, maxAttempts),
			Metadata: e.metadata(def, state.CurrentStep),
		}, nil
	}

	value := validated.Value
	if s, ok := value.(string); ok {
		value = strings.TrimSpace(s)
	}

	newData := map[string]any{step.VariableName: value}

	if step.EndpointID != "" {
		if cached, ok := state.ExecutedData[step.EndpointID]; ok {
			options := workflowstate.NormalizeOptions(cached, step.ResponseList)
			if option, ok := selectOption(options, fmt.Sprint(value)); ok {
				newData[step.VariableName] = option.ID
				newData[workflowstate.LabelKey(step.VariableName)] = option.Label
			}
		}
	}

	advanced, err := e.store.Advance(ctx, contactKey, newData)
	if err != nil {
		return nil, err
	}

	next, ok := def.StepByOrder(step.Order + 1)
	if !ok {
		collected, err := e.store.Finish(ctx, contactKey)
		if err != nil {
			return nil, err
		}

		logger.InfoContext(ctx, "Workflow completed")

		meta := e.metadata(def, step.Order)
		meta.CollectedData = collected

		return e.chain(ctx, contactKey, def, &Result{Response: finalMessage(def), Completed: true, Metadata: meta})
	}

	if next.Kind == models.StepKindExecute {
		return e.execute(ctx, contactKey, advanced, def, next)
	}

	return &Result{
		Response: e.ask(ctx, advanced, def, next, buildParams(next.ParamMapping, advanced.CollectedData)),
		Metadata: e.metadata(def, advanced.CurrentStep),
	}, nil
}

func (e *Executor) execute(ctx context.Context, contactKey string, state *models.WorkflowState, def *models.WorkflowDefinition, step *models.WorkflowStep) (*Result, error) {
	logger := e.logger.With("contact_key", contactKey, "workflow_id", def.ID, "step", step.Order, "endpoint_id", step.EndpointID)

	params := buildParams(step.ParamMapping, state.CollectedData)

	result, err := e.endpoints.Execute(ctx, def.SourceConfigID, step.EndpointID, params, endpoint.ExecContext{
		CompanyID:  def.CompanyID,
		ContactKey: contactKey,
	})

	switch {
	case err != nil:
		logger.ErrorContext(ctx, "Endpoint call failed", "error", err)

		return e.abandon(ctx, contactKey, def, state.CurrentStep, events.ReasonEndpointFailed, executeFailedMessage)
	case result == nil || !result.Success:
		var detail string
		if result != nil {
			detail = result.Error
		}

		logger.ErrorContext(ctx, "Endpoint returned an error", "error", detail)

		return e.abandon(ctx, contactKey, def, state.CurrentStep, events.ReasonEndpointFailed, executeFailedMessage)
	}

	if err := e.store.SaveExecutedData(ctx, contactKey, step.EndpointID, result.Data); err != nil {
		return nil, err
	}

	var response string
	if def.ResponseTemplate != "" {
		response = RenderResponse(def.ResponseTemplate, state.CollectedData, result.Data)
	} else {
		response = DefaultResponse(def.FinalMessage, result.Data)
	}

	if def.RepeatEnabled() {
		if err := e.store.MarkAwaitingRepeat(ctx, contactKey); err != nil {
			return nil, err
		}

		meta := e.metadata(def, state.CurrentStep)
		meta.AwaitingRepeat = true
		meta.CollectedData = state.CollectedData

		return &Result{
			Response: Truncate(response + "\n\n" + repeatOffer(def.Repeat)),
			Metadata: meta,
		}, nil
	}

	collected, err := e.store.Finish(ctx, contactKey)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Workflow completed")

	meta := e.metadata(def, step.Order)
	meta.CollectedData = collected

	return e.chain(ctx, contactKey, def, &Result{Response: Truncate(response), Completed: true, Metadata: meta})
}

// chain starts the workflow selected by def.Next once def has finished. The finished
// reply is kept in front of the new workflow's first question. Without a usable next
// workflow the finished result is returned unchanged.
func (e *Executor) chain(ctx context.Context, contactKey string, def *models.WorkflowDefinition, finished *Result) (*Result, error) {
	if def.Next == nil || len(def.Next.Workflows) == 0 || e.definitions == nil {
		return finished, nil
	}

	logger := e.logger.With("contact_key", contactKey, "workflow_id", def.ID)

	variable := def.ChainVariable()
	collected := finished.Metadata.CollectedData

	nextID, ok := nextWorkflowFor(def.Next.Workflows, collected[variable], collected[workflowstate.LabelKey(variable)])
	if !ok {
		logger.InfoContext(ctx, "No next workflow for answer", "variable", variable)

		return finished, nil
	}

	next, err := e.definitions.WorkflowByID(ctx, def.CompanyID, nextID)
	if err != nil || next == nil || !next.Active {
		logger.WarnContext(ctx, "Next workflow unavailable", "next_workflow_id", nextID, "error", err)

		return finished, nil
	}

	started, ok, err := e.start(ctx, contactKey, next)
	if err != nil {
		return nil, err
	}

	if !ok {
		return finished, nil
	}

	logger.InfoContext(ctx, "Chained workflow started", "next_workflow_id", next.ID)

	started.Response = Truncate(finished.Response + "\n\n" + started.Response)
	started.Metadata.ChainedFrom = def.ID
	started.Metadata.CollectedData = collected

	return started, nil
}

// nextWorkflowFor matches the contact's answer, or its option label, against the
// configured options.
func nextWorkflowFor(entries []models.NextWorkflow, answer, label any) (string, bool) {
	candidates := make([]string, 0, 2)

	for _, v := range []any{answer, label} {
		if v != nil {
			candidates = append(candidates, validation.Normalize(fmt.Sprint(v)))
		}
	}

	for _, entry := range entries {
		option := validation.Normalize(entry.Option)

		for _, candidate := range candidates {
			if candidate != "" && candidate == option {
				return entry.WorkflowID, true
			}
		}
	}

	return "", false
}

func (e *Executor) repeatDecision(ctx context.Context, message, contactKey string, def *models.WorkflowDefinition, state *models.WorkflowState) (*Result, error) {
	cfg := def.Repeat

	switch strings.TrimSpace(message) {
	case "1":
		from := cfg.FromStep

		target, ok := def.StepByOrder(from)
		if !ok {
			e.logger.ErrorContext(ctx, "Repeat step not found", "workflow_id", def.ID, "step", from)

			return e.abandon(ctx, contactKey, def, state.CurrentStep, events.ReasonConfiguration, configErrorMessage)
		}

		rewound, err := e.store.Backtrack(ctx, contactKey, from-1, cfg.ClearVariables)
		if err != nil {
			return nil, err
		}

		e.logger.InfoContext(ctx, "Workflow repeated", "contact_key", contactKey, "workflow_id", def.ID, "from_step", from)

		if target.Kind == models.StepKindExecute {
			return e.execute(ctx, contactKey, rewound, def, target)
		}

		return &Result{
			Response: e.ask(ctx, rewound, def, target, buildParams(target.ParamMapping, rewound.CollectedData)),
			Metadata: e.metadata(def, rewound.CurrentStep),
		}, nil
	case "2":
		collected, err := e.store.Finish(ctx, contactKey)
		if err != nil {
			return nil, err
		}

		meta := e.metadata(def, state.CurrentStep)
		meta.CollectedData = collected

		return &Result{Response: finalMessage(def), Completed: true, Metadata: meta}, nil
	default:
		meta := e.metadata(def, state.CurrentStep)
		meta.AwaitingRepeat = true

		return &Result{
			Response: validation.DefaultOptionMessage + ":\n\n" + repeatChoices(cfg),
			Metadata: meta,
		}, nil
	}
}

// ask renders a collect step's question and, when it declares an endpoint, the option
// list fetched with params. Endpoint failures leave the question without options.
func (e *Executor) ask(ctx context.Context, state *models.WorkflowState, def *models.WorkflowDefinition, step *models.WorkflowStep, params endpoint.Params) string {
	question := expression.ResolveString(step.Question, expression.MapLookup(state.CollectedData))

	if step.EndpointID == "" {
		return question
	}

	logger := e.logger.With("contact_key", state.ContactKey, "workflow_id", def.ID, "step", step.Order, "endpoint_id", step.EndpointID)

	result, err := e.endpoints.Execute(ctx, def.SourceConfigID, step.EndpointID, params, endpoint.ExecContext{
		CompanyID:  def.CompanyID,
		ContactKey: state.ContactKey,
	})
	if err != nil || result == nil || !result.Success {
		logger.WarnContext(ctx, "Could not fetch options", "error", callError(err, result))

		return withOptions(question, noOptionsMessage)
	}

	if err := e.store.SaveExecutedData(ctx, state.ContactKey, step.EndpointID, result.Data); err != nil {
		logger.ErrorContext(ctx, "Failed to cache options", "error", err)
	}

	options := workflowstate.NormalizeOptions(result.Data, step.ResponseList)
	if len(options) == 0 {
		return withOptions(question, noOptionsMessage)
	}

	return withOptions(question, FormatOptionList(options, step.ResponseList != nil))
}

func (e *Executor) abandon(ctx context.Context, contactKey string, def *models.WorkflowDefinition, currentStep int, reason, response string) (*Result, error) {
	if err := e.store.Abandon(ctx, contactKey, reason); err != nil {
		return nil, err
	}

	meta := e.metadata(def, currentStep)
	meta.AbandonReason = reason

	return &Result{Response: response, Completed: true, Metadata: meta}, nil
}

func (e *Executor) metadata(def *models.WorkflowDefinition, currentStep int) Metadata {
	return Metadata{
		WorkflowID:   def.ID,
		WorkflowName: def.Name,
		CurrentStep:  currentStep,
		TotalSteps:   len(def.Steps),
	}
}

// buildParams maps collected variables into a query bag. A mapping value is either a
// variable name or a template; unresolved variables are left out.
func buildParams(mapping map[string]string, collected map[string]any) endpoint.Params {
	if len(mapping) == 0 {
		return endpoint.Params{}
	}

	query := make(map[string]any, len(mapping))

	for param, source := range mapping {
		if strings.Contains(source, "{{") {
			resolved := expression.ResolveString(source, expression.MapLookup(collected))
			if !strings.Contains(resolved, "{{") {
				query[param] = resolved
			}

			continue
		}

		if value, ok := collected[strings.TrimSpace(source)]; ok && value != nil {
			query[param] = value
		}
	}

	return endpoint.Params{Query: query}
}

// selectOption accepts a 1-based option number or an option id.
func selectOption(options []workflowstate.Option, answer string) (workflowstate.Option, bool) {
	answer = strings.TrimSpace(answer)

	if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(options) {
		return options[n-1], true
	}

	for _, option := range options {
		if option.ID != "" && strings.EqualFold(option.ID, answer) {
			return option, true
		}
	}

	return workflowstate.Option{}, false
}

func withOptions(question, list string) string {
	if strings.Contains(question, optionsPlaceholder) {
		return strings.Replace(question, optionsPlaceholder, list, 1)
	}

	if question == "" {
		return list
	}

	return question + "\n\n" + list
}

func callError(err error, result *endpoint.Result) string {
	switch {
	case err != nil:
		return err.Error()
	case result == nil:
		return "empty result"
	default:
		return result.Error
	}
}

func finalMessage(def *models.WorkflowDefinition) string {
	if def.FinalMessage != "" {
		return def.FinalMessage
	}

	return DefaultFinalMessage
}

func abandonMessage(def *models.WorkflowDefinition) string {
	if def.AbandonMessage != "" {
		return def.AbandonMessage
	}

	return DefaultAbandonMessage
}
