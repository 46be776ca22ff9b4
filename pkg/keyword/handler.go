package keyword

import (
	"context"
	"log/slog"
	"maps"
	"time"

	"github.com/dukex/chatflow/pkg/endpoint"
	"github.com/dukex/chatflow/pkg/eventbus"
	"github.com/dukex/chatflow/pkg/events"
	"github.com/dukex/chatflow/pkg/expression"
	"github.com/dukex/chatflow/pkg/otelhelper"
	"github.com/dukex/chatflow/pkg/workflow"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const failedMessage = "❌ No pude completar tu solicitud. Por favor intentá de nuevo más tarde."

// Result is the reply to a keyword call. Error is for logs only.
type Result struct {
	Success  bool     `json:"success"`
	Response string   `json:"response"`
	Error    string   `json:"error,omitempty"`
	Metadata Metadata `json:"metadata"`
}

type Metadata struct {
	KeywordID     string        `json:"keyword_id"`
	EndpointID    string        `json:"endpoint_id"`
	ExecutionTime time.Duration `json:"execution_time"`
}

type Handler struct {
	endpoints endpoint.Executor
	publisher eventbus.EventPublisher
	tracer    trace.Tracer
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Handler)

func WithPublisher(publisher eventbus.EventPublisher) Option {
	return func(h *Handler) {
		if publisher != nil {
			h.publisher = publisher
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(h *Handler) { h.tracer = tracer }
}

func NewHandler(logger *slog.Logger, endpoints endpoint.Executor, opts ...Option) *Handler {
	h := &Handler{
		endpoints: endpoints,
		publisher: eventbus.Discard,
		tracer:    otelhelper.NoopTracer(),
		logger:    logger.With("module", "keyword_handler"),
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Execute calls the matched endpoint with the extracted parameters as query values and
// renders the reply.
func (h *Handler) Execute(ctx context.Context, contactKey string, match *Match) *Result {
	cfg := match.Config

	ctx, span := otelhelper.StartSpan(ctx, h.tracer, "chatflow.keyword.execute",
		attribute.String(otelhelper.CompanyIDKey, cfg.CompanyID),
		attribute.String(otelhelper.ContactIDKey, contactKey),
		attribute.String(otelhelper.KeywordIDKey, cfg.ID),
		attribute.String(otelhelper.EndpointIDKey, cfg.EndpointID),
	)
	defer span.End()

	logger := h.logger.With("contact_key", contactKey, "keyword_id", cfg.ID, "endpoint_id", cfg.EndpointID)
	start := h.now()

	params := endpoint.Params{}
	if len(match.Params) > 0 {
		params.Query = maps.Clone(match.Params)
	}

	result, err := h.endpoints.Execute(ctx, cfg.SourceConfigID, cfg.EndpointID, params, endpoint.ExecContext{
		CompanyID:  cfg.CompanyID,
		ContactKey: contactKey,
	})

	meta := Metadata{KeywordID: cfg.ID, EndpointID: cfg.EndpointID, ExecutionTime: h.now().Sub(start)}

	var reply *Result

	switch {
	case err != nil:
		otelhelper.SetError(span, err)
		logger.ErrorContext(ctx, "Keyword endpoint call failed", "error", err)

		reply = &Result{Response: failedMessage, Error: err.Error(), Metadata: meta}
	case result == nil || !result.Success:
		detail := "empty result"
		if result != nil {
			detail = result.Error
		}

		logger.ErrorContext(ctx, "Keyword endpoint returned an error", "error", detail)

		reply = &Result{Response: failedMessage, Error: detail, Metadata: meta}
	default:
		logger.InfoContext(ctx, "Keyword executed", "execution_time", meta.ExecutionTime)

		reply = &Result{Success: true, Response: Render(cfg.ResponseTemplate, result.Data), Metadata: meta}
	}

	h.publish(ctx, contactKey, match, reply)

	return reply
}

// Render fills template from the endpoint payload. Without a template the payload is
// returned as a JSON code block.
func Render(template string, data any) string {
	if template == "" {
		return workflow.Truncate("```json\n" + expression.Format(data) + "\n```")
	}

	globals := map[string]any{}
	if obj, ok := data.(map[string]any); ok {
		globals = maps.Clone(obj)
	} else if data != nil {
		globals["data"] = data
	}

	results := workflow.FormatResults(data)
	globals["resultados"] = results
	globals["resultado"] = results

	return workflow.Truncate(expression.ResolveString(template, expression.MapLookup(globals)))
}

func (h *Handler) publish(ctx context.Context, contactKey string, match *Match, reply *Result) {
	event := events.KeywordExecuted{
		BaseEvent: events.BaseEvent{
			ID:         uuid.NewString(),
			Type:       events.KeywordExecutedEvent,
			Timestamp:  h.now().UTC(),
			CompanyID:  match.Config.CompanyID,
			ContactKey: contactKey,
		},
		KeywordID:  match.Config.ID,
		EndpointID: match.Config.EndpointID,
		Success:    reply.Success,
		Duration:   reply.Metadata.ExecutionTime,
	}

	if err := h.publisher.Publish(ctx, contactKey, event); err != nil {
		h.logger.ErrorContext(ctx, "Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}
