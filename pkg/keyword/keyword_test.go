package keyword

import (
	"errors"
	"testing"
	"time"

	"github.com/dukex/chatflow/pkg/endpoint"
	"github.com/dukex/chatflow/pkg/events"
	"github.com/dukex/chatflow/pkg/log"
	"github.com/dukex/chatflow/pkg/mocks"
	"github.com/dukex/chatflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func keywordConfig(id, keyword string, priority int) *models.KeywordConfig {
	return &models.KeywordConfig{
		ID:             id,
		CompanyID:      "acme",
		SourceConfigID: "src",
		Keyword:        keyword,
		EndpointID:     "ep-" + id,
		Priority:       priority,
		Active:         true,
	}
}

func TestFind_StrictMatching(t *testing.T) {
	configs := []*models.KeywordConfig{keywordConfig("price", "Precio", 0)}

	tests := []struct {
		message string
		want    bool
		exact   bool
	}{
		{message: "precio", want: true, exact: true},
		{message: "  PRECIO  ", want: true, exact: true},
		{message: "precio notebook", want: true},
		{message: "cual es el precio", want: false},
		{message: "precios", want: false},
		{message: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			match := Find(log.Discard(), tt.message, configs)
			if !tt.want {
				assert.Nil(t, match)

				return
			}

			require.NotNil(t, match)
			assert.Equal(t, "price", match.Config.ID)
			assert.Equal(t, tt.exact, match.Exact)
		})
	}
}

func TestFind_PriorityAndInactive(t *testing.T) {
	inactive := keywordConfig("inactive", "stock", 10)
	inactive.Active = false

	configs := []*models.KeywordConfig{
		keywordConfig("low", "stock", 0),
		inactive,
		keywordConfig("high-a", "stock", 5),
		keywordConfig("high-b", "stock", 5),
	}

	match := Find(log.Discard(), "stock", configs)
	require.NotNil(t, match)
	assert.Equal(t, "high-a", match.Config.ID)
}

func TestExtractParams(t *testing.T) {
	cfg := keywordConfig("price", "precio", 0)
	cfg.ExtractParams = true
	cfg.Params = []models.ParamExtraction{
		{Name: "channel", From: models.ParamSourceFixed, FixedValue: "whatsapp"},
		{Name: "product", From: models.ParamSourceMessage, Pattern: `precio\s+(.+)`},
		{Name: "size", From: models.ParamSourceMessage, Pattern: `talle\s+(\d+)`},
		{Name: "broken", From: models.ParamSourceMessage, Pattern: `(`},
	}

	match := Find(log.Discard(), "PRECIO Notebook Pro ", []*models.KeywordConfig{cfg})
	require.NotNil(t, match)

	assert.Equal(t, map[string]any{
		"channel": "whatsapp",
		"product": "Notebook Pro",
	}, match.Params)
}

func TestRender(t *testing.T) {
	data := map[string]any{
		"product": map[string]any{"name": "Notebook", "price": 999.5},
		"data":    []any{map[string]any{"name": "Sucursal Centro"}},
	}

	assert.Equal(t, "Notebook cuesta $999.5 en 1. Sucursal Centro",
		Render("{{product.name}} cuesta ${{product.price}} en {{resultados}}", data))

	assert.Equal(t, "```json\n{\n  \"ok\": true\n}\n```", Render("", map[string]any{"ok": true}))
	assert.Equal(t, "2 items", Render("{{data.length}} items", []any{"a", "b"}))
}

func TestHandler_Execute(t *testing.T) {
	endpoints := &mocks.MockExecutor{}
	bus := &mocks.MockEventBus{}

	cfg := keywordConfig("price", "precio", 0)
	cfg.ResponseTemplate = "Precio: {{price}}"

	endpoints.On("Execute", mock.Anything, "src", "ep-price",
		endpoint.Params{Query: map[string]any{"product": "notebook"}},
		endpoint.ExecContext{CompanyID: "acme", ContactKey: "acme:1"}).
		Return(&endpoint.Result{Success: true, StatusCode: 200, Data: map[string]any{"price": 10.0}}, nil)

	bus.On("Publish", mock.Anything, "acme:1", mock.MatchedBy(func(e events.KeywordExecuted) bool {
		return e.KeywordID == "price" && e.Success
	})).Return(nil)

	handler := NewHandler(log.Discard(), endpoints, WithPublisher(bus))

	result := handler.Execute(t.Context(), "acme:1", &Match{Config: cfg, Params: map[string]any{"product": "notebook"}})

	assert.True(t, result.Success)
	assert.Equal(t, "Precio: 10", result.Response)
	assert.Equal(t, "ep-price", result.Metadata.EndpointID)

	endpoints.AssertExpectations(t)
	bus.AssertExpectations(t)
}

func TestHandler_ExecuteFailure(t *testing.T) {
	tests := []struct {
		name   string
		result *endpoint.Result
		err    error
		detail string
	}{
		{name: "transport", err: errors.New("dial tcp: refused"), detail: "dial tcp: refused"},
		{name: "status", result: &endpoint.Result{StatusCode: 500, Error: "Error 500: boom"}, detail: "Error 500: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			endpoints := &mocks.MockExecutor{}
			endpoints.On("Execute", mock.Anything, "src", "ep-price", endpoint.Params{}, mock.Anything).
				Return(tt.result, tt.err)

			handler := NewHandler(log.Discard(), endpoints)
			handler.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

			result := handler.Execute(t.Context(), "acme:1", &Match{Config: keywordConfig("price", "precio", 0)})

			assert.False(t, result.Success)
			assert.Equal(t, failedMessage, result.Response)
			assert.Equal(t, tt.detail, result.Error)
		})
	}
}
