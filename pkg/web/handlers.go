// Package web provides the HTTP handlers of the chat workflow API.
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dukex/chatflow/pkg/dispatcher"
	"github.com/dukex/chatflow/pkg/models"
	"github.com/dukex/chatflow/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// MessageHandler processes one inbound message.
type MessageHandler interface {
	Handle(ctx context.Context, msg models.Message) (*dispatcher.Reply, error)
}

type APIHandlers struct {
	messages      MessageHandler
	definitions   *services.Definitions
	conversations *services.Conversations
	validator     *validator.Validate
}

func NewAPIHandlers(
	messages MessageHandler,
	definitions *services.Definitions,
	conversations *services.Conversations,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		messages:      messages,
		definitions:   definitions,
		conversations: conversations,
		validator:     validator,
	}
}

func (h *APIHandlers) HandleMessage(c fiber.Ctx) error {
	var req MessageRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	reply, err := h.messages.Handle(c.Context(), req.toMessage())
	if err != nil {
		if errors.Is(err, models.ErrInvalidContactKey) {
			return badRequest(c, err.Error())
		}

		return internalError(c, err)
	}

	return c.JSON(reply)
}

func (h *APIHandlers) GetConversation(c fiber.Ctx) error {
	state, err := h.conversations.Current(c.Context(), c.Params("companyId"), c.Params("phone"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(TransformStateResponse(state))
}

func (h *APIHandlers) AbandonConversation(c fiber.Ctx) error {
	if err := h.conversations.Abandon(c.Context(), c.Params("companyId"), c.Params("phone")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) BacktrackConversation(c fiber.Ctx) error {
	var req BacktrackRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	state, err := h.conversations.Backtrack(c.Context(), c.Params("companyId"), c.Params("phone"), services.BacktrackRequest{
		ToStep:         req.ToStep,
		ClearVariables: req.ClearVariables,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(TransformStateResponse(state))
}

// CreateWorkflow stores the raw body so the JSON schema check sees the document as sent.
func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	def, err := h.definitions.SaveWorkflow(c.Context(), c.Params("companyId"), c.Body())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(def)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	def, err := h.definitions.FetchWorkflow(c.Context(), c.Params("companyId"), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(def)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	if err := h.definitions.DeleteWorkflow(c.Context(), c.Params("companyId"), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) CreateKeyword(c fiber.Ctx) error {
	var cfg models.KeywordConfig
	if err := c.Bind().JSON(&cfg); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	saved, err := h.definitions.SaveKeyword(c.Context(), c.Params("companyId"), &cfg)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(saved)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.definitions.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Chatflow API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "Chatflow API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

// Register mounts the API routes on r.
func (h *APIHandlers) Register(r fiber.Router) {
	r.Post("/messages", h.HandleMessage)
	r.Get("/health", h.HealthCheck)

	company := r.Group("/companies/:companyId")
	company.Post("/workflows", h.CreateWorkflow)
	company.Get("/workflows/:id", h.GetWorkflow)
	company.Delete("/workflows/:id", h.DeleteWorkflow)
	company.Post("/keywords", h.CreateKeyword)

	company.Get("/contacts/:phone/workflow", h.GetConversation)
	company.Delete("/contacts/:phone/workflow", h.AbandonConversation)
	company.Post("/contacts/:phone/workflow/backtrack", h.BacktrackConversation)
}
