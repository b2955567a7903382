package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-triage/internal/api/dto"
	"github.com/spec-kit/ticket-triage/internal/service"
	apperrors "github.com/spec-kit/ticket-triage/pkg/util"
)

// TicketMessagesHandler manages the agent draft endpoints.
type TicketMessagesHandler struct {
	service *service.MessageService
}

// NewTicketMessagesHandler constructs handler.
func NewTicketMessagesHandler(messageService *service.MessageService) *TicketMessagesHandler {
	return &TicketMessagesHandler{service: messageService}
}

// CreateMessage POST /ticket-message/:id (id is the owning ticket).
func (h *TicketMessagesHandler) CreateMessage(c *fiber.Ctx) error {
	ticketID, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.CreateMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	msg, err := h.service.CreateDraft(c.Context(), ticketID, req.Message)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketMessageResponse(msg)})
}

// UpdateMessage PATCH /ticket-message/:id.
func (h *TicketMessagesHandler) UpdateMessage(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.UpdateMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	msg, err := h.service.UpdateDraft(c.Context(), id, req.Message)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketMessageResponse(msg)})
}

// PublishMessage PATCH /ticket-message/:id/publish.
func (h *TicketMessagesHandler) PublishMessage(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	msg, err := h.service.Publish(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketMessageResponse(msg)})
}
