package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-triage/internal/api/dto"
	"github.com/spec-kit/ticket-triage/internal/domain"
	"github.com/spec-kit/ticket-triage/internal/service"
	apperrors "github.com/spec-kit/ticket-triage/pkg/util"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /ticket.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.TicketCreateInput{
		Subject:       req.Subject,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Description:   req.Description,
	}
	ticket, err := h.service.CreateTicket(c.Context(), input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ListTickets GET /ticket.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	page := parseInt(c.Query("page"), 1)
	limit := parseInt(c.Query("limit"), 10)

	list, err := h.service.ListTickets(c.Context(), page, limit)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(list.Data))
	for i := range list.Data {
		items = append(items, ticketResponse(&list.Data[i]))
	}
	return c.JSON(dto.TicketListResponse{
		Meta: dto.ListMeta{
			Total:      list.Meta.Total,
			TotalPages: list.Meta.TotalPages,
			Page:       list.Meta.Page,
			Limit:      list.Meta.Limit,
		},
		Data: items,
	})
}

// GetTicket GET /ticket/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ticket, msgs, err := h.service.GetTicket(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, msgs)})
}

// ResolveTicket PATCH /ticket/:id/resolve.
func (h *TicketsHandler) ResolveTicket(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.ResolveTicket(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

func parseID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid id", nil)
	}
	return id, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:             ticket.ID,
		Subject:        ticket.Subject,
		CustomerName:   ticket.CustomerName,
		CustomerEmail:  ticket.CustomerEmail,
		Status:         ticket.Status,
		Category:       ticket.Category,
		UrgencyLevel:   ticket.UrgencyLevel,
		SentimentScore: ticket.SentimentScore,
		Description:    ticket.Description,
		CreatedAt:      ticket.CreatedAt,
		UpdatedAt:      ticket.UpdatedAt,
		CompletedAt:    ticket.CompletedAt,
	}
}

func ticketDetail(ticket *domain.Ticket, messages []domain.TicketMessage) dto.TicketDetailResponse {
	msgs := make([]dto.TicketMessageResponse, 0, len(messages))
	for i := range messages {
		msgs = append(msgs, ticketMessageResponse(&messages[i]))
	}
	return dto.TicketDetailResponse{
		TicketResponse: ticketResponse(ticket),
		Messages:       msgs,
	}
}

func ticketMessageResponse(msg *domain.TicketMessage) dto.TicketMessageResponse {
	return dto.TicketMessageResponse{
		ID:        msg.ID,
		TicketID:  msg.TicketID,
		UserType:  msg.UserType,
		Status:    msg.Status,
		Message:   msg.Message,
		CreatedAt: msg.CreatedAt,
		UpdatedAt: msg.UpdatedAt,
	}
}
