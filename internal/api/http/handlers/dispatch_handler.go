package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/escalation-service/internal/api/dto"
	"github.com/spec-kit/escalation-service/internal/domain"
	"github.com/spec-kit/escalation-service/internal/service"
	apperrors "github.com/spec-kit/escalation-service/pkg/util"
)

// DispatchHandler exposes the planning surface.
type DispatchHandler struct {
	dispatch *service.DispatchService
}

// NewDispatchHandler constructs handler.
func NewDispatchHandler(dispatch *service.DispatchService) *DispatchHandler {
	return &DispatchHandler{dispatch: dispatch}
}

// Pool GET /dispatch/pool.
func (h *DispatchHandler) Pool(c *fiber.Ctx) error {
	pool, err := h.dispatch.BuildPool(c.UserContext())
	if err != nil {
		return err
	}
	result := make([]dto.DispatchTicketResponse, 0, len(pool))
	for _, ticket := range pool {
		result = append(result, dto.FromDispatchTicket(ticket))
	}
	return c.JSON(fiber.Map{"data": result})
}

// Publish POST /dispatch/publish.
func (h *DispatchHandler) Publish(c *fiber.Ctx) error {
	var req dto.PublishRoutesRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if len(req.Routes) == 0 {
		return apperrors.NewValidationError("at least one route required", nil)
	}

	routes := make([]service.Route, 0, len(req.Routes))
	for _, input := range req.Routes {
		if input.Technician == "" {
			return apperrors.NewValidationError("route technician required", nil)
		}
		route := service.Route{Technician: input.Technician}
		for _, ref := range input.Tickets {
			route.Tickets = append(route.Tickets, domain.DispatchTicket{Ref: ref})
		}
		routes = append(routes, route)
	}

	outcomes := h.dispatch.Publish(c.UserContext(), routes)
	return c.JSON(fiber.Map{"data": outcomes})
}
