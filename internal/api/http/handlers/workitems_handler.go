package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/escalation-service/internal/api/dto"
	"github.com/spec-kit/escalation-service/internal/domain"
	"github.com/spec-kit/escalation-service/internal/service"
	apperrors "github.com/spec-kit/escalation-service/pkg/util"
)

// WorkItemsHandler exposes the escalation command surface.
type WorkItemsHandler struct {
	escalation *service.EscalationService
	store      *service.ProcessStore
}

// NewWorkItemsHandler constructs handler.
func NewWorkItemsHandler(escalation *service.EscalationService, store *service.ProcessStore) *WorkItemsHandler {
	return &WorkItemsHandler{escalation: escalation, store: store}
}

// ListPending GET /workitems/pending?participant=.
func (h *WorkItemsHandler) ListPending(c *fiber.Ctx) error {
	participant := strings.TrimSpace(c.Query("participant"))
	if participant == "" {
		return apperrors.NewValidationError("participant query parameter required", nil)
	}
	items, err := h.store.ListPendingWorkItems(c.UserContext(), participant)
	if err != nil {
		return err
	}
	result := make([]dto.WorkItemResponse, 0, len(items))
	for i := range items {
		result = append(result, dto.FromWorkItem(&items[i]))
	}
	return c.JSON(fiber.Map{"data": result})
}

// Complete POST /workitems/:id/complete.
func (h *WorkItemsHandler) Complete(c *fiber.Ctx) error {
	var req dto.CompleteWorkItemRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	comment := req.Comment
	if req.Evidence != "" {
		comment = comment + "\n" + req.Evidence
	}
	item, err := h.escalation.Complete(c.UserContext(), c.Params("id"), actorFrom(c), comment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromWorkItem(item)})
}

// Escalate POST /workitems/:id/escalate.
func (h *WorkItemsHandler) Escalate(c *fiber.Ctx) error {
	var req dto.EscalateWorkItemRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	process, err := h.escalation.Escalate(c.UserContext(), c.Params("id"), actorFrom(c), req.Comment, req.Target, req.PriorityOverride)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromProcess(process)})
}

// Reassign POST /workitems/:id/reassign.
func (h *WorkItemsHandler) Reassign(c *fiber.Ctx) error {
	var req dto.ReassignWorkItemRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	item, err := h.escalation.Reassign(c.UserContext(), c.Params("id"), req.Participant, actorFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromWorkItem(item)})
}

// actorFrom derives the audit actor from the authenticating proxy's
// header. Authentication itself happens upstream of this service.
func actorFrom(c *fiber.Ctx) string {
	if actor := strings.TrimSpace(c.Get("X-Actor")); actor != "" {
		return actor
	}
	return domain.SystemActor
}
