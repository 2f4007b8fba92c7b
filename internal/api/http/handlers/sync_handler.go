package handlers

import (
	"context"
	"sync"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/escalation-service/internal/api/dto"
	"github.com/spec-kit/escalation-service/internal/service"
	apperrors "github.com/spec-kit/escalation-service/pkg/util"
)

// SyncHandler triggers and observes reconciliation runs. Runs execute
// in the background; the handler never blocks a request on the pull.
type SyncHandler struct {
	sync   *service.SyncService
	logger *zap.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// NewSyncHandler constructs handler.
func NewSyncHandler(syncService *service.SyncService, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{sync: syncService, logger: logger}
}

// Run POST /sync/run.
func (h *SyncHandler) Run(c *fiber.Ctx) error {
	var req dto.RunSyncRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	var mode service.SyncMode
	switch req.Mode {
	case string(service.SyncShallow), "":
		mode = service.SyncShallow
	case string(service.SyncDeep):
		mode = service.SyncDeep
	default:
		return apperrors.NewValidationError("mode must be shallow or deep", map[string]any{"mode": req.Mode})
	}

	// Check-and-start happens under one lock so two concurrent
	// requests cannot both launch a run.
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return apperrors.NewConflict("a sync run is already in progress", nil)
	}
	ctx, cancel := context.WithCancel(context.Background())
	h.running = true
	h.cancel = cancel
	h.mu.Unlock()

	go func() {
		defer func() {
			cancel()
			h.mu.Lock()
			h.running = false
			h.mu.Unlock()
		}()
		if _, err := h.sync.Run(ctx, mode); err != nil {
			h.logger.Warn("background sync run ended with error", zap.Error(err))
		}
	}()

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"data": fiber.Map{"mode": mode}})
}

// Status GET /sync/status.
func (h *SyncHandler) Status(c *fiber.Ctx) error {
	report, running := h.sync.Status()
	if report == nil {
		return c.JSON(fiber.Map{"data": fiber.Map{"running": false}})
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"running": running, "report": report}})
}

// Cancel POST /sync/cancel.
func (h *SyncHandler) Cancel(c *fiber.Ctx) error {
	h.mu.Lock()
	cancel := h.cancel
	h.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"cancelled": true}})
}
