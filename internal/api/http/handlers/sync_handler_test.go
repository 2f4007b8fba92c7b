package handlers

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/escalation-service/internal/repository"
	"github.com/spec-kit/escalation-service/internal/service"
	"github.com/spec-kit/escalation-service/internal/ticketing"
	apperrors "github.com/spec-kit/escalation-service/pkg/util"
)

// blockingClient holds the pull open until release is closed, keeping a
// background sync run in flight for as long as the test needs.
type blockingClient struct {
	release chan struct{}
}

func (c *blockingClient) ListTickets(ctx context.Context, filter ticketing.Filter, progress ticketing.ProgressFunc) ([]ticketing.Ticket, error) {
	select {
	case <-c.release:
	case <-ctx.Done():
	}
	return nil, nil
}

func (c *blockingClient) GetTicket(ctx context.Context, ref string) (*ticketing.Ticket, error) {
	return nil, nil
}

func (c *blockingClient) ListComments(ctx context.Context, ref string) ([]ticketing.Comment, error) {
	return nil, nil
}

func (c *blockingClient) AddComment(ctx context.Context, ref, body string) error { return nil }

func (c *blockingClient) ChangeAssignee(ctx context.Context, ref, assigneeRef string) error {
	return nil
}

func (c *blockingClient) ChangePriority(ctx context.Context, ref string, priority int) error {
	return nil
}

func newSyncTestApp() (*fiber.App, *blockingClient) {
	client := &blockingClient{release: make(chan struct{})}
	activities := repository.NewMemoryActivityRepository()
	store := service.NewProcessStore(service.StoreDependencies{
		ProcessRepo:  repository.NewMemoryProcessRepository(),
		ActivityRepo: activities,
		WorkItemRepo: repository.NewMemoryWorkItemRepository(activities),
		AuditRepo:    repository.NewMemoryAuditRepository(),
	})
	syncService := service.NewSyncService(service.SyncDependencies{
		Client: client,
		Store:  store,
	})
	handler := NewSyncHandler(syncService, zap.NewNop())

	// Map domain errors to HTTP statuses the way the production
	// error-handling middleware does; the bare default handler would
	// turn a ConflictError into a 500.
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"error": fiber.Map{
				"code":    domainErr.Code,
				"message": domainErr.Message,
			}})
		},
	})
	app.Post("/sync/run", handler.Run)
	return app, client
}

func postRun(t *testing.T, app *fiber.App) int {
	t.Helper()
	req := httptest.NewRequest("POST", "/sync/run", strings.NewReader(`{"mode":"shallow"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestRunRejectsSecondLaunchWhileInFlight(t *testing.T) {
	app, client := newSyncTestApp()

	if status := postRun(t, app); status != fiber.StatusAccepted {
		t.Fatalf("first run status = %d, want 202", status)
	}
	if status := postRun(t, app); status != fiber.StatusConflict {
		t.Fatalf("second run status = %d, want 409", status)
	}

	close(client.release)

	// Once the background run drains, a new launch is accepted again.
	deadline := time.Now().Add(2 * time.Second)
	for {
		status := postRun(t, app)
		if status == fiber.StatusAccepted {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("run still rejected after completion, last status %d", status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
