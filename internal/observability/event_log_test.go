package observability

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/escalation-service/internal/events"
)

func TestRegisterEventLoggingCountsByType(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	metrics := NewMetrics()
	RegisterEventLogging(dispatcher, zap.NewNop(), metrics)

	ctx := context.Background()
	publish := func(eventType events.EventType) {
		if err := dispatcher.Publish(ctx, events.Event{
			ID:        "evt-1",
			Type:      eventType,
			Actor:     "system",
			Timestamp: time.Now().UTC(),
		}); err != nil {
			t.Fatalf("publish %s: %v", eventType, err)
		}
	}

	publish(events.EventProcessCreated)
	publish(events.EventProcessCreated)
	publish(events.EventPushFailed)

	if got := metrics.EventCount(string(events.EventProcessCreated)); got != 2 {
		t.Fatalf("process_created count = %d, want 2", got)
	}
	if got := metrics.EventCount(string(events.EventPushFailed)); got != 1 {
		t.Fatalf("push_failed count = %d, want 1", got)
	}
	if got := metrics.EventCount(string(events.EventSyncCompleted)); got != 0 {
		t.Fatalf("sync_completed count = %d, want 0", got)
	}
}
