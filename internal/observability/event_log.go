package observability

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/escalation-service/internal/events"
)

// RegisterEventLogging attaches a structured-log consumer to every
// lifecycle event type and counts them per type. This is the audit
// trail operators grep; services publish without knowing about it.
func RegisterEventLogging(dispatcher events.Dispatcher, logger *zap.Logger, metrics *Metrics) {
	types := []events.EventType{
		events.EventProcessCreated,
		events.EventWorkItemCompleted,
		events.EventProcessEscalated,
		events.EventProcessTimedOut,
		events.EventWorkItemReassigned,
		events.EventSyncCompleted,
		events.EventPushFailed,
	}
	for _, eventType := range types {
		dispatcher.Subscribe(eventType, func(ctx context.Context, e events.Event) error {
			metrics.RecordEvent(string(e.Type))
			logger.Info("lifecycle event",
				zap.String("event_id", e.ID),
				zap.String("type", string(e.Type)),
				zap.String("process_id", e.ProcessID),
				zap.String("actor", e.Actor),
				zap.Time("timestamp", e.Timestamp),
				zap.Any("payload", e.Payload))
			return nil
		})
	}
}
