package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/civicdesk/complaints-service/internal/events"
	"github.com/civicdesk/complaints-service/internal/observability"
)

// NotificationService forwards domain events to the message broker.
// Broker failures are logged and counted, never returned to the caller that
// triggered the event.
type NotificationService struct {
	dispatcher events.Dispatcher
	publisher  events.Publisher
	metrics    *observability.Metrics
	logger     *zap.Logger
	once       sync.Once
}

// NewNotificationService creates the service. publisher may be nil, in which
// case events are only logged.
func NewNotificationService(dispatcher events.Dispatcher, publisher events.Publisher, metrics *observability.Metrics, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		publisher:  publisher,
		metrics:    metrics,
		logger:     nopLogger(logger),
	}
}

// RegisterHandlers subscribes to every complaint event. Calling it more than
// once has no further effect.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.once.Do(func() {
		for _, eventType := range events.EventTypes() {
			n.dispatcher.Subscribe(eventType, n.handle)
		}
	})
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	n.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("complaint_id", event.ComplaintID),
		zap.String("actor_id", event.Actor.UserID),
		zap.Any("payload", event.Payload))
	if n.publisher == nil {
		return nil
	}

	err := n.publisher.Publish(ctx, event)
	n.metrics.RecordEventPublished(string(event.Type), err)
	if err != nil {
		n.logger.Warn("broker publish failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
	return nil
}

// Close releases the broker connection.
func (n *NotificationService) Close() error {
	if n.publisher == nil {
		return nil
	}
	return n.publisher.Close()
}
