package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/civicdesk/complaints-service/internal/service"
)

// StartNotificationWorker registers notification handlers and closes the
// broker connection once ctx is done.
func StartNotificationWorker(ctx context.Context, notificationService *service.NotificationService, logger *zap.Logger) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()

	go func() {
		<-ctx.Done()
		if err := notificationService.Close(); err != nil && logger != nil {
			logger.Warn("close notification publisher", zap.Error(err))
		}
	}()
}
