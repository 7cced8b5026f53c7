package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/grocery-service/internal/service"
)

// StartNotificationWorker binds the notification handlers to the event
// stream: order placement/transition/cancellation, request submission and
// review, and account lockouts.
func StartNotificationWorker(notifications *service.NotificationService, logger *zap.Logger) {
	if notifications == nil {
		return
	}
	notifications.RegisterHandlers()
	if logger != nil {
		logger.Info("notification worker listening for order, request and lockout events")
	}
}
