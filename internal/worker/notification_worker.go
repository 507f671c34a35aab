package worker

import (
	"github.com/spec-kit/user-directory/internal/events"
	"github.com/spec-kit/user-directory/internal/service"
)

// StartEventWorkers registers the audit log and the broker forwarder on dispatcher.
// Either subscriber may be nil.
func StartEventWorkers(dispatcher events.Dispatcher, notificationService *service.NotificationService, forwarder *events.Forwarder) {
	if dispatcher == nil {
		return
	}
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	forwarder.Register(dispatcher)
}
