package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/bsic-bank/dataquality-service/internal/events"
)

// NotificationService emits notifications for domain events. Delivery is a
// logging stub; the hosting platform scrapes these entries.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.logEvent("TicketCreated"))
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.logEvent("TicketAssigned"))
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.logEvent("TicketStatusChanged"))
	n.dispatcher.Subscribe(events.EventTicketSLABreached, n.logEvent("TicketSLABreached"))
	n.dispatcher.Subscribe(events.EventReconciliationCompleted, n.logEvent("ReconciliationCompleted"))
}

func (n *NotificationService) logEvent(name string) events.EventHandler {
	return func(ctx context.Context, event events.Event) error {
		n.logger.Info(name,
			zap.String("ticket_number", event.TicketNumber),
			zap.Any("payload", event.Payload))
		return nil
	}
}
