package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bsic-bank/dataquality-service/internal/automation"
	"github.com/bsic-bank/dataquality-service/internal/config"
	"github.com/bsic-bank/dataquality-service/internal/domain"
	"github.com/bsic-bank/dataquality-service/internal/events"
)

// AutomationService bridges validated tickets and the CBS reconciliation
// phase. It fires the RPA job when a ticket enters VALIDATED and consumes
// the completion callback to advance or flag the ticket.
type AutomationService struct {
	tickets        *TicketService
	reconciliation *ReconciliationService
	trigger        automation.Trigger
	dispatcher     events.Dispatcher
	logger         *zap.Logger
	systemUserID   string
}

// NewAutomationService constructs the service.
func NewAutomationService(tickets *TicketService, reconciliation *ReconciliationService, trigger automation.Trigger, dispatcher events.Dispatcher, cfg config.AutomationConfig, logger *zap.Logger) *AutomationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AutomationService{
		tickets:        tickets,
		reconciliation: reconciliation,
		trigger:        trigger,
		dispatcher:     dispatcher,
		logger:         logger,
		systemUserID:   cfg.SystemUserID,
	}
}

// RegisterHandlers subscribes to status-change events.
func (s *AutomationService) RegisterHandlers() {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Subscribe(events.EventTicketStatusChanged, s.handleStatusChanged)
}

func (s *AutomationService) handleStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok || payload.NewStatus != domain.TicketStatusValidated {
		return nil
	}
	return s.TriggerUpdate(ctx, payload.TicketID)
}

// TriggerUpdate starts the CBS-update job for a validated ticket. The call
// is fire-and-forget: a trigger failure leaves the ticket VALIDATED and
// records an internal comment for manual follow-up.
func (s *AutomationService) TriggerUpdate(ctx context.Context, ticketID int64) error {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return err
	}

	jobID, err := s.trigger.StartJob(ctx, automation.JobRequest{
		TicketID:     ticket.ID,
		TicketNumber: ticket.TicketNumber,
		ClientID:     ticket.ClientID,
		Action:       "UPDATE_CBS",
	})
	if err != nil {
		s.logger.Error("automation trigger failed",
			zap.String("ticket_number", ticket.TicketNumber),
			zap.Error(err))
		s.flagManualIntervention(ctx, ticket.ID, fmt.Sprintf("CBS update could not be triggered: %v. Manual intervention required.", err))
		return err
	}

	s.logger.Info("cbs update triggered",
		zap.String("ticket_number", ticket.TicketNumber),
		zap.String("job_id", jobID))
	return nil
}

// HandleCallback consumes the automation completion callback. Success moves
// the ticket to UPDATED_CBS and opens a pending reconciliation task; failure
// records an internal comment for manual intervention.
func (s *AutomationService) HandleCallback(ctx context.Context, cb automation.Callback) error {
	ticket, err := s.tickets.GetByNumber(ctx, cb.TicketNumber)
	if err != nil {
		return err
	}

	if !cb.Success {
		s.logger.Error("automation job failed",
			zap.String("ticket_number", cb.TicketNumber),
			zap.String("job_id", cb.JobID),
			zap.String("error", cb.ErrorMessage))
		s.flagManualIntervention(ctx, ticket.ID, fmt.Sprintf("CBS automation failed. Error: %s. Manual intervention required.", cb.ErrorMessage))
		return nil
	}

	notes := fmt.Sprintf("CBS updated by automation job %s", cb.JobID)
	if _, err := s.tickets.Transition(ctx, ticket.ID, domain.TicketStatusUpdatedCBS, s.systemUserID, notes); err != nil {
		return err
	}
	if _, err := s.reconciliation.CreateTask(ctx, ticket.TicketNumber, ticket.ClientID); err != nil {
		return err
	}
	return nil
}

func (s *AutomationService) flagManualIntervention(ctx context.Context, ticketID int64, message string) {
	if _, err := s.tickets.AddComment(ctx, ticketID, s.systemUserID, message, true); err != nil {
		s.logger.Error("failed to record manual-intervention comment",
			zap.Int64("ticket_id", ticketID),
			zap.Error(err))
	}
}
