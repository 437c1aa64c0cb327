package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/bsic-bank/dataquality-service/internal/clock"
	"github.com/bsic-bank/dataquality-service/internal/domain"
	"github.com/bsic-bank/dataquality-service/internal/events"
	"github.com/bsic-bank/dataquality-service/internal/repository"
	"github.com/bsic-bank/dataquality-service/internal/sla"
	apperrors "github.com/bsic-bank/dataquality-service/pkg/util"
)

// TicketService owns the ticket lifecycle state machine.
type TicketService struct {
	tickets  repository.TicketRepository
	history  repository.TicketHistoryRepository
	comments repository.TicketCommentRepository
	clients  repository.ClientRepository
	users    repository.UserRepository
	sequence repository.SequenceRepository
	clock    clock.Clock
	logger   *zap.Logger

	dispatcher events.Dispatcher
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.TicketHistoryRepository
	CommentRepo repository.TicketCommentRepository
	ClientRepo  repository.ClientRepository
	UserRepo    repository.UserRepository
	Sequence    repository.SequenceRepository
	Clock       clock.Clock
	Logger      *zap.Logger
	Dispatcher  events.Dispatcher
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	ClientID   string
	AgencyCode string
	Priority   domain.TicketPriority
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	svc := &TicketService{
		tickets:    deps.TicketRepo,
		history:    deps.HistoryRepo,
		comments:   deps.CommentRepo,
		clients:    deps.ClientRepo,
		users:      deps.UserRepo,
		sequence:   deps.Sequence,
		clock:      deps.Clock,
		logger:     deps.Logger,
		dispatcher: deps.Dispatcher,
	}
	if svc.clock == nil {
		svc.clock = clock.System()
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

// allowedTransitions is the lifecycle table. CLOSED and REJECTED are
// terminal.
var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusDetected:          {domain.TicketStatusAssigned},
	domain.TicketStatusAssigned:          {domain.TicketStatusInProgress, domain.TicketStatusRejected},
	domain.TicketStatusInProgress:        {domain.TicketStatusPendingValidation, domain.TicketStatusRejected},
	domain.TicketStatusPendingValidation: {domain.TicketStatusValidated, domain.TicketStatusInProgress, domain.TicketStatusRejected},
	domain.TicketStatusValidated:         {domain.TicketStatusUpdatedCBS},
	domain.TicketStatusUpdatedCBS:        {domain.TicketStatusClosed},
	domain.TicketStatusClosed:            {},
	domain.TicketStatusRejected:          {},
}

// AllowedTransitions returns the valid targets from a status.
func AllowedTransitions(from domain.TicketStatus) []domain.TicketStatus {
	return allowedTransitions[from]
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Create opens a ticket in DETECTED for a client reference. The client name
// and type are snapshotted and the SLA deadline is fixed from the priority;
// neither is recomputed later.
func (s *TicketService) Create(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	client, err := s.clients.GetByID(ctx, input.ClientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("client", map[string]any{"client_id": input.ClientID})
		}
		return nil, apperrors.MapError(err)
	}

	now := s.clock.Now()

	ticketNumber, err := s.nextTicketNumber(ctx, now)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	agencyCode := input.AgencyCode
	if agencyCode == "" {
		agencyCode = client.AgencyCode
	}

	ticket := &domain.Ticket{
		TicketNumber: ticketNumber,
		ClientID:     client.ID,
		ClientName:   client.DisplayName(),
		ClientType:   client.ClientType,
		AgencyCode:   agencyCode,
		Status:       domain.TicketStatusDetected,
		Priority:     priority,
		SLADeadline:  sla.Deadline(now, priority),
	}

	entry := s.newHistory(ticket, domain.HistoryActionTicketCreated, nil, domain.TicketStatusDetected, nil, nil, now)
	if err := s.tickets.Create(ctx, ticket, entry); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("ticket created",
		zap.String("ticket_number", ticket.TicketNumber),
		zap.String("client_id", ticket.ClientID),
		zap.String("priority", string(ticket.Priority)))

	s.publish(ctx, events.Event{
		Type:         events.EventTicketCreated,
		TicketNumber: ticket.TicketNumber,
		Payload: events.TicketCreatedPayload{
			TicketID:   ticket.ID,
			ClientID:   ticket.ClientID,
			AgencyCode: ticket.AgencyCode,
			Priority:   ticket.Priority,
		},
	})
	return ticket, nil
}

// Assign sets the assignment fields and forces the status to ASSIGNED.
// Assignment is a side-channel action and is deliberately not checked
// against the transition table.
func (s *TicketService) Assign(ctx context.Context, ticketID int64, assigneeID, assignerID string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	assignee, err := s.getUser(ctx, assigneeID)
	if err != nil {
		return nil, err
	}
	if _, err := s.getUser(ctx, assignerID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	previousStatus := ticket.Status

	ticket.Status = domain.TicketStatusAssigned
	ticket.AssignedTo = &assigneeID
	ticket.AssignedBy = &assignerID
	ticket.AssignedAt = &now

	notes := "Assigned to: " + assignee.FullName
	entry := s.newHistory(ticket, domain.HistoryActionTicketAssigned, &previousStatus, domain.TicketStatusAssigned, &assignerID, &notes, now)
	if err := s.tickets.UpdateAssignment(ctx, ticket, entry); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("ticket assigned",
		zap.String("ticket_number", ticket.TicketNumber),
		zap.String("assigned_to", assigneeID))

	s.publish(ctx, events.Event{
		Type:         events.EventTicketAssigned,
		TicketNumber: ticket.TicketNumber,
		ActorID:      assignerID,
		Payload: events.TicketAssignedPayload{
			TicketID:   ticket.ID,
			AssignedTo: assigneeID,
			AssignedBy: assignerID,
		},
	})
	return ticket, nil
}

// Transition moves a ticket to newStatus if the lifecycle table allows it.
// VALIDATED stamps the validator, CLOSED and REJECTED stamp the closer. The
// status update and its history row commit atomically; a concurrent
// transition from the same state surfaces as a conflict the caller should
// retry from a fresh read.
func (s *TicketService) Transition(ctx context.Context, ticketID int64, newStatus domain.TicketStatus, actorID string, notes string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	actor, err := s.getUser(ctx, actorID)
	if err != nil {
		return nil, err
	}

	previousStatus := ticket.Status
	if !isValidTransition(previousStatus, newStatus) {
		return nil, apperrors.NewInvalidTransition(string(previousStatus), string(newStatus), statusNames(allowedTransitions[previousStatus]))
	}

	now := s.clock.Now()
	ticket.Status = newStatus
	switch {
	case newStatus == domain.TicketStatusValidated:
		ticket.ValidatedBy = &actor.ID
		ticket.ValidatedAt = &now
	case newStatus.IsTerminal():
		ticket.ClosedBy = &actor.ID
		ticket.ClosedAt = &now
	}

	var notesPtr *string
	if strings.TrimSpace(notes) != "" {
		notesPtr = &notes
	}
	entry := s.newHistory(ticket, domain.HistoryActionStatusChanged, &previousStatus, newStatus, &actor.ID, notesPtr, now)
	if err := s.tickets.TransitionStatus(ctx, ticket, previousStatus, entry); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, apperrors.NewConcurrencyConflict("ticket", map[string]any{
				"ticket_id":       ticket.ID,
				"expected_status": previousStatus,
			})
		}
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("ticket status changed",
		zap.String("ticket_number", ticket.TicketNumber),
		zap.String("from", string(previousStatus)),
		zap.String("to", string(newStatus)))

	s.publish(ctx, events.Event{
		Type:         events.EventTicketStatusChanged,
		TicketNumber: ticket.TicketNumber,
		ActorID:      actorID,
		Payload: events.TicketStatusChangedPayload{
			TicketID:  ticket.ID,
			OldStatus: previousStatus,
			NewStatus: newStatus,
			Notes:     notes,
		},
	})
	return ticket, nil
}

// AddComment appends a comment to a ticket.
func (s *TicketService) AddComment(ctx context.Context, ticketID int64, userID, text string, isInternal bool) (*domain.TicketComment, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if _, err := s.getUser(ctx, userID); err != nil {
		return nil, err
	}

	comment := &domain.TicketComment{
		TicketID:   ticket.ID,
		UserID:     userID,
		Comment:    strings.TrimSpace(text),
		IsInternal: isInternal,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:         events.EventTicketCommentAdded,
		TicketNumber: ticket.TicketNumber,
		ActorID:      userID,
		Payload: events.TicketCommentAddedPayload{
			TicketID:   ticket.ID,
			CommentID:  comment.ID,
			IsInternal: comment.IsInternal,
		},
	})
	return comment, nil
}

// GetByID fetches a ticket.
func (s *TicketService) GetByID(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	return s.getTicket(ctx, ticketID)
}

// GetByNumber fetches a ticket by its public number.
func (s *TicketService) GetByNumber(ctx context.Context, ticketNumber string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByNumber(ctx, ticketNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_number": ticketNumber})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// List returns tickets matching the filter.
func (s *TicketService) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// GetHistory returns the audit trail for a ticket.
func (s *TicketService) GetHistory(ctx context.Context, ticketID int64) ([]domain.TicketHistory, error) {
	if _, err := s.getTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	entries, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// GetComments returns the comments on a ticket.
func (s *TicketService) GetComments(ctx context.Context, ticketID int64) ([]domain.TicketComment, error) {
	if _, err := s.getTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return comments, nil
}

// CheckSLABreaches flips the breach flag on every open ticket past its
// deadline. The flag only moves false to true, so the sweep is idempotent.
// Returns the number of tickets newly flagged.
func (s *TicketService) CheckSLABreaches(ctx context.Context) (int, error) {
	now := s.clock.Now()
	overdue, err := s.tickets.ListOverdue(ctx, now)
	if err != nil {
		return 0, apperrors.MapError(err)
	}

	flagged := 0
	for _, ticket := range overdue {
		flipped, err := s.tickets.MarkSLABreached(ctx, ticket.ID)
		if err != nil {
			return flagged, apperrors.MapError(err)
		}
		if !flipped {
			continue
		}
		flagged++
		s.logger.Warn("sla breached",
			zap.String("ticket_number", ticket.TicketNumber),
			zap.Time("deadline", ticket.SLADeadline))
		s.publish(ctx, events.Event{
			Type:         events.EventTicketSLABreached,
			TicketNumber: ticket.TicketNumber,
			Payload: events.TicketSLABreachedPayload{
				TicketID:    ticket.ID,
				SLADeadline: ticket.SLADeadline,
			},
		})
	}
	return flagged, nil
}

func (s *TicketService) getTicket(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) getUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": userID})
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// nextTicketNumber renders <yyyymmdd><6-digit-sequence> from the daily
// counter.
func (s *TicketService) nextTicketNumber(ctx context.Context, now time.Time) (string, error) {
	seq, err := s.sequence.NextTicketSequence(ctx, now)
	if err != nil {
		return "", fmt.Errorf("ticket sequence: %w", err)
	}
	return fmt.Sprintf("%s%06d", now.Format("20060102"), seq), nil
}

func (s *TicketService) newHistory(ticket *domain.Ticket, action string, previous *domain.TicketStatus, next domain.TicketStatus, actorID, notes *string, at time.Time) *domain.TicketHistory {
	return &domain.TicketHistory{
		ID:             uuid.NewString(),
		TicketID:       ticket.ID,
		Action:         action,
		PreviousStatus: previous,
		NewStatus:      next,
		Notes:          notes,
		PerformedBy:    actorID,
		Timestamp:      at,
	}
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func statusNames(statuses []domain.TicketStatus) []string {
	names := make([]string, len(statuses))
	for i, status := range statuses {
		names[i] = string(status)
	}
	return names
}
