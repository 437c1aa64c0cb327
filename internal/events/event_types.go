package events

import (
	"time"

	"github.com/bsic-bank/dataquality-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated           EventType = "ticket_created"
	EventTicketAssigned          EventType = "ticket_assigned"
	EventTicketStatusChanged     EventType = "ticket_status_changed"
	EventTicketCommentAdded      EventType = "ticket_comment_added"
	EventTicketSLABreached       EventType = "ticket_sla_breached"
	EventReconciliationCompleted EventType = "reconciliation_completed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID           string      `json:"id"`
	Type         EventType   `json:"type"`
	TicketNumber string      `json:"ticket_number"`
	ActorID      string      `json:"actor_id,omitempty"`
	Timestamp    time.Time   `json:"timestamp"`
	Payload      interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketID   int64                 `json:"ticket_id"`
	ClientID   string                `json:"client_id"`
	AgencyCode string                `json:"agency_code"`
	Priority   domain.TicketPriority `json:"priority"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	TicketID   int64  `json:"ticket_id"`
	AssignedTo string `json:"assigned_to"`
	AssignedBy string `json:"assigned_by"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	TicketID  int64               `json:"ticket_id"`
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Notes     string              `json:"notes,omitempty"`
}

// TicketCommentAddedPayload payload.
type TicketCommentAddedPayload struct {
	TicketID   int64 `json:"ticket_id"`
	CommentID  int64 `json:"comment_id"`
	IsInternal bool  `json:"is_internal"`
}

// TicketSLABreachedPayload payload.
type TicketSLABreachedPayload struct {
	TicketID    int64     `json:"ticket_id"`
	SLADeadline time.Time `json:"sla_deadline"`
}

// ReconciliationCompletedPayload payload.
type ReconciliationCompletedPayload struct {
	TaskID        string            `json:"task_id"`
	Status        domain.TaskStatus `json:"status"`
	MatchedFields int               `json:"matched_fields"`
	TotalFields   int               `json:"total_fields"`
}
