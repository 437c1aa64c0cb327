package domain

import "time"

// TicketStatus enumerates lifecycle states for data-quality tickets.
type TicketStatus string

const (
	TicketStatusDetected          TicketStatus = "DETECTED"
	TicketStatusAssigned          TicketStatus = "ASSIGNED"
	TicketStatusInProgress        TicketStatus = "IN_PROGRESS"
	TicketStatusPendingValidation TicketStatus = "PENDING_VALIDATION"
	TicketStatusValidated         TicketStatus = "VALIDATED"
	TicketStatusUpdatedCBS        TicketStatus = "UPDATED_CBS"
	TicketStatusClosed            TicketStatus = "CLOSED"
	TicketStatusRejected          TicketStatus = "REJECTED"
)

// IsTerminal reports whether the status has no outgoing transitions.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusClosed || s == TicketStatusRejected
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "LOW"
	TicketPriorityMedium   TicketPriority = "MEDIUM"
	TicketPriorityHigh     TicketPriority = "HIGH"
	TicketPriorityCritical TicketPriority = "CRITICAL"
)

// Ticket is the aggregate tracking one client's data-quality issue through
// correction, validation and CBS reconciliation.
type Ticket struct {
	ID                int64
	TicketNumber      string
	ClientID          string
	ClientName        string
	ClientType        string
	AgencyCode        string
	Status            TicketStatus
	Priority          TicketPriority
	AssignedTo        *string
	AssignedBy        *string
	AssignedAt        *time.Time
	ValidatedBy       *string
	ValidatedAt       *time.Time
	ClosedBy          *string
	ClosedAt          *time.Time
	SLADeadline       time.Time
	SLABreached       bool
	TotalIncidents    int
	ResolvedIncidents int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
