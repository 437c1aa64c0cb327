package domain

import "time"

// History action labels.
const (
	HistoryActionTicketCreated  = "TICKET_CREATED"
	HistoryActionTicketAssigned = "TICKET_ASSIGNED"
	HistoryActionStatusChanged  = "STATUS_CHANGED"
)

// TicketHistory is an immutable audit trail entry. One row is appended per
// ticket mutation and rows are never updated or deleted.
type TicketHistory struct {
	ID             string
	TicketID       int64
	Action         string
	PreviousStatus *TicketStatus
	NewStatus      TicketStatus
	PreviousValue  *string
	NewValue       *string
	Notes          *string
	PerformedBy    *string
	Timestamp      time.Time
}
