package domain

import "time"

// TicketComment is a free-text note attached to a ticket. Internal comments
// are visible to back-office users only.
type TicketComment struct {
	ID         int64
	TicketID   int64
	UserID     string
	Comment    string
	IsInternal bool
	CreatedAt  time.Time
}
