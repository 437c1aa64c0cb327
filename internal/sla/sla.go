// Package sla computes service-level deadlines from ticket priority.
package sla

import (
	"time"

	"github.com/bsic-bank/dataquality-service/internal/domain"
)

// Resolution offsets per priority. A ticket's deadline is fixed at creation
// and never recomputed.
const (
	offsetCritical = 24 * time.Hour
	offsetHigh     = 72 * time.Hour
	offsetMedium   = 168 * time.Hour
	offsetLow      = 336 * time.Hour
)

// Offset returns the resolution window for a priority. Unknown priorities
// fall back to the LOW window.
func Offset(priority domain.TicketPriority) time.Duration {
	switch priority {
	case domain.TicketPriorityCritical:
		return offsetCritical
	case domain.TicketPriorityHigh:
		return offsetHigh
	case domain.TicketPriorityMedium:
		return offsetMedium
	default:
		return offsetLow
	}
}

// Deadline computes the SLA deadline for a ticket created at createdAt.
func Deadline(createdAt time.Time, priority domain.TicketPriority) time.Time {
	return createdAt.Add(Offset(priority))
}

// Breached reports whether now is past the deadline.
func Breached(now, deadline time.Time) bool {
	return now.After(deadline)
}
