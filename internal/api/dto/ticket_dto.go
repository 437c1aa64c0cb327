// Package dto holds the JSON request and response shapes for the HTTP API.
package dto

import (
	"time"

	"github.com/bsic-bank/dataquality-service/internal/domain"
)

// CreateTicketRequest opens a ticket for a client reference.
type CreateTicketRequest struct {
	ClientID   string `json:"client_id"`
	AgencyCode string `json:"agency_code,omitempty"`
	Priority   string `json:"priority,omitempty"`
}

// AssignTicketRequest assigns a ticket to an agent.
type AssignTicketRequest struct {
	AssigneeID string `json:"assignee_id"`
}

// TransitionTicketRequest moves a ticket to a new lifecycle status.
type TransitionTicketRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

// AddCommentRequest appends a comment.
type AddCommentRequest struct {
	Comment    string `json:"comment"`
	IsInternal bool   `json:"is_internal,omitempty"`
}

// TicketResponse is the API view of a ticket.
type TicketResponse struct {
	ID           int64      `json:"id"`
	TicketNumber string     `json:"ticket_number"`
	ClientID     string     `json:"client_id"`
	ClientName   string     `json:"client_name"`
	ClientType   string     `json:"client_type"`
	AgencyCode   string     `json:"agency_code"`
	Status       string     `json:"status"`
	Priority     string     `json:"priority"`
	AssignedTo   *string    `json:"assigned_to,omitempty"`
	AssignedBy   *string    `json:"assigned_by,omitempty"`
	AssignedAt   *time.Time `json:"assigned_at,omitempty"`
	ValidatedBy  *string    `json:"validated_by,omitempty"`
	ValidatedAt  *time.Time `json:"validated_at,omitempty"`
	ClosedBy     *string    `json:"closed_by,omitempty"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
	SLADeadline  time.Time  `json:"sla_deadline"`
	SLABreached  bool       `json:"sla_breached"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// HistoryEntryResponse is one audit trail row.
type HistoryEntryResponse struct {
	ID             string    `json:"id"`
	Action         string    `json:"action"`
	PreviousStatus *string   `json:"previous_status,omitempty"`
	NewStatus      string    `json:"new_status"`
	Notes          *string   `json:"notes,omitempty"`
	PerformedBy    *string   `json:"performed_by,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// CommentResponse is one ticket comment.
type CommentResponse struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"user_id"`
	Comment    string    `json:"comment"`
	IsInternal bool      `json:"is_internal"`
	CreatedAt  time.Time `json:"created_at"`
}

// FromTicket maps a domain ticket to its API shape.
func FromTicket(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:           t.ID,
		TicketNumber: t.TicketNumber,
		ClientID:     t.ClientID,
		ClientName:   t.ClientName,
		ClientType:   t.ClientType,
		AgencyCode:   t.AgencyCode,
		Status:       string(t.Status),
		Priority:     string(t.Priority),
		AssignedTo:   t.AssignedTo,
		AssignedBy:   t.AssignedBy,
		AssignedAt:   t.AssignedAt,
		ValidatedBy:  t.ValidatedBy,
		ValidatedAt:  t.ValidatedAt,
		ClosedBy:     t.ClosedBy,
		ClosedAt:     t.ClosedAt,
		SLADeadline:  t.SLADeadline,
		SLABreached:  t.SLABreached,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

// FromTickets maps a ticket slice.
func FromTickets(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, len(tickets))
	for i := range tickets {
		out[i] = FromTicket(&tickets[i])
	}
	return out
}

// FromHistory maps audit entries.
func FromHistory(entries []domain.TicketHistory) []HistoryEntryResponse {
	out := make([]HistoryEntryResponse, len(entries))
	for i, e := range entries {
		var previous *string
		if e.PreviousStatus != nil {
			s := string(*e.PreviousStatus)
			previous = &s
		}
		out[i] = HistoryEntryResponse{
			ID:             e.ID,
			Action:         e.Action,
			PreviousStatus: previous,
			NewStatus:      string(e.NewStatus),
			Notes:          e.Notes,
			PerformedBy:    e.PerformedBy,
			Timestamp:      e.Timestamp,
		}
	}
	return out
}

// FromComments maps ticket comments.
func FromComments(comments []domain.TicketComment) []CommentResponse {
	out := make([]CommentResponse, len(comments))
	for i, c := range comments {
		out[i] = CommentResponse{
			ID:         c.ID,
			UserID:     c.UserID,
			Comment:    c.Comment,
			IsInternal: c.IsInternal,
			CreatedAt:  c.CreatedAt,
		}
	}
	return out
}
