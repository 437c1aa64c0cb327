package dto

import (
	"time"

	"github.com/bsic-bank/dataquality-service/internal/domain"
	"github.com/bsic-bank/dataquality-service/internal/service"
)

// CreateTaskRequest registers a reconciliation task for a ticket.
type CreateTaskRequest struct {
	TicketNumber string `json:"ticket_number"`
	ClientID     string `json:"client_id"`
}

// CorrectionRequest is one proposed field change.
type CorrectionRequest struct {
	FieldName  string `json:"field_name"`
	FieldLabel string `json:"field_label,omitempty"`
	OldValue   string `json:"old_value"`
	NewValue   string `json:"new_value"`
}

// ProposeCorrectionsRequest records the field changes to verify later.
type ProposeCorrectionsRequest struct {
	Corrections []CorrectionRequest `json:"corrections"`
}

// ReconcileAllRequest scopes a bulk reconciliation run.
type ReconcileAllRequest struct {
	AgencyCode *string `json:"agency_code,omitempty"`
	MaxTasks   int     `json:"max_tasks,omitempty"`
}

// TaskResponse is the API view of a reconciliation task.
type TaskResponse struct {
	ID            string               `json:"id"`
	TicketNumber  string               `json:"ticket_number"`
	ClientID      string               `json:"client_id"`
	ClientName    string               `json:"client_name,omitempty"`
	AgencyCode    string               `json:"agency_code,omitempty"`
	Status        string               `json:"status"`
	Attempts      int                  `json:"attempts"`
	LastAttemptAt *time.Time           `json:"last_attempt_at,omitempty"`
	ReconciledAt  *time.Time           `json:"reconciled_at,omitempty"`
	ErrorMessage  *string              `json:"error_message,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	Corrections   []CorrectionResponse `json:"corrections,omitempty"`
}

// CorrectionResponse is one correction with its latest verdict.
type CorrectionResponse struct {
	FieldName     string     `json:"field_name"`
	FieldLabel    string     `json:"field_label"`
	OldValue      string     `json:"old_value"`
	NewValue      string     `json:"new_value"`
	CBSValue      *string    `json:"cbs_value,omitempty"`
	Matched       *bool      `json:"matched,omitempty"`
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty"`
}

// ReconcileResultResponse reports one reconciliation attempt.
type ReconcileResultResponse struct {
	TaskID        string                `json:"task_id"`
	Status        string                `json:"status"`
	MatchedFields int                   `json:"matched_fields"`
	TotalFields   int                   `json:"total_fields"`
	Discrepancies []DiscrepancyResponse `json:"discrepancies"`
	CheckedAt     time.Time             `json:"checked_at"`
}

// DiscrepancyResponse is one mismatched field.
type DiscrepancyResponse struct {
	Field      string `json:"field"`
	FieldLabel string `json:"field_label"`
	Expected   string `json:"expected"`
	Actual     string `json:"actual"`
	Severity   string `json:"severity"`
}

// BatchResultResponse aggregates a bulk run.
type BatchResultResponse struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
	Total   int `json:"total"`
}

// StatsResponse summarizes the reconciliation backlog.
type StatsResponse struct {
	TotalPending    int            `json:"total_pending"`
	ReconciledToday int            `json:"reconciled_today"`
	FailedToday     int            `json:"failed_today"`
	SuccessRate     float64        `json:"success_rate"`
	ByStatus        map[string]int `json:"by_status"`
}

// FromTask maps a bare task.
func FromTask(t *domain.ReconciliationTask) TaskResponse {
	return TaskResponse{
		ID:            t.ID,
		TicketNumber:  t.TicketNumber,
		ClientID:      t.ClientID,
		ClientName:    t.ClientName,
		AgencyCode:    t.AgencyCode,
		Status:        string(t.Status),
		Attempts:      t.Attempts,
		LastAttemptAt: t.LastAttemptAt,
		ReconciledAt:  t.ReconciledAt,
		ErrorMessage:  t.ErrorMessage,
		CreatedAt:     t.CreatedAt,
	}
}

// FromTaskViews maps tasks with their corrections.
func FromTaskViews(views []service.TaskView) []TaskResponse {
	out := make([]TaskResponse, len(views))
	for i, v := range views {
		resp := FromTask(&v.Task)
		resp.Corrections = FromCorrections(v.Corrections)
		out[i] = resp
	}
	return out
}

// FromCorrections maps corrections with verdicts.
func FromCorrections(corrections []domain.Correction) []CorrectionResponse {
	out := make([]CorrectionResponse, len(corrections))
	for i, c := range corrections {
		out[i] = CorrectionResponse{
			FieldName:     c.FieldName,
			FieldLabel:    c.FieldLabel,
			OldValue:      c.OldValue,
			NewValue:      c.NewValue,
			CBSValue:      c.CBSValue,
			Matched:       c.Matched,
			LastCheckedAt: c.LastCheckedAt,
		}
	}
	return out
}

// FromReconcileResult maps an attempt result.
func FromReconcileResult(r *service.ReconcileResult) ReconcileResultResponse {
	discrepancies := make([]DiscrepancyResponse, len(r.Discrepancies))
	for i, d := range r.Discrepancies {
		discrepancies[i] = DiscrepancyResponse{
			Field:      d.Field,
			FieldLabel: d.FieldLabel,
			Expected:   d.Expected,
			Actual:     d.Actual,
			Severity:   string(d.Severity),
		}
	}
	return ReconcileResultResponse{
		TaskID:        r.TaskID,
		Status:        string(r.Status),
		MatchedFields: r.MatchedFields,
		TotalFields:   r.TotalFields,
		Discrepancies: discrepancies,
		CheckedAt:     r.CheckedAt,
	}
}

// FromStats maps backlog stats.
func FromStats(s *domain.ReconciliationStats) StatsResponse {
	byStatus := make(map[string]int, len(s.ByStatus))
	for status, count := range s.ByStatus {
		byStatus[string(status)] = count
	}
	return StatsResponse{
		TotalPending:    s.TotalPending,
		ReconciledToday: s.ReconciledToday,
		FailedToday:     s.FailedToday,
		SuccessRate:     s.SuccessRate,
		ByStatus:        byStatus,
	}
}

// ToCorrectionInputs maps correction requests to service inputs.
func ToCorrectionInputs(reqs []CorrectionRequest) []service.CorrectionInput {
	out := make([]service.CorrectionInput, len(reqs))
	for i, r := range reqs {
		out[i] = service.CorrectionInput{
			FieldName:  r.FieldName,
			FieldLabel: r.FieldLabel,
			OldValue:   r.OldValue,
			NewValue:   r.NewValue,
		}
	}
	return out
}
