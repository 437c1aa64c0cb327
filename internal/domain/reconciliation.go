package domain

import "time"

// TaskStatus enumerates reconciliation task outcomes.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusReconciled TaskStatus = "reconciled"
	TaskStatusPartial    TaskStatus = "partial"
	TaskStatusFailed     TaskStatus = "failed"
)

// ReconciliationTask verifies that the corrections proposed on a ticket were
// actually written into the core banking system. Tasks are historical records
// and are never deleted.
type ReconciliationTask struct {
	ID            string
	TicketNumber  string
	ClientID      string
	ClientName    string
	AgencyCode    string
	Status        TaskStatus
	Attempts      int
	LastAttemptAt *time.Time
	ReconciledAt  *time.Time
	ErrorMessage  *string
	CreatedAt     time.Time
}

// Correction is one proposed field-level change on a ticket. Matched and
// CBSValue reflect only the most recent reconciliation attempt.
type Correction struct {
	ID            int64
	TicketNumber  string
	FieldName     string
	FieldLabel    string
	OldValue      string
	NewValue      string
	CBSValue      *string
	Matched       *bool
	LastCheckedAt *time.Time
}

// ReconciliationStats summarizes the task backlog for an agency or globally.
type ReconciliationStats struct {
	TotalPending    int
	ReconciledToday int
	FailedToday     int
	SuccessRate     float64
	ByStatus        map[TaskStatus]int
}
