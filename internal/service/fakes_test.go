package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bsic-bank/dataquality-service/internal/automation"
	"github.com/bsic-bank/dataquality-service/internal/cbs"
	"github.com/bsic-bank/dataquality-service/internal/domain"
	"github.com/bsic-bank/dataquality-service/internal/repository"
)

// In-memory repository implementations backing the service tests.

type memTicketRepo struct {
	mu      sync.Mutex
	nextID  int64
	tickets map[int64]*domain.Ticket
	history []domain.TicketHistory
}

func newMemTicketRepo() *memTicketRepo {
	return &memTicketRepo{tickets: make(map[int64]*domain.Ticket)}
}

func (r *memTicketRepo) Create(_ context.Context, ticket *domain.Ticket, entry *domain.TicketHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	ticket.ID = r.nextID
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = entry.Timestamp
	}
	ticket.UpdatedAt = entry.Timestamp
	stored := *ticket
	r.tickets[ticket.ID] = &stored
	entry.TicketID = ticket.ID
	r.history = append(r.history, *entry)
	return nil
}

func (r *memTicketRepo) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *stored
	return &out, nil
}

func (r *memTicketRepo) GetByNumber(_ context.Context, ticketNumber string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.tickets {
		if stored.TicketNumber == ticketNumber {
			out := *stored
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for _, stored := range r.tickets {
		if filter.AgencyCode != nil && stored.AgencyCode != *filter.AgencyCode {
			continue
		}
		if filter.ClientID != nil && stored.ClientID != *filter.ClientID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, stored.Status) {
			continue
		}
		out = append(out, *stored)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memTicketRepo) ListOverdue(_ context.Context, now time.Time) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for _, stored := range r.tickets {
		if stored.SLABreached || stored.Status.IsTerminal() {
			continue
		}
		if now.After(stored.SLADeadline) {
			out = append(out, *stored)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memTicketRepo) ListCreatedBetween(_ context.Context, from, to time.Time) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for _, stored := range r.tickets {
		if stored.CreatedAt.Before(from) || !stored.CreatedAt.Before(to) {
			continue
		}
		out = append(out, *stored)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memTicketRepo) UpdateAssignment(_ context.Context, ticket *domain.Ticket, entry *domain.TicketHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = entry.Timestamp
	stored := *ticket
	r.tickets[ticket.ID] = &stored
	r.history = append(r.history, *entry)
	return nil
}

func (r *memTicketRepo) TransitionStatus(_ context.Context, ticket *domain.Ticket, from domain.TicketStatus, entry *domain.TicketHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if stored.Status != from {
		return repository.ErrStatusConflict
	}
	ticket.UpdatedAt = entry.Timestamp
	next := *ticket
	r.tickets[ticket.ID] = &next
	r.history = append(r.history, *entry)
	return nil
}

func (r *memTicketRepo) MarkSLABreached(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[id]
	if !ok {
		return false, pgx.ErrNoRows
	}
	if stored.SLABreached {
		return false, nil
	}
	stored.SLABreached = true
	return true, nil
}

func (r *memTicketRepo) historyFor(ticketID int64) []domain.TicketHistory {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TicketHistory
	for _, entry := range r.history {
		if entry.TicketID == ticketID {
			out = append(out, entry)
		}
	}
	return out
}

func containsStatus(statuses []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

type memHistoryRepo struct {
	tickets *memTicketRepo
}

func (r *memHistoryRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.TicketHistory, error) {
	// Newest first, matching the SQL ordering.
	entries := r.tickets.historyFor(ticketID)
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

type memCommentRepo struct {
	mu       sync.Mutex
	nextID   int64
	comments []domain.TicketComment
}

func (r *memCommentRepo) Create(_ context.Context, comment *domain.TicketComment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	comment.ID = r.nextID
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now()
	}
	r.comments = append(r.comments, *comment)
	return nil
}

func (r *memCommentRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.TicketComment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TicketComment
	for _, c := range r.comments {
		if c.TicketID == ticketID {
			out = append(out, c)
		}
	}
	return out, nil
}

type memClientRepo struct {
	clients map[string]domain.Client
}

func (r *memClientRepo) GetByID(_ context.Context, id string) (*domain.Client, error) {
	client, ok := r.clients[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &client, nil
}

type memUserRepo struct {
	users map[string]domain.User
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

type memSequenceRepo struct {
	mu       sync.Mutex
	counters map[string]int64
}

func newMemSequenceRepo() *memSequenceRepo {
	return &memSequenceRepo{counters: make(map[string]int64)}
}

func (r *memSequenceRepo) NextTicketSequence(_ context.Context, day time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := day.Format("20060102")
	r.counters[key]++
	return r.counters[key], nil
}

type memReconciliationRepo struct {
	mu          sync.Mutex
	tasks       map[string]*domain.ReconciliationTask
	corrections map[string][]domain.Correction
	nextID      int64
}

func newMemReconciliationRepo() *memReconciliationRepo {
	return &memReconciliationRepo{
		tasks:       make(map[string]*domain.ReconciliationTask),
		corrections: make(map[string][]domain.Correction),
	}
}

func (r *memReconciliationRepo) CreateTask(_ context.Context, task *domain.ReconciliationTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	stored := *task
	r.tasks[task.ID] = &stored
	return nil
}

func (r *memReconciliationRepo) GetTask(_ context.Context, id string) (*domain.ReconciliationTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tasks[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *stored
	return &out, nil
}

func (r *memReconciliationRepo) ListTasks(_ context.Context, filter repository.TaskFilter) ([]domain.ReconciliationTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ReconciliationTask
	for _, stored := range r.tasks {
		if filter.Status != nil && stored.Status != *filter.Status {
			continue
		}
		if filter.AgencyCode != nil && stored.AgencyCode != *filter.AgencyCode {
			continue
		}
		if filter.ClientID != nil && stored.ClientID != *filter.ClientID {
			continue
		}
		if filter.TicketNumber != nil && stored.TicketNumber != *filter.TicketNumber {
			continue
		}
		out = append(out, *stored)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *memReconciliationRepo) CreateCorrections(_ context.Context, corrections []domain.Correction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range corrections {
		r.nextID++
		c.ID = r.nextID
		existing := r.corrections[c.TicketNumber]
		replaced := false
		for i := range existing {
			if existing[i].FieldName == c.FieldName {
				c.ID = existing[i].ID
				existing[i] = c
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, c)
		}
		r.corrections[c.TicketNumber] = existing
	}
	return nil
}

func (r *memReconciliationRepo) ListCorrections(_ context.Context, ticketNumber string) ([]domain.Correction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Correction, len(r.corrections[ticketNumber]))
	copy(out, r.corrections[ticketNumber])
	return out, nil
}

func (r *memReconciliationRepo) ApplyOutcome(_ context.Context, task *domain.ReconciliationTask, corrections []domain.Correction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[task.ID]; !ok {
		return pgx.ErrNoRows
	}
	stored := *task
	r.tasks[task.ID] = &stored
	existing := r.corrections[task.TicketNumber]
	for _, c := range corrections {
		for i := range existing {
			if existing[i].FieldName == c.FieldName {
				existing[i] = c
			}
		}
	}
	return nil
}

func (r *memReconciliationRepo) Stats(_ context.Context, agencyCode *string, today time.Time) (*domain.ReconciliationStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &domain.ReconciliationStats{ByStatus: make(map[domain.TaskStatus]int)}
	startOfDay := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	attempted := 0
	for _, task := range r.tasks {
		if agencyCode != nil && task.AgencyCode != *agencyCode {
			continue
		}
		stats.ByStatus[task.Status]++
		if task.Status == domain.TaskStatusPending {
			stats.TotalPending++
		}
		if task.LastAttemptAt != nil && !task.LastAttemptAt.Before(startOfDay) {
			attempted++
			switch task.Status {
			case domain.TaskStatusReconciled:
				stats.ReconciledToday++
			case domain.TaskStatusFailed:
				stats.FailedToday++
			}
		}
	}
	if attempted > 0 {
		stats.SuccessRate = float64(stats.ReconciledToday) * 100.0 / float64(attempted)
	}
	return stats, nil
}

type memKpiRepo struct {
	mu   sync.Mutex
	rows map[string]domain.Kpi
}

func newMemKpiRepo() *memKpiRepo {
	return &memKpiRepo{rows: make(map[string]domain.Kpi)}
}

func kpiKey(date time.Time, agencyCode string, kpiType domain.KpiType) string {
	return fmt.Sprintf("%s|%s|%s", date.Format("2006-01-02"), agencyCode, kpiType)
}

func (r *memKpiRepo) Upsert(_ context.Context, kpi *domain.Kpi) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[kpiKey(kpi.PeriodDate, kpi.AgencyCode, kpi.KpiType)] = *kpi
	return nil
}

func (r *memKpiRepo) ListByDate(_ context.Context, date time.Time) ([]domain.Kpi, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Kpi
	for _, row := range r.rows {
		if row.PeriodDate.Equal(date) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *memKpiRepo) ListByAgency(_ context.Context, agencyCode string) ([]domain.Kpi, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Kpi
	for _, row := range r.rows {
		if row.AgencyCode == agencyCode {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *memKpiRepo) ListByAgencyAndRange(_ context.Context, agencyCode string, from, to time.Time) ([]domain.Kpi, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Kpi
	for _, row := range r.rows {
		if row.AgencyCode != agencyCode {
			continue
		}
		if row.PeriodDate.Before(from) || row.PeriodDate.After(to) {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (r *memKpiRepo) get(date time.Time, agencyCode string, kpiType domain.KpiType) (domain.Kpi, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[kpiKey(date, agencyCode, kpiType)]
	return row, ok
}

type memLeaseRepo struct {
	mu   sync.Mutex
	held map[string]bool
}

func newMemLeaseRepo() *memLeaseRepo {
	return &memLeaseRepo{held: make(map[string]bool)}
}

func (r *memLeaseRepo) Acquire(_ context.Context, key string, _ time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.held[key] {
		return false, nil
	}
	r.held[key] = true
	return true, nil
}

func (r *memLeaseRepo) Release(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.held, key)
	return nil
}

// fakeReader serves canned CBS records.
type fakeReader struct {
	records map[string]cbs.Record
	err     error
}

func (f *fakeReader) GetClient(_ context.Context, clientID string) (cbs.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	record, ok := f.records[clientID]
	if !ok {
		return nil, cbs.ErrClientNotFound
	}
	return record, nil
}

// fakeTrigger records started jobs.
type fakeTrigger struct {
	mu    sync.Mutex
	jobs  []automation.JobRequest
	jobID string
	err   error
}

func (f *fakeTrigger) StartJob(_ context.Context, req automation.JobRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.jobs = append(f.jobs, req)
	if f.jobID == "" {
		return "job-1", nil
	}
	return f.jobID, nil
}

func (f *fakeTrigger) started() []automation.JobRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]automation.JobRequest, len(f.jobs))
	copy(out, f.jobs)
	return out
}

var errBoom = errors.New("boom")
