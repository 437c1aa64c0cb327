package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bsic-bank/dataquality-service/internal/domain"
)

// TaskFilter captures reconciliation task search parameters.
type TaskFilter struct {
	AgencyCode   *string
	ClientID     *string
	TicketNumber *string
	Status       *domain.TaskStatus
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Limit        int
}

// ReconciliationRepository persists reconciliation tasks and their
// corrections. Verdicts and the aggregate task outcome commit as one
// transaction.
type ReconciliationRepository interface {
	CreateTask(ctx context.Context, task *domain.ReconciliationTask) error
	GetTask(ctx context.Context, id string) (*domain.ReconciliationTask, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]domain.ReconciliationTask, error)
	CreateCorrections(ctx context.Context, corrections []domain.Correction) error
	ListCorrections(ctx context.Context, ticketNumber string) ([]domain.Correction, error)
	ApplyOutcome(ctx context.Context, task *domain.ReconciliationTask, corrections []domain.Correction) error
	Stats(ctx context.Context, agencyCode *string, today time.Time) (*domain.ReconciliationStats, error)
}

type reconciliationRepository struct {
	pool *pgxpool.Pool
}

// NewReconciliationRepository instantiates repository.
func NewReconciliationRepository(pool *pgxpool.Pool) ReconciliationRepository {
	return &reconciliationRepository{pool: pool}
}

const taskColumns = `t.id, t.ticket_number, t.client_id, tk.client_name, tk.agency_code,
       t.status, t.attempts, t.last_attempt_at, t.reconciled_at, t.error_message, t.created_at`

func (r *reconciliationRepository) CreateTask(ctx context.Context, task *domain.ReconciliationTask) error {
	const query = `
        INSERT INTO reconciliation_tasks (id, ticket_number, client_id, status, attempts)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		task.ID,
		task.TicketNumber,
		task.ClientID,
		task.Status,
		task.Attempts,
	).Scan(&task.CreatedAt)
}

func (r *reconciliationRepository) GetTask(ctx context.Context, id string) (*domain.ReconciliationTask, error) {
	query := fmt.Sprintf(`
        SELECT %s
        FROM reconciliation_tasks t
        JOIN tickets tk ON tk.ticket_number = t.ticket_number
        WHERE t.id=$1`, taskColumns)

	var task domain.ReconciliationTask
	if err := scanTask(r.pool.QueryRow(ctx, query, id), &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *reconciliationRepository) ListTasks(ctx context.Context, filter TaskFilter) ([]domain.ReconciliationTask, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.AgencyCode != nil {
		args = append(args, *filter.AgencyCode)
		clauses = append(clauses, fmt.Sprintf("tk.agency_code=$%d", len(args)))
	}
	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		clauses = append(clauses, fmt.Sprintf("t.client_id=$%d", len(args)))
	}
	if filter.TicketNumber != nil {
		args = append(args, *filter.TicketNumber)
		clauses = append(clauses, fmt.Sprintf("t.ticket_number=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("t.status=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("t.created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("t.created_at <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := fmt.Sprintf(`
        SELECT %s
        FROM reconciliation_tasks t
        JOIN tickets tk ON tk.ticket_number = t.ticket_number
        WHERE %s
        ORDER BY t.created_at DESC LIMIT %d`, taskColumns, strings.Join(clauses, " AND "), limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ReconciliationTask
	for rows.Next() {
		var task domain.ReconciliationTask
		if err := scanTask(rows, &task); err != nil {
			return nil, err
		}
		result = append(result, task)
	}
	return result, rows.Err()
}

func (r *reconciliationRepository) CreateCorrections(ctx context.Context, corrections []domain.Correction) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        INSERT INTO corrections (ticket_number, field_name, field_label, old_value, new_value)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (ticket_number, field_name)
        DO UPDATE SET field_label=EXCLUDED.field_label, old_value=EXCLUDED.old_value, new_value=EXCLUDED.new_value
        RETURNING id`
	for i := range corrections {
		c := &corrections[i]
		if err := tx.QueryRow(ctx, query,
			c.TicketNumber, c.FieldName, c.FieldLabel, c.OldValue, c.NewValue,
		).Scan(&c.ID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *reconciliationRepository) ListCorrections(ctx context.Context, ticketNumber string) ([]domain.Correction, error) {
	const query = `
        SELECT id, ticket_number, field_name, field_label, old_value, new_value,
               cbs_value, is_matched, last_checked_at
        FROM corrections WHERE ticket_number=$1 ORDER BY id`
	rows, err := r.pool.Query(ctx, query, ticketNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Correction
	for rows.Next() {
		var c domain.Correction
		if err := rows.Scan(
			&c.ID,
			&c.TicketNumber,
			&c.FieldName,
			&c.FieldLabel,
			&c.OldValue,
			&c.NewValue,
			&c.CBSValue,
			&c.Matched,
			&c.LastCheckedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// ApplyOutcome writes the per-correction verdicts and the aggregate task
// outcome in a single transaction, so a task can never show an outcome
// without its verdicts or vice versa.
func (r *reconciliationRepository) ApplyOutcome(ctx context.Context, task *domain.ReconciliationTask, corrections []domain.Correction) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const correctionQuery = `
        UPDATE corrections SET cbs_value=$1, is_matched=$2, last_checked_at=$3
        WHERE ticket_number=$4 AND field_name=$5`
	for _, c := range corrections {
		if _, err := tx.Exec(ctx, correctionQuery,
			c.CBSValue, c.Matched, c.LastCheckedAt, c.TicketNumber, c.FieldName,
		); err != nil {
			return err
		}
	}

	const taskQuery = `
        UPDATE reconciliation_tasks
        SET status=$1, attempts=$2, last_attempt_at=$3, reconciled_at=$4, error_message=$5
        WHERE id=$6`
	cmd, err := tx.Exec(ctx, taskQuery,
		task.Status,
		task.Attempts,
		task.LastAttemptAt,
		task.ReconciledAt,
		task.ErrorMessage,
		task.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return tx.Commit(ctx)
}

func (r *reconciliationRepository) Stats(ctx context.Context, agencyCode *string, today time.Time) (*domain.ReconciliationStats, error) {
	clause := "1=1"
	args := []any{today}
	if agencyCode != nil {
		clause = "tk.agency_code=$2"
		args = append(args, *agencyCode)
	}

	query := fmt.Sprintf(`
        SELECT
            COUNT(*) FILTER (WHERE t.status='pending'),
            COUNT(*) FILTER (WHERE t.status='reconciled' AND t.reconciled_at::date = $1::date),
            COUNT(*) FILTER (WHERE t.status='failed' AND t.last_attempt_at::date = $1::date),
            COALESCE(COUNT(*) FILTER (WHERE t.status='reconciled') * 100.0 / NULLIF(COUNT(*), 0), 0)
        FROM reconciliation_tasks t
        JOIN tickets tk ON tk.ticket_number = t.ticket_number
        WHERE %s`, clause)

	stats := &domain.ReconciliationStats{ByStatus: map[domain.TaskStatus]int{}}
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&stats.TotalPending,
		&stats.ReconciledToday,
		&stats.FailedToday,
		&stats.SuccessRate,
	); err != nil {
		return nil, err
	}

	statusQuery := fmt.Sprintf(`
        SELECT t.status, COUNT(*)
        FROM reconciliation_tasks t
        JOIN tickets tk ON tk.ticket_number = t.ticket_number
        WHERE %s
        GROUP BY t.status`, clause)
	rows, err := r.pool.Query(ctx, statusQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status domain.TaskStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.ByStatus[status] = count
	}
	return stats, rows.Err()
}

type taskRow interface {
	Scan(dest ...any) error
}

func scanTask(row taskRow, task *domain.ReconciliationTask) error {
	return row.Scan(
		&task.ID,
		&task.TicketNumber,
		&task.ClientID,
		&task.ClientName,
		&task.AgencyCode,
		&task.Status,
		&task.Attempts,
		&task.LastAttemptAt,
		&task.ReconciledAt,
		&task.ErrorMessage,
		&task.CreatedAt,
	)
}
