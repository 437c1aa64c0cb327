package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bsic-bank/dataquality-service/internal/domain"
)

// ErrStatusConflict signals that a status transition lost the race: the
// ticket's current status no longer matches the status the caller read.
var ErrStatusConflict = errors.New("ticket status changed concurrently")

// TicketFilter captures ticket search parameters.
type TicketFilter struct {
	AgencyCode  *string
	ClientID    *string
	AssignedTo  *string
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// TicketRepository encapsulates ticket persistence. Status mutations are
// written together with their history row in a single transaction.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket, entry *domain.TicketHistory) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	GetByNumber(ctx context.Context, ticketNumber string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	ListOverdue(ctx context.Context, now time.Time) ([]domain.Ticket, error)
	ListCreatedBetween(ctx context.Context, from, to time.Time) ([]domain.Ticket, error)
	UpdateAssignment(ctx context.Context, ticket *domain.Ticket, entry *domain.TicketHistory) error
	TransitionStatus(ctx context.Context, ticket *domain.Ticket, from domain.TicketStatus, entry *domain.TicketHistory) error
	MarkSLABreached(ctx context.Context, id int64) (bool, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, ticket_number, client_id, client_name, client_type, agency_code,
       status, priority, assigned_to, assigned_by, assigned_at,
       validated_by, validated_at, closed_by, closed_at,
       sla_deadline, sla_breached, total_incidents, resolved_incidents,
       created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket, entry *domain.TicketHistory) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        INSERT INTO tickets (ticket_number, client_id, client_name, client_type, agency_code,
                             status, priority, sla_deadline, sla_breached, total_incidents, resolved_incidents)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, query,
		ticket.TicketNumber,
		ticket.ClientID,
		ticket.ClientName,
		ticket.ClientType,
		ticket.AgencyCode,
		ticket.Status,
		ticket.Priority,
		ticket.SLADeadline,
		ticket.SLABreached,
		ticket.TotalIncidents,
		ticket.ResolvedIncidents,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt); err != nil {
		return err
	}

	entry.TicketID = ticket.ID
	if err := insertHistory(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByNumber(ctx context.Context, ticketNumber string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE ticket_number=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, ticketNumber)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, arg), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := fmt.Sprintf(`SELECT %s FROM tickets`, ticketColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if filter.AgencyCode != nil {
		args = append(args, *filter.AgencyCode)
		clauses = append(clauses, fmt.Sprintf("agency_code=$%d", len(args)))
	}
	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		clauses = append(clauses, fmt.Sprintf("client_id=$%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListOverdue(ctx context.Context, now time.Time) ([]domain.Ticket, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM tickets
        WHERE sla_breached = FALSE
          AND sla_deadline < $1
          AND status NOT IN ($2, $3)`, ticketColumns)
	rows, err := r.pool.Query(ctx, query, now, domain.TicketStatusClosed, domain.TicketStatusRejected)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListCreatedBetween(ctx context.Context, from, to time.Time) ([]domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE created_at >= $1 AND created_at < $2`, ticketColumns)
	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// UpdateAssignment persists assignment fields plus the forced ASSIGNED status
// together with the history row.
func (r *ticketRepository) UpdateAssignment(ctx context.Context, ticket *domain.Ticket, entry *domain.TicketHistory) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        UPDATE tickets SET status=$1, assigned_to=$2, assigned_by=$3, assigned_at=$4, updated_at=NOW()
        WHERE id=$5`
	cmd, err := tx.Exec(ctx, query,
		ticket.Status,
		ticket.AssignedTo,
		ticket.AssignedBy,
		ticket.AssignedAt,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	if err := insertHistory(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// TransitionStatus applies a status change with compare-and-swap on the
// previously read status, so two racing callers cannot both leave the same
// state. The history row commits atomically with the update.
func (r *ticketRepository) TransitionStatus(ctx context.Context, ticket *domain.Ticket, from domain.TicketStatus, entry *domain.TicketHistory) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        UPDATE tickets SET status=$1,
            validated_by=$2, validated_at=$3,
            closed_by=$4, closed_at=$5,
            updated_at=NOW()
        WHERE id=$6 AND status=$7`
	cmd, err := tx.Exec(ctx, query,
		ticket.Status,
		ticket.ValidatedBy,
		ticket.ValidatedAt,
		ticket.ClosedBy,
		ticket.ClosedAt,
		ticket.ID,
		from,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrStatusConflict
	}
	if err := insertHistory(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// MarkSLABreached flips the breach flag. The flag is monotonic: the update
// only matches rows where it is still false, so re-running the sweep is a
// no-op. Returns whether this call performed the flip.
func (r *ticketRepository) MarkSLABreached(ctx context.Context, id int64) (bool, error) {
	const query = `UPDATE tickets SET sla_breached=TRUE, updated_at=NOW() WHERE id=$1 AND sla_breached=FALSE`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func insertHistory(ctx context.Context, tx pgx.Tx, entry *domain.TicketHistory) error {
	const query = `
        INSERT INTO ticket_history (id, ticket_id, action, previous_status, new_status,
                                    previous_value, new_value, notes, performed_by, ts)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err := tx.Exec(ctx, query,
		entry.ID,
		entry.TicketID,
		entry.Action,
		entry.PreviousStatus,
		entry.NewStatus,
		entry.PreviousValue,
		entry.NewValue,
		entry.Notes,
		entry.PerformedBy,
		entry.Timestamp,
	)
	return err
}

type ticketRow interface {
	Scan(dest ...any) error
}

func scanTicket(row ticketRow, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.ClientID,
		&ticket.ClientName,
		&ticket.ClientType,
		&ticket.AgencyCode,
		&ticket.Status,
		&ticket.Priority,
		&ticket.AssignedTo,
		&ticket.AssignedBy,
		&ticket.AssignedAt,
		&ticket.ValidatedBy,
		&ticket.ValidatedAt,
		&ticket.ClosedBy,
		&ticket.ClosedAt,
		&ticket.SLADeadline,
		&ticket.SLABreached,
		&ticket.TotalIncidents,
		&ticket.ResolvedIncidents,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
