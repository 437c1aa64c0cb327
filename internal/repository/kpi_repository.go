package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bsic-bank/dataquality-service/internal/domain"
)

// KpiRepository persists computed indicators. Upsert replaces the row for a
// (date, agency, type) key; recomputation never accumulates.
type KpiRepository interface {
	Upsert(ctx context.Context, kpi *domain.Kpi) error
	ListByDate(ctx context.Context, date time.Time) ([]domain.Kpi, error)
	ListByAgency(ctx context.Context, agencyCode string) ([]domain.Kpi, error)
	ListByAgencyAndRange(ctx context.Context, agencyCode string, from, to time.Time) ([]domain.Kpi, error)
}

type kpiRepository struct {
	pool *pgxpool.Pool
}

// NewKpiRepository instantiates repository.
func NewKpiRepository(pool *pgxpool.Pool) KpiRepository {
	return &kpiRepository{pool: pool}
}

const kpiColumns = `id, period_date, agency_code, kpi_type, kpi_value, target_value,
       tickets_total, tickets_closed, tickets_sla_respected, tickets_sla_breached,
       avg_resolution_time_hours, created_at, updated_at`

func (r *kpiRepository) Upsert(ctx context.Context, kpi *domain.Kpi) error {
	const query = `
        INSERT INTO kpis (period_date, agency_code, kpi_type, kpi_value, target_value,
                          tickets_total, tickets_closed, tickets_sla_respected, tickets_sla_breached,
                          avg_resolution_time_hours)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        ON CONFLICT (period_date, agency_code, kpi_type)
        DO UPDATE SET kpi_value=EXCLUDED.kpi_value,
                      target_value=EXCLUDED.target_value,
                      tickets_total=EXCLUDED.tickets_total,
                      tickets_closed=EXCLUDED.tickets_closed,
                      tickets_sla_respected=EXCLUDED.tickets_sla_respected,
                      tickets_sla_breached=EXCLUDED.tickets_sla_breached,
                      avg_resolution_time_hours=EXCLUDED.avg_resolution_time_hours,
                      updated_at=NOW()
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		kpi.PeriodDate,
		kpi.AgencyCode,
		kpi.KpiType,
		kpi.KpiValue,
		kpi.TargetValue,
		kpi.TicketsTotal,
		kpi.TicketsClosed,
		kpi.TicketsSLARespected,
		kpi.TicketsSLABreached,
		kpi.AvgResolutionTimeHours,
	).Scan(&kpi.ID, &kpi.CreatedAt, &kpi.UpdatedAt)
}

func (r *kpiRepository) ListByDate(ctx context.Context, date time.Time) ([]domain.Kpi, error) {
	query := `SELECT ` + kpiColumns + ` FROM kpis WHERE period_date=$1 ORDER BY agency_code, kpi_type`
	return r.list(ctx, query, date)
}

func (r *kpiRepository) ListByAgency(ctx context.Context, agencyCode string) ([]domain.Kpi, error) {
	query := `SELECT ` + kpiColumns + ` FROM kpis WHERE agency_code=$1 ORDER BY period_date DESC, kpi_type`
	return r.list(ctx, query, agencyCode)
}

func (r *kpiRepository) ListByAgencyAndRange(ctx context.Context, agencyCode string, from, to time.Time) ([]domain.Kpi, error) {
	query := `SELECT ` + kpiColumns + ` FROM kpis
        WHERE agency_code=$1 AND period_date >= $2 AND period_date <= $3
        ORDER BY period_date, kpi_type`
	return r.list(ctx, query, agencyCode, from, to)
}

func (r *kpiRepository) list(ctx context.Context, query string, args ...any) ([]domain.Kpi, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Kpi
	for rows.Next() {
		var kpi domain.Kpi
		if err := rows.Scan(
			&kpi.ID,
			&kpi.PeriodDate,
			&kpi.AgencyCode,
			&kpi.KpiType,
			&kpi.KpiValue,
			&kpi.TargetValue,
			&kpi.TicketsTotal,
			&kpi.TicketsClosed,
			&kpi.TicketsSLARespected,
			&kpi.TicketsSLABreached,
			&kpi.AvgResolutionTimeHours,
			&kpi.CreatedAt,
			&kpi.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, kpi)
	}
	return result, rows.Err()
}
