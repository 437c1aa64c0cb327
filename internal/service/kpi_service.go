package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bsic-bank/dataquality-service/internal/clock"
	"github.com/bsic-bank/dataquality-service/internal/domain"
	"github.com/bsic-bank/dataquality-service/internal/repository"
	apperrors "github.com/bsic-bank/dataquality-service/pkg/util"
)

// KPI targets, fixed per indicator.
const (
	targetClosureRate   = 95.0
	targetSLACompliance = 90.0
	targetAvgResolution = 48.0
)

const kpiLeaseTTL = time.Minute

// KpiService derives daily indicators from ticket state. It observes tickets
// passively and never drives transitions.
type KpiService struct {
	kpis    repository.KpiRepository
	tickets repository.TicketRepository
	leases  repository.LeaseRepository
	clock   clock.Clock
	logger  *zap.Logger
}

// KpiDependencies bundles collaborators.
type KpiDependencies struct {
	KpiRepo    repository.KpiRepository
	TicketRepo repository.TicketRepository
	Leases     repository.LeaseRepository
	Clock      clock.Clock
	Logger     *zap.Logger
}

// DashboardMetrics is the per-scope snapshot for one day.
type DashboardMetrics struct {
	ClosureRate       float64
	SLACompliance     float64
	AvgResolutionTime float64
	TicketsTotal      int
	TicketsClosed     int
	TicketsBreached   int
}

// NewKpiService constructs the service.
func NewKpiService(deps KpiDependencies) *KpiService {
	svc := &KpiService{
		kpis:    deps.KpiRepo,
		tickets: deps.TicketRepo,
		leases:  deps.Leases,
		clock:   deps.Clock,
		logger:  deps.Logger,
	}
	if svc.clock == nil {
		svc.clock = clock.System()
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

// CalculateDailyKpis recomputes the three indicators for every agency that
// created tickets on the given date, plus the GLOBAL pool. Each (date,
// agency, type) row is replaced, never accumulated. A lease per (date,
// agency) keeps two sweeps from recomputing the same scope concurrently.
func (s *KpiService) CalculateDailyKpis(ctx context.Context, date time.Time) error {
	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	endOfDay := startOfDay.AddDate(0, 0, 1)

	tickets, err := s.tickets.ListCreatedBetween(ctx, startOfDay, endOfDay)
	if err != nil {
		return apperrors.MapError(err)
	}

	byAgency := make(map[string][]domain.Ticket)
	for _, ticket := range tickets {
		byAgency[ticket.AgencyCode] = append(byAgency[ticket.AgencyCode], ticket)
	}

	for agencyCode, agencyTickets := range byAgency {
		if err := s.computeScope(ctx, startOfDay, agencyCode, agencyTickets); err != nil {
			return err
		}
	}
	if err := s.computeScope(ctx, startOfDay, domain.KpiScopeGlobal, tickets); err != nil {
		return err
	}

	s.logger.Info("daily kpis calculated",
		zap.Time("date", startOfDay),
		zap.Int("agencies", len(byAgency)),
		zap.Int("tickets", len(tickets)))
	return nil
}

func (s *KpiService) computeScope(ctx context.Context, date time.Time, agencyCode string, tickets []domain.Ticket) error {
	if s.leases != nil {
		key := fmt.Sprintf("kpi:%s:%s", date.Format("2006-01-02"), agencyCode)
		acquired, err := s.leases.Acquire(ctx, key, kpiLeaseTTL)
		if err != nil {
			return apperrors.MapError(err)
		}
		if !acquired {
			s.logger.Warn("kpi scope already being computed, skipping",
				zap.String("agency", agencyCode),
				zap.Time("date", date))
			return nil
		}
		defer func() { _ = s.leases.Release(ctx, key) }()
	}

	total := len(tickets)
	closed := 0
	slaRespected := 0
	slaBreached := 0
	var resolutionHours float64
	resolved := 0

	for _, ticket := range tickets {
		if ticket.SLABreached {
			slaBreached++
		}
		if ticket.Status != domain.TicketStatusClosed {
			continue
		}
		closed++
		if !ticket.SLABreached {
			slaRespected++
		}
		if ticket.ClosedAt != nil {
			resolutionHours += ticket.ClosedAt.Sub(ticket.CreatedAt).Hours()
			resolved++
		}
	}

	closureRate := 0.0
	if total > 0 {
		closureRate = float64(closed) * 100.0 / float64(total)
	}
	slaComplianceRate := 0.0
	if closed > 0 {
		slaComplianceRate = float64(slaRespected) * 100.0 / float64(closed)
	}
	avgResolution := 0.0
	if resolved > 0 {
		avgResolution = resolutionHours / float64(resolved)
	}

	rows := []struct {
		kpiType domain.KpiType
		value   float64
		target  float64
	}{
		{domain.KpiClosureRate, closureRate, targetClosureRate},
		{domain.KpiSLACompliance, slaComplianceRate, targetSLACompliance},
		{domain.KpiAvgResolutionTime, avgResolution, targetAvgResolution},
	}
	for _, row := range rows {
		kpi := &domain.Kpi{
			PeriodDate:             date,
			AgencyCode:             agencyCode,
			KpiType:                row.kpiType,
			KpiValue:               row.value,
			TargetValue:            row.target,
			TicketsTotal:           total,
			TicketsClosed:          closed,
			TicketsSLARespected:    slaRespected,
			TicketsSLABreached:     slaBreached,
			AvgResolutionTimeHours: avgResolution,
		}
		if err := s.kpis.Upsert(ctx, kpi); err != nil {
			return apperrors.MapError(err)
		}
	}
	return nil
}

// GetByDate returns all KPI rows for a date.
func (s *KpiService) GetByDate(ctx context.Context, date time.Time) ([]domain.Kpi, error) {
	kpis, err := s.kpis.ListByDate(ctx, date)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return kpis, nil
}

// GetByAgency returns KPI rows for an agency across dates.
func (s *KpiService) GetByAgency(ctx context.Context, agencyCode string) ([]domain.Kpi, error) {
	kpis, err := s.kpis.ListByAgency(ctx, agencyCode)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return kpis, nil
}

// GetByRange returns KPI rows for an agency inside a date range.
func (s *KpiService) GetByRange(ctx context.Context, agencyCode string, from, to time.Time) ([]domain.Kpi, error) {
	kpis, err := s.kpis.ListByAgencyAndRange(ctx, agencyCode, from, to)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return kpis, nil
}

// Dashboard assembles the per-scope snapshot for a date. Missing rows read
// as zero.
func (s *KpiService) Dashboard(ctx context.Context, agencyCode string, date time.Time) (*DashboardMetrics, error) {
	if agencyCode == "" {
		agencyCode = domain.KpiScopeGlobal
	}
	kpis, err := s.kpis.ListByAgencyAndRange(ctx, agencyCode, date, date)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	metrics := &DashboardMetrics{}
	for _, kpi := range kpis {
		switch kpi.KpiType {
		case domain.KpiClosureRate:
			metrics.ClosureRate = kpi.KpiValue
			metrics.TicketsTotal = kpi.TicketsTotal
			metrics.TicketsClosed = kpi.TicketsClosed
			metrics.TicketsBreached = kpi.TicketsSLABreached
		case domain.KpiSLACompliance:
			metrics.SLACompliance = kpi.KpiValue
		case domain.KpiAvgResolutionTime:
			metrics.AvgResolutionTime = kpi.KpiValue
		}
	}
	return metrics, nil
}
