package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsic-bank/dataquality-service/internal/clock"
	"github.com/bsic-bank/dataquality-service/internal/domain"
)

type kpiFixture struct {
	service *KpiService
	tickets *memTicketRepo
	kpis    *memKpiRepo
	leases  *memLeaseRepo
	clock   *clock.Manual
	day     time.Time
}

func newKpiFixture(t *testing.T) *kpiFixture {
	t.Helper()
	f := &kpiFixture{
		tickets: newMemTicketRepo(),
		kpis:    newMemKpiRepo(),
		leases:  newMemLeaseRepo(),
		day:     time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC),
	}
	f.clock = clock.NewManual(f.day.Add(26 * time.Hour))
	f.service = NewKpiService(KpiDependencies{
		KpiRepo:    f.kpis,
		TicketRepo: f.tickets,
		Leases:     f.leases,
		Clock:      f.clock,
	})
	return f
}

// seedTicket inserts a ticket directly into the store with the given shape.
func (f *kpiFixture) seedTicket(agencyCode string, status domain.TicketStatus, breached bool, resolutionHours float64) {
	f.tickets.mu.Lock()
	defer f.tickets.mu.Unlock()
	f.tickets.nextID++
	createdAt := f.day.Add(9 * time.Hour)
	ticket := &domain.Ticket{
		ID:          f.tickets.nextID,
		AgencyCode:  agencyCode,
		Status:      status,
		SLABreached: breached,
		CreatedAt:   createdAt,
	}
	if status == domain.TicketStatusClosed {
		closedAt := createdAt.Add(time.Duration(resolutionHours * float64(time.Hour)))
		ticket.ClosedAt = &closedAt
	}
	f.tickets.tickets[ticket.ID] = ticket
}

func TestCalculateDailyKpis(t *testing.T) {
	f := newKpiFixture(t)
	ctx := context.Background()

	f.seedTicket("AG001", domain.TicketStatusClosed, false, 10)
	f.seedTicket("AG001", domain.TicketStatusClosed, true, 30)
	f.seedTicket("AG001", domain.TicketStatusInProgress, true, 0)
	f.seedTicket("AG001", domain.TicketStatusAssigned, false, 0)
	f.seedTicket("AG002", domain.TicketStatusDetected, false, 0)

	require.NoError(t, f.service.CalculateDailyKpis(ctx, f.day))

	closure, ok := f.kpis.get(f.day, "AG001", domain.KpiClosureRate)
	require.True(t, ok)
	assert.InDelta(t, 50.0, closure.KpiValue, 0.001)
	assert.Equal(t, 95.0, closure.TargetValue)
	assert.Equal(t, 4, closure.TicketsTotal)
	assert.Equal(t, 2, closure.TicketsClosed)
	assert.Equal(t, 2, closure.TicketsSLABreached)

	compliance, ok := f.kpis.get(f.day, "AG001", domain.KpiSLACompliance)
	require.True(t, ok)
	assert.InDelta(t, 50.0, compliance.KpiValue, 0.001)
	assert.Equal(t, 1, compliance.TicketsSLARespected)

	resolution, ok := f.kpis.get(f.day, "AG001", domain.KpiAvgResolutionTime)
	require.True(t, ok)
	assert.InDelta(t, 20.0, resolution.KpiValue, 0.001)
	assert.Equal(t, 48.0, resolution.TargetValue)

	global, ok := f.kpis.get(f.day, domain.KpiScopeGlobal, domain.KpiClosureRate)
	require.True(t, ok)
	assert.InDelta(t, 40.0, global.KpiValue, 0.001)
	assert.Equal(t, 5, global.TicketsTotal)
}

func TestCalculateDailyKpisZeroDenominators(t *testing.T) {
	f := newKpiFixture(t)
	ctx := context.Background()

	// No closed tickets at all: compliance and resolution read as zero
	// rather than dividing by zero.
	f.seedTicket("AG001", domain.TicketStatusDetected, false, 0)

	require.NoError(t, f.service.CalculateDailyKpis(ctx, f.day))

	closure, ok := f.kpis.get(f.day, "AG001", domain.KpiClosureRate)
	require.True(t, ok)
	assert.Zero(t, closure.KpiValue)

	compliance, ok := f.kpis.get(f.day, "AG001", domain.KpiSLACompliance)
	require.True(t, ok)
	assert.Zero(t, compliance.KpiValue)

	resolution, ok := f.kpis.get(f.day, "AG001", domain.KpiAvgResolutionTime)
	require.True(t, ok)
	assert.Zero(t, resolution.KpiValue)
}

func TestCalculateDailyKpisNoTickets(t *testing.T) {
	f := newKpiFixture(t)

	require.NoError(t, f.service.CalculateDailyKpis(context.Background(), f.day))

	// Only the GLOBAL scope is written when no agency created tickets.
	global, ok := f.kpis.get(f.day, domain.KpiScopeGlobal, domain.KpiClosureRate)
	require.True(t, ok)
	assert.Zero(t, global.KpiValue)
	assert.Zero(t, global.TicketsTotal)
}

func TestCalculateDailyKpisReplacesRows(t *testing.T) {
	f := newKpiFixture(t)
	ctx := context.Background()

	f.seedTicket("AG001", domain.TicketStatusInProgress, false, 0)
	require.NoError(t, f.service.CalculateDailyKpis(ctx, f.day))

	before, _ := f.kpis.get(f.day, "AG001", domain.KpiClosureRate)
	assert.Zero(t, before.KpiValue)

	// The ticket closes; the next sweep replaces the row wholesale.
	f.tickets.mu.Lock()
	stored := f.tickets.tickets[1]
	stored.Status = domain.TicketStatusClosed
	closedAt := stored.CreatedAt.Add(5 * time.Hour)
	stored.ClosedAt = &closedAt
	f.tickets.mu.Unlock()

	require.NoError(t, f.service.CalculateDailyKpis(ctx, f.day))

	after, _ := f.kpis.get(f.day, "AG001", domain.KpiClosureRate)
	assert.InDelta(t, 100.0, after.KpiValue, 0.001)
	assert.Equal(t, 1, after.TicketsTotal)
}

func TestCalculateDailyKpisSkipsHeldScope(t *testing.T) {
	f := newKpiFixture(t)
	ctx := context.Background()

	f.seedTicket("AG001", domain.TicketStatusClosed, false, 4)

	held, err := f.leases.Acquire(ctx, "kpi:2025-03-09:AG001", time.Minute)
	require.NoError(t, err)
	require.True(t, held)

	require.NoError(t, f.service.CalculateDailyKpis(ctx, f.day))

	_, ok := f.kpis.get(f.day, "AG001", domain.KpiClosureRate)
	assert.False(t, ok)
	_, ok = f.kpis.get(f.day, domain.KpiScopeGlobal, domain.KpiClosureRate)
	assert.True(t, ok)
}

func TestFullLifecycleYieldsPerfectKpis(t *testing.T) {
	tf := newTicketFixture(t)
	ctx := context.Background()
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		ticket := tf.mustCreate(t, "CLI-1", domain.TicketPriorityHigh)
		tf.clock.Advance(2 * time.Hour)
		tf.advanceTo(t, ticket.ID, domain.TicketStatusClosed)
	}

	kpis := newMemKpiRepo()
	kpiService := NewKpiService(KpiDependencies{
		KpiRepo:    kpis,
		TicketRepo: tf.tickets,
		Clock:      tf.clock,
	})
	require.NoError(t, kpiService.CalculateDailyKpis(ctx, day))

	closure, ok := kpis.get(day, "AG001", domain.KpiClosureRate)
	require.True(t, ok)
	assert.InDelta(t, 100.0, closure.KpiValue, 0.001)

	compliance, ok := kpis.get(day, "AG001", domain.KpiSLACompliance)
	require.True(t, ok)
	assert.InDelta(t, 100.0, compliance.KpiValue, 0.001)

	resolution, ok := kpis.get(day, "AG001", domain.KpiAvgResolutionTime)
	require.True(t, ok)
	assert.Greater(t, resolution.KpiValue, 0.0)
	assert.Less(t, resolution.KpiValue, 48.0)
}

func TestDashboard(t *testing.T) {
	f := newKpiFixture(t)
	ctx := context.Background()

	f.seedTicket("AG001", domain.TicketStatusClosed, false, 12)
	f.seedTicket("AG001", domain.TicketStatusInProgress, true, 0)
	require.NoError(t, f.service.CalculateDailyKpis(ctx, f.day))

	metrics, err := f.service.Dashboard(ctx, "AG001", f.day)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, metrics.ClosureRate, 0.001)
	assert.InDelta(t, 100.0, metrics.SLACompliance, 0.001)
	assert.InDelta(t, 12.0, metrics.AvgResolutionTime, 0.001)
	assert.Equal(t, 2, metrics.TicketsTotal)
	assert.Equal(t, 1, metrics.TicketsClosed)
	assert.Equal(t, 1, metrics.TicketsBreached)

	// Empty agency reads the GLOBAL pool.
	global, err := f.service.Dashboard(ctx, "", f.day)
	require.NoError(t, err)
	assert.Equal(t, 2, global.TicketsTotal)

	// A date with no rows reads as zeroes.
	empty, err := f.service.Dashboard(ctx, "AG001", f.day.AddDate(0, 0, 5))
	require.NoError(t, err)
	assert.Zero(t, empty.TicketsTotal)
	assert.Zero(t, empty.ClosureRate)
}
