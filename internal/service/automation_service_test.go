package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsic-bank/dataquality-service/internal/automation"
	"github.com/bsic-bank/dataquality-service/internal/cbs"
	"github.com/bsic-bank/dataquality-service/internal/clock"
	"github.com/bsic-bank/dataquality-service/internal/config"
	"github.com/bsic-bank/dataquality-service/internal/domain"
	"github.com/bsic-bank/dataquality-service/internal/events"
	"github.com/bsic-bank/dataquality-service/internal/repository"
)

type automationFixture struct {
	tickets        *TicketService
	reconciliation *ReconciliationService
	automation     *AutomationService
	trigger        *fakeTrigger
	ticketRepo     *memTicketRepo
	reconRepo      *memReconciliationRepo
	comments       *memCommentRepo
	clock          *clock.Manual
}

func newAutomationFixture(t *testing.T) *automationFixture {
	t.Helper()
	dispatcher := events.NewInMemoryDispatcher()
	f := &automationFixture{
		trigger:    &fakeTrigger{},
		ticketRepo: newMemTicketRepo(),
		reconRepo:  newMemReconciliationRepo(),
		comments:   &memCommentRepo{},
		clock:      clock.NewManual(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)),
	}
	f.tickets = NewTicketService(TicketDependencies{
		TicketRepo:  f.ticketRepo,
		HistoryRepo: &memHistoryRepo{tickets: f.ticketRepo},
		CommentRepo: f.comments,
		ClientRepo: &memClientRepo{clients: map[string]domain.Client{
			"CLI-1": {ID: "CLI-1", LastName: "Diallo", AgencyCode: "AG001"},
		}},
		UserRepo: &memUserRepo{users: map[string]domain.User{
			"agent-1":     {ID: "agent-1", FullName: "Awa Kone"},
			"validator-1": {ID: "validator-1", FullName: "Issa Ba"},
			"system":      {ID: "system", FullName: "Automation"},
		}},
		Sequence:   newMemSequenceRepo(),
		Clock:      f.clock,
		Dispatcher: dispatcher,
	})
	f.reconciliation = NewReconciliationService(ReconciliationDependencies{
		Repo:   f.reconRepo,
		Reader: &fakeReader{records: map[string]cbs.Record{}},
		Clock:  f.clock,
	})
	f.automation = NewAutomationService(
		f.tickets,
		f.reconciliation,
		f.trigger,
		dispatcher,
		config.AutomationConfig{SystemUserID: "system"},
		nil,
	)
	f.automation.RegisterHandlers()
	return f
}

// validatedTicket creates a ticket and walks it to VALIDATED, which fires
// the status-change handler.
func (f *automationFixture) validatedTicket(t *testing.T) *domain.Ticket {
	t.Helper()
	ctx := context.Background()
	ticket, err := f.tickets.Create(ctx, TicketCreateInput{ClientID: "CLI-1"})
	require.NoError(t, err)
	_, err = f.tickets.Assign(ctx, ticket.ID, "agent-1", "validator-1")
	require.NoError(t, err)
	for _, status := range []domain.TicketStatus{
		domain.TicketStatusInProgress,
		domain.TicketStatusPendingValidation,
		domain.TicketStatusValidated,
	} {
		ticket, err = f.tickets.Transition(ctx, ticket.ID, status, "validator-1", "")
		require.NoError(t, err)
	}
	return ticket
}

func TestValidationTriggersAutomationJob(t *testing.T) {
	f := newAutomationFixture(t)

	ticket := f.validatedTicket(t)

	jobs := f.trigger.started()
	require.Len(t, jobs, 1)
	assert.Equal(t, ticket.TicketNumber, jobs[0].TicketNumber)
	assert.Equal(t, "CLI-1", jobs[0].ClientID)
	assert.Equal(t, "UPDATE_CBS", jobs[0].Action)
}

func TestTriggerFailureFlagsManualIntervention(t *testing.T) {
	f := newAutomationFixture(t)
	f.trigger.err = errBoom

	ticket := f.validatedTicket(t)

	current, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusValidated, current.Status)

	comments, err := f.comments.ListByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.True(t, comments[0].IsInternal)
	assert.Contains(t, comments[0].Comment, "Manual intervention required")
}

func TestCallbackSuccessAdvancesTicketAndOpensTask(t *testing.T) {
	f := newAutomationFixture(t)
	ctx := context.Background()

	ticket := f.validatedTicket(t)

	err := f.automation.HandleCallback(ctx, automation.Callback{
		JobID:        "job-9",
		TicketNumber: ticket.TicketNumber,
		Success:      true,
	})
	require.NoError(t, err)

	current, err := f.tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusUpdatedCBS, current.Status)

	history := f.ticketRepo.historyFor(ticket.ID)
	last := history[len(history)-1]
	require.NotNil(t, last.Notes)
	assert.Equal(t, "CBS updated by automation job job-9", *last.Notes)
	require.NotNil(t, last.PerformedBy)
	assert.Equal(t, "system", *last.PerformedBy)

	pending := domain.TaskStatusPending
	tasks, err := f.reconRepo.ListTasks(ctx, repository.TaskFilter{Status: &pending})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, ticket.TicketNumber, tasks[0].TicketNumber)
	assert.Equal(t, "CLI-1", tasks[0].ClientID)
}

func TestCallbackFailureFlagsManualIntervention(t *testing.T) {
	f := newAutomationFixture(t)
	ctx := context.Background()

	ticket := f.validatedTicket(t)

	err := f.automation.HandleCallback(ctx, automation.Callback{
		JobID:        "job-2",
		TicketNumber: ticket.TicketNumber,
		Success:      false,
		ErrorMessage: "screen not found",
	})
	require.NoError(t, err)

	current, err := f.tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusValidated, current.Status)

	comments, err := f.comments.ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Contains(t, comments[0].Comment, "screen not found")
	assert.Contains(t, comments[0].Comment, "Manual intervention required")

	pending := domain.TaskStatusPending
	tasks, err := f.reconRepo.ListTasks(ctx, repository.TaskFilter{Status: &pending})
	require.NoError(t, err)
	assert.Empty(t, tasks)
}
