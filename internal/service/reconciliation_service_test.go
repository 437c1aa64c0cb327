package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsic-bank/dataquality-service/internal/cbs"
	"github.com/bsic-bank/dataquality-service/internal/clock"
	"github.com/bsic-bank/dataquality-service/internal/domain"
	"github.com/bsic-bank/dataquality-service/internal/recon"
	apperrors "github.com/bsic-bank/dataquality-service/pkg/util"
)

type reconFixture struct {
	service *ReconciliationService
	repo    *memReconciliationRepo
	reader  *fakeReader
	clock   *clock.Manual
}

func newReconFixture(t *testing.T) *reconFixture {
	t.Helper()
	f := &reconFixture{
		repo:   newMemReconciliationRepo(),
		reader: &fakeReader{records: make(map[string]cbs.Record)},
		clock:  clock.NewManual(time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)),
	}
	f.service = NewReconciliationService(ReconciliationDependencies{
		Repo:   f.repo,
		Reader: f.reader,
		Clock:  f.clock,
	})
	return f
}

func (f *reconFixture) mustTask(t *testing.T, ticketNumber, clientID string) *domain.ReconciliationTask {
	t.Helper()
	task, err := f.service.CreateTask(context.Background(), ticketNumber, clientID)
	require.NoError(t, err)
	return task
}

func (f *reconFixture) mustCorrections(t *testing.T, ticketNumber string, inputs ...CorrectionInput) {
	t.Helper()
	_, err := f.service.ProposeCorrections(context.Background(), ticketNumber, inputs)
	require.NoError(t, err)
}

func TestProposeCorrectionsRequiresAtLeastOne(t *testing.T) {
	f := newReconFixture(t)

	_, err := f.service.ProposeCorrections(context.Background(), "T-1", nil)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func TestReconcileTaskAllFieldsMatch(t *testing.T) {
	f := newReconFixture(t)
	ctx := context.Background()

	task := f.mustTask(t, "T-1", "CLI-1")
	f.mustCorrections(t, "T-1",
		CorrectionInput{FieldName: "name", FieldLabel: "Last name", OldValue: "Dialo", NewValue: "Diallo"},
		CorrectionInput{FieldName: "phone", FieldLabel: "Phone", OldValue: "", NewValue: "+22370000000"},
	)
	f.reader.records["CLI-1"] = cbs.Record{
		"name":  "  DIALLO ",
		"phone": "+22370000000",
	}

	result, err := f.service.ReconcileTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusReconciled, result.Status)
	assert.Equal(t, 2, result.MatchedFields)
	assert.Equal(t, 2, result.TotalFields)
	assert.Empty(t, result.Discrepancies)

	stored, err := f.repo.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusReconciled, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
	require.NotNil(t, stored.ReconciledAt)
	assert.Equal(t, f.clock.Now(), *stored.ReconciledAt)
	assert.Nil(t, stored.ErrorMessage)

	corrections, err := f.repo.ListCorrections(ctx, "T-1")
	require.NoError(t, err)
	for _, c := range corrections {
		require.NotNil(t, c.Matched, c.FieldName)
		assert.True(t, *c.Matched)
		require.NotNil(t, c.CBSValue)
		require.NotNil(t, c.LastCheckedAt)
	}
}

func TestReconcileTaskPartialMatch(t *testing.T) {
	f := newReconFixture(t)
	ctx := context.Background()

	task := f.mustTask(t, "T-2", "CLI-2")
	f.mustCorrections(t, "T-2",
		CorrectionInput{FieldName: "nationality", FieldLabel: "Nationality", NewValue: "ML"},
		CorrectionInput{FieldName: "email", FieldLabel: "Email", NewValue: "a@bank.test"},
		CorrectionInput{FieldName: "city", FieldLabel: "City", NewValue: "Bamako"},
	)
	f.reader.records["CLI-2"] = cbs.Record{
		"nationality": "SN",
		"email":       "a@bank.test",
		"city":        "Kayes",
	}

	result, err := f.service.ReconcileTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPartial, result.Status)
	assert.Equal(t, 1, result.MatchedFields)
	assert.Equal(t, 3, result.TotalFields)
	require.Len(t, result.Discrepancies, 2)

	bySeverity := map[string]recon.Severity{}
	for _, d := range result.Discrepancies {
		bySeverity[d.Field] = d.Severity
	}
	assert.Equal(t, recon.SeverityHigh, bySeverity["nationality"])
	assert.Equal(t, recon.SeverityLow, bySeverity["city"])

	stored, err := f.repo.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ReconciledAt)
}

func TestReconcileTaskNoMatches(t *testing.T) {
	f := newReconFixture(t)

	task := f.mustTask(t, "T-3", "CLI-3")
	f.mustCorrections(t, "T-3",
		CorrectionInput{FieldName: "address", FieldLabel: "Address", NewValue: "Rue 10"},
	)
	f.reader.records["CLI-3"] = cbs.Record{"address": "Rue 12"}

	result, err := f.service.ReconcileTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, result.Status)
	assert.Equal(t, 0, result.MatchedFields)
}

func TestReconcileTaskZeroCorrections(t *testing.T) {
	f := newReconFixture(t)

	task := f.mustTask(t, "T-4", "CLI-4")
	f.reader.records["CLI-4"] = cbs.Record{}

	result, err := f.service.ReconcileTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusReconciled, result.Status)
	assert.Equal(t, 0, result.TotalFields)
}

func TestReconcileTaskKeepsFirstReconciledStamp(t *testing.T) {
	f := newReconFixture(t)
	ctx := context.Background()

	task := f.mustTask(t, "T-5", "CLI-5")
	f.mustCorrections(t, "T-5",
		CorrectionInput{FieldName: "email", FieldLabel: "Email", NewValue: "x@bank.test"},
	)
	f.reader.records["CLI-5"] = cbs.Record{"email": "x@bank.test"}

	_, err := f.service.ReconcileTask(ctx, task.ID)
	require.NoError(t, err)
	first := f.clock.Now()

	f.clock.Advance(2 * time.Hour)
	_, err = f.service.ReconcileTask(ctx, task.ID)
	require.NoError(t, err)

	stored, err := f.repo.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Attempts)
	require.NotNil(t, stored.LastAttemptAt)
	assert.Equal(t, f.clock.Now(), *stored.LastAttemptAt)
	require.NotNil(t, stored.ReconciledAt)
	assert.Equal(t, first, *stored.ReconciledAt)
}

func TestReconcileTaskClientMissingInCBS(t *testing.T) {
	f := newReconFixture(t)
	ctx := context.Background()

	task := f.mustTask(t, "T-6", "CLI-6")
	f.mustCorrections(t, "T-6",
		CorrectionInput{FieldName: "name", FieldLabel: "Last name", NewValue: "Keita"},
	)

	_, err := f.service.ReconcileTask(ctx, task.ID)
	require.True(t, apperrors.IsCode(err, "SOURCE_RECORD_NOT_FOUND"))

	stored, getErr := f.repo.GetTask(ctx, task.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.TaskStatusFailed, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
	require.NotNil(t, stored.ErrorMessage)
}

func TestReconcileTaskCBSTimeout(t *testing.T) {
	f := newReconFixture(t)

	task := f.mustTask(t, "T-7", "CLI-7")
	f.reader.err = cbs.ErrTimeout

	_, err := f.service.ReconcileTask(context.Background(), task.ID)
	require.True(t, apperrors.IsCode(err, "EXTERNAL_TIMEOUT"))

	stored, getErr := f.repo.GetTask(context.Background(), task.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.TaskStatusFailed, stored.Status)
}

func TestReconcileTaskNotFound(t *testing.T) {
	f := newReconFixture(t)

	_, err := f.service.ReconcileTask(context.Background(), "ghost")
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestReconcileAllIsolatesFailures(t *testing.T) {
	f := newReconFixture(t)
	ctx := context.Background()

	good := f.mustTask(t, "T-10", "CLI-10")
	partial := f.mustTask(t, "T-11", "CLI-11")
	broken := f.mustTask(t, "T-12", "CLI-12")

	f.mustCorrections(t, "T-10", CorrectionInput{FieldName: "email", NewValue: "ok@bank.test"})
	f.mustCorrections(t, "T-11",
		CorrectionInput{FieldName: "email", NewValue: "ok@bank.test"},
		CorrectionInput{FieldName: "city", NewValue: "Bamako"},
	)
	f.mustCorrections(t, "T-12", CorrectionInput{FieldName: "name", NewValue: "Keita"})

	f.reader.records["CLI-10"] = cbs.Record{"email": "ok@bank.test"}
	f.reader.records["CLI-11"] = cbs.Record{"email": "ok@bank.test", "city": "Kayes"}
	// CLI-12 missing: its task fails without aborting the batch.

	result, err := f.service.ReconcileAll(ctx, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 1, result.Success)
	assert.Equal(t, 2, result.Failed)

	goodStored, _ := f.repo.GetTask(ctx, good.ID)
	assert.Equal(t, domain.TaskStatusReconciled, goodStored.Status)
	partialStored, _ := f.repo.GetTask(ctx, partial.ID)
	assert.Equal(t, domain.TaskStatusPartial, partialStored.Status)
	brokenStored, _ := f.repo.GetTask(ctx, broken.ID)
	assert.Equal(t, domain.TaskStatusFailed, brokenStored.Status)
}

func TestListPendingExcludesFinishedTasks(t *testing.T) {
	f := newReconFixture(t)
	ctx := context.Background()

	f.mustTask(t, "T-20", "CLI-20")
	done := f.mustTask(t, "T-21", "CLI-21")
	f.reader.records["CLI-21"] = cbs.Record{}
	_, err := f.service.ReconcileTask(ctx, done.ID)
	require.NoError(t, err)

	views, err := f.service.ListPending(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "T-20", views[0].Task.TicketNumber)
}
