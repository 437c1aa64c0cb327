package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/bsic-bank/dataquality-service/internal/cbs"
	"github.com/bsic-bank/dataquality-service/internal/clock"
	"github.com/bsic-bank/dataquality-service/internal/domain"
	"github.com/bsic-bank/dataquality-service/internal/events"
	"github.com/bsic-bank/dataquality-service/internal/recon"
	"github.com/bsic-bank/dataquality-service/internal/repository"
	apperrors "github.com/bsic-bank/dataquality-service/pkg/util"
)

const defaultBatchSize = 50

// ReconciliationService drives pending reconciliation tasks through the
// matcher and persists their outcomes.
type ReconciliationService struct {
	repo       repository.ReconciliationRepository
	reader     cbs.Reader
	clock      clock.Clock
	logger     *zap.Logger
	dispatcher events.Dispatcher
}

// ReconciliationDependencies bundles collaborators.
type ReconciliationDependencies struct {
	Repo       repository.ReconciliationRepository
	Reader     cbs.Reader
	Clock      clock.Clock
	Logger     *zap.Logger
	Dispatcher events.Dispatcher
}

// Discrepancy describes one mismatched field after a reconciliation pass.
type Discrepancy struct {
	Field      string
	FieldLabel string
	Expected   string
	Actual     string
	Severity   recon.Severity
}

// ReconcileResult is the payload returned by a reconciliation attempt.
type ReconcileResult struct {
	TaskID        string
	Status        domain.TaskStatus
	MatchedFields int
	TotalFields   int
	Discrepancies []Discrepancy
	CheckedAt     time.Time
}

// BatchResult aggregates a bulk run.
type BatchResult struct {
	Success int
	Failed  int
	Total   int
}

// TaskView is a task enriched with its corrections for read endpoints.
type TaskView struct {
	Task        domain.ReconciliationTask
	Corrections []domain.Correction
}

// CorrectionInput describes one proposed field change.
type CorrectionInput struct {
	FieldName  string
	FieldLabel string
	OldValue   string
	NewValue   string
}

// NewReconciliationService constructs the service.
func NewReconciliationService(deps ReconciliationDependencies) *ReconciliationService {
	svc := &ReconciliationService{
		repo:       deps.Repo,
		reader:     deps.Reader,
		clock:      deps.Clock,
		logger:     deps.Logger,
		dispatcher: deps.Dispatcher,
	}
	if svc.clock == nil {
		svc.clock = clock.System()
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

// CreateTask registers a pending reconciliation task for a ticket entering
// the CBS-update phase.
func (s *ReconciliationService) CreateTask(ctx context.Context, ticketNumber, clientID string) (*domain.ReconciliationTask, error) {
	task := &domain.ReconciliationTask{
		ID:           uuid.NewString(),
		TicketNumber: ticketNumber,
		ClientID:     clientID,
		Status:       domain.TaskStatusPending,
	}
	if err := s.repo.CreateTask(ctx, task); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("reconciliation task created",
		zap.String("task_id", task.ID),
		zap.String("ticket_number", ticketNumber))
	return task, nil
}

// ProposeCorrections records the field-level changes a reconciliation pass
// will verify.
func (s *ReconciliationService) ProposeCorrections(ctx context.Context, ticketNumber string, inputs []CorrectionInput) ([]domain.Correction, error) {
	if len(inputs) == 0 {
		return nil, apperrors.NewValidationError("at least one correction is required", nil)
	}
	corrections := make([]domain.Correction, len(inputs))
	for i, in := range inputs {
		corrections[i] = domain.Correction{
			TicketNumber: ticketNumber,
			FieldName:    in.FieldName,
			FieldLabel:   in.FieldLabel,
			OldValue:     in.OldValue,
			NewValue:     in.NewValue,
		}
	}
	if err := s.repo.CreateCorrections(ctx, corrections); err != nil {
		return nil, apperrors.MapError(err)
	}
	return corrections, nil
}

// ReconcileTask runs one reconciliation attempt: fetch the authoritative CBS
// record, diff every correction against it, and persist verdicts plus the
// aggregate outcome in one unit. Fetch failures mark the task failed rather
// than leaving it pending.
func (s *ReconciliationService) ReconcileTask(ctx context.Context, taskID string) (*ReconcileResult, error) {
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("reconciliation task", map[string]any{"task_id": taskID})
		}
		return nil, apperrors.MapError(err)
	}

	corrections, err := s.repo.ListCorrections(ctx, task.TicketNumber)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	record, err := s.reader.GetClient(ctx, task.ClientID)
	if err != nil {
		return nil, s.failTask(ctx, task, err)
	}

	now := s.clock.Now()
	verdicts := recon.Evaluate(corrections, record)
	outcome := recon.Outcome(verdicts)

	for i := range corrections {
		v := verdicts[i]
		actual := v.Actual
		matched := v.Matched
		corrections[i].CBSValue = &actual
		corrections[i].Matched = &matched
		corrections[i].LastCheckedAt = &now
	}

	task.Status = outcome
	task.Attempts++
	task.LastAttemptAt = &now
	task.ErrorMessage = nil
	// The reconciled stamp marks the first fully-matched attempt and is
	// never moved by later runs.
	if outcome == domain.TaskStatusReconciled && task.ReconciledAt == nil {
		task.ReconciledAt = &now
	}

	if err := s.repo.ApplyOutcome(ctx, task, corrections); err != nil {
		return nil, apperrors.MapError(err)
	}

	matched := recon.MatchedCount(verdicts)
	result := &ReconcileResult{
		TaskID:        task.ID,
		Status:        outcome,
		MatchedFields: matched,
		TotalFields:   len(verdicts),
		CheckedAt:     now,
	}
	for _, v := range recon.Mismatches(verdicts) {
		result.Discrepancies = append(result.Discrepancies, Discrepancy{
			Field:      v.FieldName,
			FieldLabel: v.FieldLabel,
			Expected:   v.Expected,
			Actual:     v.Actual,
			Severity:   v.Severity,
		})
	}

	s.logger.Info("reconciliation attempt finished",
		zap.String("task_id", task.ID),
		zap.String("status", string(outcome)),
		zap.Int("matched", matched),
		zap.Int("total", len(verdicts)))

	s.publishCompleted(ctx, task, matched, len(verdicts))
	return result, nil
}

// ReconcileAll runs up to maxTasks pending tasks, optionally filtered by
// agency. Tasks are independent: one failing task never aborts the batch.
func (s *ReconciliationService) ReconcileAll(ctx context.Context, agencyCode *string, maxTasks int) (*BatchResult, error) {
	if maxTasks <= 0 {
		maxTasks = defaultBatchSize
	}
	pending := domain.TaskStatusPending
	tasks, err := s.repo.ListTasks(ctx, repository.TaskFilter{
		AgencyCode: agencyCode,
		Status:     &pending,
		Limit:      maxTasks,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	result := &BatchResult{Total: len(tasks)}
	for _, task := range tasks {
		attempt, err := s.ReconcileTask(ctx, task.ID)
		if err != nil {
			s.logger.Error("batch reconciliation task failed",
				zap.String("task_id", task.ID),
				zap.Error(err))
			result.Failed++
			continue
		}
		if attempt.Status == domain.TaskStatusReconciled {
			result.Success++
		} else {
			result.Failed++
		}
	}
	return result, nil
}

// ListPending returns pending tasks with their corrections attached.
func (s *ReconciliationService) ListPending(ctx context.Context, agencyCode, clientID *string) ([]TaskView, error) {
	pending := domain.TaskStatusPending
	return s.listViews(ctx, repository.TaskFilter{
		AgencyCode: agencyCode,
		ClientID:   clientID,
		Status:     &pending,
	})
}

// ListHistory returns tasks matching the filter with corrections attached.
func (s *ReconciliationService) ListHistory(ctx context.Context, filter repository.TaskFilter) ([]TaskView, error) {
	if filter.Limit <= 0 {
		filter.Limit = 500
	}
	return s.listViews(ctx, filter)
}

// Stats summarizes the task backlog.
func (s *ReconciliationService) Stats(ctx context.Context, agencyCode *string) (*domain.ReconciliationStats, error) {
	stats, err := s.repo.Stats(ctx, agencyCode, s.clock.Now())
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return stats, nil
}

func (s *ReconciliationService) listViews(ctx context.Context, filter repository.TaskFilter) ([]TaskView, error) {
	tasks, err := s.repo.ListTasks(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	views := make([]TaskView, 0, len(tasks))
	for _, task := range tasks {
		corrections, err := s.repo.ListCorrections(ctx, task.TicketNumber)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		views = append(views, TaskView{Task: task, Corrections: corrections})
	}
	return views, nil
}

// failTask marks the task failed after an unusable CBS fetch, increments the
// attempt counter, and returns the typed error for the caller.
func (s *ReconciliationService) failTask(ctx context.Context, task *domain.ReconciliationTask, cause error) error {
	now := s.clock.Now()
	message := cause.Error()
	task.Status = domain.TaskStatusFailed
	task.Attempts++
	task.LastAttemptAt = &now
	task.ErrorMessage = &message

	if err := s.repo.ApplyOutcome(ctx, task, nil); err != nil {
		s.logger.Error("failed to persist reconciliation failure",
			zap.String("task_id", task.ID),
			zap.Error(err))
	}

	switch {
	case errors.Is(cause, cbs.ErrClientNotFound):
		return apperrors.NewSourceRecordNotFound(task.ClientID)
	case errors.Is(cause, cbs.ErrTimeout):
		return apperrors.NewExternalTimeout("core banking system", cause)
	default:
		return apperrors.MapError(cause)
	}
}

func (s *ReconciliationService) publishCompleted(ctx context.Context, task *domain.ReconciliationTask, matched, total int) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:           uuid.NewString(),
		Type:         events.EventReconciliationCompleted,
		TicketNumber: task.TicketNumber,
		Timestamp:    s.clock.Now(),
		Payload: events.ReconciliationCompletedPayload{
			TaskID:        task.ID,
			Status:        task.Status,
			MatchedFields: matched,
			TotalFields:   total,
		},
	})
}
