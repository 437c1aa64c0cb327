package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/bsic-bank/dataquality-service/internal/api/dto"
	"github.com/bsic-bank/dataquality-service/internal/domain"
	"github.com/bsic-bank/dataquality-service/internal/repository"
	"github.com/bsic-bank/dataquality-service/internal/service"
	apperrors "github.com/bsic-bank/dataquality-service/pkg/util"
)

// ReconciliationHandler exposes reconciliation task endpoints.
type ReconciliationHandler struct {
	service *service.ReconciliationService
}

// NewReconciliationHandler constructs handler.
func NewReconciliationHandler(reconciliationService *service.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{service: reconciliationService}
}

// CreateTask POST /reconciliation/tasks.
func (h *ReconciliationHandler) CreateTask(c *fiber.Ctx) error {
	var req dto.CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.TicketNumber == "" || req.ClientID == "" {
		return apperrors.NewValidationError("ticket_number and client_id required", nil)
	}

	task, err := h.service.CreateTask(c.UserContext(), req.TicketNumber, req.ClientID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.FromTask(task)})
}

// ProposeCorrections POST /reconciliation/tickets/:number/corrections.
func (h *ReconciliationHandler) ProposeCorrections(c *fiber.Ctx) error {
	number := c.Params("number")
	if number == "" {
		return apperrors.NewValidationError("ticket number required", nil)
	}
	var req dto.ProposeCorrectionsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	corrections, err := h.service.ProposeCorrections(c.UserContext(), number, dto.ToCorrectionInputs(req.Corrections))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.FromCorrections(corrections)})
}

// Reconcile POST /reconciliation/tasks/:id/run.
func (h *ReconciliationHandler) Reconcile(c *fiber.Ctx) error {
	taskID := c.Params("id")
	if taskID == "" {
		return apperrors.NewValidationError("task id required", nil)
	}
	result, err := h.service.ReconcileTask(c.UserContext(), taskID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromReconcileResult(result)})
}

// ReconcileAll POST /reconciliation/run.
func (h *ReconciliationHandler) ReconcileAll(c *fiber.Ctx) error {
	var req dto.ReconcileAllRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	result, err := h.service.ReconcileAll(c.UserContext(), req.AgencyCode, req.MaxTasks)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.BatchResultResponse{
		Success: result.Success,
		Failed:  result.Failed,
		Total:   result.Total,
	}})
}

// ListPending GET /reconciliation/pending.
func (h *ReconciliationHandler) ListPending(c *fiber.Ctx) error {
	var agencyCode, clientID *string
	if v := c.Query("agency_code"); v != "" {
		agencyCode = &v
	}
	if v := c.Query("client_id"); v != "" {
		clientID = &v
	}
	views, err := h.service.ListPending(c.UserContext(), agencyCode, clientID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTaskViews(views)})
}

// ListHistory GET /reconciliation/history.
func (h *ReconciliationHandler) ListHistory(c *fiber.Ctx) error {
	filter := repository.TaskFilter{Limit: c.QueryInt("limit", 100)}
	if v := c.Query("agency_code"); v != "" {
		filter.AgencyCode = &v
	}
	if v := c.Query("client_id"); v != "" {
		filter.ClientID = &v
	}
	if v := c.Query("ticket_number"); v != "" {
		filter.TicketNumber = &v
	}
	if v := c.Query("status"); v != "" {
		status := domain.TaskStatus(strings.ToLower(v))
		filter.Status = &status
	}
	views, err := h.service.ListHistory(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTaskViews(views)})
}

// Stats GET /reconciliation/stats.
func (h *ReconciliationHandler) Stats(c *fiber.Ctx) error {
	var agencyCode *string
	if v := c.Query("agency_code"); v != "" {
		agencyCode = &v
	}
	stats, err := h.service.Stats(c.UserContext(), agencyCode)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromStats(stats)})
}
