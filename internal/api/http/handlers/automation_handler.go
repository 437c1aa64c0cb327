package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bsic-bank/dataquality-service/internal/api/dto"
	"github.com/bsic-bank/dataquality-service/internal/automation"
	"github.com/bsic-bank/dataquality-service/internal/service"
	apperrors "github.com/bsic-bank/dataquality-service/pkg/util"
)

// AutomationHandler receives callbacks from the RPA orchestrator.
type AutomationHandler struct {
	service *service.AutomationService
}

// NewAutomationHandler constructs handler.
func NewAutomationHandler(automationService *service.AutomationService) *AutomationHandler {
	return &AutomationHandler{service: automationService}
}

// Callback POST /automation/callback.
func (h *AutomationHandler) Callback(c *fiber.Ctx) error {
	var req dto.AutomationCallbackRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.JobID == "" || req.TicketNumber == "" {
		return apperrors.NewValidationError("jobId and ticketNumber required", nil)
	}

	err := h.service.HandleCallback(c.UserContext(), automation.Callback{
		JobID:        req.JobID,
		TicketNumber: req.TicketNumber,
		Success:      req.Success,
		ErrorMessage: req.ErrorMessage,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "processed"}})
}
