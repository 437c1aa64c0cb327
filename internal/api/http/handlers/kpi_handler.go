package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/bsic-bank/dataquality-service/internal/api/dto"
	"github.com/bsic-bank/dataquality-service/internal/domain"
	"github.com/bsic-bank/dataquality-service/internal/service"
	apperrors "github.com/bsic-bank/dataquality-service/pkg/util"
)

const dateLayout = "2006-01-02"

// KpiHandler exposes indicator endpoints.
type KpiHandler struct {
	service *service.KpiService
}

// NewKpiHandler constructs handler.
func NewKpiHandler(kpiService *service.KpiService) *KpiHandler {
	return &KpiHandler{service: kpiService}
}

// Calculate POST /kpis/calculate.
func (h *KpiHandler) Calculate(c *fiber.Ctx) error {
	date, err := queryDate(c, "date", time.Now().AddDate(0, 0, -1))
	if err != nil {
		return err
	}
	if err := h.service.CalculateDailyKpis(c.UserContext(), date); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"date":   date.Format(dateLayout),
		"status": "calculated",
	}})
}

// ByDate GET /kpis/date/:date.
func (h *KpiHandler) ByDate(c *fiber.Ctx) error {
	date, err := time.Parse(dateLayout, c.Params("date"))
	if err != nil {
		return apperrors.NewValidationError("invalid date, expected YYYY-MM-DD", nil)
	}
	kpis, err := h.service.GetByDate(c.UserContext(), date)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromKpis(kpis)})
}

// ByAgency GET /kpis/agency/:code.
func (h *KpiHandler) ByAgency(c *fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return apperrors.NewValidationError("agency code required", nil)
	}

	from, err := queryDate(c, "from", time.Time{})
	if err != nil {
		return err
	}
	to, err := queryDate(c, "to", time.Time{})
	if err != nil {
		return err
	}

	var kpis []domain.Kpi
	if !from.IsZero() && !to.IsZero() {
		kpis, err = h.service.GetByRange(c.UserContext(), code, from, to)
	} else {
		kpis, err = h.service.GetByAgency(c.UserContext(), code)
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromKpis(kpis)})
}

// Dashboard GET /kpis/dashboard.
func (h *KpiHandler) Dashboard(c *fiber.Ctx) error {
	date, err := queryDate(c, "date", time.Now().AddDate(0, 0, -1))
	if err != nil {
		return err
	}
	agencyCode := c.Query("agency_code")

	metrics, err := h.service.Dashboard(c.UserContext(), agencyCode, date)
	if err != nil {
		return err
	}
	if agencyCode == "" {
		agencyCode = domain.KpiScopeGlobal
	}
	return c.JSON(fiber.Map{"data": dto.FromDashboard(agencyCode, date, metrics)})
}

func queryDate(c *fiber.Ctx, key string, fallback time.Time) (time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	date, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, apperrors.NewValidationError("invalid "+key+", expected YYYY-MM-DD", nil)
	}
	return date, nil
}
