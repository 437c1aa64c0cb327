package dto

import (
	"time"

	"github.com/bsic-bank/dataquality-service/internal/domain"
	"github.com/bsic-bank/dataquality-service/internal/service"
)

// KpiResponse is one computed indicator row.
type KpiResponse struct {
	PeriodDate             string  `json:"period_date"`
	AgencyCode             string  `json:"agency_code"`
	KpiType                string  `json:"kpi_type"`
	KpiValue               float64 `json:"kpi_value"`
	TargetValue            float64 `json:"target_value"`
	TicketsTotal           int     `json:"tickets_total"`
	TicketsClosed          int     `json:"tickets_closed"`
	TicketsSLARespected    int     `json:"tickets_sla_respected"`
	TicketsSLABreached     int     `json:"tickets_sla_breached"`
	AvgResolutionTimeHours float64 `json:"avg_resolution_time_hours"`
}

// DashboardResponse is the per-scope snapshot for one day.
type DashboardResponse struct {
	AgencyCode        string  `json:"agency_code"`
	Date              string  `json:"date"`
	ClosureRate       float64 `json:"closure_rate"`
	SLACompliance     float64 `json:"sla_compliance"`
	AvgResolutionTime float64 `json:"avg_resolution_time"`
	TicketsTotal      int     `json:"tickets_total"`
	TicketsClosed     int     `json:"tickets_closed"`
	TicketsBreached   int     `json:"tickets_breached"`
}

// FromKpis maps indicator rows.
func FromKpis(kpis []domain.Kpi) []KpiResponse {
	out := make([]KpiResponse, len(kpis))
	for i, k := range kpis {
		out[i] = KpiResponse{
			PeriodDate:             k.PeriodDate.Format("2006-01-02"),
			AgencyCode:             k.AgencyCode,
			KpiType:                string(k.KpiType),
			KpiValue:               k.KpiValue,
			TargetValue:            k.TargetValue,
			TicketsTotal:           k.TicketsTotal,
			TicketsClosed:          k.TicketsClosed,
			TicketsSLARespected:    k.TicketsSLARespected,
			TicketsSLABreached:     k.TicketsSLABreached,
			AvgResolutionTimeHours: k.AvgResolutionTimeHours,
		}
	}
	return out
}

// FromDashboard maps the dashboard snapshot.
func FromDashboard(agencyCode string, date time.Time, m *service.DashboardMetrics) DashboardResponse {
	return DashboardResponse{
		AgencyCode:        agencyCode,
		Date:              date.Format("2006-01-02"),
		ClosureRate:       m.ClosureRate,
		SLACompliance:     m.SLACompliance,
		AvgResolutionTime: m.AvgResolutionTime,
		TicketsTotal:      m.TicketsTotal,
		TicketsClosed:     m.TicketsClosed,
		TicketsBreached:   m.TicketsBreached,
	}
}
