package domain

import "time"

// KpiType enumerates the computed indicators.
type KpiType string

const (
	KpiClosureRate       KpiType = "CLOSURE_RATE"
	KpiSLACompliance     KpiType = "SLA_COMPLIANCE"
	KpiAvgResolutionTime KpiType = "AVG_RESOLUTION_TIME"
)

// KpiScopeGlobal is the agency-code sentinel pooling all agencies.
const KpiScopeGlobal = "GLOBAL"

// Kpi is one computed indicator row, unique per (period date, agency, type)
// and replaced wholesale on recomputation.
type Kpi struct {
	ID                     int64
	PeriodDate             time.Time
	AgencyCode             string
	KpiType                KpiType
	KpiValue               float64
	TargetValue            float64
	TicketsTotal           int
	TicketsClosed          int
	TicketsSLARespected    int
	TicketsSLABreached     int
	AvgResolutionTimeHours float64
	CreatedAt              time.Time
	UpdatedAt              time.Time
}
