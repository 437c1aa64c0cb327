// Package recon implements the field-level diffing engine that verifies
// proposed corrections against the core banking system's authoritative
// values. Matching is strict string equality after normalization; there is
// no fuzzy or type-aware comparison.
package recon

import (
	"strings"

	"github.com/bsic-bank/dataquality-service/internal/domain"
)

// Severity classifies a mismatched field for manual-review prioritization.
// It never influences the match verdict itself.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Verdict is the per-correction comparison result.
type Verdict struct {
	FieldName  string
	FieldLabel string
	Expected   string
	Actual     string
	Matched    bool
	Severity   Severity
}

// fieldColumns maps logical correction field names to CBS column names.
// Fields absent from the table map to themselves.
var fieldColumns = map[string]string{
	"name":         "name",
	"firstname":    "firstname",
	"address":      "address",
	"city":         "city",
	"postal_code":  "postal_code",
	"phone":        "phone",
	"email":        "email",
	"birth_date":   "birth_date",
	"nationality":  "nationality",
	"client_type":  "client_type",
	"fatca_status": "fatca_status",
}

var criticalFields = map[string]bool{
	"client_id":   true,
	"tax_id":      true,
	"nationality": true,
}

var importantFields = map[string]bool{
	"name":      true,
	"firstname": true,
	"address":   true,
	"phone":     true,
	"email":     true,
}

// MapField resolves a logical field name to its CBS column.
func MapField(field string) string {
	if col, ok := fieldColumns[field]; ok {
		return col
	}
	return field
}

// Normalize prepares a value for comparison: absent values become the empty
// string, present values are trimmed and lower-cased.
func Normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// Match compares a proposed value against the observed CBS value.
func Match(expected, actual string) bool {
	return Normalize(expected) == Normalize(actual)
}

// FieldSeverity classifies a field for mismatch reporting.
func FieldSeverity(field string) Severity {
	if criticalFields[field] {
		return SeverityHigh
	}
	if importantFields[field] {
		return SeverityMedium
	}
	return SeverityLow
}

// Evaluate produces one verdict per correction against the CBS record.
// Missing CBS columns are compared as empty strings.
func Evaluate(corrections []domain.Correction, record map[string]string) []Verdict {
	verdicts := make([]Verdict, 0, len(corrections))
	for _, correction := range corrections {
		actual := strings.TrimSpace(record[MapField(correction.FieldName)])
		verdicts = append(verdicts, Verdict{
			FieldName:  correction.FieldName,
			FieldLabel: correction.FieldLabel,
			Expected:   correction.NewValue,
			Actual:     actual,
			Matched:    Match(correction.NewValue, actual),
			Severity:   FieldSeverity(correction.FieldName),
		})
	}
	return verdicts
}

// MatchedCount counts verdicts with a positive match.
func MatchedCount(verdicts []Verdict) int {
	matched := 0
	for _, v := range verdicts {
		if v.Matched {
			matched++
		}
	}
	return matched
}

// Mismatches returns the verdicts that did not match, in input order.
func Mismatches(verdicts []Verdict) []Verdict {
	out := make([]Verdict, 0)
	for _, v := range verdicts {
		if !v.Matched {
			out = append(out, v)
		}
	}
	return out
}

// Outcome aggregates verdicts into the task status. A task with zero
// corrections is trivially reconciled: there is nothing left to mismatch,
// and marking it failed would wedge it in the retry queue forever.
func Outcome(verdicts []Verdict) domain.TaskStatus {
	total := len(verdicts)
	if total == 0 {
		return domain.TaskStatusReconciled
	}
	switch matched := MatchedCount(verdicts); {
	case matched == total:
		return domain.TaskStatusReconciled
	case matched > 0:
		return domain.TaskStatusPartial
	default:
		return domain.TaskStatusFailed
	}
}
