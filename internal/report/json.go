package report

import (
	"encoding/json"
	"io"

	"revenue-audit/internal/models"
)

// WriteJSON renders the full report as indented JSON for downstream tooling.
// charts may be nil, in which case the field is omitted.
func WriteJSON(w io.Writer, report *models.AuditReport, charts *Charts) error {
	payload := struct {
		*models.AuditReport
		Charts *Charts `json:"charts,omitempty"`
	}{AuditReport: report, Charts: charts}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
