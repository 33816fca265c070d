// Package report aggregates batch outcomes into a summary and renders the
// downloadable artifacts: the per-row outcome table and the one-time
// credential manifest.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"rollbook/internal/provision/models"
)

// Summary is the aggregate batch result.
type Summary struct {
	SuccessCount int `json:"success_count"`
	ErrorCount   int `json:"error_count"`
}

// Summarize counts outcomes by status.
func Summarize(outcomes []models.RowOutcome) Summary {
	var s Summary
	for _, o := range outcomes {
		if o.Status == models.OutcomeSuccess {
			s.SuccessCount++
		} else {
			s.ErrorCount++
		}
	}
	return s
}

// WriteOutcomes renders the human-readable outcome table as delimited text,
// one line per processed row, in input order. Secrets never appear here.
func WriteOutcomes(w io.Writer, outcomes []models.RowOutcome) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"row", "full_name", "enrollment_id", "status", "message"}); err != nil {
		return fmt.Errorf("write outcome header: %w", err)
	}
	for _, o := range outcomes {
		record := []string{strconv.Itoa(o.Row), o.FullName, o.EnrollmentID, string(o.Status), o.Message}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write outcome row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteManifest renders the credential manifest for successful rows only.
// This is the single place a secret leaves the system, intended for one-time
// secure download; the manifest is never persisted.
func WriteManifest(w io.Writer, outcomes []models.RowOutcome) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"full_name", "enrollment_id", "secret"}); err != nil {
		return fmt.Errorf("write manifest header: %w", err)
	}
	for _, o := range outcomes {
		if o.Status != models.OutcomeSuccess {
			continue
		}
		if err := cw.Write([]string{o.FullName, o.EnrollmentID, o.Secret}); err != nil {
			return fmt.Errorf("write manifest row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
