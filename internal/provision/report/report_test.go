package report

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollbook/internal/provision/models"
)

func sampleOutcomes() []models.RowOutcome {
	return []models.RowOutcome{
		{Row: 1, FullName: "Ada", EnrollmentID: "STU0001", Secret: "Aa1!secret9", Status: models.OutcomeSuccess},
		{Row: 2, FullName: "Bob", Status: models.OutcomeError, Message: "missing required fields: grade"},
		{Row: 3, FullName: "Cleo, the Third", EnrollmentID: "STU0003", Secret: "Cc3!secret9", Status: models.OutcomeSuccess},
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleOutcomes())
	assert.Equal(t, 2, s.SuccessCount)
	assert.Equal(t, 1, s.ErrorCount)

	empty := Summarize(nil)
	assert.Equal(t, 0, empty.SuccessCount)
	assert.Equal(t, 0, empty.ErrorCount)
}

func TestWriteOutcomes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteOutcomes(&buf, sampleOutcomes()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4, "header plus one line per row")

	assert.Equal(t, []string{"row", "full_name", "enrollment_id", "status", "message"}, records[0])
	assert.Equal(t, []string{"2", "Bob", "", "error", "missing required fields: grade"}, records[2])

	// A name containing the delimiter survives the round trip.
	assert.Equal(t, "Cleo, the Third", records[3][1])

	// Secrets never appear in the outcome table.
	assert.NotContains(t, buf.String(), "Aa1!secret9")
}

func TestWriteManifest(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteManifest(&buf, sampleOutcomes()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3, "header plus successful rows only")

	assert.Equal(t, []string{"full_name", "enrollment_id", "secret"}, records[0])
	assert.Equal(t, []string{"Ada", "STU0001", "Aa1!secret9"}, records[1])
	assert.Equal(t, []string{"Cleo, the Third", "STU0003", "Cc3!secret9"}, records[2])
}
