package batch

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollbook/internal/audit"
	"rollbook/internal/provision/models"
	dErrors "rollbook/pkg/domain-errors"
)

// fakeProvisioner records calls and fails on demand per full name.
type fakeProvisioner struct {
	calls  []models.Attributes
	failOn map[string]error
}

func (f *fakeProvisioner) Provision(_ context.Context, role models.Role, attrs models.Attributes) (models.IssuedCredentials, error) {
	f.calls = append(f.calls, attrs)
	if err, ok := f.failOn[attrs.FullName]; ok {
		return models.IssuedCredentials{}, err
	}
	return models.IssuedCredentials{
		EnrollmentID: fmt.Sprintf("%s%04d", role.EnrollmentPrefix(), len(f.calls)),
		Secret:       "S3cret!pass",
	}, nil
}

func newTestPipeline(p Provisioner) *Pipeline {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	return NewPipeline(p, logger, nil)
}

func TestRunRowIsolation(t *testing.T) {
	prov := &fakeProvisioner{}
	pipeline := newTestPipeline(prov)

	input := strings.Join([]string{
		"Name,Grade,Parent Email",
		"Ada,Grade 7,a@b.com",
		"Missing Grade,,m@b.com", // invalid: grade required for students
		"Cleo,Grade 9,c@b.com",
	}, "\n")

	outcomes, err := pipeline.RunReader(context.Background(), models.RoleStudent, strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, outcomes, 3, "one outcome per well-formed row")

	assert.Equal(t, models.OutcomeSuccess, outcomes[0].Status)
	assert.Equal(t, models.OutcomeError, outcomes[1].Status)
	assert.Contains(t, outcomes[1].Message, "missing required fields")
	assert.Equal(t, models.OutcomeSuccess, outcomes[2].Status, "a bad row must not abort the batch")

	// Input order preserved via row indexes.
	assert.Equal(t, []int{1, 2, 3}, []int{outcomes[0].Row, outcomes[1].Row, outcomes[2].Row})

	// The invalid row never reached the orchestrator.
	require.Len(t, prov.calls, 2)
	assert.Equal(t, "Ada", prov.calls[0].FullName)
	assert.Equal(t, "Cleo", prov.calls[1].FullName)
}

func TestRunOrchestratorErrorsBecomeOutcomes(t *testing.T) {
	prov := &fakeProvisioner{failOn: map[string]error{
		"Dup": dErrors.New(dErrors.CodeDuplicate, "login identifier already exists"),
	}}
	pipeline := newTestPipeline(prov)

	rows := []Row{
		{Index: 1, Fields: map[string]string{"full_name": "Ada", "grade": "7", "parent_email": "a@b.com"}},
		{Index: 2, Fields: map[string]string{"full_name": "Dup", "grade": "8", "parent_email": "d@b.com"}},
		{Index: 3, Fields: map[string]string{"full_name": "Cleo", "grade": "9", "parent_email": "c@b.com"}},
	}

	outcomes := pipeline.Run(context.Background(), models.RoleStudent, rows)
	require.Len(t, outcomes, 3)
	assert.Equal(t, models.OutcomeSuccess, outcomes[0].Status)
	assert.Equal(t, models.OutcomeError, outcomes[1].Status)
	assert.Equal(t, "login identifier already exists", outcomes[1].Message)
	assert.Equal(t, models.OutcomeSuccess, outcomes[2].Status)
}

func TestRunStaffMissingName(t *testing.T) {
	prov := &fakeProvisioner{}
	pipeline := newTestPipeline(prov)

	input := strings.Join([]string{
		"Name,Email",
		"Mr. Hollis,h@school.edu",
		",anon@school.edu",
		"Ms. Reyes,r@school.edu",
	}, "\n")

	outcomes, err := pipeline.RunReader(context.Background(), models.RoleStaff, strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, outcomes, 3)
	assert.Equal(t, models.OutcomeSuccess, outcomes[0].Status)
	assert.Equal(t, models.OutcomeError, outcomes[1].Status)
	assert.Contains(t, outcomes[1].Message, "missing required fields")
	assert.Equal(t, models.OutcomeSuccess, outcomes[2].Status)
}

func TestRunRecordsAuditEvent(t *testing.T) {
	prov := &fakeProvisioner{failOn: map[string]error{
		"Dup": dErrors.New(dErrors.CodeDuplicate, "login identifier already exists"),
	}}
	store := audit.NewInMemoryStore()
	pipeline := newTestPipeline(prov).WithAudit(audit.NewPublisher(store))

	rows := []Row{
		{Index: 1, Fields: map[string]string{"full_name": "Ada", "grade": "7", "parent_email": "a@b.com"}},
		{Index: 2, Fields: map[string]string{"full_name": "Dup", "grade": "8", "parent_email": "d@b.com"}},
	}
	pipeline.Run(context.Background(), models.RoleStudent, rows)

	events := store.All()
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionBatchRun, events[0].Action)
	assert.Equal(t, "student", events[0].Role)
	assert.Equal(t, "1/2 rows provisioned", events[0].Reason)
}

func TestRunReaderRejectsUnparseableInput(t *testing.T) {
	pipeline := newTestPipeline(&fakeProvisioner{})
	_, err := pipeline.RunReader(context.Background(), models.RoleStudent, strings.NewReader(""))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}
