package batch

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"rollbook/internal/audit"
	"rollbook/internal/provision/models"

	provmetrics "rollbook/internal/provision/metrics"
	dErrors "rollbook/pkg/domain-errors"
)

// Provisioner is the orchestrator surface the pipeline needs.
type Provisioner interface {
	Provision(ctx context.Context, role models.Role, attrs models.Attributes) (models.IssuedCredentials, error)
}

// Pipeline runs the provisioning saga once per row.
type Pipeline struct {
	provisioner Provisioner
	logger      *slog.Logger
	metrics     *provmetrics.Metrics
	auditor     *audit.Publisher
}

func NewPipeline(provisioner Provisioner, logger *slog.Logger, metrics *provmetrics.Metrics) *Pipeline {
	return &Pipeline{provisioner: provisioner, logger: logger, metrics: metrics}
}

// WithAudit attaches the audit publisher; the pipeline records one
// batch-completed event per run.
func (p *Pipeline) WithAudit(auditor *audit.Publisher) *Pipeline {
	p.auditor = auditor
	return p
}

// RunReader parses the uploaded file and runs the batch.
func (p *Pipeline) RunReader(ctx context.Context, role models.Role, r io.Reader) ([]models.RowOutcome, error) {
	rows, err := ParseRows(r)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "could not parse uploaded file")
	}
	return p.Run(ctx, role, rows), nil
}

// Run processes rows strictly sequentially: the external services share rate
// limits, and sequential rows keep error isolation trivial. Every propagated
// error becomes a row outcome; the batch always runs to the end, returning
// exactly one outcome per well-formed input row, in input order.
func (p *Pipeline) Run(ctx context.Context, role models.Role, rows []Row) []models.RowOutcome {
	outcomes := make([]models.RowOutcome, 0, len(rows))
	succeeded := 0
	for _, row := range rows {
		outcome := p.processRow(ctx, role, row)
		p.metrics.IncrementBatchRow(string(outcome.Status))
		if outcome.Status == models.OutcomeSuccess {
			succeeded++
		}
		outcomes = append(outcomes, outcome)
	}
	if err := p.auditor.Emit(ctx, audit.Event{
		Action: audit.ActionBatchRun,
		Role:   string(role),
		Reason: fmt.Sprintf("%d/%d rows provisioned", succeeded, len(outcomes)),
	}); err != nil {
		p.logger.WarnContext(ctx, "failed to record batch audit event", "error", err.Error())
	}
	return outcomes
}

func (p *Pipeline) processRow(ctx context.Context, role models.Role, row Row) models.RowOutcome {
	attrs := row.attributes()
	outcome := models.RowOutcome{Row: row.Index, FullName: attrs.FullName}

	// Validation failures skip the orchestrator entirely.
	if err := attrs.Validate(role); err != nil {
		outcome.Status = models.OutcomeError
		outcome.Message = dErrors.MessageOf(err)
		return outcome
	}

	creds, err := p.provisioner.Provision(ctx, role, attrs)
	if err != nil {
		p.logger.WarnContext(ctx, "batch row failed",
			"row", row.Index,
			"error", err.Error(),
		)
		outcome.Status = models.OutcomeError
		outcome.Message = dErrors.MessageOf(err)
		return outcome
	}

	outcome.Status = models.OutcomeSuccess
	outcome.EnrollmentID = creds.EnrollmentID
	outcome.Secret = creds.Secret
	return outcome
}
