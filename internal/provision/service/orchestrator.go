// Package service orchestrates the identity provisioning saga: credential,
// then domain record, then profile record, with compensating rollback when a
// later step fails.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"rollbook/internal/audit"
	"rollbook/internal/provision/accounts"
	provmetrics "rollbook/internal/provision/metrics"
	"rollbook/internal/provision/models"
	"rollbook/internal/provision/secrets"
	"rollbook/internal/provision/store"
	dErrors "rollbook/pkg/domain-errors"
	"rollbook/pkg/platform/sentinel"
	"rollbook/pkg/requestcontext"
)

// enrollmentAttempts bounds the regenerate-and-retry loop on store-side
// enrollment-id uniqueness violations.
const enrollmentAttempts = 3

// Orchestrator executes the provisioning saga against the external account
// service and the record store.
type Orchestrator struct {
	accounts     accounts.Service
	stores       store.Stores
	issuer       *accounts.Issuer
	logger       *slog.Logger
	auditor      *audit.Publisher
	metrics      *provmetrics.Metrics
	latch        *inflightLatch
	secretLength int
	emailDomain  string
}

type Option func(*Orchestrator)

func WithIssuer(issuer *accounts.Issuer) Option {
	return func(o *Orchestrator) { o.issuer = issuer }
}

func WithAudit(p *audit.Publisher) Option {
	return func(o *Orchestrator) { o.auditor = p }
}

func WithMetrics(m *provmetrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func WithSecretLength(n int) Option {
	return func(o *Orchestrator) { o.secretLength = n }
}

func WithEmailDomain(domain string) Option {
	return func(o *Orchestrator) { o.emailDomain = domain }
}

func New(accountSvc accounts.Service, stores store.Stores, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		accounts:     accountSvc,
		stores:       stores,
		logger:       logger,
		latch:        newInflightLatch(),
		secretLength: secrets.DefaultSecretLength,
		emailDomain:  "students.rollbook.local",
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Provision turns a person into a logged-in-capable identity. Steps run
// strictly in order: credential, domain record, profile record. On failure
// the recorded compensations run in reverse before the error is returned,
// so the caller never observes a lingering domain record.
//
// The returned secret is handed out exactly once; it is never persisted or
// re-derivable.
func (o *Orchestrator) Provision(ctx context.Context, role models.Role, attrs models.Attributes) (models.IssuedCredentials, error) {
	var none models.IssuedCredentials

	if err := attrs.Validate(role); err != nil {
		return none, err
	}

	key := submissionKey(ctx, role, attrs)
	if !o.latch.tryAcquire(key) {
		return none, dErrors.New(dErrors.CodeConflict, "an identical submission is already in flight")
	}
	defer o.latch.release(key)

	start := time.Now()
	defer o.metrics.ObserveProvision(start)

	now := requestcontext.Now(ctx)
	institution := requestcontext.InstitutionID(ctx)

	enrollmentID, err := secrets.NewEnrollmentID(role, now)
	if err != nil {
		return none, dErrors.Wrap(err, dErrors.CodeInternal, "could not generate enrollment id")
	}
	secret, err := secrets.GenerateSecret(o.secretLength)
	if err != nil {
		return none, dErrors.Wrap(err, dErrors.CodeInternal, "could not generate secret")
	}

	// Step 1: credential. Nothing to roll back yet on failure.
	login := attrs.Email
	if login == "" {
		login = strings.ToLower(enrollmentID) + "@" + o.emailDomain
	}
	authSubjectID, err := o.accounts.CreateCredential(ctx, login, o.issuer.Issue(ctx, secret))
	if err != nil {
		return none, classifyCredentialErr(err)
	}

	sg := &saga{}
	// From here every failure leaves the credential orphaned: the account
	// service's privilege model does not let us delete it reliably.
	sg.record("credential", nil)

	// Step 2: domain record. A store-side enrollment-id conflict is
	// retryable with a regenerated id, bounded.
	var studentID, staffID *uuid.UUID
	if role.HasDomainRecord() {
		recordID := uuid.New()
		enrollmentID, err = o.createDomainRecord(ctx, role, recordID, enrollmentID, institution, attrs, now)
		if err != nil {
			return none, o.failPartial(ctx, sg, role, enrollmentID, authSubjectID, "domain record creation failed", err)
		}
		switch role {
		case models.RoleStudent:
			studentID = &recordID
			sg.record("domain_record", func(ctx context.Context) error {
				return o.stores.Students.Delete(ctx, recordID)
			})
		case models.RoleStaff:
			staffID = &recordID
			sg.record("domain_record", func(ctx context.Context) error {
				return o.stores.Staff.Delete(ctx, recordID)
			})
		}
	}

	// Step 3: profile record, keyed by the credential's auth-subject id.
	profile := &models.Profile{
		ID:            authSubjectID,
		Role:          role,
		InstitutionID: institution,
		EnrollmentID:  enrollmentID,
		StudentID:     studentID,
		StaffID:       staffID,
		CreatedAt:     now,
	}
	if err := o.stores.Profiles.Create(ctx, profile); err != nil {
		return none, o.failPartial(ctx, sg, role, enrollmentID, authSubjectID, "profile record creation failed", err)
	}

	o.metrics.IncrementProvisioned(string(role))
	if err := o.auditor.Emit(ctx, audit.Event{
		Action:        audit.ActionProvisioned,
		Role:          string(role),
		EnrollmentID:  enrollmentID,
		AuthSubjectID: authSubjectID.String(),
	}); err != nil {
		o.logger.WarnContext(ctx, "audit emit failed", "error", err.Error())
	}

	return models.IssuedCredentials{EnrollmentID: enrollmentID, Secret: secret}, nil
}

// createDomainRecord inserts the role table row, regenerating the enrollment
// id on unique-constraint conflicts. Returns the enrollment id that was
// finally accepted.
func (o *Orchestrator) createDomainRecord(
	ctx context.Context,
	role models.Role,
	recordID uuid.UUID,
	enrollmentID string,
	institution string,
	attrs models.Attributes,
	now time.Time,
) (string, error) {
	for attempt := 1; ; attempt++ {
		var err error
		switch role {
		case models.RoleStudent:
			err = o.stores.Students.Create(ctx, &models.StudentRecord{
				ID:            recordID,
				InstitutionID: institution,
				EnrollmentID:  enrollmentID,
				FullName:      attrs.FullName,
				Grade:         attrs.Grade,
				Email:         attrs.Email,
				Phone:         attrs.Phone,
				CreatedAt:     now,
				UpdatedAt:     now,
			})
		case models.RoleStaff:
			err = o.stores.Staff.Create(ctx, &models.StaffRecord{
				ID:            recordID,
				InstitutionID: institution,
				EnrollmentID:  enrollmentID,
				FullName:      attrs.FullName,
				Position:      attrs.Position,
				Email:         attrs.Email,
				Phone:         attrs.Phone,
				CreatedAt:     now,
				UpdatedAt:     now,
			})
		}
		if err == nil {
			return enrollmentID, nil
		}
		if !errors.Is(err, sentinel.ErrConflict) || attempt >= enrollmentAttempts {
			return enrollmentID, err
		}
		o.logger.InfoContext(ctx, "enrollment id collided, regenerating",
			"enrollment_id", enrollmentID,
			"attempt", attempt,
		)
		enrollmentID, err = secrets.NewEnrollmentID(role, now)
		if err != nil {
			return "", err
		}
	}
}

// failPartial rolls back the saga, classifies the failure as partial
// provisioning (the credential survives it), and logs it distinctly so
// operators can reconcile the orphaned credential manually.
func (o *Orchestrator) failPartial(
	ctx context.Context,
	sg *saga,
	role models.Role,
	enrollmentID string,
	authSubjectID uuid.UUID,
	reason string,
	cause error,
) error {
	uncompensated := sg.rollback(ctx, o.logger)

	o.metrics.IncrementPartialFailure()
	o.logger.ErrorContext(ctx, "partial provisioning failure",
		"reason", reason,
		"error", cause.Error(),
		"role", string(role),
		"enrollment_id", enrollmentID,
		"orphaned_credential", authSubjectID.String(),
		"uncompensated_steps", strings.Join(uncompensated, ","),
		"request_id", requestcontext.RequestID(ctx),
	)
	if err := o.auditor.Emit(ctx, audit.Event{
		Action:        audit.ActionPartialProvisioning,
		Role:          string(role),
		EnrollmentID:  enrollmentID,
		AuthSubjectID: authSubjectID.String(),
		Reason:        reason,
	}); err != nil {
		o.logger.WarnContext(ctx, "audit emit failed", "error", err.Error())
	}

	return dErrors.Wrap(cause, dErrors.CodePartialProvisioning, reason)
}

// classifyCredentialErr maps account-service failures during credential
// creation. A duplicate login identifier implies a real duplicate person and
// is fatal for this submission, never retried.
func classifyCredentialErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeDuplicate, "login identifier already exists")
	case errors.Is(err, sentinel.ErrRateLimited):
		return dErrors.Wrap(err, dErrors.CodeUpstream, "account service rate limited")
	default:
		return dErrors.Wrap(err, dErrors.CodeUpstream, "account service call failed")
	}
}

func submissionKey(ctx context.Context, role models.Role, attrs models.Attributes) string {
	return strings.Join([]string{
		requestcontext.OperatorID(ctx),
		string(role),
		attrs.FullName,
		attrs.Email,
		attrs.Phone,
	}, "|")
}
