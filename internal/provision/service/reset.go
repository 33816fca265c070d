package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"rollbook/internal/audit"
	"rollbook/internal/provision/models"
	"rollbook/internal/provision/secrets"
	dErrors "rollbook/pkg/domain-errors"
	"rollbook/pkg/platform/sentinel"
)

// Reset regenerates the secret for an existing identity. The profile is
// looked up by its foreign key to the domain record, never by the domain
// record's primary key: the credential's auth-subject id is the profile's
// id. Records imported before provisioning existed have no profile and
// surface NotProvisioned, a real, expected case.
//
// Only the credential changes; the enrollment id is stable across resets.
func (o *Orchestrator) Reset(ctx context.Context, role models.Role, domainRecordID uuid.UUID) (models.IssuedCredentials, error) {
	var none models.IssuedCredentials

	profile, err := o.lookupProfile(ctx, role, domainRecordID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return none, dErrors.New(dErrors.CodeNotProvisioned, "record has no provisioned credential")
		}
		return none, dErrors.Wrap(err, dErrors.CodeUpstream, "profile lookup failed")
	}

	secret, err := secrets.GenerateSecret(o.secretLength)
	if err != nil {
		return none, dErrors.Wrap(err, dErrors.CodeInternal, "could not generate secret")
	}

	if err := o.accounts.ReplaceSecret(ctx, profile.ID, o.issuer.Issue(ctx, secret)); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return none, dErrors.Wrap(err, dErrors.CodeNotProvisioned, "credential missing for profile")
		}
		return none, dErrors.Wrap(err, dErrors.CodeUpstream, "secret replacement failed")
	}

	o.metrics.IncrementReset()
	if err := o.auditor.Emit(ctx, audit.Event{
		Action:        audit.ActionReset,
		Role:          string(profile.Role),
		EnrollmentID:  profile.EnrollmentID,
		AuthSubjectID: profile.ID.String(),
	}); err != nil {
		o.logger.WarnContext(ctx, "audit emit failed", "error", err.Error())
	}

	return models.IssuedCredentials{EnrollmentID: profile.EnrollmentID, Secret: secret}, nil
}

func (o *Orchestrator) lookupProfile(ctx context.Context, role models.Role, domainRecordID uuid.UUID) (*models.Profile, error) {
	switch role {
	case models.RoleStudent:
		return o.stores.Profiles.FindByStudentID(ctx, domainRecordID)
	case models.RoleStaff:
		return o.stores.Profiles.FindByStaffID(ctx, domainRecordID)
	default:
		// Librarians have no domain record; the id is the profile id itself.
		return o.stores.Profiles.FindByID(ctx, domainRecordID)
	}
}
