// Package accounts wraps the external account service that owns
// authenticatable credentials. The service is reachable over a network call
// that can fail, be slow, or be rate-limited; the provisioning saga treats
// every call here as a suspension point with a bounded timeout.
package accounts

import (
	"context"

	"github.com/google/uuid"
)

// Service is the account-service boundary. Implementations must return
// sentinel.ErrConflict for duplicate login identifiers and
// sentinel.ErrRateLimited for throttled calls so callers can classify
// without string matching.
//
// Credentials are write-only from this system's point of view: a secret is
// handed over at creation or reset and never read back.
type Service interface {
	// CreateCredential registers a credential and returns its auth-subject id.
	CreateCredential(ctx context.Context, loginIdentifier, secret string) (uuid.UUID, error)

	// ReplaceSecret overwrites the stored secret for an existing credential.
	ReplaceSecret(ctx context.Context, authSubjectID uuid.UUID, secret string) error

	// DeleteCredential removes a credential. Best-effort: the external
	// privilege model may refuse, which callers must tolerate.
	DeleteCredential(ctx context.Context, authSubjectID uuid.UUID) error

	// ListAuthSubjects returns the auth-subject ids of all credentials this
	// operator can see. Used by the reconciliation sweep to find credentials
	// with no matching profile record.
	ListAuthSubjects(ctx context.Context) ([]uuid.UUID, error)
}
