// Package store holds the record-store boundary for domain and profile
// records. The relational store is the sole arbiter of enrollment-id
// uniqueness: implementations surface a unique-constraint violation as
// sentinel.ErrConflict and callers regenerate rather than fail.
package store

import (
	"context"

	"github.com/google/uuid"

	"rollbook/internal/provision/models"
)

// StudentStore persists student domain records.
type StudentStore interface {
	Create(ctx context.Context, rec *models.StudentRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.StudentRecord, error)
	Update(ctx context.Context, rec *models.StudentRecord) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// StaffStore persists staff domain records.
type StaffStore interface {
	Create(ctx context.Context, rec *models.StaffRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.StaffRecord, error)
	Update(ctx context.Context, rec *models.StaffRecord) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ProfileStore persists the join records keyed by auth-subject id.
//
// FindByStudentID / FindByStaffID are the indexed lookups from a domain
// record to its profile. The credential's auth-subject id is the profile's
// id, not the domain record's id, so this indirection is never inferred by
// convention.
type ProfileStore interface {
	Create(ctx context.Context, p *models.Profile) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	FindByStudentID(ctx context.Context, studentID uuid.UUID) (*models.Profile, error)
	FindByStaffID(ctx context.Context, staffID uuid.UUID) (*models.Profile, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// ListIDs returns all profile ids (auth-subject ids). The reconciliation
	// sweep diffs them against the account service's credential list.
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}

// Stores bundles the three tables for wiring.
type Stores struct {
	Students StudentStore
	Staff    StaffStore
	Profiles ProfileStore
}
