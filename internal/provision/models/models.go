package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "rollbook/pkg/domain-errors"
)

// Role classifies a provisioned identity. Students and staff carry a
// role-specific domain record; librarians are profile-only.
type Role string

const (
	RoleStudent   Role = "student"
	RoleStaff     Role = "staff"
	RoleLibrarian Role = "librarian"
)

// ParseRole validates a role string from transport input.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleStudent:
		return RoleStudent, nil
	case RoleStaff:
		return RoleStaff, nil
	case RoleLibrarian:
		return RoleLibrarian, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "unknown role")
	}
}

// EnrollmentPrefix returns the enrollment-id prefix for the role.
func (r Role) EnrollmentPrefix() string {
	switch r {
	case RoleStudent:
		return "STU"
	case RoleStaff:
		return "STF"
	default:
		return "LIB"
	}
}

// HasDomainRecord reports whether the role owns a separate domain record.
// Librarians exist only as a credential plus profile.
func (r Role) HasDomainRecord() bool {
	return r == RoleStudent || r == RoleStaff
}

// Attributes carries the person attributes supplied at provisioning time.
// For students the contact is the parent's; the distinction lives in the
// batch header mapping, not here.
type Attributes struct {
	FullName string
	Grade    string
	Position string
	Email    string
	Phone    string
}

// HasContact reports whether at least one contact channel is present.
func (a Attributes) HasContact() bool {
	return a.Email != "" || a.Phone != ""
}

// Validate checks the role-required fields. It never contacts external
// services, so a validation failure is always free of side effects.
func (a Attributes) Validate(role Role) error {
	var missing []string
	if a.FullName == "" {
		missing = append(missing, "full_name")
	}
	if role == RoleStudent && a.Grade == "" {
		missing = append(missing, "grade")
	}
	if role != RoleLibrarian && !a.HasContact() {
		missing = append(missing, "contact")
	}
	if len(missing) > 0 {
		return dErrors.New(dErrors.CodeValidation, "missing required fields: "+strings.Join(missing, ", "))
	}
	return nil
}

// StudentRecord is the student domain record. Its primary key is internal to
// the store and distinct from the credential's auth-subject id.
type StudentRecord struct {
	ID            uuid.UUID
	InstitutionID string
	EnrollmentID  string
	FullName      string
	Grade         string
	Email         string
	Phone         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// StaffRecord is the staff domain record.
type StaffRecord struct {
	ID            uuid.UUID
	InstitutionID string
	EnrollmentID  string
	FullName      string
	Position      string
	Email         string
	Phone         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Profile is the join record between a credential and a domain record.
//
// Invariants:
//   - ID equals the credential's auth-subject id, never a domain record id.
//   - Exactly one of StudentID / StaffID is set for student/staff roles;
//     neither is set for librarians.
//   - EnrollmentID duplicates the domain record's for fast lookup.
//
// A domain record without a profile is an orphan and must never be reachable
// for login; the provisioning saga enforces this by creating the domain
// record first and deleting it if profile creation fails.
type Profile struct {
	ID            uuid.UUID
	Role          Role
	InstitutionID string
	EnrollmentID  string
	StudentID     *uuid.UUID
	StaffID       *uuid.UUID
	CreatedAt     time.Time
}

// IssuedCredentials is the one-time provisioning result. The secret exists
// only in memory for the caller's one-time display; it is never re-derived
// or re-displayed.
type IssuedCredentials struct {
	EnrollmentID string `json:"enrollment_id"`
	Secret       string `json:"secret"`
}

// OutcomeStatus is the per-row batch result status.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeError   OutcomeStatus = "error"
)

// RowOutcome is the per-input-row result of applying the provisioning saga
// during bulk import. Row preserves the input position (1-based, header
// excluded).
type RowOutcome struct {
	Row          int           `json:"row"`
	FullName     string        `json:"full_name"`
	EnrollmentID string        `json:"enrollment_id,omitempty"`
	Secret       string        `json:"-"`
	Status       OutcomeStatus `json:"status"`
	Message      string        `json:"message,omitempty"`
}
