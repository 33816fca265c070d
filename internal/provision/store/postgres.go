package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"rollbook/internal/provision/models"
	"rollbook/pkg/platform/sentinel"
)

// Schema is applied at startup. Deleting a domain record cascades to its
// profile, which keeps the "no orphan profile" direction of the invariant in
// the store itself; the saga owns the other direction.
const Schema = `
CREATE TABLE IF NOT EXISTS students (
	id             UUID PRIMARY KEY,
	institution_id TEXT NOT NULL,
	enrollment_id  TEXT NOT NULL UNIQUE,
	full_name      TEXT NOT NULL,
	grade          TEXT NOT NULL,
	email          TEXT NOT NULL DEFAULT '',
	phone          TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS staff (
	id             UUID PRIMARY KEY,
	institution_id TEXT NOT NULL,
	enrollment_id  TEXT NOT NULL UNIQUE,
	full_name      TEXT NOT NULL,
	position       TEXT NOT NULL DEFAULT '',
	email          TEXT NOT NULL DEFAULT '',
	phone          TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS profiles (
	id             UUID PRIMARY KEY,
	role           TEXT NOT NULL,
	institution_id TEXT NOT NULL,
	enrollment_id  TEXT NOT NULL UNIQUE,
	student_id     UUID REFERENCES students(id) ON DELETE CASCADE,
	staff_id       UUID REFERENCES staff(id) ON DELETE CASCADE,
	created_at     TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS profiles_student_id_idx ON profiles(student_id);
CREATE INDEX IF NOT EXISTS profiles_staff_id_idx ON profiles(staff_id);
`

// Open connects to Postgres and applies the schema.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}

// NewPostgresStores bundles the Postgres-backed stores over one connection pool.
func NewPostgresStores(db *sql.DB) Stores {
	return Stores{
		Students: &PostgresStudentStore{db: db},
		Staff:    &PostgresStaffStore{db: db},
		Profiles: &PostgresProfileStore{db: db},
	}
}

type PostgresStudentStore struct {
	db *sql.DB
}

func (s *PostgresStudentStore) Create(ctx context.Context, rec *models.StudentRecord) error {
	query := `INSERT INTO students (id, institution_id, enrollment_id, full_name, grade, email, phone, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.InstitutionID, rec.EnrollmentID, rec.FullName, rec.Grade, rec.Email, rec.Phone,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create student: %w", translate(err))
	}
	return nil
}

func (s *PostgresStudentStore) FindByID(ctx context.Context, id uuid.UUID) (*models.StudentRecord, error) {
	query := `SELECT id, institution_id, enrollment_id, full_name, grade, email, phone, created_at, updated_at
			  FROM students WHERE id = $1`
	var rec models.StudentRecord
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID, &rec.InstitutionID, &rec.EnrollmentID, &rec.FullName, &rec.Grade, &rec.Email, &rec.Phone,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("find student: %w", translate(err))
	}
	return &rec, nil
}

func (s *PostgresStudentStore) Update(ctx context.Context, rec *models.StudentRecord) error {
	// Identifiers are immutable after provisioning; only attributes move.
	query := `UPDATE students SET full_name = $2, grade = $3, email = $4, phone = $5, updated_at = $6
			  WHERE id = $1`
	res, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.FullName, rec.Grade, rec.Email, rec.Phone, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update student: %w", translate(err))
	}
	return affected(res)
}

func (s *PostgresStudentStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", translate(err))
	}
	return affected(res)
}

type PostgresStaffStore struct {
	db *sql.DB
}

func (s *PostgresStaffStore) Create(ctx context.Context, rec *models.StaffRecord) error {
	query := `INSERT INTO staff (id, institution_id, enrollment_id, full_name, position, email, phone, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.InstitutionID, rec.EnrollmentID, rec.FullName, rec.Position, rec.Email, rec.Phone,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create staff: %w", translate(err))
	}
	return nil
}

func (s *PostgresStaffStore) FindByID(ctx context.Context, id uuid.UUID) (*models.StaffRecord, error) {
	query := `SELECT id, institution_id, enrollment_id, full_name, position, email, phone, created_at, updated_at
			  FROM staff WHERE id = $1`
	var rec models.StaffRecord
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID, &rec.InstitutionID, &rec.EnrollmentID, &rec.FullName, &rec.Position, &rec.Email, &rec.Phone,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("find staff: %w", translate(err))
	}
	return &rec, nil
}

func (s *PostgresStaffStore) Update(ctx context.Context, rec *models.StaffRecord) error {
	query := `UPDATE staff SET full_name = $2, position = $3, email = $4, phone = $5, updated_at = $6
			  WHERE id = $1`
	res, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.FullName, rec.Position, rec.Email, rec.Phone, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update staff: %w", translate(err))
	}
	return affected(res)
}

func (s *PostgresStaffStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM staff WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete staff: %w", translate(err))
	}
	return affected(res)
}

type PostgresProfileStore struct {
	db *sql.DB
}

func (s *PostgresProfileStore) Create(ctx context.Context, p *models.Profile) error {
	query := `INSERT INTO profiles (id, role, institution_id, enrollment_id, student_id, staff_id, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.db.ExecContext(ctx, query,
		p.ID, string(p.Role), p.InstitutionID, p.EnrollmentID, p.StudentID, p.StaffID, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create profile: %w", translate(err))
	}
	return nil
}

func (s *PostgresProfileStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	return s.findBy(ctx, `id = $1`, id)
}

func (s *PostgresProfileStore) FindByStudentID(ctx context.Context, studentID uuid.UUID) (*models.Profile, error) {
	return s.findBy(ctx, `student_id = $1`, studentID)
}

func (s *PostgresProfileStore) FindByStaffID(ctx context.Context, staffID uuid.UUID) (*models.Profile, error) {
	return s.findBy(ctx, `staff_id = $1`, staffID)
}

func (s *PostgresProfileStore) findBy(ctx context.Context, where string, arg any) (*models.Profile, error) {
	query := `SELECT id, role, institution_id, enrollment_id, student_id, staff_id, created_at
			  FROM profiles WHERE ` + where
	var p models.Profile
	var role string
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&p.ID, &role, &p.InstitutionID, &p.EnrollmentID, &p.StudentID, &p.StaffID, &p.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", translate(err))
	}
	p.Role = models.Role(role)
	return &p, nil
}

func (s *PostgresProfileStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete profile: %w", translate(err))
	}
	return affected(res)
}

func (s *PostgresProfileStore) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM profiles`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", translate(err))
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan profile id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// translate maps driver errors onto the sentinel taxonomy.
func translate(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%w: %s", sentinel.ErrConflict, pqErr.Constraint)
	}
	return err
}

func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
