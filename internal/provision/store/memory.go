package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"rollbook/internal/provision/models"
	"rollbook/pkg/platform/sentinel"
)

// In-memory stores back unit tests and self-contained local runs. They
// enforce the same enrollment-id unique constraint as the Postgres schema.

type InMemoryStudentStore struct {
	mu           sync.RWMutex
	records      map[uuid.UUID]models.StudentRecord
	byEnrollment map[string]uuid.UUID
	failNext     error
}

func NewInMemoryStudentStore() *InMemoryStudentStore {
	return &InMemoryStudentStore{
		records:      make(map[uuid.UUID]models.StudentRecord),
		byEnrollment: make(map[string]uuid.UUID),
	}
}

// FailNext makes the next call return err; saga tests use it to fail exact steps.
func (s *InMemoryStudentStore) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

func (s *InMemoryStudentStore) takeFailure() error {
	err := s.failNext
	s.failNext = nil
	return err
}

func (s *InMemoryStudentStore) Create(_ context.Context, rec *models.StudentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	if _, taken := s.byEnrollment[rec.EnrollmentID]; taken {
		return fmt.Errorf("enrollment id %q: %w", rec.EnrollmentID, sentinel.ErrConflict)
	}
	s.records[rec.ID] = *rec
	s.byEnrollment[rec.EnrollmentID] = rec.ID
	return nil
}

func (s *InMemoryStudentStore) FindByID(_ context.Context, id uuid.UUID) (*models.StudentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.records[id]; ok {
		return &rec, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStudentStore) Update(_ context.Context, rec *models.StudentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.records[rec.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	// Identifiers are immutable after provisioning.
	updated := *rec
	updated.EnrollmentID = existing.EnrollmentID
	updated.InstitutionID = existing.InstitutionID
	s.records[rec.ID] = updated
	return nil
}

func (s *InMemoryStudentStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byEnrollment, rec.EnrollmentID)
	delete(s.records, id)
	return nil
}

type InMemoryStaffStore struct {
	mu           sync.RWMutex
	records      map[uuid.UUID]models.StaffRecord
	byEnrollment map[string]uuid.UUID
	failNext     error
}

func NewInMemoryStaffStore() *InMemoryStaffStore {
	return &InMemoryStaffStore{
		records:      make(map[uuid.UUID]models.StaffRecord),
		byEnrollment: make(map[string]uuid.UUID),
	}
}

func (s *InMemoryStaffStore) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

func (s *InMemoryStaffStore) takeFailure() error {
	err := s.failNext
	s.failNext = nil
	return err
}

func (s *InMemoryStaffStore) Create(_ context.Context, rec *models.StaffRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	if _, taken := s.byEnrollment[rec.EnrollmentID]; taken {
		return fmt.Errorf("enrollment id %q: %w", rec.EnrollmentID, sentinel.ErrConflict)
	}
	s.records[rec.ID] = *rec
	s.byEnrollment[rec.EnrollmentID] = rec.ID
	return nil
}

func (s *InMemoryStaffStore) FindByID(_ context.Context, id uuid.UUID) (*models.StaffRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.records[id]; ok {
		return &rec, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStaffStore) Update(_ context.Context, rec *models.StaffRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.records[rec.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	updated := *rec
	updated.EnrollmentID = existing.EnrollmentID
	updated.InstitutionID = existing.InstitutionID
	s.records[rec.ID] = updated
	return nil
}

func (s *InMemoryStaffStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byEnrollment, rec.EnrollmentID)
	delete(s.records, id)
	return nil
}

type InMemoryProfileStore struct {
	mu        sync.RWMutex
	profiles  map[uuid.UUID]models.Profile
	byStudent map[uuid.UUID]uuid.UUID
	byStaff   map[uuid.UUID]uuid.UUID
	failNext  error
}

func NewInMemoryProfileStore() *InMemoryProfileStore {
	return &InMemoryProfileStore{
		profiles:  make(map[uuid.UUID]models.Profile),
		byStudent: make(map[uuid.UUID]uuid.UUID),
		byStaff:   make(map[uuid.UUID]uuid.UUID),
	}
}

func (s *InMemoryProfileStore) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

func (s *InMemoryProfileStore) takeFailure() error {
	err := s.failNext
	s.failNext = nil
	return err
}

func (s *InMemoryProfileStore) Create(_ context.Context, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	if _, exists := s.profiles[p.ID]; exists {
		return fmt.Errorf("profile %s: %w", p.ID, sentinel.ErrConflict)
	}
	s.profiles[p.ID] = *p
	if p.StudentID != nil {
		s.byStudent[*p.StudentID] = p.ID
	}
	if p.StaffID != nil {
		s.byStaff[*p.StaffID] = p.ID
	}
	return nil
}

func (s *InMemoryProfileStore) FindByID(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.profiles[id]; ok {
		return &p, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryProfileStore) FindByStudentID(_ context.Context, studentID uuid.UUID) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.byStudent[studentID]; ok {
		p := s.profiles[id]
		return &p, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryProfileStore) FindByStaffID(_ context.Context, staffID uuid.UUID) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.byStaff[staffID]; ok {
		p := s.profiles[id]
		return &p, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryProfileStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if p.StudentID != nil {
		delete(s.byStudent, *p.StudentID)
	}
	if p.StaffID != nil {
		delete(s.byStaff, *p.StaffID)
	}
	delete(s.profiles, id)
	return nil
}

func (s *InMemoryProfileStore) ListIDs(_ context.Context) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(s.profiles))
	for id := range s.profiles {
		ids = append(ids, id)
	}
	return ids, nil
}

// NewInMemoryStores bundles fresh memory stores for tests and local runs.
func NewInMemoryStores() Stores {
	return Stores{
		Students: NewInMemoryStudentStore(),
		Staff:    NewInMemoryStaffStore(),
		Profiles: NewInMemoryProfileStore(),
	}
}
