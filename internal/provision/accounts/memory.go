package accounts

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"rollbook/pkg/platform/sentinel"
)

// Memory is an in-process Service used for unit tests and self-contained
// local runs. It hashes secrets with bcrypt so even the fake never holds a
// plaintext secret at rest.
type Memory struct {
	mu       sync.Mutex
	byLogin  map[string]uuid.UUID
	byID     map[uuid.UUID]string // auth subject -> bcrypt hash
	failNext error
}

func NewMemory() *Memory {
	return &Memory{
		byLogin: make(map[string]uuid.UUID),
		byID:    make(map[uuid.UUID]string),
	}
}

// FailNext makes the next call return err. Lets saga tests inject upstream
// failures at exact steps.
func (m *Memory) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

func (m *Memory) takeFailure() error {
	err := m.failNext
	m.failNext = nil
	return err
}

func (m *Memory) CreateCredential(_ context.Context, loginIdentifier, secret string) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return uuid.Nil, err
	}
	if _, exists := m.byLogin[loginIdentifier]; exists {
		return uuid.Nil, fmt.Errorf("login identifier %q: %w", loginIdentifier, sentinel.ErrConflict)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return uuid.Nil, fmt.Errorf("hash secret: %w", err)
	}
	id := uuid.New()
	m.byLogin[loginIdentifier] = id
	m.byID[id] = string(hash)
	return id, nil
}

func (m *Memory) ReplaceSecret(_ context.Context, authSubjectID uuid.UUID, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	if _, ok := m.byID[authSubjectID]; !ok {
		return fmt.Errorf("auth subject %s: %w", authSubjectID, sentinel.ErrNotFound)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash secret: %w", err)
	}
	m.byID[authSubjectID] = string(hash)
	return nil
}

func (m *Memory) DeleteCredential(_ context.Context, authSubjectID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	for login, id := range m.byLogin {
		if id == authSubjectID {
			delete(m.byLogin, login)
		}
	}
	delete(m.byID, authSubjectID)
	return nil
}

func (m *Memory) ListAuthSubjects(_ context.Context) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(m.byID))
	for id := range m.byID {
		ids = append(ids, id)
	}
	return ids, nil
}

// VerifySecret checks a plaintext secret against the stored hash. Test-only
// convenience; the real account service never exposes this.
func (m *Memory) VerifySecret(authSubjectID uuid.UUID, secret string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	hash, ok := m.byID[authSubjectID]
	if !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// Has reports whether a credential exists for the auth subject.
func (m *Memory) Has(authSubjectID uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byID[authSubjectID]
	return ok
}
