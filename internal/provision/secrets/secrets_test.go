package secrets

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollbook/internal/provision/models"
)

func TestGenerateSecretComplexity(t *testing.T) {
	// Every generated secret must satisfy the policy, not just most of them.
	for range 10000 {
		secret, err := GenerateSecret(DefaultSecretLength)
		require.NoError(t, err)
		require.Len(t, secret, DefaultSecretLength)
		require.True(t, strings.ContainsAny(secret, upperChars), "no uppercase in %q", secret)
		require.True(t, strings.ContainsAny(secret, lowerChars), "no lowercase in %q", secret)
		require.True(t, strings.ContainsAny(secret, digitChars), "no digit in %q", secret)
		require.True(t, strings.ContainsAny(secret, symbolChars), "no symbol in %q", secret)
	}
}

func TestGenerateSecretRejectsShortLength(t *testing.T) {
	_, err := GenerateSecret(MinSecretLength - 1)
	assert.Error(t, err)
}

func TestGenerateSecretIsNotConstant(t *testing.T) {
	seen := make(map[string]struct{})
	for range 100 {
		secret, err := GenerateSecret(DefaultSecretLength)
		require.NoError(t, err)
		seen[secret] = struct{}{}
	}
	assert.Greater(t, len(seen), 90, "secrets look far from random")
}

func TestNewEnrollmentIDShape(t *testing.T) {
	shape := regexp.MustCompile(`^(STU|STF|LIB)[A-Za-z0-9]+$`)
	now := time.Now()

	for _, role := range []models.Role{models.RoleStudent, models.RoleStaff, models.RoleLibrarian} {
		id, err := NewEnrollmentID(role, now)
		require.NoError(t, err)
		assert.Regexp(t, shape, id)
		assert.True(t, strings.HasPrefix(id, role.EnrollmentPrefix()), "id %q has wrong prefix for %s", id, role)
	}
}

func TestNewEnrollmentIDVariesAcrossCalls(t *testing.T) {
	// Same timestamp, different padding: regeneration after a store conflict
	// must be able to produce a fresh id.
	now := time.Now()
	a, err := NewEnrollmentID(models.RoleStudent, now)
	require.NoError(t, err)

	for range 20 {
		b, err := NewEnrollmentID(models.RoleStudent, now)
		require.NoError(t, err)
		if a != b {
			return
		}
	}
	t.Fatalf("20 regenerated ids were all identical to %q", a)
}
