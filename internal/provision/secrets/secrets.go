// Package secrets generates login secrets and enrollment identifiers.
//
// All randomness comes from crypto/rand: the secrets are real login
// credentials, so a seeded general-purpose PRNG is not acceptable.
package secrets

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"rollbook/internal/provision/models"
)

const (
	// MinSecretLength is the floor of the complexity policy.
	MinSecretLength = 10

	// DefaultSecretLength is used when the caller does not care.
	DefaultSecretLength = 12

	upperChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerChars  = "abcdefghijklmnopqrstuvwxyz"
	digitChars  = "0123456789"
	symbolChars = "!@#$%^&*-_=+?"

	paddingChars  = upperChars + digitChars
	paddingLength = 4
)

// GenerateSecret returns a secret of the given length containing at least one
// uppercase letter, one lowercase letter, one digit, and one symbol.
//
// The result is constructed, not sampled-and-hoped: one character is
// allocated per required class, the remainder is drawn from the full
// alphabet, and the whole buffer is shuffled. The complexity policy therefore
// holds for 100% of outputs.
func GenerateSecret(length int) (string, error) {
	if length < MinSecretLength {
		return "", fmt.Errorf("secret length %d is below the minimum %d", length, MinSecretLength)
	}

	classes := []string{upperChars, lowerChars, digitChars, symbolChars}
	alphabet := strings.Join(classes, "")

	buf := make([]byte, 0, length)
	for _, class := range classes {
		c, err := pick(class)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}
	for len(buf) < length {
		c, err := pick(alphabet)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}

	// Fisher-Yates so the per-class characters don't sit at fixed positions.
	for i := len(buf) - 1; i > 0; i-- {
		j, err := index(i + 1)
		if err != nil {
			return "", err
		}
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf), nil
}

// NewEnrollmentID builds a human-readable enrollment identifier:
// role prefix, base36 timestamp, and random padding. The store's unique
// constraint is the ultimate arbiter of uniqueness; callers treat a store
// conflict as retryable and call this again.
func NewEnrollmentID(role models.Role, now time.Time) (string, error) {
	var b strings.Builder
	b.WriteString(role.EnrollmentPrefix())
	b.WriteString(strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36)))
	for range paddingLength {
		c, err := pick(paddingChars)
		if err != nil {
			return "", err
		}
		b.WriteByte(c)
	}
	return b.String(), nil
}

func pick(alphabet string) (byte, error) {
	i, err := index(len(alphabet))
	if err != nil {
		return 0, err
	}
	return alphabet[i], nil
}

// index returns a uniform random int in [0, n) from the CSPRNG.
func index(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("could not read random source: %w", err)
	}
	return int(v.Int64()), nil
}
