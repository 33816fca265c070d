package derrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	t.Run("matches the outer code", func(t *testing.T) {
		err := New(CodeDuplicate, "enrollment id taken")
		assert.True(t, HasCode(err, CodeDuplicate))
		assert.False(t, HasCode(err, CodeUpstream))
	})

	t.Run("matches a wrapped inner code", func(t *testing.T) {
		inner := New(CodeDuplicate, "enrollment id taken")
		outer := Wrap(inner, CodeUpstream, "store insert failed")
		assert.True(t, HasCode(outer, CodeDuplicate))
		assert.True(t, HasCode(outer, CodeUpstream))
	})

	t.Run("uncoded errors never match", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("plain"), CodeInternal))
		assert.False(t, HasCode(nil, CodeInternal))
	})
}

func TestWrap(t *testing.T) {
	t.Run("nil cause yields nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
	})

	t.Run("cause stays reachable via errors.Is", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Wrap(fmt.Errorf("create credential: %w", cause), CodeUpstream, "account service call failed")
		assert.ErrorIs(t, err, cause)
	})
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodePartialProvisioning, CodeOf(New(CodePartialProvisioning, "orphaned credential")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, "missing required fields", MessageOf(New(CodeValidation, "missing required fields")))
	assert.Equal(t, "plain", MessageOf(errors.New("plain")))
	assert.Equal(t, "", MessageOf(nil))
}
