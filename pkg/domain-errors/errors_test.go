package dErrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("matches the direct code", func(t *testing.T) {
		err := New(CodeConflict, "residence already occupied")
		assert.True(t, HasCode(err, CodeConflict))
		assert.False(t, HasCode(err, CodeNotFound))
	})

	t.Run("walks wrapped coded errors", func(t *testing.T) {
		inner := New(CodeNotFound, "contract not found")
		outer := Wrap(inner, CodeInternal, "failed to close contract")
		assert.True(t, HasCode(outer, CodeInternal))
		assert.True(t, HasCode(outer, CodeNotFound))
	})

	t.Run("sees through plain fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("step 3: %w", New(CodePartialFailure, "contract closure failed"))
		assert.True(t, HasCode(err, CodePartialFailure))
	})

	t.Run("false for nil and uncoded errors", func(t *testing.T) {
		assert.False(t, HasCode(nil, CodeInternal))
		assert.False(t, HasCode(errors.New("plain"), CodeInternal))
	})
}

func TestWrap(t *testing.T) {
	t.Run("nil cause yields nil", func(t *testing.T) {
		require.NoError(t, Wrap(nil, CodeInternal, "ignored"))
	})

	t.Run("cause remains reachable via Unwrap", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Wrap(cause, CodeUnavailable, "store unreachable")
		assert.ErrorIs(t, err, cause)
	})
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeValidation, CodeOf(New(CodeValidation, "residence id required")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}
