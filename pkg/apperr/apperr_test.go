package apperr

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrappedKindsAreDetected(t *testing.T) {
	err := fmt.Errorf("conversation %s: %w", "abc", ErrForbidden)
	assert.True(t, IsForbidden(err))
	assert.False(t, IsNotFound(err))

	err = fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", ErrConflict))
	assert.True(t, IsConflict(err))
}

func TestKindsAreDistinct(t *testing.T) {
	assert.False(t, IsForbidden(ErrNotFound))
	assert.False(t, IsUnauthorized(ErrBadRequest))
	assert.False(t, IsBadRequest(nil))
}
