package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("upload image: %w", Clone(ErrAuthExpired, ""))

	assert.True(t, stdErrors.Is(err, ErrAuthExpired))
	assert.False(t, stdErrors.Is(err, ErrSessionRequired))
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(stdErrors.New("boom"))
	require.NotNil(t, appErr)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Nil(t, FromError(nil))
}

func TestValidationCarriesFields(t *testing.T) {
	err := Validation("step 1 is incomplete", map[string]string{"firstName": "First name is required"})

	assert.Equal(t, ErrValidation.Code, err.Code)
	assert.Equal(t, "First name is required", err.Fields["firstName"])
	assert.Empty(t, ErrValidation.Fields)
}
