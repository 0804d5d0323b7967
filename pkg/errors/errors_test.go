package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromErrorHidesUnknownCause(t *testing.T) {
	appErr := FromError(errors.New("pq: connection refused"))
	require.NotNil(t, appErr)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)

	body, err := json.Marshal(appErr)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "connection refused")
}

func TestCloneMatchesKind(t *testing.T) {
	err := Clone(ErrConflict, "request is already processed")
	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "conflict", ErrConflict.Message)
}

func TestValidationCarriesDetails(t *testing.T) {
	err := Validation("invalid registration payload", []FieldError{
		{Field: "password", Message: "password is too weak"},
		{Field: "email", Message: "email must be a valid email address"},
	})
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.Len(t, err.Details, 2)
	assert.Nil(t, ErrValidation.Details)
}
