package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_ErrorIncludesCause(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := NewTransportError("nodes.upsert", cause)

	assert.Contains(t, err.Error(), "TRANSPORT")
	assert.Contains(t, err.Error(), "nodes.upsert")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestAppError_UnwrapExposesCause(t *testing.T) {
	cause := stderrors.New("boom")
	err := NewTransportError("edges.list", cause)

	assert.ErrorIs(t, err, cause)
}

func TestGetAppError_FindsErrorThroughWrapping(t *testing.T) {
	inner := NewNotFoundError("network")
	wrapped := fmt.Errorf("selecting: %w", inner)

	appErr := GetAppError(wrapped)

	require.NotNil(t, appErr)
	assert.Equal(t, ErrorTypeNotFound, appErr.Type)
}

func TestGetAppError_NilForPlainError(t *testing.T) {
	assert.Nil(t, GetAppError(stderrors.New("plain")))
}

func TestTypePredicates(t *testing.T) {
	assert.True(t, IsTransport(NewTransportError("op", nil)))
	assert.True(t, IsCacheCorruption(NewCacheCorruptionError("cache:networks", nil)))
	assert.True(t, IsRaceStale(NewRaceStaleError("fetch")))
	assert.True(t, IsValidation(NewValidationError("bad input")))
	assert.True(t, IsNotFound(NewNotFoundError("edge")))
	assert.True(t, IsTimeout(NewTimeoutError("select network")))

	assert.False(t, IsTransport(NewTimeoutError("select network")))
	assert.False(t, IsRaceStale(stderrors.New("plain")))
	assert.False(t, IsTimeout(nil))
}

func TestWrap_AddsContextToAppError(t *testing.T) {
	err := Wrap(NewNotFoundError("network"), "restoring selection")

	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "restoring selection")
}

func TestWrap_PlainErrorBecomesInternal(t *testing.T) {
	cause := stderrors.New("boom")
	err := Wrap(cause, "pushing delta")

	assert.True(t, IsType(err, ErrorTypeInternal))
	assert.ErrorIs(t, err, cause)
}

func TestWrap_NilStaysNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "nothing happened"))
}

func TestWithDetails(t *testing.T) {
	err := NewInvariantError("handle role mismatch").
		WithDetails(map[string]interface{}{"edgeID": "e1"})

	assert.Equal(t, "e1", err.Details["edgeID"])
}
