package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotFoundMessage(t *testing.T) {
	err := NotFound("deal", "d-123")
	assert.Equal(t, ErrCodeNotFound, CodeOf(err))
	assert.Contains(t, err.Error(), "deal not found: d-123")
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := Wrap(cause, ErrCodeInternal, "failed to list requests")
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrCodeInternal, CodeOf(err))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestWrapNilIsNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, ErrCodeInternal, "nothing"))
}

func TestCodeOfUnknownErrorIsInternal(t *testing.T) {
	assert.Equal(t, ErrCodeInternal, CodeOf(fmt.Errorf("plain")))
}

func TestCodeOfWrappedChain(t *testing.T) {
	inner := InvalidInput("due_date", "invalid date format")
	outer := fmt.Errorf("create request: %w", inner)
	assert.Equal(t, ErrCodeInvalidInput, CodeOf(outer))
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{InvalidInput("category", "unknown category"), http.StatusBadRequest},
		{NotFound("stage", "s-1"), http.StatusNotFound},
		{Conflict("cannot approve a pending request"), http.StatusConflict},
		{New(ErrCodeUnauthorized, "not the submitter"), http.StatusUnauthorized},
		{stderrors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err))
	}
}
