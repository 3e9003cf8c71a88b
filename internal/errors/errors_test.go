package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsStatus(t *testing.T) {
	tests := []struct {
		err  *APIError
		code ErrorCode
		want int
	}{
		{NotFound("Link"), ErrNotFound, http.StatusNotFound},
		{Unauthorized("Unauthorized"), ErrUnauthorized, http.StatusUnauthorized},
		{Forbidden("nope"), ErrForbidden, http.StatusForbidden},
		{Conflict("taken"), ErrConflict, http.StatusConflict},
		{ValidationError("url", "bad"), ErrValidation, http.StatusBadRequest},
		{BadRequest("bad"), ErrBadRequest, http.StatusBadRequest},
		{RateLimited(30), ErrRateLimited, http.StatusTooManyRequests},
		{Upstream("s3"), ErrUpstream, http.StatusBadGateway},
		{ServiceUnavailable("Image storage"), ErrServiceUnavail, http.StatusServiceUnavailable},
		{InternalError("boom"), ErrInternalError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.want, tt.err.Status)
		})
	}
	assert.Equal(t, http.StatusInternalServerError, ErrorCode("UNKNOWN").StatusCode())
}

func TestMessages(t *testing.T) {
	assert.Equal(t, "Link not found", NotFound("Link").Message)
	assert.Equal(t, "Image storage is temporarily unavailable", ServiceUnavailable("Image storage").Message)
	assert.Equal(t, 30, RateLimited(30).RetryAfter)

	v := ValidationError("title", "Title is required")
	assert.Equal(t, "VALIDATION_ERROR: Title is required (field: title)", v.Error())
	assert.Equal(t, "NOT_FOUND: User not found", NotFound("User").Error())
}

func TestAsAndHasCode(t *testing.T) {
	wrapped := fmt.Errorf("loading: %w", Conflict("slug taken").WithDetails("alice"))

	apiErr, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, "alice", apiErr.Details)
	assert.True(t, HasCode(wrapped, ErrConflict))
	assert.False(t, HasCode(wrapped, ErrNotFound))

	_, ok = As(fmt.Errorf("plain"))
	assert.False(t, ok)
}
