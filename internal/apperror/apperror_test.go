package apperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppError_MessageAndUnwrap(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := NewDecodeError("failed to decode image", cause)

	require.Equal(t, "failed to decode image: unexpected EOF", err.Error())
	require.ErrorIs(t, err, cause)

	bare := NewValidationError("No selected file", nil)
	require.Equal(t, "No selected file", bare.Error())
}

func TestPredicates_SeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("analyze: %w", NewIOError("write upload", nil))

	require.True(t, IsIOError(wrapped))
	require.False(t, IsDecodeError(wrapped))
	require.Equal(t, KindIO, KindOf(wrapped))
	require.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestTimeoutVariant(t *testing.T) {
	err := NewTimeoutError("description request timed out", context.DeadlineExceeded)

	require.True(t, IsExternalServiceError(err))
	require.True(t, IsTimeout(err))
	require.False(t, IsTimeout(NewExternalServiceError("quota exceeded", nil)))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", NewValidationError("bad", nil), http.StatusBadRequest},
		{"decode", NewDecodeError("bad image", nil), http.StatusUnprocessableEntity},
		{"external", NewExternalServiceError("upstream", nil), http.StatusBadGateway},
		{"timeout", NewTimeoutError("slow", nil), http.StatusGatewayTimeout},
		{"io", NewIOError("disk", nil), http.StatusInternalServerError},
		{"startup", NewStartupError("no model", nil), http.StatusInternalServerError},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}
