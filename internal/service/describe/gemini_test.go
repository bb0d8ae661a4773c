package describe

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"infrascan/internal/apperror"
	"infrascan/internal/logger"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func newService(t *testing.T, url string, timeout time.Duration) *GeminiService {
	t.Helper()
	s, err := NewGeminiService(Options{
		APIKey:  "test-key",
		Model:   "gemini-test",
		BaseURL: url,
		Timeout: timeout,
	}, logger.Discard())
	require.NoError(t, err)
	return s
}

func TestBuildPrompt(t *testing.T) {
	require.Equal(t, Prompt+"\n\nPothole Garbage", BuildPrompt([]string{"Pothole", "Garbage"}))
	require.Equal(t, Prompt+"\n\n", BuildPrompt(nil))
}

func TestNewGeminiService_RequiresKey(t *testing.T) {
	_, err := NewGeminiService(Options{}, logger.Discard())
	require.True(t, apperror.IsStartupError(err))
}

func TestDescribe_RequestShape(t *testing.T) {
	var (
		got         generateRequest
		method      string
		path        string
		key         string
		contentType string
		query       string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path, key = r.Method, r.URL.Path, r.Header.Get("x-goog-api-key")
		query = r.URL.RawQuery
		contentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&got)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"A deep pothole "},{"text":"in the lane."}]},"finishReason":"STOP"}]}`))
	}))
	defer srv.Close()

	text, err := newService(t, srv.URL, time.Second).Describe(context.Background(), pngHeader, []string{"Pothole"})
	require.NoError(t, err)
	require.Equal(t, "A deep pothole in the lane.", text)

	require.Equal(t, http.MethodPost, method)
	require.Equal(t, "/models/gemini-test:generateContent", path)
	require.Equal(t, "test-key", key)
	require.Empty(t, query)
	require.Equal(t, "application/json", contentType)

	require.Len(t, got.Contents, 1)
	parts := got.Contents[0].Parts
	require.Len(t, parts, 2)
	require.NotNil(t, parts[0].InlineData)
	require.Equal(t, "image/png", parts[0].InlineData.MimeType)
	decoded, err := base64.StdEncoding.DecodeString(parts[0].InlineData.Data)
	require.NoError(t, err)
	require.Equal(t, pngHeader, decoded)
	require.Equal(t, BuildPrompt([]string{"Pothole"}), parts[1].Text)
}

func TestDescribe_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"api error", http.StatusForbidden, `{"error":{"message":"API key not valid"}}`, "API key not valid"},
		{"plain error", http.StatusInternalServerError, `upstream down`, "upstream down"},
		{"no candidates", http.StatusOK, `{"candidates":[]}`, "no candidates"},
		{"empty text", http.StatusOK, `{"candidates":[{"content":{"parts":[]}}]}`, "empty description"},
		{"bad body", http.StatusOK, `not json`, "decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newService(t, srv.URL, time.Second).Describe(context.Background(), pngHeader, nil)
			require.Error(t, err)
			require.True(t, apperror.IsExternalServiceError(err))
			require.False(t, apperror.IsTimeout(err))
			require.Contains(t, err.Error(), tt.want)
			require.Equal(t, http.StatusBadGateway, apperror.HTTPStatus(err))
		})
	}
}

func TestDescribe_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := newService(t, srv.URL, 50*time.Millisecond).Describe(context.Background(), pngHeader, nil)
	require.Error(t, err)
	require.True(t, apperror.IsExternalServiceError(err))
	require.True(t, apperror.IsTimeout(err))
	require.Equal(t, http.StatusGatewayTimeout, apperror.HTTPStatus(err))
	require.NotContains(t, err.Error(), "test-key")
}

func TestDescribe_SlowBodyTimeoutRedactsKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"candidates":[`))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := newService(t, srv.URL, 50*time.Millisecond).Describe(context.Background(), pngHeader, nil)
	require.True(t, apperror.IsTimeout(err))
	require.NotContains(t, err.Error(), "test-key")
}

func TestDescribe_UnreachableRedactsKey(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newService(t, url, time.Second).Describe(context.Background(), pngHeader, nil)
	require.True(t, apperror.IsExternalServiceError(err))
	require.NotContains(t, err.Error(), "test-key")
}
