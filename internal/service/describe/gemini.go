// Package describe asks a hosted multimodal model for a short description of
// the problem visible in an image.
package describe

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"infrascan/internal/apperror"
	"infrascan/internal/logger"
)

// Prompt is the instruction sent ahead of the detected labels.
const Prompt = "Find the problem in the given image and describe it in a few lines (no filler words and don't try to find the cause)"

const (
	DefaultModel   = "gemini-1.5-pro"
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultTimeout = 30 * time.Second
)

// Options configures the Gemini client.
type Options struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
	// Client overrides the HTTP client; nil uses a fresh one.
	Client *http.Client
}

// GeminiService calls the generateContent endpoint once per image.
type GeminiService struct {
	apiKey  string
	model   string
	baseURL string
	timeout time.Duration
	client  *http.Client
	logger  *logger.Logger
}

// NewGeminiService validates opts and fills in defaults. A missing API key is
// a startup error.
func NewGeminiService(opts Options, logger *logger.Logger) (*GeminiService, error) {
	if opts.APIKey == "" {
		return nil, apperror.NewStartupError("GOOGLE_API_KEY is not set", nil)
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}

	return &GeminiService{
		apiKey:  opts.APIKey,
		model:   opts.Model,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		timeout: opts.Timeout,
		client:  opts.Client,
		logger:  logger,
	}, nil
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

// BuildPrompt appends the space-joined labels to the fixed instruction.
func BuildPrompt(labels []string) string {
	return Prompt + "\n\n" + strings.Join(labels, " ")
}

// Describe sends the image and prompt in a single request bounded by the
// configured timeout.
func (s *GeminiService) Describe(ctx context.Context, image []byte, labels []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	body, err := json.Marshal(generateRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{InlineData: &inlineData{
					MimeType: http.DetectContentType(image),
					Data:     base64.StdEncoding.EncodeToString(image),
				}},
				{Text: BuildPrompt(labels)},
			},
		}},
	})
	if err != nil {
		return "", apperror.NewExternalServiceError("failed to encode description request", err)
	}

	apiURL := fmt.Sprintf("%s/models/%s:generateContent", s.baseURL, s.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return "", apperror.NewExternalServiceError("failed to build description request", redact(err, s.apiKey))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", s.apiKey)

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", apperror.NewTimeoutError(fmt.Sprintf("description timed out after %v", s.timeout), redact(err, s.apiKey))
		}
		return "", apperror.NewExternalServiceError("description request failed", redact(err, s.apiKey))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		return "", apperror.NewExternalServiceError(fmt.Sprintf("gemini API error (%d): %s", resp.StatusCode, msg), nil)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", apperror.NewTimeoutError(fmt.Sprintf("description timed out after %v", s.timeout), redact(err, s.apiKey))
		}
		return "", apperror.NewExternalServiceError("failed to decode gemini response", redact(err, s.apiKey))
	}
	if len(out.Candidates) == 0 {
		return "", apperror.NewExternalServiceError("gemini returned no candidates", nil)
	}

	var text strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	if text.Len() == 0 {
		return "", apperror.NewExternalServiceError("gemini returned an empty description", nil)
	}

	s.logger.Info("Description generated in %v (%s)", time.Since(start).Round(time.Millisecond), out.Candidates[0].FinishReason)
	return text.String(), nil
}

// redact strips the API key from errors that end up in responses and logs.
func redact(err error, key string) error {
	if key == "" {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), key, "REDACTED"))
}
