package stt

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/recruitgenius/backend/internal/models"
)

// Provider transcribes the audio behind a URL and, where supported, scores
// its sentiment. Callers set the deadline on ctx.
type Provider interface {
	Name() string
	Transcribe(ctx context.Context, audioURL string) (*models.Transcription, error)
	Close() error
}

// StatusError is a non-2xx answer from a speech API.
type StatusError struct {
	Provider string
	Status   int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Provider, e.Status, e.Body)
}

func statusError(provider string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &StatusError{Provider: provider, Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
}
