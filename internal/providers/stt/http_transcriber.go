package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/recruitgenius/backend/internal/models"
)

// HTTPTranscriber calls a service that takes {audioUrl} and answers
// {transcript, sentimentScore, sentimentType}.
type HTTPTranscriber struct {
	endpoint string
	token    string
	client   *http.Client
}

func NewHTTPTranscriber(endpoint, token string, client *http.Client) *HTTPTranscriber {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPTranscriber{endpoint: endpoint, token: token, client: client}
}

func (h *HTTPTranscriber) Name() string { return "http" }
func (h *HTTPTranscriber) Close() error { return nil }

type transcribeRequest struct {
	AudioURL string `json:"audioUrl"`
}

type transcribeResponse struct {
	Transcript     *string  `json:"transcript"`
	SentimentScore *float64 `json:"sentimentScore"`
	SentimentType  *string  `json:"sentimentType"`
}

func (h *HTTPTranscriber) Transcribe(ctx context.Context, audioURL string) (*models.Transcription, error) {
	body, err := json.Marshal(transcribeRequest{AudioURL: audioURL})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(h.Name(), resp)
	}

	var out transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("transcriber: decode response: %w", err)
	}
	if out.Transcript == nil {
		return nil, fmt.Errorf("transcriber: response missing transcript")
	}

	t := &models.Transcription{
		Transcript:     strings.TrimSpace(*out.Transcript),
		SentimentScore: out.SentimentScore,
	}
	if out.SentimentType != nil && *out.SentimentType != "" {
		typ := strings.ToLower(*out.SentimentType)
		t.SentimentType = &typ
	}
	return t, nil
}
