package stt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	client "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"

	"github.com/recruitgenius/backend/internal/models"
)

// Deepgram transcribes prerecorded audio by URL through the Deepgram SDK.
type Deepgram struct {
	dg    *api.Client
	model string
}

// NewDeepgram builds the prerecorded client. baseURL overrides the API host
// and may carry a scheme (http:// for local stubs).
func NewDeepgram(apiKey, baseURL, model string) (*Deepgram, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("deepgram: api key is required")
	}
	if model == "" {
		model = "nova-2"
	}
	c := client.NewREST(apiKey, &interfaces.ClientOptions{
		Host: strings.TrimRight(baseURL, "/"),
	})
	if c == nil {
		return nil, errors.New("deepgram: invalid client options")
	}
	return &Deepgram{dg: api.New(c), model: model}, nil
}

func (d *Deepgram) Name() string { return "deepgram" }
func (d *Deepgram) Close() error { return nil }

func (d *Deepgram) Transcribe(ctx context.Context, audioURL string) (*models.Transcription, error) {
	res, err := d.dg.FromURL(ctx, audioURL, &interfaces.PreRecordedTranscriptionOptions{
		Model:       d.model,
		SmartFormat: true,
		Sentiment:   true,
	})
	if err != nil {
		var se *interfaces.StatusError
		if errors.As(err, &se) && se.Resp != nil {
			return nil, &StatusError{Provider: d.Name(), Status: se.Resp.StatusCode, Body: se.Error()}
		}
		return nil, fmt.Errorf("deepgram: %w", err)
	}
	if res == nil || res.Results == nil || len(res.Results.Channels) == 0 || len(res.Results.Channels[0].Alternatives) == 0 {
		return nil, fmt.Errorf("deepgram: response has no alternatives")
	}

	t := &models.Transcription{
		Transcript: strings.TrimSpace(res.Results.Channels[0].Alternatives[0].Transcript),
	}
	if s := res.Results.Sentiments; s != nil && s.Average.Sentiment != "" {
		score := s.Average.SentimentScore
		typ := s.Average.Sentiment
		t.SentimentScore = &score
		t.SentimentType = &typ
	}
	return t, nil
}
