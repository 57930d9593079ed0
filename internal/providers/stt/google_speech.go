package stt

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/recruitgenius/backend/internal/models"
)

// synchronous Recognize accepts about a minute of audio inline
const maxInlineAudio = 10 << 20

// GoogleSpeech downloads the audio and runs a synchronous Recognize. It
// returns no sentiment.
type GoogleSpeech struct {
	c    *speech.Client
	http *http.Client

	Encoding     speechpb.RecognitionConfig_AudioEncoding
	SampleRateHz int32
	Language     string
}

func NewGoogleSpeech(ctx context.Context) (*GoogleSpeech, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GoogleSpeech{
		c:    c,
		http: &http.Client{},
		// browsers record webm/opus at 48kHz
		Encoding:     speechpb.RecognitionConfig_WEBM_OPUS,
		SampleRateHz: 48000,
		Language:     "en-US",
	}, nil
}

func (g *GoogleSpeech) Name() string { return "google" }
func (g *GoogleSpeech) Close() error { return g.c.Close() }

func (g *GoogleSpeech) Transcribe(ctx context.Context, audioURL string) (*models.Transcription, error) {
	audio, err := g.fetch(ctx, audioURL)
	if err != nil {
		return nil, err
	}

	resp, err := g.c.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   g.Encoding,
			SampleRateHertz:            g.SampleRateHz,
			LanguageCode:               g.Language,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return nil, err
	}

	// results are consecutive segments; take the best alternative of each
	var parts []string
	for _, r := range resp.Results {
		var best *speechpb.SpeechRecognitionAlternative
		for _, alt := range r.Alternatives {
			if best == nil || alt.Confidence > best.Confidence {
				best = alt
			}
		}
		if best != nil && best.Transcript != "" {
			parts = append(parts, strings.TrimSpace(best.Transcript))
		}
	}
	return &models.Transcription{Transcript: strings.Join(parts, " ")}, nil
}

func (g *GoogleSpeech) fetch(ctx context.Context, audioURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError("google: fetch audio", resp)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxInlineAudio+1))
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("google: empty audio")
	}
	if len(body) > maxInlineAudio {
		return nil, fmt.Errorf("google: audio exceeds %d bytes", maxInlineAudio)
	}
	return body, nil
}
