package llm

import (
	"context"
	"strings"

	vertexgenai "cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/iterator"
)

type VertexGemini struct {
	client *vertexgenai.Client
	model  *vertexgenai.GenerativeModel
}

func NewVertexGemini(ctx context.Context, projectID, location, modelName string) (*VertexGemini, error) {
	c, err := vertexgenai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, err
	}

	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	m := c.GenerativeModel(modelName)
	m.ResponseMIMEType = "application/json"
	m.SetTemperature(0.2)
	return &VertexGemini{client: c, model: m}, nil
}

func (v *VertexGemini) Name() string { return "vertex" }
func (v *VertexGemini) Close() error { return v.client.Close() }

// Complete streams the answer and concatenates the text parts.
func (v *VertexGemini) Complete(ctx context.Context, system, prompt string) (string, error) {
	parts := []vertexgenai.Part{}
	if system != "" {
		parts = append(parts, vertexgenai.Text(system+"\n\n"))
	}
	parts = append(parts, vertexgenai.Text(prompt))

	var full strings.Builder
	it := v.model.GenerateContentStream(ctx, parts...)
	for {
		resp, err := it.Next()
		if err == iterator.Done {
			return full.String(), nil
		}
		if err != nil {
			return "", err
		}

		for _, cand := range resp.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if t, ok := part.(vertexgenai.Text); ok {
					full.WriteString(string(t))
				}
			}
		}
	}
}
