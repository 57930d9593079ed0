package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAICompleteSendsJSONModeAndReturnsContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Fatalf("unexpected auth %q", got)
		}
		var req struct {
			Model          string `json:"model"`
			Messages       []struct{ Role, Content string }
			ResponseFormat struct {
				Type string `json:"type"`
			} `json:"response_format"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.Model != "gpt-test" {
			t.Fatalf("model = %q", req.Model)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Content != "score this" {
			t.Fatalf("unexpected messages %+v", req.Messages)
		}
		if req.ResponseFormat.Type != "json_object" {
			t.Fatalf("response_format = %q", req.ResponseFormat.Type)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"overallScore\":80}"}}]}`))
	}))
	defer srv.Close()

	o := NewOpenAI("sk-test", srv.URL, "gpt-test")
	got, err := o.Complete(context.Background(), "you are a recruiter", "score this")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got != `{"overallScore":80}` {
		t.Fatalf("content = %q", got)
	}
}

func TestOpenAICompleteServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	}))
	defer srv.Close()

	if _, err := NewOpenAI("k", srv.URL, "m").Complete(context.Background(), "", "p"); err == nil {
		t.Fatalf("expected error")
	}
}
