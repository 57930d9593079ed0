package storage

import (
	"strings"
	"testing"
)

func TestRecordingObjectLayout(t *testing.T) {
	a := RecordingObject("cand-1", "q-1", ".webm")
	b := RecordingObject("cand-1", "q-1", ".webm")

	if a == b {
		t.Fatalf("expected distinct object names, got %q twice", a)
	}
	parts := strings.Split(a, "/")
	if len(parts) != 3 || parts[0] != "cand-1" || parts[1] != "q-1" {
		t.Fatalf("unexpected layout: %q", a)
	}
	if !strings.HasSuffix(parts[2], ".webm") {
		t.Fatalf("missing extension: %q", a)
	}
}

func TestResumeObjectLayout(t *testing.T) {
	got := ResumeObject("cand-9", "PDF")
	if !strings.HasPrefix(got, "cand-9/") || !strings.HasSuffix(got, ".pdf") {
		t.Fatalf("unexpected resume object: %q", got)
	}
}

func TestAudioExt(t *testing.T) {
	cases := []struct {
		name, ct, want string
	}{
		{"answer.WAV", "", ".wav"},
		{"blob", "audio/webm;codecs=opus", ".webm"},
		{"", "audio/mpeg", ".mp3"},
		{"", "application/octet-stream", ".bin"},
	}
	for _, tc := range cases {
		if got := AudioExt(tc.name, tc.ct); got != tc.want {
			t.Fatalf("AudioExt(%q, %q) = %q, want %q", tc.name, tc.ct, got, tc.want)
		}
	}
}
