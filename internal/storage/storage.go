package storage

import (
	"context"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// ObjectStore is a private blob store addressed by bucket and object key.
type ObjectStore interface {
	// Upload stores r and returns the object's canonical (unsigned) URL.
	// size may be -1 when unknown.
	Upload(ctx context.Context, bucket, object, contentType string, r io.Reader, size int64) (string, error)
	SignedGetURL(ctx context.Context, bucket, object string, ttl time.Duration) (string, error)
	List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
	// Remove returns utils.ErrNotFound when the object does not exist.
	Remove(ctx context.Context, bucket, object string) error
	// EnsureBucket creates the bucket if missing and reports whether it did.
	EnsureBucket(ctx context.Context, bucket string) (bool, error)
	Close() error
}

// RecordingObject is {candidateId}/{questionId}/{uuid}{ext}. A fresh uuid per
// call keeps retried uploads from colliding.
func RecordingObject(candidateID, questionID, ext string) string {
	return path.Join(candidateID, questionID, uuid.NewString()+normExt(ext))
}

// ResumeObject is {candidateId}/{uuid}{ext}.
func ResumeObject(candidateID, ext string) string {
	return path.Join(candidateID, uuid.NewString()+normExt(ext))
}

var audioExt = map[string]string{
	"audio/webm":  ".webm",
	"video/webm":  ".webm",
	"audio/ogg":   ".ogg",
	"audio/mpeg":  ".mp3",
	"audio/mp3":   ".mp3",
	"audio/wav":   ".wav",
	"audio/x-wav": ".wav",
	"audio/wave":  ".wav",
	"audio/mp4":   ".m4a",
	"audio/x-m4a": ".m4a",
	"audio/flac":  ".flac",
}

// AudioExt picks an extension from the upload's file name, falling back to
// its content type.
func AudioExt(fileName, contentType string) string {
	if ext := strings.ToLower(path.Ext(fileName)); ext != "" {
		return ext
	}
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	if ext, ok := audioExt[ct]; ok {
		return ext
	}
	return ".bin"
}

func normExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
