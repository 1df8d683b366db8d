// Package storage keeps image bytes for sessions, either on local disk or in
// an S3 compatible bucket.
package storage

import (
	"context"
	"fmt"
	"path"
)

// Blob is the byte store behind session images.
type Blob interface {
	// Write stores data under key and returns the canonical key.
	Write(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Read(ctx context.Context, key string) ([]byte, error)
	DeletePrefix(ctx context.Context, prefix string) error
	// URL is the public address of key.
	URL(key string) string
}

var (
	_ Blob = (*FileStore)(nil)
	_ Blob = (*S3Store)(nil)
)

// SessionPrefix is the key prefix holding every blob of a session.
func SessionPrefix(sessionID string) string {
	return path.Join("sessions", sessionID)
}

// OriginalKey is where the normalized upload of a session lives.
func OriginalKey(sessionID string) string {
	return path.Join(SessionPrefix(sessionID), "original.jpg")
}

// GeneratedKey names the index-th (1-based) image produced by a job.
func GeneratedKey(sessionID, jobID string, index int, ext string) string {
	if ext == "" {
		ext = "png"
	}
	return path.Join(SessionPrefix(sessionID), "generated", jobID, fmt.Sprintf("image-%02d.%s", index, ext))
}
