// Package storage uploads document snapshots to object storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"
)

// ContentTypeJSON is the content type of snapshot objects.
const ContentTypeJSON = "application/json"

// Uploader stores an object and returns its URL.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
}

// SnapshotKey returns the object key of a snapshot taken at t:
// {prefix}/{yyyy}/{mm}/{dd}/{unix-nanos}.json.
func SnapshotKey(prefix string, t time.Time) string {
	t = t.UTC()
	return path.Join(prefix, t.Format("2006/01/02"), fmt.Sprintf("%d.json", t.UnixNano()))
}
