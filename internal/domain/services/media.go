package services

import (
	"context"
	"io"
)

// MediaKind is the blob family a media object belongs to
type MediaKind string

const (
	MediaImages MediaKind = "images"
	MediaAudio  MediaKind = "audio"
	MediaVideos MediaKind = "videos"
)

// ParseMediaKind validates a kind taken from a request path
func ParseMediaKind(s string) (MediaKind, bool) {
	switch MediaKind(s) {
	case MediaImages, MediaAudio, MediaVideos:
		return MediaKind(s), true
	}
	return "", false
}

// MediaManager owns media blobs and their transient preview URLs.
// The project store only holds ids that point into it.
type MediaManager interface {
	// RevokeProjectPreviewURLs forgets every preview URL handed out for a project
	RevokeProjectPreviewURLs(projectID string)

	// DeleteAllMediaForProject removes every blob stored for a project
	DeleteAllMediaForProject(ctx context.Context, projectID string) error

	// DeleteProjectVideos removes only the project's video blobs
	DeleteProjectVideos(ctx context.Context, projectID string) error
}

// MediaUploader is the write/read side of the media manager used by HTTP handlers
type MediaUploader interface {
	Upload(ctx context.Context, projectID string, kind MediaKind, filename string, r io.Reader, size int64) (mediaID string, err error)
	PreviewURL(ctx context.Context, projectID string, kind MediaKind, mediaID string) (string, error)
}
