// Package media stores project media blobs in an S3-compatible bucket and
// hands out short-lived preview URLs for them.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"giftstudio/internal/config"
	"giftstudio/internal/domain"
	"giftstudio/internal/domain/services"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// objectStore is the subset of *minio.Client the manager uses
type objectStore interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

var _ objectStore = (*minio.Client)(nil)

// previewRefreshMargin makes a cached URL count as expired slightly early,
// so a client never receives one that dies in flight
const previewRefreshMargin = time.Minute

type previewURL struct {
	url     string
	expires time.Time
}

// Manager implements services.MediaManager and services.MediaUploader
type Manager struct {
	client objectStore
	bucket string
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	previews map[string]map[string]previewURL // projectID -> object name -> url
}

var (
	_ services.MediaManager  = (*Manager)(nil)
	_ services.MediaUploader = (*Manager)(nil)
)

// NewMinIOClient connects to the configured endpoint
func NewMinIOClient(cfg *config.Config) (*minio.Client, error) {
	client, err := minio.New(cfg.MinIOEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIOAccessKey, cfg.MinIOSecretKey, ""),
		Secure: cfg.MinIOUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return client, nil
}

// NewManager creates a media manager over client
func NewManager(client objectStore, bucket string, ttl time.Duration, logger *slog.Logger) *Manager {
	if ttl <= 0 {
		ttl = config.DefaultPreviewURLTTL
	}
	return &Manager{
		client:   client,
		bucket:   bucket,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
		previews: map[string]map[string]previewURL{},
	}
}

// EnsureBucket creates the bucket if it does not exist yet
func (m *Manager) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", m.bucket, err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", m.bucket, err)
	}
	m.logger.Info("media bucket created", "bucket", m.bucket)
	return nil
}

// Upload stores r under a fresh media id and returns that id.
// The id keeps the file extension so the content type survives round trips.
func (m *Manager) Upload(ctx context.Context, projectID string, kind services.MediaKind, filename string, r io.Reader, size int64) (string, error) {
	if projectID == "" {
		return "", &domain.ValidationError{Messages: []string{"projectId: is required"}}
	}
	if _, ok := services.ParseMediaKind(string(kind)); !ok {
		return "", &domain.ValidationError{Messages: []string{fmt.Sprintf("kind: unknown media kind %q", kind)}}
	}

	ext := strings.ToLower(filepath.Ext(filename))
	mediaID := uuid.NewString() + ext
	object := objectName(projectID, kind, mediaID)

	_, err := m.client.PutObject(ctx, m.bucket, object, r, size, minio.PutObjectOptions{
		ContentType: contentType(ext),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", object, err)
	}

	m.logger.Debug("media uploaded",
		"project_id", projectID,
		"kind", kind,
		"media_id", mediaID,
		"size", size,
	)
	return mediaID, nil
}

// PreviewURL returns a presigned GET URL for a media object. URLs are cached
// per project until they expire or the project's previews are revoked.
func (m *Manager) PreviewURL(ctx context.Context, projectID string, kind services.MediaKind, mediaID string) (string, error) {
	if mediaID == "" || strings.Contains(mediaID, "/") {
		return "", &domain.NotFoundError{Message: "media not found"}
	}
	object := objectName(projectID, kind, mediaID)
	now := m.now()

	m.mu.Lock()
	if cached, ok := m.previews[projectID][object]; ok && now.Add(previewRefreshMargin).Before(cached.expires) {
		m.mu.Unlock()
		return cached.url, nil
	}
	m.mu.Unlock()

	u, err := m.client.PresignedGetObject(ctx, m.bucket, object, m.ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", object, err)
	}

	m.mu.Lock()
	if m.previews[projectID] == nil {
		m.previews[projectID] = map[string]previewURL{}
	}
	m.previews[projectID][object] = previewURL{url: u.String(), expires: now.Add(m.ttl)}
	m.mu.Unlock()

	return u.String(), nil
}

// RevokeProjectPreviewURLs forgets every preview URL handed out for projectID.
// Presigned URLs cannot be recalled server side; they are simply never reused.
func (m *Manager) RevokeProjectPreviewURLs(projectID string) {
	m.mu.Lock()
	n := len(m.previews[projectID])
	delete(m.previews, projectID)
	m.mu.Unlock()

	if n > 0 {
		m.logger.Debug("preview urls revoked", "project_id", projectID, "count", n)
	}
}

// DeleteAllMediaForProject removes every object under the project's prefix
func (m *Manager) DeleteAllMediaForProject(ctx context.Context, projectID string) error {
	if projectID == "" {
		return nil
	}
	m.RevokeProjectPreviewURLs(projectID)
	return m.removePrefix(ctx, projectPrefix(projectID))
}

// DeleteProjectVideos removes only the project's video objects
func (m *Manager) DeleteProjectVideos(ctx context.Context, projectID string) error {
	if projectID == "" {
		return nil
	}
	prefix := path.Join(projectPrefix(projectID), string(services.MediaVideos)) + "/"

	m.mu.Lock()
	for object := range m.previews[projectID] {
		if strings.HasPrefix(object, prefix) {
			delete(m.previews[projectID], object)
		}
	}
	m.mu.Unlock()

	return m.removePrefix(ctx, prefix)
}

func (m *Manager) removePrefix(ctx context.Context, prefix string) error {
	var errs []error
	removed := 0

	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			errs = append(errs, fmt.Errorf("list %s: %w", prefix, obj.Err))
			continue
		}
		if err := m.client.RemoveObject(ctx, m.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", obj.Key, err))
			continue
		}
		removed++
	}

	m.logger.Debug("media removed", "prefix", prefix, "count", removed, "failed", len(errs))
	return errors.Join(errs...)
}

func projectPrefix(projectID string) string {
	return "projects/" + projectID + "/"
}

func objectName(projectID string, kind services.MediaKind, mediaID string) string {
	return path.Join("projects", projectID, string(kind), mediaID)
}

func contentType(ext string) string {
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".mov":
		return "video/quicktime"
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".ogg":
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}
