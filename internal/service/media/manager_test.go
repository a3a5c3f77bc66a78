package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"giftstudio/internal/domain"
	"giftstudio/internal/domain/services"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryBucket is an in-process objectStore
type memoryBucket struct {
	mu         sync.Mutex
	exists     bool
	objects    map[string][]byte
	types      map[string]string
	presigned  int
	removeErr  error
	presignErr error
}

func newMemoryBucket() *memoryBucket {
	return &memoryBucket{objects: map[string][]byte{}, types: map[string]string{}}
}

func (b *memoryBucket) BucketExists(ctx context.Context, bucket string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.exists, nil
}

func (b *memoryBucket) MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.exists = true
	return nil
}

func (b *memoryBucket) PutObject(ctx context.Context, bucket, object string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[object] = data
	b.types[object] = opts.ContentType
	return minio.UploadInfo{Bucket: bucket, Key: object, Size: int64(len(data))}, nil
}

func (b *memoryBucket) PresignedGetObject(ctx context.Context, bucket, object string, expires time.Duration, params url.Values) (*url.URL, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.presignErr != nil {
		return nil, b.presignErr
	}
	b.presigned++
	return url.Parse(fmt.Sprintf("http://minio.local/%s/%s?sig=%d", bucket, object, b.presigned))
}

func (b *memoryBucket) ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	b.mu.Lock()
	var keys []string
	for k := range b.objects {
		if strings.HasPrefix(k, opts.Prefix) {
			keys = append(keys, k)
		}
	}
	b.mu.Unlock()
	sort.Strings(keys)

	ch := make(chan minio.ObjectInfo, len(keys))
	for _, k := range keys {
		ch <- minio.ObjectInfo{Key: k}
	}
	close(ch)
	return ch
}

func (b *memoryBucket) RemoveObject(ctx context.Context, bucket, object string, opts minio.RemoveObjectOptions) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.removeErr != nil {
		return b.removeErr
	}
	delete(b.objects, object)
	return nil
}

func (b *memoryBucket) keys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.objects))
	for k := range b.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func newTestManager(t *testing.T) (*Manager, *memoryBucket) {
	t.Helper()
	bucket := newMemoryBucket()
	m := NewManager(bucket, "gift-media", 15*time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return m, bucket
}

func upload(t *testing.T, m *Manager, projectID string, kind services.MediaKind, filename string) string {
	t.Helper()
	body := []byte("blob:" + filename)
	id, err := m.Upload(context.Background(), projectID, kind, filename, bytes.NewReader(body), int64(len(body)))
	require.NoError(t, err)
	return id
}

func TestEnsureBucket(t *testing.T) {
	m, bucket := newTestManager(t)
	require.NoError(t, m.EnsureBucket(context.Background()))
	assert.True(t, bucket.exists)
	require.NoError(t, m.EnsureBucket(context.Background()))
}

func TestUpload(t *testing.T) {
	m, bucket := newTestManager(t)

	id := upload(t, m, "p1", services.MediaImages, "Photo.JPG")
	assert.True(t, strings.HasSuffix(id, ".jpg"))
	object := "projects/p1/images/" + id
	assert.Equal(t, []string{object}, bucket.keys())
	assert.Equal(t, "image/jpeg", bucket.types[object])

	t.Run("requires project id", func(t *testing.T) {
		_, err := m.Upload(context.Background(), "", services.MediaImages, "a.png", strings.NewReader("x"), 1)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("rejects unknown kind", func(t *testing.T) {
		_, err := m.Upload(context.Background(), "p1", services.MediaKind("docs"), "a.pdf", strings.NewReader("x"), 1)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestPreviewURL(t *testing.T) {
	ctx := context.Background()
	m, bucket := newTestManager(t)
	now := time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	id := upload(t, m, "p1", services.MediaVideos, "clip.mp4")

	first, err := m.PreviewURL(ctx, "p1", services.MediaVideos, id)
	require.NoError(t, err)
	assert.Contains(t, first, "projects/p1/videos/"+id)

	second, err := m.PreviewURL(ctx, "p1", services.MediaVideos, id)
	require.NoError(t, err)
	assert.Equal(t, first, second, "cached until close to expiry")
	assert.Equal(t, 1, bucket.presigned)

	now = now.Add(14*time.Minute + 30*time.Second)
	third, err := m.PreviewURL(ctx, "p1", services.MediaVideos, id)
	require.NoError(t, err)
	assert.NotEqual(t, first, third)

	m.RevokeProjectPreviewURLs("p1")
	fourth, err := m.PreviewURL(ctx, "p1", services.MediaVideos, id)
	require.NoError(t, err)
	assert.NotEqual(t, third, fourth)
	assert.Equal(t, 3, bucket.presigned)

	for _, bad := range []string{"", "../p2/videos/x.mp4"} {
		_, err := m.PreviewURL(ctx, "p1", services.MediaVideos, bad)
		assert.ErrorIs(t, err, domain.ErrNotFound, bad)
	}

	bucket.presignErr = errors.New("endpoint down")
	_, err = m.PreviewURL(ctx, "p2", services.MediaImages, "a.png")
	assert.Error(t, err)
}

func TestDeleteAllMediaForProject(t *testing.T) {
	ctx := context.Background()
	m, bucket := newTestManager(t)
	img := upload(t, m, "p1", services.MediaImages, "a.png")
	upload(t, m, "p1", services.MediaVideos, "b.mp4")
	other := upload(t, m, "p10", services.MediaImages, "c.png")

	before, err := m.PreviewURL(ctx, "p1", services.MediaImages, img)
	require.NoError(t, err)

	require.NoError(t, m.DeleteAllMediaForProject(ctx, "p1"))
	assert.Equal(t, []string{"projects/p10/images/" + other}, bucket.keys())

	after, err := m.PreviewURL(ctx, "p1", services.MediaImages, img)
	require.NoError(t, err)
	assert.NotEqual(t, before, after, "previews are revoked with the media")

	require.NoError(t, m.DeleteAllMediaForProject(ctx, ""))
	assert.Len(t, bucket.keys(), 1)
}

func TestDeleteProjectVideos(t *testing.T) {
	ctx := context.Background()
	m, bucket := newTestManager(t)
	img := upload(t, m, "p1", services.MediaImages, "a.png")
	vid := upload(t, m, "p1", services.MediaVideos, "b.mp4")

	imgURL, err := m.PreviewURL(ctx, "p1", services.MediaImages, img)
	require.NoError(t, err)
	vidURL, err := m.PreviewURL(ctx, "p1", services.MediaVideos, vid)
	require.NoError(t, err)

	require.NoError(t, m.DeleteProjectVideos(ctx, "p1"))
	assert.Equal(t, []string{"projects/p1/images/" + img}, bucket.keys())

	again, err := m.PreviewURL(ctx, "p1", services.MediaImages, img)
	require.NoError(t, err)
	assert.Equal(t, imgURL, again, "image previews survive")

	again, err = m.PreviewURL(ctx, "p1", services.MediaVideos, vid)
	require.NoError(t, err)
	assert.NotEqual(t, vidURL, again)
}

func TestDeleteReportsRemoveFailures(t *testing.T) {
	ctx := context.Background()
	m, bucket := newTestManager(t)
	upload(t, m, "p1", services.MediaImages, "a.png")
	upload(t, m, "p1", services.MediaImages, "b.png")

	bucket.removeErr = errors.New("access denied")
	err := m.DeleteAllMediaForProject(ctx, "p1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
	assert.Len(t, bucket.keys(), 2)
}

func TestContentType(t *testing.T) {
	cases := map[string]string{
		".jpeg": "image/jpeg",
		".webp": "image/webp",
		".mov":  "video/quicktime",
		".mp3":  "audio/mpeg",
		"":      "application/octet-stream",
		".exe":  "application/octet-stream",
	}
	for ext, want := range cases {
		assert.Equal(t, want, contentType(ext), ext)
	}
}
