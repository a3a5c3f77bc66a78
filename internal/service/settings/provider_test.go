package settings

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name    string
		content *string
		want    bool
	}{
		{name: "missing file defaults to enabled", content: nil, want: true},
		{name: "disabled", content: ptr("autosave_enabled: false\n"), want: false},
		{name: "enabled", content: ptr("autosave_enabled: true\n"), want: true},
		{name: "key absent", content: ptr("other: 1\n"), want: true},
		{name: "corrupt file", content: ptr("autosave_enabled: [\n"), want: true},
		{name: "wrong type", content: ptr("autosave_enabled: maybe\n"), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "settings.yaml")
			if tt.content != nil {
				require.NoError(t, os.WriteFile(path, []byte(*tt.content), 0o644))
			}
			p := NewProvider(path, discardLogger())
			assert.Equal(t, tt.want, p.AutosaveEnabled())
		})
	}
}

func TestSetAutosaveEnabled_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")
	p := NewProvider(path, discardLogger())

	require.NoError(t, p.SetAutosaveEnabled(false))
	assert.False(t, p.AutosaveEnabled())

	reopened := NewProvider(path, discardLogger())
	assert.False(t, reopened.AutosaveEnabled())

	require.NoError(t, p.SetAutosaveEnabled(true))
	assert.True(t, NewProvider(path, discardLogger()).AutosaveEnabled())
}

func TestSetAutosaveEnabled_WriteFailureKeepsValue(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	// parent "directory" is a regular file, so the write must fail
	p := NewProvider(filepath.Join(blocker, "settings.yaml"), discardLogger())
	err := p.SetAutosaveEnabled(false)
	require.Error(t, err)
	assert.False(t, p.AutosaveEnabled())
}

func TestWatch_ReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	p := NewProvider(path, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, p.Watch(ctx))

	require.NoError(t, os.WriteFile(path, []byte("autosave_enabled: false\n"), 0o644))
	require.Eventually(t, func() bool { return !p.AutosaveEnabled() }, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(path))
	require.Eventually(t, p.AutosaveEnabled, 2*time.Second, 20*time.Millisecond)
}

func ptr[T any](v T) *T { return &v }
