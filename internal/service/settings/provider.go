// Package settings holds editor preferences backed by a small YAML file.
package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"giftstudio/internal/domain/services"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// File is the on-disk shape of the settings file
type File struct {
	AutosaveEnabled *bool `yaml:"autosave_enabled"`
}

// Provider implements services.SettingsProvider. Reads are lock-free;
// writes and reloads are serialized.
type Provider struct {
	path   string
	logger *slog.Logger

	autosave atomic.Bool
	writeMu  sync.Mutex
}

var _ services.SettingsStore = (*Provider)(nil)

// NewProvider reads path once. A missing or unreadable file leaves every
// setting at its default.
func NewProvider(path string, logger *slog.Logger) *Provider {
	p := &Provider{path: path, logger: logger}
	p.autosave.Store(true)
	p.reload()
	return p
}

// AutosaveEnabled reports whether debounced saves should run
func (p *Provider) AutosaveEnabled() bool {
	return p.autosave.Load()
}

// SetAutosaveEnabled updates the flag and rewrites the settings file.
// The in-memory value changes even if the write fails.
func (p *Provider) SetAutosaveEnabled(enabled bool) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	p.autosave.Store(enabled)

	data, err := yaml.Marshal(File{AutosaveEnabled: &enabled})
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if dir := filepath.Dir(p.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create settings directory: %w", err)
		}
	}
	if err := os.WriteFile(p.path, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	p.logger.Info("settings saved", "autosave_enabled", enabled)
	return nil
}

// Watch reloads the file whenever it changes on disk, until ctx is done.
// The parent directory is watched so editors that replace the file by
// rename are picked up too.
func (p *Provider) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create settings watcher: %w", err)
	}

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("create settings directory: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	go func() {
		defer watcher.Close()
		target := filepath.Clean(p.path)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
					p.reload()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				p.logger.Warn("settings watcher error", "error", err)
			}
		}
	}()

	return nil
}

func (p *Provider) reload() {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	data, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		p.autosave.Store(true)
		return
	}
	if err != nil {
		p.logger.Warn("failed to read settings, using defaults", "path", p.path, "error", err)
		p.autosave.Store(true)
		return
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		p.logger.Warn("corrupt settings file, using defaults", "path", p.path, "error", err)
		p.autosave.Store(true)
		return
	}

	enabled := true
	if f.AutosaveEnabled != nil {
		enabled = *f.AutosaveEnabled
	}
	if p.autosave.Swap(enabled) != enabled {
		p.logger.Info("settings reloaded", "autosave_enabled", enabled)
	}
}
