package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Snapshot is an immutable, versioned view of the configuration. Analysis
// runs take one snapshot at the start and use it throughout.
type Snapshot struct {
	Version  uint64    `json:"version"`
	LoadedAt time.Time `json:"loaded_at"`
	Path     string    `json:"path,omitempty"`
	Config   *Config   `json:"config"`
}

// Store holds the live configuration snapshot and swaps it atomically on
// reload. A file that fails validation never replaces a good snapshot.
type Store struct {
	path     string
	current  atomic.Pointer[Snapshot]
	version  atomic.Uint64
	reloadMu sync.Mutex
	logger   *slog.Logger

	// DebounceWindow is how long Watch waits for writes to settle.
	DebounceWindow time.Duration
	// OnReload, when set, is called after every reload Watch attempts.
	OnReload func(snap *Snapshot, err error)
}

// NewStore loads path (defaults when it does not exist) and returns a store
// serving it. An empty path serves the defaults and never reloads.
func NewStore(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{path: path, logger: logger, DebounceWindow: 250 * time.Millisecond}
	if path == "" {
		s.swap(DefaultConfig())
		return s, nil
	}
	if _, err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewStaticStore serves a fixed, already validated config.
func NewStaticStore(cfg *Config) *Store {
	s := &Store{logger: slog.Default(), DebounceWindow: 250 * time.Millisecond}
	s.swap(cfg)
	return s
}

// Current returns the live snapshot.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Reload reads and validates the file, then publishes it as a new snapshot.
// On error the previous snapshot stays live.
func (s *Store) Reload() (*Snapshot, error) {
	if s.path == "" {
		return s.Current(), nil
	}
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	cfg, err := Load(s.path)
	if err != nil {
		return s.Current(), err
	}
	snap := s.swap(cfg)
	s.logger.Info("config loaded", "path", s.path, "version", snap.Version)
	return snap, nil
}

func (s *Store) swap(cfg *Config) *Snapshot {
	snap := &Snapshot{
		Version:  s.version.Add(1),
		LoadedAt: time.Now().UTC(),
		Path:     s.path,
		Config:   cfg,
	}
	s.current.Store(snap)
	return snap
}

// Watch reloads the config whenever its file changes, until ctx is done.
// Bursts of events within DebounceWindow cause a single reload.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating config watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory so atomic rename-on-save editors are seen.
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	target := filepath.Clean(s.path)

	var timer *time.Timer
	var timerC <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(s.DebounceWindow)
			} else {
				timer.Reset(s.DebounceWindow)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			snap, err := s.Reload()
			if err != nil {
				s.logger.Warn("config reload rejected, keeping previous snapshot",
					"path", s.path, "error", err)
			}
			if s.OnReload != nil {
				s.OnReload(snap, err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("config watcher error", "error", err)
		}
	}
}
