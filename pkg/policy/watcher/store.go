// Package watcher hot-reloads a directory of policy YAML files, swapping
// an atomic pointer so concurrent readers never observe a torn reload.
// Filesystem events debounce into one batched reload of the whole
// directory into a named multi-policy map.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ik-labs/route-pilot/pkg/apperrors"
	"github.com/ik-labs/route-pilot/pkg/policy"
)

// defaultDebounce lets rapid successive writes (an editor's save-then-
// rename, or git checkout touching several files) collapse into one
// reload.
const defaultDebounce = 150 * time.Millisecond

// Store holds the live set of policies, keyed by name, behind an atomic
// pointer so Get never blocks on or observes an in-progress reload.
type Store struct {
	dir     string
	current atomic.Pointer[map[string]*policy.Policy]
	logger  *slog.Logger

	watcher *fsnotify.Watcher
	mu      sync.Mutex
	timer   *time.Timer
	debounce time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// New loads every *.yaml/*.yml file in dir once, synchronously, before
// returning — callers get a populated Store even if Watch is never
// called.
func New(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{dir: dir, logger: logger, debounce: defaultDebounce}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns the named policy from the most recently loaded set, or
// (nil, false) if no such policy exists.
func (s *Store) Get(name string) (*policy.Policy, bool) {
	m := s.current.Load()
	if m == nil {
		return nil, false
	}
	p, ok := (*m)[name]
	return p, ok
}

// Resolve implements subagent.PolicyResolver, so a Store can be handed
// directly to subagent.New/agentsession.New wherever they expect a
// PolicyResolver.
func (s *Store) Resolve(name string) (*policy.Policy, error) {
	p, ok := s.Get(name)
	if !ok {
		return nil, apperrors.NewPolicyError(name, []apperrors.Issue{
			{Path: "$", Message: "no such policy loaded"},
		})
	}
	return p, nil
}

// All returns a snapshot of every currently loaded policy.
func (s *Store) All() map[string]*policy.Policy {
	m := s.current.Load()
	if m == nil {
		return nil
	}
	out := make(map[string]*policy.Policy, len(*m))
	for k, v := range *m {
		out[k] = v
	}
	return out
}

// Watch starts an fsnotify watch on the store's directory and reloads
// (debounced) on every create/write/rename/remove of a .yaml/.yml file.
// It blocks until ctx is cancelled or Stop is called.
func (s *Store) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("policy/watcher: create fsnotify watcher: %w", err)
	}
	s.watcher = w
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	defer close(s.doneCh)

	if err := w.Add(s.dir); err != nil {
		w.Close()
		return fmt.Errorf("policy/watcher: watch %s: %w", s.dir, err)
	}
	defer w.Close()

	s.logger.Info("policy watcher started", "dir", s.dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.stopCh:
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return fmt.Errorf("policy/watcher: events channel closed")
			}
			if !s.shouldReload(ev) {
				continue
			}
			s.debouncedReload()
		case err, ok := <-w.Errors:
			if !ok {
				return fmt.Errorf("policy/watcher: errors channel closed")
			}
			s.logger.Error("policy watcher error", "error", err)
		}
	}
}

// Stop ends a running Watch call and waits for it to return.
func (s *Store) Stop() {
	if s.stopCh == nil {
		return
	}
	close(s.stopCh)
	<-s.doneCh
}

func (s *Store) shouldReload(ev fsnotify.Event) bool {
	if ev.Op&fsnotify.Chmod == fsnotify.Chmod {
		return false
	}
	ext := strings.ToLower(filepath.Ext(ev.Name))
	return ext == ".yaml" || ext == ".yml"
}

func (s *Store) debouncedReload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		if err := s.reload(); err != nil {
			s.logger.Error("policy reload failed", "error", err)
		} else {
			s.logger.Info("policy reload succeeded", "dir", s.dir)
		}
	})
}

// reload reads every policy file in s.dir and, if all parse and validate
// cleanly, atomically swaps the live set. A single bad file fails the
// whole reload — policies already in memory are left untouched rather
// than partially replaced.
func (s *Store) reload() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("policy/watcher: read dir %s: %w", s.dir, err)
	}

	next := make(map[string]*policy.Policy)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		p, err := policy.LoadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			return fmt.Errorf("policy/watcher: load %s: %w", e.Name(), err)
		}
		next[p.Name] = p
	}

	s.current.Store(&next)
	return nil
}
