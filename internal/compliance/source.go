package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"
)

// PolicySource holds the active policy and swaps it atomically when the
// backing file changes. Readers never block.
type PolicySource struct {
	path    string
	logger  *slog.Logger
	current atomic.Pointer[Policy]
	modTime time.Time
}

// SourceOption configures a PolicySource.
type SourceOption func(*PolicySource)

// WithSourceLogger sets the logger used for reload outcomes.
func WithSourceLogger(logger *slog.Logger) SourceOption {
	return func(s *PolicySource) {
		s.logger = logger
	}
}

// NewStaticSource serves a fixed policy. Reload is a no-op.
func NewStaticSource(p Policy) *PolicySource {
	s := &PolicySource{logger: slog.Default()}
	s.current.Store(&p)
	return s
}

// NewFileSource loads path and returns a source that can reload it.
func NewFileSource(path string, opts ...SourceOption) (*PolicySource, error) {
	s := &PolicySource{path: path, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if _, err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Policy returns the active policy.
func (s *PolicySource) Policy() Policy {
	return *s.current.Load()
}

// Reload re-reads the file when its modification time moved. It reports
// whether a new policy was installed. A bad file leaves the previous policy
// in place.
func (s *PolicySource) Reload() (bool, error) {
	if s.path == "" {
		return false, nil
	}
	info, err := os.Stat(s.path)
	if err != nil {
		return false, fmt.Errorf("stat policy file: %w", err)
	}
	if !s.modTime.IsZero() && !info.ModTime().After(s.modTime) {
		return false, nil
	}
	f, err := os.Open(s.path)
	if err != nil {
		return false, fmt.Errorf("open policy file: %w", err)
	}
	defer f.Close()

	p, err := LoadPolicy(f)
	if err != nil {
		return false, err
	}
	s.current.Store(&p)
	s.modTime = info.ModTime()
	return true, nil
}

// Watch reloads on every tick until ctx is done. Reload is only called from
// this goroutine once Watch starts.
func (s *PolicySource) Watch(ctx context.Context, interval time.Duration) {
	if s.path == "" || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			changed, err := s.Reload()
			if err != nil {
				s.logger.WarnContext(ctx, "policy reload failed; keeping previous policy",
					"path", s.path,
					"error", err,
				)
				continue
			}
			if changed {
				s.logger.InfoContext(ctx, "policy reloaded", "path", s.path)
			}
		}
	}
}
