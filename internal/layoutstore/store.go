// Package layoutstore is the persistence surface for dashboards and their
// per-navigation-path grid layouts. A Store opens its database lazily on the
// first call and reuses the handle afterwards.
package layoutstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/amanthanvi/dashkeep/internal/storage"
	"golang.org/x/sync/singleflight"
)

const DefaultDashboardName = "My Dashboard"

type (
	Dashboard    = storage.Dashboard
	LayoutRecord = storage.LayoutRecord
	GridCell     = storage.GridCell
)

type Options struct {
	Path                 string
	BusyTimeout          time.Duration
	DefaultDashboardName string
	Logger               *slog.Logger
}

type Store struct {
	opts   Options
	logger *slog.Logger

	opening singleflight.Group
	mu      sync.RWMutex
	backend *storage.Store
}

func New(opts Options) *Store {
	if strings.TrimSpace(opts.DefaultDashboardName) == "" {
		opts.DefaultDashboardName = DefaultDashboardName
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		opts:   opts,
		logger: logger.With("component", "layoutstore"),
	}
}

// Open establishes the database connection and provisions the schema. It is
// safe to call repeatedly and concurrently: callers arriving while an open is
// in flight wait for that open instead of starting their own. A failed open
// is not remembered, so the next call tries again.
func (s *Store) Open(ctx context.Context) error {
	_, release, err := s.conn(ctx)
	if err != nil {
		return err
	}
	release()
	return nil
}

// Close releases the database handle once every operation holding it has
// returned. An open already in flight finishes first and is closed with it.
// A later operation reopens the store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backend == nil {
		return nil
	}
	err := s.backend.Close()
	s.backend = nil
	if err != nil {
		return fmt.Errorf("close layout store: %w", err)
	}
	return nil
}

// conn returns the live handle with the read lock held; callers must invoke
// release when their operation is done. Close cannot tear the handle down
// until every release has run.
func (s *Store) conn(ctx context.Context) (*storage.Store, func(), error) {
	for {
		s.mu.RLock()
		if backend := s.backend; backend != nil {
			return backend, s.mu.RUnlock, nil
		}
		s.mu.RUnlock()

		if err := s.open(ctx); err != nil {
			return nil, nil, err
		}
	}
}

func (s *Store) open(ctx context.Context) error {
	// The shared open must not fail for every waiter just because the caller
	// that started it went away.
	openCtx := context.WithoutCancel(ctx)
	_, err, _ := s.opening.Do("open", func() (any, error) {
		// Holding the write lock across the open serializes it with Close,
		// so a handle is never installed behind a Close that already ran.
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.backend != nil {
			return nil, nil
		}

		started := time.Now()
		opened, err := storage.Open(openCtx, s.opts.Path, storage.Options{BusyTimeout: s.opts.BusyTimeout})
		if err != nil {
			s.logger.Error("open layout store failed", "path", s.opts.Path, "error", err)
			return nil, err
		}
		s.backend = opened
		s.logger.Info("layout store opened",
			"path", opened.Path(),
			"schema_version", storage.CurrentSchemaVersion(),
			"elapsed", time.Since(started),
		)
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}
	return nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
