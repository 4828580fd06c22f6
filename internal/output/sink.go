package output

import (
	"context"
	"path/filepath"

	"github.com/wonny/gapscan/internal/contracts"
	"github.com/wonny/gapscan/pkg/logger"
)

// Sink writes to the CSV files and, when configured, the Postgres mirror.
// Only CSV failures are returned; mirror failures are logged.
type Sink struct {
	picks     *PickCSV
	watchlist *WatchlistCSV
	mirror    *Repository
	logger    *logger.Logger
}

// NewSink creates a sink writing under dir. mirror may be nil.
func NewSink(dir string, mirror *Repository, log *logger.Logger) *Sink {
	return &Sink{
		picks:     NewPickCSV(filepath.Join(dir, PickFile)),
		watchlist: NewWatchlistCSV(filepath.Join(dir, WatchlistFile)),
		mirror:    mirror,
		logger:    log,
	}
}

var (
	_ contracts.PickWriter      = (*Sink)(nil)
	_ contracts.WatchlistWriter = (*Sink)(nil)
)

// PickPath is the pick file location
func (s *Sink) PickPath() string {
	return s.picks.Path()
}

// WatchlistPath is the watchlist file location
func (s *Sink) WatchlistPath() string {
	return s.watchlist.file.Path()
}

// Mirror returns the Postgres mirror, nil when disabled
func (s *Sink) Mirror() *Repository {
	return s.mirror
}

// WritePick appends rec to the pick file, then the mirror
func (s *Sink) WritePick(ctx context.Context, rec contracts.FinalPickRecord) error {
	if err := s.picks.WritePick(ctx, rec); err != nil {
		return err
	}
	if s.mirror != nil {
		if err := s.mirror.WritePick(ctx, rec); err != nil {
			s.logger.WithError(err).Warn("Pick mirror write failed")
		}
	}
	return nil
}

// WriteWatchlist appends rows to the watchlist file, then the mirror
func (s *Sink) WriteWatchlist(ctx context.Context, rows []contracts.WatchlistRow) error {
	if err := s.watchlist.WriteWatchlist(ctx, rows); err != nil {
		return err
	}
	if s.mirror != nil {
		if err := s.mirror.WriteWatchlist(ctx, rows); err != nil {
			s.logger.WithError(err).Warn("Watchlist mirror write failed")
		}
	}
	return nil
}

// FinalFor returns the final pick already persisted for date
func (s *Sink) FinalFor(date string) (*contracts.FinalPickRecord, error) {
	return FinalFor(s.picks.Path(), date)
}
