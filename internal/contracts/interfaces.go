package contracts

import (
	"context"
	"time"
)

// MarketDataProvider supplies snapshots and bars.
// Implementations enforce their own timeout and return ErrDataFetch-wrapped errors.
// ⭐ SSOT: 시세 소스 인터페이스
type MarketDataProvider interface {
	FetchSnapshots(ctx context.Context, limit int) ([]RawSnapshot, error)
	DailyBars(ctx context.Context, ticker string, from, to time.Time) ([]DailyBar, error)
	MinuteBars(ctx context.Context, ticker string, from, to time.Time) ([]MinuteBar, error)
}

// ReferenceProvider resolves symbol reference data
type ReferenceProvider interface {
	TickerDetails(ctx context.Context, ticker string) (*TickerDetails, error)
}

// CatalystSource returns the latest news headline for a ticker
type CatalystSource interface {
	LatestHeadline(ctx context.Context, ticker string) (string, error)
}

// PickWriter persists final pick rows (append-only)
type PickWriter interface {
	WritePick(ctx context.Context, rec FinalPickRecord) error
}

// WatchlistWriter persists the rolling top-N
type WatchlistWriter interface {
	WriteWatchlist(ctx context.Context, rows []WatchlistRow) error
}
