package port

import (
	"context"
	"errors"

	"ibsnap/internal/domain/model"
)

// ErrDuplicateSymbol is returned when a watchlist symbol already exists.
var ErrDuplicateSymbol = errors.New("symbol already exists in watchlist")

// CacheStore persists refresh results. A write replaces the current entry of
// its (kind, sub-key) in one step, keeping kind.Retain() entries, so readers
// see either the previous or the new value.
type CacheStore interface {
	Write(ctx context.Context, entry model.CacheEntry) error
	// Read returns the newest entry; ok is false when none exists yet.
	Read(ctx context.Context, kind model.CacheKind, subKey string) (entry model.CacheEntry, ok bool, err error)
	// History returns up to limit entries, newest first.
	History(ctx context.Context, kind model.CacheKind, subKey string, limit int) ([]model.CacheEntry, error)
	Close() error
}

// WatchlistRepository is the user-managed list of quote refresh targets.
type WatchlistRepository interface {
	ListWatchlist(ctx context.Context) ([]model.WatchlistEntry, error)
	AddSymbol(ctx context.Context, symbol, name string) error
	// RemoveSymbols also drops the removed symbols' cached quotes.
	RemoveSymbols(ctx context.Context, symbols ...string) (int, error)
}

// Repository is a storage backend serving both contracts.
type Repository interface {
	CacheStore
	WatchlistRepository
}
