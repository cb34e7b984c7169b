package composite

import (
	"context"

	"ibsnap/internal/application/port"
	"ibsnap/internal/domain/model"
)

// Repo fans cache writes out to every store and serves reads from the first
// store that has the entry. The watchlist lives in the primary repository.
type Repo struct {
	primary port.Repository
	stores  []port.CacheStore
}

func New(primary port.Repository, mirrors ...port.CacheStore) *Repo {
	// nil mirrors are allowed; filter in constructor for safety
	out := []port.CacheStore{primary}
	for _, m := range mirrors {
		if m != nil {
			out = append(out, m)
		}
	}
	return &Repo{primary: primary, stores: out}
}

func (r *Repo) Write(ctx context.Context, e model.CacheEntry) error {
	var firstErr error
	for _, s := range r.stores {
		if err := s.Write(ctx, e); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Repo) Read(ctx context.Context, kind model.CacheKind, subKey string) (model.CacheEntry, bool, error) {
	var firstErr error
	for _, s := range r.stores {
		e, ok, err := s.Read(ctx, kind, subKey)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if ok {
			return e, true, nil
		}
	}
	return model.CacheEntry{}, false, firstErr
}

func (r *Repo) History(ctx context.Context, kind model.CacheKind, subKey string, limit int) ([]model.CacheEntry, error) {
	var firstErr error
	for _, s := range r.stores {
		list, err := s.History(ctx, kind, subKey, limit)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if len(list) > 0 {
			return list, nil
		}
	}
	return nil, firstErr
}

func (r *Repo) ListWatchlist(ctx context.Context) ([]model.WatchlistEntry, error) {
	return r.primary.ListWatchlist(ctx)
}

func (r *Repo) AddSymbol(ctx context.Context, symbol, name string) error {
	return r.primary.AddSymbol(ctx, symbol, name)
}

type deleter interface {
	Delete(ctx context.Context, kind model.CacheKind, subKeys ...string) error
}

// RemoveSymbols removes from the primary and drops the symbols' quotes from
// the mirrors too, so a read never falls through to a stale mirror entry.
func (r *Repo) RemoveSymbols(ctx context.Context, symbols ...string) (int, error) {
	n, err := r.primary.RemoveSymbols(ctx, symbols...)
	if err != nil {
		return n, err
	}
	for _, s := range r.stores[1:] {
		var mErr error
		switch m := s.(type) {
		case port.WatchlistRepository:
			_, mErr = m.RemoveSymbols(ctx, symbols...)
		case deleter:
			mErr = m.Delete(ctx, model.KindQuote, symbols...)
		}
		if mErr != nil && err == nil {
			err = mErr
		}
	}
	return n, err
}

// Close is a no-op; the backends are closed by their owner.
func (r *Repo) Close() error { return nil }

var _ port.Repository = (*Repo)(nil)
