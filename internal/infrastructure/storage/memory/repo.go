package memory

import (
	"context"
	"sort"
	"sync"

	"ibsnap/internal/application/port"
	"ibsnap/internal/domain/model"
	"ibsnap/internal/infrastructure/storage"
)

type entryKey struct {
	kind   model.CacheKind
	subKey string
}

// Repo is an in-process CacheStore and watchlist, used when no database is
// configured and as a fast first read tier.
type Repo struct {
	mu        sync.RWMutex
	entries   map[entryKey][]model.CacheEntry // newest first
	watchlist map[string]string
}

func New() *Repo {
	return &Repo{
		entries:   make(map[entryKey][]model.CacheEntry),
		watchlist: make(map[string]string),
	}
}

func (r *Repo) Write(_ context.Context, e model.CacheEntry) error {
	e.Payload = append([]byte(nil), e.Payload...)

	r.mu.Lock()
	defer r.mu.Unlock()

	k := entryKey{e.Kind, e.SubKey}
	list := append([]model.CacheEntry{e}, r.entries[k]...)
	if n := e.Kind.Retain(); len(list) > n {
		list = list[:n]
	}
	r.entries[k] = list
	return nil
}

func (r *Repo) Read(_ context.Context, kind model.CacheKind, subKey string) (model.CacheEntry, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.entries[entryKey{kind, subKey}]
	if len(list) == 0 {
		return model.CacheEntry{}, false, nil
	}
	return list[0], true, nil
}

func (r *Repo) History(_ context.Context, kind model.CacheKind, subKey string, limit int) ([]model.CacheEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.entries[entryKey{kind, subKey}]
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return append([]model.CacheEntry(nil), list...), nil
}

func (r *Repo) Close() error { return nil }

func (r *Repo) ListWatchlist(context.Context) ([]model.WatchlistEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.WatchlistEntry, 0, len(r.watchlist))
	for sym, name := range r.watchlist {
		out = append(out, model.WatchlistEntry{Symbol: sym, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (r *Repo) AddSymbol(_ context.Context, symbol, name string) error {
	symbol = storage.NormalizeSymbol(symbol)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.watchlist[symbol]; ok {
		return port.ErrDuplicateSymbol
	}
	r.watchlist[symbol] = name
	return nil
}

func (r *Repo) RemoveSymbols(_ context.Context, symbols ...string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for _, sym := range storage.NormalizeSymbols(symbols) {
		if _, ok := r.watchlist[sym]; ok {
			delete(r.watchlist, sym)
			removed++
		}
		delete(r.entries, entryKey{model.KindQuote, sym})
	}
	return removed, nil
}

var _ port.Repository = (*Repo)(nil)
