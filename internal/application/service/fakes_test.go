package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"ibsnap/internal/application/port"
	"ibsnap/internal/domain/model"
)

type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	slept []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.slept = append(c.slept, d)
	c.mu.Unlock()
	return ctx.Err()
}

// fakeSub serves tk, plus any partial updates once the settle delay has
// passed on clock.
type fakeSub struct {
	inst    model.Instrument
	tk      model.Ticker
	updates []model.Ticker
	clock   *fakeClock
	readyAt time.Time
}

func (s *fakeSub) Instrument() model.Instrument { return s.inst }

func (s *fakeSub) Snapshot() model.Ticker {
	tk := s.tk
	if s.clock != nil && s.clock.Now().Before(s.readyAt) {
		return tk
	}
	for _, u := range s.updates {
		mergeTicker(&tk, u)
	}
	return tk
}

func mergeTicker(dst *model.Ticker, u model.Ticker) {
	set := func(d *float64, v float64) {
		if v != 0 {
			*d = v
		}
	}
	set(&dst.Last, u.Last)
	set(&dst.MarketPrice, u.MarketPrice)
	set(&dst.Bid, u.Bid)
	set(&dst.Ask, u.Ask)
	set(&dst.Close, u.Close)
	set(&dst.Volume, u.Volume)
}

type fakeSession struct {
	qualifyErr map[string]error
	tickers    map[string][]model.Ticker
	updates    map[string][]model.Ticker
	clock      *fakeClock
	quoteErr   []error
	bars       map[string][]model.Bar
	barsErr    error

	positions    []model.RawPosition
	positionsErr error
	portfolio    []model.PortfolioItem
	portfolioErr error
	accounts     []string
	values       []model.AccountValue

	tiers     []model.MarketDataTier
	opened    int
	cancelled int
	history   int
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		qualifyErr: map[string]error{},
		tickers:    map[string][]model.Ticker{},
		updates:    map[string][]model.Ticker{},
		bars:       map[string][]model.Bar{},
	}
}

func (f *fakeSession) Connect(context.Context) error { return nil }
func (f *fakeSession) IsConnected() bool             { return true }
func (f *fakeSession) Disconnect() error             { return nil }

func (f *fakeSession) Positions(context.Context) ([]model.RawPosition, error) {
	return f.positions, f.positionsErr
}

func (f *fakeSession) Portfolio(context.Context) ([]model.PortfolioItem, error) {
	return f.portfolio, f.portfolioErr
}

func (f *fakeSession) AccountValues(context.Context) ([]model.AccountValue, error) {
	return f.values, nil
}

func (f *fakeSession) ManagedAccounts(context.Context) ([]string, error) {
	return f.accounts, nil
}

func (f *fakeSession) QualifyContracts(_ context.Context, inst model.Instrument) ([]model.Instrument, error) {
	if err := f.qualifyErr[inst.Symbol]; err != nil {
		return nil, err
	}
	inst.ConID = int64(len(inst.Symbol))
	return []model.Instrument{inst}, nil
}

func (f *fakeSession) RequestQuote(_ context.Context, inst model.Instrument, _ bool) (port.QuoteSubscription, error) {
	if len(f.quoteErr) > 0 {
		err := f.quoteErr[0]
		f.quoteErr = f.quoteErr[1:]
		if err != nil {
			return nil, err
		}
	}
	f.opened++
	sub := &fakeSub{inst: inst, updates: f.updates[inst.Symbol], clock: f.clock}
	if f.clock != nil {
		sub.readyAt = f.clock.Now().Add(DefaultSettleDelay)
	}
	if queue := f.tickers[inst.Symbol]; len(queue) > 0 {
		sub.tk = queue[0]
		f.tickers[inst.Symbol] = queue[1:]
	}
	return sub, nil
}

func (f *fakeSession) CancelQuote(context.Context, port.QuoteSubscription) error {
	f.cancelled++
	return nil
}

func (f *fakeSession) SetMarketDataTier(_ context.Context, tier model.MarketDataTier) error {
	f.tiers = append(f.tiers, tier)
	return nil
}

func (f *fakeSession) RequestHistoricalBars(_ context.Context, inst model.Instrument, _, _ string) ([]model.Bar, error) {
	f.history++
	if f.barsErr != nil {
		return nil, f.barsErr
	}
	return f.bars[inst.Symbol], nil
}

type fakeStore struct {
	entries   map[string][]model.CacheEntry
	watchlist []model.WatchlistEntry
	writeErr  error
	writes    int
}

func newFakeStore(symbols ...string) *fakeStore {
	s := &fakeStore{entries: map[string][]model.CacheEntry{}}
	for _, sym := range symbols {
		s.watchlist = append(s.watchlist, model.WatchlistEntry{Symbol: sym, Name: sym + " Inc"})
	}
	return s
}

func storeKey(kind model.CacheKind, subKey string) string { return string(kind) + "|" + subKey }

func (s *fakeStore) Write(_ context.Context, e model.CacheEntry) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.writes++
	k := storeKey(e.Kind, e.SubKey)
	list := append([]model.CacheEntry{e}, s.entries[k]...)
	if len(list) > e.Kind.Retain() {
		list = list[:e.Kind.Retain()]
	}
	s.entries[k] = list
	return nil
}

func (s *fakeStore) Read(_ context.Context, kind model.CacheKind, subKey string) (model.CacheEntry, bool, error) {
	list := s.entries[storeKey(kind, subKey)]
	if len(list) == 0 {
		return model.CacheEntry{}, false, nil
	}
	return list[0], true, nil
}

func (s *fakeStore) History(_ context.Context, kind model.CacheKind, subKey string, limit int) ([]model.CacheEntry, error) {
	list := s.entries[storeKey(kind, subKey)]
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (s *fakeStore) Close() error { return nil }

func (s *fakeStore) ListWatchlist(context.Context) ([]model.WatchlistEntry, error) {
	out := append([]model.WatchlistEntry(nil), s.watchlist...)
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (s *fakeStore) AddSymbol(_ context.Context, symbol, name string) error {
	for _, e := range s.watchlist {
		if e.Symbol == symbol {
			return port.ErrDuplicateSymbol
		}
	}
	s.watchlist = append(s.watchlist, model.WatchlistEntry{Symbol: symbol, Name: name})
	return nil
}

func (s *fakeStore) RemoveSymbols(_ context.Context, symbols ...string) (int, error) {
	return 0, errors.New("not implemented")
}
