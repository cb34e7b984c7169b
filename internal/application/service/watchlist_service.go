package service

import (
	"context"
	"math"
	"strings"
	"time"

	"ibsnap/internal/application/port"
	"ibsnap/internal/domain/model"
)

// WatchlistQuote is a watchlist entry joined with its cached quote.
type WatchlistQuote struct {
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name"`
	Last      float64   `json:"last"`
	ChangePct float64   `json:"change_pct"`
	Volume    int64     `json:"volume"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	Close     float64   `json:"close"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

type WatchlistService struct {
	repo   port.WatchlistRepository
	quotes *QuoteService
}

func NewWatchlistService(repo port.WatchlistRepository, quotes *QuoteService) *WatchlistService {
	return &WatchlistService{repo: repo, quotes: quotes}
}

func (s *WatchlistService) List(ctx context.Context) ([]model.WatchlistEntry, error) {
	return s.repo.ListWatchlist(ctx)
}

func (s *WatchlistService) Add(ctx context.Context, symbol, name string) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if name == "" {
		name = symbol
	}
	return s.repo.AddSymbol(ctx, symbol, name)
}

func (s *WatchlistService) Remove(ctx context.Context, symbols ...string) (int, error) {
	upper := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		upper = append(upper, strings.ToUpper(strings.TrimSpace(sym)))
	}
	return s.repo.RemoveSymbols(ctx, upper...)
}

// WithQuotes joins every watchlist entry with its cached quote, prices
// rounded to cents. Symbols without a quote yet show zeros.
func (s *WatchlistService) WithQuotes(ctx context.Context) ([]WatchlistQuote, error) {
	entries, err := s.repo.ListWatchlist(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]WatchlistQuote, 0, len(entries))
	for _, e := range entries {
		row := WatchlistQuote{Symbol: e.Symbol, Name: e.Name}
		q, ok, err := s.quotes.Quote(ctx, e.Symbol)
		if err != nil {
			return nil, err
		}
		if ok {
			row.Last = round2(q.Last)
			row.ChangePct = round2(q.ChangePct)
			row.Volume = q.Volume
			row.Bid = round2(q.Bid)
			row.Ask = round2(q.Ask)
			row.Close = round2(q.Close)
			row.UpdatedAt = q.UpdatedAt
		}
		out = append(out, row)
	}
	return out, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
