package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"ibsnap/internal/application/port"
	"ibsnap/internal/domain/model"
)

// QuoteService refreshes the cached quote of every watchlist symbol.
type QuoteService struct {
	watchlist port.WatchlistRepository
	resolver  *PriceResolver
	snapshots *SnapshotService
}

func NewQuoteService(watchlist port.WatchlistRepository, resolver *PriceResolver, snapshots *SnapshotService) *QuoteService {
	return &QuoteService{watchlist: watchlist, resolver: resolver, snapshots: snapshots}
}

// Refresh resolves the symbols one after another. A symbol that cannot be
// priced is still written, zero-valued; a failed write is logged and the
// batch moves on. The first write error is returned.
func (s *QuoteService) Refresh(ctx context.Context) error {
	entries, err := s.watchlist.ListWatchlist(ctx)
	if err != nil {
		return fmt.Errorf("list watchlist: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	log.Debug().Int("symbols", len(entries)).Msg("refreshing quotes")

	var firstErr error
	for _, e := range entries {
		q := s.resolver.Resolve(ctx, model.NewStock(e.Symbol))
		if err := s.snapshots.Save(ctx, model.KindQuote, q.Symbol, q, q.UpdatedAt); err != nil {
			log.Error().Str("symbol", q.Symbol).Err(err).Msg("quote write failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		log.Debug().
			Str("symbol", q.Symbol).
			Float64("last", q.Last).
			Float64("change_pct", q.ChangePct).
			Str("source", q.Source).
			Msg("quote updated")
	}
	return firstErr
}

// Quote returns the cached quote of symbol.
func (s *QuoteService) Quote(ctx context.Context, symbol string) (model.Quote, bool, error) {
	var q model.Quote
	_, ok, err := s.snapshots.Load(ctx, model.KindQuote, symbol, &q)
	return q, ok, err
}
