package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"ibsnap/internal/application"
	"ibsnap/internal/application/port"
	"ibsnap/internal/domain/model"
)

const (
	DefaultSettleDelay   = 2 * time.Second
	DefaultHistoryPeriod = "5d"
	DefaultHistoryBar    = "1d"
)

type PriceResolverConfig struct {
	SettleDelay   time.Duration
	HistoryPeriod string
	HistoryBar    string
}

// PriceResolver turns an instrument into a best-effort Quote using an
// ordered fallback chain: live subscription, delayed subscription, then
// daily historical bars.
type PriceResolver struct {
	session port.BrokerageSession
	clock   port.Clock
	cfg     PriceResolverConfig
}

func NewPriceResolver(session port.BrokerageSession, clock port.Clock, cfg PriceResolverConfig) *PriceResolver {
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}
	if cfg.HistoryPeriod == "" {
		cfg.HistoryPeriod = DefaultHistoryPeriod
	}
	if cfg.HistoryBar == "" {
		cfg.HistoryBar = DefaultHistoryBar
	}
	return &PriceResolver{session: session, clock: clock, cfg: cfg}
}

// Resolve never fails. Whatever could not be obtained stays zero and the
// returned quote still names the symbol. Every subscription opened on the
// way is cancelled before returning.
func (r *PriceResolver) Resolve(ctx context.Context, inst model.Instrument) (q model.Quote) {
	q = model.Quote{Symbol: inst.Symbol, Source: model.SourceNone}
	defer func() { q.UpdatedAt = r.clock.Now() }()

	contract, err := r.qualify(ctx, inst)
	if err != nil {
		log.Warn().Str("symbol", inst.Symbol).Err(err).Msg("quote: qualify failed")
		return q
	}

	var subs []port.QuoteSubscription
	defer func() {
		for _, sub := range subs {
			if err := r.session.CancelQuote(ctx, sub); err != nil {
				log.Warn().Str("symbol", inst.Symbol).Err(err).Msg("quote: cancel subscription failed")
			}
		}
	}()

	tk, sub, err := r.subscribe(ctx, contract)
	if sub != nil {
		subs = append(subs, sub)
	}
	if err != nil {
		log.Warn().Str("symbol", inst.Symbol).Str("stage", "live").Err(err).Msg("quote: stage failed")
	}

	if tk.Empty() {
		if err := r.session.SetMarketDataTier(ctx, model.TierDelayed); err != nil {
			log.Warn().Str("symbol", inst.Symbol).Err(err).Msg("quote: delayed tier request failed")
		}
		var retry model.Ticker
		retry, sub, err = r.subscribe(ctx, contract)
		if sub != nil {
			subs = append(subs, sub)
		}
		if err != nil {
			log.Warn().Str("symbol", inst.Symbol).Str("stage", "delayed").Err(err).Msg("quote: stage failed")
		} else {
			tk = retry
		}
	}

	applyTicker(&q, tk)

	if q.Last <= 0 {
		if err := r.historical(ctx, contract, &q); err != nil {
			log.Warn().Str("symbol", inst.Symbol).Str("stage", "historical").Err(err).Msg("quote: stage failed")
		}
	}
	return q
}

func (r *PriceResolver) qualify(ctx context.Context, inst model.Instrument) (model.Instrument, error) {
	resolved, err := r.session.QualifyContracts(ctx, inst)
	if err != nil {
		return model.Instrument{}, fmt.Errorf("%w: %v", application.ErrInstrumentResolution, err)
	}
	if len(resolved) == 0 {
		return model.Instrument{}, fmt.Errorf("%w: no contract for %s", application.ErrInstrumentResolution, inst.Symbol)
	}
	return resolved[0], nil
}

// subscribe opens a snapshot subscription and waits the settle delay for
// values to be pushed. The subscription is returned even when the wait is
// interrupted so the caller can release it.
func (r *PriceResolver) subscribe(ctx context.Context, inst model.Instrument) (model.Ticker, port.QuoteSubscription, error) {
	sub, err := r.session.RequestQuote(ctx, inst, true)
	if err != nil {
		return model.Ticker{}, nil, err
	}
	if err := r.clock.Sleep(ctx, r.cfg.SettleDelay); err != nil {
		return model.Ticker{}, sub, err
	}
	return sub.Snapshot(), sub, nil
}

func (r *PriceResolver) historical(ctx context.Context, inst model.Instrument, q *model.Quote) error {
	bars, err := r.session.RequestHistoricalBars(ctx, inst, r.cfg.HistoryPeriod, r.cfg.HistoryBar)
	if err != nil {
		return err
	}
	if len(bars) == 0 {
		return fmt.Errorf("%w: no historical bars", application.ErrDataIncomplete)
	}

	latest := bars[len(bars)-1]
	if latest.Close <= 0 {
		return fmt.Errorf("%w: latest bar has no close", application.ErrDataIncomplete)
	}
	q.Last = latest.Close
	q.Close = latest.Close
	q.Volume = int64(latest.Volume)
	q.Source = model.SourceHistorical
	q.ChangePct = 0
	if len(bars) > 1 {
		q.ChangePct = changePct(latest.Close, bars[len(bars)-2].Close)
	}
	return nil
}

// applyTicker derives last from, in order: last trade, mark price, bid/ask
// midpoint (both sides required), prior close. Bid, ask, close and volume
// are kept whenever present.
func applyTicker(q *model.Quote, tk model.Ticker) {
	switch {
	case tk.Last > 0:
		q.Last, q.Source = tk.Last, model.SourceLast
	case tk.MarketPrice > 0:
		q.Last, q.Source = tk.MarketPrice, model.SourceMarket
	case tk.Bid > 0 && tk.Ask > 0:
		q.Last, q.Source = (tk.Bid+tk.Ask)/2, model.SourceMidpoint
	case tk.Close > 0:
		q.Last, q.Source = tk.Close, model.SourceClose
	}
	if tk.Bid > 0 {
		q.Bid = tk.Bid
	}
	if tk.Ask > 0 {
		q.Ask = tk.Ask
	}
	if tk.Close > 0 {
		q.Close = tk.Close
	}
	if tk.Volume > 0 {
		q.Volume = int64(tk.Volume)
	}
	q.ChangePct = changePct(q.Last, q.Close)
}

func changePct(last, prev float64) float64 {
	if last <= 0 || prev <= 0 {
		return 0
	}
	return (last - prev) / prev * 100
}
