package port

import (
	"context"

	"ibsnap/internal/domain/model"
)

// BrokerageSession is the single long-lived broker connection. It is not
// safe for concurrent request issuance; one scheduling loop owns it.
type BrokerageSession interface {
	Connect(ctx context.Context) error
	IsConnected() bool
	Disconnect() error

	Positions(ctx context.Context) ([]model.RawPosition, error)
	Portfolio(ctx context.Context) ([]model.PortfolioItem, error)
	AccountValues(ctx context.Context) ([]model.AccountValue, error)
	ManagedAccounts(ctx context.Context) ([]string, error)

	QualifyContracts(ctx context.Context, inst model.Instrument) ([]model.Instrument, error)
	RequestQuote(ctx context.Context, inst model.Instrument, snapshot bool) (QuoteSubscription, error)
	CancelQuote(ctx context.Context, sub QuoteSubscription) error
	SetMarketDataTier(ctx context.Context, tier model.MarketDataTier) error
	// RequestHistoricalBars returns bars oldest first.
	RequestHistoricalBars(ctx context.Context, inst model.Instrument, period, barSize string) ([]model.Bar, error)
}

// QuoteSubscription is a live market data subscription. Snapshot returns the
// values pushed so far.
type QuoteSubscription interface {
	Instrument() model.Instrument
	Snapshot() model.Ticker
}

// KeepAliver is implemented by sessions that expire without traffic.
type KeepAliver interface {
	KeepAlive(ctx context.Context) error
}
