package model

import "time"

// Ticker holds the raw values pushed by a market data subscription.
// A zero field means the value has not arrived.
type Ticker struct {
	Last        float64 `json:"last"`
	MarketPrice float64 `json:"market_price"`
	Bid         float64 `json:"bid"`
	Ask         float64 `json:"ask"`
	Close       float64 `json:"close"`
	Volume      float64 `json:"volume"`
}

// Empty reports whether none of the price fields arrived.
func (t Ticker) Empty() bool {
	return t.Last <= 0 && t.Close <= 0 && t.Bid <= 0 && t.Ask <= 0
}

// Bar is one historical bar.
type Bar struct {
	Time   time.Time `json:"time"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// MarketDataTier selects live or delayed market data.
type MarketDataTier int

const (
	TierLive    MarketDataTier = 1
	TierFrozen  MarketDataTier = 2
	TierDelayed MarketDataTier = 3
)

func (t MarketDataTier) String() string {
	switch t {
	case TierLive:
		return "live"
	case TierFrozen:
		return "frozen"
	case TierDelayed:
		return "delayed"
	default:
		return "unknown"
	}
}

// Where a quote's last price came from.
const (
	SourceNone       = "none"
	SourceLast       = "last"
	SourceMarket     = "market"
	SourceMidpoint   = "midpoint"
	SourceClose      = "close"
	SourceHistorical = "historical"
)

// Quote is the resolved price of one watchlist symbol. The zero value is a
// valid "unknown" quote.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Last      float64   `json:"last"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
	ChangePct float64   `json:"change_pct"`
	Source    string    `json:"source"`
	UpdatedAt time.Time `json:"updated_at"`
}
