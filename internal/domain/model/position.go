package model

// RawPosition is one holding as reported by the broker.
type RawPosition struct {
	Account    string     `json:"account"`
	Instrument Instrument `json:"instrument"`
	Position   float64    `json:"position"`
	AvgCost    float64    `json:"avg_cost"`
}

// PortfolioItem annotates a holding with the broker's valuation.
type PortfolioItem struct {
	Account       string     `json:"account"`
	Instrument    Instrument `json:"instrument"`
	MarketPrice   float64    `json:"market_price"`
	MarketValue   float64    `json:"market_value"`
	UnrealizedPnL float64    `json:"unrealized_pnl"`
	RealizedPnL   float64    `json:"realized_pnl"`
}

// GroupKey is the six-part aggregation key.
type GroupKey struct {
	Account      string
	ContractType string
	Symbol       string
	Expiry       string
	Right        Right
	HasStrike    bool
	Strike       float64
}

// LegKey drops the strike: legs of one spread share it.
type LegKey struct {
	Account      string
	ContractType string
	Symbol       string
	Expiry       string
	Right        Right
}

// AggregatedRow is one group of raw positions.
type AggregatedRow struct {
	Account       string   `json:"account"`
	ContractType  string   `json:"contract_type"`
	Symbol        string   `json:"symbol"`
	Expiry        string   `json:"expiry,omitempty"`
	Right         Right    `json:"right,omitempty"`
	Strike        *float64 `json:"strike,omitempty"`
	Position      float64  `json:"position"`
	AvgCost       float64  `json:"avg_cost"`
	Currency      string   `json:"currency"`
	MarketPrice   float64  `json:"market_price"`
	MarketValue   float64  `json:"market_value"`
	UnrealizedPnL float64  `json:"unrealized_pnl"`
	RealizedPnL   float64  `json:"realized_pnl"`
}

// LegKey returns the key spread legs are matched on.
func (r AggregatedRow) LegKey() LegKey {
	return LegKey{
		Account:      r.Account,
		ContractType: r.ContractType,
		Symbol:       r.Symbol,
		Expiry:       r.Expiry,
		Right:        r.Right,
	}
}

// RowKind discriminates portfolio output rows.
type RowKind string

const (
	RowPosition RowKind = "position"
	RowSpread   RowKind = "spread"
	RowLeg      RowKind = "leg"
)

const (
	SpreadBearCall = "Bear Call Spread"
	SpreadBullPut  = "Bull Put Spread"
)

// PortfolioRow is one row of the cached portfolio payload. Plain rows carry
// an AggregatedRow; spread parents precede their two legs, which point back
// through ParentID.
type PortfolioRow struct {
	Kind     RowKind `json:"kind"`
	ID       string  `json:"id,omitempty"`
	ParentID string  `json:"parent_id,omitempty"`
	AggregatedRow
	StrikeDisplay string  `json:"strike_display,omitempty"`
	NetCost       float64 `json:"net_cost,omitempty"`
	SpreadType    string  `json:"spread_type,omitempty"`
}
