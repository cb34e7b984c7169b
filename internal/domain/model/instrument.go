package model

import "strings"

// Security type codes as reported by the broker.
const (
	SecTypeStock  = "STK"
	SecTypeOption = "OPT"
	SecTypeFuture = "FUT"
)

// Display contract types produced by aggregation.
const (
	ContractOption = "Option"
	ContractFuture = "Future"
)

// Right is the option right of a derivative contract. Empty means the
// contract is not an option.
type Right string

const (
	RightNone Right = ""
	RightCall Right = "Call"
	RightPut  Right = "Put"
)

// ParseRight maps broker right codes ("C", "CALL", "P", "PUT") to a Right.
func ParseRight(code string) Right {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "C", "CALL":
		return RightCall
	case "P", "PUT":
		return RightPut
	default:
		return RightNone
	}
}

// Instrument identifies a tradable contract.
type Instrument struct {
	ConID    int64    `json:"conid,omitempty"`
	Symbol   string   `json:"symbol"`
	SecType  string   `json:"sec_type"`
	Exchange string   `json:"exchange,omitempty"`
	Currency string   `json:"currency,omitempty"`
	Expiry   string   `json:"expiry,omitempty"` // YYYYMMDD
	Strike   *float64 `json:"strike,omitempty"`
	Right    Right    `json:"right,omitempty"`
}

// NewStock returns an equity instrument routed the default way.
func NewStock(symbol string) Instrument {
	return Instrument{
		Symbol:   strings.ToUpper(strings.TrimSpace(symbol)),
		SecType:  SecTypeStock,
		Exchange: "SMART",
		Currency: "USD",
	}
}

// ContractType normalizes the security type code into a display type.
func (i Instrument) ContractType() string {
	code := strings.ToUpper(strings.TrimSpace(i.SecType))
	switch {
	case strings.HasPrefix(code, SecTypeOption):
		return ContractOption
	case strings.HasPrefix(code, SecTypeFuture):
		return ContractFuture
	default:
		return code
	}
}

// Float returns a pointer to v, for optional numeric fields.
func Float(v float64) *float64 { return &v }
