package model

import "time"

// CacheKind names one kind of cached payload.
type CacheKind string

const (
	KindQuote     CacheKind = "quote"
	KindPortfolio CacheKind = "portfolio"
	KindAccount   CacheKind = "account"
)

// PortfolioHistory is how many portfolio snapshots are retained.
const PortfolioHistory = 10

// Retain returns how many entries per (kind, sub-key) a store keeps,
// the newest included.
func (k CacheKind) Retain() int {
	if k == KindPortfolio {
		return PortfolioHistory
	}
	return 1
}

// CacheEntry is one stored payload.
type CacheEntry struct {
	Kind      CacheKind `json:"kind"`
	SubKey    string    `json:"sub_key,omitempty"`
	Payload   []byte    `json:"payload"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WatchlistEntry is a user-managed refresh target.
type WatchlistEntry struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}
