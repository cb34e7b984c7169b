package application

import "errors"

// Refresh failures. None of them stops the scheduling loop; they only decide
// whether a cycle's result is written and what gets logged.
var (
	// ErrNotConnected means the brokerage session is unavailable; the refresh
	// is skipped for this tick.
	ErrNotConnected = errors.New("brokerage session not connected")

	// ErrInstrumentResolution means a symbol could not be qualified into a
	// tradable contract.
	ErrInstrumentResolution = errors.New("instrument resolution failed")

	// ErrDataIncomplete means a price or position field is missing.
	ErrDataIncomplete = errors.New("market data incomplete")

	// ErrPersistence means a cache write failed; the refresh is retried on
	// the next interval.
	ErrPersistence = errors.New("cache write failed")
)
