package gateway

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/patrickmn/go-cache"

	"ibsnap/internal/domain/model"
)

// QualifyContracts resolves the instrument's conid through the security
// definition search. Results are cached per symbol and security type.
func (s *Session) QualifyContracts(ctx context.Context, inst model.Instrument) ([]model.Instrument, error) {
	if inst.ConID != 0 {
		return []model.Instrument{inst}, nil
	}

	symbol := strings.ToUpper(strings.TrimSpace(inst.Symbol))
	secType := strings.ToUpper(strings.TrimSpace(inst.SecType))
	if secType == "" {
		secType = model.SecTypeStock
	}
	key := symbol + "|" + secType
	if v, ok := s.contracts.Get(key); ok {
		return []model.Instrument{v.(model.Instrument)}, nil
	}

	if err := s.requireConnected(); err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("secType", secType)

	var results []secdefResult
	if err := s.client.get(ctx, "/iserver/secdef/search", params, &results); err != nil {
		return nil, err
	}

	for _, r := range results {
		if r.ConID == 0 || !strings.EqualFold(r.Symbol, symbol) || !r.offers(secType) {
			continue
		}
		resolved := inst
		resolved.ConID = int64(r.ConID)
		resolved.Symbol = symbol
		resolved.SecType = secType
		s.contracts.Set(key, resolved, cache.DefaultExpiration)
		return []model.Instrument{resolved}, nil
	}
	return nil, fmt.Errorf("%w: %s %s", errNoContract, secType, symbol)
}

func (r secdefResult) offers(secType string) bool {
	if len(r.Sections) == 0 {
		return secType == model.SecTypeStock
	}
	for _, sec := range r.Sections {
		if strings.EqualFold(sec.SecType, secType) {
			return true
		}
	}
	return false
}
