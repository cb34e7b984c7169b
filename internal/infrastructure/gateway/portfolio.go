package gateway

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"ibsnap/internal/domain/model"
)

// maxPositionPages bounds paging in case the gateway keeps returning full
// pages.
const maxPositionPages = 50

// pagesReuseWindow is how long Portfolio may reuse the pages fetched by
// Positions.
const pagesReuseWindow = 10 * time.Second

func (s *Session) ManagedAccounts(ctx context.Context) ([]string, error) {
	if err := s.requireConnected(); err != nil {
		return nil, err
	}
	var accts accountsResponse
	if err := s.client.get(ctx, "/iserver/accounts", nil, &accts); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.accounts = accts.Accounts
	s.mu.Unlock()
	return accts.Accounts, nil
}

func (s *Session) Positions(ctx context.Context) ([]model.RawPosition, error) {
	items, err := s.positionItems(ctx)
	if err != nil {
		return nil, err
	}
	s.pagesMu.Lock()
	s.pages, s.pagesAt = items, time.Now()
	s.pagesMu.Unlock()
	out := make([]model.RawPosition, 0, len(items))
	for _, it := range items {
		out = append(out, model.RawPosition{
			Account:    it.AcctID,
			Instrument: it.instrument(),
			Position:   float64(it.Position),
			AvgCost:    float64(it.AvgCost),
		})
	}
	return out, nil
}

// Portfolio reuses the pages of a Positions call made moments before, so a
// refresh pages through the accounts once.
func (s *Session) Portfolio(ctx context.Context) ([]model.PortfolioItem, error) {
	items, ok := s.takePages()
	if !ok {
		var err error
		if items, err = s.positionItems(ctx); err != nil {
			return nil, err
		}
	}
	out := make([]model.PortfolioItem, 0, len(items))
	for _, it := range items {
		out = append(out, model.PortfolioItem{
			Account:       it.AcctID,
			Instrument:    it.instrument(),
			MarketPrice:   float64(it.MktPrice),
			MarketValue:   float64(it.MktValue),
			UnrealizedPnL: float64(it.UnrealizedPnl),
			RealizedPnL:   float64(it.RealizedPnl),
		})
	}
	return out, nil
}

func (s *Session) takePages() ([]positionItem, bool) {
	s.pagesMu.Lock()
	defer s.pagesMu.Unlock()
	items, at := s.pages, s.pagesAt
	s.pages, s.pagesAt = nil, time.Time{}
	if at.IsZero() || time.Since(at) > pagesReuseWindow {
		return nil, false
	}
	return items, true
}

func (s *Session) positionItems(ctx context.Context) ([]positionItem, error) {
	if err := s.requireConnected(); err != nil {
		return nil, err
	}
	var all []positionItem
	for _, acct := range s.managedAccounts() {
		for page := 0; page < maxPositionPages; page++ {
			var items []positionItem
			path := fmt.Sprintf("/portfolio/%s/positions/%d", url.PathEscape(acct), page)
			if err := s.client.get(ctx, path, nil, &items); err != nil {
				return nil, err
			}
			for i := range items {
				if items[i].AcctID == "" {
					items[i].AcctID = acct
				}
			}
			all = append(all, items...)
			if len(items) < positionsPageSize {
				break
			}
		}
	}
	return all, nil
}

// instrument maps a gateway position onto an Instrument. Option fields are
// only filled for derivatives that actually report them.
func (it positionItem) instrument() model.Instrument {
	secType := strings.ToUpper(strings.TrimSpace(it.AssetClass))
	inst := model.Instrument{
		ConID:    int64(it.ConID),
		Symbol:   strings.ToUpper(strings.TrimSpace(it.Ticker)),
		SecType:  secType,
		Exchange: it.ListingExchange,
		Currency: it.Currency,
	}
	if inst.Symbol == "" {
		inst.Symbol = symbolFromDesc(it.ContractDesc)
	}
	if secType == model.SecTypeStock || secType == "CASH" {
		return inst
	}
	inst.Expiry = strings.TrimSpace(it.Expiry)
	if it.Strike > 0 {
		inst.Strike = model.Float(float64(it.Strike))
	}
	inst.Right = model.ParseRight(it.PutOrCall)
	return inst
}

// symbolFromDesc takes the underlying from descriptions such as
// "AAPL   DEC2026 190 C [AAPL  261218C00190000 100]".
func symbolFromDesc(desc string) string {
	fields := strings.Fields(desc)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}

func (s *Session) AccountValues(ctx context.Context) ([]model.AccountValue, error) {
	if err := s.requireConnected(); err != nil {
		return nil, err
	}
	var out []model.AccountValue
	for _, acct := range s.managedAccounts() {
		var summary map[string]summaryValue
		if err := s.client.get(ctx, "/portfolio/"+url.PathEscape(acct)+"/summary", nil, &summary); err != nil {
			return nil, err
		}

		tags := make([]string, 0, len(summary))
		for tag := range summary {
			tags = append(tags, tag)
		}
		sort.Strings(tags)

		for _, tag := range tags {
			v := summary[tag]
			if v.IsNull {
				continue
			}
			value := strconv.FormatFloat(float64(v.Amount), 'f', -1, 64)
			if v.Value != nil && *v.Value != "" {
				value = *v.Value
			}
			out = append(out, model.AccountValue{
				Account:  acct,
				Tag:      tag,
				Value:    value,
				Currency: v.Currency,
			})
		}
	}
	return out, nil
}
