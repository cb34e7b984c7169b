package gateway

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"ibsnap/internal/domain/model"
)

// RequestHistoricalBars returns bars oldest first. period and barSize use
// the gateway's notation, e.g. "5d" and "1d".
func (s *Session) RequestHistoricalBars(ctx context.Context, inst model.Instrument, period, barSize string) ([]model.Bar, error) {
	if err := s.requireConnected(); err != nil {
		return nil, err
	}
	if inst.ConID == 0 {
		return nil, fmt.Errorf("history %s: contract not qualified", inst.Symbol)
	}

	params := url.Values{}
	params.Set("conid", strconv.FormatInt(inst.ConID, 10))
	params.Set("period", period)
	params.Set("bar", barSize)

	var resp historyResponse
	if err := s.client.get(ctx, "/iserver/marketdata/history", params, &resp); err != nil {
		return nil, err
	}

	sort.SliceStable(resp.Data, func(i, j int) bool { return resp.Data[i].Time < resp.Data[j].Time })
	bars := make([]model.Bar, 0, len(resp.Data))
	for _, b := range resp.Data {
		bars = append(bars, model.Bar{
			Time:   time.UnixMilli(b.Time).UTC(),
			Close:  float64(b.Close),
			Volume: float64(b.Volume),
		})
	}
	return bars, nil
}
