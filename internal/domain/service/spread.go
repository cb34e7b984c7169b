package service

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"ibsnap/internal/domain/model"
)

// legTolerance is how far two leg sizes may differ in magnitude and still pair.
const legTolerance = 1e-9

var spreadNamespace = uuid.MustParse("6f1c2a4e-9d3b-5e7f-8a10-2b4c6d8e0f13")

// DetectSpreads scans rows left to right and pairs each option row with the
// first later unpaired row of the same account, contract type, symbol,
// expiry and right whose position is equal in size and opposite in sign.
// A pair is emitted as a spread parent followed by its two legs; everything
// else passes through as a plain position row. With three or more candidate
// legs the first match wins and the rest stay unpaired.
func DetectSpreads(rows []model.AggregatedRow) []model.PortfolioRow {
	consumed := make([]bool, len(rows))
	out := make([]model.PortfolioRow, 0, len(rows))

	for i, r := range rows {
		if consumed[i] {
			continue
		}
		j := -1
		if r.Right != model.RightNone {
			j = findLeg(rows, consumed, i)
		}
		if j < 0 {
			out = append(out, model.PortfolioRow{Kind: model.RowPosition, AggregatedRow: r})
			continue
		}

		consumed[i], consumed[j] = true, true
		parent := newSpread(r, rows[j])
		out = append(out,
			parent,
			model.PortfolioRow{Kind: model.RowLeg, ParentID: parent.ID, AggregatedRow: r},
			model.PortfolioRow{Kind: model.RowLeg, ParentID: parent.ID, AggregatedRow: rows[j]},
		)
	}
	return out
}

func findLeg(rows []model.AggregatedRow, consumed []bool, i int) int {
	r := rows[i]
	for j := i + 1; j < len(rows); j++ {
		if consumed[j] {
			continue
		}
		s := rows[j]
		if s.LegKey() != r.LegKey() {
			continue
		}
		if math.Abs(math.Abs(r.Position)-math.Abs(s.Position)) > legTolerance {
			continue
		}
		if r.Position*s.Position >= 0 {
			continue
		}
		return j
	}
	return -1
}

func newSpread(r, s model.AggregatedRow) model.PortfolioRow {
	parent := model.PortfolioRow{
		Kind: model.RowSpread,
		ID:   spreadID(r, s),
		AggregatedRow: model.AggregatedRow{
			Account:       r.Account,
			ContractType:  r.ContractType,
			Symbol:        r.Symbol,
			Expiry:        r.Expiry,
			Right:         r.Right,
			Position:      math.Abs(r.Position),
			Currency:      r.Currency,
			MarketValue:   r.MarketValue + s.MarketValue,
			UnrealizedPnL: r.UnrealizedPnL + s.UnrealizedPnL,
			RealizedPnL:   r.RealizedPnL + s.RealizedPnL,
		},
		NetCost:    r.Position*r.AvgCost + s.Position*s.AvgCost,
		SpreadType: spreadType(r.Right),
	}
	if r.Strike != nil && s.Strike != nil {
		lo, hi := math.Min(*r.Strike, *s.Strike), math.Max(*r.Strike, *s.Strike)
		parent.StrikeDisplay = fmt.Sprintf("%.2f-%.2f", lo, hi)
	}
	return parent
}

func spreadType(right model.Right) string {
	switch right {
	case model.RightCall:
		return model.SpreadBearCall
	case model.RightPut:
		return model.SpreadBullPut
	default:
		return ""
	}
}

// spreadID is derived from the legs so that identical input yields
// identical output.
func spreadID(r, s model.AggregatedRow) string {
	name := fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s",
		r.Account, r.ContractType, r.Symbol, r.Expiry, r.Right,
		strikeText(r.Strike), strikeText(s.Strike))
	return uuid.NewSHA1(spreadNamespace, []byte(name)).String()
}

func strikeText(strike *float64) string {
	if strike == nil {
		return ""
	}
	return fmt.Sprintf("%g", *strike)
}
