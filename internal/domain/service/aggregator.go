package service

import (
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"ibsnap/internal/domain/model"
)

// KeyOf returns the aggregation key of an instrument held in account.
// Option fields only take part when the broker reported them.
func KeyOf(account string, inst model.Instrument) model.GroupKey {
	key := model.GroupKey{
		Account:      strings.TrimSpace(account),
		ContractType: inst.ContractType(),
		Symbol:       strings.ToUpper(strings.TrimSpace(inst.Symbol)),
		Expiry:       strings.TrimSpace(inst.Expiry),
		Right:        inst.Right,
	}
	if inst.Strike != nil && finite(*inst.Strike) {
		key.HasStrike = true
		key.Strike = *inst.Strike
	}
	return key
}

type group struct {
	row         model.AggregatedRow
	weightedSum float64
	totalWeight float64
	costSum     float64
	costCount   int
	mixed       bool
}

func newGroup(key model.GroupKey, currency string) *group {
	g := &group{row: model.AggregatedRow{
		Account:      key.Account,
		ContractType: key.ContractType,
		Symbol:       key.Symbol,
		Expiry:       key.Expiry,
		Right:        key.Right,
		Currency:     currency,
	}}
	if key.HasStrike {
		g.row.Strike = model.Float(key.Strike)
	}
	return g
}

func (g *group) add(p model.RawPosition) {
	if p.Instrument.Currency != g.row.Currency && !g.mixed {
		g.mixed = true
		log.Warn().
			Str("account", g.row.Account).
			Str("symbol", g.row.Symbol).
			Str("kept", g.row.Currency).
			Str("other", p.Instrument.Currency).
			Msg("mixed currencies in position group")
	}

	validPos := finite(p.Position)
	if validPos {
		g.row.Position += p.Position
	}
	if !finite(p.AvgCost) {
		return
	}
	g.costSum += p.AvgCost
	g.costCount++
	if validPos {
		w := math.Abs(p.Position)
		g.weightedSum += w * p.AvgCost
		g.totalWeight += w
	}
}

func (g *group) annotate(item model.PortfolioItem) {
	if g.row.MarketPrice == 0 && finite(item.MarketPrice) && item.MarketPrice > 0 {
		g.row.MarketPrice = item.MarketPrice
	}
	if finite(item.MarketValue) {
		g.row.MarketValue += item.MarketValue
	}
	if finite(item.UnrealizedPnL) {
		g.row.UnrealizedPnL += item.UnrealizedPnL
	}
	if finite(item.RealizedPnL) {
		g.row.RealizedPnL += item.RealizedPnL
	}
}

func (g *group) finish() model.AggregatedRow {
	switch {
	case g.totalWeight > 0:
		g.row.AvgCost = g.weightedSum / g.totalWeight
	case g.costCount > 0:
		g.row.AvgCost = g.costSum / float64(g.costCount)
	}
	return g.row
}

// Aggregate collapses raw positions into one row per aggregation key.
// Position is the signed sum of the members; average cost is weighted by
// |position|, falling back to the plain mean of the reported costs when no
// weight is available. Annotations are summed into the group they key to.
// The result is ordered by SortRows.
func Aggregate(positions []model.RawPosition, annotations []model.PortfolioItem) []model.AggregatedRow {
	groups := make(map[model.GroupKey]*group, len(positions))
	order := make([]model.GroupKey, 0, len(positions))

	for _, p := range positions {
		key := KeyOf(p.Account, p.Instrument)
		g, ok := groups[key]
		if !ok {
			g = newGroup(key, p.Instrument.Currency)
			groups[key] = g
			order = append(order, key)
		}
		g.add(p)
	}

	for _, item := range annotations {
		if g, ok := groups[KeyOf(item.Account, item.Instrument)]; ok {
			g.annotate(item)
		}
	}

	rows := make([]model.AggregatedRow, 0, len(order))
	for _, key := range order {
		rows = append(rows, groups[key].finish())
	}
	SortRows(rows)
	return rows
}

// SortRows orders rows by account, contract type, symbol, expiry and right
// ascending, then strike descending. Missing keys sort last.
func SortRows(rows []model.AggregatedRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		return compareRows(rows[i], rows[j]) < 0
	})
}

func compareRows(a, b model.AggregatedRow) int {
	if c := compareKey(a.Account, b.Account); c != 0 {
		return c
	}
	if c := compareKey(a.ContractType, b.ContractType); c != 0 {
		return c
	}
	if c := compareKey(a.Symbol, b.Symbol); c != 0 {
		return c
	}
	if c := compareKey(a.Expiry, b.Expiry); c != 0 {
		return c
	}
	if c := compareKey(string(a.Right), string(b.Right)); c != 0 {
		return c
	}
	switch {
	case a.Strike == nil && b.Strike == nil:
		return 0
	case a.Strike == nil:
		return 1
	case b.Strike == nil:
		return -1
	case *a.Strike > *b.Strike:
		return -1
	case *a.Strike < *b.Strike:
		return 1
	}
	return 0
}

func compareKey(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == "":
		return 1
	case b == "":
		return -1
	}
	return strings.Compare(a, b)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
