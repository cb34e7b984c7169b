package console

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"ibsnap/internal/application/service"
	"ibsnap/internal/domain/model"
)

const timeLayout = "2006-01-02 15:04:05"

// Renderer prints cached snapshots as tables.
type Renderer struct {
	out io.Writer
}

func NewRenderer(out io.Writer) *Renderer { return &Renderer{out: out} }

func (r *Renderer) newTable(header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(r.out)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetBorder(false)
	table.SetColumnSeparator("")
	return table
}

func (r *Renderer) empty(what string) {
	fmt.Fprintf(r.out, "no %s data yet\n", what)
}

func (r *Renderer) stamp(ts time.Time) {
	fmt.Fprintf(r.out, "as of %s\n", ts.Local().Format(timeLayout))
}

// Watchlist prints the watchlist symbols without quotes.
func (r *Renderer) Watchlist(entries []model.WatchlistEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(r.out, "watchlist is empty")
		return
	}
	table := r.newTable("Symbol", "Name")
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, e := range entries {
		table.Append([]string{e.Symbol, e.Name})
	}
	table.Render()
}

// Quotes prints the watchlist joined with cached quotes.
func (r *Renderer) Quotes(rows []service.WatchlistQuote) {
	if len(rows) == 0 {
		r.empty("quote")
		return
	}
	table := r.newTable("Symbol", "Name", "Last", "Chg%", "Bid", "Ask", "Close", "Volume", "Updated")
	for _, q := range rows {
		updated := "-"
		if !q.UpdatedAt.IsZero() {
			updated = q.UpdatedAt.Local().Format(timeLayout)
		}
		table.Append([]string{
			q.Symbol, q.Name,
			money(q.Last), fmt.Sprintf("%+.2f", q.ChangePct),
			money(q.Bid), money(q.Ask), money(q.Close),
			strconv.FormatInt(q.Volume, 10), updated,
		})
	}
	table.Render()
}

// Portfolio prints aggregated rows; spread legs are indented under their
// parent.
func (r *Renderer) Portfolio(rows []model.PortfolioRow, ts time.Time, ok bool) {
	if !ok {
		r.empty("portfolio")
		return
	}
	r.stamp(ts)
	if len(rows) == 0 {
		fmt.Fprintln(r.out, "no positions")
		return
	}
	table := r.newTable("Account", "Type", "Symbol", "Expiry", "Right", "Strike", "Position", "Avg Cost", "Price", "Value", "Unreal PnL", "Ccy")
	for _, row := range rows {
		symbol := row.Symbol
		switch row.Kind {
		case model.RowSpread:
			symbol = row.Symbol + " " + row.SpreadType
		case model.RowLeg:
			symbol = "  " + row.Symbol
		}
		strike := row.StrikeDisplay
		if strike == "" && row.Strike != nil {
			strike = money(*row.Strike)
		}
		avg := money(row.AvgCost)
		if row.Kind == model.RowSpread {
			avg = money(row.NetCost)
		}
		table.Append([]string{
			row.Account, row.ContractType, symbol, row.Expiry, string(row.Right), strike,
			strconv.FormatFloat(row.Position, 'f', -1, 64), avg,
			money(row.MarketPrice), money(row.MarketValue), money(row.UnrealizedPnL), row.Currency,
		})
	}
	table.Render()
}

// Account prints one account summary, tags sorted.
func (r *Renderer) Account(account string, snap model.AccountSnapshot, ts time.Time, ok bool) {
	if !ok {
		r.empty("account " + account)
		return
	}
	r.stamp(ts)
	table := r.newTable("Tag", "Currency", "Value")
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	tags := make([]string, 0, len(snap.Values))
	for tag := range snap.Values {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	for _, tag := range tags {
		byCcy := snap.Values[tag]
		ccys := make([]string, 0, len(byCcy))
		for ccy := range byCcy {
			ccys = append(ccys, ccy)
		}
		sort.Strings(ccys)
		for _, ccy := range ccys {
			table.Append([]string{tag, ccy, byCcy[ccy]})
		}
	}
	table.Render()
}

// Update prints one cache change notification.
func (r *Renderer) Update(kind model.CacheKind, subKey string, ts time.Time) {
	line := string(kind)
	if subKey != "" {
		line += " " + subKey
	}
	fmt.Fprintf(r.out, "%s %s updated\n", ts.Local().Format(timeLayout), line)
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
