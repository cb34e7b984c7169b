package service

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ibsnap/internal/domain/model"
)

func option(symbol, expiry, right string, strike float64) model.Instrument {
	return model.Instrument{
		Symbol:   symbol,
		SecType:  "OPT",
		Currency: "USD",
		Expiry:   expiry,
		Strike:   model.Float(strike),
		Right:    model.ParseRight(right),
	}
}

func stock(symbol string) model.Instrument {
	return model.Instrument{Symbol: symbol, SecType: "STK", Currency: "USD"}
}

func TestAggregateSumsSignedPositions(t *testing.T) {
	positions := []model.RawPosition{
		{Account: "U1", Instrument: stock("AAPL"), Position: 10, AvgCost: 100},
		{Account: "U1", Instrument: stock("AAPL"), Position: -4, AvgCost: 120},
		{Account: "U1", Instrument: stock("AAPL"), Position: 30, AvgCost: 110},
		{Account: "U2", Instrument: stock("AAPL"), Position: 7, AvgCost: 90},
	}

	rows := Aggregate(positions, nil)
	require.Len(t, rows, 2)

	assert.Equal(t, "U1", rows[0].Account)
	assert.Equal(t, 36.0, rows[0].Position)
	// weights |10|, |-4|, |30|
	assert.InDelta(t, (10*100+4*120+30*110)/44.0, rows[0].AvgCost, 1e-9)
	assert.Equal(t, "STK", rows[0].ContractType)
	assert.Equal(t, "USD", rows[0].Currency)

	assert.Equal(t, "U2", rows[1].Account)
	assert.Equal(t, 7.0, rows[1].Position)
}

func TestAggregateFallsBackToMeanWithoutWeight(t *testing.T) {
	positions := []model.RawPosition{
		{Account: "U1", Instrument: stock("MSFT"), Position: 0, AvgCost: 10},
		{Account: "U1", Instrument: stock("MSFT"), Position: 0, AvgCost: 20},
	}

	rows := Aggregate(positions, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, 0.0, rows[0].Position)
	assert.Equal(t, 15.0, rows[0].AvgCost)
}

func TestAggregateInvalidPositionsContributeZero(t *testing.T) {
	positions := []model.RawPosition{
		{Account: "U1", Instrument: stock("IBM"), Position: math.NaN(), AvgCost: 50},
		{Account: "U1", Instrument: stock("IBM"), Position: math.Inf(1), AvgCost: 70},
	}

	rows := Aggregate(positions, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, 0.0, rows[0].Position)
	assert.Equal(t, 60.0, rows[0].AvgCost)
}

func TestAggregateContractTypes(t *testing.T) {
	positions := []model.RawPosition{
		{Account: "U1", Instrument: model.Instrument{Symbol: "ES", SecType: "FUT", Expiry: "20261218"}, Position: 1},
		{Account: "U1", Instrument: option("SPY", "20261120", "P", 500), Position: 1},
		{Account: "U1", Instrument: model.Instrument{Symbol: "EUR", SecType: "CASH"}, Position: 1000},
	}

	rows := Aggregate(positions, nil)
	require.Len(t, rows, 3)
	assert.Equal(t, "CASH", rows[0].ContractType)
	assert.Equal(t, model.ContractFuture, rows[1].ContractType)
	assert.Equal(t, model.ContractOption, rows[2].ContractType)
	assert.Equal(t, model.RightPut, rows[2].Right)
	assert.Nil(t, rows[0].Strike)
	assert.Empty(t, rows[0].Right)
}

func TestAggregateSortsStrikeDescendingAndMissingLast(t *testing.T) {
	positions := []model.RawPosition{
		{Account: "U1", Instrument: option("QQQ", "20261120", "C", 400), Position: 1},
		{Account: "U1", Instrument: option("QQQ", "20261120", "C", 420), Position: 1},
		{Account: "U1", Instrument: option("QQQ", "20261120", "C", 410), Position: 1},
		{Account: "", Instrument: stock("AAA"), Position: 1},
		{Account: "U1", Instrument: model.Instrument{Symbol: "QQQ", SecType: "OPT", Expiry: "20261120", Right: model.RightCall}, Position: 1},
	}

	rows := Aggregate(positions, nil)
	require.Len(t, rows, 5)

	var strikes []float64
	for _, r := range rows[:3] {
		require.NotNil(t, r.Strike)
		strikes = append(strikes, *r.Strike)
	}
	assert.Equal(t, []float64{420, 410, 400}, strikes)
	assert.Nil(t, rows[3].Strike)
	assert.Equal(t, "", rows[4].Account)
}

func TestAggregateAnnotations(t *testing.T) {
	inst := stock("NVDA")
	positions := []model.RawPosition{
		{Account: "U1", Instrument: inst, Position: 5, AvgCost: 100},
	}
	annotations := []model.PortfolioItem{
		{Account: "U1", Instrument: inst, MarketPrice: 130, MarketValue: 650, UnrealizedPnL: 150},
		{Account: "U9", Instrument: inst, MarketPrice: 1, MarketValue: 1},
	}

	rows := Aggregate(positions, annotations)
	require.Len(t, rows, 1)
	assert.Equal(t, 130.0, rows[0].MarketPrice)
	assert.Equal(t, 650.0, rows[0].MarketValue)
	assert.Equal(t, 150.0, rows[0].UnrealizedPnL)
}

func TestAggregateKeepsFirstCurrency(t *testing.T) {
	a := stock("SHOP")
	b := stock("SHOP")
	b.Currency = "CAD"
	rows := Aggregate([]model.RawPosition{
		{Account: "U1", Instrument: a, Position: 1},
		{Account: "U1", Instrument: b, Position: 1},
	}, nil)

	require.Len(t, rows, 1)
	assert.Equal(t, "USD", rows[0].Currency)
	assert.Equal(t, 2.0, rows[0].Position)
}
