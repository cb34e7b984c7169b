package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ibsnap/internal/domain/model"
)

func TestDetectSpreadsBearCall(t *testing.T) {
	rows := Aggregate([]model.RawPosition{
		{Account: "U1", Instrument: option("AAPL", "20261218", "C", 100), Position: 5, AvgCost: 3.5},
		{Account: "U1", Instrument: option("AAPL", "20261218", "C", 110), Position: -5, AvgCost: 1.25},
	}, nil)

	out := DetectSpreads(rows)
	require.Len(t, out, 3)

	parent := out[0]
	assert.Equal(t, model.RowSpread, parent.Kind)
	assert.Equal(t, "100.00-110.00", parent.StrikeDisplay)
	assert.Equal(t, 5.0, parent.Position)
	assert.Equal(t, model.SpreadBearCall, parent.SpreadType)
	assert.InDelta(t, 5*3.5-5*1.25, parent.NetCost, 1e-9)
	assert.NotEmpty(t, parent.ID)

	for _, leg := range out[1:] {
		assert.Equal(t, model.RowLeg, leg.Kind)
		assert.Equal(t, parent.ID, leg.ParentID)
	}
	assert.Equal(t, -5.0, out[1].Position)
	assert.Equal(t, 5.0, out[2].Position)
}

func TestDetectSpreadsBullPut(t *testing.T) {
	rows := Aggregate([]model.RawPosition{
		{Account: "U1", Instrument: option("SPY", "20261120", "P", 480), Position: 2},
		{Account: "U1", Instrument: option("SPY", "20261120", "P", 500), Position: -2},
	}, nil)

	out := DetectSpreads(rows)
	require.Len(t, out, 3)
	assert.Equal(t, model.SpreadBullPut, out[0].SpreadType)
	assert.Equal(t, "480.00-500.00", out[0].StrikeDisplay)
}

func TestDetectSpreadsRequiresOppositeEqualSizes(t *testing.T) {
	rows := Aggregate([]model.RawPosition{
		{Account: "U1", Instrument: option("TSLA", "20261120", "C", 300), Position: 3},
		{Account: "U1", Instrument: option("TSLA", "20261120", "C", 310), Position: 3},
		{Account: "U1", Instrument: option("TSLA", "20261120", "C", 320), Position: -2},
		{Account: "U2", Instrument: option("TSLA", "20261120", "C", 330), Position: -3},
		{Account: "U1", Instrument: option("TSLA", "20261120", "P", 290), Position: -3},
	}, nil)

	out := DetectSpreads(rows)
	require.Len(t, out, len(rows))
	for _, r := range out {
		assert.Equal(t, model.RowPosition, r.Kind)
	}
}

func TestDetectSpreadsGreedyFirstMatch(t *testing.T) {
	// butterfly-like: +1 / -2 / +1 aggregated as three rows of one key
	rows := Aggregate([]model.RawPosition{
		{Account: "U1", Instrument: option("IWM", "20261120", "C", 200), Position: 1},
		{Account: "U1", Instrument: option("IWM", "20261120", "C", 210), Position: -1},
		{Account: "U1", Instrument: option("IWM", "20261120", "C", 220), Position: 1},
	}, nil)

	out := DetectSpreads(rows)
	require.Len(t, out, 4)
	assert.Equal(t, model.RowSpread, out[0].Kind)
	assert.Equal(t, "210.00-220.00", out[0].StrikeDisplay)
	assert.Equal(t, model.RowLeg, out[1].Kind)
	assert.Equal(t, model.RowLeg, out[2].Kind)
	assert.Equal(t, model.RowPosition, out[3].Kind)
	assert.Equal(t, 200.0, *out[3].Strike)
}

func TestDetectSpreadsMissingStrike(t *testing.T) {
	rows := []model.AggregatedRow{
		{Account: "U1", ContractType: model.ContractOption, Symbol: "X", Right: model.RightCall, Position: 1, Strike: model.Float(10)},
		{Account: "U1", ContractType: model.ContractOption, Symbol: "X", Right: model.RightCall, Position: -1},
	}

	out := DetectSpreads(rows)
	require.Len(t, out, 3)
	assert.Empty(t, out[0].StrikeDisplay)
}

func TestDetectSpreadsConsumedRowsNotRepeated(t *testing.T) {
	rows := Aggregate([]model.RawPosition{
		{Account: "U1", Instrument: stock("AAPL"), Position: 100},
		{Account: "U1", Instrument: option("AAPL", "20261218", "C", 100), Position: 5},
		{Account: "U1", Instrument: option("AAPL", "20261218", "C", 110), Position: -5},
	}, nil)

	out := DetectSpreads(rows)
	plain := 0
	for _, r := range out {
		if r.Kind == model.RowPosition {
			plain++
			assert.Equal(t, "STK", r.ContractType)
		}
	}
	assert.Equal(t, 1, plain)
	assert.Len(t, out, 4)
}

func TestAggregateAndDetectIdempotent(t *testing.T) {
	positions := []model.RawPosition{
		{Account: "U1", Instrument: option("AAPL", "20261218", "C", 100), Position: 5, AvgCost: 3.5},
		{Account: "U1", Instrument: option("AAPL", "20261218", "C", 110), Position: -5, AvgCost: 1.25},
		{Account: "U1", Instrument: stock("MSFT"), Position: 10, AvgCost: 300},
		{Account: "U2", Instrument: option("SPY", "20261120", "P", 480), Position: 2},
	}

	first, err := json.Marshal(DetectSpreads(Aggregate(positions, nil)))
	require.NoError(t, err)
	second, err := json.Marshal(DetectSpreads(Aggregate(positions, nil)))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
