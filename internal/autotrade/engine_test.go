package autotrade

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RedaDC/Trade-SENS-AI/models"
)

// scripted replays fixed draws
type scripted struct {
	draws []float64
	calls int
}

func (s *scripted) Float64() float64 {
	v := s.draws[s.calls]
	s.calls++
	return v
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name     string
		draws    []float64
		expected Decision
		used     int
	}{
		{name: "acts and sells", draws: []float64{0.75, 0.3}, expected: Decision{Act: true, Side: models.SideSell}, used: 2},
		{name: "acts and buys", draws: []float64{0.9, 0.9}, expected: Decision{Act: true, Side: models.SideBuy}, used: 2},
		{name: "no action below threshold", draws: []float64{0.5, 0.9}, expected: Decision{}, used: 1},
		{name: "threshold itself does not act", draws: []float64{0.7}, expected: Decision{}, used: 1},
		{name: "buy threshold itself sells", draws: []float64{0.71, 0.5}, expected: Decision{Act: true, Side: models.SideSell}, used: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &scripted{draws: tt.draws}
			e := NewEngine(src, DefaultParams())

			assert.Equal(t, tt.expected, e.Decide())
			assert.Equal(t, tt.used, src.calls)
		})
	}
}

func TestDecideIsReplayable(t *testing.T) {
	draws := []float64{0.1, 0.8, 0.6, 0.95, 0.2, 0.71, 0.51}
	run := func() []Decision {
		e := NewEngine(&scripted{draws: draws}, DefaultParams())
		var out []Decision
		for i := 0; i < 4; i++ {
			out = append(out, e.Decide())
		}
		return out
	}

	first := run()
	assert.Equal(t, first, run())
	assert.Equal(t, []Decision{
		{},
		{Act: true, Side: models.SideBuy},
		{Act: true, Side: models.SideSell},
		{Act: true, Side: models.SideBuy},
	}, first)
}

func TestEvaluateBuildsEntryAndToast(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	e := NewEngine(&scripted{draws: []float64{0.8, 0.9}}, DefaultParams())

	trade, ok := e.Evaluate("EURUSD", 1.0845, now)
	require.True(t, ok)

	assert.Equal(t, models.OriginAI, trade.Entry.Origin)
	assert.Equal(t, models.SideBuy, trade.Entry.Side)
	assert.Equal(t, "EURUSD", trade.Entry.Symbol)
	assert.Equal(t, now, trade.Entry.Timestamp)
	require.NotNil(t, trade.Entry.Price)
	assert.Equal(t, 1.0845, *trade.Entry.Price)
	assert.Equal(t, BuyExplanation, trade.Entry.Explanation)
	assert.Equal(t, "AI Placed BUY order on EURUSD @ 1.0845", trade.Toast)
}

func TestEvaluateWithoutPriceUsesMarket(t *testing.T) {
	e := NewEngine(&scripted{draws: []float64{0.8, 0.1}}, DefaultParams())

	trade, ok := e.Evaluate("GOLD", 0, time.Now())
	require.True(t, ok)

	assert.Nil(t, trade.Entry.Price)
	assert.Equal(t, SellExplanation, trade.Entry.Explanation)
	assert.Equal(t, "AI Placed SELL order on GOLD @ MARKET", trade.Toast)
}

func TestEvaluateNoAction(t *testing.T) {
	e := NewEngine(&scripted{draws: []float64{0.2}}, DefaultParams())

	_, ok := e.Evaluate("EURUSD", 1.1, time.Now())
	assert.False(t, ok)
}

func TestCustomThresholds(t *testing.T) {
	e := NewEngine(&scripted{draws: []float64{0.2, 0.2}}, Params{ActThreshold: 0.1, BuyThreshold: 0.1})

	assert.Equal(t, Decision{Act: true, Side: models.SideBuy}, e.Decide())
}
