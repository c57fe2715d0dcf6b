// Package autotrade simulates the AI trader: on every tick it may emit a
// synthetic trade, chosen only from a random source.
package autotrade

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/RedaDC/Trade-SENS-AI/internal/platform/format"
	"github.com/RedaDC/Trade-SENS-AI/models"
)

const (
	BuyExplanation  = "AI detected bullish momentum near support; executed BUY."
	SellExplanation = "AI detected bearish momentum near resistance; executed SELL."
)

// RandomSource yields uniform draws in [0,1)
type RandomSource interface {
	Float64() float64
}

// NewRandomSource returns a time-seeded source
func NewRandomSource() RandomSource {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// Params are the decision thresholds
type Params struct {
	// ActThreshold: the engine acts when the first draw is strictly above it
	ActThreshold float64
	// BuyThreshold: BUY when the second draw is strictly above it, SELL otherwise
	BuyThreshold float64
}

// DefaultParams act on roughly 30% of ticks with an even side split
func DefaultParams() Params {
	return Params{ActThreshold: 0.7, BuyThreshold: 0.5}
}

// Decision is the outcome of one tick
type Decision struct {
	Act  bool
	Side models.Side
}

// Trade is what a tick that acts commits: one execution and one toast
type Trade struct {
	Entry models.ExecutionEntry
	Toast string
}

// Engine is the decision rule. It is not safe for concurrent use when the
// random source is not.
type Engine struct {
	rnd    RandomSource
	params Params
}

// NewEngine builds an engine, nil rnd means a time-seeded source
func NewEngine(rnd RandomSource, params Params) *Engine {
	if rnd == nil {
		rnd = NewRandomSource()
	}
	return &Engine{rnd: rnd, params: params}
}

// Decide draws once, and a second time only when acting
func (e *Engine) Decide() Decision {
	if e.rnd.Float64() <= e.params.ActThreshold {
		return Decision{}
	}
	side := models.SideSell
	if e.rnd.Float64() > e.params.BuyThreshold {
		side = models.SideBuy
	}
	return Decision{Act: true, Side: side}
}

// Evaluate runs one tick for symbol at price (0 when not loaded yet)
func (e *Engine) Evaluate(symbol string, price float64, now time.Time) (Trade, bool) {
	d := e.Decide()
	if !d.Act {
		return Trade{}, false
	}

	entry := models.ExecutionEntry{
		Timestamp:   now,
		Origin:      models.OriginAI,
		Side:        d.Side,
		Symbol:      symbol,
		Price:       format.OptionalPrice(price),
		Explanation: Explanation(d.Side),
	}
	toast := fmt.Sprintf("AI Placed %s order on %s @ %s", d.Side, symbol, format.PriceOrMarket(price))
	return Trade{Entry: entry, Toast: toast}, true
}

// Explanation is the narrative attached to an AI execution
func Explanation(side models.Side) string {
	if side == models.SideBuy {
		return BuyExplanation
	}
	return SellExplanation
}
