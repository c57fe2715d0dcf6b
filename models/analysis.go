package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// ErrIncompletePlan is returned when an analysis lacks the fields needed to trade on it
var ErrIncompletePlan = errors.New("analysis is missing recommendation, stop_loss or take_profit")

// AnalysisPayload is a structured analysis object produced by the AI service.
// Its shape is owned by that service, so it is kept as raw JSON and only the
// fields needed for execution are ever extracted.
type AnalysisPayload struct {
	raw json.RawMessage
}

// NewAnalysisPayload wraps raw JSON
func NewAnalysisPayload(raw []byte) AnalysisPayload {
	var p AnalysisPayload
	_ = p.UnmarshalJSON(raw)
	return p
}

// Empty reports whether no payload was present
func (p AnalysisPayload) Empty() bool {
	return len(p.raw) == 0
}

// Raw returns a copy of the underlying JSON
func (p AnalysisPayload) Raw() json.RawMessage {
	if p.Empty() {
		return nil
	}
	return append(json.RawMessage(nil), p.raw...)
}

// UnmarshalJSON keeps the bytes; null means absent
func (p *AnalysisPayload) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		p.raw = nil
		return nil
	}
	p.raw = append(json.RawMessage(nil), trimmed...)
	return nil
}

// MarshalJSON writes the payload back unchanged
func (p AnalysisPayload) MarshalJSON() ([]byte, error) {
	if p.Empty() {
		return []byte("null"), nil
	}
	return p.raw, nil
}

// Field walks nested objects and returns the raw value at path
func (p AnalysisPayload) Field(path ...string) (json.RawMessage, bool) {
	cur := p.raw
	for _, key := range path {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(cur, &obj); err != nil {
			return nil, false
		}
		next, ok := obj[key]
		if !ok || string(next) == "null" {
			return nil, false
		}
		cur = next
	}
	return cur, len(cur) > 0
}

// String returns the string at path, numbers are formatted as-is
func (p AnalysisPayload) String(path ...string) (string, bool) {
	raw, ok := p.Field(path...)
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	return string(raw), true
}

// Float returns the number at path. String numbers and the first element of
// an array (take-profit ladders) are accepted.
func (p AnalysisPayload) Float(path ...string) (float64, bool) {
	raw, ok := p.Field(path...)
	if !ok {
		return 0, false
	}
	return asFloat(raw)
}

func asFloat(raw json.RawMessage) (float64, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(s, "$")), 64)
		return v, err == nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return asFloat(list[0])
	}
	return 0, false
}

// TradePlan is the executable part of an analysis
type TradePlan struct {
	Symbol         string
	Recommendation Recommendation
	Confidence     float64
	Reasoning      string
	StopLoss       float64
	TakeProfit     float64
}

var (
	recommendationPaths = [][]string{
		{"analysis", "decision", "recommendation"},
		{"decision", "recommendation"},
		{"recommendation"},
	}
	stopLossPaths = [][]string{
		{"analysis", "risk_management", "stop_loss"},
		{"risk_management", "stop_loss"},
		{"trade_setup", "stop_loss"},
		{"stop_loss"},
	}
	takeProfitPaths = [][]string{
		{"analysis", "risk_management", "take_profit"},
		{"risk_management", "take_profit"},
		{"trade_setup", "take_profit"},
		{"take_profit"},
	}
)

// TradePlan extracts recommendation, stop loss and take profit. The deep
// analysis nests them under analysis.decision and analysis.risk_management,
// the chat cards carry them flat.
func (p AnalysisPayload) TradePlan() (TradePlan, error) {
	var plan TradePlan
	if p.Empty() {
		return plan, ErrIncompletePlan
	}

	rec, ok := p.firstString(recommendationPaths)
	if !ok {
		return plan, ErrIncompletePlan
	}
	plan.Recommendation = Recommendation(strings.ToUpper(strings.TrimSpace(rec)))

	if plan.StopLoss, ok = p.firstFloat(stopLossPaths); !ok {
		return plan, ErrIncompletePlan
	}
	if plan.TakeProfit, ok = p.firstFloat(takeProfitPaths); !ok {
		return plan, ErrIncompletePlan
	}

	plan.Symbol, _ = p.String("symbol")
	plan.Confidence, _ = p.Float("analysis", "decision", "confidence")
	plan.Reasoning, _ = p.String("analysis", "decision", "reasoning")
	return plan, nil
}

func (p AnalysisPayload) firstString(paths [][]string) (string, bool) {
	for _, path := range paths {
		if v, ok := p.String(path...); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

func (p AnalysisPayload) firstFloat(paths [][]string) (float64, bool) {
	for _, path := range paths {
		if v, ok := p.Float(path...); ok {
			return v, true
		}
	}
	return 0, false
}
