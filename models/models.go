package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Side is the direction of a trade
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Valid reports whether s is BUY or SELL
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Origin tells who issued an execution
type Origin string

const (
	OriginAI     Origin = "AI"
	OriginManual Origin = "MANUAL"
)

// Tab is one of the two mutually exclusive dashboard bodies
type Tab string

const (
	TabTrading    Tab = "TRADING"
	TabAIAnalysis Tab = "AI_ANALYSIS"
)

// Valid reports whether t is a known tab
func (t Tab) Valid() bool {
	return t == TabTrading || t == TabAIAnalysis
}

// Impact of a calendar event
type Impact string

const (
	ImpactHigh   Impact = "HIGH"
	ImpactMedium Impact = "MEDIUM"
	ImpactLow    Impact = "LOW"
)

// ParseImpact normalizes an impact label, unknown values become LOW
func ParseImpact(s string) Impact {
	switch Impact(strings.ToUpper(strings.TrimSpace(s))) {
	case ImpactHigh:
		return ImpactHigh
	case ImpactMedium:
		return ImpactMedium
	default:
		return ImpactLow
	}
}

// Recommendation produced by the AI analysis service
type Recommendation string

const (
	RecommendationBuy  Recommendation = "BUY"
	RecommendationSell Recommendation = "SELL"
	RecommendationWait Recommendation = "WAIT"
)

// Quote is the last price response for a symbol
type Quote struct {
	Symbol string   `json:"symbol"`
	Price  *float64 `json:"price"`
}

// Defined reports whether the quote carries a usable price
func (q Quote) Defined() bool {
	return q.Price != nil && *q.Price > 0
}

// CalendarItem is an economic calendar event or a news headline shown in its place
type CalendarItem struct {
	Time     string `json:"time"`
	Title    string `json:"title"`
	Currency string `json:"currency,omitempty"`
	Impact   Impact `json:"impact"`
	Actual   string `json:"actual,omitempty"`
	Forecast string `json:"forecast,omitempty"`
}

// UnmarshalJSON accepts both the calendar shape and the news feed shape
func (c *CalendarItem) UnmarshalJSON(b []byte) error {
	var raw struct {
		Time      string          `json:"time"`
		TimeAgo   string          `json:"time_ago"`
		Timestamp string          `json:"timestamp"`
		Title     string          `json:"title"`
		Headline  string          `json:"headline"`
		Currency  string          `json:"currency"`
		Impact    string          `json:"impact"`
		Actual    json.RawMessage `json:"actual"`
		Forecast  json.RawMessage `json:"forecast"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*c = CalendarItem{
		Time:     firstNonEmpty(raw.Time, raw.TimeAgo, raw.Timestamp),
		Title:    firstNonEmpty(raw.Title, raw.Headline),
		Currency: raw.Currency,
		Impact:   ParseImpact(raw.Impact),
		Actual:   looseString(raw.Actual),
		Forecast: looseString(raw.Forecast),
	}
	return nil
}

// looseString reads "200K" and 200 alike
func looseString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// ExecutionEntry is an immutable record of an executed (simulated or manual) trade
type ExecutionEntry struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Origin      Origin    `json:"origin"`
	Side        Side      `json:"side"`
	Symbol      string    `json:"symbol"`
	Price       *float64  `json:"price,omitempty"`
	Explanation string    `json:"explanation"`
}

// TradeRequest is the body of a trade placement
type TradeRequest struct {
	ChallengeID int      `json:"challenge_id"`
	Symbol      string   `json:"symbol"`
	Side        Side     `json:"side"`
	Volume      float64  `json:"volume"`
	StopLoss    *float64 `json:"stop_loss,omitempty"`
	TakeProfit  *float64 `json:"take_profit,omitempty"`
}

// TradeConfirmation is returned by the trade endpoint
type TradeConfirmation struct {
	Message string `json:"message"`
	TradeID int64  `json:"trade_id"`
}

// ChatContext travels with every chat message
type ChatContext struct {
	Symbol string `json:"symbol"`
}

// ChatReply is the decoded chat response. Exactly one of Text or Structured is
// set when Present is true.
type ChatReply struct {
	Present    bool
	Text       string
	Structured *StructuredReply
}

// StructuredReply is the object form of a chat response
type StructuredReply struct {
	Message string          `json:"message"`
	Type    string          `json:"type"`
	Data    AnalysisPayload `json:"data"`
}

// UnmarshalJSON decodes {"response": string | object}
func (r *ChatReply) UnmarshalJSON(b []byte) error {
	var env struct {
		Response json.RawMessage `json:"response"`
	}
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	*r = ChatReply{}
	raw := strings.TrimSpace(string(env.Response))
	if raw == "" || raw == "null" {
		return nil
	}
	if strings.HasPrefix(raw, "{") {
		var s StructuredReply
		if err := json.Unmarshal(env.Response, &s); err != nil {
			return err
		}
		r.Present = true
		r.Structured = &s
		return nil
	}
	// numbers and booleans are shown as written
	text := looseString(env.Response)
	if text == "" {
		return nil
	}
	r.Present = true
	r.Text = text
	return nil
}

// LoginResponse is returned by the auth endpoint
type LoginResponse struct {
	Token  string `json:"token,omitempty"`
	UserID int64  `json:"user_id,omitempty"`
}
