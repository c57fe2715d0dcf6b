package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/RedaDC/Trade-SENS-AI/internal/conversation"
	"github.com/RedaDC/Trade-SENS-AI/internal/session"
	"github.com/RedaDC/Trade-SENS-AI/models"
)

func TestPrice(t *testing.T) {
	assert.Equal(t, "Loading...", Price(0))
	assert.Equal(t, "1.08450", Price(1.0845))
}

func TestExecutionLine(t *testing.T) {
	ts := time.Date(2026, 10, 18, 14, 5, 9, 0, time.UTC)
	price := 2350.5

	assert.Equal(t,
		"[14:05:09] AI SELL GOLD @ 2350.5 | bearish",
		ExecutionLine(models.ExecutionEntry{Timestamp: ts, Origin: models.OriginAI, Side: models.SideSell, Symbol: "GOLD", Price: &price, Explanation: "bearish"}),
	)
	assert.Equal(t,
		"[14:05:09] MANUAL BUY EURUSD @ MARKET | manual",
		ExecutionLine(models.ExecutionEntry{Timestamp: ts, Origin: models.OriginManual, Side: models.SideBuy, Symbol: "EURUSD", Explanation: "manual"}),
	)
}

func TestCalendarLine(t *testing.T) {
	assert.Equal(t, "14:30 USD [HIGH] Non-Farm Payrolls (actual 250K, forecast -)",
		CalendarLine(models.CalendarItem{Time: "14:30", Currency: "USD", Impact: models.ImpactHigh, Title: "Non-Farm Payrolls", Actual: "250K"}))
	assert.Equal(t, "[LOW] Markets steady",
		CalendarLine(models.CalendarItem{Impact: models.ImpactLow, Title: "Markets steady"}))
}

func TestMessageLine(t *testing.T) {
	assert.Equal(t, "USER: hi", MessageLine(conversation.TextMessage{From: conversation.RoleUser, Text: "hi"}))

	analysis := conversation.AnalysisMessage{
		Text: "Here you go",
		Analysis: models.NewAnalysisPayload([]byte(`{
			"symbol": "GOLD",
			"recommendation": "BUY",
			"stop_loss": 2300,
			"take_profit": 2450
		}`)),
	}
	assert.Equal(t,
		"ASSISTANT: Here you go\nSymbol: GOLD\nRecommendation: BUY\nStop loss: 2300\nTake profit: 2450",
		MessageLine(analysis),
	)
}

func TestMessageLineEmptyCard(t *testing.T) {
	assert.Equal(t, "ASSISTANT: \nNo analysis available", MessageLine(conversation.AnalysisMessage{}))
}

func TestAnalysisLinesWithoutPlan(t *testing.T) {
	assert.Equal(t, []string{"No analysis available"}, AnalysisLines(models.AnalysisPayload{}))
	assert.Equal(t, []string{"signal: BUY"}, AnalysisLines(models.NewAnalysisPayload([]byte(`{"signal":"BUY"}`))))
	assert.Equal(t, []string{"Analysis received"}, AnalysisLines(models.NewAnalysisPayload([]byte(`{"other":1}`))))
}

func TestAnalysisLinesConfidence(t *testing.T) {
	p := models.NewAnalysisPayload([]byte(`{
		"analysis": {
			"decision": {"recommendation": "SELL", "confidence": 0.82, "reasoning": "Lower highs"},
			"risk_management": {"stop_loss": "1.0900", "take_profit": "1.0700"}
		}
	}`))

	assert.Equal(t, []string{
		"Recommendation: SELL",
		"Confidence: 82%",
		"Stop loss: 1.09",
		"Take profit: 1.07",
		"Reasoning: Lower highs",
	}, AnalysisLines(p))
}

func TestHeader(t *testing.T) {
	snap := session.Snapshot{Symbol: "EURUSD", AutoTrade: true, ActiveTab: models.TabTrading}

	assert.Equal(t, "EURUSD  Loading...  |  Auto-trade: ON  |  Tab: TRADING", Header(snap))
}

func TestDashboardFollowsTab(t *testing.T) {
	snap := session.Snapshot{
		Symbol:         "GOLD",
		LastPrice:      2350,
		ActiveTab:      models.TabTrading,
		CalendarStatus: session.StatusReady,
		Toasts:         []string{"Manual BUY order placed"},
	}

	out := Dashboard(snap)
	assert.Contains(t, out, "2350.00000")
	assert.Contains(t, out, "Economic Calendar")
	assert.Contains(t, out, "No events")
	assert.Contains(t, out, "Manual BUY order placed")
	assert.NotContains(t, out, "AI Trading Analysis")

	snap.ActiveTab = models.TabAIAnalysis
	out = Dashboard(snap)
	assert.Contains(t, out, "AI Trading Analysis (GOLD)")
	assert.NotContains(t, out, "Economic Calendar")
}

func TestTranscriptShowsPendingReply(t *testing.T) {
	msgs := []conversation.Message{conversation.TextMessage{From: conversation.RoleUser, Text: "A"}}

	assert.Equal(t, "Finance with AI\nUSER: A\n...", Transcript(msgs, conversation.AwaitingResponse))
	assert.Equal(t, "Finance with AI\nUSER: A", Transcript(msgs, conversation.Idle))
}
