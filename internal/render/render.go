// Package render turns session snapshots into text. The line helpers are
// plain and shared by every host; Dashboard wraps them in lipgloss panels for
// the terminal.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/RedaDC/Trade-SENS-AI/internal/conversation"
	"github.com/RedaDC/Trade-SENS-AI/internal/platform/format"
	"github.com/RedaDC/Trade-SENS-AI/internal/session"
	"github.com/RedaDC/Trade-SENS-AI/models"
)

const (
	priceLoading = "Loading..."
	timeLayout   = "15:04:05"
	panelWidth   = 80
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 1).
			Width(panelWidth)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#6B7280")).
			Padding(0, 1).
			Width(panelWidth)

	buyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	sellStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	toastStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
)

// Price shows the last price with five decimals, or Loading... before the
// first poll
func Price(price float64) string {
	return format.Fixed(price, 5, priceLoading)
}

// ExecutionLine is one row of the execution log
func ExecutionLine(e models.ExecutionEntry) string {
	price := format.Market
	if e.Price != nil {
		price = format.PriceOrMarket(*e.Price)
	}
	return fmt.Sprintf("[%s] %s %s %s @ %s | %s",
		e.Timestamp.Format(timeLayout), e.Origin, e.Side, e.Symbol, price, e.Explanation)
}

// CalendarLine is one row of the calendar or news panel
func CalendarLine(item models.CalendarItem) string {
	var b strings.Builder
	if item.Time != "" {
		b.WriteString(item.Time)
		b.WriteString(" ")
	}
	if item.Currency != "" {
		b.WriteString(item.Currency)
		b.WriteString(" ")
	}
	fmt.Fprintf(&b, "[%s] %s", item.Impact, item.Title)
	if item.Actual != "" || item.Forecast != "" {
		fmt.Fprintf(&b, " (actual %s, forecast %s)", orDash(item.Actual), orDash(item.Forecast))
	}
	return b.String()
}

// MessageLine renders one chat message
func MessageLine(msg conversation.Message) string {
	switch m := msg.(type) {
	case conversation.TextMessage:
		return fmt.Sprintf("%s: %s", m.From, m.Text)
	case conversation.AnalysisMessage:
		lines := []string{fmt.Sprintf("%s: %s", conversation.RoleAssistant, m.Text)}
		lines = append(lines, AnalysisLines(m.Analysis)...)
		return strings.Join(lines, "\n")
	default:
		return fmt.Sprintf("%s: %s", msg.Role(), msg.Content())
	}
}

// AnalysisLines summarizes an analysis payload: the plan when one can be
// extracted, otherwise whatever headline fields it carries
func AnalysisLines(p models.AnalysisPayload) []string {
	if p.Empty() {
		return []string{"No analysis available"}
	}

	var lines []string
	if symbol, ok := p.String("symbol"); ok {
		lines = append(lines, "Symbol: "+symbol)
	}
	plan, err := p.TradePlan()
	if err != nil {
		for _, key := range []string{"signal", "trend", "recommendation", "summary"} {
			if v, ok := p.String(key); ok && v != "" {
				lines = append(lines, fmt.Sprintf("%s: %s", key, v))
			}
		}
		if len(lines) == 0 {
			lines = append(lines, "Analysis received")
		}
		return lines
	}

	lines = append(lines, "Recommendation: "+string(plan.Recommendation))
	if plan.Confidence > 0 {
		lines = append(lines, fmt.Sprintf("Confidence: %.0f%%", confidencePercent(plan.Confidence)))
	}
	lines = append(lines,
		"Stop loss: "+format.PriceOrMarket(plan.StopLoss),
		"Take profit: "+format.PriceOrMarket(plan.TakeProfit),
	)
	if plan.Reasoning != "" {
		lines = append(lines, "Reasoning: "+plan.Reasoning)
	}
	return lines
}

// confidence arrives either as a fraction or as a percentage
func confidencePercent(c float64) float64 {
	if c <= 1 {
		return c * 100
	}
	return c
}

// Header is the one-line summary of the session
func Header(snap session.Snapshot) string {
	auto := "OFF"
	if snap.AutoTrade {
		auto = "ON"
	}
	return fmt.Sprintf("%s  %s  |  Auto-trade: %s  |  Tab: %s", snap.Symbol, Price(snap.LastPrice), auto, snap.ActiveTab)
}

// Dashboard renders the full terminal view for snap
func Dashboard(snap session.Snapshot) string {
	sections := []string{
		titleStyle.Render("TradeSense AI"),
		headerStyle.Render(Header(snap)),
		panelStyle.Render("Watchlist: " + strings.Join(snap.Watchlist, "  ")),
	}

	switch snap.ActiveTab {
	case models.TabAIAnalysis:
		sections = append(sections, panelStyle.Render(deepAnalysisPanel(snap)))
	default:
		sections = append(sections,
			panelStyle.Render(signalPanel(snap)),
			panelStyle.Render(calendarPanel(snap)),
		)
	}

	sections = append(sections,
		panelStyle.Render(executionPanel(snap.Executions)),
		panelStyle.Render(toastPanel(snap.Toasts)),
		panelStyle.Render(Transcript(snap.Transcript, snap.ChatState)),
	)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func signalPanel(snap session.Snapshot) string {
	lines := []string{"AI Signal"}
	switch snap.AnalysisStatus {
	case session.StatusLoading:
		lines = append(lines, mutedStyle.Render("Loading..."))
	case session.StatusUnavailable:
		lines = append(lines, mutedStyle.Render("Analysis unavailable"))
	default:
		lines = append(lines, AnalysisLines(snap.Analysis)...)
	}
	return strings.Join(lines, "\n")
}

func deepAnalysisPanel(snap session.Snapshot) string {
	lines := []string{"AI Trading Analysis (" + snap.Symbol + ")"}
	switch {
	case snap.DeepAnalysisStatus == session.StatusLoading:
		lines = append(lines, mutedStyle.Render("Analyzing..."))
	case snap.DeepAnalysis.Empty():
		lines = append(lines, mutedStyle.Render("Run `analyze` to request a deep analysis"))
	default:
		lines = append(lines, AnalysisLines(snap.DeepAnalysis)...)
		if snap.Executing {
			lines = append(lines, mutedStyle.Render("Executing..."))
		}
	}
	return strings.Join(lines, "\n")
}

func calendarPanel(snap session.Snapshot) string {
	lines := []string{"Economic Calendar"}
	switch {
	case snap.CalendarStatus == session.StatusLoading:
		lines = append(lines, mutedStyle.Render("Loading..."))
	case len(snap.Calendar) == 0:
		lines = append(lines, mutedStyle.Render("No events"))
	default:
		for _, item := range snap.Calendar {
			lines = append(lines, CalendarLine(item))
		}
	}
	return strings.Join(lines, "\n")
}

func executionPanel(entries []models.ExecutionEntry) string {
	lines := []string{"Executions"}
	if len(entries) == 0 {
		lines = append(lines, mutedStyle.Render("No executions yet"))
	}
	for _, e := range entries {
		line := ExecutionLine(e)
		if e.Side == models.SideBuy {
			line = buyStyle.Render(line)
		} else {
			line = sellStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func toastPanel(toasts []string) string {
	lines := []string{"Notifications"}
	for _, t := range toasts {
		lines = append(lines, toastStyle.Render(t))
	}
	return strings.Join(lines, "\n")
}

// Transcript renders the chat, oldest message first
func Transcript(msgs []conversation.Message, state conversation.State) string {
	lines := []string{"Finance with AI"}
	for _, msg := range msgs {
		lines = append(lines, MessageLine(msg))
	}
	if state == conversation.AwaitingResponse {
		lines = append(lines, mutedStyle.Render("..."))
	}
	return strings.Join(lines, "\n")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
