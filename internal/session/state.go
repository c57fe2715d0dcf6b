package session

import (
	"github.com/RedaDC/Trade-SENS-AI/internal/conversation"
	"github.com/RedaDC/Trade-SENS-AI/models"
)

// LoadStatus tracks a panel fed by a background fetch
type LoadStatus int

const (
	StatusIdle LoadStatus = iota
	StatusLoading
	StatusReady
	StatusUnavailable
)

func (s LoadStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Snapshot is a copy of everything a host renders. Mutating it does not
// affect the session.
type Snapshot struct {
	Symbol    string
	Watchlist []string
	// LastPrice is 0 until the first successful poll for Symbol
	LastPrice float64
	AutoTrade bool
	ActiveTab models.Tab

	Calendar       []models.CalendarItem
	CalendarStatus LoadStatus

	Analysis       models.AnalysisPayload
	AnalysisStatus LoadStatus

	DeepAnalysis       models.AnalysisPayload
	DeepAnalysisStatus LoadStatus
	Executing          bool

	// Newest first
	Toasts     []string
	Executions []models.ExecutionEntry

	Transcript []conversation.Message
	ChatState  conversation.State
}
