package session

import (
	"errors"

	"github.com/jonboulle/clockwork"

	"github.com/RedaDC/Trade-SENS-AI/internal/autotrade"
	"github.com/RedaDC/Trade-SENS-AI/internal/config"
	"github.com/RedaDC/Trade-SENS-AI/models"
)

var (
	ErrInvalidSide         = errors.New("invalid side")
	ErrUnknownTab          = errors.New("unknown tab")
	ErrNoAnalysis          = errors.New("no analysis loaded")
	ErrWaitRecommendation  = errors.New("analysis recommends WAIT")
	ErrExecutionInProgress = errors.New("execution already in progress")
	ErrSymbolChanged       = errors.New("symbol changed while request was in flight")
	ErrClosed              = errors.New("session closed")
)

const (
	ManualExplanation  = "User triggered execution from Trading Controls."
	FailedTradeToast   = "Failed to place trade"
	FailedExecuteToast = "Failed to execute trade"

	taskPrice     = "price"
	taskCalendar  = "calendar"
	taskAnalysis  = "analysis"
	taskAutoTrade = "auto-trade"
)

// Listener is notified after a toast or an execution has been committed.
// Callbacks run outside the session lock and may call back into the session.
type Listener struct {
	OnToast     func(toast string)
	OnExecution func(entry models.ExecutionEntry)
}

// Options configure a Session
type Options struct {
	Gateway models.Gateway
	// Clock drives the polling tasks; nil means the real clock
	Clock clockwork.Clock
	// Random feeds the auto-trade engine; nil means a time-seeded source
	Random   autotrade.RandomSource
	Config   config.Session
	Listener Listener
}
