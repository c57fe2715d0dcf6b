// Package session is the live dashboard state: the selected symbol, its price,
// calendar and analysis, the auto-trader, the manual trade path and the chat.
// All state lives behind one mutex and is changed only by the operations
// below or by the background tasks they start.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/RedaDC/Trade-SENS-AI/internal/autotrade"
	"github.com/RedaDC/Trade-SENS-AI/internal/boundedlog"
	"github.com/RedaDC/Trade-SENS-AI/internal/config"
	"github.com/RedaDC/Trade-SENS-AI/internal/conversation"
	"github.com/RedaDC/Trade-SENS-AI/internal/platform/format"
	"github.com/RedaDC/Trade-SENS-AI/internal/scheduler"
	"github.com/RedaDC/Trade-SENS-AI/models"
)

// Session is one live dashboard
type Session struct {
	gw       models.Gateway
	cfg      config.Session
	clock    clockwork.Clock
	engine   *autotrade.Engine
	sched    *scheduler.Scheduler
	chat     *conversation.Controller
	listener Listener
	logger   zerolog.Logger

	mu        sync.Mutex
	started   bool
	closed    bool
	symbol    string
	epoch     uint64
	lastPrice float64
	autoTrade bool
	tab       models.Tab

	calendar       []models.CalendarItem
	calendarStatus LoadStatus
	analysis       models.AnalysisPayload
	analysisStatus LoadStatus
	deep           models.AnalysisPayload
	deepStatus     LoadStatus
	executing      bool

	toasts     *boundedlog.Log[string]
	executions *boundedlog.Log[models.ExecutionEntry]
}

// New creates a session on the configured default symbol. Background tasks
// end when ctx ends or Close is called. Call Start to begin loading.
func New(ctx context.Context, opts Options) (*Session, error) {
	if opts.Gateway == nil {
		return nil, errors.New("session: gateway is required")
	}
	cfg := withDefaults(opts.Config)

	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	s := &Session{
		gw:    opts.Gateway,
		cfg:   cfg,
		clock: clock,
		engine: autotrade.NewEngine(opts.Random, autotrade.Params{
			ActThreshold: cfg.AutoTradeThreshold,
			BuyThreshold: cfg.BuyThreshold,
		}),
		sched:      scheduler.New(ctx, clock),
		listener:   opts.Listener,
		logger:     log.With().Str("component", "session").Logger(),
		symbol:     cfg.DefaultSymbol,
		tab:        models.TabTrading,
		toasts:     boundedlog.New[string](cfg.ToastCapacity),
		executions: boundedlog.New[models.ExecutionEntry](cfg.ExecutionCapacity),
	}
	s.chat = conversation.New(conversation.Options{
		Chat:     opts.Gateway,
		Symbol:   s.Symbol,
		Greeting: cfg.ChatGreeting,
	})
	return s, nil
}

func withDefaults(cfg config.Session) config.Session {
	def := config.Default().Session
	if strings.TrimSpace(cfg.DefaultSymbol) == "" {
		cfg.DefaultSymbol = def.DefaultSymbol
	}
	cfg.DefaultSymbol = strings.ToUpper(strings.TrimSpace(cfg.DefaultSymbol))
	if len(cfg.Watchlist) == 0 {
		cfg.Watchlist = def.Watchlist
	}
	if cfg.PricePollInterval <= 0 {
		cfg.PricePollInterval = def.PricePollInterval
	}
	if cfg.AutoTradeInterval <= 0 {
		cfg.AutoTradeInterval = def.AutoTradeInterval
	}
	if cfg.ToastCapacity <= 0 {
		cfg.ToastCapacity = def.ToastCapacity
	}
	if cfg.ExecutionCapacity <= 0 {
		cfg.ExecutionCapacity = def.ExecutionCapacity
	}
	if cfg.NewsFallbackLimit <= 0 {
		cfg.NewsFallbackLimit = def.NewsFallbackLimit
	}
	if cfg.TradeVolume <= 0 {
		cfg.TradeVolume = def.TradeVolume
	}
	if cfg.AnalysisTimeframe == "" {
		cfg.AnalysisTimeframe = def.AnalysisTimeframe
	}
	return cfg
}

// Start begins polling and loading for the current symbol. Repeated calls
// are ignored.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.started {
		return
	}
	s.started = true
	s.loadSymbolLocked(s.symbol)
}

// Symbol returns the selected symbol
func (s *Session) Symbol() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.symbol
}

// SelectSymbol switches the session to symbol. The price resets to not
// loaded, the price poll restarts and the calendar and analysis reload.
// Results of requests issued for the previous symbol are discarded.
func (s *Session) SelectSymbol(symbol string) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return errors.New("symbol is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.started && symbol == s.symbol {
		return nil
	}
	s.started = true
	s.loadSymbolLocked(symbol)
	s.logger.Info().Str("symbol", symbol).Uint64("epoch", s.epoch).Msg("Symbol selected")
	return nil
}

func (s *Session) loadSymbolLocked(symbol string) {
	s.symbol = symbol
	s.epoch++
	s.lastPrice = 0
	s.calendar = nil
	s.calendarStatus = StatusLoading
	s.analysis = models.AnalysisPayload{}
	s.analysisStatus = StatusLoading
	s.deep = models.AnalysisPayload{}
	s.deepStatus = StatusIdle

	epoch := s.epoch
	s.sched.Every(taskPrice, s.cfg.PricePollInterval, s.pollPrice(symbol, epoch))
	s.sched.Go(taskCalendar, s.loadCalendar(symbol, epoch))
	s.sched.Go(taskAnalysis, s.loadAnalysis(symbol, epoch))
}

// currentLocked reports whether results issued for symbol at epoch still apply
func (s *Session) currentLocked(symbol string, epoch uint64) bool {
	return !s.closed && s.epoch == epoch && s.symbol == symbol
}

func (s *Session) pollPrice(symbol string, epoch uint64) func(context.Context) {
	return func(ctx context.Context) {
		quote, err := s.gw.GetQuote(ctx, symbol)
		if err != nil {
			s.logger.Debug().Err(err).Str("symbol", symbol).Msg("Price poll failed")
			return
		}
		if !quote.Defined() {
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.currentLocked(symbol, epoch) {
			s.logger.Debug().Str("symbol", symbol).Msg("Discarding stale price")
			return
		}
		s.lastPrice = *quote.Price
	}
}

func (s *Session) loadCalendar(symbol string, epoch uint64) func(context.Context) {
	return func(ctx context.Context) {
		items, err := s.gw.GetCalendar(ctx, symbol)
		status := StatusReady
		if err != nil || len(items) == 0 {
			if err != nil {
				s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Calendar unavailable, falling back to news")
			}
			news, newsErr := s.gw.GetNews(ctx)
			switch {
			case newsErr != nil:
				s.logger.Warn().Err(newsErr).Msg("News feed unavailable")
				items = nil
				status = StatusUnavailable
			case len(news) > s.cfg.NewsFallbackLimit:
				items = append([]models.CalendarItem(nil), news[:s.cfg.NewsFallbackLimit]...)
			default:
				items = news
			}
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.currentLocked(symbol, epoch) {
			return
		}
		s.calendar = items
		s.calendarStatus = status
	}
}

func (s *Session) loadAnalysis(symbol string, epoch uint64) func(context.Context) {
	return func(ctx context.Context) {
		payload, err := s.gw.GetAnalysis(ctx, symbol)
		if err != nil {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Analysis unavailable")
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.currentLocked(symbol, epoch) {
			return
		}
		if err != nil {
			s.analysis = models.AnalysisPayload{}
			s.analysisStatus = StatusUnavailable
			return
		}
		s.analysis = payload
		s.analysisStatus = StatusReady
	}
}

// SetAutoTrade turns the auto-trader on or off. The check task runs only
// while enabled, and a tick that races with disabling does nothing.
func (s *Session) SetAutoTrade(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.setAutoTradeLocked(enabled)
	return nil
}

// ToggleAutoTrade flips the auto-trader and returns the new setting
func (s *Session) ToggleAutoTrade() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.autoTrade, ErrClosed
	}
	s.setAutoTradeLocked(!s.autoTrade)
	return s.autoTrade, nil
}

func (s *Session) setAutoTradeLocked(enabled bool) {
	if s.autoTrade == enabled {
		return
	}
	s.autoTrade = enabled
	if enabled {
		s.sched.Every(taskAutoTrade, s.cfg.AutoTradeInterval, s.autoTradeTick)
	} else {
		s.sched.Stop(taskAutoTrade)
	}
	s.logger.Info().Bool("enabled", enabled).Msg("Auto-trade toggled")
}

func (s *Session) autoTradeTick(ctx context.Context) {
	s.mu.Lock()
	if s.closed || !s.autoTrade || ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	trade, ok := s.engine.Evaluate(s.symbol, s.lastPrice, s.clock.Now())
	if !ok {
		s.mu.Unlock()
		return
	}
	entry := s.recordLocked(&trade.Entry, trade.Toast)
	s.mu.Unlock()

	s.logger.Info().Str("symbol", entry.Symbol).Str("side", string(entry.Side)).Msg("Auto-trade executed")
	s.notify(entry, trade.Toast)
}

// recordLocked pushes the entry, if any, and the toast together
func (s *Session) recordLocked(entry *models.ExecutionEntry, toast string) *models.ExecutionEntry {
	if entry != nil {
		entry.ID = uuid.NewString()
		s.executions.Push(*entry)
	}
	s.toasts.Push(toast)
	return entry
}

func (s *Session) notify(entry *models.ExecutionEntry, toast string) {
	if entry != nil && s.listener.OnExecution != nil {
		s.listener.OnExecution(*entry)
	}
	if s.listener.OnToast != nil {
		s.listener.OnToast(toast)
	}
}

// SwitchTab changes the visible tab and nothing else
func (s *Session) SwitchTab(tab models.Tab) error {
	if !tab.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownTab, tab)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tab = tab
	return nil
}

// PlaceManualTrade submits a market order for the selected symbol. On success
// one MANUAL execution and one toast are recorded; on failure only the
// failure toast, and the error is returned.
func (s *Session) PlaceManualTrade(ctx context.Context, side models.Side) (models.TradeConfirmation, error) {
	if !side.Valid() {
		return models.TradeConfirmation{}, fmt.Errorf("%w: %q", ErrInvalidSide, side)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return models.TradeConfirmation{}, ErrClosed
	}
	symbol, price := s.symbol, s.lastPrice
	req := models.TradeRequest{
		ChallengeID: s.cfg.ChallengeID,
		Symbol:      symbol,
		Side:        side,
		Volume:      s.cfg.TradeVolume,
	}
	s.mu.Unlock()

	conf, err := s.gw.PlaceTrade(ctx, req)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return conf, err
	}
	if err != nil {
		s.recordLocked(nil, FailedTradeToast)
		s.mu.Unlock()
		s.logger.Error().Err(err).Str("symbol", symbol).Str("side", string(side)).Msg("Manual trade failed")
		s.notify(nil, FailedTradeToast)
		return models.TradeConfirmation{}, fmt.Errorf("place %s %s: %w", side, symbol, err)
	}

	toast := fmt.Sprintf("Manual %s order placed on %s @ %s", side, symbol, format.PriceOrMarket(price))
	entry := s.recordLocked(&models.ExecutionEntry{
		Timestamp:   s.clock.Now(),
		Origin:      models.OriginManual,
		Side:        side,
		Symbol:      symbol,
		Price:       format.OptionalPrice(price),
		Explanation: ManualExplanation,
	}, toast)
	s.mu.Unlock()

	s.notify(entry, toast)
	return conf, nil
}

// RequestDeepAnalysis runs the on-demand analysis for the selected symbol and
// keeps it for ExecuteRecommendation
func (s *Session) RequestDeepAnalysis(ctx context.Context) (models.AnalysisPayload, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return models.AnalysisPayload{}, ErrClosed
	}
	symbol, epoch := s.symbol, s.epoch
	s.deepStatus = StatusLoading
	s.mu.Unlock()

	payload, err := s.gw.AnalyzeSymbol(ctx, symbol, s.cfg.AnalysisTimeframe)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return models.AnalysisPayload{}, ErrClosed
	}
	if !s.currentLocked(symbol, epoch) {
		return models.AnalysisPayload{}, ErrSymbolChanged
	}
	if err != nil {
		// the previous analysis, if any, stays usable
		s.deepStatus = StatusReady
		if s.deep.Empty() {
			s.deepStatus = StatusUnavailable
		}
		return models.AnalysisPayload{}, fmt.Errorf("analyze %s: %w", symbol, err)
	}
	s.deep = payload
	s.deepStatus = StatusReady
	return payload, nil
}

// ExecuteRecommendation places the trade the deep analysis recommends, with
// its stop loss and take profit. A WAIT recommendation is refused without
// recording anything.
func (s *Session) ExecuteRecommendation(ctx context.Context) (models.TradeConfirmation, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return models.TradeConfirmation{}, ErrClosed
	}
	if s.executing {
		s.mu.Unlock()
		return models.TradeConfirmation{}, ErrExecutionInProgress
	}
	if s.deep.Empty() {
		s.mu.Unlock()
		return models.TradeConfirmation{}, ErrNoAnalysis
	}
	plan, err := s.deep.TradePlan()
	if err != nil {
		s.mu.Unlock()
		return models.TradeConfirmation{}, err
	}

	var side models.Side
	switch plan.Recommendation {
	case models.RecommendationWait:
		s.mu.Unlock()
		return models.TradeConfirmation{}, ErrWaitRecommendation
	case models.RecommendationBuy:
		side = models.SideBuy
	case models.RecommendationSell:
		side = models.SideSell
	default:
		s.mu.Unlock()
		return models.TradeConfirmation{}, fmt.Errorf("%w: recommendation %q", models.ErrIncompletePlan, plan.Recommendation)
	}

	symbol := plan.Symbol
	if symbol == "" {
		symbol = s.symbol
	}
	var price float64
	if symbol == s.symbol {
		price = s.lastPrice
	}
	stopLoss, takeProfit := plan.StopLoss, plan.TakeProfit
	req := models.TradeRequest{
		ChallengeID: s.cfg.ChallengeID,
		Symbol:      symbol,
		Side:        side,
		Volume:      s.cfg.TradeVolume,
		StopLoss:    &stopLoss,
		TakeProfit:  &takeProfit,
	}
	s.executing = true
	s.mu.Unlock()

	conf, err := s.gw.PlaceTrade(ctx, req)

	s.mu.Lock()
	s.executing = false
	if s.closed {
		s.mu.Unlock()
		return conf, err
	}
	if err != nil {
		s.recordLocked(nil, FailedExecuteToast)
		s.mu.Unlock()
		s.logger.Error().Err(err).Str("symbol", symbol).Msg("Executing recommendation failed")
		s.notify(nil, FailedExecuteToast)
		return models.TradeConfirmation{}, fmt.Errorf("execute %s %s: %w", side, symbol, err)
	}

	toast := fmt.Sprintf("Trade Executed: %s %s", side, symbol)
	entry := s.recordLocked(&models.ExecutionEntry{
		Timestamp: s.clock.Now(),
		Origin:    models.OriginManual,
		Side:      side,
		Symbol:    symbol,
		Price:     format.OptionalPrice(price),
		Explanation: fmt.Sprintf("Executed AI recommendation %s with stop loss %s and take profit %s.",
			plan.Recommendation, format.PriceOrMarket(stopLoss), format.PriceOrMarket(takeProfit)),
	}, toast)
	s.mu.Unlock()

	s.notify(entry, toast)
	return conf, nil
}

// Send forwards text to the AI chat. See conversation.Controller.Send.
func (s *Session) Send(ctx context.Context, text string) (<-chan conversation.Message, bool) {
	return s.chat.Send(ctx, text)
}

// Snapshot copies the session for rendering
func (s *Session) Snapshot() Snapshot {
	transcript := s.chat.Transcript()
	chatState := s.chat.State()

	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Symbol:             s.symbol,
		Watchlist:          append([]string(nil), s.cfg.Watchlist...),
		LastPrice:          s.lastPrice,
		AutoTrade:          s.autoTrade,
		ActiveTab:          s.tab,
		CalendarStatus:     s.calendarStatus,
		Analysis:           s.analysis,
		AnalysisStatus:     s.analysisStatus,
		DeepAnalysis:       s.deep,
		DeepAnalysisStatus: s.deepStatus,
		Executing:          s.executing,
		Toasts:             s.toasts.Items(),
		Executions:         s.executions.Items(),
		Transcript:         transcript,
		ChatState:          chatState,
	}
	if s.calendar != nil {
		snap.Calendar = append([]models.CalendarItem(nil), s.calendar...)
	}
	return snap
}

// Close stops every background task. Results that arrive later are dropped.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.sched.Close()
	s.logger.Debug().Msg("Session closed")
}
