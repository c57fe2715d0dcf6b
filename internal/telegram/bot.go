// Package telegram serves live sessions over a Telegram bot, one session per
// chat. Toasts are pushed to the chat as they happen.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/RedaDC/Trade-SENS-AI/internal/conversation"
	"github.com/RedaDC/Trade-SENS-AI/internal/render"
	"github.com/RedaDC/Trade-SENS-AI/internal/session"
	"github.com/RedaDC/Trade-SENS-AI/models"
)

const (
	welcomeText  = "Welcome to TradeSense AI! Pick a symbol, trade manually or let the AI trade for you."
	symbolPrefix = "symbol_"
	historyLimit = 10

	// DefaultIdleTimeout closes sessions of chats that went quiet
	DefaultIdleTimeout = 2 * time.Hour
	pruneInterval      = 10 * time.Minute
)

// Sender is the part of *tgbotapi.BotAPI the bot uses
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Dashboard is the part of a session a chat drives
type Dashboard interface {
	Start()
	SelectSymbol(symbol string) error
	ToggleAutoTrade() (bool, error)
	PlaceManualTrade(ctx context.Context, side models.Side) (models.TradeConfirmation, error)
	RequestDeepAnalysis(ctx context.Context) (models.AnalysisPayload, error)
	ExecuteRecommendation(ctx context.Context) (models.TradeConfirmation, error)
	Send(ctx context.Context, text string) (<-chan conversation.Message, bool)
	Snapshot() session.Snapshot
	Close()
}

// Factory opens a session whose notifications go to listener
type Factory func(listener session.Listener) (Dashboard, error)

// chatState is what the bot remembers per chat
type chatState struct {
	dash         Dashboard
	lastActivity time.Time
}

// Bot routes updates to per-chat sessions
type Bot struct {
	api       Sender
	factory   Factory
	watchlist []string
	logger    zerolog.Logger

	mu    sync.Mutex
	chats map[int64]*chatState
}

// New creates a bot. watchlist feeds the symbol keyboard.
func New(api Sender, factory Factory, watchlist []string) *Bot {
	return &Bot{
		api:       api,
		factory:   factory,
		watchlist: watchlist,
		logger:    log.With().Str("component", "telegram").Logger(),
		chats:     make(map[int64]*chatState),
	}
}

// Run handles updates until the channel closes or ctx ends, then closes
// every session. Idle sessions are pruned along the way.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	defer b.closeAll()

	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := b.Prune(now, DefaultIdleTimeout); n > 0 {
				b.logger.Info().Int("closed", n).Msg("Pruned idle sessions")
			}
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate processes a single update
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

// Prune closes the sessions of chats idle for longer than maxIdle
func (b *Bot) Prune(now time.Time, maxIdle time.Duration) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	closed := 0
	for chatID, state := range b.chats {
		if now.Sub(state.lastActivity) > maxIdle {
			state.dash.Close()
			delete(b.chats, chatID)
			closed++
		}
	}
	return closed
}

func (b *Bot) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for chatID, state := range b.chats {
		state.dash.Close()
		delete(b.chats, chatID)
	}
}

// chat returns the chat's session, opening it when needed. fresh replaces an
// existing session.
func (b *Bot) chat(chatID int64, fresh bool) (*chatState, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, exists := b.chats[chatID]
	if exists && !fresh {
		state.lastActivity = time.Now()
		return state, false, nil
	}
	if exists {
		state.dash.Close()
		delete(b.chats, chatID)
	}

	dash, err := b.factory(session.Listener{
		OnToast: func(toast string) { b.reply(chatID, toast) },
	})
	if err != nil {
		return nil, false, err
	}
	dash.Start()
	state = &chatState{dash: dash, lastActivity: time.Now()}
	b.chats[chatID] = state
	return state, true, nil
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.Chat == nil {
		return
	}
	chatID := message.Chat.ID
	text := strings.TrimSpace(message.Text)
	command, arg := splitCommand(text)

	state, created, err := b.chat(chatID, command == "/start")
	if err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Error opening session")
		b.reply(chatID, "Sorry, there was an error. Please try again later.")
		return
	}
	if created {
		b.sendWelcome(chatID)
		if command == "/start" {
			return
		}
	}
	dash := state.dash

	switch command {
	case "/start":
		// handled above
	case "/symbol", "Select Symbol":
		if arg == "" {
			b.sendSymbolMenu(chatID)
			return
		}
		b.selectSymbol(chatID, dash, arg)
	case "/buy", "Buy":
		b.placeTrade(ctx, chatID, dash, models.SideBuy)
	case "/sell", "Sell":
		b.placeTrade(ctx, chatID, dash, models.SideSell)
	case "/auto", "Auto Trade":
		enabled, err := dash.ToggleAutoTrade()
		if err != nil {
			b.reply(chatID, "Sorry, there was an error. Please try again later.")
			return
		}
		if enabled {
			b.reply(chatID, "Auto-trade ON. The AI checks the market every few seconds.")
		} else {
			b.reply(chatID, "Auto-trade OFF.")
		}
	case "/analyze", "Analyze":
		b.reply(chatID, "Analyzing "+dash.Snapshot().Symbol+"...")
		payload, err := dash.RequestDeepAnalysis(ctx)
		if err != nil {
			b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Deep analysis failed")
			b.reply(chatID, "Analysis is unavailable right now. Please try again later.")
			return
		}
		b.reply(chatID, strings.Join(render.AnalysisLines(payload), "\n"))
	case "/execute", "Execute":
		b.execute(ctx, chatID, dash)
	case "/history", "History":
		b.reply(chatID, history(dash.Snapshot()))
	case "/price", "Price":
		b.reply(chatID, render.Header(dash.Snapshot()))
	default:
		if strings.HasPrefix(command, "/") {
			b.reply(chatID, "Unknown command. Use /symbol, /buy, /sell, /auto, /analyze, /execute, /history or /price.")
			return
		}
		b.ask(ctx, chatID, dash, text)
	}
}

func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		b.logger.Debug().Err(err).Msg("Error answering callback")
	}
	if callback.Message == nil || callback.Message.Chat == nil {
		return
	}
	chatID := callback.Message.Chat.ID

	state, _, err := b.chat(chatID, false)
	if err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Error opening session")
		return
	}

	if symbol, ok := strings.CutPrefix(callback.Data, symbolPrefix); ok {
		b.selectSymbol(chatID, state.dash, symbol)
	}
}

func (b *Bot) selectSymbol(chatID int64, dash Dashboard, symbol string) {
	if err := dash.SelectSymbol(symbol); err != nil {
		b.reply(chatID, "Please choose a valid symbol.")
		return
	}
	b.reply(chatID, fmt.Sprintf("Now watching %s.", dash.Snapshot().Symbol))
}

func (b *Bot) placeTrade(ctx context.Context, chatID int64, dash Dashboard, side models.Side) {
	// the session pushes the outcome as a toast
	if _, err := dash.PlaceManualTrade(ctx, side); err != nil {
		b.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("Manual trade failed")
	}
}

func (b *Bot) execute(ctx context.Context, chatID int64, dash Dashboard) {
	_, err := dash.ExecuteRecommendation(ctx)
	switch {
	case err == nil:
	case errors.Is(err, session.ErrNoAnalysis):
		b.reply(chatID, "Run /analyze first.")
	case errors.Is(err, session.ErrWaitRecommendation):
		b.reply(chatID, "The analysis recommends WAIT. No trade placed.")
	case errors.Is(err, models.ErrIncompletePlan):
		b.reply(chatID, "The analysis has no complete trade plan.")
	case errors.Is(err, session.ErrExecutionInProgress):
		b.reply(chatID, "A trade is already being executed.")
	default:
		b.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("Executing recommendation failed")
	}
}

func (b *Bot) ask(ctx context.Context, chatID int64, dash Dashboard, text string) {
	reply, ok := dash.Send(ctx, text)
	if !ok {
		if text != "" {
			b.reply(chatID, "Please wait for the previous answer.")
		}
		return
	}
	go func() {
		select {
		case msg, ok := <-reply:
			if ok {
				b.reply(chatID, messageText(msg))
			}
		case <-ctx.Done():
		}
	}()
}

// messageText drops the role prefix MessageLine adds for the terminal
func messageText(msg conversation.Message) string {
	switch m := msg.(type) {
	case conversation.TextMessage:
		return m.Text
	case conversation.AnalysisMessage:
		return strings.TrimSpace(strings.Join(append([]string{m.Text}, render.AnalysisLines(m.Analysis)...), "\n"))
	default:
		return msg.Content()
	}
}

func history(snap session.Snapshot) string {
	if len(snap.Executions) == 0 {
		return "No executions yet."
	}
	entries := snap.Executions
	if len(entries) > historyLimit {
		entries = entries[:historyLimit]
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, render.ExecutionLine(e))
	}
	return strings.Join(lines, "\n")
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Error sending message")
	}
}

func (b *Bot) sendWelcome(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, welcomeText)
	msg.ReplyMarkup = mainMenuKeyboard()
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Error sending welcome")
	}
}

func (b *Bot) sendSymbolMenu(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, "Select a symbol:")
	msg.ReplyMarkup = symbolKeyboard(b.watchlist)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Error sending symbol menu")
	}
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("Buy"),
			tgbotapi.NewKeyboardButton("Sell"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("Select Symbol"),
			tgbotapi.NewKeyboardButton("Auto Trade"),
			tgbotapi.NewKeyboardButton("Price"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("Analyze"),
			tgbotapi.NewKeyboardButton("Execute"),
			tgbotapi.NewKeyboardButton("History"),
		),
	)
}

// symbolKeyboard lays the watchlist out three per row
func symbolKeyboard(symbols []string) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for i, symbol := range symbols {
		if i > 0 && i%3 == 0 {
			keyboard = append(keyboard, row)
			row = []tgbotapi.InlineKeyboardButton{}
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(symbol, symbolPrefix+symbol))
	}
	if len(row) > 0 {
		keyboard = append(keyboard, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// splitCommand separates "/symbol@bot GOLD" into "/symbol" and "GOLD". Plain
// text is returned whole as the command so keyboard buttons match.
func splitCommand(text string) (string, string) {
	if !strings.HasPrefix(text, "/") {
		return text, ""
	}
	command, arg, _ := strings.Cut(text, " ")
	command, _, _ = strings.Cut(command, "@")
	return strings.ToLower(command), strings.TrimSpace(arg)
}
