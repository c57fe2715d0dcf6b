package tradesense

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpClient "github.com/RedaDC/Trade-SENS-AI/internal/platform/http"
	"github.com/RedaDC/Trade-SENS-AI/models"
)

// Client is the TradeSense backend client
type Client struct {
	http   *httpClient.Client
	logger zerolog.Logger
}

// ClientOptions holds options for creating a new TradeSense client
type ClientOptions struct {
	BaseURL         string
	RequestTimeout  time.Duration
	RequestsPerSec  int
	MaxRetries      int
	MaxRetryTimeout time.Duration
	InitialBackoff  time.Duration
}

var _ models.Gateway = (*Client)(nil)
var _ models.LoginClient = (*Client)(nil)

// NewClient creates a new TradeSense API client
func NewClient(options ClientOptions) *Client {
	return &Client{
		http: httpClient.NewClient(httpClient.ClientOptions{
			BaseURL:         options.BaseURL,
			Timeout:         options.RequestTimeout,
			RequestsPerSec:  options.RequestsPerSec,
			MaxRetries:      options.MaxRetries,
			MaxRetryTimeout: options.MaxRetryTimeout,
			InitialBackoff:  options.InitialBackoff,
		}),
		logger: log.With().Str("component", "tradesense_client").Logger(),
	}
}

// GetQuote fetches the last price for symbol
func (c *Client) GetQuote(ctx context.Context, symbol string) (models.Quote, error) {
	var quote models.Quote
	if err := c.getJSON(ctx, "/market-data/last", map[string]string{"symbol": symbol}, &quote); err != nil {
		return models.Quote{}, fmt.Errorf("fetching quote for %s: %w", symbol, err)
	}
	if quote.Symbol == "" {
		quote.Symbol = symbol
	}
	return quote, nil
}

// GetCalendar fetches economic calendar events relevant to symbol
func (c *Client) GetCalendar(ctx context.Context, symbol string) ([]models.CalendarItem, error) {
	var items []models.CalendarItem
	if err := c.getJSON(ctx, "/news/calendar", map[string]string{"symbol": symbol}, &items); err != nil {
		return nil, fmt.Errorf("fetching calendar for %s: %w", symbol, err)
	}
	return items, nil
}

// GetNews fetches the general news feed
func (c *Client) GetNews(ctx context.Context) ([]models.CalendarItem, error) {
	var items []models.CalendarItem
	if err := c.getJSON(ctx, "/news/", nil, &items); err != nil {
		return nil, fmt.Errorf("fetching news: %w", err)
	}
	return items, nil
}

// GetAnalysis fetches the latest analysis report for symbol
func (c *Client) GetAnalysis(ctx context.Context, symbol string) (models.AnalysisPayload, error) {
	var payload models.AnalysisPayload
	if err := c.getJSON(ctx, "/analysis/latest", map[string]string{"symbol": symbol}, &payload); err != nil {
		return models.AnalysisPayload{}, fmt.Errorf("fetching analysis for %s: %w", symbol, err)
	}
	if payload.Empty() {
		return models.AnalysisPayload{}, fmt.Errorf("empty analysis returned for %s", symbol)
	}
	return payload, nil
}

// AnalyzeSymbol runs an on-demand deep analysis
func (c *Client) AnalyzeSymbol(ctx context.Context, symbol, timeframe string) (models.AnalysisPayload, error) {
	body := map[string]string{"symbol": symbol, "timeframe": timeframe}
	var payload models.AnalysisPayload
	if err := c.postJSON(ctx, "/ai-analysis/analyze", body, &payload); err != nil {
		return models.AnalysisPayload{}, fmt.Errorf("analyzing %s: %w", symbol, err)
	}
	if payload.Empty() {
		return models.AnalysisPayload{}, fmt.Errorf("empty analysis returned for %s", symbol)
	}
	return payload, nil
}

// Chat sends one message to the AI assistant
func (c *Client) Chat(ctx context.Context, message string, chatCtx models.ChatContext) (models.ChatReply, error) {
	body := struct {
		Message string             `json:"message"`
		Context models.ChatContext `json:"context"`
	}{Message: message, Context: chatCtx}

	var reply models.ChatReply
	if err := c.postJSON(ctx, "/ai/chat", body, &reply); err != nil {
		return models.ChatReply{}, fmt.Errorf("chat: %w", err)
	}
	return reply, nil
}

// PlaceTrade submits a trade
func (c *Client) PlaceTrade(ctx context.Context, req models.TradeRequest) (models.TradeConfirmation, error) {
	var confirmation models.TradeConfirmation
	if err := c.postJSON(ctx, "/trades/", req, &confirmation); err != nil {
		return models.TradeConfirmation{}, fmt.Errorf("placing %s %s: %w", req.Side, req.Symbol, err)
	}
	c.logger.Info().
		Str("symbol", req.Symbol).
		Str("side", string(req.Side)).
		Int64("trade_id", confirmation.TradeID).
		Msg("Trade placed")
	return confirmation, nil
}

// Login forwards credentials to the auth endpoint
func (c *Client) Login(ctx context.Context, email, password string) (models.LoginResponse, error) {
	body := map[string]string{"email": email, "password": password}
	var resp models.LoginResponse
	if err := c.postJSON(ctx, "/auth/login", body, &resp); err != nil {
		return models.LoginResponse{}, fmt.Errorf("login: %w", err)
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query map[string]string, out any) error {
	c.logger.Debug().Str("path", path).Interface("query", query).Msg("GET")

	body, err := c.http.Get(ctx, path, query)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	return c.decode(path, body, out)
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	c.logger.Debug().Str("path", path).Msg("POST")

	body, err := c.http.Post(ctx, path, in)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	return c.decode(path, body, out)
}

func (c *Client) decode(path string, body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		c.logger.Error().Err(err).Str("path", path).Str("response", string(body)).Msg("Error parsing JSON")
		return fmt.Errorf("parsing JSON: %w", err)
	}
	return nil
}
