package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Session holds the tunables of a live dashboard session
type Session struct {
	DefaultSymbol      string        `yaml:"default_symbol"`
	Watchlist          []string      `yaml:"watchlist"`
	PricePollInterval  time.Duration `yaml:"price_poll_interval"`
	AutoTradeInterval  time.Duration `yaml:"auto_trade_interval"`
	AutoTradeThreshold float64       `yaml:"auto_trade_threshold"`
	BuyThreshold       float64       `yaml:"auto_trade_buy_threshold"`
	ToastCapacity      int           `yaml:"toast_capacity"`
	ExecutionCapacity  int           `yaml:"execution_capacity"`
	NewsFallbackLimit  int           `yaml:"news_fallback_limit"`
	TradeVolume        float64       `yaml:"trade_volume"`
	ChallengeID        int           `yaml:"challenge_id"`
	AnalysisTimeframe  string        `yaml:"analysis_timeframe"`
	ChatGreeting       string        `yaml:"chat_greeting"`
}

// Config holds all application configuration
type Config struct {
	APIBaseURL       string        `yaml:"api_base_url"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	RequestsPerSec   int           `yaml:"requests_per_sec"`
	MaxRetries       int           `yaml:"max_retries"`
	LogLevel         string        `yaml:"log_level"`
	TelegramBotToken string        `yaml:"-"`
	Session          Session       `yaml:"session"`
}

// Default returns the configuration the dashboard ships with
func Default() Config {
	return Config{
		APIBaseURL:     "http://localhost:5000/api/v1/tradesense",
		RequestTimeout: 10 * time.Second,
		RequestsPerSec: 10,
		MaxRetries:     2,
		LogLevel:       "info",
		Session: Session{
			DefaultSymbol:      "EURUSD",
			Watchlist:          []string{"EURUSD", "GBPUSD", "GOLD", "TSLA", "AAPL", "BTCUSD"},
			PricePollInterval:  5 * time.Second,
			AutoTradeInterval:  3 * time.Second,
			AutoTradeThreshold: 0.7,
			BuyThreshold:       0.5,
			ToastCapacity:      5,
			ExecutionCapacity:  20,
			NewsFallbackLimit:  8,
			TradeVolume:        1.0,
			ChallengeID:        1,
			AnalysisTimeframe:  "1D",
			ChatGreeting:       "Hello! I am Finance with AI. Ask me about **price**, **trend**, or for a **technical analysis**!",
		},
	}
}

// Load initializes configuration: defaults, then the optional YAML file named
// by TRADESENSE_CONFIG, then environment variables (.env included).
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, relying on actual environment variables")
	}

	cfg := Default()

	if path := os.Getenv("TRADESENSE_CONFIG"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) mergeFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.APIBaseURL = getEnvWithDefault("TRADESENSE_API_URL", c.APIBaseURL)
	c.RequestTimeout = getEnvDurationWithDefault("REQUEST_TIMEOUT", c.RequestTimeout)
	c.RequestsPerSec = getEnvIntWithDefault("REQUESTS_PER_SEC", c.RequestsPerSec)
	c.MaxRetries = getEnvIntWithDefault("MAX_RETRIES", c.MaxRetries)
	c.LogLevel = getEnvWithDefault("LOG_LEVEL", c.LogLevel)
	c.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")

	s := &c.Session
	s.DefaultSymbol = strings.ToUpper(getEnvWithDefault("DEFAULT_SYMBOL", s.DefaultSymbol))
	if value := os.Getenv("WATCHLIST"); value != "" {
		s.Watchlist = splitList(value)
	}
	s.PricePollInterval = getEnvDurationWithDefault("PRICE_POLL_INTERVAL", s.PricePollInterval)
	s.AutoTradeInterval = getEnvDurationWithDefault("AUTO_TRADE_INTERVAL", s.AutoTradeInterval)
	s.AutoTradeThreshold = getEnvFloatWithDefault("AUTO_TRADE_THRESHOLD", s.AutoTradeThreshold)
	s.BuyThreshold = getEnvFloatWithDefault("AUTO_TRADE_BUY_THRESHOLD", s.BuyThreshold)
	s.ToastCapacity = getEnvIntWithDefault("TOAST_CAPACITY", s.ToastCapacity)
	s.ExecutionCapacity = getEnvIntWithDefault("EXECUTION_CAPACITY", s.ExecutionCapacity)
	s.NewsFallbackLimit = getEnvIntWithDefault("NEWS_FALLBACK_LIMIT", s.NewsFallbackLimit)
	s.TradeVolume = getEnvFloatWithDefault("TRADE_VOLUME", s.TradeVolume)
	s.ChallengeID = getEnvIntWithDefault("CHALLENGE_ID", s.ChallengeID)
	s.AnalysisTimeframe = getEnvWithDefault("ANALYSIS_TIMEFRAME", s.AnalysisTimeframe)
	s.ChatGreeting = getEnvWithDefault("CHAT_GREETING", s.ChatGreeting)
}

// Validate rejects configurations the session cannot run with
func (c *Config) Validate() error {
	var errs []error
	if c.APIBaseURL == "" {
		errs = append(errs, errors.New("api base url is empty"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if c.RequestsPerSec <= 0 {
		errs = append(errs, errors.New("requests per second must be positive"))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, errors.New("max retries must not be negative"))
	}

	s := c.Session
	if s.DefaultSymbol == "" {
		errs = append(errs, errors.New("default symbol is empty"))
	}
	if s.PricePollInterval <= 0 || s.AutoTradeInterval <= 0 {
		errs = append(errs, errors.New("poll intervals must be positive"))
	}
	if s.AutoTradeThreshold < 0 || s.AutoTradeThreshold > 1 {
		errs = append(errs, fmt.Errorf("auto trade threshold %.2f outside [0,1]", s.AutoTradeThreshold))
	}
	if s.BuyThreshold < 0 || s.BuyThreshold > 1 {
		errs = append(errs, fmt.Errorf("buy threshold %.2f outside [0,1]", s.BuyThreshold))
	}
	if s.ToastCapacity <= 0 || s.ExecutionCapacity <= 0 {
		errs = append(errs, errors.New("log capacities must be positive"))
	}
	if s.NewsFallbackLimit < 0 {
		errs = append(errs, errors.New("news fallback limit must not be negative"))
	}
	if s.TradeVolume <= 0 {
		errs = append(errs, errors.New("trade volume must be positive"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		log.Warn().Str("key", key).Str("value", value).Msg("ignoring non-integer env value")
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
		log.Warn().Str("key", key).Str("value", value).Msg("ignoring non-numeric env value")
	}
	return defaultValue
}

// getEnvDurationWithDefault accepts "5s" style durations or plain seconds
func getEnvDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Warn().Str("key", key).Str("value", value).Msg("ignoring invalid duration env value")
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.ToUpper(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}
