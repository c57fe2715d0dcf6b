package models

import "context"

// QuoteClient fetches last prices
type QuoteClient interface {
	GetQuote(ctx context.Context, symbol string) (Quote, error)
}

// NewsClient fetches the economic calendar and the general news feed
type NewsClient interface {
	GetCalendar(ctx context.Context, symbol string) ([]CalendarItem, error)
	GetNews(ctx context.Context) ([]CalendarItem, error)
}

// AnalysisClient fetches AI analyses
type AnalysisClient interface {
	GetAnalysis(ctx context.Context, symbol string) (AnalysisPayload, error)
	AnalyzeSymbol(ctx context.Context, symbol, timeframe string) (AnalysisPayload, error)
}

// ChatClient talks to the AI chat endpoint
type ChatClient interface {
	Chat(ctx context.Context, message string, chatCtx ChatContext) (ChatReply, error)
}

// TradeClient places trades
type TradeClient interface {
	PlaceTrade(ctx context.Context, req TradeRequest) (TradeConfirmation, error)
}

// LoginClient forwards credentials
type LoginClient interface {
	Login(ctx context.Context, email, password string) (LoginResponse, error)
}

// Gateway is everything a live session needs from the backend
type Gateway interface {
	QuoteClient
	NewsClient
	AnalysisClient
	ChatClient
	TradeClient
}
