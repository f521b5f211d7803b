package voicetrader

import (
	"time"

	"github.com/shopspring/decimal"
)

// SessionState enum
type SessionState string

const (
	SessionClosed  SessionState = "closed"
	SessionOpening SessionState = "opening"
	SessionOpen    SessionState = "open"
)

// TradeAction enum
type TradeAction string

const (
	TradeBuy  TradeAction = "BUY"
	TradeSell TradeAction = "SELL"
)

// Instrument is one entry in the static mock NSE instrument list.
type Instrument struct {
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent float64         `json:"changePercent"`
}

// Holding is a mock portfolio position.
type Holding struct {
	Symbol       string          `json:"symbol"`
	Name         string          `json:"name"`
	Shares       int             `json:"shares"`
	AvgCost      decimal.Decimal `json:"avgCost"`
	CurrentPrice decimal.Decimal `json:"currentPrice"`
}

// ChartPoint is one sample of a mock price series.
type ChartPoint struct {
	Label string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// TradeOrder is a simulated execution derived from a successful
// execute_stock_trade tool call. Never mutated after creation.
type TradeOrder struct {
	Action   TradeAction     `json:"action"`
	Symbol   string          `json:"symbol"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	PlacedAt time.Time       `json:"placedAt"`
}

// ToolCallRequest is a structured function invocation emitted by the model
// mid-conversation. Consumed exactly once by the ToolExecutor.
type ToolCallRequest struct {
	ID   string
	Name string
	Args map[string]any
}

// ToolCallResult is the correlated answer for one ToolCallRequest.
type ToolCallResult struct {
	ID     string
	Name   string
	Result string
}

// GroundingSource is a citation returned alongside search-grounded text.
type GroundingSource struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// NewsSummary is a search-grounded news digest for one ticker.
type NewsSummary struct {
	Summary string            `json:"summary"`
	Sources []GroundingSource `json:"sources"`
}

// StockPrediction is one structured price target from the prediction prompt.
type StockPrediction struct {
	Symbol      string  `json:"symbol"`
	TargetPrice float64 `json:"targetPrice"`
	Rationale   string  `json:"rationale"`
}

// Handler types
type StateHandler func(SessionState)
type TradeHandler func(TradeOrder)
type TranscriptHandler func(user, agent string)
type ErrorHandler func(*AgentError)
