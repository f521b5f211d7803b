package voicetrader

import (
	"context"
	"fmt"
	"strings"
)

// Tool names the assistant may invoke mid-conversation.
const (
	ToolExecuteStockTrade = "execute_stock_trade"
	ToolGetStockPrice     = "get_stock_price"
	ToolGetMarketInsights = "get_market_insights"
)

const tradeSuccessResult = "OK, trade simulated successfully."

// InsightProvider is the text-generation collaborator used by
// get_market_insights.
type InsightProvider interface {
	MarketInsight(ctx context.Context, query string) (string, error)
}

// agentFunctionDeclarations is the declared tool set sent in session setup.
func agentFunctionDeclarations() []functionDeclaration {
	return []functionDeclaration{
		{
			Name:        ToolExecuteStockTrade,
			Description: "Execute a stock trade (buy or sell) on the Indian stock market.",
			Parameters: &schema{
				Type: "OBJECT",
				Properties: map[string]*schema{
					"action": {
						Type:        "STRING",
						Description: `The type of trade, either "BUY" or "SELL".`,
						Enum:        []string{"BUY", "SELL"},
					},
					"symbol": {
						Type:        "STRING",
						Description: `The stock ticker symbol for NSE, e.g., "RELIANCE" or "TCS".`,
					},
					"quantity": {
						Type:        "INTEGER",
						Description: "The number of shares to trade.",
					},
				},
				Required: []string{"action", "symbol", "quantity"},
			},
		},
		{
			Name:        ToolGetStockPrice,
			Description: "Get the latest stock price for a given ticker symbol from the Indian stock market.",
			Parameters: &schema{
				Type: "OBJECT",
				Properties: map[string]*schema{
					"symbol": {
						Type:        "STRING",
						Description: `The stock ticker symbol for NSE, e.g., "RELIANCE" or "HDFCBANK".`,
					},
				},
				Required: []string{"symbol"},
			},
		},
		{
			Name:        ToolGetMarketInsights,
			Description: "Answer general questions about market trends, economic indicators, and investment strategies.",
			Parameters: &schema{
				Type: "OBJECT",
				Properties: map[string]*schema{
					"query": {
						Type:        "STRING",
						Description: "The financial question to answer.",
					},
				},
				Required: []string{"query"},
			},
		},
	}
}

// systemInstruction describes the assistant's role and embeds the serialized
// instrument list so price questions resolve against the mock data.
func systemInstruction() string {
	return "You are a helpful stock trading assistant for the Indian stock market (NSE). " +
		"You can execute trades, get stock prices, and answer questions about market trends, " +
		"economic indicators, and investment strategies. When executing a trade, always confirm " +
		"the action. When asked for a price, find it in the provided list: " + InstrumentListJSON() +
		". All prices are in Indian Rupees (INR). For general financial questions, use the " +
		ToolGetMarketInsights + " tool. Respond concisely."
}

// ToolExecutor interprets structured tool invocations against the mock data
// and the insight collaborator. Every request produces exactly one result;
// from the agent's perspective a tool call never fails, so a stalled
// conversation waiting on an error cannot happen.
type ToolExecutor struct {
	trades  *TradeLog
	insight InsightProvider
	onTrade TradeHandler
	logger  *Logger
}

func NewToolExecutor(trades *TradeLog, insight InsightProvider) *ToolExecutor {
	if trades == nil {
		trades = NewTradeLog()
	}
	return &ToolExecutor{
		trades:  trades,
		insight: insight,
		logger:  GetGlobalLogger().WithComponent("tool-executor"),
	}
}

// SetTradeHandler registers a callback for each simulated execution.
func (te *ToolExecutor) SetTradeHandler(handler TradeHandler) {
	te.onTrade = handler
}

// Execute dispatches one request by name and returns its correlated result.
func (te *ToolExecutor) Execute(ctx context.Context, req ToolCallRequest) ToolCallResult {
	result := ToolCallResult{ID: req.ID, Name: req.Name}

	switch req.Name {
	case ToolExecuteStockTrade:
		result.Result = te.executeTrade(req.Args)
	case ToolGetStockPrice:
		result.Result = te.lookupPrice(req.Args)
	case ToolGetMarketInsights:
		result.Result = te.marketInsight(ctx, req.Args)
	default:
		te.logger.Warnf("Unknown tool requested: %s", req.Name)
		result.Result = fmt.Sprintf("Unknown tool: %s.", req.Name)
	}

	return result
}

func (te *ToolExecutor) executeTrade(args map[string]any) string {
	action := TradeAction(strings.ToUpper(argString(args, "action")))
	symbol := argString(args, "symbol")
	quantity := argInt(args, "quantity")

	if action != TradeBuy && action != TradeSell {
		return "I can only BUY or SELL. Please repeat the trade with one of those actions."
	}
	if symbol == "" || quantity <= 0 {
		return "I need a stock symbol and a positive quantity to place a trade."
	}

	order := te.trades.SimulateTrade(action, symbol, quantity)
	te.logger.Infof("Simulated %s %d %s @ %s", order.Action, order.Quantity, order.Symbol, order.Price)

	if te.onTrade != nil {
		te.onTrade(order)
	}

	return tradeSuccessResult
}

func (te *ToolExecutor) lookupPrice(args map[string]any) string {
	symbol := strings.ToUpper(argString(args, "symbol"))
	if stock, ok := FindInstrument(symbol); ok {
		return fmt.Sprintf("The current price of %s is ₹%s.", symbol, stock.Price.StringFixed(2))
	}
	return fmt.Sprintf("Sorry, I could not find the price for %s.", symbol)
}

func (te *ToolExecutor) marketInsight(ctx context.Context, args map[string]any) string {
	query := argString(args, "query")
	if te.insight == nil {
		return "Market insights are not available right now."
	}
	insight, err := te.insight.MarketInsight(ctx, query)
	if err != nil {
		te.logger.WithError(err).Warn("Market insight call failed")
		return "Sorry, I could not fetch market insights at this time. Please try again later."
	}
	return insight
}

// Helper functions for type assertions on wire arguments.
func argString(args map[string]any, key string) string {
	if val, ok := args[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

func argInt(args map[string]any, key string) int {
	if val, ok := args[key]; ok {
		switch num := val.(type) {
		case float64:
			return int(num)
		case int:
			return num
		}
	}
	return 0
}
