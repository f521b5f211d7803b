package voicetrader

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices serialize as plain JSON numbers, matching the shape the model
	// sees in the system instruction and the dashboard API emits.
	decimal.MarshalJSONWithoutQuotes = true
}

func dec(value float64) decimal.Decimal {
	return decimal.NewFromFloat(value)
}

// MockStocks is the static NSE instrument list the assistant trades against.
var MockStocks = []Instrument{
	{Symbol: "RELIANCE", Name: "Reliance Industries Ltd", Price: dec(2855.50), Change: dec(30.15), ChangePercent: 1.06},
	{Symbol: "TCS", Name: "Tata Consultancy Services", Price: dec(3840.10), Change: dec(-25.55), ChangePercent: -0.66},
	{Symbol: "HDFCBANK", Name: "HDFC Bank Ltd", Price: dec(1670.80), Change: dec(12.20), ChangePercent: 0.73},
	{Symbol: "INFY", Name: "Infosys Ltd", Price: dec(1530.45), Change: dec(5.90), ChangePercent: 0.39},
}

// MockPortfolio is the static demo portfolio.
var MockPortfolio = []Holding{
	{Symbol: "RELIANCE", Name: "Reliance Industries Ltd", Shares: 50, AvgCost: dec(2450.00), CurrentPrice: dec(2855.50)},
	{Symbol: "HDFCBANK", Name: "HDFC Bank Ltd", Shares: 100, AvgCost: dec(1550.25), CurrentPrice: dec(1670.80)},
	{Symbol: "TATAMOTORS", Name: "Tata Motors Ltd", Shares: 200, AvgCost: dec(975.60), CurrentPrice: dec(955.20)},
	{Symbol: "WIPRO", Name: "Wipro Ltd", Shares: 300, AvgCost: dec(450.10), CurrentPrice: dec(488.75)},
}

// Mock price series for the dashboard chart ranges.
var (
	ChartIntraday = []ChartPoint{
		{Label: "9:30", Price: dec(2845.10)}, {Label: "10:00", Price: dec(2850.90)},
		{Label: "10:30", Price: dec(2858.50)}, {Label: "11:00", Price: dec(2852.20)},
		{Label: "11:30", Price: dec(2860.30)}, {Label: "12:00", Price: dec(2865.10)},
		{Label: "12:30", Price: dec(2859.80)}, {Label: "1:00", Price: dec(2862.50)},
		{Label: "1:30", Price: dec(2868.80)}, {Label: "2:00", Price: dec(2864.30)},
		{Label: "2:30", Price: dec(2861.50)}, {Label: "3:00", Price: dec(2858.90)},
		{Label: "3:30", Price: dec(2856.90)}, {Label: "4:00", Price: dec(2855.50)},
	}

	Chart5Day = []ChartPoint{
		{Label: "5 days ago", Price: dec(2820.75)}, {Label: "4 days ago", Price: dec(2835.10)},
		{Label: "3 days ago", Price: dec(2815.90)}, {Label: "2 days ago", Price: dec(2850.30)},
		{Label: "Yesterday", Price: dec(2848.00)}, {Label: "Today", Price: dec(2855.50)},
	}

	Chart1Month = []ChartPoint{
		{Label: "Week 1", Price: dec(2750.45)}, {Label: "Week 2", Price: dec(2790.80)},
		{Label: "Week 3", Price: dec(2810.25)}, {Label: "Week 4", Price: dec(2855.50)},
	}

	Chart6Month = []ChartPoint{
		{Label: "6M ago", Price: dec(2500.00)}, {Label: "5M ago", Price: dec(2650.50)},
		{Label: "4M ago", Price: dec(2600.75)}, {Label: "3M ago", Price: dec(2750.10)},
		{Label: "2M ago", Price: dec(2800.90)}, {Label: "Last month", Price: dec(2855.50)},
	}
)

// ChartRange returns the mock series for a named range, defaulting to intraday.
func ChartRange(name string) []ChartPoint {
	switch strings.ToUpper(name) {
	case "5D":
		return Chart5Day
	case "1M":
		return Chart1Month
	case "6M":
		return Chart6Month
	default:
		return ChartIntraday
	}
}

// FindInstrument looks up a symbol case-insensitively in the mock list.
func FindInstrument(symbol string) (Instrument, bool) {
	for _, stock := range MockStocks {
		if strings.EqualFold(stock.Symbol, symbol) {
			return stock, true
		}
	}
	return Instrument{}, false
}

// InstrumentListJSON serializes the instrument list for the system instruction.
func InstrumentListJSON() string {
	data, err := json.Marshal(MockStocks)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// TradeLog is the UI-visible, insertion-ordered record of simulated trades.
// Single writer (the tool executor); readers get copies.
type TradeLog struct {
	mu     sync.Mutex
	orders []TradeOrder
}

func NewTradeLog() *TradeLog {
	return &TradeLog{orders: make([]TradeOrder, 0)}
}

func (tl *TradeLog) Append(order TradeOrder) {
	tl.mu.Lock()
	tl.orders = append(tl.orders, order)
	tl.mu.Unlock()
}

// Orders returns a copy in insertion order.
func (tl *TradeLog) Orders() []TradeOrder {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	orders := make([]TradeOrder, len(tl.orders))
	copy(orders, tl.orders)
	return orders
}

func (tl *TradeLog) Len() int {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return len(tl.orders)
}

// SimulateTrade prices an order against the mock list and records it.
// Unknown symbols trade at zero price; that is a deliberate simplification,
// not an error.
func (tl *TradeLog) SimulateTrade(action TradeAction, symbol string, quantity int) TradeOrder {
	price := decimal.Zero
	if stock, ok := FindInstrument(symbol); ok {
		price = stock.Price
	}
	order := TradeOrder{
		Action:   action,
		Symbol:   strings.ToUpper(symbol),
		Quantity: quantity,
		Price:    price,
		PlacedAt: time.Now(),
	}
	tl.Append(order)
	return order
}
