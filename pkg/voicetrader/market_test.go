package voicetrader

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindInstrumentCaseInsensitive(t *testing.T) {
	stock, ok := FindInstrument("reliance")
	require.True(t, ok)
	assert.Equal(t, "RELIANCE", stock.Symbol)
	assert.True(t, stock.Price.Equal(decimal.NewFromFloat(2855.50)))

	_, ok = FindInstrument("UNKNOWN")
	assert.False(t, ok)
}

func TestSimulateTradePricesKnownSymbol(t *testing.T) {
	log := NewTradeLog()

	order := log.SimulateTrade(TradeBuy, "tcs", 5)
	assert.Equal(t, TradeBuy, order.Action)
	assert.Equal(t, "TCS", order.Symbol)
	assert.Equal(t, 5, order.Quantity)
	assert.True(t, order.Price.Equal(decimal.NewFromFloat(3840.10)))
	assert.False(t, order.PlacedAt.IsZero())

	require.Equal(t, 1, log.Len())
}

func TestSimulateTradeUnknownSymbolTradesAtZero(t *testing.T) {
	log := NewTradeLog()

	order := log.SimulateTrade(TradeSell, "NOSUCH", 1)
	assert.True(t, order.Price.IsZero())
	assert.Equal(t, "NOSUCH", order.Symbol)
}

func TestTradeLogOrdersReturnsCopy(t *testing.T) {
	log := NewTradeLog()
	log.SimulateTrade(TradeBuy, "INFY", 10)

	orders := log.Orders()
	require.Len(t, orders, 1)
	orders[0].Symbol = "MUTATED"

	assert.Equal(t, "INFY", log.Orders()[0].Symbol)
}

func TestChartRange(t *testing.T) {
	assert.Equal(t, Chart5Day, ChartRange("5d"))
	assert.Equal(t, Chart1Month, ChartRange("1M"))
	assert.Equal(t, Chart6Month, ChartRange("6m"))
	assert.Equal(t, ChartIntraday, ChartRange("1D"))
	assert.Equal(t, ChartIntraday, ChartRange("whatever"))
}

func TestInstrumentListJSON(t *testing.T) {
	out := InstrumentListJSON()
	assert.Contains(t, out, `"symbol":"RELIANCE"`)
	// Prices serialize as bare numbers, not strings.
	assert.Contains(t, out, `"price":2855.5`)
}
