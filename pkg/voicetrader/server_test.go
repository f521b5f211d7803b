package voicetrader

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDashboard(t *testing.T, controller *SessionController) http.Handler {
	t.Helper()
	cfg := NewConfig()
	return NewDashboardServer(cfg, nil, controller).Router()
}

func doLogin(t *testing.T, handler http.Handler, username string) string {
	t.Helper()

	body, _ := json.Marshal(loginRequest{Username: username, Password: "ignored"})
	req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	token, ok := data["token"].(string)
	require.True(t, ok)
	require.NotEmpty(t, token)
	return token
}

func authedGet(handler http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestLoginAcceptsAnyNonEmptyUsername(t *testing.T) {
	handler := newTestDashboard(t, nil)
	token := doLogin(t, handler, "demo")
	assert.NotEmpty(t, token)
}

func TestLoginRejectsEmptyUsername(t *testing.T) {
	handler := newTestDashboard(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader([]byte(`{"username":"  "}`)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	handler := newTestDashboard(t, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stocks", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = authedGet(handler, "/api/stocks", "not-a-real-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStocksEndpoint(t *testing.T) {
	handler := newTestDashboard(t, nil)
	token := doLogin(t, handler, "demo")

	rec := authedGet(handler, "/api/stocks", token)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool         `json:"success"`
		Data    []Instrument `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Data, 4)
	assert.Equal(t, "RELIANCE", resp.Data[0].Symbol)
}

func TestPortfolioEndpoint(t *testing.T) {
	handler := newTestDashboard(t, nil)
	token := doLogin(t, handler, "demo")

	rec := authedGet(handler, "/api/portfolio", token)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []Holding `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 4)
}

func TestChartEndpointSelectsRange(t *testing.T) {
	handler := newTestDashboard(t, nil)
	token := doLogin(t, handler, "demo")

	rec := authedGet(handler, "/api/chart/5D", token)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []ChartPoint `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, len(Chart5Day))
}

func TestTradesEndpointReflectsSimulatedTrades(t *testing.T) {
	cfg := NewConfig()
	cfg.APIKey = "test-key"
	controller := NewSessionController(cfg, nil, nil)
	controller.Trades().SimulateTrade(TradeBuy, "TCS", 2)

	handler := newTestDashboard(t, controller)
	token := doLogin(t, handler, "demo")

	rec := authedGet(handler, "/api/trades", token)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []TradeOrder `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "TCS", resp.Data[0].Symbol)
}

func TestVoiceStatusEndpoint(t *testing.T) {
	cfg := NewConfig()
	cfg.APIKey = "test-key"
	controller := NewSessionController(cfg, nil, nil)

	handler := newTestDashboard(t, controller)
	token := doLogin(t, handler, "demo")

	rec := authedGet(handler, "/api/voice/status", token)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(SessionClosed), resp.Data["state"])
}

func TestAIEndpointsUnavailableWithoutClient(t *testing.T) {
	handler := newTestDashboard(t, nil)
	token := doLogin(t, handler, "demo")

	req := httptest.NewRequest(http.MethodPost, "/api/analysis", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestInsightEndpointValidatesQuery(t *testing.T) {
	cfg := NewConfig()
	cfg.APIKey = "test-key"
	server := NewDashboardServer(cfg, NewInsightClient(cfg), nil)
	handler := server.Router()
	token := doLogin(t, handler, "demo")

	req := httptest.NewRequest(http.MethodPost, "/api/insight", bytes.NewReader([]byte(`{"query":""}`)))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
