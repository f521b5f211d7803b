package voicetrader

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

const tokenTTL = 12 * time.Hour

// apiResponse is the uniform envelope for every dashboard endpoint.
type apiResponse struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Message   string `json:"message,omitempty"`
	Code      string `json:"code,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// DashboardServer serves the REST API the trading dashboard consumes: mock
// market data, the simulated trade log, voice session status and the
// AI-backed analysis endpoints. Authentication is a mock login that accepts
// any non-empty username and issues a short-lived HS256 token.
type DashboardServer struct {
	cfg        *Config
	insight    *InsightClient
	controller *SessionController
	logger     *Logger
	jwtSecret  []byte
	httpServer *http.Server
}

// NewDashboardServer wires the API against the given controller (may be nil
// for a data-only deployment) and insight client.
func NewDashboardServer(cfg *Config, insight *InsightClient, controller *SessionController) *DashboardServer {
	if cfg == nil {
		cfg = NewConfig()
	}
	return &DashboardServer{
		cfg:        cfg,
		insight:    insight,
		controller: controller,
		logger:     GetGlobalLogger().WithComponent("dashboard-server"),
		jwtSecret:  loadJWTSecret(),
	}
}

// loadJWTSecret reads the signing secret from the environment, falling back
// to a random per-process secret. The fallback invalidates tokens across
// restarts, which is acceptable for a mock login.
func loadJWTSecret() []byte {
	if secret := os.Getenv("VOICETRADER_JWT_SECRET"); secret != "" {
		return []byte(secret)
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return []byte("voicetrader-dev-secret")
	}
	return []byte(hex.EncodeToString(buf))
}

// Router assembles the full route table. Exported so tests can drive it
// through httptest without binding a port.
func (ds *DashboardServer) Router() http.Handler {
	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/login", ds.handleLogin).Methods(http.MethodPost)

	authed := api.NewRoute().Subrouter()
	authed.Use(ds.authMiddleware)
	authed.HandleFunc("/stocks", ds.handleStocks).Methods(http.MethodGet)
	authed.HandleFunc("/portfolio", ds.handlePortfolio).Methods(http.MethodGet)
	authed.HandleFunc("/chart/{range}", ds.handleChart).Methods(http.MethodGet)
	authed.HandleFunc("/trades", ds.handleTrades).Methods(http.MethodGet)
	authed.HandleFunc("/voice/status", ds.handleVoiceStatus).Methods(http.MethodGet)
	authed.HandleFunc("/analysis", ds.handleAnalysis).Methods(http.MethodPost)
	authed.HandleFunc("/news/{ticker}", ds.handleNews).Methods(http.MethodPost)
	authed.HandleFunc("/predictions", ds.handlePredictions).Methods(http.MethodPost)
	authed.HandleFunc("/insight", ds.handleInsight).Methods(http.MethodPost)

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler(router)
}

// Start serves the API on addr, blocking until shutdown.
func (ds *DashboardServer) Start(addr string) error {
	ds.httpServer = &http.Server{
		Addr:         addr,
		Handler:      ds.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second, // AI endpoints are slow
	}

	ds.logger.Infof("Dashboard API listening on %s", addr)
	if err := ds.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return WrapError(err, "dashboard server failed", ErrCodeTransport)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (ds *DashboardServer) Shutdown(ctx context.Context) error {
	if ds.httpServer == nil {
		return nil
	}
	return ds.httpServer.Shutdown(ctx)
}

// --- auth ---

func (ds *DashboardServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Username) == "" {
		ds.writeError(w, http.StatusBadRequest, "username is required", ErrCodeConfiguration)
		return
	}

	// Mock auth: any non-empty username is accepted, the password ignored.
	claims := jwt.RegisteredClaims{
		Subject:   req.Username,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ds.jwtSecret)
	if err != nil {
		ds.writeError(w, http.StatusInternalServerError, "could not issue token", ErrCodeUnknown)
		return
	}

	ds.logger.Infof("Login for %s", req.Username)
	ds.writeData(w, loginResponse{Token: token, Username: req.Username})
}

func (ds *DashboardServer) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || raw == "" {
			ds.writeError(w, http.StatusUnauthorized, "missing bearer token", ErrCodePermission)
			return
		}

		token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, NewPermissionError("unexpected signing method")
			}
			return ds.jwtSecret, nil
		})
		if err != nil || !token.Valid {
			ds.writeError(w, http.StatusUnauthorized, "invalid token", ErrCodePermission)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// --- data endpoints ---

func (ds *DashboardServer) handleStocks(w http.ResponseWriter, _ *http.Request) {
	ds.writeData(w, MockStocks)
}

func (ds *DashboardServer) handlePortfolio(w http.ResponseWriter, _ *http.Request) {
	ds.writeData(w, MockPortfolio)
}

func (ds *DashboardServer) handleChart(w http.ResponseWriter, r *http.Request) {
	ds.writeData(w, ChartRange(mux.Vars(r)["range"]))
}

func (ds *DashboardServer) handleTrades(w http.ResponseWriter, _ *http.Request) {
	if ds.controller == nil {
		ds.writeData(w, []TradeOrder{})
		return
	}
	ds.writeData(w, ds.controller.Trades().Orders())
}

func (ds *DashboardServer) handleVoiceStatus(w http.ResponseWriter, _ *http.Request) {
	state := SessionClosed
	user, agent := "", ""
	if ds.controller != nil {
		state = ds.controller.State()
		user, agent = ds.controller.Transcripts().Snapshot()
	}
	ds.writeData(w, map[string]any{
		"state":           state,
		"userTranscript":  user,
		"agentTranscript": agent,
	})
}

// --- AI endpoints ---

func (ds *DashboardServer) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	if ds.insight == nil {
		ds.writeError(w, http.StatusServiceUnavailable, "analysis is not configured", ErrCodeConfiguration)
		return
	}
	ds.writeData(w, map[string]string{"analysis": ds.insight.AnalyzePortfolio(r.Context(), MockPortfolio)})
}

func (ds *DashboardServer) handleNews(w http.ResponseWriter, r *http.Request) {
	if ds.insight == nil {
		ds.writeError(w, http.StatusServiceUnavailable, "news is not configured", ErrCodeConfiguration)
		return
	}
	ds.writeData(w, ds.insight.News(r.Context(), mux.Vars(r)["ticker"]))
}

func (ds *DashboardServer) handlePredictions(w http.ResponseWriter, r *http.Request) {
	if ds.insight == nil {
		ds.writeError(w, http.StatusServiceUnavailable, "predictions are not configured", ErrCodeConfiguration)
		return
	}
	predictions, err := ds.insight.PredictPrices(r.Context(), MockPortfolio)
	if err != nil {
		ds.logger.WithError(err).Warn("Prediction request failed")
		ds.writeError(w, http.StatusBadGateway, "could not generate predictions", ErrCodeCollaborator)
		return
	}
	ds.writeData(w, predictions)
}

func (ds *DashboardServer) handleInsight(w http.ResponseWriter, r *http.Request) {
	if ds.insight == nil {
		ds.writeError(w, http.StatusServiceUnavailable, "insights are not configured", ErrCodeConfiguration)
		return
	}
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		ds.writeError(w, http.StatusBadRequest, "query is required", ErrCodeConfiguration)
		return
	}
	text, err := ds.insight.MarketInsight(r.Context(), req.Query)
	if err != nil {
		ds.logger.WithError(err).Warn("Insight request failed")
		ds.writeError(w, http.StatusBadGateway, "could not fetch insight", ErrCodeCollaborator)
		return
	}
	ds.writeData(w, map[string]string{"insight": text})
}

// --- envelope helpers ---

func (ds *DashboardServer) writeData(w http.ResponseWriter, data any) {
	ds.writeJSON(w, http.StatusOK, apiResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

func (ds *DashboardServer) writeError(w http.ResponseWriter, status int, message, code string) {
	ds.writeJSON(w, status, apiResponse{
		Success:   false,
		Message:   message,
		Code:      code,
		Timestamp: time.Now().Unix(),
	})
}

func (ds *DashboardServer) writeJSON(w http.ResponseWriter, status int, payload apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		ds.logger.WithError(err).Error("Failed to encode response")
	}
}
