package voicetrader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	analysisFallback    = "An error occurred while analyzing the portfolio. Please try again."
	newsFallback        = "Could not fetch news at this time."
	insightInstruction  = "You are a concise financial analyst for the Indian stock market. Answer in two or three sentences."
	analysisInstruction = "You are a portfolio analyst for the Indian stock market (NSE)."
)

// InsightClient talks to the text-generation endpoint over plain REST. It
// backs the get_market_insights tool plus the dashboard's analysis, news and
// prediction features. Safe for concurrent use.
type InsightClient struct {
	cfg    *Config
	client *http.Client
	logger *Logger
}

func NewInsightClient(cfg *Config) *InsightClient {
	if cfg == nil {
		cfg = NewConfig()
	}
	return &InsightClient{
		cfg:    cfg,
		client: &http.Client{Timeout: 60 * time.Second},
		logger: GetGlobalLogger().WithComponent("insight-client"),
	}
}

// generateRequest is the REST generateContent payload. It reuses the live
// protocol's content and tool types; the two endpoints share JSON shapes.
type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	Tools             []toolDecl        `json:"tools,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
	Error      *apiError   `json:"error,omitempty"`
}

type candidate struct {
	Content           *content           `json:"content"`
	GroundingMetadata *groundingMetadata `json:"groundingMetadata,omitempty"`
}

type groundingMetadata struct {
	GroundingChunks []groundingChunk `json:"groundingChunks,omitempty"`
}

type groundingChunk struct {
	Web *webSource `json:"web,omitempty"`
}

type webSource struct {
	Title string `json:"title,omitempty"`
	URI   string `json:"uri,omitempty"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// generate performs one generateContent round-trip and returns the first
// candidate.
func (ic *InsightClient) generate(ctx context.Context, req *generateRequest) (*candidate, error) {
	if err := ic.cfg.RequireAPIKey(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, WrapError(err, "could not encode generation request", ErrCodeJSONParse)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", ic.cfg.TextEndpoint, ic.cfg.TextModel, ic.cfg.APIKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, WrapError(err, "could not build generation request", ErrCodeCollaborator)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := ic.client.Do(httpReq)
	if err != nil {
		return nil, WrapError(err, "generation request failed", ErrCodeCollaborator)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, WrapError(err, "could not read generation response", ErrCodeCollaborator)
	}

	var parsed generateResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, WrapError(err, "could not decode generation response", ErrCodeJSONParse)
	}
	if parsed.Error != nil {
		agentErr := NewCollaboratorError(fmt.Sprintf("generation rejected: %s", parsed.Error.Message))
		agentErr.AddDetail("status", parsed.Error.Status)
		return nil, agentErr
	}
	if resp.StatusCode != http.StatusOK {
		return nil, NewCollaboratorError(fmt.Sprintf("generation returned HTTP %d", resp.StatusCode))
	}
	if len(parsed.Candidates) == 0 {
		return nil, NewCollaboratorError("generation returned no candidates")
	}

	return &parsed.Candidates[0], nil
}

func candidateText(cand *candidate) string {
	if cand == nil || cand.Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range cand.Content.Parts {
		sb.WriteString(p.Text)
	}
	return strings.TrimSpace(sb.String())
}

// MarketInsight answers a general financial question. Implements
// InsightProvider for the voice tool round-trip.
func (ic *InsightClient) MarketInsight(ctx context.Context, query string) (string, error) {
	cand, err := ic.generate(ctx, &generateRequest{
		Contents:          []content{{Role: "user", Parts: []part{{Text: query}}}},
		SystemInstruction: &content{Parts: []part{{Text: insightInstruction}}},
	})
	if err != nil {
		return "", err
	}

	text := candidateText(cand)
	if text == "" {
		return "", NewCollaboratorError("generation returned empty text")
	}
	return text, nil
}

// AnalyzePortfolio produces a short narrative health check of the holdings.
// Failures degrade to a fixed message so the dashboard never surfaces a raw
// error.
func (ic *InsightClient) AnalyzePortfolio(ctx context.Context, holdings []Holding) string {
	serialized, err := json.Marshal(holdings)
	if err != nil {
		ic.logger.WithError(err).Warn("Could not serialize holdings")
		return analysisFallback
	}

	prompt := "Analyze the following Indian stock portfolio and provide a concise summary in three short paragraphs: " +
		"1) overall health and diversification, 2) the strongest and weakest positions with why, " +
		"3) one actionable suggestion. Portfolio: " + string(serialized)

	cand, err := ic.generate(ctx, &generateRequest{
		Contents:          []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		SystemInstruction: &content{Parts: []part{{Text: analysisInstruction}}},
	})
	if err != nil {
		ic.logger.WithError(err).Warn("Portfolio analysis failed")
		return analysisFallback
	}

	text := candidateText(cand)
	if text == "" {
		return analysisFallback
	}
	return text
}

// News returns a search-grounded digest of recent news for one ticker, with
// the citations the backend attributed.
func (ic *InsightClient) News(ctx context.Context, ticker string) NewsSummary {
	prompt := fmt.Sprintf("Summarize the latest market-moving news for the NSE stock %s in a few sentences.", strings.ToUpper(ticker))

	cand, err := ic.generate(ctx, &generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		Tools:    []toolDecl{{GoogleSearch: &struct{}{}}},
	})
	if err != nil {
		ic.logger.WithError(err).Warn("News fetch failed")
		return NewsSummary{Summary: newsFallback}
	}

	summary := NewsSummary{Summary: candidateText(cand)}
	if summary.Summary == "" {
		summary.Summary = newsFallback
		return summary
	}

	if cand.GroundingMetadata != nil {
		for _, chunk := range cand.GroundingMetadata.GroundingChunks {
			if chunk.Web != nil && chunk.Web.URI != "" {
				summary.Sources = append(summary.Sources, GroundingSource{
					Title: chunk.Web.Title,
					URI:   chunk.Web.URI,
				})
			}
		}
	}
	return summary
}

// PredictPrices asks for structured 30-day price targets for each holding.
// The response schema pins the JSON shape so decoding is mechanical.
func (ic *InsightClient) PredictPrices(ctx context.Context, holdings []Holding) ([]StockPrediction, error) {
	serialized, err := json.Marshal(holdings)
	if err != nil {
		return nil, WrapError(err, "could not serialize holdings", ErrCodeJSONParse)
	}

	prompt := "For each holding in this Indian stock portfolio, predict a 30-day target price in INR " +
		"with a one-sentence rationale. Portfolio: " + string(serialized)

	cand, err := ic.generate(ctx, &generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema: &schema{
				Type: "ARRAY",
				Items: &schema{
					Type: "OBJECT",
					Properties: map[string]*schema{
						"symbol":      {Type: "STRING"},
						"targetPrice": {Type: "NUMBER"},
						"rationale":   {Type: "STRING"},
					},
					Required: []string{"symbol", "targetPrice", "rationale"},
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	text := candidateText(cand)
	var predictions []StockPrediction
	if err := json.Unmarshal([]byte(text), &predictions); err != nil {
		return nil, WrapError(err, "could not decode predictions", ErrCodeJSONParse)
	}
	return predictions, nil
}
