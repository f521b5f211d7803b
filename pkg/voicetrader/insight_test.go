package voicetrader

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInsightTestServer(t *testing.T, handler http.HandlerFunc) (*InsightClient, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := NewConfig()
	cfg.APIKey = "test-key"
	cfg.TextEndpoint = server.URL
	return NewInsightClient(cfg), server
}

func textResponse(text string) string {
	resp := generateResponse{Candidates: []candidate{{
		Content: &content{Parts: []part{{Text: text}}},
	}}}
	data, _ := json.Marshal(resp)
	return string(data)
}

func TestMarketInsightReturnsCandidateText(t *testing.T) {
	var captured generateRequest
	client, _ := newInsightTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(textResponse("Nifty is trending up.")))
	})

	text, err := client.MarketInsight(context.Background(), "How is the Nifty?")
	require.NoError(t, err)
	assert.Equal(t, "Nifty is trending up.", text)

	require.Len(t, captured.Contents, 1)
	assert.Equal(t, "How is the Nifty?", captured.Contents[0].Parts[0].Text)
	require.NotNil(t, captured.SystemInstruction)
}

func TestMarketInsightPropagatesAPIError(t *testing.T) {
	client, _ := newInsightTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"key invalid","status":"INVALID_ARGUMENT"}}`))
	})

	_, err := client.MarketInsight(context.Background(), "anything")
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrCodeCollaborator))
}

func TestMarketInsightRequiresAPIKey(t *testing.T) {
	cfg := NewConfig()
	cfg.APIKey = ""
	client := NewInsightClient(cfg)

	_, err := client.MarketInsight(context.Background(), "anything")
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrCodeConfiguration))
}

func TestAnalyzePortfolioReturnsNarrative(t *testing.T) {
	client, _ := newInsightTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Contents[0].Parts[0].Text, "RELIANCE")
		w.Write([]byte(textResponse("A healthy portfolio.")))
	})

	out := client.AnalyzePortfolio(context.Background(), MockPortfolio)
	assert.Equal(t, "A healthy portfolio.", out)
}

func TestAnalyzePortfolioFallsBackOnFailure(t *testing.T) {
	client, _ := newInsightTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"code":500,"message":"boom","status":"INTERNAL"}}`))
	})

	out := client.AnalyzePortfolio(context.Background(), MockPortfolio)
	assert.Equal(t, analysisFallback, out)
}

func TestNewsParsesGroundingSources(t *testing.T) {
	var captured generateRequest
	client, _ := newInsightTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		resp := generateResponse{Candidates: []candidate{{
			Content: &content{Parts: []part{{Text: "Reliance announced expansion."}}},
			GroundingMetadata: &groundingMetadata{GroundingChunks: []groundingChunk{
				{Web: &webSource{Title: "Business Daily", URI: "https://example.com/a"}},
				{Web: nil},
				{Web: &webSource{Title: "", URI: ""}},
			}},
		}}}
		data, _ := json.Marshal(resp)
		w.Write(data)
	})

	summary := client.News(context.Background(), "reliance")
	assert.Equal(t, "Reliance announced expansion.", summary.Summary)
	require.Len(t, summary.Sources, 1)
	assert.Equal(t, "Business Daily", summary.Sources[0].Title)

	// News requests carry the search grounding tool.
	require.Len(t, captured.Tools, 1)
	assert.NotNil(t, captured.Tools[0].GoogleSearch)
}

func TestNewsFallsBackOnFailure(t *testing.T) {
	client, _ := newInsightTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	summary := client.News(context.Background(), "TCS")
	assert.Equal(t, newsFallback, summary.Summary)
	assert.Empty(t, summary.Sources)
}

func TestPredictPricesDecodesStructuredOutput(t *testing.T) {
	var captured generateRequest
	client, _ := newInsightTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		payload := `[{"symbol":"RELIANCE","targetPrice":2950.0,"rationale":"Strong momentum."}]`
		w.Write([]byte(textResponse(payload)))
	})

	predictions, err := client.PredictPrices(context.Background(), MockPortfolio)
	require.NoError(t, err)
	require.Len(t, predictions, 1)
	assert.Equal(t, "RELIANCE", predictions[0].Symbol)
	assert.Equal(t, 2950.0, predictions[0].TargetPrice)

	// The structured-output schema pins the response shape.
	require.NotNil(t, captured.GenerationConfig)
	assert.Equal(t, "application/json", captured.GenerationConfig.ResponseMimeType)
	require.NotNil(t, captured.GenerationConfig.ResponseSchema)
	assert.Equal(t, "ARRAY", captured.GenerationConfig.ResponseSchema.Type)
}

func TestPredictPricesRejectsMalformedOutput(t *testing.T) {
	client, _ := newInsightTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(textResponse("not json")))
	})

	_, err := client.PredictPrices(context.Background(), MockPortfolio)
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrCodeJSONParse))
}
