package voicetrader

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (h *testHarness) currentGen() uint64 {
	h.controller.mu.Lock()
	defer h.controller.mu.Unlock()
	return h.controller.generation
}

func TestDispatcherRoutesTranscriptions(t *testing.T) {
	h := newTestHarness(t)
	require.NoError(t, h.controller.Start())
	defer h.controller.Stop()
	gen := h.currentGen()

	h.controller.handleServerMessage(gen, &serverMessage{
		ServerContent: &serverContent{InputTranscription: &transcription{Text: "Buy ten shares"}},
	})
	h.controller.handleServerMessage(gen, &serverMessage{
		ServerContent: &serverContent{OutputTranscription: &transcription{Text: "Placing the order."}},
	})

	user, agent := h.controller.Transcripts().Snapshot()
	assert.Equal(t, "Buy ten shares", user)
	// The fragment replaced the listening placeholder.
	assert.Equal(t, "Placing the order.", agent)
}

func TestDispatcherTurnCompleteClearsBothBuffers(t *testing.T) {
	h := newTestHarness(t)
	require.NoError(t, h.controller.Start())
	defer h.controller.Stop()
	gen := h.currentGen()

	h.controller.handleServerMessage(gen, &serverMessage{
		ServerContent: &serverContent{
			InputTranscription:  &transcription{Text: "question"},
			OutputTranscription: &transcription{Text: "answer"},
		},
	})
	h.controller.handleServerMessage(gen, &serverMessage{
		ServerContent: &serverContent{TurnComplete: true},
	})

	user, agent := h.controller.Transcripts().Snapshot()
	assert.Empty(t, user)
	assert.Empty(t, agent)
}

func TestDispatcherSchedulesInlineAudio(t *testing.T) {
	h := newTestHarness(t)
	require.NoError(t, h.controller.Start())
	defer h.controller.Stop()
	gen := h.currentGen()

	pcm := pcm16Bytes([]int16{100, 200, 300})
	h.controller.handleServerMessage(gen, &serverMessage{
		ServerContent: &serverContent{
			ModelTurn: &content{Parts: []part{{
				InlineData: &inlineData{
					MimeType: downlinkMimeType,
					Data:     base64.StdEncoding.EncodeToString(pcm),
				},
			}}},
		},
	})

	assert.Equal(t, 1, h.controller.playback.PendingChunks())
	assert.Equal(t, int64(3), h.controller.playback.Cursor())
}

func TestDispatcherDiscardsUndecodableAudio(t *testing.T) {
	h := newTestHarness(t)
	require.NoError(t, h.controller.Start())
	defer h.controller.Stop()
	gen := h.currentGen()

	h.controller.handleServerMessage(gen, &serverMessage{
		ServerContent: &serverContent{
			ModelTurn: &content{Parts: []part{{
				InlineData: &inlineData{Data: "not base64!!!"},
			}}},
		},
	})

	assert.Equal(t, 0, h.controller.playback.PendingChunks())
}

func TestDispatcherExecutesToolCallsAndReportsResults(t *testing.T) {
	h := newTestHarness(t)
	require.NoError(t, h.controller.Start())
	defer h.controller.Stop()
	gen := h.currentGen()

	h.controller.handleServerMessage(gen, &serverMessage{
		ToolCall: &serverToolCall{FunctionCalls: []functionCall{{
			ID:   "call-1",
			Name: ToolExecuteStockTrade,
			Args: map[string]any{"action": "BUY", "symbol": "INFY", "quantity": float64(3)},
		}}},
	})

	require.Eventually(t, func() bool {
		return len(h.stream.sentResults()) == 1
	}, time.Second, 10*time.Millisecond)

	results := h.stream.sentResults()[0]
	require.Len(t, results, 1)
	assert.Equal(t, "call-1", results[0].ID)
	assert.Equal(t, tradeSuccessResult, results[0].Result)
	assert.Equal(t, 1, h.controller.Trades().Len())
}

func TestDispatcherDropsStaleGenerationFrames(t *testing.T) {
	h := newTestHarness(t)
	require.NoError(t, h.controller.Start())
	defer h.controller.Stop()
	gen := h.currentGen()

	h.controller.handleServerMessage(gen-1, &serverMessage{
		ServerContent: &serverContent{InputTranscription: &transcription{Text: "ghost"}},
	})

	user, _ := h.controller.Transcripts().Snapshot()
	assert.Empty(t, user)
}

func TestToolResultAfterStopIsDropped(t *testing.T) {
	h := newTestHarness(t)
	require.NoError(t, h.controller.Start())
	gen := h.currentGen()
	h.controller.Stop()

	h.controller.runTool(gen, ToolCallRequest{
		ID:   "late-call",
		Name: ToolGetStockPrice,
		Args: map[string]any{"symbol": "TCS"},
	})

	assert.Empty(t, h.stream.sentResults())
}
