package voicetrader

import (
	"strings"
	"sync"
)

// Placeholder status strings shown in the agent transcript while no model
// output has arrived yet. The first output fragment replaces them.
const (
	StatusConnecting = "Connecting..."
	StatusListening  = "Listening... Speak now."
)

// TranscriptBuffers holds the two accumulating speech-to-text strings, one
// per direction. Both reset at turn boundaries and at session start/stop.
type TranscriptBuffers struct {
	mu    sync.Mutex
	user  string
	agent string
}

func NewTranscriptBuffers() *TranscriptBuffers {
	return &TranscriptBuffers{}
}

// AppendUser appends an input transcription fragment.
func (tb *TranscriptBuffers) AppendUser(fragment string) {
	tb.mu.Lock()
	tb.user += fragment
	tb.mu.Unlock()
}

// AppendAgent appends an output transcription fragment. If the buffer still
// holds a placeholder status, the fragment replaces it instead.
func (tb *TranscriptBuffers) AppendAgent(fragment string) {
	tb.mu.Lock()
	if strings.HasPrefix(tb.agent, "Listening") || strings.HasPrefix(tb.agent, "Connecting") {
		tb.agent = fragment
	} else {
		tb.agent += fragment
	}
	tb.mu.Unlock()
}

// SetAgentStatus overwrites the agent buffer with a status string.
func (tb *TranscriptBuffers) SetAgentStatus(status string) {
	tb.mu.Lock()
	tb.agent = status
	tb.mu.Unlock()
}

// ClearTurn empties both buffers, ready for the next turn.
func (tb *TranscriptBuffers) ClearTurn() {
	tb.mu.Lock()
	tb.user = ""
	tb.agent = ""
	tb.mu.Unlock()
}

// Reset is ClearTurn at session boundaries.
func (tb *TranscriptBuffers) Reset() {
	tb.ClearTurn()
}

func (tb *TranscriptBuffers) User() string {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.user
}

func (tb *TranscriptBuffers) Agent() string {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.agent
}

// Snapshot returns both buffers atomically.
func (tb *TranscriptBuffers) Snapshot() (user, agent string) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.user, tb.agent
}
