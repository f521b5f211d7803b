package voicetrader

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAgentFragmentReplacesPlaceholder(t *testing.T) {
	tb := NewTranscriptBuffers()

	tb.SetAgentStatus(StatusListening)
	tb.AppendAgent("Hello")
	assert.Equal(t, "Hello", tb.Agent())

	tb.AppendAgent(", trader.")
	assert.Equal(t, "Hello, trader.", tb.Agent())
}

func TestAgentFragmentReplacesConnectingStatus(t *testing.T) {
	tb := NewTranscriptBuffers()

	tb.SetAgentStatus(StatusConnecting)
	tb.AppendAgent("Sure.")
	assert.Equal(t, "Sure.", tb.Agent())
}

func TestUserFragmentsAccumulate(t *testing.T) {
	tb := NewTranscriptBuffers()

	tb.AppendUser("Buy ten ")
	tb.AppendUser("shares of Reliance")
	assert.Equal(t, "Buy ten shares of Reliance", tb.User())
}

func TestClearTurnEmptiesBothBuffers(t *testing.T) {
	tb := NewTranscriptBuffers()

	tb.AppendUser("question")
	tb.AppendAgent("answer")
	tb.ClearTurn()

	user, agent := tb.Snapshot()
	assert.Empty(t, user)
	assert.Empty(t, agent)
}

func TestSnapshotReturnsBothSides(t *testing.T) {
	tb := NewTranscriptBuffers()

	tb.AppendUser("hi")
	tb.SetAgentStatus(StatusListening)

	user, agent := tb.Snapshot()
	assert.Equal(t, "hi", user)
	assert.Equal(t, StatusListening, agent)
}
