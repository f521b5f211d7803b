package voicetrader

import (
	"context"
	"encoding/base64"
)

// handleServerMessage routes one server frame, in arrival order, to the
// transcript buffers, the tool executor and the playback scheduler. Frames
// belonging to an earlier session generation are dropped.
func (sc *SessionController) handleServerMessage(gen uint64, msg *serverMessage) {
	sc.mu.Lock()
	stale := sc.generation != gen
	playback := sc.playback
	sc.mu.Unlock()
	if stale {
		return
	}

	if sc.cfg.DebugWire {
		sc.logger.Debug("Dispatching server frame")
	}

	if sc.handleTranscription(msg) {
		sc.notifyTranscripts()
	}

	// Tool calls execute off the dispatch goroutine so a slow collaborator
	// cannot stall audio delivery. Launch order preserves arrival order.
	for _, req := range msg.toolCallRequests() {
		go sc.runTool(gen, req)
	}

	if data, ok := msg.inlineAudio(); ok && playback != nil {
		raw, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			sc.logger.WithError(err).Warn("Discarding undecodable audio chunk")
		} else {
			startAt := playback.Schedule(decodePCM16(raw))
			if sc.cfg.DebugAudio {
				sc.logger.Debugf("Scheduled %d bytes of audio at sample %d", len(raw), startAt)
			}
		}
	}

	if msg.ServerContent != nil && msg.ServerContent.Interrupted {
		sc.logger.Debug("Model turn interrupted by user speech")
	}
}

// handleTranscription folds transcription fragments into the buffers and
// reports whether the visible transcripts changed. A completed turn archives
// both in-progress transcripts.
func (sc *SessionController) handleTranscription(msg *serverMessage) bool {
	sv := msg.ServerContent
	if sv == nil {
		return false
	}

	changed := false
	if sv.InputTranscription != nil && sv.InputTranscription.Text != "" {
		sc.transcripts.AppendUser(sv.InputTranscription.Text)
		changed = true
	}
	if sv.OutputTranscription != nil && sv.OutputTranscription.Text != "" {
		sc.transcripts.AppendAgent(sv.OutputTranscription.Text)
		changed = true
	}
	if sv.TurnComplete {
		sc.transcripts.ClearTurn()
		changed = true
	}
	return changed
}

// runTool executes one tool call and reports the result back into the
// session. A result whose session ended while the tool ran is dropped
// silently, never delivered to a newer session.
func (sc *SessionController) runTool(gen uint64, req ToolCallRequest) {
	result := sc.executor.Execute(context.Background(), req)

	sc.mu.Lock()
	session := sc.session
	live := sc.state == SessionOpen && sc.generation == gen
	sc.mu.Unlock()

	if !live || session == nil {
		sc.logger.Debugf("Dropping stale tool result for %s", req.Name)
		return
	}

	if err := session.SendToolResults([]ToolCallResult{result}); err != nil {
		sc.logger.WithError(err).Warn("Failed to deliver tool result")
	}
}
