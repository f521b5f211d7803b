package voicetrader

import (
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
)

// LiveSession is one bidirectional streaming connection to the voice
// backend. At most one live instance exists process-wide; the
// SessionController owns it exclusively.
//
// Send methods follow a reject-if-not-open contract: frames written before
// the setup handshake completes or after Close return an error instead of
// being queued.
type LiveSession struct {
	cfg       *Config
	conn      *websocket.Conn
	logger    *Logger
	onMessage func(*serverMessage)
	onError   func(*AgentError)

	mu      sync.Mutex
	writeMu sync.Mutex
	state   SessionState
	closed  bool
}

// DialLive opens the websocket, performs the setup handshake and starts the
// read loop. The returned session is Open; any later read failure is
// reported once through onError and is fatal for the session.
func DialLive(cfg *Config, setup *sessionSetup, onMessage func(*serverMessage), onError func(*AgentError)) (*LiveSession, error) {
	ls := &LiveSession{
		cfg:       cfg,
		logger:    GetGlobalLogger().WithComponent("live-session"),
		onMessage: onMessage,
		onError:   onError,
		state:     SessionOpening,
	}

	endpoint := fmt.Sprintf("%s?key=%s", cfg.LiveEndpoint, cfg.APIKey)

	dialer := websocket.Dialer{HandshakeTimeout: cfg.DialTimeout}

	// Transient dial failures retry with exponential backoff; a live turn
	// cannot start without the socket, so give up after MaxDialElapsed.
	backOff := backoff.NewExponentialBackOff()
	backOff.MaxElapsedTime = cfg.MaxDialElapsed

	var conn *websocket.Conn
	err := backoff.Retry(func() error {
		var dialErr error
		conn, _, dialErr = dialer.Dial(endpoint, nil)
		if dialErr != nil {
			ls.logger.WithError(dialErr).Warn("Live dial attempt failed")
		}
		return dialErr
	}, backOff)
	if err != nil {
		return nil, WrapError(err, "failed to reach live endpoint", ErrCodeTransport)
	}
	ls.conn = conn

	if err := ls.handshake(setup); err != nil {
		conn.Close()
		return nil, err
	}

	ls.mu.Lock()
	ls.state = SessionOpen
	ls.mu.Unlock()

	go ls.readLoop()
	return ls, nil
}

// handshake sends the setup frame and waits for the server acknowledgment.
func (ls *LiveSession) handshake(setup *sessionSetup) error {
	if err := ls.conn.WriteJSON(&setupMessage{Setup: setup}); err != nil {
		return WrapError(err, "failed to send session setup", ErrCodeTransport)
	}

	ls.conn.SetReadDeadline(time.Now().Add(ls.cfg.DialTimeout))
	defer ls.conn.SetReadDeadline(time.Time{})

	var ack serverMessage
	if err := ls.conn.ReadJSON(&ack); err != nil {
		return WrapError(err, "no setup acknowledgment from backend", ErrCodeTransport)
	}
	if ack.SetupComplete == nil {
		return NewProtocolError("backend did not acknowledge session setup")
	}

	ls.logger.Debug("Live session handshake complete")
	return nil
}

func (ls *LiveSession) readLoop() {
	for {
		var message serverMessage
		if err := ls.conn.ReadJSON(&message); err != nil {
			ls.mu.Lock()
			wasClosed := ls.closed
			ls.state = SessionClosed
			ls.mu.Unlock()

			if !wasClosed && ls.onError != nil {
				ls.onError(WrapError(err, "live session read failed", ErrCodeTransport))
			}
			return
		}

		if ls.cfg.DebugWire {
			ls.logger.Debugf("Received server frame: %+v", message)
		}

		if message.GoAway != nil {
			ls.logger.Warnf("Backend signaled goAway, time left: %s", message.GoAway.TimeLeft)
		}

		if ls.onMessage != nil {
			// In arrival order, one at a time.
			ls.onMessage(&message)
		}
	}
}

// SendRealtimeAudio streams one captured frame of raw PCM16 bytes. The frame
// is base64 encoded and tagged with the uplink MIME type. Fire-and-forget:
// no per-frame acknowledgment is awaited.
func (ls *LiveSession) SendRealtimeAudio(pcm []byte) error {
	if ls.State() != SessionOpen {
		return NewSessionStateError("session not open")
	}

	msg := &realtimeInputMessage{
		RealtimeInput: &realtimeInput{
			MediaChunks: []inlineData{{
				MimeType: uplinkMimeType,
				Data:     base64.StdEncoding.EncodeToString(pcm),
			}},
		},
	}

	ls.writeMu.Lock()
	defer ls.writeMu.Unlock()
	return ls.conn.WriteJSON(msg)
}

// SendToolResults reports completed tool calls back into the session,
// correlated by request id.
func (ls *LiveSession) SendToolResults(results []ToolCallResult) error {
	if ls.State() != SessionOpen {
		return NewSessionStateError("session not open")
	}

	responses := make([]functionResponse, 0, len(results))
	for _, res := range results {
		responses = append(responses, functionResponse{
			ID:       res.ID,
			Name:     res.Name,
			Response: map[string]any{"result": res.Result},
		})
	}

	msg := &toolResponseMessage{ToolResponse: &toolResponse{FunctionResponses: responses}}

	ls.writeMu.Lock()
	defer ls.writeMu.Unlock()
	return ls.conn.WriteJSON(msg)
}

// Close shuts the connection down. Idempotent.
func (ls *LiveSession) Close() error {
	ls.mu.Lock()
	if ls.closed {
		ls.mu.Unlock()
		return nil
	}
	ls.closed = true
	ls.state = SessionClosed
	ls.mu.Unlock()

	ls.writeMu.Lock()
	ls.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	ls.writeMu.Unlock()

	return ls.conn.Close()
}

func (ls *LiveSession) State() SessionState {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.state
}
