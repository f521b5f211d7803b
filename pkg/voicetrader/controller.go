package voicetrader

import (
	"context"
	"errors"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// liveStream is the slice of LiveSession the controller depends on.
type liveStream interface {
	SendRealtimeAudio(pcm []byte) error
	SendToolResults(results []ToolCallResult) error
	Close() error
}

// captureDevice is the slice of micCapture the controller depends on.
type captureDevice interface {
	Start() error
	Stop() error
}

// SessionController coordinates one voice session end to end: it owns the
// live stream, the capture device and the playback scheduler for the
// session's duration, and is the only component that opens or closes them.
// At most one session is open at any time.
type SessionController struct {
	cfg         *Config
	logger      *Logger
	trades      *TradeLog
	transcripts *TranscriptBuffers
	executor    *ToolExecutor

	mu         sync.Mutex
	state      SessionState
	generation uint64
	session    liveStream
	capture    captureDevice
	playback   *PlaybackScheduler
	audioUp    bool // portaudio initialized for this session

	onState      StateHandler
	onTranscript TranscriptHandler
	onError      ErrorHandler

	// Acquisition seams, swapped in tests.
	dial         func(setup *sessionSetup, onMessage func(*serverMessage), onError func(*AgentError)) (liveStream, error)
	openCapture  func(onFrame func([]float32)) (captureDevice, error)
	openPlayback func() (*PlaybackScheduler, error)
	audioInit    func() error
	audioTerm    func() error
}

// NewSessionController wires a controller against the mock trade log and the
// given insight collaborator (nil disables get_market_insights gracefully).
func NewSessionController(cfg *Config, insight InsightProvider, trades *TradeLog) *SessionController {
	if cfg == nil {
		cfg = NewConfig()
	}
	if trades == nil {
		trades = NewTradeLog()
	}

	sc := &SessionController{
		cfg:         cfg,
		logger:      GetGlobalLogger().WithComponent("session-controller"),
		trades:      trades,
		transcripts: NewTranscriptBuffers(),
		executor:    NewToolExecutor(trades, insight),
		state:       SessionClosed,
	}

	sc.dial = func(setup *sessionSetup, onMessage func(*serverMessage), onError func(*AgentError)) (liveStream, error) {
		return DialLive(cfg, setup, onMessage, onError)
	}
	sc.openCapture = func(onFrame func([]float32)) (captureDevice, error) {
		return newMicCapture(cfg, onFrame)
	}
	sc.openPlayback = func() (*PlaybackScheduler, error) {
		return newPlaybackScheduler(cfg)
	}
	sc.audioInit = portaudio.Initialize
	sc.audioTerm = portaudio.Terminate

	return sc
}

func (sc *SessionController) SetStateHandler(handler StateHandler)           { sc.onState = handler }
func (sc *SessionController) SetTranscriptHandler(handler TranscriptHandler) { sc.onTranscript = handler }
func (sc *SessionController) SetErrorHandler(handler ErrorHandler)           { sc.onError = handler }

// SetTradeHandler registers a callback for each simulated execution.
func (sc *SessionController) SetTradeHandler(handler TradeHandler) {
	sc.executor.SetTradeHandler(handler)
}

func (sc *SessionController) State() SessionState {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.state
}

// Transcripts exposes the live transcript buffers for the UI layer.
func (sc *SessionController) Transcripts() *TranscriptBuffers {
	return sc.transcripts
}

// Trades exposes the simulated trade log.
func (sc *SessionController) Trades() *TradeLog {
	return sc.trades
}

// Start opens a voice session: microphone, audio output, then the live
// stream. Preconditions: no session open or opening, and the backend
// credential configured. Any acquisition failure releases everything
// acquired so far and leaves the controller Closed.
func (sc *SessionController) Start() error {
	sc.mu.Lock()
	if sc.state != SessionClosed {
		sc.mu.Unlock()
		return NewSessionStateError("a voice session is already active")
	}
	if sc.cfg.APIKey == "" {
		sc.mu.Unlock()
		err := NewConfigurationError("GEMINI_API_KEY is not configured")
		sc.transcripts.Reset()
		sc.transcripts.SetAgentStatus("Error: API key is not configured.")
		sc.reportError(err)
		return err
	}
	sc.state = SessionOpening
	sc.generation++
	gen := sc.generation
	sc.mu.Unlock()

	sc.notifyState(SessionOpening)
	sc.transcripts.Reset()
	sc.transcripts.SetAgentStatus(StatusConnecting)

	if err := sc.acquire(gen); err != nil {
		sc.teardown()
		var agentErr *AgentError
		if !errors.As(err, &agentErr) {
			agentErr = WrapError(err, err.Error(), ErrCodeUnknown)
		}
		sc.reportError(agentErr)
		return err
	}

	sc.mu.Lock()
	sc.state = SessionOpen
	sc.mu.Unlock()
	sc.notifyState(SessionOpen)
	sc.transcripts.SetAgentStatus(StatusListening)
	sc.notifyTranscripts()
	sc.logger.LogSessionEvent("started", SessionOpen)

	return nil
}

// acquire opens every session resource in order, recording each on the
// controller so teardown can release partial progress.
func (sc *SessionController) acquire(gen uint64) error {
	if err := sc.audioInit(); err != nil {
		return WrapError(err, "audio subsystem unavailable", ErrCodeAudioDevice)
	}
	sc.mu.Lock()
	sc.audioUp = true
	sc.mu.Unlock()

	// Microphone first: a denied device should fail before any network
	// traffic happens.
	capture, err := sc.openCapture(func(frame []float32) {
		sc.sendFrame(gen, frame)
	})
	if err != nil {
		sc.transcripts.SetAgentStatus("Could not access microphone. Please check permissions.")
		return err
	}
	sc.mu.Lock()
	sc.capture = capture
	sc.mu.Unlock()

	playback, err := sc.openPlayback()
	if err != nil {
		return err
	}
	sc.mu.Lock()
	sc.playback = playback
	sc.mu.Unlock()
	if err := playback.Start(); err != nil {
		return err
	}

	setup := &sessionSetup{
		Model:                    "models/" + sc.cfg.LiveModel,
		GenerationConfig:         &generationConfig{ResponseModalities: []string{"AUDIO"}},
		SystemInstruction:        &content{Parts: []part{{Text: systemInstruction()}}},
		Tools:                    []toolDecl{{FunctionDeclarations: agentFunctionDeclarations()}},
		InputAudioTranscription:  &struct{}{},
		OutputAudioTranscription: &struct{}{},
	}

	session, err := sc.dial(setup,
		func(msg *serverMessage) { sc.handleServerMessage(gen, msg) },
		func(agentErr *AgentError) { sc.handleTransportError(gen, agentErr) })
	if err != nil {
		sc.transcripts.SetAgentStatus("Connection error. Please try again.")
		return err
	}
	sc.mu.Lock()
	sc.session = session
	sc.mu.Unlock()

	// Uplink streams if and only if the session is open and capture runs.
	if err := capture.Start(); err != nil {
		return err
	}

	return nil
}

// Stop tears the session down. Idempotent; every release step is attempted
// independently so one failure does not leak the rest.
func (sc *SessionController) Stop() {
	sc.mu.Lock()
	if sc.state == SessionClosed && sc.session == nil && sc.capture == nil && sc.playback == nil {
		sc.mu.Unlock()
		return
	}
	sc.mu.Unlock()

	sc.teardown()
	sc.logger.LogSessionEvent("stopped", SessionClosed)
}

// teardown releases whatever is currently held and resets state. In-flight
// tool results are invalidated by bumping the generation.
func (sc *SessionController) teardown() {
	sc.mu.Lock()
	sc.generation++
	session := sc.session
	capture := sc.capture
	playback := sc.playback
	audioUp := sc.audioUp
	sc.session = nil
	sc.capture = nil
	sc.playback = nil
	sc.audioUp = false
	sc.state = SessionClosed
	sc.mu.Unlock()

	if session != nil {
		if err := session.Close(); err != nil {
			sc.logger.WithError(err).Warn("Session close failed")
		}
	}
	if capture != nil {
		if err := capture.Stop(); err != nil {
			sc.logger.WithError(err).Warn("Capture release failed")
		}
	}
	if playback != nil {
		if err := playback.Close(); err != nil {
			sc.logger.WithError(err).Warn("Playback release failed")
		}
	}
	if audioUp {
		if err := sc.audioTerm(); err != nil {
			sc.logger.WithError(err).Warn("Audio subsystem termination failed")
		}
	}

	sc.transcripts.Reset()
	sc.notifyState(SessionClosed)
	sc.notifyTranscripts()
}

// Close implements io.Closer so the controller can be released on any exit
// path of the hosting program.
func (sc *SessionController) Close() error {
	sc.Stop()
	return nil
}

// Run starts a session and keeps it open until ctx is canceled, then stops.
func (sc *SessionController) Run(ctx context.Context) error {
	if err := sc.Start(); err != nil {
		return err
	}
	defer sc.Stop()
	<-ctx.Done()
	return nil
}

// sendFrame quantizes one captured frame and streams it fire-and-forget.
// Frames captured after the session ended (or for a previous generation)
// are discarded.
func (sc *SessionController) sendFrame(gen uint64, frame []float32) {
	sc.mu.Lock()
	session := sc.session
	open := sc.state == SessionOpen && sc.generation == gen
	sc.mu.Unlock()

	if !open || session == nil {
		return
	}

	pcm := pcm16Bytes(quantizePCM16(frame))
	if err := session.SendRealtimeAudio(pcm); err != nil {
		if sc.cfg.DebugAudio {
			sc.logger.WithError(err).Debug("Dropped uplink frame")
		}
	}
}

// handleTransportError treats any session-level error as fatal: surface a
// generic message and tear everything down.
func (sc *SessionController) handleTransportError(gen uint64, agentErr *AgentError) {
	sc.mu.Lock()
	stale := sc.generation != gen
	sc.mu.Unlock()
	if stale {
		return
	}

	sc.logger.LogAgentError(agentErr)
	sc.transcripts.SetAgentStatus("Connection error. Please try again.")
	sc.notifyTranscripts()
	sc.reportError(agentErr)
	sc.Stop()
}

func (sc *SessionController) notifyState(state SessionState) {
	if sc.onState != nil {
		sc.onState(state)
	}
}

func (sc *SessionController) notifyTranscripts() {
	if sc.onTranscript != nil {
		user, agent := sc.transcripts.Snapshot()
		sc.onTranscript(user, agent)
	}
}

func (sc *SessionController) reportError(agentErr *AgentError) {
	if sc.onError != nil {
		sc.onError(agentErr)
	}
}
