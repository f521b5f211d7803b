package voicetrader

import "time"

// Error codes as constants
const (
	ErrCodeConfiguration = "CONFIGURATION_ERROR"
	ErrCodePermission    = "PERMISSION_ERROR"
	ErrCodeTransport     = "TRANSPORT_ERROR"
	ErrCodeCollaborator  = "COLLABORATOR_ERROR"
	ErrCodeSessionState  = "SESSION_STATE_ERROR"
	ErrCodeAudioDevice   = "AUDIO_DEVICE_ERROR"
	ErrCodeProtocol      = "PROTOCOL_ERROR"
	ErrCodeJSONParse     = "JSON_PARSE_ERROR"
	ErrCodeUnknown       = "UNKNOWN_ERROR"
)

// AgentError carries a user-presentable message plus a stable code.
type AgentError struct {
	Message   string
	Code      string
	Timestamp time.Time
	Details   map[string]any
	err       error
}

func (e *AgentError) Error() string {
	if e.err != nil {
		return e.Message + ": " + e.err.Error()
	}
	return e.Message
}

func (e *AgentError) Unwrap() error {
	return e.err
}

func NewAgentError(message, code string) *AgentError {
	return &AgentError{
		Message:   message,
		Code:      code,
		Timestamp: time.Now(),
	}
}

// AddDetail attaches extra context to the error.
func (e *AgentError) AddDetail(key string, value any) *AgentError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WrapError wraps any error as an AgentError with the given code.
func WrapError(err error, message, code string) *AgentError {
	if err == nil {
		return nil
	}
	agentErr := NewAgentError(message, code)
	agentErr.err = err
	return agentErr
}

// Specific error creators for the failure taxonomy.

// NewConfigurationError reports a missing or invalid credential. Features
// that need the backend fail fast with this.
func NewConfigurationError(message string) *AgentError {
	return NewAgentError(message, ErrCodeConfiguration)
}

// NewPermissionError reports that the microphone was denied or unavailable.
func NewPermissionError(message string) *AgentError {
	return NewAgentError(message, ErrCodePermission)
}

// NewTransportError reports a session-level failure; fatal for that session.
func NewTransportError(message string) *AgentError {
	return NewAgentError(message, ErrCodeTransport)
}

// NewCollaboratorError reports a text-generation call failure. Always caught
// locally and replaced with a fallback string, never propagated upward.
func NewCollaboratorError(message string) *AgentError {
	return NewAgentError(message, ErrCodeCollaborator)
}

func NewSessionStateError(message string) *AgentError {
	return NewAgentError(message, ErrCodeSessionState)
}

func NewAudioError(message string) *AgentError {
	return NewAgentError(message, ErrCodeAudioDevice)
}

func NewProtocolError(message string) *AgentError {
	return NewAgentError(message, ErrCodeProtocol)
}

// IsErrorCode checks whether err is an AgentError with the given code.
func IsErrorCode(err error, code string) bool {
	agentErr, ok := err.(*AgentError)
	return ok && agentErr.Code == code
}
