package voicetrader

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger wraps zerolog for structured logging
type Logger struct {
	logger zerolog.Logger
}

// LogConfig represents the configuration for logging
type LogConfig struct {
	Level     zerolog.Level
	Pretty    bool
	Output    io.Writer
	AddSource bool
}

// DefaultLogConfig returns a default logging configuration
func DefaultLogConfig() *LogConfig {
	level := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(os.Getenv("VOICETRADER_LOG_LEVEL")); err == nil && os.Getenv("VOICETRADER_LOG_LEVEL") != "" {
		level = parsed
	}
	return &LogConfig{
		Level:  level,
		Pretty: true,
		Output: os.Stderr,
	}
}

// NewLogger creates a new structured logger
func NewLogger(config *LogConfig) *Logger {
	if config == nil {
		config = DefaultLogConfig()
	}

	zerolog.TimeFieldFormat = time.RFC3339

	var logger zerolog.Logger
	if config.Pretty {
		logger = log.Output(zerolog.ConsoleWriter{
			Out:        config.Output,
			TimeFormat: time.Kitchen,
		})
	} else {
		logger = zerolog.New(config.Output)
	}

	logger = logger.Level(config.Level).With().Timestamp().Logger()
	if config.AddSource {
		logger = logger.With().Caller().Logger()
	}

	return &Logger{logger: logger}
}

// WithComponent adds a component field to the logger
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{logger: l.logger.With().Str("component", component).Logger()}
}

// WithField adds a field to the logger
func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{logger: l.logger.With().Interface(key, value).Logger()}
}

// WithError adds an error field to the logger
func (l *Logger) WithError(err error) *Logger {
	return &Logger{logger: l.logger.With().Err(err).Logger()}
}

func (l *Logger) Debug(msg string) { l.logger.Debug().Msg(msg) }
func (l *Logger) Info(msg string)  { l.logger.Info().Msg(msg) }
func (l *Logger) Warn(msg string)  { l.logger.Warn().Msg(msg) }
func (l *Logger) Error(msg string) { l.logger.Error().Msg(msg) }
func (l *Logger) Fatal(msg string) { l.logger.Fatal().Msg(msg) }

func (l *Logger) Debugf(format string, args ...any) { l.logger.Debug().Msgf(format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.logger.Info().Msgf(format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.logger.Warn().Msgf(format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.logger.Error().Msgf(format, args...) }
func (l *Logger) Fatalf(format string, args ...any) { l.logger.Fatal().Msgf(format, args...) }

// LogAgentError logs an AgentError with structured fields.
func (l *Logger) LogAgentError(err *AgentError) {
	event := l.logger.Error().
		Str("error_code", err.Code).
		Time("timestamp", err.Timestamp).
		Fields(err.Details)
	if err.err != nil {
		event = event.AnErr("cause", err.err)
	}
	event.Msg(err.Message)
}

// LogSessionEvent logs session lifecycle events.
func (l *Logger) LogSessionEvent(event string, state SessionState) {
	l.logger.Info().
		Str("event_type", "session").
		Str("event", event).
		Str("state", string(state)).
		Msg("Session event")
}

// Global logger instance
var globalLogger *Logger

func init() {
	globalLogger = NewLogger(DefaultLogConfig())
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() *Logger {
	return globalLogger
}

// SetGlobalLogger sets the global logger instance
func SetGlobalLogger(logger *Logger) {
	globalLogger = logger
}
