package voicetrader

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultLiveModel = "gemini-2.5-flash-native-audio-preview-09-2025"
	defaultTextModel = "gemini-2.5-flash"

	defaultLiveEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"
	defaultTextEndpoint = "https://generativelanguage.googleapis.com/v1beta"

	// Wire formats are fixed by the live endpoint: PCM16 mono at 16 kHz up,
	// 24 kHz down.
	UplinkSampleRate   = 16000
	DownlinkSampleRate = 24000
)

type Config struct {
	APIKey       string `json:"-"`
	LiveModel    string `json:"live_model"`
	TextModel    string `json:"text_model"`
	LiveEndpoint string `json:"live_endpoint"`
	TextEndpoint string `json:"text_endpoint"`

	CaptureBufferSize  int  `json:"capture_buffer_size"`
	PlaybackBufferSize int  `json:"playback_buffer_size"`
	InputDeviceID      *int `json:"input_device_id,omitempty"`

	DialTimeout    time.Duration `json:"dial_timeout"`
	MaxDialElapsed time.Duration `json:"max_dial_elapsed"`

	DebugWire  bool `json:"debug_wire"`
	DebugAudio bool `json:"debug_audio"`
}

func NewConfig() *Config {
	c := &Config{
		LiveModel:          defaultLiveModel,
		TextModel:          defaultTextModel,
		LiveEndpoint:       defaultLiveEndpoint,
		TextEndpoint:       defaultTextEndpoint,
		CaptureBufferSize:  4096,
		PlaybackBufferSize: 1024,
		DialTimeout:        10 * time.Second,
		MaxDialElapsed:     30 * time.Second,
	}

	c.loadFromEnv()

	return c
}

func (c *Config) loadFromEnv() {
	// Load .env if exists
	_ = godotenv.Load()

	c.APIKey = os.Getenv("GEMINI_API_KEY")

	if model := os.Getenv("VOICETRADER_LIVE_MODEL"); model != "" {
		c.LiveModel = model
	}
	if model := os.Getenv("VOICETRADER_TEXT_MODEL"); model != "" {
		c.TextModel = model
	}
	if endpoint := os.Getenv("VOICETRADER_LIVE_ENDPOINT"); endpoint != "" {
		c.LiveEndpoint = endpoint
	}
	if endpoint := os.Getenv("VOICETRADER_TEXT_ENDPOINT"); endpoint != "" {
		c.TextEndpoint = endpoint
	}

	if size := os.Getenv("VOICETRADER_CAPTURE_BUFFER"); size != "" {
		if val, err := strconv.Atoi(size); err == nil && val > 0 {
			c.CaptureBufferSize = val
		}
	}
	if size := os.Getenv("VOICETRADER_PLAYBACK_BUFFER"); size != "" {
		if val, err := strconv.Atoi(size); err == nil && val > 0 {
			c.PlaybackBufferSize = val
		}
	}
	if deviceIDStr := os.Getenv("VOICETRADER_INPUT_DEVICE_ID"); deviceIDStr != "" {
		if deviceID, err := strconv.Atoi(deviceIDStr); err == nil {
			c.InputDeviceID = &deviceID
		}
	}

	if timeout := os.Getenv("VOICETRADER_DIAL_TIMEOUT"); timeout != "" {
		if val, err := time.ParseDuration(timeout); err == nil {
			c.DialTimeout = val
		}
	}

	c.DebugWire = os.Getenv("VOICETRADER_DEBUG_WIRE") == "true"
	c.DebugAudio = os.Getenv("VOICETRADER_DEBUG_AUDIO") == "true"
}

// RequireAPIKey is the hard precondition for every AI-backed feature.
func (c *Config) RequireAPIKey() error {
	if c.APIKey == "" {
		return NewConfigurationError("GEMINI_API_KEY is not configured")
	}
	return nil
}

// Validate returns list of issues
func (c *Config) Validate() []string {
	issues := []string{}

	if c.APIKey == "" {
		issues = append(issues, "GEMINI_API_KEY environment variable not set")
	}
	if c.LiveModel == "" {
		issues = append(issues, "Live model name is empty")
	}
	if c.TextModel == "" {
		issues = append(issues, "Text model name is empty")
	}
	if !strings.HasPrefix(c.LiveEndpoint, "ws") {
		issues = append(issues, "Invalid live endpoint format (expected ws:// or wss://)")
	}
	if c.CaptureBufferSize <= 0 {
		issues = append(issues, fmt.Sprintf("Invalid capture buffer size: %d", c.CaptureBufferSize))
	}
	if c.PlaybackBufferSize <= 0 {
		issues = append(issues, fmt.Sprintf("Invalid playback buffer size: %d", c.PlaybackBufferSize))
	}
	if c.DialTimeout <= 0 {
		issues = append(issues, "Dial timeout must be positive")
	}

	return issues
}

func (c *Config) PrintConfig() {
	fmt.Println("Voice Trader Configuration")
	fmt.Println("==================================================")

	if c.APIKey != "" {
		fmt.Printf("API Key: %s...\n", c.APIKey[:min(len(c.APIKey), 8)])
	} else {
		fmt.Println("API Key: NOT SET")
	}

	fmt.Printf("Live Model: %s\n", c.LiveModel)
	fmt.Printf("Text Model: %s\n", c.TextModel)
	fmt.Printf("Live Endpoint: %s\n", c.LiveEndpoint)
	fmt.Printf("Uplink: %d Hz mono PCM16, buffer %d\n", UplinkSampleRate, c.CaptureBufferSize)
	fmt.Printf("Downlink: %d Hz mono PCM16, buffer %d\n", DownlinkSampleRate, c.PlaybackBufferSize)
	fmt.Printf("Dial Timeout: %s\n", c.DialTimeout)
	fmt.Printf("Debug Wire: %t\n", c.DebugWire)
	fmt.Printf("Debug Audio: %t\n", c.DebugAudio)

	if c.InputDeviceID != nil {
		fmt.Printf("Input Device ID: %d\n", *c.InputDeviceID)
	} else {
		fmt.Println("Input Device: Default")
	}
}
