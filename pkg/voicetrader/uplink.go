package voicetrader

import (
	"bytes"
	"encoding/binary"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// quantizePCM16 converts captured float32 samples (nominally in [-1, 1]) to
// 16-bit signed integers with sample * 32768. No clamping is performed:
// transient values outside [-1, 1] wrap at the integer width. Accepted lossy
// edge case.
func quantizePCM16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, sample := range samples {
		out[i] = int16(int32(sample * 32768))
	}
	return out
}

// pcm16Bytes serializes samples as little-endian PCM16.
func pcm16Bytes(samples []int16) []byte {
	buf := new(bytes.Buffer)
	buf.Grow(len(samples) * 2)
	binary.Write(buf, binary.LittleEndian, samples)
	return buf.Bytes()
}

// micCapture owns the portaudio input stream for one session: 16 kHz mono
// float32 frames delivered to the registered callback in capture order.
type micCapture struct {
	stream  *portaudio.Stream
	logger  *Logger
	mu      sync.Mutex
	running bool
}

// newMicCapture opens the default input device without starting it. An open
// failure means the microphone is denied or unavailable.
func newMicCapture(cfg *Config, onFrame func([]float32)) (*micCapture, error) {
	mc := &micCapture{logger: GetGlobalLogger().WithComponent("mic-capture")}

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(UplinkSampleRate), cfg.CaptureBufferSize, func(in []float32) {
		if onFrame != nil {
			onFrame(in)
		}
	})
	if err != nil {
		return nil, WrapError(err, "could not access microphone", ErrCodePermission)
	}

	mc.stream = stream
	return mc, nil
}

func (mc *micCapture) Start() error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if mc.running {
		return nil
	}
	if err := mc.stream.Start(); err != nil {
		return WrapError(err, "could not start microphone capture", ErrCodePermission)
	}
	mc.running = true
	mc.logger.Debug("Microphone capture started")
	return nil
}

// Stop halts capture and releases the device. Idempotent; both steps are
// attempted even if the first fails.
func (mc *micCapture) Stop() error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if mc.stream == nil {
		return nil
	}

	var firstErr error
	if mc.running {
		if err := mc.stream.Stop(); err != nil {
			firstErr = err
			mc.logger.WithError(err).Warn("Failed to stop capture stream")
		}
		mc.running = false
	}
	if err := mc.stream.Close(); err != nil {
		if firstErr == nil {
			firstErr = err
		}
		mc.logger.WithError(err).Warn("Failed to close capture stream")
	}
	mc.stream = nil

	if firstErr != nil {
		return WrapError(firstErr, "capture release failed", ErrCodeAudioDevice)
	}
	return nil
}
