package voicetrader

import (
	"encoding/binary"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// decodePCM16 deserializes little-endian PCM16 bytes into samples. A
// trailing odd byte is dropped.
func decodePCM16(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2 : i*2+2]))
	}
	return samples
}

type scheduledBuffer struct {
	start int64 // absolute output-clock sample position
	pcm   []int16
}

// PlaybackScheduler chains decoded synthesized-audio chunks back-to-back on
// a single 24 kHz mono output stream. The stream's sample counter is the
// output clock; the cursor marks the next scheduled start and never
// regresses:
//
//	startAt = max(cursor, now)
//	cursor  = startAt + len(chunk)
//
// Chunks are assumed to arrive in generation order; no reordering is done.
type PlaybackScheduler struct {
	mu      sync.Mutex
	played  int64 // samples handed to the device so far
	cursor  int64 // next scheduled start
	pending []scheduledBuffer
	stream  *portaudio.Stream
	logger  *Logger
}

// newPlaybackScheduler opens the default output device without starting it.
func newPlaybackScheduler(cfg *Config) (*PlaybackScheduler, error) {
	ps := &PlaybackScheduler{logger: GetGlobalLogger().WithComponent("playback")}

	stream, err := portaudio.OpenDefaultStream(0, 1, float64(DownlinkSampleRate), cfg.PlaybackBufferSize, ps.fill)
	if err != nil {
		return nil, WrapError(err, "could not open audio output", ErrCodeAudioDevice)
	}
	ps.stream = stream
	return ps, nil
}

func (ps *PlaybackScheduler) Start() error {
	if ps.stream == nil {
		return nil
	}
	if err := ps.stream.Start(); err != nil {
		return WrapError(err, "could not start audio output", ErrCodeAudioDevice)
	}
	return nil
}

// Close stops the output stream and drops anything still scheduled.
func (ps *PlaybackScheduler) Close() error {
	ps.mu.Lock()
	ps.pending = nil
	stream := ps.stream
	ps.stream = nil
	ps.mu.Unlock()

	if stream == nil {
		return nil
	}

	var firstErr error
	if err := stream.Stop(); err != nil {
		firstErr = err
		ps.logger.WithError(err).Warn("Failed to stop playback stream")
	}
	if err := stream.Close(); err != nil {
		if firstErr == nil {
			firstErr = err
		}
		ps.logger.WithError(err).Warn("Failed to close playback stream")
	}

	if firstErr != nil {
		return WrapError(firstErr, "playback release failed", ErrCodeAudioDevice)
	}
	return nil
}

// Schedule queues one decoded chunk for gapless sequential playback and
// returns its absolute start position in samples.
func (ps *PlaybackScheduler) Schedule(pcm []int16) int64 {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	startAt := ps.cursor
	if ps.played > startAt {
		startAt = ps.played
	}
	ps.pending = append(ps.pending, scheduledBuffer{start: startAt, pcm: pcm})
	ps.cursor = startAt + int64(len(pcm))
	return startAt
}

// fill is the output-stream callback: it renders every scheduled buffer
// overlapping the current window and advances the clock, padding with
// silence where nothing is scheduled yet.
func (ps *PlaybackScheduler) fill(out []int16) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	for i := range out {
		out[i] = 0
	}

	windowStart := ps.played
	windowEnd := windowStart + int64(len(out))

	remaining := ps.pending[:0]
	for _, buf := range ps.pending {
		bufEnd := buf.start + int64(len(buf.pcm))
		if bufEnd <= windowStart {
			continue // fully played
		}
		if buf.start < windowEnd {
			from := windowStart - buf.start
			if from < 0 {
				from = 0
			}
			to := windowEnd - buf.start
			if to > int64(len(buf.pcm)) {
				to = int64(len(buf.pcm))
			}
			copy(out[buf.start+from-windowStart:], buf.pcm[from:to])
		}
		remaining = append(remaining, buf)
	}
	ps.pending = remaining
	ps.played = windowEnd
}

// Cursor reports the next scheduled start position in samples.
func (ps *PlaybackScheduler) Cursor() int64 {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.cursor
}

// PendingChunks reports how many scheduled buffers are not fully played yet.
func (ps *PlaybackScheduler) PendingChunks() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return len(ps.pending)
}
