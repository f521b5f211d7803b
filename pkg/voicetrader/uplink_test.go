package voicetrader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantizePCM16(t *testing.T) {
	out := quantizePCM16([]float32{0, 0.5, -0.5, -1.0})

	require.Len(t, out, 4)
	assert.Equal(t, int16(0), out[0])
	assert.Equal(t, int16(16384), out[1])
	assert.Equal(t, int16(-16384), out[2])
	assert.Equal(t, int16(-32768), out[3])
}

func TestQuantizePCM16WrapsOutOfRange(t *testing.T) {
	// Full-scale positive maps to 32768, which wraps at the integer width.
	out := quantizePCM16([]float32{1.0})
	assert.Equal(t, int16(-32768), out[0])
}

func TestPCM16BytesLittleEndian(t *testing.T) {
	out := pcm16Bytes([]int16{0x0102, -1})
	assert.Equal(t, []byte{0x02, 0x01, 0xFF, 0xFF}, out)
}

func TestPCMRoundTrip(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768, 1234}
	assert.Equal(t, samples, decodePCM16(pcm16Bytes(samples)))
}

func TestDecodePCM16DropsTrailingByte(t *testing.T) {
	out := decodePCM16([]byte{0x01, 0x00, 0xFF})
	assert.Equal(t, []int16{1}, out)
}
