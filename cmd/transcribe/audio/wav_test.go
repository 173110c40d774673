package audio

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeWAV(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 0.25}
	data := EncodeWAV(samples, SampleRate)

	require.Len(t, data, wavHeaderLen+len(samples)*2)
	require.Equal(t, "RIFF", string(data[0:4]))
	require.Equal(t, "WAVE", string(data[8:12]))
	require.Equal(t, uint16(1), binary.LittleEndian.Uint16(data[20:]))
	require.Equal(t, uint16(Channels), binary.LittleEndian.Uint16(data[22:]))
	require.Equal(t, uint32(SampleRate), binary.LittleEndian.Uint32(data[24:]))
	require.Equal(t, uint16(bitDepth), binary.LittleEndian.Uint16(data[34:]))
	require.Equal(t, uint32(len(samples)*2), binary.LittleEndian.Uint32(data[40:]))
}

func TestDecodeWAV(t *testing.T) {
	t.Run("too short", func(t *testing.T) {
		buf, err := DecodeWAV([]byte("RIFF"))
		require.Error(t, err)
		require.Nil(t, buf)
	})

	t.Run("bad magic", func(t *testing.T) {
		data := EncodeWAV([]float32{0}, SampleRate)
		data[0] = 'X'
		buf, err := DecodeWAV(data)
		require.Error(t, err)
		require.Nil(t, buf)
	})

	t.Run("stereo rejected", func(t *testing.T) {
		data := EncodeWAV([]float32{0}, SampleRate)
		binary.LittleEndian.PutUint16(data[22:], 2)
		buf, err := DecodeWAV(data)
		require.Error(t, err)
		require.Nil(t, buf)
	})

	t.Run("round trip", func(t *testing.T) {
		// Values exactly representable at 16-bit depth survive the trip.
		samples := []float32{0, 0.5, -0.5, 0.25, -0.25}
		buf, err := DecodeWAV(EncodeWAV(samples, SampleRate))
		require.NoError(t, err)
		require.Equal(t, SampleRate, buf.SampleRate)
		require.Equal(t, samples, buf.Samples)
	})

	t.Run("out of range samples are clamped", func(t *testing.T) {
		buf, err := DecodeWAV(EncodeWAV([]float32{1.0, 2.0, -1.0, -1.5}, SampleRate))
		require.NoError(t, err)
		require.Equal(t, []float32{32767.0 / 32768.0, 32767.0 / 32768.0, -1.0, -1.0}, buf.Samples)
	})
}
