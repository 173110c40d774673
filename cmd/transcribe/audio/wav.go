package audio

import (
	"encoding/binary"
	"fmt"
)

const (
	wavHeaderLen = 44
	bitDepth     = 16
)

// EncodeWAV wraps float32 samples in a WAV container (16-bit PCM, mono).
// Used by the HTTP-backed transcription engines which expect a file upload
// rather than raw samples.
func EncodeWAV(samples []float32, sampleRate int) []byte {
	wav := make([]byte, wavHeaderLen+len(samples)*2)
	pcm := wav[wavHeaderLen:]

	wav[0] = 'R'
	wav[1] = 'I'
	wav[2] = 'F'
	wav[3] = 'F'
	binary.LittleEndian.PutUint32(wav[4:], uint32(len(wav)-8))
	wav[8] = 'W'
	wav[9] = 'A'
	wav[10] = 'V'
	wav[11] = 'E'
	wav[12] = 'f'
	wav[13] = 'm'
	wav[14] = 't'
	wav[15] = ' '
	binary.LittleEndian.PutUint32(wav[16:], 16)
	binary.LittleEndian.PutUint16(wav[20:], 1)
	binary.LittleEndian.PutUint16(wav[22:], Channels)
	binary.LittleEndian.PutUint32(wav[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(wav[28:], uint32((sampleRate*bitDepth*Channels)/8))
	binary.LittleEndian.PutUint16(wav[32:], (bitDepth*Channels)/8)
	binary.LittleEndian.PutUint16(wav[34:], bitDepth)
	wav[36] = 'd'
	wav[37] = 'a'
	wav[38] = 't'
	wav[39] = 'a'
	binary.LittleEndian.PutUint32(wav[40:], uint32(len(samples)*2))

	for i, s := range samples {
		// Clamp before converting: out-of-range float to integer
		// conversions are implementation-dependent.
		v := s * 32768.0
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(v)))
	}

	return wav
}

// DecodeWAV converts WAV data (16-bit PCM, mono) back into a buffer.
func DecodeWAV(data []byte) (*Buffer, error) {
	if len(data) < wavHeaderLen {
		return nil, fmt.Errorf("data too short to be a valid WAV file")
	}

	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("invalid WAV header")
	}

	if format := binary.LittleEndian.Uint16(data[20:]); format != 1 {
		return nil, fmt.Errorf("unsupported audio format: %d", format)
	}

	if channels := binary.LittleEndian.Uint16(data[22:]); channels != Channels {
		return nil, fmt.Errorf("unsupported channels count: %d", channels)
	}

	if depth := binary.LittleEndian.Uint16(data[34:]); depth != bitDepth {
		return nil, fmt.Errorf("unsupported bit depth: %d", depth)
	}

	rate := binary.LittleEndian.Uint32(data[24:])

	pcm := data[wavHeaderLen:]
	if len(pcm)%2 != 0 {
		return nil, fmt.Errorf("invalid WAV data length (not divisible by 2)")
	}

	samples := make([]float32, len(pcm)/2)
	for i := range samples {
		samples[i] = float32(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / 32768.0
	}

	return NewBuffer(samples, int(rate)), nil
}
