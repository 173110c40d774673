package audio

import (
	"time"
)

const (
	SampleRate   = 16000 // 16KHz is what Whisper requires
	Channels     = 1     // Only mono supported for now
	SamplesPerMs = SampleRate / 1000
)

// Buffer holds a fully decoded audio track as raw float32 PCM samples.
// It is produced once per video by the codec and is read-only afterwards:
// the segmenter hands out sub-slices of Samples without copying.
type Buffer struct {
	Samples    []float32
	SampleRate int
}

func NewBuffer(samples []float32, rate int) *Buffer {
	return &Buffer{
		Samples:    samples,
		SampleRate: rate,
	}
}

func (b *Buffer) NumSamples() int {
	return len(b.Samples)
}

func (b *Buffer) Duration() time.Duration {
	if b.SampleRate == 0 {
		return 0
	}
	return time.Duration(len(b.Samples)) * time.Second / time.Duration(b.SampleRate)
}
