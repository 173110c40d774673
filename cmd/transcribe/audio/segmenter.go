package audio

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidChunkDuration = errors.New("chunk duration should be a positive duration")

// Chunk is a contiguous slice of a decoded audio buffer, the atomic unit
// of transcription. Samples aliases the source buffer, so a chunk must be
// treated as read-only.
type Chunk struct {
	Index      int
	Offset     time.Duration
	Samples    []float32
	SampleRate int
}

func (c Chunk) Duration() time.Duration {
	if c.SampleRate == 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}

// StartMs returns the chunk's start offset in milliseconds.
func (c Chunk) StartMs() int64 {
	return c.Offset.Milliseconds()
}

// Segmenter walks a buffer in strides of at most chunkDuration and hands
// out one chunk at a time. The produced sequence covers the buffer exactly
// once, in order, with no gaps and no overlaps; only the last chunk may be
// shorter than chunkDuration.
type Segmenter struct {
	buf          *Buffer
	chunkSamples int
	cuts         []int
	pos          int
	idx          int
}

// NewSegmenter returns a segmenter producing fixed-duration chunks.
func NewSegmenter(buf *Buffer, chunkDuration time.Duration) (*Segmenter, error) {
	return NewSegmenterWithCuts(buf, chunkDuration, nil)
}

// NewSegmenterWithCuts returns a segmenter that additionally snaps chunk
// boundaries to the given ascending sample offsets (e.g. silence points
// found by VAD) whenever one falls inside the current stride. Every chunk
// still spans at most chunkDuration and coverage stays gapless.
func NewSegmenterWithCuts(buf *Buffer, chunkDuration time.Duration, cuts []int) (*Segmenter, error) {
	if chunkDuration <= 0 {
		return nil, ErrInvalidChunkDuration
	}

	chunkSamples := int(int64(chunkDuration) * int64(buf.SampleRate) / int64(time.Second))
	if chunkSamples <= 0 {
		return nil, ErrInvalidChunkDuration
	}

	for i := 1; i < len(cuts); i++ {
		if cuts[i] <= cuts[i-1] {
			return nil, fmt.Errorf("cut points should be in ascending order")
		}
	}

	return &Segmenter{
		buf:          buf,
		chunkSamples: chunkSamples,
		cuts:         cuts,
	}, nil
}

// Next returns the next chunk in the sequence. The second return value is
// false once the buffer is exhausted.
func (s *Segmenter) Next() (Chunk, bool) {
	total := len(s.buf.Samples)
	if s.pos >= total {
		return Chunk{}, false
	}

	end := s.pos + s.chunkSamples

	// Drop cut points we already passed, then snap to the first one that
	// lands strictly inside the stride.
	for len(s.cuts) > 0 && s.cuts[0] <= s.pos {
		s.cuts = s.cuts[1:]
	}
	if len(s.cuts) > 0 && s.cuts[0] < end {
		end = s.cuts[0]
		s.cuts = s.cuts[1:]
	}

	if end > total {
		end = total
	}

	c := Chunk{
		Index:      s.idx,
		Offset:     time.Duration(s.pos) * time.Second / time.Duration(s.buf.SampleRate),
		Samples:    s.buf.Samples[s.pos:end],
		SampleRate: s.buf.SampleRate,
	}

	s.pos = end
	s.idx++

	return c, true
}

// NumChunks returns how many chunks a full pass will produce. It does not
// consume the sequence.
func (s *Segmenter) NumChunks() int {
	total := len(s.buf.Samples)
	if len(s.cuts) == 0 {
		return (total - s.pos + s.chunkSamples - 1) / s.chunkSamples
	}

	n := 0
	pos := s.pos
	cuts := s.cuts
	for pos < total {
		end := pos + s.chunkSamples
		for len(cuts) > 0 && cuts[0] <= pos {
			cuts = cuts[1:]
		}
		if len(cuts) > 0 && cuts[0] < end {
			end = cuts[0]
			cuts = cuts[1:]
		}
		if end > total {
			end = total
		}
		pos = end
		n++
	}

	return n
}
