package transcribe

import (
	"errors"
	"fmt"
	"strings"
)

// ChunkResult is the outcome of transcribing a single audio chunk.
// A failed chunk carries its error and no text.
type ChunkResult struct {
	Index    int
	StartTS  int64
	EndTS    int64
	Segments []Segment
	Err      error
}

// Text returns the chunk's transcribed text with segment texts joined and
// surrounding whitespace trimmed (whisper segments come with a leading space).
func (r ChunkResult) Text() string {
	var sb strings.Builder
	for _, s := range r.Segments {
		sb.WriteString(s.Text)
	}
	return strings.TrimSpace(sb.String())
}

// Transcription is the ordered sequence of per-chunk results, indexed by
// chunk. Order is guaranteed by the orchestrator regardless of how many
// workers produced the results.
type Transcription []ChunkResult

// FailedChunks returns the indices of chunks whose transcription failed,
// in ascending order.
func (t Transcription) FailedChunks() []int {
	var failed []int
	for _, r := range t {
		if r.Err != nil {
			failed = append(failed, r.Index)
		}
	}
	return failed
}

// Err returns nil if at least one chunk succeeded (or the sequence is
// empty). When every chunk failed there is no usable output, so the
// per-chunk errors are joined and returned.
func (t Transcription) Err() error {
	if len(t) == 0 {
		return nil
	}

	errs := make([]error, 0, len(t))
	for _, r := range t {
		if r.Err == nil {
			return nil
		}
		errs = append(errs, fmt.Errorf("chunk %d: %w", r.Index, r.Err))
	}

	return errors.Join(errs...)
}
