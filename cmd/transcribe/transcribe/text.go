package transcribe

import (
	"fmt"
	"io"
)

// Text writes the plain-text transcript: each successful chunk's text on
// its own line, in chunk order. Failed chunks are skipped, leaving a gap
// the caller can surface through FailedChunks.
func (t Transcription) Text(w io.Writer) error {
	for _, r := range t {
		if r.Err != nil {
			continue
		}

		if _, err := fmt.Fprintf(w, "%s\n", r.Text()); err != nil {
			return fmt.Errorf("failed to write: %w", err)
		}
	}

	return nil
}
