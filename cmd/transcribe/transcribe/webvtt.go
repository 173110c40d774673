package transcribe

import (
	"fmt"
	"html"
	"io"
)

// vttTS converts ts milliseconds in the 00:00:00.000 format.
func vttTS(ts int64) string {
	sMs := int64(1000)
	mMs := 60 * sMs
	hMs := 60 * mMs

	h := ts / hMs
	m := (ts - (h * hMs)) / mMs
	s := ((ts - (h * hMs)) - m*mMs) / sMs
	ms := ((ts - (h * hMs)) - m*mMs) - s*sMs

	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

// WebVTT writes the transcript as WebVTT cues. Segment timestamps are
// relative to their chunk, so each cue is shifted by the chunk's start
// offset to get absolute timings.
func (t Transcription) WebVTT(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "WEBVTT\n"); err != nil {
		return fmt.Errorf("failed to write: %w", err)
	}

	for _, r := range t {
		if r.Err != nil {
			continue
		}

		for _, s := range r.Segments {
			_, err := fmt.Fprintf(w, "\n%s --> %s\n", vttTS(r.StartTS+s.StartTS), vttTS(r.StartTS+s.EndTS))
			if err != nil {
				return fmt.Errorf("failed to write: %w", err)
			}
			if _, err := fmt.Fprintf(w, "%s\n", html.EscapeString(s.Text)); err != nil {
				return fmt.Errorf("failed to write: %w", err)
			}
		}
	}

	return nil
}
