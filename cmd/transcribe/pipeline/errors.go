package pipeline

import (
	"errors"
	"fmt"
)

// ErrAllChunksFailed is returned by Run when no chunk could be
// transcribed; no output file is written in that case.
var ErrAllChunksFailed = errors.New("transcription failed for all chunks")

// DownloadError means the video could not be fetched.
type DownloadError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *DownloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to download video from %s: %s", e.URL, e.Err)
	}
	return fmt.Sprintf("failed to download video from %s: unexpected status code %d", e.URL, e.StatusCode)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}
