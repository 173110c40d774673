package transcribe

// Transcriber is the opaque speech-to-text engine: one call converts a
// chunk's samples (16KHz mono float32 PCM) into text segments. The engine
// is expensive to initialize and is reused across calls; implementations
// hold no per-call mutable state observable to the caller. Retrying is the
// caller's job.
type Transcriber interface {
	Transcribe(samples []float32) ([]Segment, error)
	Destroy() error
}

// Segment is a piece of transcribed text with timestamps relative to the
// start of the audio that was passed to Transcribe, in milliseconds.
type Segment struct {
	Text    string
	StartTS int64
	EndTS   int64
}
