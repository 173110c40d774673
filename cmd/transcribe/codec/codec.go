// Package codec wraps ffmpeg to turn an arbitrary video container into the
// normalized raw audio the transcription engines expect (16KHz mono
// float32 PCM). Container and codec detection is ffmpeg's problem.
package codec

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os/exec"
	"strings"

	"github.com/Artem28102/transcribe/cmd/transcribe/audio"
)

// DecodeError means the input was not a parseable media container or had
// no decodable audio track.
type DecodeError struct {
	Err    error
	Output string
}

func (e *DecodeError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("failed to decode media: %s: %s", e.Err, e.Output)
	}
	return fmt.Sprintf("failed to decode media: %s", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

type FFmpeg struct {
	path       string
	sampleRate int
}

func NewFFmpeg() *FFmpeg {
	return &FFmpeg{
		path:       "ffmpeg",
		sampleRate: audio.SampleRate,
	}
}

// Decode runs the video bytes through ffmpeg, dropping the video stream
// and downmixing/resampling the audio to a single normalized buffer.
func (f *FFmpeg) Decode(ctx context.Context, data []byte) (*audio.Buffer, error) {
	var out, errOut bytes.Buffer

	// ffmpeg -i pipe:0 -vn -ac 1 -ar 16000 -f f32le pipe:1
	cmd := exec.CommandContext(ctx, f.path,
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-vn",
		"-ac", fmt.Sprintf("%d", audio.Channels),
		"-ar", fmt.Sprintf("%d", f.sampleRate),
		"-f", "f32le",
		"pipe:1",
	)
	cmd.Stdin = bytes.NewReader(data)
	cmd.Stdout = &out
	cmd.Stderr = &errOut

	if err := cmd.Run(); err != nil {
		return nil, &DecodeError{Err: err, Output: strings.TrimSpace(errOut.String())}
	}

	samples := samplesFromBytes(out.Bytes())
	if len(samples) == 0 {
		return nil, &DecodeError{Err: fmt.Errorf("no audio track found")}
	}

	buf := audio.NewBuffer(samples, f.sampleRate)

	slog.Debug("decoded audio track",
		slog.Int("samples", buf.NumSamples()),
		slog.Duration("duration", buf.Duration()))

	return buf, nil
}

// samplesFromBytes reinterprets little-endian f32le PCM bytes as samples.
// A trailing partial sample (truncated ffmpeg output) is dropped.
func samplesFromBytes(data []byte) []float32 {
	samples := make([]float32, 0, len(data)/4)
	for i := 0; i+4 <= len(data); i += 4 {
		samples = append(samples, math.Float32frombits(binary.LittleEndian.Uint32(data[i:i+4])))
	}
	return samples
}
