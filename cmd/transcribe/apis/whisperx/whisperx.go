// Package whisperx shells out to the whisperx CLI, for setups where a
// local whisper install is preferred over cgo bindings or a remote API.
package whisperx

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Artem28102/transcribe/cmd/transcribe/audio"
	"github.com/Artem28102/transcribe/cmd/transcribe/transcribe"

	"github.com/shopspring/decimal"
)

type transcribeResult struct {
	Segments []segment `json:"segments"`
}

type segment struct {
	Text  string          `json:"text"`
	Start decimal.Decimal `json:"start"`
	End   decimal.Decimal `json:"end"`
}

type Config struct {
	// Path to the whisperx binary (defaults to looking it up in PATH).
	BinPath string
	// Model name passed through to whisperx (empty uses its default).
	Model string
	// Language to use (defaults to autodetection).
	Language string
}

func (c *Config) SetDefaults() {
	if c.BinPath == "" {
		c.BinPath = "whisperx"
	}
}

type Transcriber struct {
	cfg Config
}

func NewTranscriber(cfg Config) (*Transcriber, error) {
	cfg.SetDefaults()

	if _, err := exec.LookPath(cfg.BinPath); err != nil {
		return nil, fmt.Errorf("whisperx binary not found: %w", err)
	}

	return &Transcriber{cfg: cfg}, nil
}

// Transcribe writes the chunk to a temporary WAV file, runs whisperx on
// it and parses the JSON result it leaves next to the input.
func (t *Transcriber) Transcribe(samples []float32) ([]transcribe.Segment, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("samples should not be empty")
	}

	dir, err := os.MkdirTemp("", "transcribe-whisperx-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	wavPath := filepath.Join(dir, "chunk.wav")
	if err := os.WriteFile(wavPath, audio.EncodeWAV(samples, audio.SampleRate), 0600); err != nil {
		return nil, fmt.Errorf("failed to write audio file: %w", err)
	}

	args := []string{"--output_format", "json", "--output_dir", dir}
	if t.cfg.Model != "" {
		args = append(args, "--model", t.cfg.Model)
	}
	if t.cfg.Language != "" {
		args = append(args, "--language", t.cfg.Language)
	}
	args = append(args, wavPath)

	cmd := exec.Command(t.cfg.BinPath, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start whisperx: %w", err)
	}

	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		slog.Debug("whisperx", slog.String("line", scanner.Text()))
	}

	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("whisperx failed: %w", err)
	}

	resultPath := strings.TrimSuffix(wavPath, filepath.Ext(wavPath)) + ".json"
	f, err := os.Open(resultPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open whisperx result: %w", err)
	}
	defer f.Close()

	var res transcribeResult
	if err := json.NewDecoder(f).Decode(&res); err != nil {
		return nil, fmt.Errorf("failed to decode whisperx result: %w", err)
	}

	return segmentsFromResult(res), nil
}

func segmentsFromResult(res transcribeResult) []transcribe.Segment {
	msMultiplier := decimal.NewFromInt(1000)

	segments := make([]transcribe.Segment, len(res.Segments))
	for i, s := range res.Segments {
		segments[i] = transcribe.Segment{
			Text:    s.Text,
			StartTS: s.Start.Mul(msMultiplier).IntPart(),
			EndTS:   s.End.Mul(msMultiplier).IntPart(),
		}
	}

	return segments
}

func (t *Transcriber) Destroy() error {
	return nil
}
