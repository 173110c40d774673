// Package vad finds silence-aligned cut points for the segmenter using the
// Silero voice activity detection model, so chunk boundaries avoid
// splitting words in half.
package vad

import (
	"fmt"

	"github.com/streamer45/silero-vad-go/speech"
)

const (
	vadWindowSizeInSamples  = 512
	vadThreshold            = 0.5
	vadMinSilenceDurationMs = 150
	vadMinSpeechDurationMs  = 200
	vadSilencePadMs         = 32
)

type Config struct {
	// Path to the silero_vad.onnx model file.
	ModelPath  string
	SampleRate int
}

func (c Config) IsValid() error {
	if c.ModelPath == "" {
		return fmt.Errorf("invalid ModelPath: should not be empty")
	}

	if c.SampleRate <= 0 {
		return fmt.Errorf("invalid SampleRate: should be a positive number")
	}

	return nil
}

// Region is a detected span of speech, in sample offsets.
type Region struct {
	Start int
	End   int
}

type Processor struct {
	cfg Config
	sd  *speech.Detector
}

func NewProcessor(cfg Config) (*Processor, error) {
	if err := cfg.IsValid(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}

	sd, err := speech.NewDetector(speech.DetectorConfig{
		ModelPath:            cfg.ModelPath,
		SampleRate:           cfg.SampleRate,
		WindowSize:           vadWindowSizeInSamples,
		Threshold:            vadThreshold,
		MinSilenceDurationMs: vadMinSilenceDurationMs,
		MinSpeechDurationMs:  vadMinSpeechDurationMs,
		SilencePadMs:         vadSilencePadMs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create speech detector: %w", err)
	}

	return &Processor{
		cfg: cfg,
		sd:  sd,
	}, nil
}

func (p *Processor) Destroy() error {
	if p.sd == nil {
		return fmt.Errorf("processor is not initialized")
	}
	err := p.sd.Destroy()
	p.sd = nil
	return err
}

// SpeechRegions runs the detector over the whole buffer and returns the
// detected speech spans in ascending order.
func (p *Processor) SpeechRegions(samples []float32) ([]Region, error) {
	if p.sd == nil {
		return nil, fmt.Errorf("processor is not initialized")
	}

	segments, err := p.sd.Detect(samples)
	if err != nil {
		return nil, fmt.Errorf("failed to detect speech: %w", err)
	}

	regions := make([]Region, 0, len(segments))
	for _, s := range segments {
		end := int(s.SpeechEndAt * float64(p.cfg.SampleRate))
		if end <= 0 || end > len(samples) {
			// An open-ended segment (speech running into the end of the
			// buffer) reports a zero end time.
			end = len(samples)
		}
		regions = append(regions, Region{
			Start: int(s.SpeechStartAt * float64(p.cfg.SampleRate)),
			End:   end,
		})
	}

	return regions, nil
}

// CutPoints picks silence-aligned chunk boundaries: walking the buffer in
// strides of chunkSamples, each boundary is pulled back to the midpoint of
// the last silence gap within lookback samples of the stride end. When no
// gap is close enough the boundary stays at the stride end, so chunks
// never exceed chunkSamples and coverage stays gapless.
func CutPoints(regions []Region, total, chunkSamples, lookback int) []int {
	if total <= 0 || chunkSamples <= 0 {
		return nil
	}
	if lookback >= chunkSamples {
		lookback = chunkSamples - 1
	}

	// Candidate cuts are the midpoints of the silences between speech regions.
	var candidates []int
	prevEnd := 0
	for _, r := range regions {
		if r.Start > prevEnd {
			candidates = append(candidates, prevEnd+(r.Start-prevEnd)/2)
		}
		if r.End > prevEnd {
			prevEnd = r.End
		}
	}

	var cuts []int
	pos := 0
	ci := 0
	for pos+chunkSamples < total {
		limit := pos + chunkSamples

		for ci < len(candidates) && candidates[ci] <= pos {
			ci++
		}

		// Pick the last silence midpoint inside the stride that is still
		// within the lookback window.
		cut := limit
		for j := ci; j < len(candidates) && candidates[j] <= limit; j++ {
			if candidates[j] >= limit-lookback {
				cut = candidates[j]
			}
		}

		cuts = append(cuts, cut)
		pos = cut
	}

	return cuts
}
