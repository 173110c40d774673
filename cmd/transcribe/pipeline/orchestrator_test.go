package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Artem28102/transcribe/cmd/transcribe/audio"
	"github.com/Artem28102/transcribe/cmd/transcribe/config"
	"github.com/Artem28102/transcribe/cmd/transcribe/transcribe"
)

func newSegmenter(t *testing.T, buf *audio.Buffer, chunkDuration time.Duration) *audio.Segmenter {
	t.Helper()
	s, err := audio.NewSegmenter(buf, chunkDuration)
	require.NoError(t, err)
	return s
}

func transcriptTexts(tr transcribe.Transcription) []string {
	texts := make([]string, len(tr))
	for i, r := range tr {
		texts[i] = r.Text()
	}
	return texts
}

func TestTranscribeChunksSequential(t *testing.T) {
	buf := secondsBuffer(65)

	t.Run("results are ordered and timestamped", func(t *testing.T) {
		p := testPipeline(testConfig(t, "https://example.com/v.mp4"), nil, func() (transcribe.Transcriber, error) {
			return &fakeEngine{}, nil
		})

		tr, err := p.transcribeChunks(context.Background(), newSegmenter(t, buf, 30*time.Second))
		require.NoError(t, err)
		require.Len(t, tr, 3)

		require.Equal(t, []string{"s0", "s30", "s60"}, transcriptTexts(tr))
		require.Equal(t, int64(30000), tr[1].StartTS)
		require.Equal(t, int64(60000), tr[1].EndTS)
		require.Equal(t, int64(65000), tr[2].EndTS)
	})

	t.Run("engine is destroyed", func(t *testing.T) {
		var destroyed atomic.Int32
		p := testPipeline(testConfig(t, "https://example.com/v.mp4"), nil, func() (transcribe.Transcriber, error) {
			return &fakeEngine{destroyed: &destroyed}, nil
		})

		_, err := p.transcribeChunks(context.Background(), newSegmenter(t, buf, 30*time.Second))
		require.NoError(t, err)
		require.Equal(t, int32(1), destroyed.Load())
	})

	t.Run("engine creation failure", func(t *testing.T) {
		p := testPipeline(testConfig(t, "https://example.com/v.mp4"), nil, func() (transcribe.Transcriber, error) {
			return nil, errors.New("model file not found")
		})

		tr, err := p.transcribeChunks(context.Background(), newSegmenter(t, buf, 30*time.Second))
		require.Nil(t, tr)
		require.ErrorContains(t, err, "failed to create transcriber")
	})

	t.Run("canceled context", func(t *testing.T) {
		p := testPipeline(testConfig(t, "https://example.com/v.mp4"), nil, func() (transcribe.Transcriber, error) {
			return &fakeEngine{}, nil
		})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		tr, err := p.transcribeChunks(ctx, newSegmenter(t, buf, 30*time.Second))
		require.Nil(t, tr)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestTranscribeChunksConcurrent(t *testing.T) {
	t.Run("order matches sequential", func(t *testing.T) {
		buf := secondsBuffer(20)

		run := func(workers int) []string {
			cfg := testConfig(t, "https://example.com/v.mp4")
			cfg.NumWorkers = workers

			// Uneven per-engine delays make out-of-order completions likely.
			var created atomic.Int32
			p := testPipeline(cfg, nil, func() (transcribe.Transcriber, error) {
				return &fakeEngine{delay: time.Duration(created.Add(1)) * 2 * time.Millisecond}, nil
			})

			tr, err := p.transcribeChunks(context.Background(), newSegmenter(t, buf, time.Second))
			require.NoError(t, err)
			return transcriptTexts(tr)
		}

		require.Equal(t, run(1), run(4))
	})

	t.Run("all workers get their own engine", func(t *testing.T) {
		cfg := testConfig(t, "https://example.com/v.mp4")
		cfg.NumWorkers = 4

		var created, destroyed atomic.Int32
		p := testPipeline(cfg, nil, func() (transcribe.Transcriber, error) {
			created.Add(1)
			return &fakeEngine{destroyed: &destroyed}, nil
		})

		_, err := p.transcribeChunks(context.Background(), newSegmenter(t, secondsBuffer(20), time.Second))
		require.NoError(t, err)
		require.Equal(t, int32(4), created.Load())
		require.Equal(t, int32(4), destroyed.Load())
	})

	t.Run("partial engine creation failure cleans up", func(t *testing.T) {
		cfg := testConfig(t, "https://example.com/v.mp4")
		cfg.NumWorkers = 4

		var created, destroyed atomic.Int32
		p := testPipeline(cfg, nil, func() (transcribe.Transcriber, error) {
			if created.Load() == 2 {
				return nil, errors.New("model file not found")
			}
			created.Add(1)
			return &fakeEngine{destroyed: &destroyed}, nil
		})

		tr, err := p.transcribeChunks(context.Background(), newSegmenter(t, secondsBuffer(20), time.Second))
		require.Nil(t, tr)
		require.ErrorContains(t, err, "failed to create transcriber")
		require.Equal(t, int32(2), destroyed.Load())
	})

	t.Run("failures stay isolated", func(t *testing.T) {
		cfg := testConfig(t, "https://example.com/v.mp4")
		cfg.NumWorkers = 3

		p := testPipeline(cfg, nil, func() (transcribe.Transcriber, error) {
			return &fakeEngine{failOnSecs: map[int]bool{5: true, 12: true}}, nil
		})

		tr, err := p.transcribeChunks(context.Background(), newSegmenter(t, secondsBuffer(20), time.Second))
		require.NoError(t, err)
		require.Len(t, tr, 20)
		require.Equal(t, []int{5, 12}, tr.FailedChunks())

		for i, r := range tr {
			require.Equal(t, i, r.Index)
			if r.Err == nil {
				require.Equal(t, fmt.Sprintf("s%d", i), r.Text())
			}
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		cfg := testConfig(t, "https://example.com/v.mp4")
		cfg.NumWorkers = 2

		p := testPipeline(cfg, nil, func() (transcribe.Transcriber, error) {
			return &fakeEngine{}, nil
		})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		tr, err := p.transcribeChunks(ctx, newSegmenter(t, secondsBuffer(20), time.Second))
		require.Nil(t, tr)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestCacheEngineID(t *testing.T) {
	cfg := testConfig(t, "https://example.com/v.mp4")
	cfg.Language = "en"
	base := testPipeline(cfg, nil, nil).cacheEngineID()

	t.Run("deterministic", func(t *testing.T) {
		require.Equal(t, base, testPipeline(cfg, nil, nil).cacheEngineID())
	})

	t.Run("depends on language", func(t *testing.T) {
		other := cfg
		other.Language = "fr"
		require.NotEqual(t, base, testPipeline(other, nil, nil).cacheEngineID())
	})

	t.Run("depends on model size", func(t *testing.T) {
		other := cfg
		other.ModelSize = config.ModelSizeLarge
		require.NotEqual(t, base, testPipeline(other, nil, nil).cacheEngineID())
	})

	t.Run("depends on openai model", func(t *testing.T) {
		first := cfg
		first.TranscribeAPI = config.TranscribeAPIOpenAIWhisper
		first.OpenAI.Model = "whisper-1"

		second := first
		second.OpenAI.Model = "gpt-4o-transcribe"

		require.NotEqual(t,
			testPipeline(first, nil, nil).cacheEngineID(),
			testPipeline(second, nil, nil).cacheEngineID())
	})
}

func TestTranscribeWithTimeout(t *testing.T) {
	samples := []float32{0}

	t.Run("disabled", func(t *testing.T) {
		segments, err := transcribeWithTimeout(&fakeEngine{}, samples, 0)
		require.NoError(t, err)
		require.Len(t, segments, 1)
	})

	t.Run("within limit", func(t *testing.T) {
		segments, err := transcribeWithTimeout(&fakeEngine{delay: time.Millisecond}, samples, time.Second)
		require.NoError(t, err)
		require.Len(t, segments, 1)
	})

	t.Run("exceeded", func(t *testing.T) {
		segments, err := transcribeWithTimeout(&fakeEngine{delay: time.Second}, samples, 20*time.Millisecond)
		require.Nil(t, segments)
		require.ErrorContains(t, err, "timed out")
	})
}
