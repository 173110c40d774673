package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Artem28102/transcribe/cmd/transcribe/audio"
	"github.com/Artem28102/transcribe/cmd/transcribe/cache"
	"github.com/Artem28102/transcribe/cmd/transcribe/config"
	"github.com/Artem28102/transcribe/cmd/transcribe/transcribe"
)

// transcribeChunks drives the chunk sequence through the engine and
// returns one result per chunk, in chunk order. A chunk's failure is
// recorded in its result and does not stop the run; cancellation is
// honored at chunk boundaries.
func (p *Pipeline) transcribeChunks(ctx context.Context, segmenter *audio.Segmenter) (transcribe.Transcription, error) {
	if p.cfg.NumWorkers <= 1 {
		return p.transcribeSequential(ctx, segmenter)
	}
	return p.transcribeConcurrent(ctx, segmenter)
}

func (p *Pipeline) transcribeSequential(ctx context.Context, segmenter *audio.Segmenter) (transcribe.Transcription, error) {
	engine, err := p.newEngine()
	if err != nil {
		return nil, fmt.Errorf("failed to create transcriber: %w", err)
	}
	defer func() {
		if err := engine.Destroy(); err != nil {
			slog.Error("failed to destroy transcriber", slog.String("err", err.Error()))
		}
	}()

	var tr transcribe.Transcription
	for {
		chunk, ok := segmenter.Next()
		if !ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		tr = append(tr, p.transcribeChunk(ctx, engine, chunk))
	}

	return tr, nil
}

// transcribeConcurrent fans chunks out to NumWorkers workers, each holding
// its own engine instance, and reassembles results in strict chunk-index
// order: out-of-order completions are parked until their turn comes up, so
// concurrency never reorders the transcript.
func (p *Pipeline) transcribeConcurrent(ctx context.Context, segmenter *audio.Segmenter) (transcribe.Transcription, error) {
	engines := make([]transcribe.Transcriber, 0, p.cfg.NumWorkers)
	for i := 0; i < p.cfg.NumWorkers; i++ {
		engine, err := p.newEngine()
		if err != nil {
			for _, e := range engines {
				if err := e.Destroy(); err != nil {
					slog.Error("failed to destroy transcriber", slog.String("err", err.Error()))
				}
			}
			return nil, fmt.Errorf("failed to create transcriber: %w", err)
		}
		engines = append(engines, engine)
	}

	chunksCh := make(chan audio.Chunk)
	resultsCh := make(chan transcribe.ChunkResult)

	var wg sync.WaitGroup
	for _, engine := range engines {
		wg.Add(1)
		go func(engine transcribe.Transcriber) {
			defer wg.Done()
			defer func() {
				if err := engine.Destroy(); err != nil {
					slog.Error("failed to destroy transcriber", slog.String("err", err.Error()))
				}
			}()

			for chunk := range chunksCh {
				resultsCh <- p.transcribeChunk(ctx, engine, chunk)
			}
		}(engine)
	}

	// No chunk's transcription starts before segmentation produced it: the
	// feeder materializes one chunk at a time, stopping between chunks if
	// the caller aborted.
	go func() {
		defer close(chunksCh)

		for {
			chunk, ok := segmenter.Next()
			if !ok {
				return
			}

			select {
			case chunksCh <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	var tr transcribe.Transcription
	pending := make(map[int]transcribe.ChunkResult)
	next := 0
	for res := range resultsCh {
		pending[res.Index] = res
		for {
			r, ok := pending[next]
			if !ok {
				break
			}
			tr = append(tr, r)
			delete(pending, next)
			next++
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return tr, nil
}

// cacheEngineID identifies every engine setting that can change the
// produced text; a cached transcript is only valid for an identical ID.
func (p *Pipeline) cacheEngineID() string {
	id := string(p.cfg.TranscribeAPI) + "/" + string(p.cfg.ModelSize) + "/" + p.cfg.Language
	if p.cfg.TranscribeAPI == config.TranscribeAPIOpenAIWhisper {
		// This backend uses its own model name, not ModelSize.
		id += "/" + p.cfg.OpenAI.Model
	}
	return id
}

func (p *Pipeline) transcribeChunk(ctx context.Context, engine transcribe.Transcriber, chunk audio.Chunk) transcribe.ChunkResult {
	res := transcribe.ChunkResult{
		Index:   chunk.Index,
		StartTS: chunk.StartMs(),
		EndTS:   chunk.StartMs() + chunk.Duration().Milliseconds(),
	}

	var key string
	if p.cache != nil {
		key = cache.Key(p.cacheEngineID(), chunk.Samples)

		text, ok, err := p.cache.Get(ctx, key)
		if err != nil {
			slog.Error("failed to read transcript cache", slog.String("err", err.Error()))
		} else if ok {
			slog.Debug("transcript cache hit", slog.Int("chunk", chunk.Index))
			// Cached entries carry text only; segment timings within the
			// chunk are lost.
			res.Segments = []transcribe.Segment{
				{
					Text:  text,
					EndTS: chunk.Duration().Milliseconds(),
				},
			}
			return res
		}
	}

	timeout := time.Duration(p.cfg.ChunkTimeoutSeconds) * time.Second

	segments, err := transcribeWithTimeout(engine, chunk.Samples, timeout)
	if err != nil {
		slog.Error("failed to transcribe chunk",
			slog.Int("chunk", chunk.Index),
			slog.Duration("offset", chunk.Offset),
			slog.String("err", err.Error()))
		res.Err = err
		return res
	}
	res.Segments = segments

	if p.cache != nil {
		if err := p.cache.Put(ctx, key, res.Text()); err != nil {
			slog.Error("failed to persist chunk transcript", slog.String("err", err.Error()))
		}
	}

	return res
}

// transcribeWithTimeout guards a single engine call with a wall-clock
// limit. The engine interface is synchronous, so on timeout the call is
// abandoned rather than interrupted; only engines that tolerate an
// abandoned in-flight call may enable it, which config validation
// enforces by rejecting the timeout for the in-process whisper.cpp
// engine.
func transcribeWithTimeout(engine transcribe.Transcriber, samples []float32, timeout time.Duration) ([]transcribe.Segment, error) {
	if timeout <= 0 {
		return engine.Transcribe(samples)
	}

	type result struct {
		segments []transcribe.Segment
		err      error
	}

	resCh := make(chan result, 1)
	go func() {
		segments, err := engine.Transcribe(samples)
		resCh <- result{segments: segments, err: err}
	}()

	select {
	case res := <-resCh:
		return res.segments, res.err
	case <-time.After(timeout):
		return nil, fmt.Errorf("transcription timed out after %v", timeout)
	}
}
