package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Artem28102/transcribe/cmd/transcribe/apis/azure"
	"github.com/Artem28102/transcribe/cmd/transcribe/apis/openai"
	whisper "github.com/Artem28102/transcribe/cmd/transcribe/apis/whisper.cpp"
	"github.com/Artem28102/transcribe/cmd/transcribe/apis/whisperx"
	"github.com/Artem28102/transcribe/cmd/transcribe/audio"
	"github.com/Artem28102/transcribe/cmd/transcribe/cache"
	"github.com/Artem28102/transcribe/cmd/transcribe/codec"
	"github.com/Artem28102/transcribe/cmd/transcribe/config"
	"github.com/Artem28102/transcribe/cmd/transcribe/transcribe"
	"github.com/Artem28102/transcribe/cmd/transcribe/vad"
)

const (
	downloadTimeout = 10 * time.Minute

	modelsDir = "./models"
)

// Decoder converts raw video container bytes into a normalized audio buffer.
type Decoder interface {
	Decode(ctx context.Context, data []byte) (*audio.Buffer, error)
}

// Pipeline drives a single video through download, decoding, segmentation
// and transcription, and writes the resulting transcript to the configured
// output file.
type Pipeline struct {
	cfg config.TranscriberConfig

	httpClient *http.Client
	decoder    Decoder
	newEngine  func() (transcribe.Transcriber, error)
	cache      *cache.Cache
}

func NewPipeline(cfg config.TranscriberConfig) (*Pipeline, error) {
	// Config validation happens before any network or decode work.
	if err := cfg.IsValid(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}

	p := &Pipeline{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: downloadTimeout},
		decoder:    codec.NewFFmpeg(),
	}
	p.newEngine = p.newTranscriber

	if cfg.CacheFile != "" {
		c, err := cache.Open(cfg.CacheFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open transcript cache: %w", err)
		}
		p.cache = c
	}

	return p, nil
}

// Run executes the whole pipeline. Anything upstream of segmentation
// (download, decode) is fatal; per-chunk transcription failures are
// isolated and reported through logs, with the run failing only when
// every chunk failed.
func (p *Pipeline) Run(ctx context.Context) error {
	if p.cache != nil {
		defer p.cache.Close()
	}

	videoData, err := p.downloadVideo(ctx)
	if err != nil {
		return err
	}

	buf, err := p.decoder.Decode(ctx, videoData)
	if err != nil {
		return err
	}
	videoData = nil //nolint:ineffassign // release the container bytes before transcription

	chunkDuration := time.Duration(p.cfg.ChunkDurationSeconds) * time.Second

	var cuts []int
	if p.cfg.BoundaryPolicy == config.BoundaryPolicyVoice {
		cuts, err = p.voiceCutPoints(buf, chunkDuration)
		if err != nil {
			slog.Error("failed to compute voice boundaries, falling back to fixed strides",
				slog.String("err", err.Error()))
			cuts = nil
		}
	}

	segmenter, err := audio.NewSegmenterWithCuts(buf, chunkDuration, cuts)
	if err != nil {
		return fmt.Errorf("failed to create segmenter: %w", err)
	}

	slog.Info("starting transcription",
		slog.Duration("audio", buf.Duration()),
		slog.Int("chunks", segmenter.NumChunks()),
		slog.Int("workers", p.cfg.NumWorkers))

	start := time.Now()

	tr, err := p.transcribeChunks(ctx, segmenter)
	if err != nil {
		return err
	}

	if aggErr := tr.Err(); aggErr != nil {
		return fmt.Errorf("%w: %w", ErrAllChunksFailed, aggErr)
	}

	dur := time.Since(start)
	slog.Info("transcription completed",
		slog.Duration("took", dur),
		slog.String("speedup", fmt.Sprintf("%0.2fx", buf.Duration().Seconds()/dur.Seconds())))

	if failed := tr.FailedChunks(); len(failed) > 0 {
		slog.Warn("some chunks failed to transcribe, transcript will have gaps",
			slog.Any("chunkIndexes", failed))
	}

	if err := p.writeOutput(tr); err != nil {
		return err
	}

	return nil
}

func (p *Pipeline) downloadVideo(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.VideoURL, nil)
	if err != nil {
		return nil, &DownloadError{URL: p.cfg.VideoURL, Err: err}
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &DownloadError{URL: p.cfg.VideoURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &DownloadError{URL: p.cfg.VideoURL, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &DownloadError{URL: p.cfg.VideoURL, Err: err}
	}

	slog.Debug("downloaded video", slog.Int("bytes", len(data)))

	return data, nil
}

func (p *Pipeline) voiceCutPoints(buf *audio.Buffer, chunkDuration time.Duration) ([]int, error) {
	proc, err := vad.NewProcessor(vad.Config{
		ModelPath:  filepath.Join(getModelsDir(), "silero_vad.onnx"),
		SampleRate: buf.SampleRate,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := proc.Destroy(); err != nil {
			slog.Error("failed to destroy vad processor", slog.String("err", err.Error()))
		}
	}()

	regions, err := proc.SpeechRegions(buf.Samples)
	if err != nil {
		return nil, err
	}

	chunkSamples := int(int64(chunkDuration) * int64(buf.SampleRate) / int64(time.Second))

	// Boundaries may move up to a quarter chunk back to land on silence.
	return vad.CutPoints(regions, buf.NumSamples(), chunkSamples, chunkSamples/4), nil
}

func (p *Pipeline) newTranscriber() (transcribe.Transcriber, error) {
	switch p.cfg.TranscribeAPI {
	case config.TranscribeAPIWhisperCPP:
		return whisper.NewContext(whisper.Config{
			ModelFile:  filepath.Join(getModelsDir(), fmt.Sprintf("ggml-%s.bin", string(p.cfg.ModelSize))),
			NumThreads: p.cfg.NumThreads,
			Language:   p.cfg.Language,
		})
	case config.TranscribeAPIOpenAIWhisper:
		return openai.NewClient(openai.Config{
			APIKey:   p.cfg.OpenAI.APIKey,
			Model:    p.cfg.OpenAI.Model,
			BaseURL:  p.cfg.OpenAI.BaseURL,
			Language: p.cfg.Language,
		})
	case config.TranscribeAPIAzureSpeech:
		return azure.NewSpeechRecognizer(azure.SpeechRecognizerConfig{
			SpeechKey:    p.cfg.Azure.SpeechKey,
			SpeechRegion: p.cfg.Azure.SpeechRegion,
			Language:     p.cfg.Language,
		})
	case config.TranscribeAPIWhisperX:
		return whisperx.NewTranscriber(whisperx.Config{
			Model:    string(p.cfg.ModelSize),
			Language: p.cfg.Language,
		})
	default:
		return nil, fmt.Errorf("transcribe API %q not implemented", p.cfg.TranscribeAPI)
	}
}

// writeOutput writes the transcript to the configured path, overwriting
// any existing file. It is only called once transcription produced at
// least one successful chunk.
func (p *Pipeline) writeOutput(tr transcribe.Transcription) error {
	f, err := os.Create(p.cfg.OutputFile)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	switch p.cfg.OutputFormat {
	case config.OutputFormatVTT:
		err = tr.WebVTT(f)
	default:
		err = tr.Text(f)
	}
	if err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}

	slog.Info("transcript written", slog.String("path", p.cfg.OutputFile))

	return nil
}

func getModelsDir() string {
	if dir := os.Getenv("MODELS_DIR"); dir != "" {
		return dir
	}
	return modelsDir
}
