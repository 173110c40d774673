package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/Artem28102/transcribe/cmd/transcribe/config"
	"github.com/Artem28102/transcribe/cmd/transcribe/pipeline"
)

func slogReplaceAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.SourceKey {
		source := a.Value.Any().(*slog.Source)
		source.File = filepath.Base(source.File)
	}
	return a
}

func main() {
	var (
		configFile    string
		chunkDuration int
		chunkTimeout  int
		numWorkers    int
		api           string
		modelSize     string
		outputFormat  string
		debug         bool
	)

	flag.StringVar(&configFile, "config", "", "path to a YAML config file")
	flag.IntVar(&chunkDuration, "chunk-duration", 0, "chunk duration in seconds (default 30)")
	flag.IntVar(&chunkTimeout, "chunk-timeout", 0, "per chunk transcription timeout in seconds (0 disables it)")
	flag.IntVar(&numWorkers, "workers", 0, "number of concurrent transcription workers (default 1)")
	flag.StringVar(&api, "api", "", "transcription API to use (whisper.cpp, openai/whisper, azure/speech, whisperx)")
	flag.StringVar(&modelSize, "model-size", "", "whisper model size (tiny, base, small, medium, large)")
	flag.StringVar(&outputFormat, "format", "", "output format (text, vtt)")
	flag.BoolVar(&debug, "debug", false, "enable debug logging")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <video_url> <output_text_file>\n\nflags:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	logLevel := slog.LevelInfo
	if debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		AddSource:   true,
		Level:       logLevel,
		ReplaceAttr: slogReplaceAttr,
	}))
	slog.SetDefault(logger)

	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("failed to load config", slog.String("err", err.Error()))
		os.Exit(1)
	}

	if configFile != "" {
		if err := cfg.LoadFile(configFile); err != nil {
			slog.Error("failed to load config file", slog.String("err", err.Error()))
			os.Exit(1)
		}
	}

	if chunkDuration != 0 {
		cfg.ChunkDurationSeconds = chunkDuration
	}
	if chunkTimeout != 0 {
		cfg.ChunkTimeoutSeconds = chunkTimeout
	}
	if numWorkers != 0 {
		cfg.NumWorkers = numWorkers
	}
	if api != "" {
		cfg.TranscribeAPI = config.TranscribeAPI(api)
	}
	if modelSize != "" {
		cfg.ModelSize = config.ModelSize(modelSize)
	}
	if outputFormat != "" {
		cfg.OutputFormat = config.OutputFormat(outputFormat)
	}

	cfg.VideoURL = flag.Arg(0)
	cfg.OutputFile = flag.Arg(1)
	cfg.SetDefaults()

	p, err := pipeline.NewPipeline(cfg)
	if err != nil {
		slog.Error("failed to create pipeline", slog.String("err", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := p.Run(ctx); err != nil {
		slog.Error("transcription failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	fmt.Printf("Transcript successfully saved to %s\n", cfg.OutputFile)
}
