package config

import (
	"fmt"
	"net/url"
	"os"
	"runtime"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	// defaults
	ChunkDurationSecondsDefault = 30
	TranscribeAPIDefault        = TranscribeAPIWhisperCPP
	ModelSizeDefault            = ModelSizeBase
	OutputFormatDefault         = OutputFormatText
	BoundaryPolicyDefault       = BoundaryPolicyFixed
)

type TranscribeAPI string

const (
	TranscribeAPIWhisperCPP    TranscribeAPI = "whisper.cpp"
	TranscribeAPIOpenAIWhisper TranscribeAPI = "openai/whisper"
	TranscribeAPIAzureSpeech   TranscribeAPI = "azure/speech"
	TranscribeAPIWhisperX      TranscribeAPI = "whisperx"
)

func (a TranscribeAPI) IsValid() bool {
	switch a {
	case TranscribeAPIWhisperCPP, TranscribeAPIOpenAIWhisper, TranscribeAPIAzureSpeech, TranscribeAPIWhisperX:
		return true
	default:
		return false
	}
}

type ModelSize string

const (
	ModelSizeTiny   ModelSize = "tiny"
	ModelSizeBase   ModelSize = "base"
	ModelSizeSmall  ModelSize = "small"
	ModelSizeMedium ModelSize = "medium"
	ModelSizeLarge  ModelSize = "large"
)

func (s ModelSize) IsValid() bool {
	switch s {
	case ModelSizeTiny, ModelSizeBase, ModelSizeSmall, ModelSizeMedium, ModelSizeLarge:
		return true
	default:
		return false
	}
}

type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatVTT  OutputFormat = "vtt"
)

func (f OutputFormat) IsValid() bool {
	switch f {
	case OutputFormatText, OutputFormatVTT:
		return true
	default:
		return false
	}
}

// BoundaryPolicy selects how chunk boundaries are placed: fixed strides of
// exactly the chunk duration, or voice-aware boundaries snapped to silence.
type BoundaryPolicy string

const (
	BoundaryPolicyFixed BoundaryPolicy = "fixed"
	BoundaryPolicyVoice BoundaryPolicy = "voice"
)

func (p BoundaryPolicy) IsValid() bool {
	switch p {
	case BoundaryPolicyFixed, BoundaryPolicyVoice:
		return true
	default:
		return false
	}
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type AzureConfig struct {
	SpeechKey    string `yaml:"speech_key"`
	SpeechRegion string `yaml:"speech_region"`
}

type TranscriberConfig struct {
	// input config
	VideoURL   string `yaml:"-"`
	OutputFile string `yaml:"-"`

	// segmentation config
	ChunkDurationSeconds int            `yaml:"chunk_duration_seconds"`
	BoundaryPolicy       BoundaryPolicy `yaml:"boundary_policy"`

	// orchestration config
	NumWorkers          int `yaml:"num_workers"`
	ChunkTimeoutSeconds int `yaml:"chunk_timeout_seconds"`

	// engine config
	TranscribeAPI TranscribeAPI `yaml:"transcribe_api"`
	ModelSize     ModelSize     `yaml:"model_size"`
	NumThreads    int           `yaml:"num_threads"`
	Language      string        `yaml:"language"`
	OpenAI        OpenAIConfig  `yaml:"openai"`
	Azure         AzureConfig   `yaml:"azure"`

	// output config
	OutputFormat OutputFormat `yaml:"output_format"`
	CacheFile    string       `yaml:"cache_file"`
}

func (cfg TranscriberConfig) IsValid() error {
	if cfg == (TranscriberConfig{}) {
		return fmt.Errorf("config cannot be empty")
	}

	if cfg.VideoURL == "" {
		return fmt.Errorf("VideoURL cannot be empty")
	}

	u, err := url.Parse(cfg.VideoURL)
	if err != nil {
		return fmt.Errorf("VideoURL parsing failed: %w", err)
	} else if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("VideoURL parsing failed: invalid scheme %q", u.Scheme)
	}

	if cfg.OutputFile == "" {
		return fmt.Errorf("OutputFile cannot be empty")
	}

	if cfg.ChunkDurationSeconds <= 0 {
		return fmt.Errorf("ChunkDurationSeconds should be a positive number")
	}

	if !cfg.BoundaryPolicy.IsValid() {
		return fmt.Errorf("BoundaryPolicy value is not valid")
	}

	if cfg.NumWorkers < 1 {
		return fmt.Errorf("NumWorkers should be at least 1")
	}

	if cfg.ChunkTimeoutSeconds < 0 {
		return fmt.Errorf("ChunkTimeoutSeconds cannot be negative")
	}

	if !cfg.TranscribeAPI.IsValid() {
		return fmt.Errorf("TranscribeAPI value is not valid")
	}

	// A timed-out chunk abandons the engine call rather than interrupting
	// it. The in-process whisper.cpp context cannot be reused or destroyed
	// while a call is still running, so the timeout is limited to the
	// other engines.
	if cfg.ChunkTimeoutSeconds > 0 && cfg.TranscribeAPI == TranscribeAPIWhisperCPP {
		return fmt.Errorf("ChunkTimeoutSeconds is not supported with the whisper.cpp API")
	}

	if !cfg.ModelSize.IsValid() {
		return fmt.Errorf("ModelSize value is not valid")
	}

	if numCPU := runtime.NumCPU(); cfg.NumThreads < 1 || cfg.NumThreads > numCPU {
		return fmt.Errorf("NumThreads should be in the range [1, %d]", numCPU)
	}

	if !cfg.OutputFormat.IsValid() {
		return fmt.Errorf("OutputFormat value is not valid")
	}

	if cfg.TranscribeAPI == TranscribeAPIOpenAIWhisper && cfg.OpenAI.APIKey == "" {
		return fmt.Errorf("OpenAI.APIKey cannot be empty")
	}

	if cfg.TranscribeAPI == TranscribeAPIAzureSpeech {
		if cfg.Azure.SpeechKey == "" {
			return fmt.Errorf("Azure.SpeechKey cannot be empty")
		}
		if cfg.Azure.SpeechRegion == "" {
			return fmt.Errorf("Azure.SpeechRegion cannot be empty")
		}
	}

	return nil
}

func (cfg *TranscriberConfig) SetDefaults() {
	if cfg.ChunkDurationSeconds == 0 {
		cfg.ChunkDurationSeconds = ChunkDurationSecondsDefault
	}

	if cfg.BoundaryPolicy == "" {
		cfg.BoundaryPolicy = BoundaryPolicyDefault
	}

	if cfg.NumWorkers == 0 {
		cfg.NumWorkers = 1
	}

	if cfg.TranscribeAPI == "" {
		cfg.TranscribeAPI = TranscribeAPIDefault
	}

	if cfg.ModelSize == "" {
		cfg.ModelSize = ModelSizeDefault
	}

	if cfg.NumThreads == 0 {
		cfg.NumThreads = max(1, runtime.NumCPU()/2)
	}

	if cfg.OutputFormat == "" {
		cfg.OutputFormat = OutputFormatDefault
	}
}

func FromEnv() (TranscriberConfig, error) {
	var cfg TranscriberConfig

	cfg.ChunkDurationSeconds, _ = strconv.Atoi(os.Getenv("CHUNK_DURATION_SECONDS"))
	cfg.NumWorkers, _ = strconv.Atoi(os.Getenv("NUM_WORKERS"))
	cfg.ChunkTimeoutSeconds, _ = strconv.Atoi(os.Getenv("CHUNK_TIMEOUT_SECONDS"))
	cfg.NumThreads, _ = strconv.Atoi(os.Getenv("NUM_THREADS"))
	cfg.Language = os.Getenv("TRANSCRIBE_LANGUAGE")
	cfg.CacheFile = os.Getenv("CACHE_FILE")

	if val := os.Getenv("BOUNDARY_POLICY"); val != "" {
		cfg.BoundaryPolicy = BoundaryPolicy(val)
	}

	if val := os.Getenv("TRANSCRIBE_API"); val != "" {
		cfg.TranscribeAPI = TranscribeAPI(val)
	}

	if val := os.Getenv("MODEL_SIZE"); val != "" {
		cfg.ModelSize = ModelSize(val)
	}

	if val := os.Getenv("OUTPUT_FORMAT"); val != "" {
		cfg.OutputFormat = OutputFormat(val)
	}

	cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	cfg.OpenAI.Model = os.Getenv("OPENAI_MODEL")
	cfg.OpenAI.BaseURL = os.Getenv("OPENAI_BASE_URL")

	cfg.Azure.SpeechKey = os.Getenv("AZURE_SPEECH_KEY")
	cfg.Azure.SpeechRegion = os.Getenv("AZURE_SPEECH_REGION")

	return cfg, nil
}

// LoadFile overlays values from a YAML config file on top of cfg. Only
// fields present in the file are overridden.
func (cfg *TranscriberConfig) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}
