package azure

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Artem28102/transcribe/cmd/transcribe/audio"
	"github.com/Artem28102/transcribe/cmd/transcribe/transcribe"

	azaudio "github.com/Microsoft/cognitive-services-speech-sdk-go/audio"
	"github.com/Microsoft/cognitive-services-speech-sdk-go/common"
	"github.com/Microsoft/cognitive-services-speech-sdk-go/speech"
)

const recognitionBaseTimeout = 10 * time.Second

type SpeechRecognizerConfig struct {
	SpeechKey    string
	SpeechRegion string
	Language     string
}

func (c SpeechRecognizerConfig) IsValid() error {
	if c.SpeechKey == "" {
		return fmt.Errorf("invalid SpeechKey: should not be empty")
	}

	if c.SpeechRegion == "" {
		return fmt.Errorf("invalid SpeechRegion: should not be empty")
	}

	return nil
}

type SpeechRecognizer struct {
	cfg SpeechRecognizerConfig
}

func NewSpeechRecognizer(cfg SpeechRecognizerConfig) (*SpeechRecognizer, error) {
	if err := cfg.IsValid(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}

	return &SpeechRecognizer{
		cfg: cfg,
	}, nil
}

// Transcribe pushes the chunk's samples through a continuous recognition
// session, gathering every recognized phrase until the service has drained
// the stream.
func (s *SpeechRecognizer) Transcribe(samples []float32) ([]transcribe.Segment, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("samples should not be empty")
	}

	cfg, err := speech.NewSpeechConfigFromSubscription(s.cfg.SpeechKey, s.cfg.SpeechRegion)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech config: %w", err)
	}
	defer cfg.Close()

	stream, err := azaudio.CreatePushAudioInputStream()
	if err != nil {
		return nil, fmt.Errorf("failed to create audio stream: %w", err)
	}
	defer stream.Close()

	audioConfig, err := azaudio.NewAudioConfigFromStreamInput(stream)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio config: %w", err)
	}

	speechRecognizer, err := speech.NewSpeechRecognizerFromConfig(cfg, audioConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech recognizer: %w", err)
	}
	defer speechRecognizer.Close()

	segmentsCh := make(chan transcribe.Segment, 8)
	stoppedCh := make(chan struct{}, 1)
	errCh := make(chan error, 1)

	speechRecognizer.SessionStarted(func(event speech.SessionEventArgs) {
		defer event.Close()
		slog.Debug("session started", slog.String("sessionID", event.SessionID))
	})
	speechRecognizer.SessionStopped(func(event speech.SessionEventArgs) {
		defer event.Close()
		slog.Debug("session stopped", slog.String("sessionID", event.SessionID))
		stoppedCh <- struct{}{}
	})

	speechRecognizer.Canceled(func(event speech.SpeechRecognitionCanceledEventArgs) {
		defer event.Close()
		slog.Debug("recognition canceled", slog.String("details", event.ErrorDetails))
		stoppedCh <- struct{}{}
	})

	speechRecognizer.Recognized(func(event speech.SpeechRecognitionEventArgs) {
		defer event.Close()

		if event.Result.Reason == common.NoMatch {
			return
		}

		if event.Result.Reason == common.Canceled {
			errCh <- fmt.Errorf("recognition was canceled")
			return
		}

		segmentsCh <- transcribe.Segment{
			Text:    event.Result.Text,
			StartTS: int64(event.Result.Offset.Seconds() * 1000),
			EndTS:   int64(event.Result.Offset.Seconds()*1000 + event.Result.Duration.Seconds()*1000),
		}
	})

	if err := stream.Write(audio.EncodeWAV(samples, audio.SampleRate)); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}

	if err := <-speechRecognizer.StartContinuousRecognitionAsync(); err != nil {
		return nil, fmt.Errorf("failed to start recognizer: %w", err)
	}
	defer func() {
		if err := <-speechRecognizer.StopContinuousRecognitionAsync(); err != nil {
			slog.Error("failed to stop recognizer", slog.String("err", err.Error()))
		}
	}()

	// This is important as it flushes out any remaining audio data.
	stream.CloseStream()

	chunkDur := time.Duration(len(samples)/audio.SamplesPerMs) * time.Millisecond
	timeout := time.After(recognitionBaseTimeout + chunkDur)

	var segments []transcribe.Segment
	for {
		select {
		case segment := <-segmentsCh:
			segments = append(segments, segment)
		case <-stoppedCh:
			return segments, nil
		case err := <-errCh:
			return nil, fmt.Errorf("transcription failed: %w", err)
		case <-timeout:
			return nil, fmt.Errorf("timed out waiting for transcription")
		}
	}
}

func (s *SpeechRecognizer) Destroy() error {
	return nil
}
