package whisper

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigIsValid(t *testing.T) {
	modelFile := filepath.Join(t.TempDir(), "ggml-base.bin")
	require.NoError(t, os.WriteFile(modelFile, []byte("model"), 0600))

	tcs := []struct {
		name          string
		cfg           Config
		expectedError string
	}{
		{
			name:          "empty config",
			cfg:           Config{},
			expectedError: "invalid empty config",
		},
		{
			name: "missing model file path",
			cfg: Config{
				NumThreads: 1,
			},
			expectedError: "invalid ModelFile: should not be empty",
		},
		{
			name: "model file not found",
			cfg: Config{
				ModelFile:  filepath.Join(t.TempDir(), "missing.bin"),
				NumThreads: 1,
			},
			expectedError: "invalid ModelFile: failed to stat model file",
		},
		{
			name: "zero threads",
			cfg: Config{
				ModelFile: modelFile,
			},
			expectedError: "invalid NumThreads: should be in the range",
		},
		{
			name: "too many threads",
			cfg: Config{
				ModelFile:  modelFile,
				NumThreads: runtime.NumCPU() + 1,
			},
			expectedError: "invalid NumThreads: should be in the range",
		},
		{
			name: "valid",
			cfg: Config{
				ModelFile:  modelFile,
				NumThreads: 1,
			},
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.IsValid()
			if tc.expectedError == "" {
				require.NoError(t, err)
			} else {
				require.ErrorContains(t, err, tc.expectedError)
			}
		})
	}
}
