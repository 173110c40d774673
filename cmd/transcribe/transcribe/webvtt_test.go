package transcribe

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVTTTimestamp(t *testing.T) {
	tcs := []struct {
		name     string
		ts       int64
		expected string
	}{
		{
			name:     "zero",
			ts:       0,
			expected: "00:00:00.000",
		},
		{
			name:     "milliseconds",
			ts:       999,
			expected: "00:00:00.999",
		},
		{
			name:     "seconds",
			ts:       59999,
			expected: "00:00:59.999",
		},
		{
			name:     "minutes",
			ts:       60*1000 + 1,
			expected: "00:01:00.001",
		},
		{
			name:     "hours",
			ts:       2*60*60*1000 + 30*60*1000 + 15*1000 + 500,
			expected: "02:30:15.500",
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, vttTS(tc.ts))
		})
	}
}

func TestTranscriptionWebVTT(t *testing.T) {
	tr := Transcription{
		{
			Index:   0,
			StartTS: 0,
			EndTS:   30000,
			Segments: []Segment{
				{Text: "first chunk", StartTS: 0, EndTS: 2000},
			},
		},
		{
			Index:   1,
			StartTS: 30000,
			EndTS:   60000,
			Err:     errors.New("engine failure"),
		},
		{
			Index:   2,
			StartTS: 60000,
			EndTS:   65000,
			Segments: []Segment{
				{Text: "third <chunk>", StartTS: 500, EndTS: 3000},
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, tr.WebVTT(&buf))

	expected := `WEBVTT

00:00:00.000 --> 00:00:02.000
first chunk

00:01:00.500 --> 00:01:03.000
third &lt;chunk&gt;
`
	require.Equal(t, expected, buf.String())
}
