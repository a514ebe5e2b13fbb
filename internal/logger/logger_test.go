package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	log := New()
	require.Equal(t, zerolog.InfoLevel, log.GetLevel())
}

func TestNewWithLevel(t *testing.T) {
	require.Equal(t, zerolog.DebugLevel, NewWithLevel("debug").GetLevel())
	require.Equal(t, zerolog.WarnLevel, NewWithLevel(" WARN ").GetLevel())
	require.Equal(t, zerolog.InfoLevel, NewWithLevel("loud").GetLevel())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"Error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			require.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	log.Info().Msg("test message")

	require.Contains(t, buf.String(), "test message")
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := WithContext(context.Background(), NewWithWriter(buf))

	log := FromContext(ctx)
	log.Info().Msg("test")

	require.NotZero(t, buf.Len())
}

func TestFromContext_DefaultLogger(t *testing.T) {
	log := FromContext(context.Background())
	require.NotEqual(t, zerolog.Disabled, log.GetLevel())
}

func TestWithRun(t *testing.T) {
	buf := &bytes.Buffer{}
	log := WithRun(NewWithWriter(buf), "run-1", "rolling", "2020-06-01", "2020-06-30")

	log.Info().Msg("window selected")

	out := buf.String()
	for _, want := range []string{`"run_id":"run-1"`, `"mode":"rolling"`, `"window_start":"2020-06-01"`, `"window_end":"2020-06-30"`} {
		require.Contains(t, out, want)
	}
}

func TestWithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := WithFields(NewWithWriter(buf), map[string]interface{}{
		"event_uri": "/api/v1/event/7/",
		"rows":      3,
	})

	log.Info().Msg("flattened")

	require.Contains(t, buf.String(), `"event_uri":"/api/v1/event/7/"`)
	require.Contains(t, buf.String(), `"rows":3`)
}
