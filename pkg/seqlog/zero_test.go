package seqlog

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewZeroLogger_DefaultIsJSON(t *testing.T) {
	var buf bytes.Buffer

	logger := NewZeroLogger("", "info", false)
	l := logger.Output(&buf)
	l.Info().Msg("test message")

	out := buf.String()

	if !strings.Contains(out, `"level":"info"`) {
		t.Fatalf("expected JSON output with level field, got: %s", out)
	}
	if !strings.Contains(out, `"message":"test message"`) {
		t.Fatalf("expected JSON output with message field, got: %s", out)
	}
}

func TestZeroDefaultLevelIsInfo(t *testing.T) {
	level := Zero.GetLevel()
	if level != zerolog.InfoLevel {
		t.Fatalf("expected default log level to be Info, got: %v", level)
	}
}

func TestParseLevel(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(zerolog.DebugLevel, parseLevel("debug"))
	assert.Equal(zerolog.WarnLevel, parseLevel("warning"))
	assert.Equal(zerolog.ErrorLevel, parseLevel("error"))
	assert.Equal(zerolog.InfoLevel, parseLevel("bogus"))
}

func TestReloadLoggerWritesToFile(t *testing.T) {
	prev := Zero
	t.Cleanup(func() { Zero = prev })

	path := filepath.Join(t.TempDir(), "seq.log")
	ReloadLogger(path, "debug", false)
	Zero.Debug().Str("sequence", "TRADE_SEQ").Msg("reloaded")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"sequence":"TRADE_SEQ"`)
}

func TestZeroTraceLoggerLevels(t *testing.T) {
	prev := Zero
	t.Cleanup(func() { Zero = prev })

	var buf bytes.Buffer
	l := zerolog.New(&buf).Level(zerolog.DebugLevel)
	Zero = &l

	z := &ZeroTraceLogger{}
	z.Log(context.Background(), tracelog.LogLevelDebug, "Query", map[string]any{"sql": "SELECT 1"})
	z.Log(context.Background(), tracelog.LogLevelNone, "ignored", nil)
	z.Log(context.Background(), tracelog.LogLevelTrace, "below level", nil)

	out := buf.String()
	assert.Contains(t, out, `"message":"Query"`)
	assert.Contains(t, out, "SELECT 1")
	assert.NotContains(t, out, "ignored")
	assert.NotContains(t, out, "below level")
}
