package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lj "gopkg.in/natefinch/lumberjack.v2"
)

func TestNew_FallbackWriterAndLevel(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log, closer := New(Config{Level: slog.LevelWarn, Fallback: &buf})
	defer closer.Close()

	log.Info("hidden")
	log.Warn("shown", "session", "abc")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "session=abc")
}

func TestWriter_RotatingFileDefaults(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "riftterm.log")
	w := Config{File: path}.Writer()
	defer w.Close()

	l, ok := w.(*lj.Logger)
	require.True(t, ok)
	assert.Equal(t, DefaultMaxSizeMB, l.MaxSize)
	assert.Equal(t, DefaultMaxBackups, l.MaxBackups)
	assert.Equal(t, DefaultMaxAgeDays, l.MaxAge)

	_, err := w.Write([]byte("line\n"))
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "line\n", string(data))
}

func TestWriter_CustomRotation(t *testing.T) {
	t.Parallel()
	w := Config{File: filepath.Join(t.TempDir(), "x.log"), MaxSizeMB: 1, MaxBackups: 9, MaxAgeDays: 2, Compress: true}.Writer()
	l := w.(*lj.Logger)
	assert.Equal(t, 1, l.MaxSize)
	assert.Equal(t, 9, l.MaxBackups)
	assert.Equal(t, 2, l.MaxAge)
	assert.True(t, l.Compress)
}
