package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelInfo, time.UTC).Module("search")

	log.Debug("hidden")
	log.Info("visible", Int("page", 2))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=visible")
	assert.Contains(t, out, "module=search")
	assert.Contains(t, out, "page=2")
	assert.NotContains(t, out, "time=")
}

func TestTraceLevelLabel(t *testing.T) {
	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelTrace, time.UTC)

	log.Trace("deep detail")

	assert.Contains(t, buf.String(), "level=TRACE")
}

func TestSubModuleAndFields(t *testing.T) {
	var buf bytes.Buffer
	base := NewSlogLogger(&buf, LogLevelDebug, time.UTC).Module("api")
	child := base.Module("sessions").With(String("session_id", "abc"))

	child.Debug("created", Float64("radius", 1000.123456), Duration("elapsed", 1500*time.Millisecond))
	base.Info("parent")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "module=api.sessions")
	assert.Contains(t, lines[0], "session_id=abc")
	assert.Contains(t, lines[0], "radius=1000.123")
	assert.Contains(t, lines[0], "elapsed=1.5s")
	assert.NotContains(t, lines[1], "session_id")
}

func TestWithContextTraceID(t *testing.T) {
	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelInfo, time.UTC)

	log.WithContext(WithTraceID(context.Background(), "req-42")).Info("handled")
	log.WithContext(context.Background()).Info("plain")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "trace_id=req-42")
	assert.NotContains(t, lines[1], "trace_id")
}

func TestErrorFieldNil(t *testing.T) {
	f := Error(nil)
	assert.Equal(t, "error", f.Key)
	assert.Nil(t, f.Value)
}

func TestCentralLoggerModuleLevelOverride(t *testing.T) {
	var buf bytes.Buffer
	cl, err := newCentralLogger(&LoggingConfig{
		DefaultLevel: "warn",
		Console:      &ConsoleOutput{Enabled: true, Level: "debug"},
		FileOutput:   &FileOutput{Enabled: false},
		ModuleLevels: map[string]string{"inaturalist": "debug"},
	}, &buf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cl.Close() })

	cl.Module("inaturalist").Debug("request sent")
	cl.Module("api").Info("suppressed")

	assert.Contains(t, buf.String(), "request sent")
	assert.NotContains(t, buf.String(), "suppressed")
}

func TestCentralLoggerJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "mynat.log")
	cl, err := newCentralLogger(&LoggingConfig{
		DefaultLevel: "info",
		Console:      &ConsoleOutput{Enabled: false},
		FileOutput:   &FileOutput{Enabled: true, Path: path, Level: "info"},
	}, &bytes.Buffer{})
	require.NoError(t, err)

	cl.Module("search").Info("search committed", Int("total", 412))
	require.NoError(t, cl.Flush())
	require.NoError(t, cl.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &entry))
	assert.Equal(t, "search committed", entry["msg"])
	assert.Equal(t, "search", entry["module"])
	assert.InDelta(t, 412, entry["total"], 0)
}

func TestCentralLoggerConsoleAndFileLevels(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "mynat.log")
	cl, err := newCentralLogger(&LoggingConfig{
		DefaultLevel: "debug",
		Console:      &ConsoleOutput{Enabled: true, Level: "info"},
		FileOutput:   &FileOutput{Enabled: true, Path: path, Level: "debug"},
	}, &console)
	require.NoError(t, err)

	log := cl.Module("api").With(String("session", "s1"))
	log.Debug("file only")
	log.Info("both outputs")
	require.NoError(t, cl.Close())

	assert.NotContains(t, console.String(), "file only")
	assert.Contains(t, console.String(), "both outputs")
	assert.Contains(t, console.String(), "session=s1")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "file only", entry["msg"])
	assert.Equal(t, "s1", entry["session"])
}

func TestNewCentralLoggerRejectsBadInput(t *testing.T) {
	_, err := newCentralLogger(nil, &bytes.Buffer{})
	require.Error(t, err)

	_, err = newCentralLogger(&LoggingConfig{Timezone: "Mars/Olympus"}, &bytes.Buffer{})
	require.Error(t, err)
}
