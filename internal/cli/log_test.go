package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		logFunc func(*log.Logger)
		wantLog bool
	}{
		{"info at info level", log.InfoLevel, func(l *log.Logger) { l.Info("test") }, true},
		{"debug at info level", log.InfoLevel, func(l *log.Logger) { l.Debug("test") }, false},
		{"debug at debug level", log.DebugLevel, func(l *log.Logger) { l.Debug("test") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFunc(newLogger(&buf, tt.level))
			if got := buf.Len() > 0; got != tt.wantLog {
				t.Errorf("got log output = %v, want %v", got, tt.wantLog)
			}
		})
	}
}

func TestCLILoggerCarriesRunID(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, LogInfo)
	if len(c.RunID) != 36 {
		t.Fatalf("RunID = %q, want a UUID", c.RunID)
	}

	c.Logger.Info("hello")
	if !strings.Contains(buf.String(), "run="+c.RunID[:8]) {
		t.Errorf("log line missing run ID: %q", buf.String())
	}

	c.SetLogLevel(LogDebug)
	c.Logger.Debug("detail")
	if !strings.Contains(buf.String(), "detail") {
		t.Error("SetLogLevel(LogDebug) should enable debug output")
	}
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	prog := newProgress(newLogger(&buf, log.InfoLevel))
	time.Sleep(10 * time.Millisecond)
	prog.done("Published 2 crates")

	if !strings.Contains(buf.String(), "Published 2 crates (") {
		t.Errorf("progress.done() output = %q", buf.String())
	}
}

func TestLoggerFromContext(t *testing.T) {
	if loggerFromContext(context.Background()) != log.Default() {
		t.Error("loggerFromContext should fall back to log.Default()")
	}

	custom := newLogger(&bytes.Buffer{}, log.InfoLevel)
	if loggerFromContext(withLogger(context.Background(), custom)) != custom {
		t.Error("loggerFromContext should return the attached logger")
	}
}

func TestHTTPLogHooks(t *testing.T) {
	var buf bytes.Buffer
	h := &httpLogHooks{logger: newLogger(&buf, log.DebugLevel)}
	ctx := context.Background()

	h.OnRequest(ctx, "GET", "index.crates.io", "/3/s/syn")
	h.OnResponse(ctx, "GET", "index.crates.io", "/3/s/syn", 200, 12*time.Millisecond)
	h.OnError(ctx, "GET", "index.crates.io", "/3/s/syn", errors.New("connection reset"))

	out := buf.String()
	for _, want := range []string{"http request", "status=200", "connection reset", "path=/3/s/syn"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}
