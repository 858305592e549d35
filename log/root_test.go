package log

import (
	"bytes"
	"strings"
	"testing"

	gethlog "github.com/ethereum/go-ethereum/log"
)

// TestSetDefaultCustomLogger should properly set the default logger when
// custom loggers are provided.
func TestSetDefaultCustomLogger(t *testing.T) {
	type customLogger struct {
		Logger // Implement the Logger interface
	}
	prev := Root()
	defer SetDefault(prev)

	customLog := &customLogger{}
	SetDefault(customLog)
	if Root() != customLog {
		t.Error("expected custom logger to be set as default")
	}
}

func TestConditionalHelpers(t *testing.T) {
	prev := Root()
	defer SetDefault(prev)

	var out bytes.Buffer
	SetDefault(NewLogger(gethlog.NewTerminalHandlerWithLevel(&out, LevelTrace, false)))

	DebugIf(false, "hidden")
	DebugIf(true, "shown", "key", 1)
	if strings.Contains(out.String(), "hidden") {
		t.Fatalf("suppressed record was written: %q", out.String())
	}
	if !strings.Contains(out.String(), "shown") {
		t.Fatalf("record missing: %q", out.String())
	}
}

func TestSetDefaultForwardsToLibraryRoot(t *testing.T) {
	prev, prevLib := Root(), gethlog.Root()
	defer func() {
		SetDefault(prev)
		gethlog.SetDefault(prevLib)
	}()

	var out bytes.Buffer
	l := NewLogger(gethlog.NewTerminalHandlerWithLevel(&out, LevelInfo, false))
	SetDefault(l)
	if gethlog.Root() != l {
		t.Fatal("library root logger not replaced")
	}
	gethlog.Info("from library")
	if !strings.Contains(out.String(), "from library") {
		t.Fatalf("record missing: %q", out.String())
	}
}
