package shared

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
)

func TestLogger(t *testing.T) {
	t.Run("WithLogger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := WithLogger(NewLogger(&buf), "platform", "YOUTUBE")
		logger.Info("fetched")

		if !strings.Contains(buf.String(), "platform=YOUTUBE") {
			t.Errorf("expected child logger fields in %q", buf.String())
		}
	})

	t.Run("ParseLogLevel", func(t *testing.T) {
		cases := map[string]log.Level{
			"debug": log.DebugLevel,
			"WARN":  log.WarnLevel,
			"":      log.InfoLevel,
			"loud":  log.InfoLevel,
		}
		for in, want := range cases {
			if got := ParseLogLevel(in); got != want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
			}
		}
	})
}

func TestErrorTaxonomy(t *testing.T) {
	cause := errors.New("status 404")

	t.Run("NotFound", func(t *testing.T) {
		err := NotFound(cause, "playlist lookup")
		if !errors.Is(err, ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
		if errors.Is(err, ErrUnrecoverable) {
			t.Error("not found must not be unrecoverable")
		}
	})

	t.Run("Unrecoverable Keeps Cause", func(t *testing.T) {
		err := Unrecoverable(errors.Mark(cause, ErrRateLimited), "retries exhausted")
		if !errors.Is(err, ErrUnrecoverable) || !errors.Is(err, ErrRateLimited) {
			t.Errorf("expected unrecoverable rate limit, got %v", err)
		}
	})

	t.Run("Storage", func(t *testing.T) {
		if Storage(nil, "noop") != nil {
			t.Error("expected nil for nil cause")
		}

		err := Storage(cause, "insert")
		if !errors.Is(err, ErrStorage) {
			t.Errorf("expected ErrStorage, got %v", err)
		}

		err = Storage(Validationf("missing column %s", "Title"), "insert")
		if !errors.Is(err, ErrValidation) || errors.Is(err, ErrStorage) {
			t.Errorf("validation errors must pass through unchanged, got %v", err)
		}
	})
}

func TestBrowserCommand(t *testing.T) {
	tests := []struct {
		goos string
		name string
		args []string
	}{
		{"darwin", "open", []string{"http://127.0.0.1:5000"}},
		{"linux", "xdg-open", []string{"http://127.0.0.1:5000"}},
		{"windows", "cmd", []string{"/c", "start", "http://127.0.0.1:5000"}},
	}
	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			name, args, err := browserCommand(tt.goos, "http://127.0.0.1:5000")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if name != tt.name || strings.Join(args, " ") != strings.Join(tt.args, " ") {
				t.Errorf("got %s %v, want %s %v", name, args, tt.name, tt.args)
			}
		})
	}

	t.Run("unsupported platform", func(t *testing.T) {
		orig := getRuntime
		getRuntime = func() string { return "plan9" }
		t.Cleanup(func() { getRuntime = orig })

		if err := OpenBrowser("http://127.0.0.1:5000"); err == nil {
			t.Error("expected an error on an unsupported platform")
		}
	})
}
