package logging

import "testing"

func TestNewLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "", "bogus", " WARN "} {
		if logger := New(level); logger == nil || logger.Logger == nil {
			t.Fatalf("expected logger for level %q", level)
		}
	}
}

func TestWithKeepsWrapper(t *testing.T) {
	logger := Default().With("component", "test")
	if logger == nil || logger.Logger == nil {
		t.Fatal("expected non-nil derived logger")
	}
}
