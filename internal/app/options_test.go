package app

import (
	"testing"
	"time"
)

func TestNormalizeOptionsDefaults(t *testing.T) {
	opts, err := normalizeOptions(Options{})
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if opts.Mode != ModeAll {
		t.Fatalf("default mode want %s, got %s", ModeAll, opts.Mode)
	}
	if opts.Logger == nil {
		t.Fatalf("logger not defaulted")
	}
	if opts.ShutdownTimeout != 30*time.Second {
		t.Fatalf("all-mode shutdown timeout want 30s, got %v", opts.ShutdownTimeout)
	}
}

func TestNormalizeOptionsModeTimeouts(t *testing.T) {
	api, err := normalizeOptions(Options{Mode: ModeAPI})
	if err != nil {
		t.Fatalf("normalize api failed: %v", err)
	}
	if api.ShutdownTimeout != 10*time.Second {
		t.Fatalf("api shutdown timeout want 10s, got %v", api.ShutdownTimeout)
	}

	worker, err := normalizeOptions(Options{Mode: ModeWorker})
	if err != nil {
		t.Fatalf("normalize worker failed: %v", err)
	}
	if worker.ShutdownTimeout != 30*time.Second {
		t.Fatalf("worker shutdown timeout want 30s, got %v", worker.ShutdownTimeout)
	}

	custom, err := normalizeOptions(Options{Mode: ModeWorker, ShutdownTimeout: time.Minute})
	if err != nil {
		t.Fatalf("normalize custom failed: %v", err)
	}
	if custom.ShutdownTimeout != time.Minute {
		t.Fatalf("explicit shutdown timeout overridden: %v", custom.ShutdownTimeout)
	}
}

func TestNormalizeOptionsRejectsUnknownMode(t *testing.T) {
	if _, err := normalizeOptions(Options{Mode: "daemon"}); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}
