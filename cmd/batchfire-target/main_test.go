package main

import (
	"io"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestOptionsFromFlags(t *testing.T) {
	cmd := newRootCommand(io.Discard)
	if err := cmd.Flags().Parse([]string{
		"--listen", "127.0.0.1:9090",
		"--delay", "25ms",
		"--status", "503",
		"--log-requests",
	}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	opts, err := optionsFrom(newViper(cmd.Flags()))
	if err != nil {
		t.Fatalf("optionsFrom() error = %v", err)
	}
	if opts.Addr != "127.0.0.1:9090" || opts.Delay != 25*time.Millisecond || opts.Status != 503 || !opts.LogRequests {
		t.Errorf("options = %+v", opts)
	}
}

func TestOptionsFromEnvironment(t *testing.T) {
	t.Setenv("BATCHFIRE_TARGET_LISTEN", ":7070")
	t.Setenv("BATCHFIRE_TARGET_LOG_REQUESTS", "true")

	cmd := newRootCommand(io.Discard)
	opts, err := optionsFrom(newViper(cmd.Flags()))
	if err != nil {
		t.Fatalf("optionsFrom() error = %v", err)
	}
	if opts.Addr != ":7070" {
		t.Errorf("Addr = %q, want :7070", opts.Addr)
	}
	if !opts.LogRequests {
		t.Error("LogRequests should come from the environment")
	}
	if opts.Status != 200 {
		t.Errorf("Status = %d, want default 200", opts.Status)
	}
}

func TestWatchRequiresPayload(t *testing.T) {
	v := viper.New()
	v.Set("watch", true)
	if _, err := optionsFrom(v); err == nil {
		t.Fatal("expected error for --watch without --payload")
	}
}

func TestRejectsPositionalArgs(t *testing.T) {
	cmd := newRootCommand(io.Discard)
	cmd.SetArgs([]string{"extra"})
	cmd.SetOut(io.Discard)
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for positional argument")
	}
}
