package logging

import "testing"

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(Config{Level: "chatty"}, "test"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNewBuildsConsoleLogger(t *testing.T) {
	logger, err := New(Config{Level: "debug", Format: "console"}, "test")
	if err != nil {
		t.Fatalf("build logger: %v", err)
	}
	logger.Debugw("logger ready", "format", "console")
}
