package logger

import (
	"os"
	"testing"
)

func TestNewReturnsLogger(t *testing.T) {
	if err := os.Setenv("APP_ENV", "dev"); err != nil {
		t.Fatalf("setenv: %v", err)
	}
	defer os.Unsetenv("APP_ENV")
	log := New("test")
	if log == nil {
		t.Fatal("expected logger instance")
	}
	log.Infof("hello %s", "world")
	log.Debugw("structured", map[string]any{"k": 1})
}

func TestNewWithLevel(t *testing.T) {
	log := NewZerologLoggerWithLevel("test", "warn")
	if log == nil {
		t.Fatal("expected logger instance")
	}
	// Debug output is suppressed at warn level; the call must still be safe.
	log.Debugf("suppressed %d", 1)
	log.Warnf("visible")
}
