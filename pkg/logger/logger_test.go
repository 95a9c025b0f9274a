package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"warning", WARN},
		{" error ", ERROR},
		{"off", OFF},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: WARN, Output: &buf})

	l.Infof("hidden %d", 1)
	l.Warnf("shown %d", 2)
	l.Errorf("failed %s", "x")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("INFO message should be filtered at WARN level")
	}
	if !strings.Contains(out, "[WARN] shown 2") {
		t.Errorf("missing WARN line in %q", out)
	}
	if !strings.Contains(out, "[ERROR] failed x") {
		t.Errorf("missing ERROR line in %q", out)
	}
}

func TestColorAndOff(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: DEBUG, Colorize: true, Output: &buf})
	l.Debugf("dbg")
	if !strings.Contains(buf.String(), "\033[90m[DEBUG]\033[0m dbg") {
		t.Errorf("unexpected colored line %q", buf.String())
	}

	buf.Reset()
	l.SetLevel(OFF)
	l.Errorf("dropped")
	if buf.Len() != 0 {
		t.Errorf("OFF level wrote %q", buf.String())
	}
}

func TestLoggerSatisfiesInterface(t *testing.T) {
	var _ Interface = Discard()
}
