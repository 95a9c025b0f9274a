package main

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseOrigins(t *testing.T) {
	if diff := cmp.Diff([]string{"*"}, parseOrigins("*")); diff != "" {
		t.Errorf("wildcard (-want +got):\n%s", diff)
	}
	got := parseOrigins("http://a.test, http://b.test")
	if diff := cmp.Diff([]string{"http://a.test", "http://b.test"}, got); diff != "" {
		t.Errorf("list (-want +got):\n%s", diff)
	}
}

func TestServerFlags(t *testing.T) {
	if err := rootCmd.ParseFlags([]string{"--exp-root", "/srv/exp", "--port", "9090"}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	if expRoot != "/srv/exp" || port != 9090 {
		t.Errorf("expRoot=%q port=%d", expRoot, port)
	}
}
