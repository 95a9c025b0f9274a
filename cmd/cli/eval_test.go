package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"

	"github.com/himanishpuri/FHVAEKit/internal/experiment"
	"github.com/himanishpuri/FHVAEKit/internal/manifest"
)

func writeSet(t *testing.T, setDir string, frames []int) {
	t.Helper()
	if err := os.MkdirAll(setDir, 0o755); err != nil {
		t.Fatal(err)
	}
	var feats, lens []manifest.Entry
	for u, n := range frames {
		id := "utt" + strconv.Itoa(u)
		path := filepath.Join(setDir, strconv.Itoa(u)+".npy")
		f, err := os.Create(path)
		if err != nil {
			t.Fatal(err)
		}
		if err := npyio.Write(f, mat.NewDense(n, 4, nil)); err != nil {
			t.Fatalf("npy write: %v", err)
		}
		f.Close()
		feats = append(feats, manifest.Entry{ID: id, Value: path})
		lens = append(lens, manifest.Entry{ID: id, Value: strconv.Itoa(n)})
	}
	if err := manifest.WriteAll(filepath.Join(setDir, manifest.FeatsScp), feats); err != nil {
		t.Fatal(err)
	}
	if err := manifest.WriteAll(filepath.Join(setDir, manifest.LenScp), lens); err != nil {
		t.Fatal(err)
	}
}

func TestEvalDataDir(t *testing.T) {
	args := experiment.DefaultArgs()
	if got, want := evalDataDir(args, ""), filepath.Join("datasets", "librispeech_np_fbank"); got != want {
		t.Errorf("default dir = %q, want %q", got, want)
	}
	args.DatasetDir = "/data/ls"
	if got := evalDataDir(args, ""); got != "/data/ls" {
		t.Errorf("recorded dir = %q", got)
	}
	if got := evalDataDir(args, "/override"); got != "/override" {
		t.Errorf("flag dir = %q", got)
	}
}

func TestScanSet(t *testing.T) {
	setDir := filepath.Join(t.TempDir(), "dev")
	// With 10-frame segments: 45 frames -> 4, 9 -> 0, 20 -> 2.
	writeSet(t, setDir, []int{45, 9, 20})

	got, err := scanSet(context.Background(), setDir, 10, 10, 2)
	if err != nil {
		t.Fatalf("scanSet: %v", err)
	}
	want := setSummary{Sequences: 3, Segments: 6, Batches: 3}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("summary (-want +got):\n%s", diff)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := scanSet(ctx, setDir, 10, 10, 2); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}

	if _, err := scanSet(context.Background(), filepath.Join(t.TempDir(), "missing"), 10, 10, 2); err == nil {
		t.Error("expected error for a missing partition")
	}
}
