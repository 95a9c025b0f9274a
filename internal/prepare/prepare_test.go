package prepare

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"

	"github.com/himanishpuri/FHVAEKit/internal/audio/audiotest"
	"github.com/himanishpuri/FHVAEKit/internal/features"
	"github.com/himanishpuri/FHVAEKit/internal/manifest"
	"github.com/himanishpuri/FHVAEKit/internal/storage"
	"github.com/himanishpuri/FHVAEKit/pkg/logger"
)

type utt struct {
	id      string
	rate    int
	seconds float64
}

// writeSet creates <root>/<set>/wav.scp pointing at synthesized tones.
func writeSet(t *testing.T, root, set string, utts []utt) {
	t.Helper()
	setDir := filepath.Join(root, set)
	audioDir := filepath.Join(root, "audio", set)
	if err := os.MkdirAll(setDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.MkdirAll(audioDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	var entries []manifest.Entry
	for i, u := range utts {
		path := audiotest.WriteTone(t, filepath.Join(audioDir, u.id+".wav"), u.rate, u.seconds, 200+float64(100*i))
		entries = append(entries, manifest.Entry{ID: u.id, Value: path})
	}
	if err := manifest.WriteAll(filepath.Join(setDir, manifest.WavScp), entries); err != nil {
		t.Fatalf("writing wav.scp: %v", err)
	}
}

func quiet() Option {
	return WithLogger(logger.Discard())
}

func TestPrepare(t *testing.T) {
	root := t.TempDir()
	writeSet(t, root, "dev", []utt{
		{"spk1-0001", 16000, 0.5},
		{"spk1-0002", 16000, 1.0},
		{"spk2-0001", 16000, 0.25},
	})

	res, err := Prepare(context.Background(), "dev", root, quiet())
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if res.Count != 3 {
		t.Errorf("expected 3 utterances, got %d", res.Count)
	}
	if res.SampleRate != 16000 {
		t.Errorf("expected pinned rate 16000, got %d", res.SampleRate)
	}
	if res.WavScp != filepath.Join(root, "dev", "wav.scp") {
		t.Errorf("unexpected wav.scp path %s", res.WavScp)
	}

	lens, err := manifest.Read(res.LenScp)
	if err != nil {
		t.Fatalf("reading len.scp: %v", err)
	}
	want := []manifest.Entry{
		{ID: "spk1-0001", Value: "51"},
		{ID: "spk1-0002", Value: "101"},
		{ID: "spk2-0001", Value: "26"},
	}
	if len(lens) != len(want) {
		t.Fatalf("expected %d len entries, got %d", len(want), len(lens))
	}
	for i := range want {
		if lens[i] != want[i] {
			t.Errorf("len.scp[%d] = %v, want %v", i, lens[i], want[i])
		}
	}

	feats, err := manifest.Read(res.FeatsScp)
	if err != nil {
		t.Fatalf("reading feats.scp: %v", err)
	}
	if feats[1].ID != "spk1-0002" || feats[1].Value != filepath.Join(root, "dev", "spk1-0002.npy") {
		t.Errorf("unexpected feats.scp entry %v", feats[1])
	}

	f, err := os.Open(feats[1].Value)
	if err != nil {
		t.Fatalf("opening artifact: %v", err)
	}
	defer f.Close()
	var m mat.Dense
	if err := npyio.Read(f, &m); err != nil {
		t.Fatalf("reading npy: %v", err)
	}
	r, c := m.Dims()
	if r != 101 || c != features.DefaultNMels {
		t.Errorf("expected 101x%d artifact, got %dx%d", features.DefaultNMels, r, c)
	}
}

func TestPrepareSpecFeatures(t *testing.T) {
	root := t.TempDir()
	writeSet(t, root, "test", []utt{{"a", 16000, 0.5}})

	res, err := Prepare(context.Background(), "test", root, quiet(), WithFeatType(features.KindSpec))
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	f, err := os.Open(filepath.Join(root, "test", "a.npy"))
	if err != nil {
		t.Fatalf("opening artifact: %v", err)
	}
	defer f.Close()
	var m mat.Dense
	if err := npyio.Read(f, &m); err != nil {
		t.Fatalf("reading npy: %v", err)
	}
	if _, c := m.Dims(); c != 201 {
		t.Errorf("expected 201 frequency bins, got %d", c)
	}
	if res.Count != 1 {
		t.Errorf("expected 1 utterance, got %d", res.Count)
	}
}

func TestPrepareIdempotent(t *testing.T) {
	root := t.TempDir()
	writeSet(t, root, "train", []utt{
		{"u1", 16000, 0.3},
		{"u2", 16000, 0.6},
	})

	first, err := Prepare(context.Background(), "train", root, quiet())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	lenA, _ := os.ReadFile(first.LenScp)

	second, err := Prepare(context.Background(), "train", root, quiet())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	lenB, _ := os.ReadFile(second.LenScp)

	if string(lenA) != string(lenB) {
		t.Errorf("len.scp changed between runs:\n%s\nvs\n%s", lenA, lenB)
	}
}

func TestPrepareSampleRateMismatch(t *testing.T) {
	root := t.TempDir()
	writeSet(t, root, "dev", []utt{
		{"u1", 16000, 0.3},
		{"u2", 8000, 0.3},
		{"u3", 16000, 0.3},
	})

	_, err := Prepare(context.Background(), "dev", root, quiet())
	if !errors.Is(err, ErrSampleRateMismatch) {
		t.Fatalf("expected ErrSampleRateMismatch, got %v", err)
	}
	if !strings.Contains(err.Error(), "16000 != 8000") {
		t.Errorf("error should name both rates: %v", err)
	}

	n, err := manifest.Count(filepath.Join(root, "dev", manifest.FeatsScp))
	if err != nil {
		t.Fatalf("counting feats.scp: %v", err)
	}
	if n != 1 {
		t.Errorf("expected only the first utterance in feats.scp, got %d lines", n)
	}
	if _, err := os.Stat(filepath.Join(root, "dev", "u3.npy")); !os.IsNotExist(err) {
		t.Error("no artifact should be written after the mismatch")
	}
}

func TestPrepareMissingManifest(t *testing.T) {
	_, err := Prepare(context.Background(), "dev", t.TempDir(), quiet())
	if !errors.Is(err, ErrManifestMissing) {
		t.Fatalf("expected ErrManifestMissing, got %v", err)
	}
}

func TestPrepareOutputDir(t *testing.T) {
	dataset := t.TempDir()
	out := t.TempDir()
	writeSet(t, out, "dev", []utt{{"u1", 16000, 0.3}})

	res, err := Prepare(context.Background(), "dev", dataset, quiet(), WithOutputDir(out))
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if filepath.Dir(res.FeatsScp) != filepath.Join(out, "dev") {
		t.Errorf("expected manifests under the output dir, got %s", res.FeatsScp)
	}
}

func TestPrepareCancelled(t *testing.T) {
	root := t.TempDir()
	writeSet(t, root, "dev", []utt{{"u1", 16000, 0.3}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Prepare(ctx, "dev", root, quiet()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestPrepareCatalogAndProgress(t *testing.T) {
	root := t.TempDir()
	writeSet(t, root, "dev", []utt{{"u1", 16000, 0.3}, {"u2", 16000, 0.3}})

	catalog, err := storage.NewCatalogWithPath(filepath.Join(t.TempDir(), "catalog.sqlite3"))
	if err != nil {
		t.Fatalf("opening catalog: %v", err)
	}
	defer catalog.Close()

	var seen []int
	progress := WithProgress(func(set string, done int) {
		if set != "dev" {
			t.Errorf("unexpected set %q", set)
		}
		seen = append(seen, done)
	})

	for i := 0; i < 2; i++ {
		if _, err := Prepare(context.Background(), "dev", root, quiet(), WithCatalog(catalog), progress); err != nil {
			t.Fatalf("Prepare run %d: %v", i, err)
		}
	}

	rows, err := catalog.ListUtterances("dev")
	if err != nil {
		t.Fatalf("ListUtterances: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 catalog rows after two runs, got %d", len(rows))
	}
	if rows[1].UttID != "u2" || rows[1].Frames != 31 || rows[1].SampleRate != 16000 {
		t.Errorf("unexpected catalog row %+v", rows[1])
	}
	if fmt.Sprint(seen) != "[1 2 1 2]" {
		t.Errorf("unexpected progress sequence %v", seen)
	}
}

func TestPrepareAll(t *testing.T) {
	root := t.TempDir()
	writeSet(t, root, "train", []utt{{"t1", 16000, 0.3}, {"t2", 16000, 0.3}})
	writeSet(t, root, "dev", []utt{{"d1", 16000, 0.3}})

	results, err := PrepareAll(context.Background(), Partitions, root, quiet())
	if !errors.Is(err, ErrManifestMissing) {
		t.Fatalf("expected the missing test partition to fail, got %v", err)
	}
	if results[0] == nil || results[0].Count != 2 {
		t.Errorf("train result = %+v, want 2 utterances", results[0])
	}
	if results[1] == nil || results[1].Count != 1 {
		t.Errorf("dev result = %+v, want 1 utterance", results[1])
	}
	if results[2] != nil {
		t.Errorf("test result should be nil, got %+v", results[2])
	}
}
