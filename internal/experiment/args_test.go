package experiment

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestArgsRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exp")
	args := DefaultArgs()
	args.DatasetDir = "/data/librispeech_np_fbank"
	args.Legacy = true
	args.AlphaDis = 2.5
	args.ModelParams.XHus = []int{128, 128}

	if err := SaveArgs(dir, args); err != nil {
		t.Fatalf("SaveArgs: %v", err)
	}
	got, err := LoadArgs(dir)
	if err != nil {
		t.Fatalf("LoadArgs: %v", err)
	}
	if diff := cmp.Diff(args, got); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadArgsRejectsUnknownVersion(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ArgsFile), []byte("version: 7\ndataset: x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadArgs(dir); !errors.Is(err, ErrUnsupportedArgsVersion) {
		t.Errorf("expected ErrUnsupportedArgsVersion, got %v", err)
	}
}

func TestLoadArgsMissing(t *testing.T) {
	if _, err := LoadArgs(t.TempDir()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestOutputDirName(t *testing.T) {
	tests := []struct {
		dataset, format, feat string
		want                  string
	}{
		{"librispeech", "numpy", "fbank", "librispeech_np_fbank"},
		{"librispeech", "NumPy", "spec", "librispeech_np_spec"},
		{"timit", "kaldi", "spec", "timit_kd_fbank"},
		{"timit", "other", "spec", "timit_kd_spec"},
	}
	for _, tt := range tests {
		if got := OutputDirName(tt.dataset, tt.format, tt.feat); got != tt.want {
			t.Errorf("OutputDirName(%q, %q, %q) = %q, want %q", tt.dataset, tt.format, tt.feat, got, tt.want)
		}
	}
}

func TestTrainingStrings(t *testing.T) {
	args := DefaultArgs()

	base, exp, run := TrainingStrings(args)
	if base != "librispeech_np_fbank" {
		t.Errorf("base = %q", base)
	}
	if exp != "fhvae_e100_p10_a10.0" {
		t.Errorf("exp = %q", exp)
	}
	if run != "librispeech_np_fbank_fhvae_e100_p10_a10.0" {
		t.Errorf("run = %q", run)
	}

	args.Legacy = true
	args.AlphaDis = 0.5
	if _, exp, _ := TrainingStrings(args); exp != "fhvae_e100_s5000_p10_a0.5_legacy" {
		t.Errorf("legacy exp = %q", exp)
	}
}
