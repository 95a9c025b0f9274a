package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/himanishpuri/FHVAEKit/pkg/utils"
)

// Load reads an audio file as mono samples. WAV files are decoded directly;
// anything else goes through ffmpeg into a private scratch directory under
// tempDir. A positive targetRate resamples the clip when the native rate
// differs, and the returned clip then reports targetRate.
func Load(ctx context.Context, path string, targetRate int, tempDir string) (*Clip, error) {
	wavPath := path
	if !strings.EqualFold(filepath.Ext(path), ".wav") {
		scratch, err := os.MkdirTemp(tempDir, "fhvae-convert-*")
		if err != nil {
			return nil, fmt.Errorf("creating scratch dir: %w", err)
		}
		defer utils.DeleteDir(scratch)

		wavPath, err = ConvertToMonoWAV(ctx, path, scratch, ConvertWAVConfig{SampleRate: targetRate})
		if err != nil {
			return nil, fmt.Errorf("converting %s: %w", path, err)
		}
	}

	clip, err := ReadWav(wavPath)
	if err != nil {
		return nil, err
	}

	if targetRate > 0 && clip.SampleRate != targetRate {
		samples, err := Resample(clip.Samples, clip.SampleRate, targetRate)
		if err != nil {
			return nil, err
		}
		clip = &Clip{Samples: samples, SampleRate: targetRate}
	}
	return clip, nil
}
