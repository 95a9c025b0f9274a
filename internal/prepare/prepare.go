// Package prepare materializes per-utterance feature matrices and their
// feats.scp / len.scp manifests from a partition's wav.scp.
package prepare

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"

	"github.com/himanishpuri/FHVAEKit/internal/features"
	"github.com/himanishpuri/FHVAEKit/internal/manifest"
	"github.com/himanishpuri/FHVAEKit/internal/storage"
	"github.com/himanishpuri/FHVAEKit/internal/workerpool"
	"github.com/himanishpuri/FHVAEKit/pkg/utils"
)

// ProgressInterval is how many utterances pass between progress log lines.
const ProgressInterval = 1000

// Partitions are materialized in parallel when no set is named.
var Partitions = []string{"train", "dev", "test"}

var (
	ErrManifestMissing    = errors.New("wav.scp does not exist")
	ErrSampleRateMismatch = errors.New("inconsistent sample rate")
)

// Result describes one materialized partition.
type Result struct {
	Set        string
	Count      int
	SampleRate int
	WavScp     string
	FeatsScp   string
	LenScp     string
}

// SetDir returns the directory holding a partition's manifests and artifacts.
func SetDir(set, datasetDir, outputDir string) string {
	if outputDir != "" {
		return filepath.Join(outputDir, set)
	}
	return filepath.Join(datasetDir, set)
}

// Prepare reads <dir>/<set>/wav.scp, computes features for every utterance in
// file order and writes <seq>.npy, feats.scp and len.scp next to it. The first
// loaded sample rate is pinned for the run unless WithSampleRate pinned one;
// any later mismatch aborts the partition.
func Prepare(ctx context.Context, set, datasetDir string, opts ...Option) (*Result, error) {
	cfg := newConfig(opts)

	setPath := SetDir(set, datasetDir, cfg.OutputDir)
	res := &Result{
		Set:      set,
		WavScp:   filepath.Join(setPath, manifest.WavScp),
		FeatsScp: filepath.Join(setPath, manifest.FeatsScp),
		LenScp:   filepath.Join(setPath, manifest.LenScp),
	}

	if !utils.FileExists(res.WavScp) {
		return nil, fmt.Errorf("the wav.scp file at %s: %w", res.WavScp, ErrManifestMissing)
	}
	if err := utils.MakeDir(setPath); err != nil {
		return nil, fmt.Errorf("creating %s: %w", setPath, err)
	}

	wavFile, err := os.Open(res.WavScp)
	if err != nil {
		return nil, err
	}
	defer wavFile.Close()

	featW, err := manifest.Create(res.FeatsScp)
	if err != nil {
		return nil, err
	}
	defer featW.Close()
	lenW, err := manifest.Create(res.LenScp)
	if err != nil {
		return nil, err
	}
	defer lenW.Close()

	start := time.Now()
	rate := cfg.SampleRate
	var rows []storage.Utterance

	err = manifest.Scan(wavFile, func(e manifest.Entry) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		clip, err := cfg.Load(ctx, e.Value, cfg.SampleRate)
		if err != nil {
			return fmt.Errorf("loading %s: %w", e.ID, err)
		}
		if rate == 0 {
			rate = clip.SampleRate
		} else if rate != clip.SampleRate {
			return fmt.Errorf("%w (%d != %d) at %s", ErrSampleRateMismatch, rate, clip.SampleRate, e.ID)
		}

		feat, err := features.Generate(cfg.FeatType, clip.Samples, rate, cfg.WinT, cfg.HopT, cfg.NMels)
		if err != nil {
			return fmt.Errorf("features for %s: %w", e.ID, err)
		}

		npPath := filepath.Join(setPath, e.ID+".npy")
		if err := writeNpy(npPath, feat); err != nil {
			return err
		}
		frames, _ := feat.Dims()
		if err := featW.Write(e.ID, npPath); err != nil {
			return err
		}
		if err := lenW.Write(e.ID, strconv.Itoa(frames)); err != nil {
			return err
		}

		if cfg.Catalog != nil {
			rows = append(rows, storage.Utterance{
				UttID:      e.ID,
				Seq:        res.Count,
				WavPath:    e.Value,
				FeatPath:   npPath,
				FeatType:   string(cfg.FeatType),
				Frames:     frames,
				SampleRate: rate,
			})
		}

		res.Count++
		if cfg.Progress != nil {
			cfg.Progress(set, res.Count)
		}
		if res.Count%ProgressInterval == 0 {
			cfg.Logger.Infof("%d %s files in %s", res.Count, set, time.Since(start))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s set: %w", set, err)
	}

	if err := featW.Close(); err != nil {
		return nil, fmt.Errorf("closing %s: %w", res.FeatsScp, err)
	}
	if err := lenW.Close(); err != nil {
		return nil, fmt.Errorf("closing %s: %w", res.LenScp, err)
	}

	if cfg.Catalog != nil {
		if err := cfg.Catalog.ReplaceSet(set, rows); err != nil {
			return nil, err
		}
	}

	res.SampleRate = rate
	cfg.Logger.Infof("Processed %d files in %s set over %s", res.Count, set, time.Since(start))
	return res, nil
}

// PrepareAll runs Prepare for each set on a pool of three workers. Results
// follow the order of sets; failed partitions leave a nil entry and their
// errors are joined in the returned workerpool.MultiErr.
func PrepareAll(ctx context.Context, sets []string, datasetDir string, opts ...Option) ([]*Result, error) {
	results := make([]*Result, len(sets))
	wp := workerpool.New(3)
	for i, set := range sets {
		wp.Go(func() error {
			res, err := Prepare(ctx, set, datasetDir, opts...)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	return results, wp.Wait()
}

func writeNpy(path string, m *mat.Dense) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := npyio.Write(f, m); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
