// Package corpus builds wav.scp manifests from a LibriSpeech download.
package corpus

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/himanishpuri/FHVAEKit/internal/manifest"
	"github.com/himanishpuri/FHVAEKit/pkg/logger"
	"github.com/himanishpuri/FHVAEKit/pkg/utils"
)

// Lists names the LibriSpeech subsets that make up each partition.
type Lists struct {
	Train []string
	Dev   []string
	Test  []string
}

// DefaultLists mirrors the usual FHVAE LibriSpeech setup. dev-other is
// shared by dev and test.
func DefaultLists() Lists {
	return Lists{
		Train: []string{"train-clean-100"},
		Dev:   []string{"dev-clean", "dev-other"},
		Test:  []string{"test-clean", "dev-other"},
	}
}

// FindAudios walks dir for .flac files and returns (utterance id, path) entries
// sorted by id. The id is the file name without its extension.
func FindAudios(dir string) ([]manifest.Entry, error) {
	var entries []manifest.Entry
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(d.Name()), ".flac") {
			return nil
		}
		id := strings.TrimSuffix(d.Name(), filepath.Ext(d.Name()))
		entries = append(entries, manifest.Entry{ID: id, Value: path})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

// WriteScp concatenates FindAudios over root/<set> for each set and writes
// the result to out, creating parent directories.
func WriteScp(root, out string, sets []string) (int, error) {
	if err := utils.MakeDir(filepath.Dir(out)); err != nil {
		return 0, err
	}

	var all []manifest.Entry
	for _, set := range sets {
		entries, err := FindAudios(filepath.Join(root, set))
		if err != nil {
			return 0, err
		}
		all = append(all, entries...)
	}
	if err := manifest.WriteAll(out, all); err != nil {
		return 0, fmt.Errorf("writing %s: %w", out, err)
	}
	return len(all), nil
}

// ProcessLibriSpeech writes <outDir>/{train,dev,test}/wav.scp for the subsets
// found under rawDir.
func ProcessLibriSpeech(rawDir, outDir string, lists Lists) error {
	log := logger.GetLogger()

	partitions := []struct {
		name string
		sets []string
	}{
		{"train", lists.Train},
		{"dev", lists.Dev},
		{"test", lists.Test},
	}
	for _, p := range partitions {
		out := filepath.Join(outDir, p.name, manifest.WavScp)
		n, err := WriteScp(rawDir, out, p.sets)
		if err != nil {
			return fmt.Errorf("%s partition: %w", p.name, err)
		}
		log.Infof("Wrote %d utterances to %s", n, out)
	}
	log.Infof("Generated wav scp files under %s", outDir)
	return nil
}
