package checkpoint

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// BestStep selects the best checkpoint in Select.
const BestStep = -1

var epochRe = regexp.MustCompile(`^(.+)_e(\d+)\.tar$`)

// Select picks a checkpoint from expDir. BestStep returns the best_model_*.tar
// with the highest epoch, which holds the highest validation bound; any other
// step indexes the lexicographically sorted *_*_e*.tar files, with other
// negative steps counting from the end.
func Select(expDir string, step int) (string, error) {
	if step == BestStep {
		matches, err := filepath.Glob(filepath.Join(expDir, BestPrefix+"*.tar"))
		if err != nil {
			return "", err
		}
		if len(matches) == 0 {
			return "", fmt.Errorf("%s: best model: %w", expDir, ErrNoCheckpoint)
		}
		sort.Strings(matches)
		latest, latestEpoch := "", -1
		for _, p := range matches {
			info, ok := ParseName(p)
			if !ok {
				continue
			}
			if info.Epoch >= latestEpoch {
				latest, latestEpoch = p, info.Epoch
			}
		}
		if latest == "" {
			return "", fmt.Errorf("%s: best model: %w", expDir, ErrNoCheckpoint)
		}
		return latest, nil
	}

	matches, err := filepath.Glob(filepath.Join(expDir, "*_*_e*.tar"))
	if err != nil {
		return "", err
	}
	sort.Strings(matches)

	idx := step
	if idx < 0 {
		idx += len(matches)
	}
	if idx < 0 || idx >= len(matches) {
		return "", fmt.Errorf("%s: step %d of %d: %w", expDir, step, len(matches), ErrNoCheckpoint)
	}
	return matches[idx], nil
}

// Info is what a checkpoint's file name says about it.
type Info struct {
	Path  string
	Name  string
	Epoch int
	Best  bool
}

// ParseName extracts the epoch and best flag from a checkpoint path.
func ParseName(path string) (Info, bool) {
	name := filepath.Base(path)
	m := epochRe.FindStringSubmatch(name)
	if m == nil {
		return Info{}, false
	}
	epoch, err := strconv.Atoi(m[2])
	if err != nil {
		return Info{}, false
	}
	return Info{
		Path:  path,
		Name:  name,
		Epoch: epoch,
		Best:  strings.HasPrefix(name, BestPrefix),
	}, true
}

// List returns every checkpoint in expDir in lexicographic order.
func List(expDir string) ([]Info, error) {
	matches, err := filepath.Glob(filepath.Join(expDir, "*.tar"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	var out []Info
	for _, p := range matches {
		if info, ok := ParseName(p); ok {
			out = append(out, info)
		}
	}
	return out, nil
}
