// Package dataset serves fixed-length feature segments from a materialized
// partition (feats.scp + len.scp + <utt>.npy).
package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"

	"github.com/himanishpuri/FHVAEKit/internal/manifest"
)

// Utterance is one sequence of the dataset.
type Utterance struct {
	Seq    int
	ID     string
	Path   string
	Frames int
}

type segment struct {
	utt   int
	start int
}

// Numpy indexes non-overlapping (or strided) segments of every utterance.
// Utterances shorter than one segment contribute none.
type Numpy struct {
	Utterances []Utterance
	SegLen     int
	SegShift   int

	segments []segment
	nsegs    []int
}

// OpenNumpy reads feats.scp and len.scp from setDir. Both manifests must list
// the same ids in the same order.
func OpenNumpy(setDir string, segLen, segShift int) (*Numpy, error) {
	if segLen <= 0 {
		return nil, fmt.Errorf("segment length must be positive, got %d", segLen)
	}
	if segShift <= 0 {
		segShift = segLen
	}

	feats, err := manifest.Read(filepath.Join(setDir, manifest.FeatsScp))
	if err != nil {
		return nil, err
	}
	lens, err := manifest.Read(filepath.Join(setDir, manifest.LenScp))
	if err != nil {
		return nil, err
	}
	if len(feats) != len(lens) {
		return nil, fmt.Errorf("feats.scp has %d entries but len.scp has %d", len(feats), len(lens))
	}

	d := &Numpy{SegLen: segLen, SegShift: segShift}
	for i := range feats {
		if feats[i].ID != lens[i].ID {
			return nil, fmt.Errorf("line %d: feats.scp id %q != len.scp id %q", i+1, feats[i].ID, lens[i].ID)
		}
		frames, err := strconv.Atoi(lens[i].Value)
		if err != nil {
			return nil, fmt.Errorf("len.scp %s: %w", lens[i].ID, err)
		}
		d.Utterances = append(d.Utterances, Utterance{Seq: i, ID: feats[i].ID, Path: feats[i].Value, Frames: frames})

		n := 0
		for start := 0; start+segLen <= frames; start += segShift {
			d.segments = append(d.segments, segment{utt: i, start: start})
			n++
		}
		d.nsegs = append(d.nsegs, n)
	}
	return d, nil
}

// NumSeqs is the number of utterances.
func (d *Numpy) NumSeqs() int { return len(d.Utterances) }

// Len is the number of segments.
func (d *Numpy) Len() int { return len(d.segments) }

// NSegs returns the segment count of sequence seq.
func (d *Numpy) NSegs(seq int) int { return d.nsegs[seq] }

// Batch is a group of segments with their sequence ids and the segment count
// of each segment's sequence.
type Batch struct {
	SeqIDs   []int
	Features []*mat.Dense
	NSegs    []int
}

// Len is the number of segments in the batch.
func (b Batch) Len() int { return len(b.SeqIDs) }

// Loader walks the segments once, in manifest order.
type Loader struct {
	d         *Numpy
	batchSize int
	pos       int

	cachedUtt int
	cached    *mat.Dense
}

// Loader returns a single-pass iterator yielding batches of batchSize segments.
func (d *Numpy) Loader(batchSize int) *Loader {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Loader{d: d, batchSize: batchSize, cachedUtt: -1}
}

// Next returns the next batch, or false once the segments are exhausted.
func (l *Loader) Next() (Batch, bool, error) {
	if l.pos >= len(l.d.segments) {
		return Batch{}, false, nil
	}

	end := min(l.pos+l.batchSize, len(l.d.segments))
	var b Batch
	for _, seg := range l.d.segments[l.pos:end] {
		feat, err := l.utterance(seg.utt)
		if err != nil {
			return Batch{}, false, err
		}
		_, cols := feat.Dims()
		window := mat.DenseCopyOf(feat.Slice(seg.start, seg.start+l.d.SegLen, 0, cols))
		b.SeqIDs = append(b.SeqIDs, seg.utt)
		b.Features = append(b.Features, window)
		b.NSegs = append(b.NSegs, l.d.nsegs[seg.utt])
	}
	l.pos = end
	return b, true, nil
}

func (l *Loader) utterance(idx int) (*mat.Dense, error) {
	if idx == l.cachedUtt {
		return l.cached, nil
	}
	u := l.d.Utterances[idx]
	m, err := ReadNpy(u.Path)
	if err != nil {
		return nil, fmt.Errorf("utterance %s: %w", u.ID, err)
	}
	if rows, _ := m.Dims(); rows < u.Frames {
		return nil, fmt.Errorf("utterance %s: %d frames on disk, len.scp says %d", u.ID, rows, u.Frames)
	}
	l.cachedUtt, l.cached = idx, m
	return m, nil
}

// ReadNpy loads a 2-D float64 .npy artifact.
func ReadNpy(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var m mat.Dense
	if err := npyio.Read(f, &m); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return &m, nil
}
