// Package manifest reads and writes Kaldi-style script files: one
// "<utterance-id> <value>" pair per line, separated by whitespace.
package manifest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Standard file names inside a partition directory.
const (
	WavScp   = "wav.scp"
	FeatsScp = "feats.scp"
	LenScp   = "len.scp"
)

// ErrMalformedLine is returned for lines that are not exactly two fields.
var ErrMalformedLine = errors.New("malformed scp line")

// Entry is one line of a script file.
type Entry struct {
	ID    string
	Value string
}

// Scan streams entries from r in order, stopping at the first error from fn.
// Blank lines are skipped.
func Scan(r io.Reader, fn func(Entry) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			return fmt.Errorf("line %d: %d fields: %w", line, len(fields), ErrMalformedLine)
		}
		if err := fn(Entry{ID: fields[0], Value: fields[1]}); err != nil {
			return err
		}
	}
	return sc.Err()
}

// Read loads every entry of the script file at path.
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []Entry
	err = Scan(f, func(e Entry) error {
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// Count returns the number of entries in the script file at path.
func Count(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n := 0
	err = Scan(f, func(Entry) error {
		n++
		return nil
	})
	return n, err
}

// Writer appends entries to a script file.
type Writer struct {
	f *os.File
	w *bufio.Writer
}

// Create truncates or creates the script file at path.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &Writer{f: f, w: bufio.NewWriter(f)}, nil
}

// Write appends "<id> <value>\n". Neither part may contain whitespace.
func (w *Writer) Write(id, value string) error {
	if id == "" || value == "" || strings.ContainsAny(id, " \t\n") || strings.ContainsAny(value, " \t\n") {
		return fmt.Errorf("entry %q %q: %w", id, value, ErrMalformedLine)
	}
	_, err := fmt.Fprintf(w.w, "%s %s\n", id, value)
	return err
}

// Close flushes buffered lines and closes the file.
func (w *Writer) Close() error {
	if err := w.w.Flush(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

// WriteAll writes entries to a new script file at path.
func WriteAll(path string, entries []Entry) error {
	w, err := Create(path)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := w.Write(e.ID, e.Value); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}
