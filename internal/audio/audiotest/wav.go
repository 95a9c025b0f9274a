// Package audiotest writes synthetic WAV fixtures for tests.
package audiotest

import (
	"math"
	"os"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Tone returns n samples of a sine at freq Hz scaled to 16-bit integers.
func Tone(n, rate int, freq, amp float64) []int {
	data := make([]int, n)
	for i := range data {
		data[i] = int(amp * 32767 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return data
}

// WriteWav writes interleaved 16-bit PCM data to path.
func WriteWav(t testing.TB, path string, rate, channels int, data []int) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating %s: %v", path, err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encoding %s: %v", path, err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("finalizing %s: %v", path, err)
	}
}

// WriteTone writes a mono tone of the given duration and returns its path.
func WriteTone(t testing.TB, path string, rate int, seconds, freq float64) string {
	t.Helper()
	WriteWav(t, path, rate, 1, Tone(int(float64(rate)*seconds), rate, freq, 0.5))
	return path
}
