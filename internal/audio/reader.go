package audio

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

// ErrUnsupportedFormat is returned for WAV files that are not integer PCM.
var ErrUnsupportedFormat = errors.New("unsupported wav format")

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// Clip is a mono waveform normalized to [-1, 1] together with its rate.
type Clip struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float64 {
	if c.SampleRate == 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// ReadWav decodes an integer PCM WAV file and averages its channels to mono.
func ReadWav(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening wav: %w", err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%s: not a valid WAV/RIFF file", path)
	}
	if d.WavAudioFormat != wavFormatPCM && d.WavAudioFormat != wavFormatExtensible {
		return nil, fmt.Errorf("%s: format tag %d: %w", path, d.WavAudioFormat, ErrUnsupportedFormat)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decoding pcm: %w", err)
	}

	channels := int(d.NumChans)
	if channels < 1 {
		return nil, fmt.Errorf("%s: no channels", path)
	}
	bitDepth := int(d.BitDepth)
	if bitDepth < 8 || bitDepth > 32 {
		return nil, fmt.Errorf("%s: %d-bit samples: %w", path, bitDepth, ErrUnsupportedFormat)
	}

	samples := toMonoFloat64(buf.Data, channels, bitDepth)
	return &Clip{Samples: samples, SampleRate: int(d.SampleRate)}, nil
}

// ReadWavAsFloat64 reads a WAV file and returns mono samples and the sample rate.
func ReadWavAsFloat64(path string) ([]float64, int, error) {
	clip, err := ReadWav(path)
	if err != nil {
		return nil, 0, err
	}
	return clip.Samples, clip.SampleRate, nil
}

// toMonoFloat64 scales interleaved integer samples to [-1, 1] and averages
// each frame across channels. 8-bit WAV data is unsigned.
func toMonoFloat64(data []int, channels, bitDepth int) []float64 {
	scale := float64(int64(1) << (bitDepth - 1))
	offset := 0.0
	if bitDepth == 8 {
		offset = 128
	}

	frames := len(data) / channels
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += (float64(data[i*channels+c]) - offset) / scale
		}
		out[i] = sum / float64(channels)
	}
	return out
}
