package features

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// DefaultVADThreshold is the fraction of mean frame energy a frame must
// exceed to count as voiced.
const DefaultVADThreshold = 1.04 / 2

// RMSEnergy returns the root-mean-square energy of centered frames of y.
// Frame i covers frameLength samples around sample i*hop.
func RMSEnergy(y []float64, frameLength, hop int) ([]float64, error) {
	if frameLength <= 0 || hop <= 0 {
		return nil, fmt.Errorf("invalid framing: frame %d, hop %d", frameLength, hop)
	}
	padded, err := reflectPad(y, frameLength/2)
	if err != nil {
		return nil, err
	}
	if len(padded) < frameLength {
		return nil, fmt.Errorf("signal of %d samples is shorter than one frame", len(y))
	}

	nFrames := 1 + (len(padded)-frameLength)/hop
	energy := make([]float64, nFrames)
	for f := range energy {
		start := f * hop
		var sum float64
		for _, v := range padded[start : start+frameLength] {
			sum += v * v
		}
		energy[f] = math.Sqrt(sum / float64(frameLength))
	}
	return energy, nil
}

// EnergyVAD marks each frame 1 if its RMS energy exceeds ratio times the mean
// energy of the whole utterance, else 0. The threshold is global, so the
// detector needs the complete signal up front.
func EnergyVAD(y []float64, rate int, hopT, winT, ratio float64) ([]int, error) {
	hop := FrameLength(rate, hopT)
	win := FrameLength(rate, winT)
	energy, err := RMSEnergy(y, win, hop)
	if err != nil {
		return nil, err
	}

	th := ratio * stat.Mean(energy, nil)
	vad := make([]int, len(energy))
	for i, e := range energy {
		if e > th {
			vad[i] = 1
		}
	}
	return vad, nil
}
