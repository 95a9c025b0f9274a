package features

import (
	"math"
	"math/cmplx"
	"testing"
)

func sine(n, rate int, freq, amp float64) []float64 {
	y := make([]float64, n)
	for i := range y {
		y[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
	}
	return y
}

func TestWindow(t *testing.T) {
	for _, name := range []string{"hamming", "hann", "blackman", "boxcar"} {
		t.Run(name, func(t *testing.T) {
			w, err := Window(name, 400)
			if err != nil {
				t.Fatalf("Window(%q): %v", name, err)
			}
			if len(w) != 400 {
				t.Fatalf("expected 400 taps, got %d", len(w))
			}
			// Periodic windows are symmetric around n/2.
			for i := 1; i < len(w); i++ {
				if math.Abs(w[i]-w[len(w)-i]) > 1e-12 {
					t.Fatalf("w[%d]=%f != w[%d]=%f", i, w[i], len(w)-i, w[len(w)-i])
				}
			}
		})
	}

	w, _ := Window("hamming", 400)
	if math.Abs(w[0]-0.08) > 1e-12 {
		t.Errorf("hamming w[0] = %f, want 0.08", w[0])
	}
	if math.Abs(w[200]-1.0) > 1e-12 {
		t.Errorf("hamming w[200] = %f, want 1", w[200])
	}

	if _, err := Window("kaiser", 16); err == nil {
		t.Error("expected error for unsupported window")
	}
}

func TestPreEmphasize(t *testing.T) {
	y := []float64{1, 2, 3, 4}

	got := PreEmphasize(y, 0.5)
	want := []float64{1, 1.5, 2, 2.5}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("out[%d] = %f, want %f", i, got[i], want[i])
		}
	}
	if y[1] != 2 {
		t.Error("input was modified in place")
	}

	for _, r := range []float64{0, 1e-13, 1e-12} {
		got := PreEmphasize(y, r)
		for i := range y {
			if got[i] != y[i] {
				t.Errorf("r=%g: out[%d] = %f, want untouched %f", r, i, got[i], y[i])
			}
		}
	}

	got = PreEmphasize(y, 2e-12)
	if got[1] == y[1] {
		t.Error("r just above 1e-12 should filter the signal")
	}
}

func TestSTFTShape(t *testing.T) {
	y := sine(16000, 16000, 440, 0.5)
	spec, err := STFT(y, 16000, DefaultParams())
	if err != nil {
		t.Fatalf("STFT: %v", err)
	}
	if len(spec) != 101 {
		t.Errorf("expected 101 frames, got %d", len(spec))
	}
	if len(spec[0]) != 201 {
		t.Errorf("expected 201 bins, got %d", len(spec[0]))
	}
}

func TestSTFTPeakBin(t *testing.T) {
	// 1 kHz at 16 kHz with a 400 point FFT lands on bin 25.
	y := sine(16000, 16000, 1000, 0.5)
	p := DefaultParams()
	p.PreEmphasis = 0
	spec, err := STFT(y, 16000, p)
	if err != nil {
		t.Fatalf("STFT: %v", err)
	}

	frame := spec[50]
	peak := 0
	for k := range frame {
		if cmplx.Abs(frame[k]) > cmplx.Abs(frame[peak]) {
			peak = k
		}
	}
	if peak != 25 {
		t.Errorf("peak at bin %d, want 25", peak)
	}
}

func TestPreEmphasisBoundary(t *testing.T) {
	y := sine(4000, 16000, 300, 0.3)

	p := DefaultParams()
	p.PreEmphasis = 0
	base, err := Magnitude(y, 16000, p)
	if err != nil {
		t.Fatalf("Magnitude: %v", err)
	}

	p.PreEmphasis = 1e-12
	edge, err := Magnitude(y, 16000, p)
	if err != nil {
		t.Fatalf("Magnitude: %v", err)
	}

	r, c := base.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if base.At(i, j) != edge.At(i, j) {
				t.Fatalf("(%d,%d): %f != %f", i, j, base.At(i, j), edge.At(i, j))
			}
		}
	}

	p.PreEmphasis = 2e-12
	above, err := Magnitude(y, 16000, p)
	if err != nil {
		t.Fatalf("Magnitude: %v", err)
	}
	changed := false
	for i := 0; i < r && !changed; i++ {
		for j := 0; j < c; j++ {
			if base.At(i, j) != above.At(i, j) {
				changed = true
				break
			}
		}
	}
	if !changed {
		t.Error("pre-emphasis of 2e-12 left the magnitudes untouched")
	}
}

func TestSTFTErrors(t *testing.T) {
	tests := []struct {
		name string
		y    []float64
		rate int
		p    Params
	}{
		{"empty signal", nil, 16000, DefaultParams()},
		{"shorter than half fft", make([]float64, 100), 16000, DefaultParams()},
		{"zero rate", make([]float64, 1000), 0, DefaultParams()},
		{"window wider than fft", make([]float64, 1000), 16000, Params{NFFT: 256, HopT: 0.01, WinT: 0.025, Window: "hamming"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := STFT(tt.y, tt.rate, tt.p); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLogFloorDefaults(t *testing.T) {
	silence := make([]float64, 8000)

	spec, err := Magnitude(silence, 16000, DefaultParams())
	if err != nil {
		t.Fatalf("Magnitude: %v", err)
	}
	r, c := spec.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if spec.At(i, j) != DefaultMagnitudeLogFloor {
				t.Fatalf("magnitude (%d,%d) = %f, want %f", i, j, spec.At(i, j), DefaultMagnitudeLogFloor)
			}
		}
	}

	mel, err := MelSpectrogram(silence, 16000, DefaultParams())
	if err != nil {
		t.Fatalf("MelSpectrogram: %v", err)
	}
	r, c = mel.Dims()
	if c != DefaultNMels {
		t.Errorf("expected %d mel channels, got %d", DefaultNMels, c)
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if mel.At(i, j) != DefaultMelLogFloor {
				t.Fatalf("mel (%d,%d) = %f, want %f", i, j, mel.At(i, j), DefaultMelLogFloor)
			}
		}
	}

	if DefaultMagnitudeLogFloor == DefaultMelLogFloor {
		t.Error("linear and mel floors must differ")
	}
}

func TestLogFloorClamp(t *testing.T) {
	y := sine(8000, 16000, 500, 0.2)
	for _, floor := range []float64{-50, -5, 0} {
		spec, err := Magnitude(y, 16000, DefaultParams(), WithLogFloor(floor))
		if err != nil {
			t.Fatalf("Magnitude: %v", err)
		}
		r, c := spec.Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				if spec.At(i, j) < floor {
					t.Fatalf("floor %g: (%d,%d) = %f", floor, i, j, spec.At(i, j))
				}
			}
		}
	}

	lin, err := Magnitude(y, 16000, DefaultParams(), WithLog(false))
	if err != nil {
		t.Fatalf("Magnitude: %v", err)
	}
	if lin.At(10, 0) < 0 {
		t.Error("unlogged magnitude must be non-negative")
	}
}

func TestMelFilterBank(t *testing.T) {
	fb, err := MelFilterBank(16000, 512, 40, 0, 8000, NormNone)
	if err != nil {
		t.Fatalf("MelFilterBank: %v", err)
	}
	r, c := fb.Dims()
	if r != 40 || c != 257 {
		t.Fatalf("expected 40x257, got %dx%d", r, c)
	}
	for m := 0; m < r; m++ {
		var peak float64
		for k := 0; k < c; k++ {
			v := fb.At(m, k)
			if v < 0 {
				t.Fatalf("negative weight at (%d,%d)", m, k)
			}
			peak = math.Max(peak, v)
		}
		if peak <= 0 || peak > 1+1e-9 {
			t.Errorf("filter %d peak = %f, want (0, 1]", m, peak)
		}
	}

	slaney, err := MelFilterBank(16000, 512, 40, 0, 8000, NormSlaney)
	if err != nil {
		t.Fatalf("MelFilterBank: %v", err)
	}
	// Slaney filters shrink as they widen, so the top filter is lower than the bottom.
	if slaney.At(0, 1) <= 0 {
		t.Fatal("lowest slaney filter is empty")
	}
	var topPeak, bottomPeak float64
	for k := 0; k < c; k++ {
		bottomPeak = math.Max(bottomPeak, slaney.At(0, k))
		topPeak = math.Max(topPeak, slaney.At(39, k))
	}
	if topPeak >= bottomPeak {
		t.Errorf("top filter peak %f should be below bottom peak %f", topPeak, bottomPeak)
	}

	// Reference weights of librosa.filters.mel(sr=16000, n_fft=512, n_mels=40, norm="slaney").
	golden := []struct {
		m, k int
		want float64
	}{
		{0, 1, 0.005773601070147666},
		{0, 2, 0.011547202140295332},
		{0, 3, 0.009864136314575283},
		{10, 26, 0.012996009326270357},
		{20, 56, 0.007259790298394356},
		{39, 221, 0.00010675281683995907},
		{39, 237, 0.0017454237078278051},
	}
	for _, g := range golden {
		if got := slaney.At(g.m, g.k); math.Abs(got-g.want) > 1e-12 {
			t.Errorf("slaney[%d][%d] = %.15g, want %.15g", g.m, g.k, got, g.want)
		}
	}

	// Each slaney triangle integrates to about 1 over Hz at 31.25 Hz per bin.
	binHz := 16000.0 / 512
	for m := 0; m < r; m++ {
		var area float64
		for k := 0; k < c; k++ {
			area += slaney.At(m, k) * binHz
		}
		if math.Abs(area-1) > 0.05 {
			t.Errorf("filter %d area = %f, want ~1", m, area)
		}
	}

	if _, err := MelFilterBank(16000, 512, 40, 0, 8000, "max"); err == nil {
		t.Error("expected error for unknown normalization")
	}
}

func TestHzMelRoundTrip(t *testing.T) {
	for _, hz := range []float64{0, 100, 999, 1000, 4000, 8000} {
		if got := MelToHz(HzToMel(hz)); math.Abs(got-hz) > 1e-6 {
			t.Errorf("round trip %f -> %f", hz, got)
		}
	}
	if math.Abs(HzToMel(1000)-15) > 1e-12 {
		t.Errorf("HzToMel(1000) = %f, want 15", HzToMel(1000))
	}
}

func TestEnergyVAD(t *testing.T) {
	y := append(make([]float64, 8000), sine(8000, 16000, 440, 0.5)...)

	vad, err := EnergyVAD(y, 16000, 0.010, 0.025, DefaultVADThreshold)
	if err != nil {
		t.Fatalf("EnergyVAD: %v", err)
	}
	if len(vad) != 101 {
		t.Fatalf("expected 101 frames, got %d", len(vad))
	}
	for i := 0; i <= 48; i++ {
		if vad[i] != 0 {
			t.Errorf("silent frame %d marked voiced", i)
		}
	}
	for i := 52; i < len(vad); i++ {
		if vad[i] != 1 {
			t.Errorf("tone frame %d marked unvoiced", i)
		}
	}
}

func TestGenerate(t *testing.T) {
	y := sine(16000, 16000, 440, 0.5)

	tests := []struct {
		kind     Kind
		channels int
	}{
		{KindFbank, 80},
		{KindSpec, 201},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			feat, err := Generate(tt.kind, y, 16000, 0.025, 0.010, 80)
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			r, c := feat.Dims()
			if r != 101 || c != tt.channels {
				t.Errorf("expected 101x%d, got %dx%d", tt.channels, r, c)
			}
		})
	}

	if _, err := ParseKind("mfcc"); err == nil {
		t.Error("expected error for unknown kind")
	}
}
