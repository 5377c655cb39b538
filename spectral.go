package niawave

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"
)

// Frequency bins shown on the spectrogram, and how each is drawn.
const (
	DisplayLo      = 5                       // first FFT bin displayed
	DisplayHi      = 45                      // one past the last FFT bin displayed
	DisplayBins    = DisplayHi - DisplayLo   // 40
	ColumnsPerBin  = 4                       // each bin is drawn this many pixels wide
	DisplayColumns = DisplayBins * ColumnsPerBin
	MaxIntensity   = 255
	NumBands       = 8
)

// rescaleFallback is what every bin rescales to when the spectrum is flat.
const rescaleFallback = MaxIntensity / 2.0

// BandEdges are the bin indices (into the displayed 40-bin range) bounding
// each band: band i covers [BandEdges[i], BandEdges[i+1]). The first four
// bands span alpha frequencies and the last four beta.
var BandEdges = [NumBands + 1]int{6, 9, 12, 15, 20, 25, 30, 35, 40}

// bandStep is how much summed intensity makes one band level.
const bandStep = 100

// SpectralFrame is the result of one spectral transform.
type SpectralFrame struct {
	Spectrum   [DisplayBins]float64 // displayed bins rescaled to [0, MaxIntensity]
	Row        [DisplayColumns]uint8
	Marker     [DisplayColumns]uint8
	Peak       int // index into Spectrum of the largest bin
	Bands      [NumBands]int
	Degenerate bool // the spectrum was flat and Spectrum holds the fallback value
}

// SpectralAnalyzer windows and transforms the normalized signal, and keeps
// the scrolling spectrogram of the results.
type SpectralAnalyzer struct {
	fft      *fourier.FFT
	hann     window.Values
	windowed []float64
	coeffs   []complex128
	mags     [DisplayBins]float64
	frame    SpectralFrame
	History  *SpectrogramHistory
}

// NewSpectralAnalyzer creates an analyzer for WindowSize-sample signals.
func NewSpectralAnalyzer() *SpectralAnalyzer {
	return &SpectralAnalyzer{
		fft:      fourier.NewFFT(WindowSize),
		hann:     window.NewValues(window.Hann, WindowSize),
		windowed: make([]float64, WindowSize),
		coeffs:   make([]complex128, WindowSize/2+1),
		History:  NewSpectrogramHistory(),
	}
}

// Transform applies a Hann window to signal, takes the magnitude of its
// Fourier transform, and rescales the displayed bins. It scrolls the result
// into History and returns the frame, which is reused by the next call.
// signal must have WindowSize elements.
func (sa *SpectralAnalyzer) Transform(signal []float64) *SpectralFrame {
	sa.hann.TransformTo(sa.windowed, signal[:WindowSize])
	sa.coeffs = sa.fft.Coefficients(sa.coeffs, sa.windowed)
	for i := range sa.mags {
		sa.mags[i] = cmplx.Abs(sa.coeffs[DisplayLo+i])
	}

	f := &sa.frame
	f.Degenerate = Rescale(f.Spectrum[:], sa.mags[:])
	f.Peak = floats.MaxIdx(f.Spectrum[:])
	MarkerRow(f.Marker[:], f.Peak)
	SpectrumRow(f.Row[:], f.Spectrum[:])
	f.Bands = BandLevels(f.Spectrum[:])

	sa.History.Scroll(&f.Marker, &f.Row)
	return f
}

// Rescale maps src linearly onto [0, MaxIntensity] in dst, the minimum going
// to 0 and the maximum to MaxIntensity. If src is flat (or not finite) every
// value becomes MaxIntensity/2 and Rescale returns true.
func Rescale(dst, src []float64) (degenerate bool) {
	lo, hi := floats.Min(src), floats.Max(src)
	span := hi - lo
	if span == 0 || math.IsNaN(span) || math.IsInf(span, 0) {
		for i := range dst[:len(src)] {
			dst[i] = rescaleFallback
		}
		return true
	}
	for i, v := range src {
		dst[i] = MaxIntensity * (v - lo) / span
	}
	return false
}

// MarkerRow fills dst with zeros except for a ColumnsPerBin-wide block of
// MaxIntensity over the given bin.
func MarkerRow(dst []uint8, bin int) {
	for i := range dst {
		dst[i] = 0
	}
	for i := bin * ColumnsPerBin; i < (bin+1)*ColumnsPerBin && i < len(dst); i++ {
		dst[i] = MaxIntensity
	}
}

// SpectrumRow draws each rescaled bin ColumnsPerBin pixels wide.
func SpectrumRow(dst []uint8, spectrum []float64) {
	for i, v := range spectrum {
		px := uint8(clamp(v, 0, MaxIntensity))
		for j := 0; j < ColumnsPerBin; j++ {
			dst[i*ColumnsPerBin+j] = px
		}
	}
}

// BandLevels sums the rescaled spectrum over each band and converts the sum
// into a count of indicator steps, floor(sum/100).
func BandLevels(spectrum []float64) [NumBands]int {
	var levels [NumBands]int
	for i := range levels {
		sum := floats.Sum(spectrum[BandEdges[i]:BandEdges[i+1]])
		levels[i] = int(math.Floor(sum / bandStep))
	}
	return levels
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
