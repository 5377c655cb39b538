package niawave

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/floats"
)

func TestRescale(t *testing.T) {
	var tests = [][]float64{
		{1, 2, 3, 4},
		{-7, 100, 3.5, 0, 12},
		{1e-9, 2e-9},
		{5, 5, 5, 6},
	}
	for _, src := range tests {
		dst := make([]float64, len(src))
		if Rescale(dst, src) {
			t.Errorf("Rescale(%v) reports degenerate", src)
		}
		assert.Equal(t, 0.0, floats.Min(dst))
		assert.InDelta(t, MaxIntensity, floats.Max(dst), 1e-9)
		assert.Equal(t, floats.MinIdx(src), floats.MinIdx(dst))
		assert.Equal(t, floats.MaxIdx(src), floats.MaxIdx(dst))
	}

	flat := []float64{3, 3, 3}
	dst := make([]float64, 3)
	assert.True(t, Rescale(dst, flat))
	assert.Equal(t, []float64{127.5, 127.5, 127.5}, dst)
}

func TestBandLevels(t *testing.T) {
	spectrum := make([]float64, DisplayBins)
	for i := range spectrum {
		spectrum[i] = float64(10 * i)
	}
	// Sums over [6,9) [9,12) [12,15) [15,20) [20,25) [25,30) [30,35) [35,40)
	want := [NumBands]int{210 / 100, 300 / 100, 390 / 100, 850 / 100, 1100 / 100, 1350 / 100, 1600 / 100, 1850 / 100}
	assert.Equal(t, want, BandLevels(spectrum))
	assert.Equal(t, want, BandLevels(spectrum), "BandLevels is not reproducible")

	// Bins outside the bands never count.
	for i := 0; i < BandEdges[0]; i++ {
		spectrum[i] = 1e6
	}
	assert.Equal(t, want, BandLevels(spectrum))

	full := make([]float64, DisplayBins)
	floats.AddConst(MaxIntensity, full)
	assert.Equal(t, [NumBands]int{7, 7, 7, 12, 12, 12, 12, 12}, BandLevels(full))
}

func TestMarkerAndSpectrumRows(t *testing.T) {
	var marker [DisplayColumns]uint8
	for i := range marker {
		marker[i] = 9
	}
	MarkerRow(marker[:], 3)
	for i, v := range marker {
		want := uint8(0)
		if i >= 12 && i < 16 {
			want = MaxIntensity
		}
		if v != want {
			t.Errorf("marker[%d]=%d, want %d", i, v, want)
		}
	}
	MarkerRow(marker[:], DisplayBins-1)
	assert.Equal(t, uint8(MaxIntensity), marker[DisplayColumns-1])

	spectrum := make([]float64, DisplayBins)
	for i := range spectrum {
		spectrum[i] = float64(i) * 6.4
	}
	var row [DisplayColumns]uint8
	SpectrumRow(row[:], spectrum)
	for c, v := range row {
		if want := uint8(spectrum[c/ColumnsPerBin]); v != want {
			t.Errorf("row[%d]=%d, want %d", c, v, want)
		}
	}
}

func TestTransformFindsTone(t *testing.T) {
	sa := NewSpectralAnalyzer()
	signal := make([]float64, WindowSize)
	for _, cycles := range []int{DisplayLo + 1, 12, 20, 33, DisplayHi - 2} {
		for i := range signal {
			signal[i] = math.Cos(2 * math.Pi * float64(cycles*i) / WindowSize)
		}
		f := sa.Transform(signal)
		assert.False(t, f.Degenerate)
		assert.Equal(t, cycles-DisplayLo, f.Peak, "tone with %d cycles per window", cycles)
		assert.Equal(t, MaxIntensity, int(f.Spectrum[f.Peak]))
		assert.Equal(t, uint8(MaxIntensity), f.Marker[ColumnsPerBin*f.Peak])
		assert.Equal(t, uint8(0), f.Marker[ColumnsPerBin*(f.Peak+1)])
	}
}

func TestTransformDegenerate(t *testing.T) {
	sa := NewSpectralAnalyzer()
	f := sa.Transform(make([]float64, WindowSize))
	assert.True(t, f.Degenerate)
	assert.Equal(t, 0, f.Peak)
	for _, v := range f.Spectrum {
		assert.Equal(t, rescaleFallback, v)
	}
	for _, v := range f.Row {
		assert.Equal(t, uint8(127), v)
	}
	assert.Equal(t, [NumBands]int{3, 3, 3, 6, 6, 6, 6, 6}, f.Bands)
}

func TestTransformLeavesSignal(t *testing.T) {
	sa := NewSpectralAnalyzer()
	signal := make([]float64, WindowSize)
	for i := range signal {
		signal[i] = 1
	}
	sa.Transform(signal)
	for i, v := range signal {
		if v != 1 {
			t.Fatalf("Transform modified its input: signal[%d]=%f", i, v)
		}
	}
}
