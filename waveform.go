package niawave

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Shape and colors of the waveform image.
const (
	WaveformRows     = 140
	WaveformCols     = 410
	WaveformChannels = 3
	waveformStride   = 2 // signal samples per image column
	waveformMid      = 70
	waveformHalf     = 69
)

var (
	waveformBackground = [WaveformChannels]byte{0, 0, 51}
	waveformTrace      = [WaveformChannels]byte{0, 204, 255}
)

// Waveform is an RGB image of the most recent stretch of normalized signal.
type Waveform struct {
	pix []byte
}

// NewWaveform allocates the image once; Render reuses it.
func NewWaveform() *Waveform {
	return &Waveform{pix: make([]byte, WaveformRows*WaveformCols*WaveformChannels)}
}

// Render redraws the image from signal. Column i shows signal[2i], scaled so
// the largest |signal| reaches row 1 or 139 and zero sits on row 70.
func (w *Waveform) Render(signal []float64) []byte {
	for i := 0; i < len(w.pix); i += WaveformChannels {
		copy(w.pix[i:i+WaveformChannels], waveformBackground[:])
	}

	xmax := math.Max(floats.Max(signal), -floats.Min(signal))
	for c := 0; c < WaveformCols; c++ {
		r := waveformMid
		if xmax > 0 && !math.IsInf(xmax, 0) {
			r = int(signal[c*waveformStride]/xmax*waveformHalf + waveformMid)
		}
		w.set(r, c)
	}
	return w.pix
}

// Pix returns the image last rendered, row-major with 3 bytes per pixel.
func (w *Waveform) Pix() []byte {
	return w.pix
}

// At returns the RGB value at row r, column c.
func (w *Waveform) At(r, c int) [WaveformChannels]byte {
	var px [WaveformChannels]byte
	i := (r*WaveformCols + c) * WaveformChannels
	copy(px[:], w.pix[i:i+WaveformChannels])
	return px
}

func (w *Waveform) set(r, c int) {
	if r < 0 || r >= WaveformRows {
		return
	}
	i := (r*WaveformCols + c) * WaveformChannels
	copy(w.pix[i:i+WaveformChannels], waveformTrace[:])
}
