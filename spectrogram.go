package niawave

import "github.com/niawave/niawave/internal/getbytes"

// Shape of the scrolling spectrogram.
const (
	HistoryRows = 280
	HistoryCols = DisplayColumns
	MarkerRows  = 4              // rows of peak marker drawn above each spectrum row
	ScrollRows  = MarkerRows + 1 // rows added per frame
	ImageRows   = 248            // rows handed to the renderer
)

// SpectrogramHistory is a fixed HistoryRows x HistoryCols image that scrolls
// down by ScrollRows each frame. Intensities 0-255 are kept in an int8 grid
// with the same bit pattern, so the grid's bytes are the image.
type SpectrogramHistory struct {
	grid [HistoryRows * HistoryCols]int8
}

// NewSpectrogramHistory returns an all-zero history.
func NewSpectrogramHistory() *SpectrogramHistory {
	return new(SpectrogramHistory)
}

// Scroll shifts every row down by ScrollRows, dropping the bottom rows, then
// writes the marker into rows 0 to MarkerRows-1 and the spectrum into row MarkerRows.
func (h *SpectrogramHistory) Scroll(marker, row *[HistoryCols]uint8) {
	copy(h.grid[ScrollRows*HistoryCols:], h.grid[:(HistoryRows-ScrollRows)*HistoryCols])
	for r := 0; r < MarkerRows; r++ {
		h.setRow(r, marker)
	}
	h.setRow(MarkerRows, row)
}

func (h *SpectrogramHistory) setRow(r int, px *[HistoryCols]uint8) {
	dst := h.grid[r*HistoryCols : (r+1)*HistoryCols]
	for c, v := range px {
		dst[c] = int8(v)
	}
}

// At returns the stored value at row r, column c.
func (h *SpectrogramHistory) At(r, c int) int8 {
	return h.grid[r*HistoryCols+c]
}

// Intensity returns the pixel intensity 0-255 at row r, column c.
func (h *SpectrogramHistory) Intensity(r, c int) uint8 {
	return uint8(h.At(r, c))
}

// Bytes returns the whole grid as bytes, row-major. It is a view, not a copy.
func (h *SpectrogramHistory) Bytes() []byte {
	return getbytes.FromSlice(h.grid[:])
}

// Image returns the top ImageRows rows: the single-channel 160x248 image the
// renderer draws. It is a view, not a copy.
func (h *SpectrogramHistory) Image() []byte {
	return h.Bytes()[:ImageRows*HistoryCols]
}
