package niawave

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Frame holds the processed outputs of one cycle, ready for rendering.
// Waveform and Spectrogram alias buffers that the next cycle overwrites, so a
// FrameSink must finish with them before WriteFrame returns.
type Frame struct {
	ID          ulid.ULID
	Time        time.Time
	Cycle       int
	Connected   bool
	Peak        int
	Bands       [NumBands]int
	Degenerate  bool   // the spectrum was flat and was drawn with the fallback value
	Waveform    []byte `json:"-"` // WaveformRows x WaveformCols x 3, row-major
	Spectrogram []byte `json:"-"` // ImageRows x HistoryCols, row-major
}

// FrameSink consumes frames, e.g. a renderer or a publisher.
type FrameSink interface {
	WriteFrame(*Frame) error
}

// FrameSinkFunc lets an ordinary function serve as a FrameSink.
type FrameSinkFunc func(*Frame) error

// WriteFrame calls f(frame).
func (f FrameSinkFunc) WriteFrame(frame *Frame) error {
	return f(frame)
}
