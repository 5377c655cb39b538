package niawave

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Fixed sizes of the acquisition and analysis windows.
const (
	QuantumSize = 1024            // new samples gathered per acquisition cycle
	WindowSize  = 4 * QuantumSize // samples kept in the rolling window (~1 second)
)

// wrapSpan is the size of the unsigned wraparound the sensor produces, and
// outlierSigmas is how far from the mean (in σ) a sample must be to be
// considered wrapped.
const (
	wrapSpan      = 1 << 16
	outlierSigmas = 10.0
)

// RollingBuffer holds the most recent WindowSize raw samples. It is always
// full: merging new samples evicts the same number of oldest ones.
// Internally it is a ring over a fixed array, so nothing is reallocated.
type RollingBuffer struct {
	data [WindowSize]uint32
	head int // index in data of the oldest sample
}

// NewRollingBuffer returns a full buffer with every sample equal to fill.
func NewRollingBuffer(fill uint32) *RollingBuffer {
	rb := new(RollingBuffer)
	for i := range rb.data {
		rb.data[i] = fill
	}
	return rb
}

// Len is always WindowSize.
func (rb *RollingBuffer) Len() int {
	return len(rb.data)
}

// At returns sample i, counting from the oldest (0) to the newest (WindowSize-1).
func (rb *RollingBuffer) At(i int) uint32 {
	return rb.data[(rb.head+i)%len(rb.data)]
}

// Samples copies the window, oldest first, into dst (allocated if nil) and returns it.
func (rb *RollingBuffer) Samples(dst []uint32) []uint32 {
	if dst == nil {
		dst = make([]uint32, len(rb.data))
	}
	n := copy(dst, rb.data[rb.head:])
	copy(dst[n:], rb.data[:rb.head])
	return dst[:len(rb.data)]
}

// Merge shifts the window left by count and writes newSamples[:count] into
// the freed tail. If count exceeds the window, only the newest WindowSize
// samples are kept. count must be in [0, len(newSamples)]; anything else is a
// caller bug and panics rather than merging fewer samples than claimed.
func (rb *RollingBuffer) Merge(newSamples []uint32, count int) {
	if count < 0 || count > len(newSamples) {
		panic(fmt.Sprintf("RollingBuffer.Merge: count %d with %d samples", count, len(newSamples)))
	}
	if count == 0 {
		return
	}
	if count > len(rb.data) {
		newSamples = newSamples[count-len(rb.data) : count]
		count = len(rb.data)
	}
	// The oldest count samples occupy the ring starting at head; overwrite them
	// in order, then advance head past them.
	n := copy(rb.data[rb.head:], newSamples[:count])
	copy(rb.data[:], newSamples[n:count])
	rb.head = (rb.head + count) % len(rb.data)
}

// Normalize writes the standardized window, oldest first, into dst (allocated
// if nil) and returns it along with whether the statistics were degenerate.
//
// The mean μ and population standard deviation σ are computed over the raw
// window. Samples above μ+10σ have wrapped downward and get 2^16 subtracted;
// samples below μ-10σ get 2^16 added. Corrected values are then mapped to
// (v-μ)/σ. The buffer itself is not modified. If σ is zero or the statistics
// are not finite, dst is all zeros and degenerate is true.
func (rb *RollingBuffer) Normalize(dst []float64) (out []float64, degenerate bool) {
	if len(dst) < len(rb.data) {
		dst = make([]float64, len(rb.data))
	}
	dst = dst[:len(rb.data)]
	for i := range dst {
		dst[i] = float64(rb.At(i))
	}

	mean, std := stat.PopMeanStdDev(dst, nil)
	if std == 0 || math.IsNaN(std) || math.IsInf(std, 0) || math.IsNaN(mean) {
		for i := range dst {
			dst[i] = 0
		}
		return dst, true
	}

	hi := mean + outlierSigmas*std
	lo := mean - outlierSigmas*std
	for i, v := range dst {
		switch {
		case v > hi:
			v -= wrapSpan
		case v < lo:
			v += wrapSpan
		}
		dst[i] = (v - mean) / std
	}
	return dst, false
}
