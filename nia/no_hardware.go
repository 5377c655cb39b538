package nia

import (
	"fmt"
	"math"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/niawave/niawave/packets"
	"github.com/pkg/errors"
)

// SampleSource produces the next simulated sample value each time it is called.
type SampleSource func() uint32

// NoHardware is a drop in replacement for NIA (implements Channeler)
// that requires no hardware, for testing.
type NoHardware struct {
	perPacket           int
	source              SampleSource
	resetErr            error
	isOpen              bool
	isReset             bool
	packetsRead         int
	failAfter           int // reads beyond this many time out; <0 means never
	lastReadTime        time.Time
	minTimeBetweenReads time.Duration
	scratch             []uint32
}

// NewNoHardware returns a simulated device that puts perPacket samples from
// source in each packet.
func NewNoHardware(perPacket int, source SampleSource) (*NoHardware, error) {
	if perPacket < 0 || perPacket > packets.MaxSamples {
		return nil, fmt.Errorf("NewNoHardware: %d samples per packet, want 0-%d", perPacket, packets.MaxSamples)
	}
	if source == nil {
		source = ConstantSource(0)
	}
	nh := &NoHardware{perPacket: perPacket, source: source, isOpen: true, failAfter: -1,
		scratch: make([]uint32, perPacket)}
	return nh, nil
}

// FailReset makes the next Reset return err.
func (nh *NoHardware) FailReset(err error) {
	nh.resetErr = err
}

// TimeoutAfter makes every read after the first n reads return ErrTransferTimeout.
func (nh *NoHardware) TimeoutAfter(n int) {
	nh.failAfter = n
}

// SetReadPeriod makes each read wait until at least d has passed since the last one,
// imitating how the device only has a packet ready every few milliseconds.
func (nh *NoHardware) SetReadPeriod(d time.Duration) {
	nh.minTimeBetweenReads = d
}

// PacketsRead returns how many packets have been read successfully.
func (nh *NoHardware) PacketsRead() int {
	return nh.packetsRead
}

// Reset errors if configured to by FailReset, or if closed.
func (nh *NoHardware) Reset() error {
	if !nh.isOpen {
		return fmt.Errorf("NoHardware.Reset: not open")
	}
	if nh.resetErr != nil {
		return nh.resetErr
	}
	nh.isReset = true
	return nil
}

// Read fills p with the next perPacket samples from the source.
func (nh *NoHardware) Read(p *packets.Packet, timeout time.Duration) error {
	if !nh.isOpen {
		return fmt.Errorf("err in NoHardware.Read: not open")
	}
	if !nh.isReset {
		return fmt.Errorf("err in NoHardware.Read: not reset")
	}
	if nh.failAfter >= 0 && nh.packetsRead >= nh.failAfter {
		time.Sleep(timeout)
		return errors.Wrapf(ErrTransferTimeout, "after %v", timeout)
	}
	if nh.minTimeBetweenReads > 0 {
		wait := time.Until(nh.lastReadTime.Add(nh.minTimeBetweenReads))
		if wait > timeout {
			time.Sleep(timeout)
			return errors.Wrapf(ErrTransferTimeout, "after %v", timeout)
		}
		time.Sleep(wait)
	}
	nh.lastReadTime = time.Now()

	for i := range nh.scratch {
		nh.scratch[i] = nh.source() & packets.MaxValue
	}
	pack, err := packets.Encode(nh.scratch)
	if err != nil {
		return err
	}
	*p = *pack
	nh.packetsRead++
	return nil
}

// Close errors if already closed
func (nh *NoHardware) Close() error {
	if !nh.isOpen {
		return fmt.Errorf("NoHardware.Close: already closed")
	}
	nh.isOpen = false
	return nil
}

// Inspect returns a dump of the simulated device state.
func (nh *NoHardware) Inspect() string {
	return spew.Sdump(nh)
}

// ConstantSource always produces v.
func ConstantSource(v uint32) SampleSource {
	return func() uint32 { return v }
}

// SineSource produces offset + amplitude*sin(2π n cycles/period), continuing
// the phase from call to call. With period equal to the analysis window, the
// sine lands in FFT bin `cycles`.
func SineSource(offset, amplitude, cycles float64, period int) SampleSource {
	n := 0
	return func() uint32 {
		v := offset + amplitude*math.Sin(2*math.Pi*cycles*float64(n)/float64(period))
		n++
		if v < 0 {
			return 0
		}
		return uint32(v + 0.5)
	}
}
