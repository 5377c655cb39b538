package niawave

import (
	"fmt"
	"time"

	"github.com/niawave/niawave/nia"
	"github.com/niawave/niawave/packets"
)

// BufferOverrunError means an acquisition would have written past the end of
// the staging array. It is a programming error, not a device error.
type BufferOverrunError struct {
	Need     int // samples that would be held after the write
	Capacity int // length of the staging array
}

func (e *BufferOverrunError) Error() string {
	return fmt.Sprintf("staging buffer overrun: need %d samples, capacity %d", e.Need, e.Capacity)
}

// Assembler reads packets from a device until it has collected at least one
// full quantum of samples.
type Assembler struct {
	Quantum int           // collect at least this many samples
	Timeout time.Duration // per-read timeout
	staging []uint32
	packet  packets.Packet
}

// NewAssembler creates an Assembler that gathers quantum samples into a
// staging array of the given capacity. The last packet of a collection can
// carry the count past quantum, so capacity should leave room for one more
// packet.
func NewAssembler(quantum, capacity int, timeout time.Duration) *Assembler {
	return &Assembler{Quantum: quantum, Timeout: timeout, staging: make([]uint32, capacity)}
}

// Collect reads packets from ch until at least Quantum samples have arrived,
// and returns them (a view into the staging array, valid until the next call).
// Read errors are returned as-is and abort the collection.
func (a *Assembler) Collect(ch nia.Channeler) ([]uint32, error) {
	if len(a.staging) < a.Quantum {
		return nil, &BufferOverrunError{Need: a.Quantum, Capacity: len(a.staging)}
	}
	count := 0
	for count < a.Quantum {
		if err := ch.Read(&a.packet, a.Timeout); err != nil {
			return nil, err
		}
		n := a.packet.Count()
		if n <= packets.MaxSamples && count+n > len(a.staging) {
			return nil, &BufferOverrunError{Need: count + n, Capacity: len(a.staging)}
		}
		n, err := a.packet.Decode(a.staging[count:])
		if err != nil {
			return nil, err
		}
		count += n
	}
	return a.staging[:count], nil
}
