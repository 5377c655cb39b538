// Package packets decodes and encodes the fixed-layout bulk-transfer packets
// produced by the NIA sensing device.
//
// Each packet is 64 bytes. Byte 54 holds the number of valid samples (0-16)
// carried by the packet, and the first 3*count bytes hold those samples as
// little-endian 3-byte unsigned integers. The remaining bytes are ignored.
package packets

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// Layout of one packet.
const (
	Length         = 64 // bytes per bulk transfer
	CountOffset    = 54 // byte holding the sample count
	BytesPerSample = 3
	MaxSamples     = 16
	MaxValue       = 1<<24 - 1 // largest value a 3-byte field can hold
)

// Errors returned when a packet does not follow the layout.
var (
	ErrBadLength = errors.New("packet has wrong length")
	ErrBadCount  = errors.New("packet sample count out of range")
)

// Packet is the raw content of one bulk transfer.
type Packet [Length]byte

// Count returns the number of valid samples the packet claims to carry.
func (p *Packet) Count() int {
	return int(p[CountOffset])
}

// String gives a short human-readable description of the packet.
func (p *Packet) String() string {
	return fmt.Sprintf("NIA packet with %2d samples", p.Count())
}

// Decode writes the packet's samples into dst and returns how many were written.
// It fails if the count byte exceeds MaxSamples or dst is too short to hold them.
func (p *Packet) Decode(dst []uint32) (int, error) {
	n := p.Count()
	if n > MaxSamples {
		return 0, errors.Wrapf(ErrBadCount, "count byte is %d, want 0-%d", n, MaxSamples)
	}
	if len(dst) < n {
		return 0, errors.Errorf("Decode destination holds %d samples, packet carries %d", len(dst), n)
	}
	for i := 0; i < n; i++ {
		b := p[i*BytesPerSample : (i+1)*BytesPerSample]
		dst[i] = uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
	}
	return n, nil
}

// Samples is like Decode but allocates and returns a new slice.
func (p *Packet) Samples() ([]uint32, error) {
	dst := make([]uint32, MaxSamples)
	n, err := p.Decode(dst)
	if err != nil {
		return nil, err
	}
	return dst[:n], nil
}

// Encode builds a packet carrying the given samples. Values wider than 24 bits
// are an error, as are more than MaxSamples samples.
func Encode(samples []uint32) (*Packet, error) {
	if len(samples) > MaxSamples {
		return nil, errors.Wrapf(ErrBadCount, "cannot encode %d samples in one packet", len(samples))
	}
	p := new(Packet)
	for i, v := range samples {
		if v > MaxValue {
			return nil, errors.Errorf("sample %d value 0x%x does not fit in %d bytes", i, v, BytesPerSample)
		}
		off := i * BytesPerSample
		p[off] = byte(v)
		p[off+1] = byte(v >> 8)
		p[off+2] = byte(v >> 16)
	}
	p[CountOffset] = byte(len(samples))
	return p, nil
}

// FromBytes copies a raw transfer into a Packet. The transfer must be exactly Length bytes.
func FromBytes(data []byte) (*Packet, error) {
	if len(data) != Length {
		return nil, errors.Wrapf(ErrBadLength, "%d bytes, want %d", len(data), Length)
	}
	p := new(Packet)
	copy(p[:], data)
	return p, nil
}

// ReadPacket reads one packet from an io.Reader, such as a file of recorded raw transfers.
func ReadPacket(r io.Reader) (*Packet, error) {
	p := new(Packet)
	if _, err := io.ReadFull(r, p[:]); err != nil {
		return nil, err
	}
	return p, nil
}
