package packets

import (
	"bytes"
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestDecode(t *testing.T) {
	var p Packet
	// Two samples: 0x030201 and 0xFFFFFF
	copy(p[:], []byte{0x01, 0x02, 0x03, 0xff, 0xff, 0xff, 0xaa})
	p[CountOffset] = 2

	dst := make([]uint32, MaxSamples)
	n, err := p.Decode(dst)
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, uint32(0x030201), dst[0])
	assert.Equal(t, uint32(0xffffff), dst[1])
	assert.Equal(t, uint32(0), dst[2], "Decode wrote past the sample count")

	var empty Packet
	n, err = empty.Decode(dst)
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestDecodeErrors(t *testing.T) {
	var p Packet
	p[CountOffset] = MaxSamples + 1
	if _, err := p.Decode(make([]uint32, 32)); !errors.Is(err, ErrBadCount) {
		t.Errorf("Decode with count %d returns %v, want ErrBadCount", p.Count(), err)
	}

	p[CountOffset] = 8
	if _, err := p.Decode(make([]uint32, 7)); err == nil {
		t.Errorf("Decode into a too-short slice should error")
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	samples := []uint32{0, 1, 255, 256, 65535, 65536, 0x123456, MaxValue}
	p, err := Encode(samples)
	if err != nil {
		t.Fatalf("Encode(%v) error: %v", samples, err)
	}
	assert.Equal(t, len(samples), p.Count())
	got, err := p.Samples()
	assert.NoError(t, err)
	assert.Equal(t, samples, got)

	if _, err := Encode(make([]uint32, MaxSamples+1)); !errors.Is(err, ErrBadCount) {
		t.Errorf("Encode of %d samples returns %v, want ErrBadCount", MaxSamples+1, err)
	}
	if _, err := Encode([]uint32{MaxValue + 1}); err == nil {
		t.Errorf("Encode of a 25-bit value should error")
	}
}

func TestFromBytesAndRead(t *testing.T) {
	if _, err := FromBytes(make([]byte, Length-1)); !errors.Is(err, ErrBadLength) {
		t.Errorf("FromBytes(short) returns %v, want ErrBadLength", err)
	}

	p1, _ := Encode([]uint32{7, 8, 9})
	p2, _ := Encode([]uint32{10})
	var stream bytes.Buffer
	stream.Write(p1[:])
	stream.Write(p2[:])
	stream.Write([]byte{1, 2, 3})

	r := bytes.NewReader(stream.Bytes())
	for _, want := range []*Packet{p1, p2} {
		got, err := ReadPacket(r)
		assert.NoError(t, err)
		assert.Equal(t, *want, *got)
	}
	if _, err := ReadPacket(r); err != io.ErrUnexpectedEOF {
		t.Errorf("ReadPacket on a partial packet returns %v, want io.ErrUnexpectedEOF", err)
	}

	p3, err := FromBytes(p1[:])
	assert.NoError(t, err)
	assert.Equal(t, "NIA packet with  3 samples", p3.String())
}

func TestErrorCauses(t *testing.T) {
	var p Packet
	p[CountOffset] = MaxSamples + 3
	_, err := p.Decode(make([]uint32, 32))
	assert.Equal(t, ErrBadCount, errors.Cause(err))
	assert.Contains(t, err.Error(), "count byte is 19")

	_, err = Encode(make([]uint32, MaxSamples+1))
	assert.Equal(t, ErrBadCount, errors.Cause(err))

	_, err = FromBytes(make([]byte, Length+1))
	assert.Equal(t, ErrBadLength, errors.Cause(err))
	assert.Contains(t, err.Error(), "65 bytes, want 64")
}
