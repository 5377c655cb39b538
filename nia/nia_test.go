package nia

import (
	"fmt"
	"testing"
	"time"

	"github.com/niawave/niawave/packets"
	"github.com/stretchr/testify/assert"
)

func TestNoHardware(t *testing.T) {
	count := uint32(100)
	source := func() uint32 { count++; return count }
	nh, err := NewNoHardware(16, source)
	if err != nil {
		t.Fatal(err)
	}

	var p packets.Packet
	if err := nh.Read(&p, DefaultTimeout); err == nil {
		t.Errorf("NoHardware.Read before Reset should error")
	}
	if err := Connect(nh); err != nil {
		t.Fatalf("Connect(NoHardware) error: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := nh.Read(&p, DefaultTimeout); err != nil {
			t.Fatalf("NoHardware.Read error: %v", err)
		}
		samples, err := p.Samples()
		assert.NoError(t, err)
		assert.Len(t, samples, 16)
		assert.Equal(t, uint32(101+16*i), samples[0])
		assert.Equal(t, uint32(116+16*i), samples[15])
	}
	assert.Equal(t, 3, nh.PacketsRead())
	assert.NotEmpty(t, nh.Inspect())

	assert.NoError(t, nh.Close())
	assert.Error(t, nh.Close())
	assert.Error(t, nh.Read(&p, DefaultTimeout))

	if _, err := NewNoHardware(17, nil); err == nil {
		t.Errorf("NewNoHardware(17) should error")
	}
}

func TestConnectFailure(t *testing.T) {
	nh, _ := NewNoHardware(16, nil)
	nh.FailReset(fmt.Errorf("pipe error"))
	err := Connect(nh)
	assert.Error(t, err)
	assert.True(t, IsUnavailable(err), "Connect error %v should be ErrDeviceUnavailable", err)
	assert.False(t, IsTimeout(err))
	// A failed Connect closes the channel.
	assert.Error(t, nh.Close())
}

func TestTimeout(t *testing.T) {
	nh, _ := NewNoHardware(4, ConstantSource(7))
	nh.TimeoutAfter(2)
	if err := Connect(nh); err != nil {
		t.Fatal(err)
	}
	var p packets.Packet
	assert.NoError(t, nh.Read(&p, time.Millisecond))
	assert.NoError(t, nh.Read(&p, time.Millisecond))
	err := nh.Read(&p, time.Millisecond)
	assert.True(t, IsTimeout(err), "third read returned %v, want a timeout", err)
	assert.False(t, IsUnavailable(err))

	slow, _ := NewNoHardware(4, nil)
	slow.SetReadPeriod(50 * time.Millisecond)
	Connect(slow)
	assert.NoError(t, slow.Read(&p, time.Millisecond), "first read has no predecessor to wait on")
	assert.True(t, IsTimeout(slow.Read(&p, time.Millisecond)))
}

func TestSineSource(t *testing.T) {
	const period = 8
	src := SineSource(1000, 100, 1, period)
	want := []uint32{1000, 1071, 1100, 1071, 1000, 929, 900, 929, 1000}
	for i, w := range want {
		if v := src(); v != w {
			t.Errorf("SineSource value %d = %d, want %d", i, v, w)
		}
	}
	neg := SineSource(0, 10, 1, 4)
	neg()
	neg()
	neg()
	assert.Equal(t, uint32(0), neg(), "negative values clip at 0")
}
