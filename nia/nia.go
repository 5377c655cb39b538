// Package nia provides the Device Channel to an OCZ Neural Impulse Actuator
// (NIA) style sensing device: a USB device that streams 64-byte bulk packets
// of 3-byte samples at roughly 4 kHz.
//
// The Channeler interface is what the acquisition code needs from a device:
// reset it once, then read packets with a per-read timeout. NIA implements it
// with real hardware over libusb; NoHardware is a drop-in replacement that
// synthesizes packets and requires no hardware, for testing.
package nia

import (
	"time"

	"github.com/niawave/niawave/packets"
	"github.com/pkg/errors"
)

// Default device selection, from the bridged USB cable the NIA ships with.
const (
	DefaultVendorID  uint16 = 0x1234
	DefaultProductID uint16 = 0x0000
	DefaultEndpoint  uint8  = 0x81
	DefaultTimeout          = 30 * time.Millisecond
)

// ErrDeviceUnavailable means the device could not be found or reset. A channel
// that fails this way is never retried: the caller runs without hardware for
// the rest of the process lifetime.
var ErrDeviceUnavailable = errors.New("NIA device unavailable")

// ErrTransferTimeout means one bulk read did not complete within its timeout.
var ErrTransferTimeout = errors.New("NIA bulk transfer timed out")

// Channeler is the interface to one open NIA device (or its simulation).
type Channeler interface {
	// Reset performs a hardware reset of the device.
	Reset() error
	// Read fills p with one bulk transfer, waiting at most timeout.
	Read(p *packets.Packet, timeout time.Duration) error
	// Close releases the device.
	Close() error
}

// Connect resets a freshly opened channel. On failure the channel is closed
// and the returned error wraps ErrDeviceUnavailable.
func Connect(ch Channeler) error {
	if err := ch.Reset(); err != nil {
		ch.Close()
		return errors.Wrapf(ErrDeviceUnavailable, "reset failed: %v", err)
	}
	return nil
}

// IsUnavailable reports whether err means the device could not be used at all.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrDeviceUnavailable)
}

// IsTimeout reports whether err is a transfer that exceeded its timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTransferTimeout)
}
