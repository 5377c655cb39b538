package nia

import (
	"context"
	"fmt"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/gousb"
	"github.com/niawave/niawave/packets"
	"github.com/pkg/errors"
)

// NIA is a Channeler backed by real hardware through libusb.
type NIA struct {
	ctx      *gousb.Context
	dev      *gousb.Device
	intf     *gousb.Interface
	release  func() // releases the claimed interface
	ep       *gousb.InEndpoint
	vendor   uint16
	product  uint16
	endpoint uint8
}

// newContext creates the libusb context. gousb panics if libusb cannot be
// initialized, e.g. on a host without usbfs.
var newContext = gousb.NewContext

// openContext turns a libusb initialization panic into ErrDeviceUnavailable.
func openContext() (ctx *gousb.Context, err error) {
	defer func() {
		if r := recover(); r != nil {
			ctx = nil
			err = errors.Wrapf(ErrDeviceUnavailable, "libusb init: %v", r)
		}
	}()
	return newContext(), nil
}

// Open finds the device with the given vendor and product IDs, claims its
// default interface and the IN endpoint, and resets it. Any failure along the
// way is reported as ErrDeviceUnavailable.
func Open(vendorID, productID uint16, endpoint uint8) (*NIA, error) {
	n := &NIA{vendor: vendorID, product: productID, endpoint: endpoint}
	ctx, err := openContext()
	if err != nil {
		return nil, err
	}
	n.ctx = ctx

	dev, err := n.ctx.OpenDeviceWithVIDPID(gousb.ID(vendorID), gousb.ID(productID))
	if err != nil {
		n.Close()
		return nil, errors.Wrapf(ErrDeviceUnavailable, "open %04x:%04x: %v", vendorID, productID, err)
	}
	if dev == nil {
		n.Close()
		return nil, errors.Wrapf(ErrDeviceUnavailable, "no device %04x:%04x attached", vendorID, productID)
	}
	n.dev = dev

	// The reset comes before claiming the interface, because a reset
	// invalidates any claims.
	if err := Connect(n); err != nil {
		return nil, err
	}

	if err := dev.SetAutoDetach(true); err != nil {
		n.Close()
		return nil, errors.Wrapf(ErrDeviceUnavailable, "detach kernel driver: %v", err)
	}
	intf, done, err := dev.DefaultInterface()
	if err != nil {
		n.Close()
		return nil, errors.Wrapf(ErrDeviceUnavailable, "claim default interface: %v", err)
	}
	n.intf, n.release = intf, done

	// 0x81 is IN endpoint number 1.
	ep, err := intf.InEndpoint(int(endpoint & 0x0f))
	if err != nil {
		n.Close()
		return nil, errors.Wrapf(ErrDeviceUnavailable, "endpoint 0x%02x: %v", endpoint, err)
	}
	n.ep = ep
	return n, nil
}

// Reset performs a USB port reset of the device.
func (n *NIA) Reset() error {
	if n.dev == nil {
		return fmt.Errorf("NIA.Reset: device not open")
	}
	return errors.Wrap(n.dev.Reset(), "USB reset")
}

// Read performs one bulk read of a full packet. Timeouts are reported as
// ErrTransferTimeout; nothing is retried here.
func (n *NIA) Read(p *packets.Packet, timeout time.Duration) error {
	if n.ep == nil {
		return fmt.Errorf("NIA.Read: endpoint not open")
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	nread, err := n.ep.ReadContext(ctx, p[:])
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded || errors.Is(err, gousb.ErrorTimeout) ||
			errors.Is(err, gousb.TransferTimedOut) {
			return errors.Wrapf(ErrTransferTimeout, "after %v", timeout)
		}
		return errors.Wrap(err, "NIA bulk read")
	}
	if nread != packets.Length {
		return errors.Wrapf(packets.ErrBadLength, "bulk read returned %d bytes, want %d", nread, packets.Length)
	}
	return nil
}

// Close releases the interface, the device, and the libusb context, in that order.
func (n *NIA) Close() error {
	if n.release != nil {
		n.release()
		n.release = nil
	}
	var err error
	if n.dev != nil {
		err = n.dev.Close()
		n.dev = nil
	}
	if n.ctx != nil {
		if err2 := n.ctx.Close(); err == nil {
			err = err2
		}
		n.ctx = nil
	}
	n.ep = nil
	return err
}

// Inspect returns a dump of the device descriptor, for debugging.
func (n *NIA) Inspect() string {
	if n.dev == nil {
		return fmt.Sprintf("NIA %04x:%04x (closed)", n.vendor, n.product)
	}
	return spew.Sdump(n.dev.Desc)
}
