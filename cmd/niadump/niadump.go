package main

import (
	"fmt"
	"os"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/integrii/flaggy"
	"github.com/niawave/niawave/internal/asyncbufio"
	"github.com/niawave/niawave/nia"
	"github.com/niawave/niawave/npyappend"
	"github.com/niawave/niawave/packets"
)

type dumpOptions struct {
	npack      int
	verbose    bool
	outfile    string
	npyfile    string
	noHardware bool
	vendor     uint16
	product    uint16
	endpoint   uint8
	timeout    time.Duration
}

func open(opts dumpOptions) (nia.Channeler, error) {
	if opts.noHardware {
		sim, err := nia.NewNoHardware(packets.MaxSamples, nia.SineSource(1<<23, 1<<20, 40, 4096))
		if err != nil {
			return nil, err
		}
		return sim, nia.Connect(sim)
	}
	dev, err := nia.Open(opts.vendor, opts.product, opts.endpoint)
	if err != nil {
		return nil, err
	}
	return dev, nil
}

func dump(opts dumpOptions) error {
	dev, err := open(opts)
	if err != nil {
		return err
	}
	defer dev.Close()
	fmt.Printf("Reading the first %d packets from %04x:%04x...\n", opts.npack, opts.vendor, opts.product)

	var raw *asyncbufio.Writer
	if opts.outfile != "" {
		f, err := os.Create(opts.outfile)
		if err != nil {
			return err
		}
		defer f.Close()
		raw = asyncbufio.NewWriter(f, 1024, time.Second)
		defer func() {
			if err := raw.Close(); err != nil {
				fmt.Printf("error writing %s: %v\n", opts.outfile, err)
			}
			if n := raw.Dropped(); n > 0 {
				fmt.Printf("%d packets not written to %s\n", n, opts.outfile)
			}
		}()
	}

	// Each .npy row is a packet: its sample count, then MaxSamples samples
	// (unused slots zero).
	var table *npyappend.Appender[uint32]
	if opts.npyfile != "" {
		table, err = npyappend.Create[uint32](opts.npyfile, 1+packets.MaxSamples)
		if err != nil {
			return err
		}
		defer func() {
			if err := table.Close(); err != nil {
				fmt.Printf("error writing %s: %v\n", opts.npyfile, err)
			}
		}()
	}
	var row [1 + packets.MaxSamples]uint32

	var pack packets.Packet
	total := 0
	for range opts.npack {
		if err := dev.Read(&pack, opts.timeout); err != nil {
			return err
		}
		if raw != nil {
			raw.Write(pack[:])
		}
		samples, err := pack.Samples()
		if err != nil {
			return err
		}
		total += len(samples)
		if table != nil {
			row = [1 + packets.MaxSamples]uint32{uint32(len(samples))}
			copy(row[1:], samples)
			if err := table.Append(row[:]); err != nil {
				return err
			}
		}
		fmt.Printf("%s: %v\n", pack.String(), samples)
		if opts.verbose {
			spew.Dump(pack)
		}
	}
	fmt.Printf("%d samples in %d packets\n", total, opts.npack)
	return nil
}

func main() {
	opts := dumpOptions{
		npack:    10,
		vendor:   nia.DefaultVendorID,
		product:  nia.DefaultProductID,
		endpoint: nia.DefaultEndpoint,
		timeout:  nia.DefaultTimeout,
	}
	parser := flaggy.NewParser("niadump")
	parser.Description = "Dump the first N packets read from an NIA device"
	parser.Int(&opts.npack, "n", "npackets", "number of packets to dump")
	parser.Bool(&opts.verbose, "v", "verbose", "dump the raw bytes of each packet")
	parser.String(&opts.outfile, "o", "output", "also write the raw packets to this file")
	parser.String(&opts.npyfile, "", "npy", "also write the decoded packets to this .npy file")
	parser.Bool(&opts.noHardware, "s", "simulate", "read from a simulated device")
	parser.UInt16(&opts.vendor, "vid", "vendor", "USB vendor ID")
	parser.UInt16(&opts.product, "pid", "product", "USB product ID")
	parser.UInt8(&opts.endpoint, "ep", "endpoint", "USB IN endpoint address")
	parser.Duration(&opts.timeout, "t", "timeout", "per-read timeout")
	if err := parser.Parse(); err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(2)
	}

	if err := dump(opts); err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(1)
	}
}
