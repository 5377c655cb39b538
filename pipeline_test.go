package niawave

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/niawave/niawave/nia"
	"github.com/stretchr/testify/assert"
)

func TestPipelineDisconnected(t *testing.T) {
	p := NewPipeline(nil)
	assert.False(t, p.Connected())

	var seen *Frame
	sink := FrameSinkFunc(func(f *Frame) error { seen = f; return nil })
	start := time.Now()
	frame, err := p.Cycle(sink)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("disconnected Cycle error: %v", err)
	}
	if elapsed < SyntheticWait {
		t.Errorf("disconnected Cycle took %v, want at least %v", elapsed, SyntheticWait)
	}
	assert.Same(t, frame, seen)
	assert.False(t, frame.Connected)
	assert.True(t, frame.Degenerate, "the first frame analyzes the all-zero initial signal")
	assert.Equal(t, 1, p.Cycles())

	// The synthetic signal is published, and the raw window was never touched.
	nonzero := 0
	for _, v := range p.Normalized() {
		if v != 0 {
			nonzero++
		}
	}
	assert.Equal(t, WindowSize, nonzero)
	for i := 0; i < WindowSize; i++ {
		if p.Buffer().At(i) != 1 {
			t.Fatalf("disconnected Cycle changed the rolling window at %d", i)
		}
	}
	assert.NoError(t, p.Close())
}

func TestPipelineFindsSine(t *testing.T) {
	const cycles = 20 // per analysis window, so the tone sits in FFT bin 20
	source := nia.SineSource(100000, 20000, cycles, WindowSize)
	dev := newTestDevice(t, 16, source)
	p := NewPipeline(dev)
	assert.True(t, p.Connected())

	// Four acquisitions replace the whole window; the fifth cycle analyzes it.
	var frame *Frame
	for i := 0; i < 5; i++ {
		var err error
		if frame, err = p.Cycle(); err != nil {
			t.Fatalf("Cycle %d error: %v", i, err)
		}
	}
	assert.True(t, frame.Connected)
	assert.False(t, frame.Degenerate)
	want := cycles - DisplayLo
	if math.Abs(float64(frame.Peak-want)) > 1 {
		t.Errorf("peak marker at bin %d, want %d±1", frame.Peak, want)
	}
	// The marker block on the top rows of the spectrogram sits over the peak.
	assert.Equal(t, byte(MaxIntensity), frame.Spectrogram[ColumnsPerBin*frame.Peak])
	assert.Equal(t, byte(0), frame.Spectrogram[ColumnsPerBin*(frame.Peak+2)])
	assert.Len(t, frame.Waveform, WaveformRows*WaveformCols*WaveformChannels)
	assert.Len(t, frame.Spectrogram, ImageRows*HistoryCols)
	assert.Equal(t, 5, p.Cycles())
	assert.NoError(t, p.Close())
}

func TestPipelineTimeout(t *testing.T) {
	dev := newTestDevice(t, 16, counter())
	dev.TimeoutAfter(100) // enough for one quantum, not two
	p := NewPipeline(dev)
	p.SetReadTimeout(time.Millisecond)

	sinkErrors := 0
	failing := FrameSinkFunc(func(f *Frame) error { sinkErrors++; return fmt.Errorf("renderer gone") })
	_, err := p.Cycle(failing)
	assert.NoError(t, err, "a failing sink must not fail the cycle")
	published := append([]float64(nil), p.Normalized()...)

	_, err = p.Cycle(failing)
	assert.True(t, nia.IsTimeout(err), "second Cycle returns %v, want a timeout", err)
	assert.Equal(t, published, p.Normalized(), "a failed acquisition must not publish")
	assert.Equal(t, 1, p.Cycles())
	assert.Equal(t, 2, sinkErrors)
}

func TestAcquisitionWaitTwice(t *testing.T) {
	dev := newTestDevice(t, 16, counter())
	p := NewPipeline(dev)
	acq := p.StartAcquisition()
	assert.NoError(t, acq.Wait())
	assert.NoError(t, acq.Wait())
	assert.Equal(t, 1, p.Cycles())
	assert.Equal(t, uint32(QuantumSize), p.Buffer().At(WindowSize-1))
	assert.Equal(t, uint32(1), p.Buffer().At(WindowSize-QuantumSize))

	acq = p.StartAcquisition()
	assert.Panics(t, func() { p.StartAcquisition() })
	acq.Wait()
}

func TestUseDeviceResetFailure(t *testing.T) {
	nh, err := nia.NewNoHardware(16, counter())
	if err != nil {
		t.Fatal(err)
	}
	nh.FailReset(fmt.Errorf("pipe error"))
	dev, err := UseDevice(nh, nia.Connect(nh))
	assert.NoError(t, err, "an unavailable device is not an error")
	assert.Nil(t, dev)

	p := NewPipeline(dev)
	assert.False(t, p.Connected())
	start := time.Now()
	frame, err := p.Cycle()
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), SyntheticWait)
	assert.False(t, frame.Connected)
	assert.Equal(t, 1, p.Cycles())
	assert.Zero(t, nh.PacketsRead(), "a disconnected pipeline never reads the channel")
}

func TestUseDevice(t *testing.T) {
	dev := newTestDevice(t, 16, counter())
	ch, err := UseDevice(dev, nil)
	assert.NoError(t, err)
	assert.Equal(t, nia.Channeler(dev), ch)

	ch, err = UseDevice(dev, fmt.Errorf("permission denied"))
	assert.Error(t, err)
	assert.Nil(t, ch)
}
