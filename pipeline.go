package niawave

import (
	"math/rand/v2"
	"time"

	"github.com/niawave/niawave/nia"
	"github.com/oklog/ulid/v2"
	"gonum.org/v1/gonum/stat/distuv"
)

// SyntheticWait stands in for acquisition latency when there is no device.
var SyntheticWait = 250 * time.Millisecond

// stagingCapacity leaves room for the packet that carries a collection past QuantumSize.
const stagingCapacity = 2 * QuantumSize

// Pipeline owns all acquisition and analysis state: the device, the rolling
// window, the normalized signal, and the spectrogram history.
//
// The normalized signal is double buffered. An acquisition writes only to the
// pending buffer (and the rolling window), while Analyze reads only the
// published one; Acquisition.Wait swaps them. So analysis of cycle N-1 can run
// concurrently with acquisition for cycle N without any locking.
type Pipeline struct {
	device     nia.Channeler // nil when running without hardware
	assembler  *Assembler
	buffer     *RollingBuffer
	normalized []float64
	pending    []float64
	analyzer   *SpectralAnalyzer
	waveform   *Waveform
	synth      distuv.Normal
	frame      Frame
	cycles     int
	inflight   *Acquisition
}

// NewPipeline creates a pipeline reading from device. A nil device means the
// device is unavailable, and every acquisition produces synthetic data instead.
func NewPipeline(device nia.Channeler) *Pipeline {
	p := &Pipeline{
		device:     device,
		assembler:  NewAssembler(QuantumSize, stagingCapacity, nia.DefaultTimeout),
		buffer:     NewRollingBuffer(1),
		normalized: make([]float64, WindowSize),
		pending:    make([]float64, WindowSize),
		analyzer:   NewSpectralAnalyzer(),
		waveform:   NewWaveform(),
		synth: distuv.Normal{Mu: 0, Sigma: 1,
			Src: rand.NewPCG(uint64(time.Now().UnixNano()), 0x6e6961)},
	}
	return p
}

// UseDevice decides what a pipeline reads from, given the result of opening
// and resetting ch. An unavailable device yields a nil Channeler and no error,
// so the pipeline runs disconnected for the rest of the process lifetime. Any
// other open error is returned.
func UseDevice(ch nia.Channeler, openErr error) (nia.Channeler, error) {
	switch {
	case nia.IsUnavailable(openErr):
		ProblemLogger.Printf("Running without a device: %v", openErr)
		return nil, nil
	case openErr != nil:
		return nil, openErr
	}
	return ch, nil
}

// SetReadTimeout changes the per-read device timeout.
func (p *Pipeline) SetReadTimeout(timeout time.Duration) {
	p.assembler.Timeout = timeout
}

// Connected reports whether the pipeline reads from a real device.
func (p *Pipeline) Connected() bool {
	return p.device != nil
}

// Cycles returns the number of completed cycles.
func (p *Pipeline) Cycles() int {
	return p.cycles
}

// Buffer returns the rolling window. Do not read it while an acquisition is in flight.
func (p *Pipeline) Buffer() *RollingBuffer {
	return p.buffer
}

// Normalized returns the published normalized signal.
func (p *Pipeline) Normalized() []float64 {
	return p.normalized
}

// History returns the spectrogram history.
func (p *Pipeline) History() *SpectrogramHistory {
	return p.analyzer.History
}

// Acquisition is the handle of one in-flight acquisition task.
type Acquisition struct {
	p      *Pipeline
	done   chan error
	err    error
	joined bool
}

// StartAcquisition launches one acquisition in its own goroutine and returns
// its handle. Only one acquisition may be in flight at a time.
func (p *Pipeline) StartAcquisition() *Acquisition {
	if p.inflight != nil {
		panic("StartAcquisition called before the previous Acquisition was joined")
	}
	a := &Acquisition{p: p, done: make(chan error, 1)}
	p.inflight = a
	go func() {
		a.done <- p.acquire()
	}()
	return a
}

// Wait joins the acquisition. On success the newly normalized signal becomes
// the published one. Calling Wait again returns the same result.
func (a *Acquisition) Wait() error {
	if a.joined {
		return a.err
	}
	a.err = <-a.done
	a.joined = true
	p := a.p
	p.inflight = nil
	if a.err == nil {
		p.normalized, p.pending = p.pending, p.normalized
		p.cycles++
	}
	return a.err
}

// acquire fills the pending signal buffer, from the device when there is one.
func (p *Pipeline) acquire() error {
	if p.device == nil {
		for i := range p.pending {
			p.pending[i] = p.synth.Rand()
		}
		time.Sleep(SyntheticWait)
		return nil
	}

	samples, err := p.assembler.Collect(p.device)
	if err != nil {
		return err
	}
	p.buffer.Merge(samples, len(samples))
	p.pending, _ = p.buffer.Normalize(p.pending)
	return nil
}

// Analyze transforms the published normalized signal, scrolls the
// spectrogram, redraws the waveform, and returns the resulting frame. The
// frame is reused by the next call.
func (p *Pipeline) Analyze() *Frame {
	sf := p.analyzer.Transform(p.normalized)
	f := &p.frame
	f.ID = ulid.Make()
	f.Time = time.Now()
	f.Cycle = p.cycles
	f.Connected = p.Connected()
	f.Peak = sf.Peak
	f.Bands = sf.Bands
	f.Degenerate = sf.Degenerate
	f.Waveform = p.waveform.Render(p.normalized)
	f.Spectrogram = p.analyzer.History.Image()
	return f
}

// Cycle runs one tick: it starts acquiring new data, and meanwhile analyzes
// the previous cycle's signal and hands the frame to each sink. Then it joins
// the acquisition. Sink errors are logged and do not fail the cycle; an
// acquisition error is returned and leaves the published signal unchanged.
func (p *Pipeline) Cycle(sinks ...FrameSink) (*Frame, error) {
	acq := p.StartAcquisition()
	frame := p.Analyze()
	for _, sink := range sinks {
		if err := sink.WriteFrame(frame); err != nil {
			ProblemLogger.Printf("frame sink %T failed on cycle %d: %v", sink, frame.Cycle, err)
		}
	}
	return frame, acq.Wait()
}

// Close releases the device, if any.
func (p *Pipeline) Close() error {
	if p.device == nil {
		return nil
	}
	return p.device.Close()
}
