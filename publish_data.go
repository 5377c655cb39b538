package niawave

import (
	"encoding/json"
	"fmt"

	zmq "github.com/pebbe/zmq4"
	"github.com/pkg/errors"
)

// FrameTopic is the first part of every message on the frames port.
const FrameTopic = "FRAME"

// FramePublisher is a FrameSink that publishes each frame on a ZMQ PUB socket
// as a 4-part message: topic, JSON header, waveform pixels, spectrogram image.
// It must be used from a single goroutine.
type FramePublisher struct {
	pubSocket *zmq.Socket
	published int
}

// NewFramePublisher binds a PUB socket on portnum.
func NewFramePublisher(portnum int) (*FramePublisher, error) {
	return newFramePublisher(fmt.Sprintf("tcp://*:%d", portnum))
}

func newFramePublisher(endpoint string) (*FramePublisher, error) {
	pubSocket, err := zmq.NewSocket(zmq.PUB)
	if err != nil {
		return nil, errors.Wrap(err, "create frame socket")
	}
	if err := pubSocket.Bind(endpoint); err != nil {
		pubSocket.Close()
		return nil, errors.Wrapf(err, "bind frame socket to %s", endpoint)
	}
	return &FramePublisher{pubSocket: pubSocket}, nil
}

// WriteFrame publishes f.
func (fp *FramePublisher) WriteFrame(f *Frame) error {
	parts, err := encodeFrameMessage(f)
	if err != nil {
		return err
	}
	if _, err := fp.pubSocket.SendMessage(parts); err != nil {
		return errors.Wrapf(err, "publish frame %d", f.Cycle)
	}
	fp.published++
	return nil
}

// Published returns the number of frames sent.
func (fp *FramePublisher) Published() int {
	return fp.published
}

// Close closes the socket.
func (fp *FramePublisher) Close() error {
	return fp.pubSocket.Close()
}

func encodeFrameMessage(f *Frame) ([][]byte, error) {
	header, err := json.Marshal(f)
	if err != nil {
		return nil, errors.Wrap(err, "encode frame header")
	}
	return [][]byte{[]byte(FrameTopic), header, f.Waveform, f.Spectrogram}, nil
}

// DecodeFrameMessage rebuilds a Frame from the parts of a message received
// from the frames port. The image fields alias the message parts.
func DecodeFrameMessage(parts [][]byte) (*Frame, error) {
	if len(parts) != 4 || string(parts[0]) != FrameTopic {
		return nil, errors.Errorf("frame message has %d parts, want 4 starting with %q", len(parts), FrameTopic)
	}
	f := new(Frame)
	if err := json.Unmarshal(parts[1], f); err != nil {
		return nil, errors.Wrap(err, "decode frame header")
	}
	if len(parts[2]) != WaveformRows*WaveformCols*WaveformChannels {
		return nil, errors.Errorf("waveform has %d bytes, want %d", len(parts[2]), WaveformRows*WaveformCols*WaveformChannels)
	}
	if len(parts[3]) != ImageRows*HistoryCols {
		return nil, errors.Errorf("spectrogram has %d bytes, want %d", len(parts[3]), ImageRows*HistoryCols)
	}
	f.Waveform = parts[2]
	f.Spectrogram = parts[3]
	return f, nil
}
