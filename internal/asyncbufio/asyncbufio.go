// Package asyncbufio provides a buffered writer whose Write hands data to a
// goroutine and returns at once, so a read loop never waits on the disk.
package asyncbufio

import (
	"bufio"
	"errors"
	"io"
	"time"
)

// ErrFull is returned by Write when the queue of pending writes is full.
var ErrFull = errors.New("asyncbufio: write queue full")

// Writer queues writes and performs them on an underlying io.Writer from its
// own goroutine, flushing periodically.
type Writer struct {
	writer   *bufio.Writer
	data     chan []byte
	flushNow chan chan error
	done     chan error
	interval time.Duration
	dropped  int
	err      error // first error from the underlying writer, owned by writeLoop
}

// NewWriter creates a Writer holding up to depth pending writes, flushed at
// least every interval.
func NewWriter(w io.Writer, depth int, interval time.Duration) *Writer {
	aw := &Writer{
		writer:   bufio.NewWriter(w),
		data:     make(chan []byte, depth),
		flushNow: make(chan chan error),
		done:     make(chan error, 1),
		interval: interval,
	}
	go aw.writeLoop()
	return aw
}

// Write queues a copy of p. Callers may reuse p as soon as Write returns.
// If the queue is full nothing is written and ErrFull is returned.
func (aw *Writer) Write(p []byte) (int, error) {
	buf := make([]byte, len(p))
	copy(buf, p)
	select {
	case aw.data <- buf:
		return len(p), nil
	default:
		aw.dropped++
		return 0, ErrFull
	}
}

// Dropped returns how many writes were refused because the queue was full.
func (aw *Writer) Dropped() int {
	return aw.dropped
}

// Flush writes everything queued so far and flushes the underlying writer.
func (aw *Writer) Flush() error {
	reply := make(chan error)
	aw.flushNow <- reply
	return <-reply
}

// Close flushes and stops the Writer. It must not be used afterward.
func (aw *Writer) Close() error {
	close(aw.flushNow)
	return <-aw.done
}

func (aw *Writer) writeLoop() {
	ticker := time.NewTicker(aw.interval)
	defer ticker.Stop()

	for {
		select {
		case p := <-aw.data:
			aw.write(p)

		case reply, ok := <-aw.flushNow:
			err := aw.flush()
			if !ok {
				aw.done <- err
				return
			}
			reply <- err

		case <-ticker.C:
			aw.flush()
		}
	}
}

func (aw *Writer) write(p []byte) {
	if _, err := aw.writer.Write(p); err != nil && aw.err == nil {
		aw.err = err
	}
}

// flush drains the queue before flushing the bufio.Writer.
func (aw *Writer) flush() error {
	for {
		select {
		case p := <-aw.data:
			aw.write(p)
		default:
			if err := aw.writer.Flush(); err != nil && aw.err == nil {
				aw.err = err
			}
			return aw.err
		}
	}
}
