// Package npyappend writes numpy *.npy files that grow one row at a time.
// The header is a fixed 128 bytes, rewritten in place whenever the row
// count must be made current, so the file is readable at any flush point.
package npyappend

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"
	"unsafe"

	"github.com/niawave/niawave/internal/getbytes"
	"github.com/pkg/errors"
)

// HeaderLen is the size of the header, including magic and padding.
const HeaderLen = 128

const magic = "\x93NUMPY\x01\x00"

// Appender appends rows of rowLen values of type E to a 2-d .npy array.
type Appender[E getbytes.Number] struct {
	file   *os.File
	w      *bufio.Writer
	rowLen int
	rows   int
	Header string // the last header written
}

// Create truncates or creates filename and writes an empty array header.
func Create[E getbytes.Number](filename string, rowLen int) (*Appender[E], error) {
	if rowLen <= 0 {
		return nil, fmt.Errorf("npyappend: row length %d must be positive", rowLen)
	}
	file, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	a := &Appender[E]{file: file, w: bufio.NewWriter(file), rowLen: rowLen}
	if err := a.writeHeader(); err != nil {
		file.Close()
		return nil, err
	}
	// WriteAt leaves the offset alone, so rows would land on the header.
	if _, err := file.Seek(HeaderLen, io.SeekStart); err != nil {
		file.Close()
		return nil, err
	}
	return a, nil
}

// Append adds one row. len(row) must equal the row length.
func (a *Appender[E]) Append(row []E) error {
	if len(row) != a.rowLen {
		return fmt.Errorf("npyappend: row has %d values, want %d", len(row), a.rowLen)
	}
	if _, err := a.w.Write(getbytes.FromSlice(row)); err != nil {
		return errors.Wrapf(err, "append to %s", a.file.Name())
	}
	a.rows++
	return nil
}

// Rows returns the number of rows appended.
func (a *Appender[E]) Rows() int {
	return a.rows
}

// Flush writes buffered rows and updates the header's shape.
func (a *Appender[E]) Flush() error {
	if err := a.w.Flush(); err != nil {
		return err
	}
	return a.writeHeader()
}

// Close flushes and closes the file.
func (a *Appender[E]) Close() error {
	err := a.Flush()
	if err2 := a.file.Close(); err == nil {
		err = err2
	}
	return err
}

func (a *Appender[E]) writeHeader() error {
	dict := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': (%d, %d), }",
		dtype[E](), a.rows, a.rowLen)
	pad := HeaderLen - len(magic) - 2 - len(dict) - 1
	if pad < 0 {
		return fmt.Errorf("npyappend: header %q too long", dict)
	}
	var hdr strings.Builder
	hdr.WriteString(magic)
	var size [2]byte
	binary.LittleEndian.PutUint16(size[:], uint16(HeaderLen-len(magic)-2))
	hdr.Write(size[:])
	hdr.WriteString(dict)
	hdr.WriteString(strings.Repeat(" ", pad))
	hdr.WriteByte('\n')

	a.Header = hdr.String()
	if _, err := a.file.WriteAt([]byte(a.Header), 0); err != nil {
		return errors.Wrapf(err, "write header of %s", a.file.Name())
	}
	return nil
}

// dtype returns the numpy type string of E. Data are written in host byte
// order, which is little-endian on every platform we run on.
func dtype[E getbytes.Number]() string {
	var zero E
	var kind byte
	switch any(zero).(type) {
	case float32, float64:
		kind = 'f'
	case uint8, uint16, uint32, uint64:
		kind = 'u'
	default:
		kind = 'i'
	}
	size := unsafe.Sizeof(zero)
	order := byte('<')
	if size == 1 {
		order = '|'
	}
	return fmt.Sprintf("%c%c%d", order, kind, size)
}
