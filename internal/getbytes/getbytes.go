// Package getbytes gives zero-copy []byte views of numeric slices, so that
// image and sample buffers can be handed to publishers without copying.
// The views alias the original memory and use host byte order.
package getbytes

import "unsafe"

// Number is any fixed-size numeric element type.
type Number interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

// FromSlice returns the memory of d as a []byte.
func FromSlice[T Number](d []T) []byte {
	if len(d) == 0 {
		return []byte{}
	}
	outlength := uintptr(len(d)) * unsafe.Sizeof(d[0])
	return unsafe.Slice((*byte)(unsafe.Pointer(&d[0])), outlength)
}
