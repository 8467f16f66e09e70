package c5store

import (
	"fmt"
	"math"

	c5errors "github.com/normano/c5store/errors"
)

// bytesToUint interprets b as a big-endian unsigned integer of exactly width
// bytes.
func bytesToUint(b []byte, width int) (uint64, error) {
	if len(b) != width {
		return 0, &c5errors.ConversionError{
			Message: fmt.Sprintf("byte length %d does not match %d-byte integer width", len(b), width),
		}
	}
	var u uint64
	for _, c := range b {
		u = u<<8 | uint64(c)
	}
	return u, nil
}

func mathFloat32frombits(u uint32) float32 {
	return math.Float32frombits(u)
}
