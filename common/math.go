// package common contains small helpers shared across the engine packages. They are plain functions over
// float32 values and slices, not interface-wrapped types.
package common

import (
	"unsafe"

	"github.com/chewxy/math32"
)

// Repeat loops t so that it is never larger than length and never smaller than 0.
// A non-positive length yields 0.
//
// Parameters:
//   - t: the unbounded time value
//   - length: the loop period
//
// Returns:
//   - float32: t wrapped into [0, length]
func Repeat(t, length float32) float32 {
	if length <= 0 {
		return 0
	}
	return Clamp(t-math32.Floor(t/length)*length, 0, length)
}

// Clamp restricts v to the closed range [lo, hi].
//
// Parameters:
//   - v: the value to clamp
//   - lo: the lower bound
//   - hi: the upper bound
//
// Returns:
//   - float32: the clamped value
func Clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// NormalizeQuat rescales the quaternion q (x, y, z, w) to unit length in place.
// Quaternions already within tolerance of unit length are left untouched so exact keyframe data passes through
// bit-for-bit. A zero quaternion is replaced with the identity rotation.
//
// Parameters:
//   - q: the quaternion to normalize, as a 4-element slice
func NormalizeQuat(q []float32) {
	lenSq := q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3]
	if lenSq == 0 {
		q[0], q[1], q[2], q[3] = 0, 0, 0, 1
		return
	}
	if math32.Abs(lenSq-1) < 1e-6 {
		return
	}
	inv := 1 / math32.Sqrt(lenSq)
	q[0] *= inv
	q[1] *= inv
	q[2] *= inv
	q[3] *= inv
}

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}
