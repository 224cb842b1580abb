package animator

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUDualQuatSource is the canonical WGSL definition of the DualQuat struct together with the
// point/vector transform and linear blend helpers a skinning vertex shader needs.
// Matches GPUDualQuat layout exactly (32 bytes, std430 aligned).
//
//go:embed assets/dual_quat.wgsl
var GPUDualQuatSource string

// GPUDualQuat is the GPU-aligned representation of one bone's skinning transform.
// Matches the WGSL DualQuat struct layout exactly (see GPUDualQuatSource).
// Size: 32 bytes (2 × vec4<f32>).
type GPUDualQuat struct {
	Dual [4]float32 // offset 0: dual part (x, y, z, w)
	Real [4]float32 // offset 16: real part, the bone rotation (x, y, z, w)
}

// Size returns the size of the GPUDualQuat struct in bytes.
//
// Returns:
//   - int: The size of the struct in bytes.
func (g *GPUDualQuat) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUDualQuat struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload.
func (g *GPUDualQuat) Marshal() []byte {
	buf := make([]byte, 32)
	g.MarshalTo(buf)
	return buf
}

// MarshalTo serializes the GPUDualQuat into the first 32 bytes of buf without allocating.
//
// Parameters:
//   - buf: the destination, at least 32 bytes long
func (g *GPUDualQuat) MarshalTo(buf []byte) {
	_ = buf[31]
	for i := range 4 {
		binary.LittleEndian.PutUint32(buf[i*4:(i+1)*4], math.Float32bits(g.Dual[i]))
		binary.LittleEndian.PutUint32(buf[16+i*4:16+(i+1)*4], math.Float32bits(g.Real[i]))
	}
}

// UnmarshalGPUDualQuats decodes a pose buffer region back into per-bone dual quaternions.
// Trailing bytes that do not fill a whole struct are ignored.
//
// Parameters:
//   - data: the little-endian pose buffer bytes
//
// Returns:
//   - []GPUDualQuat: one entry per 32-byte struct in data
func UnmarshalGPUDualQuats(data []byte) []GPUDualQuat {
	out := make([]GPUDualQuat, len(data)/32)
	for b := range out {
		base := b * 32
		for i := range 4 {
			out[b].Dual[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[base+i*4:]))
			out[b].Real[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[base+16+i*4:]))
		}
	}
	return out
}
