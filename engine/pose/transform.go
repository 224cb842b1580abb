// Package pose holds the per-bone transform type and the kernels that turn sampled clip poses into the
// dual-quaternion buffer consumed by the skinning shader: blending, hierarchy composition, bind-pose correction
// and dual-quaternion packing. None of the kernels allocate; every buffer they touch is supplied by the caller,
// usually from an Arena.
package pose

import "github.com/Carmen-Shannon/oxy-skin/common"

// Stride is the number of float32 channels in one packed transform.
const Stride = 7

// Transform7 is a rigid transform packed as translation (x, y, z) followed by a unit quaternion rotation (x, y, z, w).
type Transform7 [Stride]float32

// Identity is the transform with zero translation and the identity rotation.
var Identity = Transform7{0, 0, 0, 0, 0, 0, 1}

// NewTransform7 packs a translation and a rotation quaternion into a Transform7.
//
// Parameters:
//   - translation: the translation as [3]float32 (x, y, z)
//   - rotation: the rotation quaternion as [4]float32 (x, y, z, w)
//
// Returns:
//   - Transform7: the packed transform
func NewTransform7(translation [3]float32, rotation [4]float32) Transform7 {
	return Transform7{
		translation[0], translation[1], translation[2],
		rotation[0], rotation[1], rotation[2], rotation[3],
	}
}

// Translation returns the translation part of the transform.
//
// Returns:
//   - [3]float32: the translation (x, y, z)
func (t Transform7) Translation() [3]float32 {
	return [3]float32{t[0], t[1], t[2]}
}

// Rotation returns the rotation quaternion of the transform.
//
// Returns:
//   - [4]float32: the rotation quaternion (x, y, z, w)
func (t Transform7) Rotation() [4]float32 {
	return [4]float32{t[3], t[4], t[5], t[6]}
}

// Normalized returns a copy of the transform with its rotation rescaled to unit length.
//
// Returns:
//   - Transform7: the transform with a unit rotation
func (t Transform7) Normalized() Transform7 {
	common.NormalizeQuat(t[3:7])
	return t
}

// Combine composes a child transform expressed relative to parent into parent's space.
// The rotation is parent.rot * child.rot and the translation is child.t rotated by parent.rot plus parent.t.
// Both operands are read in full before the result is built, so the result may be written back over either input.
//
// Parameters:
//   - child: the transform relative to parent
//   - parent: the transform of the parent space
//
// Returns:
//   - Transform7: child expressed in the space parent is relative to
func Combine(child, parent Transform7) Transform7 {
	cTX, cTY, cTZ := child[0], child[1], child[2]
	cOX, cOY, cOZ, cOW := child[3], child[4], child[5], child[6]
	pTX, pTY, pTZ := parent[0], parent[1], parent[2]
	pOX, pOY, pOZ, pOW := parent[3], parent[4], parent[5], parent[6]

	// parent.rot * (child.t, 0)
	w1 := -pOX*cTX - pOY*cTY - pOZ*cTZ
	x1 := pOW*cTX + pOY*cTZ - pOZ*cTY
	y1 := pOW*cTY - pOX*cTZ + pOZ*cTX
	z1 := pOW*cTZ + pOX*cTY - pOY*cTX

	var out Transform7
	// (...) * conj(parent.rot) + parent.t
	out[0] = -w1*pOX + x1*pOW - y1*pOZ + z1*pOY + pTX
	out[1] = -w1*pOY + x1*pOZ + y1*pOW - z1*pOX + pTY
	out[2] = -w1*pOZ - x1*pOY + y1*pOX + z1*pOW + pTZ

	out[3] = pOW*cOX + pOX*cOW + pOY*cOZ - pOZ*cOY
	out[4] = pOW*cOY - pOX*cOZ + pOY*cOW + pOZ*cOX
	out[5] = pOW*cOZ + pOX*cOY - pOY*cOX + pOZ*cOW
	out[6] = pOW*cOW - pOX*cOX - pOY*cOY - pOZ*cOZ
	return out
}

// NormalizeRotations rescales the rotation of every transform in p to unit length in place.
//
// Parameters:
//   - p: the pose to normalize
func NormalizeRotations(p []Transform7) {
	for i := range p {
		common.NormalizeQuat(p[i][3:7])
	}
}
