package pose

import "github.com/go-gl/mathgl/mgl32"

// DualQuat is a unit dual quaternion encoding a rigid transform. Real is the rotation and Dual is
// 0.5 * (translation as a pure quaternion) * Real. Both are stored as (x, y, z, w).
type DualQuat struct {
	Dual [4]float32
	Real [4]float32
}

// PackDualQuat converts a transform into its dual-quaternion form. The real part is the rotation unchanged and the
// dual part is not normalized.
//
// Parameters:
//   - t: the transform to convert
//
// Returns:
//   - DualQuat: the dual-quaternion form of t
func PackDualQuat(t Transform7) DualQuat {
	px, py, pz := t[0], t[1], t[2]
	rx, ry, rz, rw := t[3], t[4], t[5], t[6]
	return DualQuat{
		Dual: [4]float32{
			0.5 * (px*rw + py*rz - pz*ry),
			0.5 * (-px*rz + py*rw + pz*rx),
			0.5 * (px*ry - py*rx + pz*rw),
			-0.5 * (px*rx + py*ry + pz*rz),
		},
		Real: [4]float32{rx, ry, rz, rw},
	}
}

// PackDualQuats writes the dual-quaternion form of every transform in p into out, interleaved as
// [dual0, real0, dual1, real1, ...]. out must hold at least 2*len(p) vectors.
//
// Parameters:
//   - p: the final skinning pose
//   - out: the destination buffer
func PackDualQuats(p []Transform7, out [][4]float32) {
	for i := range p {
		dq := PackDualQuat(p[i])
		out[2*i] = dq.Dual
		out[2*i+1] = dq.Real
	}
}

// Transform recovers the rigid transform from the dual quaternion. The translation is the vector part of
// 2 * Dual * conj(Real).
//
// Returns:
//   - Transform7: the rigid transform
func (d DualQuat) Transform() Transform7 {
	rot := d.quat(d.Real)
	t := d.quat(d.Dual).Mul(rot.Conjugate()).Scale(2)
	return Transform7{t.V[0], t.V[1], t.V[2], d.Real[0], d.Real[1], d.Real[2], d.Real[3]}
}

// Mat4 returns the column-major matrix form of the dual quaternion, for matrix skinning paths and debugging.
//
// Returns:
//   - mgl32.Mat4: the rigid transform as a 4x4 matrix
func (d DualQuat) Mat4() mgl32.Mat4 {
	t := d.Transform()
	rot := d.quat(d.Real).Normalize().Mat4()
	return mgl32.Translate3D(t[0], t[1], t[2]).Mul4(rot)
}

func (DualQuat) quat(v [4]float32) mgl32.Quat {
	return mgl32.Quat{W: v[3], V: mgl32.Vec3{v[0], v[1], v[2]}}
}
