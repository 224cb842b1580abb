// Package skeleton describes the bone hierarchy a set of clips animates.
package skeleton

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-skin/engine/pose"
	"github.com/go-gl/mathgl/mgl32"
)

var (
	// ErrNoBones is returned when a skeleton is built without bones.
	ErrNoBones = errors.New("skeleton has no bones")
	// ErrBoneCountMismatch is returned when the name, parent and bind pose arrays disagree in length.
	ErrBoneCountMismatch = errors.New("bone array lengths disagree")
	// ErrParentOrder is returned when a bone's parent does not precede it.
	ErrParentOrder = errors.New("parent index must precede bone index")
	// ErrDuplicateBone is returned when two bones share a name.
	ErrDuplicateBone = errors.New("duplicate bone name")
)

// Bone is one joint of the skeleton.
type Bone struct {
	// Name is the joint name from the source rig.
	Name string
	// Index is the position of the bone in every per-bone array. The root is 0.
	Index int
	// Parent is the index of the parent bone, or -1 for a root.
	Parent int
	// Depth is the number of ancestors; roots have depth 0.
	Depth int
}

// Skeleton is an immutable bone hierarchy ordered so that every parent precedes its children, together with the
// inverse bind pose of each bone. It is shared read-only by every instance animating it.
type Skeleton struct {
	bones       []Bone
	parents     []int32
	inverseBind []pose.Transform7
	byName      map[string]int

	// builder inputs, validated by NewSkeleton
	names          []string
	rawParents     []int32
	rawInverseBind []float32
	bindMatrices   [][16]float32
}

// NewSkeleton builds and validates a Skeleton from the provided options.
// Bone 0 must be a root, every other bone's parent must either be -1 or a smaller index, and names must be unique.
// Bones without an inverse bind pose get the identity.
//
// Parameters:
//   - options: a variadic list of SkeletonBuilderOption functions
//
// Returns:
//   - *Skeleton: the validated skeleton
//   - error: a wrapped sentinel error describing the first validation failure
func NewSkeleton(options ...SkeletonBuilderOption) (*Skeleton, error) {
	s := &Skeleton{}
	for _, opt := range options {
		opt(s)
	}

	n := len(s.names)
	if n == 0 {
		return nil, fmt.Errorf("skeleton: %w", ErrNoBones)
	}
	if len(s.rawParents) != n {
		return nil, fmt.Errorf("skeleton: %d names, %d parents: %w", n, len(s.rawParents), ErrBoneCountMismatch)
	}

	s.inverseBind = make([]pose.Transform7, n)
	switch {
	case s.bindMatrices != nil:
		if len(s.bindMatrices) != n {
			return nil, fmt.Errorf("skeleton: %d bones, %d bind matrices: %w", n, len(s.bindMatrices), ErrBoneCountMismatch)
		}
		for i, m := range s.bindMatrices {
			s.inverseBind[i] = InverseBindFromMatrix(m)
		}
	case s.rawInverseBind != nil:
		if len(s.rawInverseBind) != n*pose.Stride {
			return nil, fmt.Errorf("skeleton: %d bones, %d bind pose floats: %w", n, len(s.rawInverseBind), ErrBoneCountMismatch)
		}
		for i := range s.inverseBind {
			copy(s.inverseBind[i][:], s.rawInverseBind[i*pose.Stride:(i+1)*pose.Stride])
		}
	default:
		for i := range s.inverseBind {
			s.inverseBind[i] = pose.Identity
		}
	}

	s.bones = make([]Bone, n)
	s.parents = make([]int32, n)
	s.byName = make(map[string]int, n)
	for i, name := range s.names {
		parent := int(s.rawParents[i])
		if parent < -1 || parent >= i || (i == 0 && parent != -1) {
			return nil, fmt.Errorf("skeleton: bone %d (%q) has parent %d: %w", i, name, parent, ErrParentOrder)
		}
		if prev, ok := s.byName[name]; ok {
			return nil, fmt.Errorf("skeleton: bones %d and %d are both named %q: %w", prev, i, name, ErrDuplicateBone)
		}
		s.byName[name] = i

		depth := 0
		if parent >= 0 {
			depth = s.bones[parent].Depth + 1
		}
		s.bones[i] = Bone{Name: name, Index: i, Parent: parent, Depth: depth}
		s.parents[i] = int32(parent)
	}

	s.names, s.rawParents, s.rawInverseBind, s.bindMatrices = nil, nil, nil, nil
	return s, nil
}

// InverseBindFromMatrix converts a column-major rigid 4x4 inverse bind matrix into a Transform7.
// Scale and shear are not representable by a dual quaternion and are discarded.
//
// Parameters:
//   - m: the inverse bind matrix, column-major
//
// Returns:
//   - pose.Transform7: the translation and unit rotation of m
func InverseBindFromMatrix(m [16]float32) pose.Transform7 {
	mat := mgl32.Mat4(m)
	// Strip any uniform scale from the basis before extracting the rotation.
	for c := range 3 {
		col := mat.Col(c).Vec3()
		if l := col.Len(); l > 0 {
			col = col.Mul(1 / l)
		}
		mat.SetCol(c, col.Vec4(0))
	}
	q := mgl32.Mat4ToQuat(mat).Normalize()
	return pose.Transform7{m[12], m[13], m[14], q.V[0], q.V[1], q.V[2], q.W}
}

// BoneCount returns the number of bones.
//
// Returns:
//   - int: the bone count
func (s *Skeleton) BoneCount() int {
	return len(s.bones)
}

// Bones returns the bones in index order. The slice must not be modified.
//
// Returns:
//   - []Bone: the bones
func (s *Skeleton) Bones() []Bone {
	return s.bones
}

// Bone returns the bone at index i.
//
// Parameters:
//   - i: the bone index
//
// Returns:
//   - Bone: the bone
func (s *Skeleton) Bone(i int) Bone {
	return s.bones[i]
}

// Parents returns the parent index of every bone, -1 for roots. The slice must not be modified.
//
// Returns:
//   - []int32: the parent indices
func (s *Skeleton) Parents() []int32 {
	return s.parents
}

// InverseBindPose returns the inverse bind pose of every bone. The slice must not be modified.
//
// Returns:
//   - []pose.Transform7: the inverse bind poses
func (s *Skeleton) InverseBindPose() []pose.Transform7 {
	return s.inverseBind
}

// BoneIndex looks up a bone by name. Intended for setup, not per-frame use.
//
// Parameters:
//   - name: the bone name
//
// Returns:
//   - int: the bone index, or -1 if absent
//   - bool: whether the bone exists
func (s *Skeleton) BoneIndex(name string) (int, bool) {
	i, ok := s.byName[name]
	if !ok {
		return -1, false
	}
	return i, true
}

// Names returns the bone names in index order.
//
// Returns:
//   - []string: a new slice holding the bone names
func (s *Skeleton) Names() []string {
	names := make([]string, len(s.bones))
	for i, b := range s.bones {
		names[i] = b.Name
	}
	return names
}
