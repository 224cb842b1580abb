package skeleton

// SkeletonBuilderOption is a functional option for configuring a Skeleton during construction.
type SkeletonBuilderOption func(*Skeleton)

// WithBones sets the bone names and parent indices, both in bone index order.
//
// Parameters:
//   - names: the bone names
//   - parents: the parent index of each bone, -1 for roots
//
// Returns:
//   - SkeletonBuilderOption: a function that sets the bone hierarchy
func WithBones(names []string, parents []int32) SkeletonBuilderOption {
	return func(s *Skeleton) {
		s.names = names
		s.rawParents = parents
	}
}

// WithInverseBindPose sets the inverse bind pose from a flat array of 7 floats per bone (tx, ty, tz, qx, qy, qz, qw).
//
// Parameters:
//   - flat: boneCount * 7 floats
//
// Returns:
//   - SkeletonBuilderOption: a function that sets the inverse bind pose
func WithInverseBindPose(flat []float32) SkeletonBuilderOption {
	return func(s *Skeleton) {
		s.rawInverseBind = flat
	}
}

// WithInverseBindMatrices sets the inverse bind pose from column-major 4x4 matrices, one per bone.
// It takes precedence over WithInverseBindPose.
//
// Parameters:
//   - matrices: the inverse bind matrices
//
// Returns:
//   - SkeletonBuilderOption: a function that sets the inverse bind pose from matrices
func WithInverseBindMatrices(matrices [][16]float32) SkeletonBuilderOption {
	return func(s *Skeleton) {
		s.bindMatrices = matrices
	}
}
