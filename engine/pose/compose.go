package pose

// ComposeHierarchy rewrites a local pose into root-relative transforms in place.
// Bones are visited in ascending index order, so every parent is already root-relative when its children are
// combined with it. Bones whose parent is negative are roots and keep their local transform.
//
// Parameters:
//   - parents: the parent index of each bone, -1 for roots; parents[i] < i
//   - p: the pose to compose, one entry per bone
func ComposeHierarchy(parents []int32, p []Transform7) {
	for i := range p {
		parent := parents[i]
		if parent < 0 {
			continue
		}
		p[i] = Combine(p[i], p[parent])
	}
}

// ApplyBindPose combines every root-relative bone transform with the bone's inverse bind pose in place, producing
// the skinning transform that maps bind-pose vertices to their animated position.
// The inverse bind pose is applied first: result = world * inverseBind.
//
// Parameters:
//   - inverseBindPose: the inverse bind pose of each bone
//   - p: the root-relative pose to correct, one entry per bone
func ApplyBindPose(inverseBindPose, p []Transform7) {
	for i := range p {
		p[i] = Combine(inverseBindPose[i], p[i])
	}
}
