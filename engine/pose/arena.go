package pose

// Arena is the set of scratch buffers one evaluation pipeline reuses every tick: two sampled poses for blending,
// the blended local pose that composition then rewrites in place, and the packed dual-quaternion output.
// Buffers are sized once for a maximum bone count and never grow.
type Arena struct {
	maxBones int

	current, next, local []Transform7
	dualQuats            [][4]float32
}

// NewArena allocates scratch buffers for skeletons of up to maxBones bones.
// It panics if maxBones is not positive.
//
// Parameters:
//   - maxBones: the largest bone count the arena will serve
//
// Returns:
//   - *Arena: the allocated arena
func NewArena(maxBones int) *Arena {
	if maxBones <= 0 {
		panic("pose: arena requires a positive bone capacity")
	}
	return &Arena{
		maxBones:  maxBones,
		current:   make([]Transform7, maxBones),
		next:      make([]Transform7, maxBones),
		local:     make([]Transform7, maxBones),
		dualQuats: make([][4]float32, 2*maxBones),
	}
}

// MaxBones returns the bone capacity of the arena.
//
// Returns:
//   - int: the bone capacity
func (a *Arena) MaxBones() int {
	return a.maxBones
}

// Pose returns the working pose buffer trimmed to boneCount bones.
// After Blend it holds the blended local pose; composition rewrites it in place.
//
// Parameters:
//   - boneCount: the number of bones in use
//
// Returns:
//   - []Transform7: the working pose
func (a *Arena) Pose(boneCount int) []Transform7 {
	return a.local[:boneCount]
}

// DualQuats returns the packed output buffer trimmed to boneCount bones (2 vectors per bone).
//
// Parameters:
//   - boneCount: the number of bones in use
//
// Returns:
//   - [][4]float32: the interleaved dual/real quaternion buffer
func (a *Arena) DualQuats(boneCount int) [][4]float32 {
	return a.dualQuats[:2*boneCount]
}
