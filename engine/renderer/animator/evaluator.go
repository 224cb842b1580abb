package animator

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/model"
	"github.com/Carmen-Shannon/oxy-skin/engine/pose"
)

var (
	// ErrNoModel is returned when an evaluator or animator is built without a model.
	ErrNoModel = errors.New("no model")
	// ErrBoneCapacity is returned when a skeleton has more bones than the configured capacity.
	ErrBoneCapacity = errors.New("skeleton exceeds bone capacity")
)

// Evaluator runs the per-instance pose pipeline for one model: sample, blend, normalize, compose,
// apply the inverse bind pose and pack dual quaternions. It owns its arena exclusively and is not safe
// for concurrent use; separate evaluators may run in parallel over the same model.
type Evaluator struct {
	model     model.Model
	parents   []int32
	invBind   []pose.Transform7
	arena     *pose.Arena
	mode      pose.Interpolation
	boneCount int
	hasPose   bool
}

// NewEvaluator creates an evaluator for m. A nil arena allocates one sized to the skeleton.
//
// Parameters:
//   - m: the model whose skeleton and clips are evaluated
//   - arena: the scratch buffers to use, or nil
//   - mode: the interpolation mode used when sampling
//
// Returns:
//   - *Evaluator: the evaluator
//   - error: ErrNoModel, or ErrBoneCapacity if arena is too small for the skeleton
func NewEvaluator(m model.Model, arena *pose.Arena, mode pose.Interpolation) (*Evaluator, error) {
	if m == nil || m.Skeleton() == nil {
		return nil, ErrNoModel
	}
	sk := m.Skeleton()
	n := sk.BoneCount()
	if arena == nil {
		arena = pose.NewArena(n)
	}
	if n > arena.MaxBones() {
		return nil, fmt.Errorf("model %q: %d bones, arena holds %d: %w", m.Name(), n, arena.MaxBones(), ErrBoneCapacity)
	}
	return &Evaluator{
		model:     m,
		parents:   sk.Parents(),
		invBind:   sk.InverseBindPose(),
		arena:     arena,
		mode:      mode,
		boneCount: n,
	}, nil
}

// Evaluate produces the skinning dual quaternions for the given clip states.
// When neither state is playing nothing is written, the previous output stays valid and false is returned.
//
// Parameters:
//   - current: the clip currently playing
//   - next: the clip being transitioned to
//
// Returns:
//   - bool: true if a new pose was written
func (e *Evaluator) Evaluate(current, next ClipState) bool {
	p, ok := pose.Blend(e.layer(current), e.layer(next), e.mode, e.arena, e.boneCount)
	if !ok {
		return false
	}
	pose.NormalizeRotations(p)
	pose.ComposeHierarchy(e.parents, p)
	pose.ApplyBindPose(e.invBind, p)
	pose.PackDualQuats(p, e.arena.DualQuats(e.boneCount))
	e.hasPose = true
	return true
}

// layer resolves a clip state into a blend layer with its time wrapped into the clip length.
func (e *Evaluator) layer(s ClipState) pose.Layer {
	if !s.Playing() {
		return pose.Layer{}
	}
	c := e.model.Clip(s.ClipIndex)
	if c == nil {
		return pose.Layer{}
	}
	d := c.Duration()
	return pose.Layer{
		Sampler: c,
		Time:    common.Repeat(s.NormalizedTime*d, d),
		Weight:  s.Weight,
	}
}

// DualQuats returns the packed output of the last successful Evaluate, interleaved dual then real per bone.
// The slice is reused by the next Evaluate.
//
// Returns:
//   - [][4]float32: 2 × BoneCount vectors
func (e *Evaluator) DualQuats() [][4]float32 {
	return e.arena.DualQuats(e.boneCount)
}

// Pose returns the final per-bone skinning transforms of the last successful Evaluate.
//
// Returns:
//   - []pose.Transform7: one transform per bone
func (e *Evaluator) Pose() []pose.Transform7 {
	return e.arena.Pose(e.boneCount)
}

// HasPose reports whether Evaluate has produced output at least once.
//
// Returns:
//   - bool: true after the first successful Evaluate
func (e *Evaluator) HasPose() bool {
	return e.hasPose
}

// BoneCount returns the number of bones evaluated.
//
// Returns:
//   - int: the skeleton bone count
func (e *Evaluator) BoneCount() int {
	return e.boneCount
}

// Interpolation returns the sampling mode.
//
// Returns:
//   - pose.Interpolation: the interpolation mode
func (e *Evaluator) Interpolation() pose.Interpolation {
	return e.mode
}
