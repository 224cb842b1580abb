package model

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-skin/engine/clip"
	"github.com/Carmen-Shannon/oxy-skin/engine/skeleton"
)

var (
	// ErrNoSkeleton is returned when a model is built without a skeleton.
	ErrNoSkeleton = errors.New("model has no skeleton")
	// ErrClipBoneCount is returned when a clip animates a different number of bones than the skeleton has.
	ErrClipBoneCount = errors.New("clip bone count does not match skeleton")
	// ErrDuplicateClip is returned when two clips share a name.
	ErrDuplicateClip = errors.New("duplicate clip name")
)

// model is the implementation of the Model interface.
type model struct {
	name      string
	skeleton  *skeleton.Skeleton
	clips     []clip.Clip
	clipIndex map[string]int
}

// Model defines the interface for a loaded animated model: one skeleton and the baked clips that animate it.
// It is produced by the Loader from a manifest and is shared read-only by every Animator instance driving it.
// Clip names are resolved to dense indices at setup time with ClipIndex; per-frame code uses indices only.
type Model interface {
	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// Skeleton retrieves the bone hierarchy for this model.
	//
	// Returns:
	//   - *skeleton.Skeleton: the skeleton
	Skeleton() *skeleton.Skeleton

	// Clips retrieves all animation clips bundled with this model. The slice must not be modified.
	//
	// Returns:
	//   - []clip.Clip: the animation clips
	Clips() []clip.Clip

	// Clip retrieves the clip at index i, or nil when i is out of range.
	//
	// Parameters:
	//   - i: the clip index
	//
	// Returns:
	//   - clip.Clip: the clip or nil
	Clip(i int) clip.Clip

	// ClipCount returns the number of available animation clips.
	//
	// Returns:
	//   - int: the clip count
	ClipCount() int

	// ClipNames returns the names of all animation clips in index order.
	//
	// Returns:
	//   - []string: the clip names
	ClipNames() []string

	// ClipIndex returns the index of the named clip, or -1 if no clip has that name.
	//
	// Parameters:
	//   - name: the clip name
	//
	// Returns:
	//   - int: the clip index or -1
	ClipIndex(name string) int
}

var _ Model = &model{}

// NewModel creates a new Model and validates that every clip animates exactly the skeleton's bones.
//
// Parameters:
//   - options: a variadic list of ModelBuilderOption functions
//
// Returns:
//   - Model: the validated model
//   - error: a wrapped sentinel error if validation fails
func NewModel(options ...ModelBuilderOption) (Model, error) {
	m := &model{}
	for _, opt := range options {
		opt(m)
	}

	if m.skeleton == nil {
		return nil, fmt.Errorf("model %q: %w", m.name, ErrNoSkeleton)
	}
	m.clipIndex = make(map[string]int, len(m.clips))
	for i, c := range m.clips {
		if c.BoneCount() != m.skeleton.BoneCount() {
			return nil, fmt.Errorf("model %q: clip %q animates %d bones, skeleton has %d: %w",
				m.name, c.Name(), c.BoneCount(), m.skeleton.BoneCount(), ErrClipBoneCount)
		}
		if _, ok := m.clipIndex[c.Name()]; ok {
			return nil, fmt.Errorf("model %q: clip %q: %w", m.name, c.Name(), ErrDuplicateClip)
		}
		m.clipIndex[c.Name()] = i
	}
	return m, nil
}

func (m *model) Name() string {
	return m.name
}

func (m *model) Skeleton() *skeleton.Skeleton {
	return m.skeleton
}

func (m *model) Clips() []clip.Clip {
	return m.clips
}

func (m *model) Clip(i int) clip.Clip {
	if i < 0 || i >= len(m.clips) {
		return nil
	}
	return m.clips[i]
}

func (m *model) ClipCount() int {
	return len(m.clips)
}

func (m *model) ClipNames() []string {
	names := make([]string, len(m.clips))
	for i, c := range m.clips {
		names[i] = c.Name()
	}
	return names
}

func (m *model) ClipIndex(name string) int {
	if i, ok := m.clipIndex[name]; ok {
		return i
	}
	return -1
}
