package model

import (
	"github.com/Carmen-Shannon/oxy-skin/engine/clip"
	"github.com/Carmen-Shannon/oxy-skin/engine/skeleton"
)

// ModelBuilderOption is a functional option for configuring a Model via NewModel.
type ModelBuilderOption func(*model)

// WithName is an option builder that sets the name of the Model.
//
// Parameters:
//   - name: the model identifier
//
// Returns:
//   - ModelBuilderOption: a function that applies the name option to a model
func WithName(name string) ModelBuilderOption {
	return func(m *model) {
		m.name = name
	}
}

// WithSkeleton is an option builder that sets the bone hierarchy of the Model.
//
// Parameters:
//   - s: the skeleton shared by every clip of the model
//
// Returns:
//   - ModelBuilderOption: a function that applies the skeleton option to a model
func WithSkeleton(s *skeleton.Skeleton) ModelBuilderOption {
	return func(m *model) {
		m.skeleton = s
	}
}

// WithClips is an option builder that appends animation clips to the Model. Clip indices follow the order in which
// clips are added.
//
// Parameters:
//   - clips: the clips to add
//
// Returns:
//   - ModelBuilderOption: a function that applies the clips option to a model
func WithClips(clips ...clip.Clip) ModelBuilderOption {
	return func(m *model) {
		m.clips = append(m.clips, clips...)
	}
}
