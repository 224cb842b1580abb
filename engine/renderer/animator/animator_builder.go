package animator

import (
	"github.com/Carmen-Shannon/oxy-skin/engine/model"
	"github.com/Carmen-Shannon/oxy-skin/engine/pose"
)

// AnimatorBuilderOption is a functional option for configuring an Animator during construction.
type AnimatorBuilderOption func(*animator)

// WithModel is an option builder that assigns the Model whose skeleton and clips the Animator evaluates.
//
// Parameters:
//   - m: the Model to associate with this animator
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the model option to an animator
func WithModel(m model.Model) AnimatorBuilderOption {
	return func(a *animator) {
		a.model = m
	}
}

// WithMaxInstances is an option builder that sets the maximum number of instances the Animator can manage.
//
// Parameters:
//   - maxInstances: the maximum number of instances to support
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the max instances option to an animator
func WithMaxInstances(maxInstances int) AnimatorBuilderOption {
	return func(a *animator) {
		a.maxInstances = uint32(max(maxInstances, 0))
	}
}

// WithMaxBones is an option builder that sets the number of bone slots reserved per instance in the output buffer.
// Reserving more slots than the skeleton needs lets one shader layout serve several models.
//
// Parameters:
//   - maxBones: the bone slots per instance
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the max bones option to an animator
func WithMaxBones(maxBones int) AnimatorBuilderOption {
	return func(a *animator) {
		a.maxBones = max(maxBones, 0)
	}
}

// WithWorkers is an option builder that sets how many pool workers evaluate instances in parallel.
// A value of 1 or less evaluates inline on the PrepareFrame caller.
//
// Parameters:
//   - workers: the number of workers
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the workers option to an animator
func WithWorkers(workers int) AnimatorBuilderOption {
	return func(a *animator) {
		a.workers = workers
	}
}

// WithInterpolation is an option builder that sets the keyframe sampling mode.
//
// Parameters:
//   - mode: the interpolation mode
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the interpolation option to an animator
func WithInterpolation(mode pose.Interpolation) AnimatorBuilderOption {
	return func(a *animator) {
		a.mode = mode
	}
}

// WithProfiling is an option builder that enables the frame profiler.
//
// Parameters:
//   - enabled: true to log evaluation timing and memory statistics
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the profiling option to an animator
func WithProfiling(enabled bool) AnimatorBuilderOption {
	return func(a *animator) {
		a.profiling = enabled
	}
}

// WithOutputBinding is an option builder that sets the binding index targeted by staged writes.
//
// Parameters:
//   - binding: the binding index of the pose storage buffer
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the output binding option to an animator
func WithOutputBinding(binding int) AnimatorBuilderOption {
	return func(a *animator) {
		a.outputBinding = binding
	}
}

// WithPoseUpdateHandler is an option builder that registers a callback fired for every newly evaluated pose.
//
// Parameters:
//   - handler: the callback
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the handler option to an animator
func WithPoseUpdateHandler(handler PoseUpdateHandler) AnimatorBuilderOption {
	return func(a *animator) {
		a.onPoseUpdate = handler
	}
}

// WithVerbose is an option builder that enables lifecycle logging.
//
// Parameters:
//   - verbose: true to log creation and release
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the verbose option to an animator
func WithVerbose(verbose bool) AnimatorBuilderOption {
	return func(a *animator) {
		a.verbose = verbose
	}
}
