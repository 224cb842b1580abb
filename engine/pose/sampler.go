package pose

// Interpolation selects how a Sampler reads between two keyframes.
type Interpolation int

const (
	// InterpolationNearest copies the keyframe closest to the query time.
	InterpolationNearest Interpolation = iota

	// InterpolationLinear lerps every channel of the bracketing keyframes component-wise.
	InterpolationLinear
)

// String returns the lowercase name of the interpolation mode.
func (i Interpolation) String() string {
	switch i {
	case InterpolationNearest:
		return "nearest"
	case InterpolationLinear:
		return "linear"
	default:
		return "unknown"
	}
}

// ParseInterpolation maps a mode name as produced by String back to its Interpolation.
//
// Parameters:
//   - name: "nearest" or "linear"
//
// Returns:
//   - Interpolation: the matching mode
//   - bool: false if the name is not recognized
func ParseInterpolation(name string) (Interpolation, bool) {
	switch name {
	case "nearest":
		return InterpolationNearest, true
	case "linear":
		return InterpolationLinear, true
	default:
		return InterpolationNearest, false
	}
}

// Sampler produces one local transform per bone for a query time.
// clip.Clip is the production implementation.
type Sampler interface {
	// BoneCount returns the number of bones written by Evaluate.
	//
	// Returns:
	//   - int: the bone count
	BoneCount() int

	// Duration returns the playable length in seconds.
	//
	// Returns:
	//   - float32: the duration in seconds
	Duration() float32

	// Evaluate writes the pose at time into the first BoneCount entries of out.
	// Times at or below 0, and NaN, yield the first keyframe; times at or past Duration yield the last.
	//
	// Parameters:
	//   - time: the query time in seconds
	//   - out: the destination pose, at least BoneCount long
	//   - mode: the interpolation mode
	Evaluate(time float32, out []Transform7, mode Interpolation)
}
