// Package clip stores baked skeletal animation clips and samples them.
//
// A clip holds one local transform per bone per keyframe, with keyframes spaced uniformly by the clip frequency.
// Samples are laid out bone-major: the 7 channels (tx, ty, tz, qx, qy, qz, qw) of keyframe k of bone b start at
// index (b*keyframeCount + k) * 7.
package clip

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-skin/engine/pose"
	"github.com/chewxy/math32"
)

var (
	// ErrInvalidFrequency is returned when a clip's keyframe spacing is not positive.
	ErrInvalidFrequency = errors.New("frequency must be positive")
	// ErrInvalidDuration is returned when a clip's duration is negative or not finite.
	ErrInvalidDuration = errors.New("duration must be a finite non-negative number")
	// ErrInvalidBoneCount is returned when a clip animates no bones.
	ErrInvalidBoneCount = errors.New("bone count must be positive")
	// ErrKeyframeCount is returned when the keyframes do not span the clip's duration.
	ErrKeyframeCount = errors.New("keyframe count does not cover duration")
	// ErrKeyframeTimes is returned when keyframe times are not ascending or the last one is not the duration.
	ErrKeyframeTimes = errors.New("keyframe times must ascend and end at the duration")
	// ErrDataLength is returned when the sample data does not hold boneCount * keyframeCount * 7 floats.
	ErrDataLength = errors.New("sample data length does not match bone and keyframe count")
)

// timeTolerance absorbs float32 rounding between keyframe times and the clip duration.
const timeTolerance = 1e-4

// clip is the implementation of the Clip interface.
type clip struct {
	name      string
	duration  float32
	frequency float32
	boneCount int

	times []float32
	data  []float32
}

// Clip is an immutable baked animation clip. A Clip is safe to share between any number of evaluating goroutines.
type Clip interface {
	pose.Sampler

	// Name returns the clip name.
	//
	// Returns:
	//   - string: the clip name
	Name() string

	// Frequency returns the spacing between keyframes in seconds.
	//
	// Returns:
	//   - float32: seconds per keyframe
	Frequency() float32

	// KeyframeCount returns the number of keyframes per bone.
	//
	// Returns:
	//   - int: the keyframe count
	KeyframeCount() int

	// Times returns the keyframe times in seconds. The slice must not be modified.
	//
	// Returns:
	//   - []float32: the keyframe times
	Times() []float32

	// Data returns the flat bone-major sample data. The slice must not be modified.
	//
	// Returns:
	//   - []float32: boneCount * keyframeCount * 7 floats
	Data() []float32

	// Keyframe returns the local transform of one bone at one keyframe.
	//
	// Parameters:
	//   - bone: the bone index
	//   - frame: the keyframe index
	//
	// Returns:
	//   - pose.Transform7: the stored local transform
	Keyframe(bone, frame int) pose.Transform7
}

var _ Clip = &clip{}

// NewClip builds and validates a Clip from the provided options.
// When no keyframe times are given they are generated from the duration and frequency with KeyframeTimes.
//
// Parameters:
//   - name: the clip name
//   - options: a variadic list of ClipBuilderOption functions
//
// Returns:
//   - Clip: the validated clip
//   - error: a wrapped sentinel error describing the first validation failure
func NewClip(name string, options ...ClipBuilderOption) (Clip, error) {
	c := &clip{name: name}
	for _, opt := range options {
		opt(c)
	}

	if !(c.frequency > 0) {
		return nil, fmt.Errorf("clip %q: %w", name, ErrInvalidFrequency)
	}
	if c.duration < 0 || math32.IsNaN(c.duration) || math32.IsInf(c.duration, 0) {
		return nil, fmt.Errorf("clip %q: %w", name, ErrInvalidDuration)
	}
	if c.boneCount <= 0 {
		return nil, fmt.Errorf("clip %q: %w", name, ErrInvalidBoneCount)
	}
	if c.times == nil {
		c.times = KeyframeTimes(c.duration, c.frequency)
	}
	if err := c.validateTimes(); err != nil {
		return nil, fmt.Errorf("clip %q: %w", name, err)
	}
	if want := c.boneCount * len(c.times) * pose.Stride; len(c.data) != want {
		return nil, fmt.Errorf("clip %q: got %d floats, want %d: %w", name, len(c.data), want, ErrDataLength)
	}
	return c, nil
}

// KeyframeTimes generates the keyframe times for a clip of the given duration sampled every frequency seconds:
// ceil(duration/frequency)+1 keyframes, the last clamped to duration.
//
// Parameters:
//   - duration: the clip length in seconds
//   - frequency: seconds per keyframe
//
// Returns:
//   - []float32: the keyframe times
func KeyframeTimes(duration, frequency float32) []float32 {
	count := int(math32.Ceil(duration/frequency)) + 1
	times := make([]float32, count)
	for i := range times {
		times[i] = min(float32(i)*frequency, duration)
	}
	return times
}

func (c *clip) validateTimes() error {
	n := len(c.times)
	if n == 0 {
		return fmt.Errorf("no keyframes: %w", ErrKeyframeCount)
	}
	for i := 1; i < n; i++ {
		if c.times[i] < c.times[i-1] {
			return fmt.Errorf("time %d (%g) precedes time %d (%g): %w", i, c.times[i], i-1, c.times[i-1], ErrKeyframeTimes)
		}
	}
	if n == 1 {
		return nil
	}
	if math32.Abs(c.times[n-1]-c.duration) > timeTolerance {
		return fmt.Errorf("last time %g, duration %g: %w", c.times[n-1], c.duration, ErrKeyframeTimes)
	}
	if float32(n-1)*c.frequency < c.duration-timeTolerance {
		return fmt.Errorf("%d keyframes at %gs span less than %gs: %w", n, c.frequency, c.duration, ErrKeyframeCount)
	}
	return nil
}

func (c *clip) Name() string {
	return c.name
}

func (c *clip) Duration() float32 {
	return c.duration
}

func (c *clip) Frequency() float32 {
	return c.frequency
}

func (c *clip) BoneCount() int {
	return c.boneCount
}

func (c *clip) KeyframeCount() int {
	return len(c.times)
}

func (c *clip) Times() []float32 {
	return c.times
}

func (c *clip) Data() []float32 {
	return c.data
}

func (c *clip) Keyframe(bone, frame int) pose.Transform7 {
	var t pose.Transform7
	off := (bone*len(c.times) + frame) * pose.Stride
	copy(t[:], c.data[off:off+pose.Stride])
	return t
}

func (c *clip) Evaluate(time float32, out []pose.Transform7, mode pose.Interpolation) {
	n := len(c.times)
	// NaN lands here too
	if n == 1 || !(time > 0) {
		c.copyKeyframe(0, out)
		return
	}
	if time >= c.duration {
		c.copyKeyframe(n-1, out)
		return
	}

	i0 := int(time / c.frequency)
	// float rounding just below the duration can land on the last index
	if i0 > n-2 {
		i0 = n - 2
	}
	i1 := i0 + 1
	time0 := float32(i0) * c.frequency
	time1 := float32(i1) * c.frequency

	if mode == pose.InterpolationNearest || time1 == time0 {
		if time-time0 < time1-time {
			c.copyKeyframe(i0, out)
		} else {
			c.copyKeyframe(i1, out)
		}
		return
	}

	t := (time - time0) / (time1 - time0)
	for b := range c.boneCount {
		a := c.data[(b*n+i0)*pose.Stride:]
		z := c.data[(b*n+i1)*pose.Stride:]
		dst := &out[b]
		for ch := range pose.Stride {
			dst[ch] = a[ch] + (z[ch]-a[ch])*t
		}
	}
}

func (c *clip) copyKeyframe(frame int, out []pose.Transform7) {
	n := len(c.times)
	for b := range c.boneCount {
		off := (b*n + frame) * pose.Stride
		copy(out[b][:], c.data[off:off+pose.Stride])
	}
}
