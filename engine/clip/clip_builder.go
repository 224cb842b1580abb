package clip

import "github.com/Carmen-Shannon/oxy-skin/engine/pose"

// ClipBuilderOption is a functional option for configuring a Clip during construction.
type ClipBuilderOption func(*clip)

// WithDuration sets the playable length of the clip.
//
// Parameters:
//   - duration: the clip length in seconds
//
// Returns:
//   - ClipBuilderOption: a function that sets the clip duration
func WithDuration(duration float32) ClipBuilderOption {
	return func(c *clip) {
		c.duration = duration
	}
}

// WithFrequency sets the spacing between keyframes.
//
// Parameters:
//   - frequency: seconds per keyframe
//
// Returns:
//   - ClipBuilderOption: a function that sets the keyframe spacing
func WithFrequency(frequency float32) ClipBuilderOption {
	return func(c *clip) {
		c.frequency = frequency
	}
}

// WithBoneCount sets the number of bones the clip animates.
//
// Parameters:
//   - count: the bone count
//
// Returns:
//   - ClipBuilderOption: a function that sets the bone count
func WithBoneCount(count int) ClipBuilderOption {
	return func(c *clip) {
		c.boneCount = count
	}
}

// WithTimes sets explicit keyframe times. The slice is retained, not copied.
//
// Parameters:
//   - times: the keyframe times in seconds
//
// Returns:
//   - ClipBuilderOption: a function that sets the keyframe times
func WithTimes(times []float32) ClipBuilderOption {
	return func(c *clip) {
		c.times = times
	}
}

// WithData sets the flat bone-major sample data. The slice is retained, not copied.
//
// Parameters:
//   - data: boneCount * keyframeCount * 7 floats
//
// Returns:
//   - ClipBuilderOption: a function that sets the sample data
func WithData(data []float32) ClipBuilderOption {
	return func(c *clip) {
		c.data = data
	}
}

// WithTracks sets the sample data from per-bone keyframe tracks, indexed tracks[bone][keyframe], and sets the bone
// count to len(tracks). Tracks are flattened into the bone-major layout.
//
// Parameters:
//   - tracks: one slice of keyframe transforms per bone
//
// Returns:
//   - ClipBuilderOption: a function that sets the bone count and sample data
func WithTracks(tracks [][]pose.Transform7) ClipBuilderOption {
	return func(c *clip) {
		c.boneCount = len(tracks)
		c.data = c.data[:0]
		for _, track := range tracks {
			for _, key := range track {
				c.data = append(c.data, key[:]...)
			}
		}
	}
}
