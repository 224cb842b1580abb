package clip

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-skin/engine/pose"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func translation(x, y, z float32) pose.Transform7 {
	return pose.Transform7{x, y, z, 0, 0, 0, 1}
}

// twoBoneClip moves bone 0 from the origin to (2, 0, 0) over one second; bone 1 stays at (0, 1, 0).
func twoBoneClip(t *testing.T) Clip {
	t.Helper()
	c, err := NewClip("walk",
		WithDuration(1),
		WithFrequency(1),
		WithTracks([][]pose.Transform7{
			{translation(0, 0, 0), translation(2, 0, 0)},
			{translation(0, 1, 0), translation(0, 1, 0)},
		}),
	)
	require.NoError(t, err)
	return c
}

// rampClip holds one bone whose x translation equals the keyframe index, 5 keyframes 0.25s apart.
func rampClip(t *testing.T) Clip {
	t.Helper()
	track := make([]pose.Transform7, 5)
	for i := range track {
		track[i] = translation(float32(i), 0, 0)
	}
	c, err := NewClip("ramp", WithDuration(1), WithFrequency(0.25), WithTracks([][]pose.Transform7{track}))
	require.NoError(t, err)
	return c
}

func TestNewClip(t *testing.T) {
	c := twoBoneClip(t)
	assert.Equal(t, "walk", c.Name())
	assert.Equal(t, float32(1), c.Duration())
	assert.Equal(t, float32(1), c.Frequency())
	assert.Equal(t, 2, c.BoneCount())
	assert.Equal(t, 2, c.KeyframeCount())
	assert.Equal(t, []float32{0, 1}, c.Times())
	assert.Len(t, c.Data(), 2*2*pose.Stride)
	assert.Equal(t, translation(2, 0, 0), c.Keyframe(0, 1))
	assert.Equal(t, translation(0, 1, 0), c.Keyframe(1, 0))
}

func TestNewClipValidation(t *testing.T) {
	oneBone := make([]float32, 2*pose.Stride)

	tests := []struct {
		name    string
		options []ClipBuilderOption
		wantErr error
	}{
		{
			name:    "zero frequency",
			options: []ClipBuilderOption{WithDuration(1), WithBoneCount(1), WithData(oneBone)},
			wantErr: ErrInvalidFrequency,
		},
		{
			name:    "negative duration",
			options: []ClipBuilderOption{WithDuration(-1), WithFrequency(1), WithBoneCount(1), WithData(oneBone)},
			wantErr: ErrInvalidDuration,
		},
		{
			name:    "no bones",
			options: []ClipBuilderOption{WithDuration(1), WithFrequency(1), WithData(oneBone)},
			wantErr: ErrInvalidBoneCount,
		},
		{
			name:    "empty times",
			options: []ClipBuilderOption{WithDuration(1), WithFrequency(1), WithBoneCount(1), WithTimes([]float32{}), WithData(oneBone)},
			wantErr: ErrKeyframeCount,
		},
		{
			name:    "descending times",
			options: []ClipBuilderOption{WithDuration(1), WithFrequency(1), WithBoneCount(1), WithTimes([]float32{1, 0}), WithData(oneBone)},
			wantErr: ErrKeyframeTimes,
		},
		{
			name:    "last time short of duration",
			options: []ClipBuilderOption{WithDuration(2), WithFrequency(1), WithBoneCount(1), WithTimes([]float32{0, 1}), WithData(oneBone)},
			wantErr: ErrKeyframeTimes,
		},
		{
			name:    "too few keyframes",
			options: []ClipBuilderOption{WithDuration(2), WithFrequency(1), WithBoneCount(1), WithTimes([]float32{0, 2}), WithData(oneBone)},
			wantErr: ErrKeyframeCount,
		},
		{
			name:    "short data",
			options: []ClipBuilderOption{WithDuration(1), WithFrequency(1), WithBoneCount(2), WithData(oneBone)},
			wantErr: ErrDataLength,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClip("bad", tt.options...)
			assert.Nil(t, c)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), `clip "bad"`)
		})
	}
}

func TestKeyframeTimes(t *testing.T) {
	tests := []struct {
		name      string
		duration  float32
		frequency float32
		want      []float32
	}{
		{name: "exact multiple", duration: 1, frequency: 0.25, want: []float32{0, 0.25, 0.5, 0.75, 1}},
		{name: "last clamped", duration: 1, frequency: 0.3, want: []float32{0, 0.3, 0.6, 0.9, 1}},
		{name: "zero length", duration: 0, frequency: 1.0 / 30, want: []float32{0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := KeyframeTimes(tt.duration, tt.frequency)
			require.Len(t, got, len(tt.want))
			assert.InDeltaSlice(t, tt.want, got, 1e-6)
			assert.Equal(t, tt.duration, got[len(got)-1])
		})
	}
}

func TestEvaluateSingleKeyframe(t *testing.T) {
	c, err := NewClip("pose", WithDuration(0), WithFrequency(1.0/30), WithTracks([][]pose.Transform7{
		{translation(3, 4, 5)},
	}))
	require.NoError(t, err)

	out := make([]pose.Transform7, 1)
	for _, mode := range []pose.Interpolation{pose.InterpolationNearest, pose.InterpolationLinear} {
		for _, time := range []float32{-1, 0, 0.5, 10} {
			out[0] = pose.Identity
			c.Evaluate(time, out, mode)
			assert.Equal(t, translation(3, 4, 5), out[0], "mode %s time %g", mode, time)
		}
	}
}

func TestEvaluateClampsOutOfRangeTimes(t *testing.T) {
	c := rampClip(t)
	out := make([]pose.Transform7, 1)

	for _, mode := range []pose.Interpolation{pose.InterpolationNearest, pose.InterpolationLinear} {
		for _, time := range []float32{-5, -0.01, 0} {
			c.Evaluate(time, out, mode)
			assert.Equal(t, translation(0, 0, 0), out[0], "mode %s time %g", mode, time)
		}
		for _, time := range []float32{1, 1.01, 50} {
			c.Evaluate(time, out, mode)
			assert.Equal(t, translation(4, 0, 0), out[0], "mode %s time %g", mode, time)
		}
	}
}

func TestEvaluateNonFiniteTime(t *testing.T) {
	c := rampClip(t)
	out := make([]pose.Transform7, 1)

	for _, mode := range []pose.Interpolation{pose.InterpolationNearest, pose.InterpolationLinear} {
		c.Evaluate(float32(math.NaN()), out, mode)
		assert.Equal(t, translation(0, 0, 0), out[0], "mode %s NaN", mode)

		c.Evaluate(float32(math.Inf(1)), out, mode)
		assert.Equal(t, translation(4, 0, 0), out[0], "mode %s +Inf", mode)

		c.Evaluate(float32(math.Inf(-1)), out, mode)
		assert.Equal(t, translation(0, 0, 0), out[0], "mode %s -Inf", mode)
	}
}

func TestEvaluateLinearMidpoint(t *testing.T) {
	c := twoBoneClip(t)
	out := make([]pose.Transform7, 2)

	c.Evaluate(0.5, out, pose.InterpolationLinear)
	assert.InDelta(t, 1.0, out[0][0], 1e-6)
	assert.InDelta(t, 0.0, out[0][1], 1e-6)
	assert.InDelta(t, 0.0, out[0][2], 1e-6)
	assert.Equal(t, translation(0, 1, 0), out[1])
}

func TestEvaluateLinearOnKeyframeMatchesNearest(t *testing.T) {
	c := rampClip(t)
	linear := make([]pose.Transform7, 1)
	nearest := make([]pose.Transform7, 1)

	for i, time := range []float32{0.25, 0.5, 0.75} {
		c.Evaluate(time, linear, pose.InterpolationLinear)
		c.Evaluate(time, nearest, pose.InterpolationNearest)
		assert.Equal(t, c.Keyframe(0, i+1), linear[0])
		assert.Equal(t, nearest[0], linear[0])
	}
}

func TestEvaluateNearest(t *testing.T) {
	c := rampClip(t)
	out := make([]pose.Transform7, 1)

	tests := []struct {
		time  float32
		wantX float32
	}{
		{time: 0.1, wantX: 0},
		{time: 0.124, wantX: 0},
		{time: 0.125, wantX: 1}, // exact midpoint picks the later keyframe
		{time: 0.2, wantX: 1},
		{time: 0.6, wantX: 2},
		{time: 0.9, wantX: 4},
	}
	for _, tt := range tests {
		c.Evaluate(tt.time, out, pose.InterpolationNearest)
		assert.Equal(t, tt.wantX, out[0][0], "time %g", tt.time)
	}
}

func TestEvaluateLinearInterpolatesRotationComponentWise(t *testing.T) {
	c, err := NewClip("turn", WithDuration(1), WithFrequency(1), WithTracks([][]pose.Transform7{
		{{0, 0, 0, 0, 0, 0, 1}, {0, 0, 0, 0, 0, 1, 0}},
	}))
	require.NoError(t, err)

	out := make([]pose.Transform7, 1)
	c.Evaluate(0.5, out, pose.InterpolationLinear)
	assert.InDelta(t, 0.5, out[0][5], 1e-6)
	assert.InDelta(t, 0.5, out[0][6], 1e-6)
}

func TestEvaluateJustBelowDuration(t *testing.T) {
	track := make([]pose.Transform7, 31)
	for i := range track {
		track[i] = translation(float32(i), 0, 0)
	}
	c, err := NewClip("tail", WithDuration(1), WithFrequency(1.0/30), WithTimes(KeyframeTimes(1, 1.0/30)[:31]),
		WithTracks([][]pose.Transform7{track}))
	require.NoError(t, err)

	out := make([]pose.Transform7, 1)
	assert.NotPanics(t, func() {
		c.Evaluate(0.99999994, out, pose.InterpolationLinear)
	})
	assert.InDelta(t, 30.0, out[0][0], 0.01)
}

func TestEvaluateDoesNotAllocate(t *testing.T) {
	c := rampClip(t)
	out := make([]pose.Transform7, 1)
	allocs := testing.AllocsPerRun(100, func() {
		c.Evaluate(0.4, out, pose.InterpolationLinear)
		c.Evaluate(0.4, out, pose.InterpolationNearest)
	})
	assert.Zero(t, allocs)
}
