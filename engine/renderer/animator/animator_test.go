package animator

import (
	"fmt"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-skin/engine/pose"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/bind_group_provider"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAnimator(t *testing.T, options ...AnimatorBuilderOption) Animator {
	t.Helper()
	a, err := NewAnimator(append([]AnimatorBuilderOption{WithModel(newTestModel(t, nil))}, options...)...)
	require.NoError(t, err)
	t.Cleanup(a.Release)
	return a
}

func walkAt(normalizedTime float32) ClipState {
	return ClipState{ClipIndex: walkClip, NormalizedTime: normalizedTime, Weight: 1}
}

func TestNewAnimatorDefaults(t *testing.T) {
	a := newTestAnimator(t)

	assert.Equal(t, uint32(defaultMaxInstances), a.MaxInstances())
	assert.Equal(t, 3, a.MaxBones())
	assert.Equal(t, pose.InterpolationNearest, a.Interpolation())
	assert.Zero(t, a.InstanceCount())
	assert.Equal(t, "rig", a.Model().Name())
	assert.Equal(t, "rig Pose", a.OutputBindGroupProvider().Label())
}

func TestNewAnimatorValidation(t *testing.T) {
	_, err := NewAnimator()
	assert.ErrorIs(t, err, ErrNoModel)

	_, err = NewAnimator(WithModel(newTestModel(t, nil)), WithMaxBones(2))
	assert.ErrorIs(t, err, ErrBoneCapacity)
}

func TestOutputBufferDescriptor(t *testing.T) {
	a := newTestAnimator(t, WithMaxInstances(4), WithMaxBones(8), WithOutputBinding(2))

	desc := a.OutputBufferDescriptor()
	assert.Equal(t, uint64(4*8*32), desc.Size)
	assert.Equal(t, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst, desc.Usage)
	assert.Equal(t, "rig Pose Buffer", desc.Label)
	assert.Equal(t, 2, a.OutputBinding())
}

func TestAddInstanceCapacity(t *testing.T) {
	a := newTestAnimator(t, WithMaxInstances(2))

	first, err := a.AddInstance()
	require.NoError(t, err)
	second, err := a.AddInstance()
	require.NoError(t, err)
	assert.Equal(t, uint32(0), first)
	assert.Equal(t, uint32(1), second)

	_, err = a.AddInstance()
	assert.ErrorIs(t, err, ErrInstanceCapacity)
	assert.Equal(t, uint32(2), a.InstanceCount())
}

func TestSetClipStatesValidation(t *testing.T) {
	a := newTestAnimator(t)
	_, err := a.AddInstance()
	require.NoError(t, err)

	tests := []struct {
		name    string
		index   uint32
		current ClipState
		next    ClipState
		wantErr error
	}{
		{name: "valid", index: 0, current: walkAt(0), next: NoClip},
		{name: "both clips", index: 0, current: walkAt(0), next: ClipState{ClipIndex: slideClip, Weight: 1}},
		{name: "unknown instance", index: 1, current: walkAt(0), next: NoClip, wantErr: ErrUnknownInstance},
		{name: "clip out of range", index: 0, current: ClipState{ClipIndex: 2, Weight: 1}, next: NoClip, wantErr: ErrUnknownClip},
		{name: "negative clip", index: 0, current: walkAt(0), next: ClipState{ClipIndex: -2}, wantErr: ErrUnknownClip},
		{name: "NaN time", index: 0, current: walkAt(float32(math.NaN())), next: NoClip, wantErr: ErrInvalidClipState},
		{name: "infinite time", index: 0, current: walkAt(float32(math.Inf(1))), next: NoClip, wantErr: ErrInvalidClipState},
		{name: "infinite weight", index: 0, current: walkAt(0), next: ClipState{ClipIndex: slideClip, Weight: float32(math.Inf(1))}, wantErr: ErrInvalidClipState},
		{name: "NaN time on idle layer", index: 0, current: walkAt(0), next: ClipState{ClipIndex: -1, NormalizedTime: float32(math.NaN())}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := a.SetClipStates(tt.index, tt.current, tt.next)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestPrepareFrameStagesWrites(t *testing.T) {
	var updates []uint32
	a := newTestAnimator(t,
		WithInterpolation(pose.InterpolationLinear),
		WithMaxBones(4),
		WithOutputBinding(3),
		WithPoseUpdateHandler(func(index uint32, dualQuats [][4]float32) {
			assert.Len(t, dualQuats, 6)
			updates = append(updates, index)
		}),
	)
	for range 3 {
		_, err := a.AddInstance()
		require.NoError(t, err)
	}

	require.NoError(t, a.SetClipStates(0, walkAt(0.5), NoClip))
	require.NoError(t, a.SetClipStates(2, walkAt(0.25), NoClip))

	assert.Equal(t, uint32(2), a.PrepareFrame())
	assert.Equal(t, []uint32{0, 2}, updates)

	writes := a.StagedWriteData()
	require.Len(t, writes, 2)
	for i, index := range []uint32{0, 2} {
		w := writes[i]
		assert.Same(t, a.OutputBindGroupProvider(), w.Provider)
		assert.Equal(t, 3, w.Binding)
		assert.Equal(t, uint64(index)*4*32, w.Offset)
		require.Len(t, w.Data, 3*32)

		dq, ok := a.DualQuats(index)
		require.True(t, ok)
		for b, g := range UnmarshalGPUDualQuats(w.Data) {
			assert.Equal(t, dq[2*b], g.Dual)
			assert.Equal(t, dq[2*b+1], g.Real)
		}
	}

	hip, _ := a.DualQuats(0)
	assertVec4InDelta(t, [4]float32{0.5, 0, 0, 0}, hip[2])

	_, ok := a.DualQuats(1)
	assert.False(t, ok, "instance 1 never had clip states")
	assert.Empty(t, a.StagedWriteData(), "writes are cleared once drained")
}

func TestPrepareFrameSkipsIdleInstances(t *testing.T) {
	a := newTestAnimator(t)
	_, err := a.AddInstance()
	require.NoError(t, err)

	require.NoError(t, a.SetClipStates(0, walkAt(0.75), NoClip))
	assert.Equal(t, uint32(1), a.PrepareFrame())
	a.StagedWriteData()

	assert.Zero(t, a.PrepareFrame(), "no new clip states")
	assert.Empty(t, a.StagedWriteData())

	require.NoError(t, a.SetClipStates(0, NoClip, NoClip))
	assert.Zero(t, a.PrepareFrame(), "nothing playing keeps the previous pose")
	_, ok := a.DualQuats(0)
	assert.True(t, ok)
}

func TestRemoveInstanceSwapsLast(t *testing.T) {
	a := newTestAnimator(t, WithInterpolation(pose.InterpolationLinear))
	for i := range 3 {
		_, err := a.AddInstance()
		require.NoError(t, err)
		require.NoError(t, a.SetClipStates(uint32(i), walkAt(float32(i)*0.25), NoClip))
	}
	a.PrepareFrame()
	a.StagedWriteData()
	lastPose, ok := a.DualQuats(2)
	require.True(t, ok)

	moved, swapped := a.RemoveInstance(0)
	assert.True(t, swapped)
	assert.Equal(t, uint32(2), moved)
	assert.Equal(t, uint32(2), a.InstanceCount())

	got, ok := a.DualQuats(0)
	require.True(t, ok)
	assert.Equal(t, lastPose, got)

	assert.Equal(t, uint32(1), a.PrepareFrame(), "moved instance is restaged at its new slot")
	writes := a.StagedWriteData()
	require.Len(t, writes, 1)
	assert.Equal(t, uint64(0), writes[0].Offset)

	moved, swapped = a.RemoveInstance(1)
	assert.False(t, swapped)
	assert.Zero(t, moved)
	_, swapped = a.RemoveInstance(5)
	assert.False(t, swapped)
	assert.Equal(t, uint32(1), a.InstanceCount())
}

func TestRemoveInstanceStagesIdentityForUnposedInstance(t *testing.T) {
	a := newTestAnimator(t)
	for range 2 {
		_, err := a.AddInstance()
		require.NoError(t, err)
	}
	require.NoError(t, a.SetClipStates(0, walkAt(0.75), NoClip))
	require.Equal(t, uint32(1), a.PrepareFrame())
	a.StagedWriteData()

	moved, swapped := a.RemoveInstance(0)
	require.True(t, swapped)
	assert.Equal(t, uint32(1), moved)
	_, ok := a.DualQuats(0)
	assert.False(t, ok)

	assert.Equal(t, uint32(1), a.PrepareFrame(), "the slot is overwritten even without a pose")
	writes := a.StagedWriteData()
	require.Len(t, writes, 1)
	assert.Equal(t, uint64(0), writes[0].Offset)
	require.Len(t, writes[0].Data, 3*32)
	for _, g := range UnmarshalGPUDualQuats(writes[0].Data) {
		assert.Equal(t, [4]float32{}, g.Dual)
		assert.Equal(t, [4]float32{0, 0, 0, 1}, g.Real)
	}

	assert.Zero(t, a.PrepareFrame())
}

type queueWrite struct {
	buffer *wgpu.Buffer
	offset uint64
}

type fakeQueue struct {
	writes []queueWrite
}

func (q *fakeQueue) WriteBuffer(buffer *wgpu.Buffer, bufferOffset uint64, _ []byte) error {
	q.writes = append(q.writes, queueWrite{buffer: buffer, offset: bufferOffset})
	return nil
}

func TestBindOutputRestagesPosedInstances(t *testing.T) {
	a := newTestAnimator(t, WithOutputBinding(1))
	for range 2 {
		_, err := a.AddInstance()
		require.NoError(t, err)
	}
	require.NoError(t, a.SetClipStates(1, walkAt(0.75), NoClip))
	require.Equal(t, uint32(1), a.PrepareFrame())

	q := &fakeQueue{}
	n, err := bind_group_provider.WriteBuffers(q, a.StagedWriteData())
	require.NoError(t, err)
	assert.Zero(t, n, "no buffer attached yet")

	buf := &wgpu.Buffer{}
	bg := &wgpu.BindGroup{}
	a.BindOutput(buf, bg)
	t.Cleanup(func() { a.BindOutput(nil, nil) })
	assert.Same(t, buf, a.OutputBindGroupProvider().Buffer(1))
	assert.Same(t, bg, a.OutputBindGroupProvider().BindGroup())

	assert.Equal(t, uint32(1), a.PrepareFrame(), "only the posed instance is restaged")
	n, err = bind_group_provider.WriteBuffers(q, a.StagedWriteData())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []queueWrite{{buffer: buf, offset: 3 * 32}}, q.writes)

	assert.Zero(t, a.PrepareFrame())
}

func TestPrepareFrameParallelMatchesInline(t *testing.T) {
	const instances = 16
	inline := newTestAnimator(t, WithInterpolation(pose.InterpolationLinear))
	parallel := newTestAnimator(t, WithInterpolation(pose.InterpolationLinear), WithWorkers(4))

	for _, a := range []Animator{inline, parallel} {
		for i := range instances {
			_, err := a.AddInstance()
			require.NoError(t, err)
			current := walkAt(float32(i) / instances)
			next := ClipState{ClipIndex: slideClip, NormalizedTime: 0.5, Weight: float32(i%4) * 0.25}
			require.NoError(t, a.SetClipStates(uint32(i), current, next))
		}
		assert.Equal(t, uint32(instances), a.PrepareFrame())
	}

	for i := range uint32(instances) {
		want, ok := inline.DualQuats(i)
		require.True(t, ok)
		got, ok := parallel.DualQuats(i)
		require.True(t, ok)
		assert.Equal(t, want, got, fmt.Sprintf("instance %d", i))
	}
	assert.Equal(t, len(inline.StagedWriteData()), len(parallel.StagedWriteData()))
}

func TestPrepareFrameWithProfiling(t *testing.T) {
	a := newTestAnimator(t, WithProfiling(true))
	_, err := a.AddInstance()
	require.NoError(t, err)
	require.NoError(t, a.SetClipStates(0, walkAt(0), NoClip))
	assert.Equal(t, uint32(1), a.PrepareFrame())
}
