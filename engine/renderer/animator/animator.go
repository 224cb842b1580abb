package animator

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/model"
	"github.com/Carmen-Shannon/oxy-skin/engine/pose"
	"github.com/Carmen-Shannon/oxy-skin/engine/profiler"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/bind_group_provider"
	"github.com/chewxy/math32"
	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrInstanceCapacity is returned by AddInstance when MaxInstances instances are registered.
	ErrInstanceCapacity = errors.New("instance capacity reached")
	// ErrUnknownInstance is returned when an instance index is out of range.
	ErrUnknownInstance = errors.New("unknown instance")
	// ErrUnknownClip is returned when a clip state names a clip the model does not have.
	ErrUnknownClip = errors.New("unknown clip")
	// ErrInvalidClipState is returned when a clip state carries a NaN or infinite time or weight.
	ErrInvalidClipState = errors.New("invalid clip state")
)

const (
	defaultMaxInstances = 64
	taskQueueSize       = 256
	workerIdleTimeout   = time.Second
)

// PoseUpdateHandler is called from PrepareFrame for every instance that produced a new pose.
// The dual quaternion slice is only valid for the duration of the call.
// Handlers must not call back into the Animator.
type PoseUpdateHandler func(index uint32, dualQuats [][4]float32)

// instance is the per-instance evaluation state. Its evaluator and staging region are never shared.
type instance struct {
	evaluator     *Evaluator
	current, next ClipState
	pending       bool
	restage       bool
	updated       bool
	staged        bool
	slot          uint32
	task          worker.Task
}

// animator is the implementation of the Animator interface.
type animator struct {
	mu *sync.Mutex
	wg *sync.WaitGroup

	model        model.Model
	maxInstances uint32
	maxBones     int
	workers      int
	mode         pose.Interpolation
	profiling    bool
	verbose      bool

	outputBinding  int
	outputProvider bind_group_provider.BindGroupProvider
	onPoseUpdate   PoseUpdateHandler

	pool      worker.DynamicWorkerPool
	profiler  *profiler.Profiler
	instances []*instance
	pending   []*instance
	nextID    int

	staging      []byte
	identity     []byte
	stagedWrites []bind_group_provider.BufferWrite
}

// Animator evaluates skeletal poses for many instances of one model and stages the packed dual quaternions
// as GPU buffer writes.
//
// Each frame the caller sets the current and next clip state of every instance it wants animated, then calls
// PrepareFrame. Instances are evaluated in parallel on a worker pool, each into its own scratch arena.
// Instance i owns the region [i × MaxBones × 32, (i+1) × MaxBones × 32) of the output buffer.
//
// All methods are safe for concurrent use.
type Animator interface {
	// Model returns the model this animator evaluates.
	//
	// Returns:
	//   - model.Model: the model
	Model() model.Model

	// MaxInstances returns the maximum number of instances this animator can manage.
	//
	// Returns:
	//   - uint32: the maximum number of instances supported
	MaxInstances() uint32

	// MaxBones returns the number of bone slots reserved per instance in the output buffer.
	//
	// Returns:
	//   - int: the bones per instance
	MaxBones() int

	// InstanceCount returns the current number of registered instances.
	//
	// Returns:
	//   - uint32: the number of active instances
	InstanceCount() uint32

	// AddInstance registers a new instance with no clip playing.
	//
	// Returns:
	//   - uint32: the index of the newly registered instance
	//   - error: ErrInstanceCapacity if MaxInstances instances are already registered
	AddInstance() (uint32, error)

	// RemoveInstance removes the instance at the given index using a swap-remove strategy.
	// Returns the old last index that was swapped and whether a swap occurred.
	// The swapped instance keeps its pose and is restaged at its new index on the next PrepareFrame.
	// A swapped instance that has no pose yet stages the identity pose so the slot drops the removed instance's data.
	//
	// Parameters:
	//   - index: the instance index to remove
	//
	// Returns:
	//   - uint32: the old last index that was swapped into the removed slot (only meaningful when bool is true)
	//   - bool: true if the last instance was swapped into the removed slot
	RemoveInstance(index uint32) (uint32, bool)

	// SetClipStates sets the clips an instance samples on the next PrepareFrame.
	// Instances without new clip states since the last PrepareFrame are skipped and keep their output.
	//
	// Parameters:
	//   - index: the instance index
	//   - current: the clip currently playing
	//   - next: the clip being transitioned to, or NoClip
	//
	// Returns:
	//   - error: ErrUnknownInstance, ErrUnknownClip or ErrInvalidClipState
	SetClipStates(index uint32, current, next ClipState) error

	// PrepareFrame evaluates every instance with pending clip states and stages the resulting GPU writes.
	//
	// Returns:
	//   - uint32: the number of instances whose output was staged
	PrepareFrame() uint32

	// DualQuats returns a copy of the last pose produced for an instance.
	//
	// Parameters:
	//   - index: the instance index
	//
	// Returns:
	//   - [][4]float32: 2 × bone count vectors, dual then real per bone
	//   - bool: false if the index is unknown or the instance has no pose yet
	DualQuats(index uint32) ([][4]float32, bool)

	// OutputBindGroupProvider returns the BindGroupProvider that holds the pose storage buffer.
	// The renderer creates the buffer from OutputBufferDescriptor and attaches it with BindOutput.
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the output BindGroupProvider
	OutputBindGroupProvider() bind_group_provider.BindGroupProvider

	// BindOutput attaches the pose storage buffer and the bind group the skinning pass uses to the output provider.
	// The buffer is created from OutputBufferDescriptor. Every instance with a pose is restaged on the next
	// PrepareFrame so the new buffer starts out complete. Passing a nil buffer detaches without releasing.
	//
	// Parameters:
	//   - buf: the pose storage buffer, or nil
	//   - bg: the bind group referencing buf at OutputBinding
	BindOutput(buf *wgpu.Buffer, bg *wgpu.BindGroup)

	// OutputBinding returns the binding index the staged writes target.
	//
	// Returns:
	//   - int: the binding index
	OutputBinding() int

	// OutputBufferDescriptor describes the storage buffer that receives the staged writes.
	//
	// Returns:
	//   - wgpu.BufferDescriptor: the descriptor sized for MaxInstances × MaxBones dual quaternions
	OutputBufferDescriptor() wgpu.BufferDescriptor

	// StagedWriteData returns and clears the pending GPU buffer writes.
	// The write data aliases the animator's staging buffer and is valid until the next PrepareFrame.
	//
	// Returns:
	//   - []bind_group_provider.BufferWrite: the slice of pending buffer writes
	StagedWriteData() []bind_group_provider.BufferWrite

	// Interpolation returns the sampling mode used by every instance.
	//
	// Returns:
	//   - pose.Interpolation: the interpolation mode
	Interpolation() pose.Interpolation

	// Release stops the worker pool and frees GPU resources held by the output provider.
	Release()
}

var _ Animator = &animator{}

// NewAnimator creates a new Animator. A model is required; the remaining options have defaults:
// 64 instances, bone capacity equal to the skeleton, a single worker and nearest interpolation.
//
// Parameters:
//   - options: a variadic list of AnimatorBuilderOption functions
//
// Returns:
//   - Animator: the newly created animator
//   - error: ErrNoModel, or ErrBoneCapacity if WithMaxBones is smaller than the skeleton
func NewAnimator(options ...AnimatorBuilderOption) (Animator, error) {
	a := &animator{
		mu:           &sync.Mutex{},
		wg:           &sync.WaitGroup{},
		maxInstances: defaultMaxInstances,
		workers:      1,
		mode:         pose.InterpolationNearest,
	}
	for _, opt := range options {
		opt(a)
	}

	if a.model == nil || a.model.Skeleton() == nil {
		return nil, ErrNoModel
	}
	boneCount := a.model.Skeleton().BoneCount()
	if a.maxBones == 0 {
		a.maxBones = boneCount
	}
	if boneCount > a.maxBones {
		return nil, fmt.Errorf("model %q: %d bones, capacity %d: %w", a.model.Name(), boneCount, a.maxBones, ErrBoneCapacity)
	}
	if a.maxInstances == 0 {
		a.maxInstances = defaultMaxInstances
	}

	a.outputProvider = bind_group_provider.NewBindGroupProvider(a.model.Name() + " Pose")
	a.instances = make([]*instance, 0, a.maxInstances)
	a.pending = make([]*instance, 0, a.maxInstances)
	a.staging = make([]byte, uint64(a.maxInstances)*a.instanceStride())
	a.identity = make([]byte, a.instanceStride())
	rest := GPUDualQuat{Real: [4]float32{0, 0, 0, 1}}
	for off := 0; off < len(a.identity); off += int(dualQuatSize) {
		rest.MarshalTo(a.identity[off:])
	}
	a.stagedWrites = make([]bind_group_provider.BufferWrite, 0, a.maxInstances)

	if a.workers > 1 {
		a.pool = worker.NewDynamicWorkerPool(a.workers, taskQueueSize, workerIdleTimeout)
	}
	if a.profiling {
		a.profiler = profiler.NewProfiler()
	}
	if a.verbose {
		log.Printf("[Animator] %s: %d bones, %d instances x %d bone slots, %d workers, %s interpolation",
			a.model.Name(), boneCount, a.maxInstances, a.maxBones, a.workers, a.mode)
	}
	return a, nil
}

func (a *animator) Model() model.Model {
	return a.model
}

func (a *animator) MaxInstances() uint32 {
	return a.maxInstances
}

func (a *animator) MaxBones() int {
	return a.maxBones
}

func (a *animator) InstanceCount() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return uint32(len(a.instances))
}

func (a *animator) AddInstance() (uint32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if uint32(len(a.instances)) >= a.maxInstances {
		return 0, fmt.Errorf("animator %q: %d instances: %w", a.model.Name(), a.maxInstances, ErrInstanceCapacity)
	}

	ev, err := NewEvaluator(a.model, pose.NewArena(a.model.Skeleton().BoneCount()), a.mode)
	if err != nil {
		return 0, err
	}
	inst := &instance{
		evaluator: ev,
		current:   NoClip,
		next:      NoClip,
		slot:      uint32(len(a.instances)),
	}
	inst.task = worker.Task{
		ID: a.nextID,
		Do: func() (any, error) {
			defer a.wg.Done()
			a.evaluate(inst)
			return nil, nil
		},
	}
	a.nextID++
	a.instances = append(a.instances, inst)
	return inst.slot, nil
}

func (a *animator) RemoveInstance(index uint32) (uint32, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	count := uint32(len(a.instances))
	if index >= count {
		return 0, false
	}
	last := count - 1
	if index == last {
		a.instances[last] = nil
		a.instances = a.instances[:last]
		return 0, false
	}

	moved := a.instances[last]
	moved.slot = index
	moved.restage = true
	a.instances[index] = moved
	a.instances[last] = nil
	a.instances = a.instances[:last]
	return last, true
}

func (a *animator) SetClipStates(index uint32, current, next ClipState) error {
	if err := a.checkClip(current); err != nil {
		return err
	}
	if err := a.checkClip(next); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if index >= uint32(len(a.instances)) {
		return fmt.Errorf("animator %q: instance %d of %d: %w", a.model.Name(), index, len(a.instances), ErrUnknownInstance)
	}
	inst := a.instances[index]
	inst.current = current
	inst.next = next
	inst.pending = true
	return nil
}

// checkClip rejects clip indices outside the model and non-finite times or weights. -1 is always accepted.
func (a *animator) checkClip(s ClipState) error {
	if s.ClipIndex == -1 {
		return nil
	}
	if s.ClipIndex < -1 || s.ClipIndex >= a.model.ClipCount() {
		return fmt.Errorf("animator %q: clip %d of %d: %w", a.model.Name(), s.ClipIndex, a.model.ClipCount(), ErrUnknownClip)
	}
	if !finite(s.NormalizedTime) || !finite(s.Weight) {
		return fmt.Errorf("animator %q: clip %d at %g weight %g: %w", a.model.Name(), s.ClipIndex, s.NormalizedTime, s.Weight, ErrInvalidClipState)
	}
	return nil
}

func finite(v float32) bool {
	return !math32.IsNaN(v) && !math32.IsInf(v, 0)
}

func (a *animator) PrepareFrame() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := time.Now()

	a.pending = a.pending[:0]
	for _, inst := range a.instances {
		if inst.pending || inst.restage {
			a.pending = append(a.pending, inst)
		}
	}

	if a.pool == nil || len(a.pending) <= 1 {
		for _, inst := range a.pending {
			a.evaluate(inst)
		}
	} else {
		a.wg.Add(len(a.pending))
		for _, inst := range a.pending {
			a.pool.SubmitTask(inst.task)
		}
		a.wg.Wait()
	}

	var staged uint32
	stride := a.instanceStride()
	for _, inst := range a.pending {
		if !inst.staged {
			continue
		}
		off := uint64(inst.slot) * stride
		size := uint64(inst.evaluator.BoneCount()) * dualQuatSize
		a.stagedWrites = append(a.stagedWrites, bind_group_provider.BufferWrite{
			Provider: a.outputProvider,
			Binding:  a.outputBinding,
			Offset:   off,
			Data:     a.staging[off : off+size],
		})
		staged++
		if inst.updated && a.onPoseUpdate != nil {
			a.onPoseUpdate(inst.slot, inst.evaluator.DualQuats())
		}
	}

	if a.profiler != nil {
		a.profiler.Tick(time.Since(start), uint32(len(a.pending)))
	}
	return staged
}

// evaluate runs one instance's pipeline and encodes its output into its staging region.
// Instances touch disjoint staging regions so evaluate may run concurrently for different instances.
func (a *animator) evaluate(inst *instance) {
	inst.updated = false
	if inst.pending {
		inst.updated = inst.evaluator.Evaluate(inst.current, inst.next)
		inst.pending = false
	}

	inst.staged = inst.updated || inst.restage
	inst.restage = false
	if !inst.staged {
		return
	}

	off := uint64(inst.slot) * a.instanceStride()
	if !inst.evaluator.HasPose() {
		size := uint64(inst.evaluator.BoneCount()) * dualQuatSize
		copy(a.staging[off:off+size], a.identity)
		return
	}
	copy(a.staging[off:], common.SliceToBytes(inst.evaluator.DualQuats()))
}

func (a *animator) DualQuats(index uint32) ([][4]float32, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if index >= uint32(len(a.instances)) {
		return nil, false
	}
	ev := a.instances[index].evaluator
	if !ev.HasPose() {
		return nil, false
	}
	return append([][4]float32(nil), ev.DualQuats()...), true
}

func (a *animator) OutputBindGroupProvider() bind_group_provider.BindGroupProvider {
	return a.outputProvider
}

func (a *animator) BindOutput(buf *wgpu.Buffer, bg *wgpu.BindGroup) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.outputProvider.Attach(a.outputBinding, buf, bg)
	if buf == nil {
		return
	}
	for _, inst := range a.instances {
		if inst.evaluator.HasPose() {
			inst.restage = true
		}
	}
	if a.verbose {
		log.Printf("[Animator] %s: pose buffer attached at binding %d", a.model.Name(), a.outputBinding)
	}
}

func (a *animator) OutputBinding() int {
	return a.outputBinding
}

func (a *animator) OutputBufferDescriptor() wgpu.BufferDescriptor {
	return wgpu.BufferDescriptor{
		Label:            a.outputProvider.Label() + " Buffer",
		Size:             uint64(len(a.staging)),
		Usage:            wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	}
}

func (a *animator) StagedWriteData() []bind_group_provider.BufferWrite {
	a.mu.Lock()
	defer a.mu.Unlock()

	writes := a.stagedWrites
	a.stagedWrites = a.stagedWrites[:0]
	return writes
}

func (a *animator) Interpolation() pose.Interpolation {
	return a.mode
}

func (a *animator) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.pool != nil {
		a.pool.Stop()
		a.pool = nil
	}
	a.outputProvider.Release()
	if a.verbose {
		log.Printf("[Animator] %s: released", a.model.Name())
	}
}

// instanceStride is the byte size of one instance's region of the output buffer.
func (a *animator) instanceStride() uint64 {
	return uint64(a.maxBones) * dualQuatSize
}

// dualQuatSize is the byte size of one bone in the output buffer.
var dualQuatSize = uint64((&GPUDualQuat{}).Size())
