package bind_group_provider

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	label string

	// GPU resources attached by the GPU owner, released by Release.
	bindGroup *wgpu.BindGroup
	buffers   map[int]*wgpu.Buffer
}

// BindGroupProvider holds the GPU resources a component's staged writes and shader bindings resolve to.
// The Animator owns one for its dual-quaternion pose buffer; the GPU owner creates the buffer and bind group
// and attaches them.
//
// Usage pattern:
//  1. Component creates a BindGroupProvider with a debug label
//  2. GPU owner creates the buffer (sized from the component) and the bind group, then calls Attach
//  3. Each frame the GPU owner passes the component's staged BufferWrites to WriteBuffers
//  4. The skinning pass binds BindGroup()
type BindGroupProvider interface {
	// Release releases the attached buffers and bind group.
	Release()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// BindGroup returns the attached bind group, or nil before Attach.
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group or nil
	BindGroup() *wgpu.BindGroup

	// Buffer returns the buffer attached at a binding, or nil.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer or nil
	Buffer(binding int) *wgpu.Buffer

	// Attach installs a buffer at a binding together with the bind group referencing it.
	// A nil buffer clears the binding. Replaced resources are not released; they stay with the caller.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the created buffer, or nil
	//   - bg: the created bind group, or nil
	Attach(binding int, buf *wgpu.Buffer, bg *wgpu.BindGroup)
}

// Compile-time check that bindGroupProvider implements BindGroupProvider
var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a BindGroupProvider with no GPU resources attached.
//
// Parameters:
//   - label: the debug label
//
// Returns:
//   - BindGroupProvider: the new provider
func NewBindGroupProvider(label string) BindGroupProvider {
	return &bindGroupProvider{
		label:   label,
		buffers: make(map[int]*wgpu.Buffer),
	}
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) Attach(binding int, buf *wgpu.Buffer, bg *wgpu.BindGroup) {
	p.bindGroup = bg
	if buf == nil {
		delete(p.buffers, binding)
		return
	}
	p.buffers[binding] = buf
}

func (p *bindGroupProvider) Release() {
	for i, buf := range p.buffers {
		buf.Release()
		delete(p.buffers, i)
	}
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
}
