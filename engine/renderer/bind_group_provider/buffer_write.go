package bind_group_provider

import "github.com/cogentcore/webgpu/wgpu"

// BufferWrite describes a single GPU buffer write operation targeting a specific binding
// on a BindGroupProvider at a given byte offset.
// Data may alias a staging buffer owned by the producer; it is valid until the producer's next frame.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}

// QueueWriter is the part of *wgpu.Queue used to upload staged writes.
type QueueWriter interface {
	WriteBuffer(buffer *wgpu.Buffer, bufferOffset uint64, data []byte) error
}

// WriteBuffers submits staged writes to the queue. Writes whose provider has no buffer at the
// target binding are skipped; the first queue error stops the upload.
//
// Parameters:
//   - q: the queue to write to
//   - writes: a slice of BufferWrite structs describing the data to write
//
// Returns:
//   - int: the number of writes submitted
//   - error: the queue error, if any
func WriteBuffers(q QueueWriter, writes []BufferWrite) (int, error) {
	n := 0
	for _, w := range writes {
		buf := w.Provider.Buffer(w.Binding)
		if buf == nil {
			continue
		}
		if err := q.WriteBuffer(buf, w.Offset, w.Data); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
