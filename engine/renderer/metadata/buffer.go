package metadata

/** @brief How a buffer is going to be used by the device. Values can be combined. */
type BufferUsage uint32

const (
	BufferUsageTransferSrc BufferUsage = 1 << iota
	BufferUsageTransferDst
	BufferUsageVertex
	BufferUsageIndex
	BufferUsageUniform
)

/** @brief Where the memory backing a buffer lives. Values can be combined. */
type MemoryProperty uint32

const (
	MemoryPropertyDeviceLocal MemoryProperty = 1 << iota
	MemoryPropertyHostVisible
	MemoryPropertyHostCoherent
)

// BufferReleaser frees the backend handles held by a RenderBuffer.
type BufferReleaser interface {
	DestroyBuffer(buffer *RenderBuffer)
}

/**
 * @brief A device buffer together with the memory bound to it.
 * Both handles are released at once by Destroy.
 */
type RenderBuffer struct {
	/** @brief The backend buffer handle. */
	Handle interface{}
	/** @brief The backend memory handle bound to Handle. */
	Memory interface{}
	/** @brief The total size of the buffer in bytes. */
	Size       uint64
	Usage      BufferUsage
	Properties MemoryProperty

	releaser  BufferReleaser
	destroyed bool
}

func NewRenderBuffer(handle, memory interface{}, size uint64, usage BufferUsage, props MemoryProperty, releaser BufferReleaser) *RenderBuffer {
	return &RenderBuffer{
		Handle:     handle,
		Memory:     memory,
		Size:       size,
		Usage:      usage,
		Properties: props,
		releaser:   releaser,
	}
}

// Destroy releases the buffer and its memory. Safe on nil and on repeated calls.
func (b *RenderBuffer) Destroy() {
	if b == nil || b.destroyed {
		return
	}
	b.destroyed = true
	if b.releaser != nil {
		b.releaser.DestroyBuffer(b)
	}
	b.Handle = nil
	b.Memory = nil
}

func (b *RenderBuffer) IsDestroyed() bool {
	return b == nil || b.destroyed
}

func (b *RenderBuffer) IsDeviceLocal() bool {
	return b != nil && b.Properties&MemoryPropertyDeviceLocal != 0
}
