package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/meshforge/engine/core"
	"github.com/spaghettifunk/meshforge/engine/renderer/metadata"
)

func bufferHandles(buffer *metadata.RenderBuffer) (vk.Buffer, vk.DeviceMemory, error) {
	if buffer.IsDestroyed() {
		return nil, nil, fmt.Errorf("%w: buffer is destroyed", core.ErrInvalidArgument)
	}
	handle, ok := buffer.Handle.(vk.Buffer)
	if !ok {
		return nil, nil, fmt.Errorf("%w: buffer handle is %T, not a vulkan buffer", core.ErrInvalidArgument, buffer.Handle)
	}
	memory, ok := buffer.Memory.(vk.DeviceMemory)
	if !ok {
		return nil, nil, fmt.Errorf("%w: buffer memory is %T, not vulkan device memory", core.ErrInvalidArgument, buffer.Memory)
	}
	return handle, memory, nil
}

/**
 * @brief Creates a buffer of size bytes and binds a fresh allocation from the
 * first memory type with every requested property.
 */
func (b *Backend) CreateBuffer(size uint64, usage metadata.BufferUsage, props metadata.MemoryProperty) (*metadata.RenderBuffer, error) {
	if size == 0 {
		return nil, fmt.Errorf("%w: zero-sized buffer", core.ErrInvalidArgument)
	}
	device := b.context.Device.LogicalDevice

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       bufferUsageFlags(usage),
		SharingMode: vk.SharingModeExclusive,
	}

	var handle vk.Buffer
	var memory vk.DeviceMemory
	err := b.context.Locks.SafeCall(BufferManagement, func() error {
		if err := resultError("vkCreateBuffer", vk.CreateBuffer(device, &bufferInfo, b.context.Allocator, &handle)); err != nil {
			return err
		}

		var requirements vk.MemoryRequirements
		vk.GetBufferMemoryRequirements(device, handle, &requirements)
		requirements.Deref()

		memoryIndex, err := b.context.FindMemoryIndex(requirements.MemoryTypeBits, memoryPropertyFlags(props))
		if err != nil {
			vk.DestroyBuffer(device, handle, b.context.Allocator)
			return err
		}

		allocateInfo := vk.MemoryAllocateInfo{
			SType:           vk.StructureTypeMemoryAllocateInfo,
			AllocationSize:  requirements.Size,
			MemoryTypeIndex: memoryIndex,
		}
		if err := resultError("vkAllocateMemory", vk.AllocateMemory(device, &allocateInfo, b.context.Allocator, &memory)); err != nil {
			vk.DestroyBuffer(device, handle, b.context.Allocator)
			return err
		}
		if err := resultError("vkBindBufferMemory", vk.BindBufferMemory(device, handle, memory, 0)); err != nil {
			vk.FreeMemory(device, memory, b.context.Allocator)
			vk.DestroyBuffer(device, handle, b.context.Allocator)
			return err
		}
		return nil
	})
	if err != nil {
		core.LogError("creating a %d byte buffer: %s", size, err)
		return nil, err
	}
	return metadata.NewRenderBuffer(handle, memory, size, usage, props, b), nil
}

// WriteBuffer maps the buffer, copies data to its start and unmaps it again.
func (b *Backend) WriteBuffer(buffer *metadata.RenderBuffer, data []byte) error {
	if uint64(len(data)) > buffer.Size {
		return fmt.Errorf("%w: writing %d bytes into a %d byte buffer", core.ErrInvalidArgument, len(data), buffer.Size)
	}
	if buffer.Properties&metadata.MemoryPropertyHostVisible == 0 {
		return fmt.Errorf("%w: buffer is not host visible", core.ErrInvalidArgument)
	}
	if len(data) == 0 {
		return nil
	}
	_, memory, err := bufferHandles(buffer)
	if err != nil {
		return err
	}

	device := b.context.Device.LogicalDevice
	return b.context.Locks.SafeCall(BufferManagement, func() error {
		var pData unsafe.Pointer
		if err := resultError("vkMapMemory", vk.MapMemory(device, memory, 0, vk.DeviceSize(len(data)), 0, &pData)); err != nil {
			return err
		}
		vk.Memcopy(pData, data)
		vk.UnmapMemory(device, memory)
		return nil
	})
}

// CopyBuffer records a copy on a single-use command buffer and waits until the graphics queue retires it.
// The graphics queue is used so the destination never changes queue family ownership.
func (b *Backend) CopyBuffer(src, dst *metadata.RenderBuffer, size uint64) error {
	if size > src.Size || size > dst.Size {
		return fmt.Errorf("%w: copying %d bytes between buffers of %d and %d bytes", core.ErrInvalidArgument, size, src.Size, dst.Size)
	}
	srcHandle, _, err := bufferHandles(src)
	if err != nil {
		return err
	}
	dstHandle, _, err := bufferHandles(dst)
	if err != nil {
		return err
	}

	dev := b.context.Device
	pool := dev.GraphicsCommandPool
	cb, err := AllocateAndBeginSingleUse(b.context, pool)
	if err != nil {
		return err
	}
	vk.CmdCopyBuffer(cb.Handle, srcHandle, dstHandle, 1, []vk.BufferCopy{{
		SrcOffset: 0,
		DstOffset: 0,
		Size:      vk.DeviceSize(size),
	}})
	return cb.EndSingleUse(b.context, pool, dev.GraphicsQueue, dev.GraphicsQueueIndex)
}

// DestroyBuffer frees the buffer and its memory. Reached through RenderBuffer.Destroy.
func (b *Backend) DestroyBuffer(buffer *metadata.RenderBuffer) {
	handle, _ := buffer.Handle.(vk.Buffer)
	memory, _ := buffer.Memory.(vk.DeviceMemory)
	device := b.context.Device.LogicalDevice
	_ = b.context.Locks.SafeCall(BufferManagement, func() error {
		if memory != nil {
			vk.FreeMemory(device, memory, b.context.Allocator)
		}
		if handle != nil {
			vk.DestroyBuffer(device, handle, b.context.Allocator)
		}
		return nil
	})
}

// mapBuffer maps the whole buffer and leaves it mapped. Used for uniform buffers
// that are rewritten every draw.
func (b *Backend) mapBuffer(buffer *metadata.RenderBuffer) (unsafe.Pointer, error) {
	_, memory, err := bufferHandles(buffer)
	if err != nil {
		return nil, err
	}
	var pData unsafe.Pointer
	err = b.context.Locks.SafeCall(BufferManagement, func() error {
		return resultError("vkMapMemory", vk.MapMemory(b.context.Device.LogicalDevice, memory, 0, vk.DeviceSize(buffer.Size), 0, &pData))
	})
	return pData, err
}

func (b *Backend) unmapBuffer(buffer *metadata.RenderBuffer) {
	_, memory, err := bufferHandles(buffer)
	if err != nil {
		return
	}
	_ = b.context.Locks.SafeCall(BufferManagement, func() error {
		vk.UnmapMemory(b.context.Device.LogicalDevice, memory)
		return nil
	})
}

// alignUp rounds size up to a multiple of alignment, which must be a power of two or zero.
func alignUp(size, alignment uint64) uint64 {
	if alignment == 0 {
		return size
	}
	return (size + alignment - 1) &^ (alignment - 1)
}
