package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/meshforge/engine/core"
)

type VulkanImage struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	Width  uint32
	Height uint32
}

// ImageCreate creates a device-local 2D image with a view over aspect.
func ImageCreate(context *VulkanContext, width, height uint32, format vk.Format, usage vk.ImageUsageFlags, aspect vk.ImageAspectFlags) (*VulkanImage, error) {
	device := context.Device.LogicalDevice
	outImage := &VulkanImage{Width: width, Height: height}

	imageInfo := vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     vk.ImageType2d,
		Format:        format,
		Extent:        vk.Extent3D{Width: width, Height: height, Depth: 1},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         usage,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}

	err := context.Locks.SafeCall(ImageManagement, func() error {
		var image vk.Image
		if err := resultError("vkCreateImage", vk.CreateImage(device, &imageInfo, context.Allocator, &image)); err != nil {
			return err
		}
		outImage.Handle = image

		var requirements vk.MemoryRequirements
		vk.GetImageMemoryRequirements(device, image, &requirements)
		requirements.Deref()

		memoryIndex, err := context.FindMemoryIndex(requirements.MemoryTypeBits, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
		if err != nil {
			return err
		}
		allocInfo := vk.MemoryAllocateInfo{
			SType:           vk.StructureTypeMemoryAllocateInfo,
			AllocationSize:  requirements.Size,
			MemoryTypeIndex: memoryIndex,
		}
		var memory vk.DeviceMemory
		if err := resultError("vkAllocateMemory", vk.AllocateMemory(device, &allocInfo, context.Allocator, &memory)); err != nil {
			return err
		}
		outImage.Memory = memory
		if err := resultError("vkBindImageMemory", vk.BindImageMemory(device, image, memory, 0)); err != nil {
			return err
		}

		viewInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    image,
			ViewType: vk.ImageViewType2d,
			Format:   format,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: aspect,
				LevelCount: 1,
				LayerCount: 1,
			},
		}
		var view vk.ImageView
		if err := resultError("vkCreateImageView", vk.CreateImageView(device, &viewInfo, context.Allocator, &view)); err != nil {
			return err
		}
		outImage.View = view
		return nil
	})
	if err != nil {
		core.LogError("creating %dx%d image: %s", width, height, err)
		outImage.Destroy(context)
		return nil, err
	}
	return outImage, nil
}

func (vi *VulkanImage) Destroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	_ = context.Locks.SafeCall(ImageManagement, func() error {
		if vi.View != nil {
			vk.DestroyImageView(device, vi.View, context.Allocator)
			vi.View = nil
		}
		if vi.Memory != nil {
			vk.FreeMemory(device, vi.Memory, context.Allocator)
			vi.Memory = nil
		}
		if vi.Handle != nil {
			vk.DestroyImage(device, vi.Handle, context.Allocator)
			vi.Handle = nil
		}
		return nil
	})
}
