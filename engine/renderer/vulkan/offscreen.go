package vulkan

import (
	vk "github.com/goki/vulkan"
)

const offscreenColorFormat = vk.FormatR8g8b8a8Unorm

// OffscreenTarget is a color and depth image pair wrapped in a framebuffer.
// Frames rendered without a surface land here.
type OffscreenTarget struct {
	Color       *VulkanImage
	Depth       *VulkanImage
	Framebuffer *VulkanFramebuffer
}

func NewOffscreenTarget(context *VulkanContext, renderpass *VulkanRenderpass) (*OffscreenTarget, error) {
	width, height := context.Extent.Width, context.Extent.Height
	target := &OffscreenTarget{}

	color, err := ImageCreate(context, width, height, offscreenColorFormat,
		vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit|vk.ImageUsageTransferSrcBit),
		vk.ImageAspectFlags(vk.ImageAspectColorBit))
	if err != nil {
		return nil, err
	}
	target.Color = color

	depth, err := ImageCreate(context, width, height, context.Device.DepthFormat,
		vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		vk.ImageAspectFlags(vk.ImageAspectDepthBit))
	if err != nil {
		target.Destroy(context)
		return nil, err
	}
	target.Depth = depth

	fb, err := FramebufferCreate(context, renderpass, width, height, []vk.ImageView{color.View, depth.View})
	if err != nil {
		target.Destroy(context)
		return nil, err
	}
	target.Framebuffer = fb
	return target, nil
}

func (t *OffscreenTarget) Destroy(context *VulkanContext) {
	if t.Framebuffer != nil {
		t.Framebuffer.Destroy(context)
		t.Framebuffer = nil
	}
	if t.Depth != nil {
		t.Depth.Destroy(context)
		t.Depth = nil
	}
	if t.Color != nil {
		t.Color.Destroy(context)
		t.Color = nil
	}
}
