package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/meshforge/engine/renderer/metadata"
)

func bufferUsageFlags(usage metadata.BufferUsage) vk.BufferUsageFlags {
	var flags vk.BufferUsageFlagBits
	if usage&metadata.BufferUsageTransferSrc != 0 {
		flags |= vk.BufferUsageTransferSrcBit
	}
	if usage&metadata.BufferUsageTransferDst != 0 {
		flags |= vk.BufferUsageTransferDstBit
	}
	if usage&metadata.BufferUsageVertex != 0 {
		flags |= vk.BufferUsageVertexBufferBit
	}
	if usage&metadata.BufferUsageIndex != 0 {
		flags |= vk.BufferUsageIndexBufferBit
	}
	if usage&metadata.BufferUsageUniform != 0 {
		flags |= vk.BufferUsageUniformBufferBit
	}
	return vk.BufferUsageFlags(flags)
}

func memoryPropertyFlags(props metadata.MemoryProperty) vk.MemoryPropertyFlags {
	var flags vk.MemoryPropertyFlagBits
	if props&metadata.MemoryPropertyDeviceLocal != 0 {
		flags |= vk.MemoryPropertyDeviceLocalBit
	}
	if props&metadata.MemoryPropertyHostVisible != 0 {
		flags |= vk.MemoryPropertyHostVisibleBit
	}
	if props&metadata.MemoryPropertyHostCoherent != 0 {
		flags |= vk.MemoryPropertyHostCoherentBit
	}
	return vk.MemoryPropertyFlags(flags)
}

func vertexFormat(format metadata.VertexFormat) vk.Format {
	switch format {
	case metadata.VertexFormatR32G32Sfloat:
		return vk.FormatR32g32Sfloat
	case metadata.VertexFormatR32G32B32Sfloat:
		return vk.FormatR32g32b32Sfloat
	case metadata.VertexFormatR32G32B32A32Sfloat:
		return vk.FormatR32g32b32a32Sfloat
	default:
		return vk.FormatUndefined
	}
}

func vertexInputRate(rate metadata.VertexInputRate) vk.VertexInputRate {
	if rate == metadata.VertexInputRatePerInstance {
		return vk.VertexInputRateInstance
	}
	return vk.VertexInputRateVertex
}

func toIndexType(t metadata.IndexType) vk.IndexType {
	if t == metadata.IndexTypeUint32 {
		return vk.IndexTypeUint32
	}
	return vk.IndexTypeUint16
}

func cullModeFlags(mode metadata.FaceCullMode) vk.CullModeFlags {
	switch mode {
	case metadata.FaceCullModeNone:
		return vk.CullModeFlags(vk.CullModeNone)
	case metadata.FaceCullModeFront:
		return vk.CullModeFlags(vk.CullModeFrontBit)
	case metadata.FaceCullModeFrontAndBack:
		return vk.CullModeFlags(vk.CullModeFrontAndBack)
	default:
		return vk.CullModeFlags(vk.CullModeBackBit)
	}
}

func vertexInputDescriptions(binding metadata.VertexInputBinding, attributes []metadata.VertexInputAttribute) (vk.VertexInputBindingDescription, []vk.VertexInputAttributeDescription) {
	bindingDescription := vk.VertexInputBindingDescription{
		Binding:   binding.Binding,
		Stride:    binding.Stride,
		InputRate: vertexInputRate(binding.InputRate),
	}
	attributeDescriptions := make([]vk.VertexInputAttributeDescription, len(attributes))
	for i, a := range attributes {
		attributeDescriptions[i] = vk.VertexInputAttributeDescription{
			Binding:  a.Binding,
			Location: a.Location,
			Format:   vertexFormat(a.Format),
			Offset:   a.Offset,
		}
	}
	return bindingDescription, attributeDescriptions
}
