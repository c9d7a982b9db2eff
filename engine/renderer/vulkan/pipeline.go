package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/meshforge/engine/core"
	"github.com/spaghettifunk/meshforge/engine/renderer/metadata"
)

/**
 * @brief A graphics pipeline with its layout, its descriptor set and the
 * dynamic uniform buffer that holds one uniform block per queued draw.
 */
type VulkanPipeline struct {
	Name string
	/** @brief The internal pipeline handle. */
	Handle vk.Pipeline
	/** @brief The pipeline layout. */
	PipelineLayout      vk.PipelineLayout
	DescriptorSetLayout vk.DescriptorSetLayout
	DescriptorPool      vk.DescriptorPool
	DescriptorSet       vk.DescriptorSet
	/** @brief Host visible buffer with MaxInstances slots of UniformStride bytes. */
	Uniforms      *metadata.RenderBuffer
	UniformStride uint64
	MaxInstances  uint32
	IndexType     vk.IndexType
	LineWidth     float32

	uboSize        uint64
	uniformsMapped unsafe.Pointer
}

type VulkanPipelineConfig struct {
	Name string
	/** @brief The renderpass to associate with the pipeline. */
	Renderpass *VulkanRenderpass
	Binding    vk.VertexInputBindingDescription
	Attributes []vk.VertexInputAttributeDescription
	Stages     []vk.PipelineShaderStageCreateInfo
	/** @brief The initial viewport; viewport and scissor are dynamic. */
	Viewport     vk.Viewport
	Scissor      vk.Rect2D
	CullMode     metadata.FaceCullMode
	IsWireframe  bool
	DepthTest    bool
	DepthWrite   bool
	UBOSize      uint64
	MaxInstances uint32
	IndexType    vk.IndexType
}

// NewGraphicsPipeline allocates the uniform storage and descriptors, then builds the pipeline.
func (b *Backend) NewGraphicsPipeline(config *VulkanPipelineConfig) (*VulkanPipeline, error) {
	if config.MaxInstances == 0 || config.UBOSize == 0 {
		return nil, fmt.Errorf("%w: pipeline '%s' needs instances and a uniform block", core.ErrInvalidArgument, config.Name)
	}
	context := b.context

	outPipeline := &VulkanPipeline{
		Name:         config.Name,
		MaxInstances: config.MaxInstances,
		IndexType:    config.IndexType,
		LineWidth:    1.0,
		uboSize:      config.UBOSize,
	}

	alignment := uint64(context.Device.Properties.Limits.MinUniformBufferOffsetAlignment)
	outPipeline.UniformStride = alignUp(config.UBOSize, alignment)

	uniforms, err := b.CreateBuffer(
		outPipeline.UniformStride*uint64(config.MaxInstances),
		metadata.BufferUsageUniform,
		metadata.MemoryPropertyHostVisible|metadata.MemoryPropertyHostCoherent)
	if err != nil {
		return nil, err
	}
	outPipeline.Uniforms = uniforms

	mapped, err := b.mapBuffer(uniforms)
	if err != nil {
		outPipeline.Destroy(b)
		return nil, err
	}
	outPipeline.uniformsMapped = mapped

	if err := outPipeline.createDescriptors(context); err != nil {
		core.LogError(err.Error())
		outPipeline.Destroy(b)
		return nil, err
	}

	if err := outPipeline.build(context, config); err != nil {
		core.LogError(err.Error())
		outPipeline.Destroy(b)
		return nil, err
	}

	core.LogDebug("graphics pipeline '%s' created", config.Name)
	return outPipeline, nil
}

func (vp *VulkanPipeline) build(context *VulkanContext, config *VulkanPipelineConfig) error {
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports:    []vk.Viewport{config.Viewport},
		ScissorCount:  1,
		PScissors:     []vk.Rect2D{config.Scissor},
	}

	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		CullMode:                cullModeFlags(config.CullMode),
		FrontFace:               vk.FrontFaceCounterClockwise,
		DepthBiasEnable:         vk.False,
	}
	if config.IsWireframe {
		if context.Device.Features.FillModeNonSolid == vk.True {
			rasterizerCreateInfo.PolygonMode = vk.PolygonModeLine
		} else {
			core.LogWarn("pipeline '%s' asks for wireframe but the device cannot draw it", config.Name)
		}
	}

	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:  vk.False,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1.0,
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:             vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:   vk.False,
		DepthWriteEnable:  vk.False,
		DepthCompareOp:    vk.CompareOpLess,
		StencilTestEnable: vk.False,
	}
	if config.DepthTest {
		depthStencil.DepthTestEnable = vk.True
	}
	if config.DepthWrite {
		depthStencil.DepthWriteEnable = vk.True
	}

	colorBlendAttachmentState := vk.PipelineColorBlendAttachmentState{
		BlendEnable:         vk.True,
		SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
		DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorSrcAlpha,
		DstAlphaBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		AlphaBlendOp:        vk.BlendOpAdd,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit |
			vk.ColorComponentBBit | vk.ColorComponentABit),
	}
	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachmentState},
	}

	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
		vk.DynamicStateLineWidth,
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   1,
		PVertexBindingDescriptions:      []vk.VertexInputBindingDescription{config.Binding},
		VertexAttributeDescriptionCount: uint32(len(config.Attributes)),
		PVertexAttributeDescriptions:    config.Attributes,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}

	pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: 1,
		PSetLayouts:    []vk.DescriptorSetLayout{vp.DescriptorSetLayout},
	}

	return context.Locks.SafeCall(PipelineManagement, func() error {
		var layout vk.PipelineLayout
		if err := resultError("vkCreatePipelineLayout", vk.CreatePipelineLayout(context.Device.LogicalDevice, &pipelineLayoutCreateInfo, context.Allocator, &layout)); err != nil {
			return err
		}
		vp.PipelineLayout = layout

		pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
			SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
			StageCount:          uint32(len(config.Stages)),
			PStages:             config.Stages,
			PVertexInputState:   &vertexInputInfo,
			PInputAssemblyState: &inputAssembly,
			PViewportState:      &viewportState,
			PRasterizationState: &rasterizerCreateInfo,
			PMultisampleState:   &multisamplingCreateInfo,
			PDepthStencilState:  &depthStencil,
			PColorBlendState:    &colorBlendStateCreateInfo,
			PDynamicState:       &dynamicStateCreateInfo,
			Layout:              layout,
			RenderPass:          config.Renderpass.Handle,
			Subpass:             0,
			BasePipelineHandle:  vk.NullPipeline,
			BasePipelineIndex:   -1,
		}

		pipelines := make([]vk.Pipeline, 1)
		if err := resultError("vkCreateGraphicsPipelines", vk.CreateGraphicsPipelines(
			context.Device.LogicalDevice,
			vk.NullPipelineCache,
			1,
			[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo},
			context.Allocator,
			pipelines)); err != nil {
			return err
		}
		vp.Handle = pipelines[0]
		return nil
	})
}

// WriteUniform copies ubo into slot index of the uniform buffer and returns the slot's dynamic offset.
func (vp *VulkanPipeline) WriteUniform(index uint32, ubo *metadata.MeshUBO) (uint32, error) {
	if index >= vp.MaxInstances {
		return 0, fmt.Errorf("%w: uniform slot %d of pipeline '%s' (max %d)", core.ErrQueueFull, index, vp.Name, vp.MaxInstances)
	}
	if vp.uniformsMapped == nil {
		return 0, fmt.Errorf("%w: uniforms of pipeline '%s' are not mapped", core.ErrNotInitialized, vp.Name)
	}
	offset := uint64(index) * vp.UniformStride
	data := unsafe.Slice((*byte)(unsafe.Pointer(ubo)), unsafe.Sizeof(*ubo))
	vk.Memcopy(unsafe.Add(vp.uniformsMapped, offset), data[:min(uint64(len(data)), vp.uboSize)])
	return uint32(offset), nil
}

func (vp *VulkanPipeline) Bind(commandBuffer *VulkanCommandBuffer, bindPoint vk.PipelineBindPoint) {
	vk.CmdBindPipeline(commandBuffer.Handle, bindPoint, vp.Handle)
}

// Destroy releases everything the pipeline owns. Safe on a partially built pipeline.
func (vp *VulkanPipeline) Destroy(b *Backend) {
	context := b.context
	_ = context.Locks.SafeCall(PipelineManagement, func() error {
		if vp.Handle != nil {
			vk.DestroyPipeline(context.Device.LogicalDevice, vp.Handle, context.Allocator)
			vp.Handle = nil
		}
		if vp.PipelineLayout != nil {
			vk.DestroyPipelineLayout(context.Device.LogicalDevice, vp.PipelineLayout, context.Allocator)
			vp.PipelineLayout = nil
		}
		return nil
	})
	vp.destroyDescriptors(context)
	if vp.uniformsMapped != nil {
		b.unmapBuffer(vp.Uniforms)
		vp.uniformsMapped = nil
	}
	vp.Uniforms.Destroy()
}
