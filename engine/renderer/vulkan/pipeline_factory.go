package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/meshforge/engine/core"
	"github.com/spaghettifunk/meshforge/engine/renderer/metadata"
)

/**
 * @brief Reads the pipeline config at configPath, loads both shader modules
 * and builds a pipeline that can hold maxInstances draws per frame.
 * The returned handle is a *VulkanPipeline.
 */
func (b *Backend) CreatePipelineFromConfig(
	configPath string,
	extent metadata.Extent2D,
	maxInstances uint32,
	binding metadata.VertexInputBinding,
	attributes []metadata.VertexInputAttribute,
	uboSize uint64,
	indexType metadata.IndexType,
) (metadata.PipelineHandle, error) {
	config, err := b.pipelineConfigs.Load(configPath)
	if err != nil {
		return nil, err
	}

	vertex, err := b.loadStage(config.VertexShader, vk.ShaderStageVertexBit)
	if err != nil {
		return nil, err
	}
	defer vertex.Destroy(b.context)

	fragment, err := b.loadStage(config.FragmentShader, vk.ShaderStageFragmentBit)
	if err != nil {
		return nil, err
	}
	defer fragment.Destroy(b.context)

	bindingDescription, attributeDescriptions := vertexInputDescriptions(binding, attributes)
	pipeline, err := b.NewGraphicsPipeline(&VulkanPipelineConfig{
		Name:         config.Name,
		Renderpass:   b.renderpass,
		Binding:      bindingDescription,
		Attributes:   attributeDescriptions,
		Stages:       []vk.PipelineShaderStageCreateInfo{vertex.ShaderStageCreateInfo, fragment.ShaderStageCreateInfo},
		Viewport:     flippedViewport(extent),
		Scissor:      fullScissor(extent),
		CullMode:     config.CullMode,
		IsWireframe:  config.Wireframe,
		DepthTest:    config.DepthTest,
		DepthWrite:   config.DepthWrite,
		UBOSize:      uboSize,
		MaxInstances: maxInstances,
		IndexType:    toIndexType(indexType),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: pipeline '%s': %w", core.ErrLoadFailed, config.Name, err)
	}

	b.pipelines[pipeline] = struct{}{}
	core.LogInfo("pipeline '%s' created from %s", config.Name, configPath)
	return pipeline, nil
}

// DestroyPipeline waits for the device to go idle and releases the pipeline. Unknown handles are ignored.
func (b *Backend) DestroyPipeline(handle metadata.PipelineHandle) {
	pipeline, ok := handle.(*VulkanPipeline)
	if !ok {
		return
	}
	if _, owned := b.pipelines[pipeline]; !owned {
		return
	}
	vk.DeviceWaitIdle(b.context.Device.LogicalDevice)
	pipeline.Destroy(b)
	delete(b.pipelines, pipeline)
}

func (b *Backend) loadStage(path string, stage vk.ShaderStageFlagBits) (*VulkanShaderStage, error) {
	code, err := b.shaders.Load(path)
	if err != nil {
		err = fmt.Errorf("%w: %w", core.ErrLoadFailed, err)
		core.LogError(err.Error())
		return nil, err
	}
	return NewShaderStage(b.context, code, stage)
}

// flippedViewport maps +Y up by starting at the bottom edge with a negative height.
func flippedViewport(extent metadata.Extent2D) vk.Viewport {
	return vk.Viewport{
		X:        0,
		Y:        float32(extent.Height),
		Width:    float32(extent.Width),
		Height:   -float32(extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}
}

func fullScissor(extent metadata.Extent2D) vk.Rect2D {
	return vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: vk.Extent2D{Width: extent.Width, Height: extent.Height},
	}
}
