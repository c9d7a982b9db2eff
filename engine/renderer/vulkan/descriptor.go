package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/meshforge/engine/core"
	"github.com/spaghettifunk/meshforge/engine/renderer/metadata"
)

// DescriptorBinder binds the per-draw resources of a queued draw before it is recorded.
// index is the position of the draw in the current flush of pipeline.
type DescriptorBinder interface {
	BindDraw(cmd *VulkanCommandBuffer, pipeline *VulkanPipeline, index uint32, draw *metadata.DrawCommand) error
}

// UniformBinder writes the draw's uniform block into the pipeline's dynamic
// uniform buffer and binds set 0 at the matching offset. Textures are not bound.
type UniformBinder struct{}

func (UniformBinder) BindDraw(cmd *VulkanCommandBuffer, pipeline *VulkanPipeline, index uint32, draw *metadata.DrawCommand) error {
	offset, err := pipeline.WriteUniform(index, &draw.Uniform)
	if err != nil {
		return err
	}
	vk.CmdBindDescriptorSets(
		cmd.Handle,
		vk.PipelineBindPointGraphics,
		pipeline.PipelineLayout,
		0, 1, []vk.DescriptorSet{pipeline.DescriptorSet},
		1, []uint32{offset})
	return nil
}

/**
 * @brief Creates the set layout, a pool holding exactly one set and the set
 * itself, pointing binding 0 at the pipeline's uniform buffer.
 * The binding is a dynamic uniform buffer visible to both stages.
 */
func (vp *VulkanPipeline) createDescriptors(context *VulkanContext) error {
	device := context.Device.LogicalDevice

	uboLayoutBinding := vk.DescriptorSetLayoutBinding{
		Binding:         0,
		DescriptorType:  vk.DescriptorTypeUniformBufferDynamic,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit | vk.ShaderStageFragmentBit),
	}
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: 1,
		PBindings:    []vk.DescriptorSetLayoutBinding{uboLayoutBinding},
	}

	return context.Locks.SafeCall(DescriptorManagement, func() error {
		var layout vk.DescriptorSetLayout
		if err := resultError("vkCreateDescriptorSetLayout", vk.CreateDescriptorSetLayout(device, &layoutInfo, context.Allocator, &layout)); err != nil {
			return err
		}
		vp.DescriptorSetLayout = layout

		poolInfo := vk.DescriptorPoolCreateInfo{
			SType:         vk.StructureTypeDescriptorPoolCreateInfo,
			MaxSets:       1,
			PoolSizeCount: 1,
			PPoolSizes: []vk.DescriptorPoolSize{{
				Type:            vk.DescriptorTypeUniformBufferDynamic,
				DescriptorCount: 1,
			}},
		}
		var pool vk.DescriptorPool
		if err := resultError("vkCreateDescriptorPool", vk.CreateDescriptorPool(device, &poolInfo, context.Allocator, &pool)); err != nil {
			return err
		}
		vp.DescriptorPool = pool

		allocInfo := vk.DescriptorSetAllocateInfo{
			SType:              vk.StructureTypeDescriptorSetAllocateInfo,
			DescriptorPool:     pool,
			DescriptorSetCount: 1,
			PSetLayouts:        []vk.DescriptorSetLayout{layout},
		}
		var set vk.DescriptorSet
		if err := resultError("vkAllocateDescriptorSets", vk.AllocateDescriptorSets(device, &allocInfo, &set)); err != nil {
			return err
		}
		vp.DescriptorSet = set

		uniforms, _, err := bufferHandles(vp.Uniforms)
		if err != nil {
			return err
		}
		write := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      0,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeUniformBufferDynamic,
			PBufferInfo: []vk.DescriptorBufferInfo{{
				Buffer: uniforms,
				Offset: 0,
				Range:  vk.DeviceSize(vp.uboSize),
			}},
		}
		vk.UpdateDescriptorSets(device, 1, []vk.WriteDescriptorSet{write}, 0, nil)
		core.LogDebug("descriptor set for pipeline '%s' created", vp.Name)
		return nil
	})
}

func (vp *VulkanPipeline) destroyDescriptors(context *VulkanContext) {
	device := context.Device.LogicalDevice
	_ = context.Locks.SafeCall(DescriptorManagement, func() error {
		// Destroying the pool frees the set.
		if vp.DescriptorPool != nil {
			vk.DestroyDescriptorPool(device, vp.DescriptorPool, context.Allocator)
			vp.DescriptorPool = nil
			vp.DescriptorSet = nil
		}
		if vp.DescriptorSetLayout != nil {
			vk.DestroyDescriptorSetLayout(device, vp.DescriptorSetLayout, context.Allocator)
			vp.DescriptorSetLayout = nil
		}
		return nil
	})
}
