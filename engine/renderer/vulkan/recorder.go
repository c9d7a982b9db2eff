package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/meshforge/engine/core"
	"github.com/spaghettifunk/meshforge/engine/renderer"
	"github.com/spaghettifunk/meshforge/engine/renderer/metadata"
)

/**
 * @brief Binds the pipeline and drains its queue into cmd, one indexed draw
 * per queued primitive. A nil binder writes uniforms through UniformBinder.
 * Returns the number of draws recorded.
 */
func (b *Backend) Record(cmd *VulkanCommandBuffer, pipeline *renderer.Pipeline, binder DescriptorBinder) (int, error) {
	vp, ok := pipeline.Handle.(*VulkanPipeline)
	if !ok {
		pipeline.Reset()
		return 0, fmt.Errorf("%w: pipeline '%s' has a %T handle", core.ErrInvalidArgument, pipeline.Name, pipeline.Handle)
	}
	if pipeline.Len() == 0 {
		return 0, nil
	}
	if binder == nil {
		binder = UniformBinder{}
	}

	extent := b.context.Extent
	vp.Bind(cmd, vk.PipelineBindPointGraphics)
	vk.CmdSetViewport(cmd.Handle, 0, 1, []vk.Viewport{flippedViewport(extent)})
	vk.CmdSetScissor(cmd.Handle, 0, 1, []vk.Rect2D{fullScissor(extent)})
	vk.CmdSetLineWidth(cmd.Handle, vp.LineWidth)

	var drawn uint32
	err := pipeline.Flush(func(draw metadata.DrawCommand) error {
		vertexBuffer, _, err := bufferHandles(draw.VertexBuffer)
		if err != nil {
			return err
		}
		indexBuffer, _, err := bufferHandles(draw.IndexBuffer)
		if err != nil {
			return err
		}
		if err := binder.BindDraw(cmd, vp, drawn, &draw); err != nil {
			return err
		}
		vk.CmdBindVertexBuffers(cmd.Handle, 0, 1, []vk.Buffer{vertexBuffer}, []vk.DeviceSize{0})
		vk.CmdBindIndexBuffer(cmd.Handle, indexBuffer, 0, vp.IndexType)
		vk.CmdDrawIndexed(cmd.Handle, draw.IndexCount, 1, 0, 0, 0)
		drawn++
		return nil
	})
	if err != nil {
		core.LogError("recording pipeline '%s': %s", pipeline.Name, err)
	}
	return int(drawn), err
}
