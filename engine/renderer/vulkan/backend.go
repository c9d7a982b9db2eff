package vulkan

import (
	"fmt"
	"math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/meshforge/engine/assets/loaders"
	"github.com/spaghettifunk/meshforge/engine/core"
	"github.com/spaghettifunk/meshforge/engine/renderer"
	"github.com/spaghettifunk/meshforge/engine/renderer/metadata"
)

var (
	_ renderer.Device          = (*Backend)(nil)
	_ renderer.PipelineFactory = (*Backend)(nil)
)

/**
 * @brief The Vulkan implementation of the renderer device and pipeline
 * factory. Frames are rendered into an offscreen target; presenting them is
 * left to whoever owns a window.
 */
type Backend struct {
	context       *VulkanContext
	renderpass    *VulkanRenderpass
	target        *OffscreenTarget
	commandBuffer *VulkanCommandBuffer
	inFlight      *VulkanFence

	shaders         loaders.ShaderLoader
	pipelineConfigs loaders.PipelineConfigLoader
	pipelines       map[*VulkanPipeline]struct{}

	// Binder overrides the per-draw descriptor binding. Nil uses UniformBinder.
	Binder      DescriptorBinder
	FrameNumber uint64
}

func New(config *ContextConfig) (*Backend, error) {
	context, err := NewContext(config)
	if err != nil {
		return nil, err
	}
	b := &Backend{
		context:   context,
		pipelines: make(map[*VulkanPipeline]struct{}),
	}

	rp, err := RenderpassCreate(context, &RenderpassConfig{
		ColorFormat: offscreenColorFormat,
		FinalLayout: vk.ImageLayoutTransferSrcOptimal,
		Area:        fullScissor(context.Extent),
		ClearColor:  [4]float32{0.0, 0.0, 0.2, 1.0},
		Depth:       1.0,
	})
	if err != nil {
		b.Shutdown()
		return nil, err
	}
	b.renderpass = rp

	if b.target, err = NewOffscreenTarget(context, rp); err != nil {
		b.Shutdown()
		return nil, err
	}
	if b.commandBuffer, err = NewVulkanCommandBuffer(context, context.Device.GraphicsCommandPool, true); err != nil {
		b.Shutdown()
		return nil, err
	}
	// Signaled so the first frame does not wait on a submission that never happened.
	if b.inFlight, err = NewFence(context, true); err != nil {
		b.Shutdown()
		return nil, err
	}

	core.LogInfo("Vulkan backend initialized (%dx%d offscreen).", context.Extent.Width, context.Extent.Height)
	return b, nil
}

func (b *Backend) Context() *VulkanContext {
	return b.context
}

func (b *Backend) Renderpass() *VulkanRenderpass {
	return b.renderpass
}

func (b *Backend) ViewExtent() metadata.Extent2D {
	return b.context.Extent
}

/**
 * @brief Waits for the previous frame, records every pipeline in order inside
 * one render pass and submits the result. Every pipeline queue is empty
 * afterwards, including when recording fails.
 */
func (b *Backend) RecordFrame(pipelines []*renderer.Pipeline) error {
	defer func() {
		for _, p := range pipelines {
			if p != nil {
				p.Reset()
			}
		}
	}()

	if b.inFlight == nil {
		return fmt.Errorf("%w: vulkan backend is shut down", core.ErrNotInitialized)
	}
	if err := b.inFlight.Wait(b.context, math.MaxUint64); err != nil {
		return err
	}

	cmd := b.commandBuffer
	if err := cmd.Reset(); err != nil {
		return err
	}
	if err := cmd.Begin(true, false, false); err != nil {
		return err
	}

	b.renderpass.Begin(cmd, b.target.Framebuffer.Handle)
	draws := 0
	var recordErr error
	for _, p := range pipelines {
		if p == nil {
			continue
		}
		n, err := b.Record(cmd, p, b.Binder)
		draws += n
		if err != nil {
			recordErr = err
			break
		}
	}
	b.renderpass.End(cmd)

	if err := cmd.End(); err != nil {
		return err
	}
	if recordErr != nil {
		return recordErr
	}

	if err := b.inFlight.Reset(b.context); err != nil {
		return err
	}
	dev := b.context.Device
	if err := cmd.Submit(b.context, dev.GraphicsQueue, dev.GraphicsQueueIndex, b.inFlight); err != nil {
		// Nothing was queued, so the reset fence would never signal again.
		_ = b.recreateFence()
		return err
	}

	b.FrameNumber++
	core.LogDebug("frame %d submitted with %d draws", b.FrameNumber, draws)
	return nil
}

func (b *Backend) recreateFence() error {
	b.inFlight.Destroy(b.context)
	f, err := NewFence(b.context, true)
	if err != nil {
		return err
	}
	b.inFlight = f
	return nil
}

// Shutdown waits for the device and releases everything the backend created, pipelines included.
func (b *Backend) Shutdown() {
	if b.context == nil {
		return
	}
	if b.context.Device.LogicalDevice != nil {
		vk.DeviceWaitIdle(b.context.Device.LogicalDevice)
	}

	for p := range b.pipelines {
		p.Destroy(b)
		delete(b.pipelines, p)
	}
	if b.inFlight != nil {
		b.inFlight.Destroy(b.context)
		b.inFlight = nil
	}
	if b.commandBuffer != nil {
		b.commandBuffer.Free(b.context, b.context.Device.GraphicsCommandPool)
		b.commandBuffer = nil
	}
	if b.target != nil {
		b.target.Destroy(b.context)
		b.target = nil
	}
	if b.renderpass != nil {
		b.renderpass.Destroy(b.context)
		b.renderpass = nil
	}
	b.context.Destroy()
	b.context = nil
	core.LogInfo("Vulkan backend shut down.")
}
