package systems

import (
	"fmt"

	"github.com/spaghettifunk/meshforge/engine/core"
	"github.com/spaghettifunk/meshforge/engine/math"
	"github.com/spaghettifunk/meshforge/engine/renderer"
	"github.com/spaghettifunk/meshforge/engine/renderer/metadata"
)

/**
 * @brief Queues one draw per primitive of mesh on pipeline, in primitive order.
 * Nothing is queued when an argument is missing or the queue cannot take
 * every primitive.
 */
func (ms *MeshSystem) QueueRender(mesh *metadata.Mesh, pipeline *renderer.Pipeline, ubo *metadata.MeshUBO, texture *metadata.Texture) error {
	if mesh == nil {
		return rejectSubmission("no mesh provided for render")
	}
	if pipeline == nil {
		return rejectSubmission("no pipeline provided for render")
	}
	if ubo == nil {
		return rejectSubmission("no ubo data provided for render")
	}
	if pipeline.Free() < len(mesh.Primitives) {
		err := fmt.Errorf("%w: mesh %d needs %d draws, pipeline '%s' has room for %d", core.ErrQueueFull, mesh.ID, len(mesh.Primitives), pipeline.Name, pipeline.Free())
		core.LogWarn(err.Error())
		return err
	}

	for _, primitive := range mesh.Primitives {
		cmd := metadata.DrawCommand{
			VertexBuffer: primitive.VertexBuffer,
			IndexBuffer:  primitive.IndexBuffer,
			IndexCount:   primitive.IndexCount(),
			Uniform:      *ubo,
			Texture:      texture,
		}
		if err := pipeline.Enqueue(cmd); err != nil {
			core.LogError(err.Error())
			return err
		}
	}
	return nil
}

func rejectSubmission(msg string) error {
	err := fmt.Errorf("%w: %s", core.ErrInvalidArgument, msg)
	core.LogError(err.Error())
	return err
}

// BuildUniformPayload fills a MeshUBO from the current view, projection and camera.
func (ms *MeshSystem) BuildUniformPayload(model math.Mat4, color math.Vec4) metadata.MeshUBO {
	ubo := metadata.MeshUBO{
		Model:      model,
		View:       math.NewMat4Identity(),
		Projection: math.NewMat4Identity(),
		Color:      color,
	}
	if ms.viewProj != nil {
		ubo.View = ms.viewProj.View()
		ubo.Projection = ms.viewProj.Projection()
	}
	if ms.camera != nil {
		pos := ms.camera.Position2D()
		ubo.CameraPosition = math.NewVec4(pos.X, pos.Y, 0, 0)
	}
	return ubo
}

// Draw queues mesh on the standard pipeline with a freshly built uniform payload.
func (ms *MeshSystem) Draw(mesh *metadata.Mesh, model math.Mat4, color math.Vec4, texture *metadata.Texture) error {
	ubo := ms.BuildUniformPayload(model, color)
	return ms.QueueRender(mesh, ms.standardPipeline, &ubo, texture)
}

// DrawSky queues mesh on the sky pipeline.
func (ms *MeshSystem) DrawSky(mesh *metadata.Mesh, model math.Mat4, color math.Vec4, texture *metadata.Texture) error {
	ubo := ms.BuildUniformPayload(model, color)
	return ms.QueueRender(mesh, ms.skyPipeline, &ubo, texture)
}

// ResetPipelines drops everything queued on both pipelines, typically at the start of a frame.
func (ms *MeshSystem) ResetPipelines() {
	for _, p := range []*renderer.Pipeline{ms.skyPipeline, ms.standardPipeline} {
		if p != nil {
			p.Reset()
		}
	}
}
