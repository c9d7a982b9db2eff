package renderer

import "github.com/spaghettifunk/meshforge/engine/renderer/metadata"

// Device is the slice of the graphics device the mesh system needs:
// buffer creation, host writes, device-side copies and the viewport size.
type Device interface {
	// CreateBuffer creates a buffer and binds freshly allocated memory with the given properties.
	CreateBuffer(size uint64, usage metadata.BufferUsage, props metadata.MemoryProperty) (*metadata.RenderBuffer, error)
	// WriteBuffer copies data into a host-visible buffer starting at offset 0.
	WriteBuffer(buffer *metadata.RenderBuffer, data []byte) error
	// CopyBuffer records and submits a copy of size bytes from src to dst.
	CopyBuffer(src, dst *metadata.RenderBuffer, size uint64) error
	// DestroyBuffer releases the buffer and its memory. Called through RenderBuffer.Destroy.
	DestroyBuffer(buffer *metadata.RenderBuffer)
	ViewExtent() metadata.Extent2D
}

// PipelineFactory builds graphics pipelines from config files.
type PipelineFactory interface {
	CreatePipelineFromConfig(
		configPath string,
		extent metadata.Extent2D,
		maxInstances uint32,
		binding metadata.VertexInputBinding,
		attributes []metadata.VertexInputAttribute,
		uboSize uint64,
		indexType metadata.IndexType,
	) (metadata.PipelineHandle, error)
	DestroyPipeline(handle metadata.PipelineHandle)
}
