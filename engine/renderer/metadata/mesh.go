package metadata

import (
	"github.com/google/uuid"
	"github.com/spaghettifunk/meshforge/engine/math"
)

/**
 * @brief One drawable chunk of a mesh: a device-local vertex buffer,
 * a device-local index buffer and the raw geometry they were built from.
 */
type MeshPrimitive struct {
	VertexBuffer *RenderBuffer
	IndexBuffer  *RenderBuffer
	/** @brief The number of vertices in VertexBuffer. */
	VertexCount uint32
	/** @brief The number of triangles in IndexBuffer. */
	FaceCount uint32
	/** @brief The raw geometry, kept for re-uploads. */
	Geometry *GeometryConfig
}

// IndexCount is the number of indices drawn for the primitive.
func (p *MeshPrimitive) IndexCount() uint32 {
	return p.FaceCount * 3
}

// Destroy releases both buffers and the raw geometry. Safe on partially built primitives.
func (p *MeshPrimitive) Destroy() {
	if p == nil {
		return
	}
	p.VertexBuffer.Destroy()
	p.IndexBuffer.Destroy()
	p.VertexBuffer = nil
	p.IndexBuffer = nil
	p.Geometry.Dispose()
	p.Geometry = nil
	p.VertexCount = 0
	p.FaceCount = 0
}

/**
 * @brief A slot in the mesh pool. ID is the slot index and never changes;
 * UniqueID changes on every acquisition of the slot.
 */
type Mesh struct {
	ID             uint32
	UniqueID       uuid.UUID
	InUse          bool
	ReferenceCount uint32
	/** @brief The source file; the de-duplication key. Empty for generated meshes. */
	Filename string
	Extents  math.Extents3D
	/** @brief Owned primitives in draw order. */
	Primitives []*MeshPrimitive
}

/** @brief Per-draw uniform data consumed by the mesh shaders. */
type MeshUBO struct {
	Model      math.Mat4
	View       math.Mat4
	Projection math.Mat4
	Color      math.Vec4
	/** @brief x and y hold the camera position, z and w are padding. */
	CameraPosition math.Vec4
}
