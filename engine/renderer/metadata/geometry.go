package metadata

import (
	"github.com/spaghettifunk/meshforge/engine/math"
)

/**
 * @brief Raw geometry as produced by a loader or a generator.
 * The arrays are uploaded as-is by the primitive uploader.
 */
type GeometryConfig struct {
	/** @brief The Name of the geometry. */
	Name string
	/** @brief An array of Vertices. */
	Vertices []math.Vertex3D
	/** @brief An array of triangle Faces indexing into Vertices. */
	Faces []math.Face
	/** @brief The bounding box in local coordinates. */
	Extents math.Extents3D
	/** @brief The center of the geometry in local coordinates. */
	Center math.Vec3
}

func (g *GeometryConfig) VertexCount() uint32 {
	if g == nil {
		return 0
	}
	return uint32(len(g.Vertices))
}

func (g *GeometryConfig) FaceCount() uint32 {
	if g == nil {
		return 0
	}
	return uint32(len(g.Faces))
}

// Clone returns a deep copy that shares no arrays with g.
func (g *GeometryConfig) Clone() *GeometryConfig {
	if g == nil {
		return nil
	}
	c := *g
	c.Vertices = append([]math.Vertex3D(nil), g.Vertices...)
	c.Faces = append([]math.Face(nil), g.Faces...)
	return &c
}

// Dispose drops the raw arrays.
func (g *GeometryConfig) Dispose() {
	if g == nil {
		return
	}
	g.Vertices = nil
	g.Faces = nil
}

// RecalculateExtents refreshes Extents and Center from the current vertices.
func (g *GeometryConfig) RecalculateExtents() {
	g.Extents, g.Center = math.GeometryExtents(g.Vertices)
}
