package systems

import (
	"github.com/spaghettifunk/meshforge/engine/core"
	"github.com/spaghettifunk/meshforge/engine/math"
	"github.com/spaghettifunk/meshforge/engine/renderer/metadata"
)

/** @brief The name of generated geometry when none is given. */
const DefaultGeometryName string = "default"

/**
 * @brief Generates configuration for plane geometries given the provided parameters.
 * The plane lies on the XY axes, centered on the origin, facing +Z.
 *
 * @param width The overall width of the plane. Must be non-zero.
 * @param height The overall height of the plane. Must be non-zero.
 * @param xSegmentCount The number of segments along the x-axis in the plane. Must be non-zero.
 * @param ySegmentCount The number of segments along the y-axis in the plane. Must be non-zero.
 * @param tileX The number of times the texture should tile across the plane on the x-axis. Must be non-zero.
 * @param tileY The number of times the texture should tile across the plane on the y-axis. Must be non-zero.
 * @param name The name of the generated geometry.
 * @return A geometry configuration which can then be fed into MeshSystem.CreateFromGeometry().
 */
func GeneratePlaneConfig(width, height float32, xSegmentCount, ySegmentCount uint32, tileX, tileY float32, name string) (*metadata.GeometryConfig, error) {
	if width == 0 {
		core.LogWarn("Width must be nonzero. Defaulting to one.")
		width = 1.0
	}
	if height == 0 {
		core.LogWarn("Height must be nonzero. Defaulting to one.")
		height = 1.0
	}
	if xSegmentCount < 1 {
		core.LogWarn("xSegmentCount must be a positive number. Defaulting to one.")
		xSegmentCount = 1
	}
	if ySegmentCount < 1 {
		core.LogWarn("ySegmentCount must be a positive number. Defaulting to one.")
		ySegmentCount = 1
	}
	if tileX == 0 {
		core.LogWarn("tileX must be nonzero. Defaulting to one.")
		tileX = 1.0
	}
	if tileY == 0 {
		core.LogWarn("tileY must be nonzero. Defaulting to one.")
		tileY = 1.0
	}
	if xSegmentCount*ySegmentCount*4 > math.MaxFaceIndex+1 {
		return nil, core.ErrInvalidArgument
	}

	config := &metadata.GeometryConfig{
		Vertices: make([]math.Vertex3D, xSegmentCount*ySegmentCount*4), // 4 verts per segment
		Faces:    make([]math.Face, xSegmentCount*ySegmentCount*2),     // 2 triangles per segment
	}

	seg_width := width / float32(xSegmentCount)
	seg_height := height / float32(ySegmentCount)
	half_width := width * 0.5
	half_height := height * 0.5
	normal := math.NewVec3(0, 0, 1)
	for y := uint32(0); y < ySegmentCount; y++ {
		for x := uint32(0); x < xSegmentCount; x++ {
			min_x := (float32(x) * seg_width) - half_width
			min_y := (float32(y) * seg_height) - half_height
			max_x := min_x + seg_width
			max_y := min_y + seg_height
			min_uvx := (float32(x) / float32(xSegmentCount)) * tileX
			min_uvy := (float32(y) / float32(ySegmentCount)) * tileY
			max_uvx := (float32(x+1) / float32(xSegmentCount)) * tileX
			max_uvy := (float32(y+1) / float32(ySegmentCount)) * tileY

			v_offset := ((y * xSegmentCount) + x) * 4
			verts := config.Vertices[v_offset : v_offset+4]
			verts[0] = math.Vertex3D{Position: math.NewVec3(min_x, min_y, 0), Normal: normal, Texcoord: math.NewVec2(min_uvx, min_uvy)}
			verts[1] = math.Vertex3D{Position: math.NewVec3(max_x, max_y, 0), Normal: normal, Texcoord: math.NewVec2(max_uvx, max_uvy)}
			verts[2] = math.Vertex3D{Position: math.NewVec3(min_x, max_y, 0), Normal: normal, Texcoord: math.NewVec2(min_uvx, max_uvy)}
			verts[3] = math.Vertex3D{Position: math.NewVec3(max_x, min_y, 0), Normal: normal, Texcoord: math.NewVec2(max_uvx, min_uvy)}

			f_offset := ((y * xSegmentCount) + x) * 2
			base := uint16(v_offset)
			config.Faces[f_offset+0] = math.Face{base + 0, base + 1, base + 2}
			config.Faces[f_offset+1] = math.Face{base + 0, base + 3, base + 1}
		}
	}

	config.Name = nameOrDefault(name)
	config.RecalculateExtents()
	return config, nil
}

/**
 * @brief Generates configuration for a box centered on the origin.
 * Every side has its own four vertices so normals stay flat.
 */
func GenerateCubeConfig(width, height, depth, tileX, tileY float32, name string) (*metadata.GeometryConfig, error) {
	if width == 0 {
		core.LogWarn("Width must be nonzero. Defaulting to one.")
		width = 1.0
	}
	if height == 0 {
		core.LogWarn("Height must be nonzero. Defaulting to one.")
		height = 1.0
	}
	if depth == 0 {
		core.LogWarn("Depth must be nonzero. Defaulting to one.")
		depth = 1
	}
	if tileX == 0 {
		core.LogWarn("tileX must be nonzero. Defaulting to one.")
		tileX = 1.0
	}
	if tileY == 0 {
		core.LogWarn("tileY must be nonzero. Defaulting to one.")
		tileY = 1.0
	}

	min_x, max_x := -width*0.5, width*0.5
	min_y, max_y := -height*0.5, height*0.5
	min_z, max_z := -depth*0.5, depth*0.5

	// corner positions per side, in the order bottom-left, top-right, top-left, bottom-right
	sides := []struct {
		normal  math.Vec3
		corners [4]math.Vec3
	}{
		// Front
		{math.NewVec3(0, 0, 1), [4]math.Vec3{{min_x, min_y, max_z}, {max_x, max_y, max_z}, {min_x, max_y, max_z}, {max_x, min_y, max_z}}},
		// Back
		{math.NewVec3(0, 0, -1), [4]math.Vec3{{max_x, min_y, min_z}, {min_x, max_y, min_z}, {max_x, max_y, min_z}, {min_x, min_y, min_z}}},
		// Left
		{math.NewVec3(-1, 0, 0), [4]math.Vec3{{min_x, min_y, min_z}, {min_x, max_y, max_z}, {min_x, max_y, min_z}, {min_x, min_y, max_z}}},
		// Right
		{math.NewVec3(1, 0, 0), [4]math.Vec3{{max_x, min_y, max_z}, {max_x, max_y, min_z}, {max_x, max_y, max_z}, {max_x, min_y, min_z}}},
		// Bottom
		{math.NewVec3(0, -1, 0), [4]math.Vec3{{max_x, min_y, max_z}, {min_x, min_y, min_z}, {max_x, min_y, min_z}, {min_x, min_y, max_z}}},
		// Top
		{math.NewVec3(0, 1, 0), [4]math.Vec3{{min_x, max_y, max_z}, {max_x, max_y, min_z}, {min_x, max_y, min_z}, {max_x, max_y, max_z}}},
	}
	uvs := [4]math.Vec2{{0, 0}, {tileX, tileY}, {0, tileY}, {tileX, 0}}

	config := &metadata.GeometryConfig{
		Vertices: make([]math.Vertex3D, 0, 4*6), // 4 verts per side, 6 sides
		Faces:    make([]math.Face, 0, 2*6),
	}
	for _, side := range sides {
		base := uint16(len(config.Vertices))
		for i, corner := range side.corners {
			config.Vertices = append(config.Vertices, math.Vertex3D{
				Position: corner,
				Normal:   side.normal,
				Texcoord: uvs[i],
			})
		}
		config.Faces = append(config.Faces,
			math.Face{base + 0, base + 1, base + 2},
			math.Face{base + 0, base + 3, base + 1},
		)
	}

	config.Name = nameOrDefault(name)
	// Always centered since min/max of each axis are -/+ half of the size.
	config.Extents = math.Extents3D{
		Min: math.NewVec3(min_x, min_y, min_z),
		Max: math.NewVec3(max_x, max_y, max_z),
	}
	config.Center = math.NewVec3Zero()
	return config, nil
}

func nameOrDefault(name string) string {
	if len(name) > 0 {
		return name
	}
	return DefaultGeometryName
}
