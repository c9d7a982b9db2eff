package math

/**
 * @brief Writes smooth normals: each vertex gets the normalized sum of the
 * area-weighted normals of the faces that use it. When generate is not nil,
 * only vertices with generate[i] set are written; the rest keep their normal.
 */
func GeometryGenerateNormals(vertices []Vertex3D, faces []Face, generate []bool) {
	selected := func(i uint16) bool {
		return generate == nil || (int(i) < len(generate) && generate[i])
	}

	sums := make([]Vec3, len(vertices))
	for _, f := range faces {
		i0, i1, i2 := f[0], f[1], f[2]

		edge1 := vertices[i1].Position.Sub(vertices[i0].Position)
		edge2 := vertices[i2].Position.Sub(vertices[i0].Position)

		// unnormalized, so larger faces weigh more
		normal := edge1.Cross(edge2)
		for _, i := range f {
			if selected(i) {
				sums[i] = sums[i].Add(normal)
			}
		}
	}

	for i := range vertices {
		if selected(uint16(i)) {
			vertices[i].Normal = sums[i].Normalized()
		}
	}
}

// GeometryExtents returns the axis-aligned bounds of the vertices and their center.
// An empty slice yields zero extents.
func GeometryExtents(vertices []Vertex3D) (Extents3D, Vec3) {
	if len(vertices) == 0 {
		return Extents3D{}, Vec3{}
	}
	ext := Extents3D{Min: vertices[0].Position, Max: vertices[0].Position}
	for _, v := range vertices[1:] {
		ext.Min = ext.Min.MinComponents(v.Position)
		ext.Max = ext.Max.MaxComponents(v.Position)
	}
	return ext, ext.Min.Add(ext.Max).MulScalar(0.5)
}

// Merge returns the smallest extents containing both e and other.
func (e Extents3D) Merge(other Extents3D) Extents3D {
	return Extents3D{
		Min: e.Min.MinComponents(other.Min),
		Max: e.Max.MaxComponents(other.Max),
	}
}
