package renderer

import (
	"unsafe"

	"github.com/spaghettifunk/meshforge/engine/math"
	"github.com/spaghettifunk/meshforge/engine/renderer/metadata"
)

// VertexLayout describes how math.Vertex3D is laid out in a vertex stream.
type VertexLayout struct {
	binding    metadata.VertexInputBinding
	attributes []metadata.VertexInputAttribute
}

func NewVertexLayout() *VertexLayout {
	return &VertexLayout{
		binding: metadata.VertexInputBinding{
			Binding:   0,
			Stride:    uint32(unsafe.Sizeof(math.Vertex3D{})),
			InputRate: metadata.VertexInputRatePerVertex,
		},
		attributes: []metadata.VertexInputAttribute{
			{
				Binding:  0,
				Location: 0,
				Format:   metadata.VertexFormatR32G32B32Sfloat,
				Offset:   uint32(unsafe.Offsetof(math.Vertex3D{}.Position)),
			},
			{
				Binding:  0,
				Location: 1,
				Format:   metadata.VertexFormatR32G32B32Sfloat,
				Offset:   uint32(unsafe.Offsetof(math.Vertex3D{}.Normal)),
			},
			{
				Binding:  0,
				Location: 2,
				Format:   metadata.VertexFormatR32G32Sfloat,
				Offset:   uint32(unsafe.Offsetof(math.Vertex3D{}.Texcoord)),
			},
		},
	}
}

func (l *VertexLayout) Binding() metadata.VertexInputBinding {
	return l.binding
}

// Attributes returns a copy of the attribute descriptors.
func (l *VertexLayout) Attributes() []metadata.VertexInputAttribute {
	out := make([]metadata.VertexInputAttribute, len(l.attributes))
	copy(out, l.attributes)
	return out
}

func (l *VertexLayout) AttributeCount() uint32 {
	return uint32(len(l.attributes))
}
