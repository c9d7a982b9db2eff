package metadata

import (
	"fmt"
	"strings"
)

// VertexFormat is the numeric format of a single vertex attribute.
type VertexFormat int

const (
	VertexFormatUndefined VertexFormat = iota
	VertexFormatR32G32Sfloat
	VertexFormatR32G32B32Sfloat
	VertexFormatR32G32B32A32Sfloat
)

type VertexInputRate int

const (
	VertexInputRatePerVertex VertexInputRate = iota
	VertexInputRatePerInstance
)

/** @brief A vertex stream binding: which slot, how far apart vertices are, and how it steps. */
type VertexInputBinding struct {
	Binding   uint32
	Stride    uint32
	InputRate VertexInputRate
}

/** @brief One attribute inside a vertex stream. */
type VertexInputAttribute struct {
	Binding  uint32
	Location uint32
	Format   VertexFormat
	Offset   uint32
}

// IndexType is the numeric format of the index buffer.
type IndexType int

const (
	IndexTypeUint16 IndexType = iota
	IndexTypeUint32
)

type Extent2D struct {
	Width, Height uint32
}

/** @brief Determines face culling mode during rendering. */
type FaceCullMode int

const (
	/** @brief No faces are culled. */
	FaceCullModeNone FaceCullMode = 0x0
	/** @brief Only front faces are culled. */
	FaceCullModeFront FaceCullMode = 0x1
	/** @brief Only back faces are culled. */
	FaceCullModeBack FaceCullMode = 0x2
	/** @brief Both front and back faces are culled. */
	FaceCullModeFrontAndBack FaceCullMode = 0x3
)

func (m *FaceCullMode) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "none":
		*m = FaceCullModeNone
	case "front":
		*m = FaceCullModeFront
	case "back":
		*m = FaceCullModeBack
	case "front_and_back":
		*m = FaceCullModeFrontAndBack
	default:
		return fmt.Errorf("unknown cull mode %q", text)
	}
	return nil
}

/**
 * @brief The on-disk description of a graphics pipeline.
 * Shader paths are relative to the config file.
 */
type PipelineConfig struct {
	Name           string       `toml:"name"`
	VertexShader   string       `toml:"vertex_shader"`
	FragmentShader string       `toml:"fragment_shader"`
	CullMode       FaceCullMode `toml:"cull_mode"`
	Wireframe      bool         `toml:"wireframe"`
	DepthTest      bool         `toml:"depth_test"`
	DepthWrite     bool         `toml:"depth_write"`
}

// PipelineHandle is the backend object returned by a pipeline factory.
type PipelineHandle interface{}

/**
 * @brief A single queued draw: one primitive with its uniform data and texture.
 * Recorded into a command buffer when the owning pipeline is flushed.
 */
type DrawCommand struct {
	VertexBuffer *RenderBuffer
	IndexBuffer  *RenderBuffer
	IndexCount   uint32
	Uniform      MeshUBO
	Texture      *Texture
}

