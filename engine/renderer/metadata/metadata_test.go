package metadata

import (
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/meshforge/engine/math"
)

type countingReleaser struct {
	calls int
}

func (c *countingReleaser) DestroyBuffer(*RenderBuffer) { c.calls++ }

func TestRenderBufferDestroyOnce(t *testing.T) {
	r := &countingReleaser{}
	b := NewRenderBuffer("buf", "mem", 64, BufferUsageVertex, MemoryPropertyDeviceLocal, r)
	if !b.IsDeviceLocal() {
		t.Error("buffer should be device local")
	}
	b.Destroy()
	b.Destroy()
	if r.calls != 1 {
		t.Errorf("DestroyBuffer called %d times, want 1", r.calls)
	}
	if b.Handle != nil || b.Memory != nil {
		t.Error("handles should be cleared after Destroy")
	}

	var nilBuf *RenderBuffer
	nilBuf.Destroy()
	if !nilBuf.IsDestroyed() {
		t.Error("nil buffer should report destroyed")
	}
}

func TestMeshPrimitiveDestroyPartial(t *testing.T) {
	r := &countingReleaser{}
	p := &MeshPrimitive{
		VertexBuffer: NewRenderBuffer("v", "m", 32, BufferUsageVertex, MemoryPropertyDeviceLocal, r),
		VertexCount:  1,
		Geometry:     &GeometryConfig{Vertices: make([]math.Vertex3D, 1)},
	}
	p.Destroy()
	if r.calls != 1 {
		t.Errorf("DestroyBuffer called %d times, want 1", r.calls)
	}
	if p.VertexBuffer != nil || p.Geometry != nil || p.VertexCount != 0 {
		t.Errorf("primitive not cleared: %+v", p)
	}
	(*MeshPrimitive)(nil).Destroy()
}

func TestGeometryConfigClone(t *testing.T) {
	g := &GeometryConfig{
		Name:     "tri",
		Vertices: []math.Vertex3D{{Position: math.NewVec3(1, 2, 3)}},
		Faces:    []math.Face{{0, 0, 0}},
	}
	c := g.Clone()
	c.Vertices[0].Position.X = 9
	c.Faces[0][0] = 7
	if g.Vertices[0].Position.X != 1 || g.Faces[0][0] != 0 {
		t.Error("Clone shares arrays with the source")
	}
	if c.Name != "tri" || c.VertexCount() != 1 || c.FaceCount() != 1 {
		t.Errorf("clone = %+v", c)
	}
	g.Dispose()
	if g.VertexCount() != 0 || g.FaceCount() != 0 {
		t.Error("Dispose should drop the arrays")
	}
}

func TestPipelineConfigDecode(t *testing.T) {
	var cfg PipelineConfig
	err := toml.Unmarshal([]byte(`
name = "mesh"
vertex_shader = "shaders/mesh.vert.spv"
fragment_shader = "shaders/mesh.frag.spv"
cull_mode = "back"
depth_test = true
`), &cfg)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if cfg.CullMode != FaceCullModeBack || !cfg.DepthTest || cfg.DepthWrite {
		t.Errorf("cfg = %+v", cfg)
	}

	if err := toml.Unmarshal([]byte(`cull_mode = "sideways"`), &cfg); err == nil {
		t.Error("unknown cull mode should fail")
	}
}
