package renderer

import (
	"bytes"
	"errors"
	"testing"
	"unsafe"

	"github.com/spaghettifunk/meshforge/engine/core"
	"github.com/spaghettifunk/meshforge/engine/math"
	"github.com/spaghettifunk/meshforge/engine/renderer/metadata"
	"github.com/spaghettifunk/meshforge/engine/renderer/rendertest"
)

func quad() *metadata.GeometryConfig {
	return &metadata.GeometryConfig{
		Name: "quad",
		Vertices: []math.Vertex3D{
			{Position: math.NewVec3(0, 0, 0)},
			{Position: math.NewVec3(1, 0, 0)},
			{Position: math.NewVec3(1, 1, 0)},
			{Position: math.NewVec3(0, 1, 0)},
		},
		Faces: []math.Face{{0, 1, 2}, {2, 3, 0}},
	}
}

func TestVertexLayout(t *testing.T) {
	l := NewVertexLayout()
	b := l.Binding()
	if b.Binding != 0 || b.Stride != 32 || b.InputRate != metadata.VertexInputRatePerVertex {
		t.Errorf("binding = %+v", b)
	}
	want := []metadata.VertexInputAttribute{
		{Binding: 0, Location: 0, Format: metadata.VertexFormatR32G32B32Sfloat, Offset: 0},
		{Binding: 0, Location: 1, Format: metadata.VertexFormatR32G32B32Sfloat, Offset: 12},
		{Binding: 0, Location: 2, Format: metadata.VertexFormatR32G32Sfloat, Offset: 24},
	}
	got := l.Attributes()
	if len(got) != len(want) || l.AttributeCount() != 3 {
		t.Fatalf("attributes = %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("attribute %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	got[0].Offset = 99
	if l.Attributes()[0].Offset != 0 {
		t.Error("Attributes() must return a copy")
	}
}

func TestUploadPrimitive(t *testing.T) {
	dev := rendertest.NewDevice()
	geo := quad()
	prim := &metadata.MeshPrimitive{}

	if err := UploadPrimitive(dev, prim, geo); err != nil {
		t.Fatalf("UploadPrimitive() error = %v", err)
	}
	if prim.VertexCount != 4 || prim.FaceCount != 2 {
		t.Errorf("counts = %d/%d, want 4/2", prim.VertexCount, prim.FaceCount)
	}
	if prim.Geometry != geo {
		t.Error("primitive should own the uploaded geometry")
	}
	if len(dev.Created) != 4 || dev.Copies != 2 {
		t.Fatalf("created %d buffers with %d copies, want 4 and 2", len(dev.Created), dev.Copies)
	}

	live := dev.Live()
	if len(live) != 2 {
		t.Fatalf("live buffers = %d, want 2", len(live))
	}
	for _, b := range []*metadata.RenderBuffer{prim.VertexBuffer, prim.IndexBuffer} {
		if !b.IsDeviceLocal() || b.IsDestroyed() {
			t.Errorf("buffer %+v should be live and device local", b)
		}
		if b.Usage&metadata.BufferUsageTransferDst == 0 {
			t.Errorf("buffer usage %b lacks TransferDst", b.Usage)
		}
	}
	for _, b := range dev.Destroyed {
		if b == prim.VertexBuffer || b == prim.IndexBuffer {
			t.Error("a device-local buffer was destroyed")
		}
		if b.Usage != stagingUsage || b.Properties != stagingProperties {
			t.Errorf("destroyed buffer %+v is not a staging buffer", b)
		}
	}
	if prim.VertexBuffer.Usage&metadata.BufferUsageVertex == 0 || prim.IndexBuffer.Usage&metadata.BufferUsageIndex == 0 {
		t.Error("vertex/index usage flags not set")
	}

	if prim.VertexBuffer.Size != 4*uint64(unsafe.Sizeof(math.Vertex3D{})) {
		t.Errorf("vertex buffer size = %d", prim.VertexBuffer.Size)
	}
	wantIdx := []byte{0, 0, 1, 0, 2, 0, 2, 0, 3, 0, 0, 0}
	if got := rendertest.Contents(prim.IndexBuffer); !bytes.Equal(got, wantIdx) {
		t.Errorf("index buffer = %v, want %v", got, wantIdx)
	}
}

func TestUploadPrimitiveFailureLeavesNothing(t *testing.T) {
	for failAt := 1; failAt <= 4; failAt++ {
		dev := rendertest.NewDevice()
		dev.FailCreateAt = failAt
		prim := &metadata.MeshPrimitive{}

		err := UploadPrimitive(dev, prim, quad())
		if !errors.Is(err, core.ErrAllocationFailed) {
			t.Errorf("failAt=%d: error = %v, want ErrAllocationFailed", failAt, err)
		}
		if !errors.Is(err, rendertest.ErrInjected) {
			t.Errorf("failAt=%d: error should wrap the device error", failAt)
		}
		if n := len(dev.Live()); n != 0 {
			t.Errorf("failAt=%d: %d buffers left alive", failAt, n)
		}
		if prim.VertexBuffer != nil || prim.IndexBuffer != nil || prim.VertexCount != 0 || prim.Geometry != nil {
			t.Errorf("failAt=%d: primitive modified: %+v", failAt, prim)
		}
	}

	dev := rendertest.NewDevice()
	dev.FailCopy = true
	if err := UploadPrimitive(dev, &metadata.MeshPrimitive{}, quad()); !errors.Is(err, core.ErrAllocationFailed) {
		t.Errorf("copy failure error = %v", err)
	}
	if n := len(dev.Live()); n != 0 {
		t.Errorf("copy failure left %d buffers alive", n)
	}
}

func TestUploadPrimitiveRejectsEmpty(t *testing.T) {
	dev := rendertest.NewDevice()
	tests := []struct {
		name string
		geo  *metadata.GeometryConfig
	}{
		{"nil geometry", nil},
		{"no vertices", &metadata.GeometryConfig{Faces: []math.Face{{0, 0, 0}}}},
		{"no faces", &metadata.GeometryConfig{Vertices: make([]math.Vertex3D, 3)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := UploadPrimitive(dev, &metadata.MeshPrimitive{}, tt.geo)
			if !errors.Is(err, core.ErrInvalidArgument) {
				t.Errorf("error = %v, want ErrInvalidArgument", err)
			}
		})
	}
	if len(dev.Created) != 0 {
		t.Errorf("created %d buffers for rejected uploads", len(dev.Created))
	}
}

func TestPipelineQueue(t *testing.T) {
	p := NewPipeline("mesh", "handle", 2)
	if p.Free() != 2 || p.Capacity() != 2 {
		t.Fatalf("Free() = %d, Capacity() = %d", p.Free(), p.Capacity())
	}
	for i := uint32(1); i <= 2; i++ {
		if err := p.Enqueue(metadata.DrawCommand{IndexCount: i}); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
	}
	if err := p.Enqueue(metadata.DrawCommand{}); !errors.Is(err, core.ErrQueueFull) {
		t.Errorf("Enqueue on full queue error = %v", err)
	}

	var seen []uint32
	err := p.Flush(func(cmd metadata.DrawCommand) error {
		seen = append(seen, cmd.IndexCount)
		return nil
	})
	if err != nil || len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Errorf("Flush() = %v, seen %v", err, seen)
	}
	if p.Len() != 0 {
		t.Errorf("Len() after Flush = %d", p.Len())
	}
}

func TestPipelineFlushStopsOnError(t *testing.T) {
	p := NewPipeline("sky", nil, 4)
	for i := 0; i < 3; i++ {
		_ = p.Enqueue(metadata.DrawCommand{})
	}
	boom := errors.New("boom")
	calls := 0
	err := p.Flush(func(metadata.DrawCommand) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) || calls != 1 {
		t.Errorf("Flush() = %v after %d calls", err, calls)
	}
	if p.Len() != 0 {
		t.Errorf("queue should be empty after a failed flush, Len() = %d", p.Len())
	}

	_ = p.Enqueue(metadata.DrawCommand{})
	p.Reset()
	if p.Len() != 0 || p.Free() != 4 {
		t.Errorf("Reset left Len() = %d, Free() = %d", p.Len(), p.Free())
	}
}
