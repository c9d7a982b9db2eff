package systems

import (
	"errors"
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/spaghettifunk/meshforge/engine/core"
	"github.com/spaghettifunk/meshforge/engine/math"
	"github.com/spaghettifunk/meshforge/engine/renderer/metadata"
	"github.com/spaghettifunk/meshforge/engine/renderer/rendertest"
)

func TestMain(m *testing.M) {
	core.SetLogOutput(io.Discard)
	os.Exit(m.Run())
}

type fakeLoader struct {
	models map[string]*metadata.GeometryConfig
	calls  int
}

func (l *fakeLoader) Load(path string) (*metadata.GeometryConfig, error) {
	l.calls++
	g, ok := l.models[path]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", path, os.ErrNotExist)
	}
	return g.Clone(), nil
}

type fakeCamera struct {
	pos        math.Vec2
	view, proj math.Mat4
}

func (c *fakeCamera) Position2D() math.Vec2 { return c.pos }
func (c *fakeCamera) View() math.Mat4 { return c.view }
func (c *fakeCamera) Projection() math.Mat4 { return c.proj }

// triangle returns a one-face geometry whose first corner sits at (x, 0, 0).
func triangle(x float32) *metadata.GeometryConfig {
	g := &metadata.GeometryConfig{
		Name: "triangle",
		Vertices: []math.Vertex3D{
			{Position: math.NewVec3(x, 0, 0), Normal: math.NewVec3(0, 0, 1)},
			{Position: math.NewVec3(x+1, 0, 0), Normal: math.NewVec3(0, 0, 1)},
			{Position: math.NewVec3(x, 1, 0), Normal: math.NewVec3(0, 0, 1)},
		},
		Faces: []math.Face{{0, 1, 2}},
	}
	g.RecalculateExtents()
	return g
}

type fixture struct {
	ms      *MeshSystem
	device  *rendertest.Device
	factory *rendertest.PipelineFactory
	loader  *fakeLoader
	camera  *fakeCamera
}

func newFixture(t *testing.T, capacity uint32, config MeshSystemConfig) *fixture {
	t.Helper()
	if config.PipelineConfig == "" {
		config.PipelineConfig = "config/model_pipeline.toml"
	}
	if config.SkyPipelineConfig == "" {
		config.SkyPipelineConfig = "config/sky_pipeline.toml"
	}
	f := &fixture{
		device:  rendertest.NewDevice(),
		factory: rendertest.NewPipelineFactory(),
		loader: &fakeLoader{models: map[string]*metadata.GeometryConfig{
			"a.obj": triangle(0),
			"b.obj": triangle(5),
			"c.obj": triangle(-3),
		}},
		camera: &fakeCamera{view: math.NewMat4Identity(), proj: math.NewMat4Identity()},
	}
	f.ms = NewMeshSystem(&config, f.device, f.factory, f.loader, f.camera, f.camera)
	if capacity > 0 {
		if err := f.ms.Initialize(capacity); err != nil {
			t.Fatalf("Initialize(%d) error = %v", capacity, err)
		}
	}
	return f
}

func TestInitializeZeroCapacity(t *testing.T) {
	f := newFixture(t, 0, MeshSystemConfig{})
	err := f.ms.Initialize(0)
	if !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("Initialize(0) error = %v, want ErrInvalidConfig", err)
	}
	if f.ms.IsInitialized() || f.ms.Capacity() != 0 {
		t.Error("pool should stay unallocated")
	}
	if len(f.factory.Calls) != 0 {
		t.Errorf("pipeline factory called %d times, want 0", len(f.factory.Calls))
	}
	if _, err := f.ms.Acquire(); !errors.Is(err, core.ErrNotInitialized) {
		t.Errorf("Acquire() on uninitialized system error = %v", err)
	}
}

func TestInitializeBuildsPipelines(t *testing.T) {
	f := newFixture(t, 8, MeshSystemConfig{})
	if f.ms.Capacity() != 8 {
		t.Errorf("Capacity() = %d, want 8", f.ms.Capacity())
	}
	if len(f.factory.Calls) != 2 {
		t.Fatalf("pipeline factory called %d times, want 2", len(f.factory.Calls))
	}
	if f.factory.Calls[0].ConfigPath != "config/sky_pipeline.toml" || f.factory.Calls[1].ConfigPath != "config/model_pipeline.toml" {
		t.Errorf("config paths = %q, %q", f.factory.Calls[0].ConfigPath, f.factory.Calls[1].ConfigPath)
	}
	for _, call := range f.factory.Calls {
		if call.MaxInstances != 8 || call.Extent != f.device.Extent {
			t.Errorf("call = %+v", call)
		}
		if call.Binding.Stride != 32 || len(call.Attributes) != 3 {
			t.Errorf("vertex layout = %+v %+v", call.Binding, call.Attributes)
		}
		if call.UBOSize != 224 || call.IndexType != metadata.IndexTypeUint16 {
			t.Errorf("ubo size = %d, index type = %d", call.UBOSize, call.IndexType)
		}
	}
	if f.ms.SkyPipeline() == nil || f.ms.StandardPipeline() == nil {
		t.Fatal("pipelines should be available")
	}
	if f.ms.StandardPipeline().Capacity() != 8 {
		t.Errorf("queue capacity = %d, want 8", f.ms.StandardPipeline().Capacity())
	}
	if err := f.ms.Initialize(4); !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("second Initialize() error = %v", err)
	}
}

func TestInitializePipelineFailure(t *testing.T) {
	f := newFixture(t, 0, MeshSystemConfig{})
	f.factory.FailPaths["config/model_pipeline.toml"] = true

	if err := f.ms.Initialize(4); !errors.Is(err, rendertest.ErrInjected) {
		t.Fatalf("Initialize() error = %v", err)
	}
	if f.ms.IsInitialized() || f.ms.Capacity() != 0 {
		t.Error("failed Initialize must leave the system uninitialized")
	}
	if len(f.factory.Destroyed) != 1 || f.factory.Destroyed[0].ConfigPath != "config/sky_pipeline.toml" {
		t.Errorf("destroyed pipelines = %+v, want the sky pipeline", f.factory.Destroyed)
	}
}

func TestAcquireDistinctSlots(t *testing.T) {
	f := newFixture(t, 4, MeshSystemConfig{})
	seen := map[uint32]bool{}
	uids := map[string]bool{}
	for i := 0; i < 4; i++ {
		m, err := f.ms.Acquire()
		if err != nil {
			t.Fatalf("Acquire() #%d error = %v", i, err)
		}
		if seen[m.ID] {
			t.Errorf("slot %d returned twice", m.ID)
		}
		seen[m.ID] = true
		uids[m.UniqueID.String()] = true
		if !m.InUse || m.ReferenceCount != 1 || len(m.Primitives) != 0 {
			t.Errorf("fresh mesh = %+v", m)
		}
		if f.ms.Mesh(m.ID) != m {
			t.Errorf("Mesh(%d) does not return the acquired slot", m.ID)
		}
	}
	if len(uids) != 4 {
		t.Errorf("unique ids = %d, want 4", len(uids))
	}
}

func TestAcquireSaturated(t *testing.T) {
	f := newFixture(t, 2, MeshSystemConfig{})
	for i := 0; i < 2; i++ {
		if _, err := f.ms.Acquire(); err != nil {
			t.Fatal(err)
		}
	}
	m, err := f.ms.Acquire()
	if m != nil || !errors.Is(err, core.ErrPoolExhausted) {
		t.Errorf("Acquire() on saturated pool = %v, %v; want nil, ErrPoolExhausted", m, err)
	}
}

func TestAcquireReclaimsUnreferenced(t *testing.T) {
	f := newFixture(t, 2, MeshSystemConfig{})
	a, err := f.ms.LoadFromFile("a.obj")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.ms.LoadFromFile("b.obj"); err != nil {
		t.Fatal(err)
	}
	oldVertices := a.Primitives[0].VertexBuffer
	oldIndices := a.Primitives[0].IndexBuffer
	oldUID := a.UniqueID

	f.ms.Release(a)
	if !a.InUse || a.ReferenceCount != 0 {
		t.Fatalf("released mesh = %+v, want in use with zero references", a)
	}
	if oldVertices.IsDestroyed() {
		t.Fatal("lazy release must not free buffers")
	}

	got, err := f.ms.Acquire()
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if got != a {
		t.Errorf("reclaimed slot %d, want %d", got.ID, a.ID)
	}
	if !oldVertices.IsDestroyed() || !oldIndices.IsDestroyed() {
		t.Error("reclaimed slot's buffers were not destroyed")
	}
	if got.Filename != "" || len(got.Primitives) != 0 || got.ReferenceCount != 1 || got.Extents != (math.Extents3D{}) {
		t.Errorf("reclaimed mesh = %+v, want fresh state", got)
	}
	if got.UniqueID == oldUID {
		t.Error("reclaimed mesh should get a new unique id")
	}
	if f.ms.FindByFilename("a.obj") != nil {
		t.Error("reclaimed filename still resolves")
	}
}

func TestLoadFromFileDeduplicates(t *testing.T) {
	f := newFixture(t, 4, MeshSystemConfig{})
	first, err := f.ms.LoadFromFile("a.obj")
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	second, err := f.ms.LoadFromFile("a.obj")
	if err != nil {
		t.Fatalf("second LoadFromFile() error = %v", err)
	}
	if first != second {
		t.Error("same path should return the same mesh")
	}
	if first.ReferenceCount != 1 {
		t.Errorf("ReferenceCount = %d, want 1", first.ReferenceCount)
	}
	if f.loader.calls != 1 {
		t.Errorf("loader called %d times, want 1", f.loader.calls)
	}
	if len(f.device.Created) != 4 || len(f.device.Live()) != 2 {
		t.Errorf("created %d buffers, %d live; want 4 and 2", len(f.device.Created), len(f.device.Live()))
	}
	if f.ms.InUseCount() != 1 {
		t.Errorf("InUseCount() = %d, want 1", f.ms.InUseCount())
	}

	p := first.Primitives[0]
	if p.VertexCount != 3 || p.FaceCount != 1 || p.Geometry == nil {
		t.Errorf("primitive = %+v", p)
	}
	if first.Extents != triangle(0).Extents || first.Filename != "a.obj" {
		t.Errorf("mesh = %+v", first)
	}
}

func TestLoadFromFileFailures(t *testing.T) {
	f := newFixture(t, 2, MeshSystemConfig{})
	m, err := f.ms.LoadFromFile("missing.obj")
	if m != nil || !errors.Is(err, core.ErrLoadFailed) || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadFromFile(missing) = %v, %v", m, err)
	}
	if f.ms.InUseCount() != 0 {
		t.Error("a failed load must not consume a slot")
	}

	if _, err := f.ms.LoadFromFile(""); !errors.Is(err, core.ErrInvalidArgument) {
		t.Errorf("LoadFromFile(\"\") error = %v", err)
	}

	f.device.FailCreateAt = 2
	m, err = f.ms.LoadFromFile("a.obj")
	if m != nil || !errors.Is(err, core.ErrAllocationFailed) {
		t.Errorf("LoadFromFile with failing device = %v, %v", m, err)
	}
	if f.ms.InUseCount() != 0 || len(f.device.Live()) != 0 {
		t.Errorf("upload failure left %d slots and %d buffers", f.ms.InUseCount(), len(f.device.Live()))
	}
}

func TestLoadFromFilePoolSaturated(t *testing.T) {
	f := newFixture(t, 1, MeshSystemConfig{})
	if _, err := f.ms.LoadFromFile("a.obj"); err != nil {
		t.Fatal(err)
	}
	m, err := f.ms.LoadFromFile("b.obj")
	if m != nil || !errors.Is(err, core.ErrPoolExhausted) {
		t.Errorf("LoadFromFile on full pool = %v, %v", m, err)
	}
	if len(f.device.Live()) != 2 {
		t.Errorf("live buffers = %d, want 2", len(f.device.Live()))
	}
}

func TestReleaseAutoRelease(t *testing.T) {
	f := newFixture(t, 2, MeshSystemConfig{AutoRelease: true})
	m, err := f.ms.LoadFromFile("a.obj")
	if err != nil {
		t.Fatal(err)
	}
	f.ms.Release(m)
	if m.InUse || len(f.device.Live()) != 0 {
		t.Errorf("auto release should delete at zero: %+v, %d live buffers", m, len(f.device.Live()))
	}
	// releasing a free slot is a logged no-op
	f.ms.Release(m)
	f.ms.Release(nil)
	f.ms.Release(&metadata.Mesh{InUse: true, ReferenceCount: 1})
}

func TestDeleteMeshIsIdempotent(t *testing.T) {
	f := newFixture(t, 2, MeshSystemConfig{})
	m, err := f.ms.LoadFromFile("a.obj")
	if err != nil {
		t.Fatal(err)
	}
	id := m.ID
	f.ms.DeleteMesh(m)
	f.ms.DeleteMesh(m)
	f.ms.DeleteMesh(nil)

	if m.ID != id || m.InUse || m.ReferenceCount != 0 || m.Filename != "" || m.Primitives != nil {
		t.Errorf("deleted mesh = %+v, want zeroed slot", m)
	}
	if n := len(f.device.Destroyed); n != 4 {
		t.Errorf("destroyed %d buffers, want 4 (2 staging, 2 device local)", n)
	}

	again, err := f.ms.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	if again != m || again.Filename != "" || len(again.Primitives) != 0 || again.Extents != (math.Extents3D{}) {
		t.Errorf("re-acquired slot = %+v", again)
	}
}

func TestAppendPrimitiveAndQueueRender(t *testing.T) {
	f := newFixture(t, 4, MeshSystemConfig{})
	m, err := f.ms.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	plane, err := GeneratePlaneConfig(2, 2, 1, 1, 1, 1, "plane")
	if err != nil {
		t.Fatal(err)
	}
	for _, g := range []*metadata.GeometryConfig{triangle(0), plane, triangle(5)} {
		if err := f.ms.AppendPrimitive(m, g); err != nil {
			t.Fatalf("AppendPrimitive() error = %v", err)
		}
	}
	wantExtents := math.Extents3D{Min: math.NewVec3(-1, -1, 0), Max: math.NewVec3(6, 1, 0)}
	if m.Extents != wantExtents {
		t.Errorf("extents = %+v, want %+v", m.Extents, wantExtents)
	}

	pipe := f.ms.StandardPipeline()
	ubo := f.ms.BuildUniformPayload(math.NewMat4Identity(), math.NewVec4One())
	tex := &metadata.Texture{Name: "checker"}
	if err := f.ms.QueueRender(m, pipe, &ubo, tex); err != nil {
		t.Fatalf("QueueRender() error = %v", err)
	}
	ubo.Color.X = 0 // queued entries hold their own copy

	if pipe.Len() != 3 {
		t.Fatalf("queued %d draws, want 3", pipe.Len())
	}
	i := 0
	err = pipe.Flush(func(cmd metadata.DrawCommand) error {
		p := m.Primitives[i]
		if cmd.VertexBuffer != p.VertexBuffer || cmd.IndexBuffer != p.IndexBuffer {
			t.Errorf("draw %d has the buffers of another primitive", i)
		}
		if cmd.IndexCount != 3*p.FaceCount {
			t.Errorf("draw %d IndexCount = %d, want %d", i, cmd.IndexCount, 3*p.FaceCount)
		}
		if cmd.Texture != tex || cmd.Uniform.Color.X != 1 {
			t.Errorf("draw %d texture/uniform not carried: %+v", i, cmd)
		}
		i++
		return nil
	})
	if err != nil || i != 3 {
		t.Errorf("Flush() = %v after %d draws", err, i)
	}
}

func TestQueueRenderRejectsMissingArguments(t *testing.T) {
	f := newFixture(t, 2, MeshSystemConfig{})
	a, err := f.ms.LoadFromFile("a.obj")
	if err != nil {
		t.Fatal(err)
	}
	b, err := f.ms.LoadFromFile("b.obj")
	if err != nil {
		t.Fatal(err)
	}
	pipe := f.ms.StandardPipeline()
	ubo := f.ms.BuildUniformPayload(math.NewMat4Identity(), math.NewVec4One())

	// two meshes already queued before the bad calls
	if err := f.ms.QueueRender(a, pipe, &ubo, nil); err != nil {
		t.Fatal(err)
	}
	if err := f.ms.QueueRender(b, pipe, &ubo, nil); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		run  func() error
	}{
		{"nil mesh", func() error { return f.ms.QueueRender(nil, pipe, &ubo, nil) }},
		{"nil pipeline", func() error { return f.ms.QueueRender(a, nil, &ubo, nil) }},
		{"nil ubo", func() error { return f.ms.QueueRender(a, pipe, nil, nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, core.ErrInvalidArgument) {
				t.Errorf("error = %v, want ErrInvalidArgument", err)
			}
			if pipe.Len() != 2 {
				t.Errorf("queue length = %d, want the 2 earlier draws", pipe.Len())
			}
		})
	}

	want := []*metadata.RenderBuffer{a.Primitives[0].VertexBuffer, b.Primitives[0].VertexBuffer}
	var got []*metadata.RenderBuffer
	err = pipe.Flush(func(cmd metadata.DrawCommand) error {
		got = append(got, cmd.VertexBuffer)
		return nil
	})
	if err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("flushed draws out of submission order: got %v, want %v", got, want)
	}
}

func TestQueueRenderNeverPartial(t *testing.T) {
	f := newFixture(t, 4, MeshSystemConfig{MaxDrawsPerFrame: 2})
	m, err := f.ms.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := f.ms.AppendPrimitive(m, triangle(float32(i))); err != nil {
			t.Fatal(err)
		}
	}
	err = f.ms.Draw(m, math.NewMat4Identity(), math.NewVec4One(), nil)
	if !errors.Is(err, core.ErrQueueFull) {
		t.Errorf("Draw() error = %v, want ErrQueueFull", err)
	}
	if n := f.ms.StandardPipeline().Len(); n != 0 {
		t.Errorf("queue length = %d after rejected submission, want 0", n)
	}

	sky, err := f.ms.LoadFromFile("a.obj")
	if err != nil {
		t.Fatal(err)
	}
	if err := f.ms.DrawSky(sky, math.NewMat4Identity(), math.NewVec4One(), nil); err != nil {
		t.Fatal(err)
	}
	if f.ms.SkyPipeline().Len() != 1 {
		t.Errorf("sky queue length = %d, want 1", f.ms.SkyPipeline().Len())
	}
	f.ms.ResetPipelines()
	if f.ms.SkyPipeline().Len() != 0 {
		t.Error("ResetPipelines() should empty the queues")
	}
}

func TestBuildUniformPayload(t *testing.T) {
	f := newFixture(t, 1, MeshSystemConfig{})
	f.camera.pos = math.NewVec2(3, -4)
	f.camera.view = math.NewMat4Translation(math.NewVec3(1, 2, 3))
	f.camera.proj = math.NewMat4Perspective(1, 1, 0.1, 100)

	model := math.NewMat4Translation(math.NewVec3(7, 0, 0))
	color := math.NewVec4(0.5, 0.25, 1, 1)
	ubo := f.ms.BuildUniformPayload(model, color)

	if ubo.Model != model || ubo.Color != color {
		t.Errorf("model/color not carried: %+v", ubo)
	}
	if ubo.View != f.camera.view || ubo.Projection != f.camera.proj {
		t.Error("view/projection not taken from the provider")
	}
	if ubo.CameraPosition != math.NewVec4(3, -4, 0, 0) {
		t.Errorf("CameraPosition = %v, want (3,-4,0,0)", ubo.CameraPosition)
	}
}

func TestVertexLayoutIsCopied(t *testing.T) {
	f := newFixture(t, 1, MeshSystemConfig{})
	binding, attrs, count := f.ms.VertexLayout()
	if binding.Stride != 32 || count != 3 || len(attrs) != 3 {
		t.Fatalf("VertexLayout() = %+v, %+v, %d", binding, attrs, count)
	}
	attrs[2].Offset = 0
	if _, again, _ := f.ms.VertexLayout(); again[2].Offset != 24 {
		t.Error("VertexLayout() exposes its internal slice")
	}
}

func TestCopyMesh(t *testing.T) {
	f := newFixture(t, 3, MeshSystemConfig{})
	src, err := f.ms.LoadFromFile("a.obj")
	if err != nil {
		t.Fatal(err)
	}
	cp, err := f.ms.Copy(src)
	if err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if cp == src || cp.Filename != "" || cp.Extents != src.Extents {
		t.Errorf("copy = %+v", cp)
	}
	if len(cp.Primitives) != 1 {
		t.Fatalf("copy has %d primitives", len(cp.Primitives))
	}
	a, b := src.Primitives[0], cp.Primitives[0]
	if a.VertexBuffer == b.VertexBuffer || a.Geometry == b.Geometry {
		t.Error("copy shares buffers or geometry with the source")
	}
	if string(rendertest.Contents(a.VertexBuffer)) != string(rendertest.Contents(b.VertexBuffer)) {
		t.Error("copied vertex data differs")
	}
	if f.ms.FindByFilename("a.obj") != src {
		t.Error("copy must not shadow the source filename")
	}
}

func TestCopyKeepsUnreferencedSource(t *testing.T) {
	f := newFixture(t, 2, MeshSystemConfig{})
	src, err := f.ms.LoadFromFile("a.obj")
	if err != nil {
		t.Fatal(err)
	}
	f.ms.Release(src)
	if _, err := f.ms.LoadFromFile("b.obj"); err != nil {
		t.Fatal(err)
	}
	vb := src.Primitives[0].VertexBuffer

	// the only reclaimable slot is the source itself
	cp, err := f.ms.Copy(src)
	if cp != nil || !errors.Is(err, core.ErrPoolExhausted) {
		t.Errorf("Copy() on a full pool = %v, %v; want ErrPoolExhausted", cp, err)
	}
	if f.ms.FindByFilename("a.obj") != src || !src.InUse || src.ReferenceCount != 0 {
		t.Errorf("source was disturbed by the failed copy: %+v", src)
	}
	if src.Primitives[0].VertexBuffer != vb || vb.IsDestroyed() {
		t.Error("source buffers were torn down by the failed copy")
	}

	f2 := newFixture(t, 3, MeshSystemConfig{})
	src, err = f2.ms.LoadFromFile("a.obj")
	if err != nil {
		t.Fatal(err)
	}
	f2.ms.Release(src)
	cp, err = f2.ms.Copy(src)
	if err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if cp == src || f2.ms.FindByFilename("a.obj") != src || src.ReferenceCount != 0 {
		t.Errorf("copy %+v replaced its source %+v", cp, src)
	}
}

func TestMoveVertices(t *testing.T) {
	f := newFixture(t, 2, MeshSystemConfig{})
	m, err := f.ms.LoadFromFile("a.obj")
	if err != nil {
		t.Fatal(err)
	}
	old := m.Primitives[0]
	oldVB := old.VertexBuffer

	if err := f.ms.MoveVertices(m, math.NewVec3(10, 0, 0), math.NewVec3Zero()); err != nil {
		t.Fatalf("MoveVertices() error = %v", err)
	}
	want := math.Extents3D{Min: math.NewVec3(10, 0, 0), Max: math.NewVec3(11, 1, 0)}
	if m.Extents != want {
		t.Errorf("extents = %+v, want %+v", m.Extents, want)
	}
	if !oldVB.IsDestroyed() {
		t.Error("old vertex buffer should be destroyed")
	}
	if m.Primitives[0] == old || m.Primitives[0].VertexBuffer.IsDestroyed() {
		t.Error("mesh should hold the new primitive")
	}
	if f.ms.FindByFilename("a.obj") != m || m.ReferenceCount != 1 {
		t.Error("moving must not change identity")
	}

	if err := f.ms.MoveVertices(m, math.NewVec3Zero(), math.NewVec3(0, 0, math.K_HALF_PI)); err != nil {
		t.Fatal(err)
	}
	p := m.Primitives[0].Geometry.Vertices[0].Position
	if !p.Compare(math.NewVec3(0, 10, 0), 1e-4) {
		t.Errorf("rotated vertex = %v, want (0,10,0)", p)
	}

	live := len(f.device.Live())
	f.device.FailCreateAt = len(f.device.Created) + 2
	before := m.Primitives[0]
	if err := f.ms.MoveVertices(m, math.NewVec3(1, 1, 1), math.NewVec3Zero()); !errors.Is(err, core.ErrAllocationFailed) {
		t.Errorf("MoveVertices with failing device error = %v", err)
	}
	if m.Primitives[0] != before || len(f.device.Live()) != live {
		t.Error("failed move must keep the current primitives and leak nothing")
	}
}

func TestReload(t *testing.T) {
	f := newFixture(t, 2, MeshSystemConfig{})
	m, err := f.ms.LoadFromFile("a.obj")
	if err != nil {
		t.Fatal(err)
	}
	oldVB := m.Primitives[0].VertexBuffer

	f.loader.models["a.obj"] = triangle(20)
	if err := f.ms.Reload("a.obj"); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if f.ms.FindByFilename("a.obj") != m || m.ReferenceCount != 1 {
		t.Error("reload must keep the slot and reference count")
	}
	if m.Extents.Min.X != 20 || !oldVB.IsDestroyed() {
		t.Errorf("reload did not swap geometry: %+v", m.Extents)
	}

	delete(f.loader.models, "a.obj")
	current := m.Primitives[0]
	if err := f.ms.Reload("a.obj"); !errors.Is(err, core.ErrLoadFailed) {
		t.Errorf("Reload of vanished file error = %v", err)
	}
	if m.Primitives[0] != current || current.VertexBuffer.IsDestroyed() {
		t.Error("failed reload must keep the current primitive")
	}

	if err := f.ms.Reload("never-loaded.obj"); !errors.Is(err, core.ErrInvalidArgument) {
		t.Errorf("Reload of unknown file error = %v", err)
	}
}

func TestReloadChanged(t *testing.T) {
	f := newFixture(t, 4, MeshSystemConfig{})
	if _, err := f.ms.LoadFromFile("a.obj"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.ms.LoadFromFile("b.obj"); err != nil {
		t.Fatal(err)
	}
	delete(f.loader.models, "b.obj")

	n, err := f.ms.ReloadChanged([]string{"a.obj", "b.obj", "unrelated.obj"})
	if n != 1 {
		t.Errorf("reloaded %d meshes, want 1", n)
	}
	if !errors.Is(err, core.ErrLoadFailed) {
		t.Errorf("ReloadChanged() error = %v, want ErrLoadFailed for b.obj", err)
	}
}

func TestReloadMatchesCleanedPaths(t *testing.T) {
	f := newFixture(t, 4, MeshSystemConfig{})
	f.loader.models["./a.obj"] = triangle(0)
	dotted, err := f.ms.LoadFromFile("./a.obj")
	if err != nil {
		t.Fatal(err)
	}
	plain, err := f.ms.LoadFromFile("a.obj")
	if err != nil {
		t.Fatal(err)
	}

	f.loader.models["./a.obj"] = triangle(7)
	f.loader.models["a.obj"] = triangle(7)
	n, err := f.ms.ReloadChanged([]string{"a.obj"})
	if err != nil || n != 2 {
		t.Fatalf("ReloadChanged() = %d, %v; want both meshes of the file reloaded", n, err)
	}
	for _, m := range []*metadata.Mesh{dotted, plain} {
		if m.Extents.Min.X != 7 {
			t.Errorf("mesh '%s' not reloaded: %+v", m.Filename, m.Extents)
		}
	}

	f.loader.models["./a.obj"] = triangle(9)
	if err := f.ms.Reload("sub/../a.obj"); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if dotted.Extents.Min.X != 9 {
		t.Errorf("mesh loaded as './a.obj' not reloaded through an uncleaned path: %+v", dotted.Extents)
	}
}

func TestCreateFromGeometry(t *testing.T) {
	f := newFixture(t, 2, MeshSystemConfig{})
	cube, err := GenerateCubeConfig(2, 2, 2, 1, 1, "cube")
	if err != nil {
		t.Fatal(err)
	}
	m, err := f.ms.CreateFromGeometry("cube", cube)
	if err != nil {
		t.Fatalf("CreateFromGeometry() error = %v", err)
	}
	if m.Filename != "cube" || m.Primitives[0].VertexCount != 24 || m.Primitives[0].FaceCount != 12 {
		t.Errorf("mesh = %+v", m)
	}
	again, err := f.ms.CreateFromGeometry("cube", cube)
	if err != nil || again != m {
		t.Errorf("named geometry should be de-duplicated: %v, %v", again, err)
	}

	f.device.FailCreateAt = len(f.device.Created) + 1
	if _, err := f.ms.CreateFromGeometry("", triangle(0)); !errors.Is(err, core.ErrAllocationFailed) {
		t.Errorf("failing upload error = %v", err)
	}
	if f.ms.InUseCount() != 1 {
		t.Errorf("InUseCount() = %d, want 1", f.ms.InUseCount())
	}
}

func TestShutdown(t *testing.T) {
	f := newFixture(t, 4, MeshSystemConfig{})
	for _, p := range []string{"a.obj", "b.obj", "c.obj"} {
		if _, err := f.ms.LoadFromFile(p); err != nil {
			t.Fatal(err)
		}
	}
	_ = f.ms.Draw(f.ms.FindByFilename("a.obj"), math.NewMat4Identity(), math.NewVec4One(), nil)

	if err := f.ms.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if n := len(f.device.Live()); n != 0 {
		t.Errorf("%d buffers alive after shutdown", n)
	}
	if len(f.factory.Destroyed) != 2 {
		t.Errorf("destroyed %d pipelines, want 2", len(f.factory.Destroyed))
	}
	if f.ms.IsInitialized() || f.ms.Capacity() != 0 || f.ms.StandardPipeline() != nil {
		t.Error("shutdown must release the pool and pipelines")
	}
	if err := f.ms.Shutdown(); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
	if len(f.factory.Destroyed) != 2 {
		t.Error("second Shutdown() destroyed pipelines again")
	}
	if _, err := f.ms.LoadFromFile("a.obj"); !errors.Is(err, core.ErrNotInitialized) {
		t.Errorf("LoadFromFile() after Shutdown error = %v", err)
	}

	// the system can be brought up again
	if err := f.ms.Initialize(2); err != nil {
		t.Errorf("Initialize() after Shutdown error = %v", err)
	}
}
