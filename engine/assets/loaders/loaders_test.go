package loaders

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spaghettifunk/meshforge/engine/core"
	"github.com/spaghettifunk/meshforge/engine/math"
	"github.com/spaghettifunk/meshforge/engine/renderer/metadata"
)

const quadOBJ = `o quad
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn 0 0 1
f 1/1/1 2/2/1 3/3/1 4/4/1
`

func TestModelLoaderQuad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quad.obj")
	if err := os.WriteFile(path, []byte(quadOBJ), 0o644); err != nil {
		t.Fatal(err)
	}

	geo, err := NewModelLoader().Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if geo.Name != "quad.obj" {
		t.Errorf("Name = %q", geo.Name)
	}
	if len(geo.Vertices) != 4 {
		t.Errorf("vertices = %d, want 4 after de-duplication", len(geo.Vertices))
	}
	want := []math.Face{{0, 1, 2}, {0, 2, 3}}
	if len(geo.Faces) != len(want) {
		t.Fatalf("faces = %v, want %v", geo.Faces, want)
	}
	for i := range want {
		if geo.Faces[i] != want[i] {
			t.Errorf("face %d = %v, want %v", i, geo.Faces[i], want[i])
		}
	}
	if geo.Vertices[0].Texcoord != math.NewVec2(0, 1) {
		t.Errorf("texcoord of first vertex = %v, want flipped (0,1)", geo.Vertices[0].Texcoord)
	}
	if geo.Vertices[2].Normal != math.NewVec3(0, 0, 1) {
		t.Errorf("normal = %v", geo.Vertices[2].Normal)
	}
	if geo.Extents.Min != math.NewVec3(0, 0, 0) || geo.Extents.Max != math.NewVec3(1, 1, 0) {
		t.Errorf("extents = %+v", geo.Extents)
	}
	if geo.Center != math.NewVec3(0.5, 0.5, 0) {
		t.Errorf("center = %v", geo.Center)
	}
}

func TestModelLoaderGeneratesNormals(t *testing.T) {
	src := "o tri\nv 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"
	geo, err := NewModelLoader().Decode("tri", strings.NewReader(src), strings.NewReader(""))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	for i, v := range geo.Vertices {
		if !v.Normal.Compare(math.NewVec3(0, 0, 1), 1e-6) {
			t.Errorf("vertex %d normal = %v, want (0,0,1)", i, v.Normal)
		}
	}
}

func TestModelLoaderKeepsAuthoredNormals(t *testing.T) {
	src := `o mixed
v 0 0 0
v 1 0 0
v 0 1 0
v 0 0 -1
vn 1 0 0
f 1//1 2//1 3//1
f 1 2 4
`
	geo, err := NewModelLoader().Decode("mixed", strings.NewReader(src), strings.NewReader(""))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(geo.Vertices) != 6 {
		t.Fatalf("vertices = %d, want 6 (corners with and without a normal stay apart)", len(geo.Vertices))
	}
	for _, i := range geo.Faces[0] {
		if n := geo.Vertices[i].Normal; n != math.NewVec3(1, 0, 0) {
			t.Errorf("authored normal of vertex %d = %v, want (1,0,0)", i, n)
		}
	}
	for _, i := range geo.Faces[1] {
		if n := geo.Vertices[i].Normal; !n.Compare(math.NewVec3(0, 1, 0), 1e-6) {
			t.Errorf("generated normal of vertex %d = %v, want (0,1,0)", i, n)
		}
	}
}

func TestModelLoaderSmoothsSharedCorners(t *testing.T) {
	src := `o cube
v -1 -1 1
v 1 -1 1
v 1 1 1
v -1 1 1
v -1 -1 -1
v 1 -1 -1
v 1 1 -1
v -1 1 -1
f 1 2 3 4
f 6 5 8 7
f 2 6 7 3
f 5 1 4 8
f 4 3 7 8
f 5 6 2 1
`
	geo, err := NewModelLoader().Decode("cube", strings.NewReader(src), strings.NewReader(""))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(geo.Vertices) != 8 {
		t.Fatalf("vertices = %d, want 8 shared corners", len(geo.Vertices))
	}
	sameSign := func(a, b float32) bool { return a*b > 0 }
	for i, v := range geo.Vertices {
		p, n := v.Position, v.Normal
		if l := n.Length(); l < 0.999 || l > 1.001 {
			t.Errorf("vertex %d normal %v is not unit length", i, n)
		}
		// every adjacent face points away from the centre, so the sum leans into the corner
		if !sameSign(p.X, n.X) || !sameSign(p.Y, n.Y) || !sameSign(p.Z, n.Z) {
			t.Errorf("vertex %d at %v has normal %v, want it to point out of the corner", i, p, n)
		}
	}
}

func TestModelLoaderFailures(t *testing.T) {
	if _, err := NewModelLoader().Load(filepath.Join(t.TempDir(), "missing.obj")); !errors.Is(err, core.ErrLoadFailed) {
		t.Errorf("missing file error = %v, want ErrLoadFailed", err)
	}

	_, err := NewModelLoader().Decode("empty", strings.NewReader("o empty\nv 0 0 0\n"), strings.NewReader(""))
	if !errors.Is(err, core.ErrLoadFailed) {
		t.Errorf("faceless model error = %v, want ErrLoadFailed", err)
	}
}

func TestShaderLoader(t *testing.T) {
	dir := t.TempDir()

	words := []uint32{spirvMagic, 0x00010000, 0, 1, 0}
	good := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(good[i*4:], w)
	}
	goodPath := filepath.Join(dir, "good.spv")
	if err := os.WriteFile(goodPath, good, 0o644); err != nil {
		t.Fatal(err)
	}
	code, err := (&ShaderLoader{}).Load(goodPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(code) != len(words) || code[0] != spirvMagic {
		t.Errorf("code = %#x", code)
	}

	for name, body := range map[string][]byte{
		"odd.spv":   {1, 2, 3},
		"magic.spv": {0, 0, 0, 0},
	} {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, body, 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := (&ShaderLoader{}).Load(p); err == nil {
			t.Errorf("Load(%s) should fail", name)
		}
	}
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPipelineConfigLoader(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "sky.toml", `
vertex_shader = "shaders/sky.vert.spv"
fragment_shader = "/abs/sky.frag.spv"
cull_mode = "front"
depth_test = true
`)
	cfg, err := (&PipelineConfigLoader{}).Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Name != "sky.toml" {
		t.Errorf("Name = %q, want the file name", cfg.Name)
	}
	if cfg.VertexShader != filepath.Join(dir, "shaders/sky.vert.spv") {
		t.Errorf("VertexShader = %q", cfg.VertexShader)
	}
	if cfg.FragmentShader != "/abs/sky.frag.spv" {
		t.Errorf("FragmentShader = %q", cfg.FragmentShader)
	}
	if cfg.CullMode != metadata.FaceCullModeFront || !cfg.DepthTest || cfg.DepthWrite {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestPipelineConfigLoaderDefaultsCullBack(t *testing.T) {
	path := writeFile(t, t.TempDir(), "mesh.toml", "name = \"mesh\"\nvertex_shader = \"a\"\nfragment_shader = \"b\"\n")
	cfg, err := (&PipelineConfigLoader{}).Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "mesh" || cfg.CullMode != metadata.FaceCullModeBack {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestPipelineConfigLoaderRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"missing fragment shader", "vertex_shader = \"a\"\n", core.ErrInvalidConfig},
		{"unknown key", "vertex_shader = \"a\"\nfragment_shader = \"b\"\nblend = true\n", core.ErrInvalidConfig},
		{"bad cull mode", "vertex_shader = \"a\"\nfragment_shader = \"b\"\ncull_mode = \"up\"\n", core.ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "p.toml", tt.body)
			if _, err := (&PipelineConfigLoader{}).Load(path); !errors.Is(err, tt.want) {
				t.Errorf("Load() error = %v, want %v", err, tt.want)
			}
		})
	}
	if _, err := (&PipelineConfigLoader{}).Load(filepath.Join(t.TempDir(), "none.toml")); !errors.Is(err, core.ErrLoadFailed) {
		t.Errorf("Load(missing) error = %v", err)
	}
}
