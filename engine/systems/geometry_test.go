package systems

import (
	"testing"

	"github.com/spaghettifunk/meshforge/engine/math"
)

func TestGeneratePlaneConfig(t *testing.T) {
	g, err := GeneratePlaneConfig(4, 2, 2, 2, 1, 1, "")
	if err != nil {
		t.Fatalf("GeneratePlaneConfig() error = %v", err)
	}
	if g.Name != DefaultGeometryName {
		t.Errorf("Name = %q, want %q", g.Name, DefaultGeometryName)
	}
	if len(g.Vertices) != 16 || len(g.Faces) != 8 {
		t.Fatalf("got %d vertices and %d faces, want 16 and 8", len(g.Vertices), len(g.Faces))
	}
	want := math.Extents3D{Min: math.NewVec3(-2, -1, 0), Max: math.NewVec3(2, 1, 0)}
	if g.Extents != want {
		t.Errorf("Extents = %+v, want %+v", g.Extents, want)
	}
	for i, f := range g.Faces {
		for _, idx := range f {
			if int(idx) >= len(g.Vertices) {
				t.Errorf("face %d references vertex %d of %d", i, idx, len(g.Vertices))
			}
		}
	}
}

func TestGeneratePlaneConfigDefaultsZeroArguments(t *testing.T) {
	g, err := GeneratePlaneConfig(0, 0, 0, 0, 0, 0, "floor")
	if err != nil {
		t.Fatal(err)
	}
	if g.Name != "floor" || len(g.Vertices) != 4 || len(g.Faces) != 2 {
		t.Errorf("plane = %q with %d vertices, %d faces", g.Name, len(g.Vertices), len(g.Faces))
	}
	if g.Extents.Max != math.NewVec3(0.5, 0.5, 0) {
		t.Errorf("Extents.Max = %v, want (0.5,0.5,0)", g.Extents.Max)
	}
}

func TestGeneratePlaneConfigTooManySegments(t *testing.T) {
	if _, err := GeneratePlaneConfig(1, 1, 200, 200, 1, 1, ""); err == nil {
		t.Error("a plane beyond the 16-bit index range should be rejected")
	}
}

func TestGenerateCubeConfig(t *testing.T) {
	g, err := GenerateCubeConfig(2, 4, 6, 1, 1, "box")
	if err != nil {
		t.Fatalf("GenerateCubeConfig() error = %v", err)
	}
	if len(g.Vertices) != 24 || len(g.Faces) != 12 {
		t.Fatalf("got %d vertices and %d faces, want 24 and 12", len(g.Vertices), len(g.Faces))
	}
	want := math.Extents3D{Min: math.NewVec3(-1, -2, -3), Max: math.NewVec3(1, 2, 3)}
	if g.Extents != want {
		t.Errorf("Extents = %+v, want %+v", g.Extents, want)
	}
	if g.Center != math.NewVec3Zero() {
		t.Errorf("Center = %v, want origin", g.Center)
	}
	// each side's normal points away from the center
	for i, v := range g.Vertices {
		if v.Position.Dot(v.Normal) <= 0 {
			t.Errorf("vertex %d normal %v points inwards", i, v.Normal)
		}
	}
}
