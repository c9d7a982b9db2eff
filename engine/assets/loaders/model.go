package loaders

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/g3n/engine/loader/obj"
	"github.com/spaghettifunk/meshforge/engine/core"
	"github.com/spaghettifunk/meshforge/engine/math"
	"github.com/spaghettifunk/meshforge/engine/renderer/metadata"
)

// ModelLoader reads Wavefront OBJ files into raw geometry.
type ModelLoader struct {
	// FlipV converts OBJ texture coordinates (origin bottom-left) to Vulkan's top-left origin.
	FlipV bool
}

func NewModelLoader() *ModelLoader {
	return &ModelLoader{FlipV: true}
}

// vertexKey identifies a unique position/uv/normal combination.
type vertexKey struct {
	position, uv, normal int
}

// Load reads path and, when present, the .mtl file next to it.
func (ml *ModelLoader) Load(path string) (*metadata.GeometryConfig, error) {
	objFile, err := os.Open(path)
	if err != nil {
		err = fmt.Errorf("%w: %w", core.ErrLoadFailed, err)
		core.LogError(err.Error())
		return nil, err
	}
	defer objFile.Close()

	var mtl io.Reader = strings.NewReader("")
	mtlPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".mtl"
	if mtlFile, err := os.Open(mtlPath); err == nil {
		defer mtlFile.Close()
		mtl = mtlFile
	}

	return ml.Decode(filepath.Base(path), objFile, mtl)
}

// Decode triangulates every face of every object in the stream into one geometry.
func (ml *ModelLoader) Decode(name string, objReader, mtlReader io.Reader) (*metadata.GeometryConfig, error) {
	decoder, err := obj.DecodeReader(objReader, mtlReader)
	if err != nil {
		err = fmt.Errorf("%w: decoding '%s': %w", core.ErrLoadFailed, name, err)
		core.LogError(err.Error())
		return nil, err
	}

	geometry, err := ml.build(name, decoder)
	if err != nil {
		err = fmt.Errorf("%w: '%s': %w", core.ErrLoadFailed, name, err)
		core.LogError(err.Error())
		return nil, err
	}
	core.LogDebug("loaded model '%s': %d vertices, %d faces", name, len(geometry.Vertices), len(geometry.Faces))
	return geometry, nil
}

func (ml *ModelLoader) build(name string, decoder *obj.Decoder) (*metadata.GeometryConfig, error) {
	positionCount := len(decoder.Vertices) / 3
	uvCount := len(decoder.Uvs) / 2
	normalCount := len(decoder.Normals) / 3

	geometry := &metadata.GeometryConfig{Name: name}
	unique := make(map[vertexKey]uint16)
	// missing[i] is set when vertex i has no normal in the file
	var missing []bool
	anyMissing := false

	addVertex := func(face *obj.Face, corner int) (uint16, error) {
		key := vertexKey{position: face.Vertices[corner], uv: -1, normal: -1}
		if key.position < 0 || key.position >= positionCount {
			return 0, fmt.Errorf("vertex index %d out of range", key.position)
		}
		if corner < len(face.Uvs) && face.Uvs[corner] >= 0 && face.Uvs[corner] < uvCount {
			key.uv = face.Uvs[corner]
		}
		if corner < len(face.Normals) && face.Normals[corner] >= 0 && face.Normals[corner] < normalCount {
			key.normal = face.Normals[corner]
		}

		if index, ok := unique[key]; ok {
			return index, nil
		}
		if len(geometry.Vertices) > math.MaxFaceIndex {
			return 0, errors.New("more vertices than a 16-bit index can address")
		}

		v := math.Vertex3D{
			Position: math.NewVec3(
				decoder.Vertices[key.position*3],
				decoder.Vertices[key.position*3+1],
				decoder.Vertices[key.position*3+2],
			),
		}
		if key.normal >= 0 {
			v.Normal = math.NewVec3(
				decoder.Normals[key.normal*3],
				decoder.Normals[key.normal*3+1],
				decoder.Normals[key.normal*3+2],
			)
		}
		if key.uv >= 0 {
			u, w := decoder.Uvs[key.uv*2], decoder.Uvs[key.uv*2+1]
			if ml.FlipV {
				w = 1.0 - w
			}
			v.Texcoord = math.NewVec2(u, w)
		}

		index := uint16(len(geometry.Vertices))
		geometry.Vertices = append(geometry.Vertices, v)
		missing = append(missing, key.normal < 0)
		anyMissing = anyMissing || key.normal < 0
		unique[key] = index
		return index, nil
	}

	for o := range decoder.Objects {
		for f := range decoder.Objects[o].Faces {
			face := &decoder.Objects[o].Faces[f]
			// fan triangulation
			for i := 2; i < len(face.Vertices); i++ {
				var tri math.Face
				for k, corner := range [3]int{0, i - 1, i} {
					index, err := addVertex(face, corner)
					if err != nil {
						return nil, err
					}
					tri[k] = index
				}
				geometry.Faces = append(geometry.Faces, tri)
			}
		}
	}

	if len(geometry.Faces) == 0 {
		return nil, errors.New("model has no faces")
	}
	if anyMissing {
		math.GeometryGenerateNormals(geometry.Vertices, geometry.Faces, missing)
	}
	geometry.RecalculateExtents()
	return geometry, nil
}
