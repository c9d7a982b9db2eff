package renderer

import (
	"fmt"
	"unsafe"

	"github.com/spaghettifunk/meshforge/engine/core"
	"github.com/spaghettifunk/meshforge/engine/math"
	"github.com/spaghettifunk/meshforge/engine/renderer/metadata"
)

const (
	stagingUsage      = metadata.BufferUsageTransferSrc
	stagingProperties = metadata.MemoryPropertyHostVisible | metadata.MemoryPropertyHostCoherent
)

// UploadPrimitive copies the geometry's vertices and faces into two device-local
// buffers through host-visible staging buffers and records them on the primitive.
// The primitive is only touched when both uploads succeed; on failure every
// buffer created along the way has been destroyed.
func UploadPrimitive(device Device, primitive *metadata.MeshPrimitive, geometry *metadata.GeometryConfig) error {
	if device == nil || primitive == nil || geometry == nil {
		err := fmt.Errorf("%w: upload needs a device, a primitive and geometry", core.ErrInvalidArgument)
		core.LogError(err.Error())
		return err
	}
	if len(geometry.Vertices) == 0 || len(geometry.Faces) == 0 {
		err := fmt.Errorf("%w: geometry '%s' has %d vertices and %d faces", core.ErrInvalidArgument, geometry.Name, len(geometry.Vertices), len(geometry.Faces))
		core.LogError(err.Error())
		return err
	}

	vertexBuffer, err := stageToDeviceLocal(device, vertexBytes(geometry.Vertices), metadata.BufferUsageVertex)
	if err != nil {
		core.LogError("failed to upload vertices of '%s': %s", geometry.Name, err)
		return err
	}
	indexBuffer, err := stageToDeviceLocal(device, faceBytes(geometry.Faces), metadata.BufferUsageIndex)
	if err != nil {
		vertexBuffer.Destroy()
		core.LogError("failed to upload faces of '%s': %s", geometry.Name, err)
		return err
	}

	primitive.VertexBuffer = vertexBuffer
	primitive.IndexBuffer = indexBuffer
	primitive.VertexCount = uint32(len(geometry.Vertices))
	primitive.FaceCount = uint32(len(geometry.Faces))
	primitive.Geometry = geometry
	return nil
}

// stageToDeviceLocal runs one staging round trip: staging buffer, host write,
// device-local target, device copy. The staging buffer never survives the call.
func stageToDeviceLocal(device Device, data []byte, usage metadata.BufferUsage) (*metadata.RenderBuffer, error) {
	size := uint64(len(data))

	staging, err := device.CreateBuffer(size, stagingUsage, stagingProperties)
	if err != nil {
		return nil, fmt.Errorf("%w: staging buffer of %d bytes: %w", core.ErrAllocationFailed, size, err)
	}
	defer staging.Destroy()

	if err := device.WriteBuffer(staging, data); err != nil {
		return nil, fmt.Errorf("%w: writing staging buffer: %w", core.ErrAllocationFailed, err)
	}

	target, err := device.CreateBuffer(size, metadata.BufferUsageTransferDst|usage, metadata.MemoryPropertyDeviceLocal)
	if err != nil {
		return nil, fmt.Errorf("%w: device-local buffer of %d bytes: %w", core.ErrAllocationFailed, size, err)
	}
	if err := device.CopyBuffer(staging, target, size); err != nil {
		target.Destroy()
		return nil, fmt.Errorf("%w: copying to device-local buffer: %w", core.ErrAllocationFailed, err)
	}
	return target, nil
}

func vertexBytes(vertices []math.Vertex3D) []byte {
	size := len(vertices) * int(unsafe.Sizeof(math.Vertex3D{}))
	return unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), size)
}

func faceBytes(faces []math.Face) []byte {
	size := len(faces) * int(unsafe.Sizeof(math.Face{}))
	return unsafe.Slice((*byte)(unsafe.Pointer(&faces[0])), size)
}
