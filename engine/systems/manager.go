package systems

import (
	"github.com/spaghettifunk/meshforge/engine/core"
	"github.com/spaghettifunk/meshforge/engine/renderer"
)

const defaultMaxCameraCount uint16 = 16

type SystemManager struct {
	cameraSystem *CameraSystem
	meshSystem   *MeshSystem
}

// NewSystemManager creates the camera system and an initialized mesh system drawing through its default camera.
func NewSystemManager(config *core.Config, device renderer.Device, factory renderer.PipelineFactory, loader GeometryLoader) (*SystemManager, error) {
	cs, err := NewCameraSystem(&CameraSystemConfig{
		MaxCameraCount: defaultMaxCameraCount,
		Viewport:       device.ViewExtent(),
	})
	if err != nil {
		return nil, err
	}

	camera := cs.GetDefault()
	ms := NewMeshSystem(&MeshSystemConfig{
		AutoRelease:       config.Mesh.AutoRelease,
		PipelineConfig:    config.Mesh.PipelineConfig,
		SkyPipelineConfig: config.Mesh.SkyPipelineConfig,
		MaxDrawsPerFrame:  config.Mesh.MaxDrawsPerFrame,
	}, device, factory, loader, camera, camera)
	if err := ms.Initialize(config.Mesh.MaxMeshes); err != nil {
		return nil, err
	}

	return &SystemManager{
		cameraSystem: cs,
		meshSystem:   ms,
	}, nil
}

func (sm *SystemManager) CameraSystem() *CameraSystem {
	return sm.cameraSystem
}

func (sm *SystemManager) MeshSystem() *MeshSystem {
	return sm.meshSystem
}

// Shutdown releases every GPU resource the systems hold. Call it before the device goes away.
func (sm *SystemManager) Shutdown() error {
	if err := sm.meshSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.cameraSystem.Shutdown(); err != nil {
		return err
	}
	return nil
}
