package engine

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/meshforge/engine/assets"
	"github.com/spaghettifunk/meshforge/engine/assets/loaders"
	"github.com/spaghettifunk/meshforge/engine/core"
	"github.com/spaghettifunk/meshforge/engine/renderer"
	"github.com/spaghettifunk/meshforge/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is recording frames
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// FrameRecorder turns the queued draws of a frame into GPU work and empties the queues.
type FrameRecorder interface {
	RecordFrame(pipelines []*renderer.Pipeline) error
}

// DrawFunc queues the draws of one frame.
type DrawFunc func(ms *systems.MeshSystem) error

type Engine struct {
	currentStage  Stage
	config        *core.Config
	device        renderer.Device
	factory       renderer.PipelineFactory
	recorder      FrameRecorder
	loader        systems.GeometryLoader
	assetManager  *assets.AssetManager
	systemManager *systems.SystemManager
	frameNumber   uint64
}

func New(config *core.Config, device renderer.Device, factory renderer.PipelineFactory, recorder FrameRecorder) (*Engine, error) {
	if config == nil || device == nil || factory == nil || recorder == nil {
		return nil, fmt.Errorf("%w: engine needs a config, a device, a pipeline factory and a recorder", core.ErrInvalidArgument)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		currentStage: EngineStageUninitialized,
		config:       config,
		device:       device,
		factory:      factory,
		recorder:     recorder,
		loader:       loaders.NewModelLoader(),
	}, nil
}

func (e *Engine) Initialize() error {
	if e.currentStage != EngineStageUninitialized {
		return fmt.Errorf("%w: engine already initialized", core.ErrInvalidArgument)
	}
	e.currentStage = EngineStageInitializing

	if e.config.Log.Level != "" {
		if err := core.SetLogLevel(e.config.Log.Level); err != nil {
			e.currentStage = EngineStageUninitialized
			return err
		}
	}

	sm, err := systems.NewSystemManager(e.config, e.device, e.factory, e.loader)
	if err != nil {
		core.LogError(err.Error())
		e.currentStage = EngineStageUninitialized
		return err
	}
	e.systemManager = sm

	if e.config.Assets.Watch {
		am, err := assets.NewAssetManager()
		if err == nil {
			err = am.Watch(e.config.Assets.ModelDirectory)
			if err != nil {
				_ = am.Close()
			}
		}
		if err != nil {
			core.LogError("failed to watch '%s': %s", e.config.Assets.ModelDirectory, err)
			_ = sm.Shutdown()
			e.systemManager = nil
			e.currentStage = EngineStageUninitialized
			return err
		}
		e.assetManager = am
	}

	e.currentStage = EngineStageInitialized
	core.LogInfo("engine initialized with %d mesh slots", e.config.Mesh.MaxMeshes)
	return nil
}

/**
 * @brief Runs one frame: reloads models changed on disk, lets draw queue the
 * frame's meshes and hands the sky and standard pipelines to the recorder.
 * Queues are emptied even when draw or the recorder fails.
 */
func (e *Engine) Frame(draw DrawFunc) error {
	if e.currentStage != EngineStageInitialized && e.currentStage != EngineStageRunning {
		return core.ErrNotInitialized
	}
	e.currentStage = EngineStageRunning
	ms := e.systemManager.MeshSystem()

	if e.assetManager != nil {
		if changed := e.assetManager.PollChanged(); len(changed) > 0 {
			n, err := ms.ReloadChanged(changed)
			if err != nil {
				core.LogWarn("hot reload: %s", err)
			}
			if n > 0 {
				core.LogDebug("hot reload: %d meshes refreshed", n)
			}
		}
	}

	ms.ResetPipelines()
	if draw != nil {
		if err := draw(ms); err != nil {
			ms.ResetPipelines()
			return err
		}
	}

	pipelines := []*renderer.Pipeline{ms.SkyPipeline(), ms.StandardPipeline()}
	if err := e.recorder.RecordFrame(pipelines); err != nil {
		ms.ResetPipelines()
		return err
	}
	e.frameNumber++
	return nil
}

func (e *Engine) Systems() *systems.SystemManager {
	return e.systemManager
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

func (e *Engine) FrameNumber() uint64 {
	return e.frameNumber
}

// Shutdown releases the systems before the watcher. Calling it again is a no-op.
func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageUninitialized || e.currentStage == EngineStageShuttingDown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown

	var errs []error
	if e.systemManager != nil {
		if err := e.systemManager.Shutdown(); err != nil {
			errs = append(errs, err)
		}
		e.systemManager = nil
	}
	if e.assetManager != nil {
		if err := e.assetManager.Close(); err != nil {
			errs = append(errs, err)
		}
		e.assetManager = nil
	}
	return errors.Join(errs...)
}
