/*
meshforge loads OBJ models into the mesh pool and either prints what it
decoded or renders them offscreen for a number of frames.

	meshforge inspect [-workers N] model.obj...
	meshforge render [-config engine.toml] [-frames N] [-width W] [-height H] model.obj...
*/
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spaghettifunk/meshforge/engine"
	"github.com/spaghettifunk/meshforge/engine/assets/loaders"
	"github.com/spaghettifunk/meshforge/engine/core"
	"github.com/spaghettifunk/meshforge/engine/math"
	"github.com/spaghettifunk/meshforge/engine/renderer/metadata"
	"github.com/spaghettifunk/meshforge/engine/renderer/vulkan"
	"github.com/spaghettifunk/meshforge/engine/systems"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "inspect":
		err = inspect(os.Args[2:])
	case "render":
		err = render(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		core.LogFatal("%s", err)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s inspect|render [flags] model.obj...\n", os.Args[0])
}

type inspection struct {
	path     string
	geometry *metadata.GeometryConfig
}

func inspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	workers := fs.Int("workers", runtime.NumCPU(), "number of decoding workers")
	fs.Parse(args)

	paths := fs.Args()
	if len(paths) == 0 {
		return fmt.Errorf("%w: no model files given", core.ErrInvalidArgument)
	}

	js, err := systems.NewJobSystem(*workers, len(paths))
	if err != nil {
		return err
	}

	var (
		mu      sync.Mutex
		results []inspection
		failed  atomic.Int32
	)
	bar := progressbar.Default(int64(len(paths)), "decoding")
	loader := loaders.NewModelLoader()
	for _, path := range paths {
		js.Submit(systems.JobTask{
			Name: path,
			Run: func() (interface{}, error) {
				return loader.Load(path)
			},
			OnComplete: func(result interface{}) {
				mu.Lock()
				results = append(results, inspection{path: path, geometry: result.(*metadata.GeometryConfig)})
				mu.Unlock()
				bar.Add(1)
			},
			OnFailure: func(err error) {
				failed.Add(1)
				bar.Add(1)
			},
		})
	}
	js.Shutdown()
	bar.Close()

	for _, r := range results {
		g := r.geometry
		fmt.Printf("%s: %d vertices, %d faces, min (%.3f, %.3f, %.3f) max (%.3f, %.3f, %.3f)\n",
			r.path, g.VertexCount(), g.FaceCount(),
			g.Extents.Min.X, g.Extents.Min.Y, g.Extents.Min.Z,
			g.Extents.Max.X, g.Extents.Max.Y, g.Extents.Max.Z)
	}
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%w: %d of %d models failed to decode", core.ErrLoadFailed, n, len(paths))
	}
	return nil
}

func render(args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	configPath := fs.String("config", "engine.toml", "engine configuration file")
	frames := fs.Int("frames", 120, "number of frames to render, 0 renders until interrupted")
	width := fs.Uint("width", 1280, "target width")
	height := fs.Uint("height", 720, "target height")
	validation := fs.Bool("validation", false, "enable the Vulkan validation layer")
	fs.Parse(args)

	cfg, err := core.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	backend, err := vulkan.New(&vulkan.ContextConfig{
		ApplicationName: "meshforge",
		Extent:          metadata.Extent2D{Width: uint32(*width), Height: uint32(*height)},
		Validation:      *validation,
	})
	if err != nil {
		return err
	}
	defer backend.Shutdown()

	e, err := engine.New(cfg, backend, backend, backend)
	if err != nil {
		return err
	}
	if err := e.Initialize(); err != nil {
		return err
	}
	defer e.Shutdown()

	ms := e.Systems().MeshSystem()
	var meshes []*metadata.Mesh
	for _, path := range fs.Args() {
		mesh, err := ms.LoadFromFile(path)
		if err != nil {
			return err
		}
		meshes = append(meshes, mesh)
	}

	skyGeometry, err := systems.GenerateCubeConfig(10, 10, 10, 1, 1, "sky")
	if err != nil {
		return err
	}
	sky, err := ms.CreateFromGeometry("sky", skyGeometry)
	if err != nil {
		return err
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	var stop atomic.Bool
	go func() {
		<-sigCh
		stop.Store(true)
	}()

	skyColor := math.NewVec4(0.2, 0.3, 0.5, 1)
	for frame := 0; (*frames == 0 || frame < *frames) && !stop.Load(); frame++ {
		angle := float32(frame) * math.DegToRad(1)
		err := e.Frame(func(ms *systems.MeshSystem) error {
			if err := ms.DrawSky(sky, math.NewMat4Identity(), skyColor, nil); err != nil {
				return err
			}
			for i, mesh := range meshes {
				model := math.NewMat4EulerY(angle).Mul(math.NewMat4Translation(math.NewVec3(float32(i)*2, 0, 0)))
				if err := ms.Draw(mesh, model, math.NewVec4One(), nil); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	core.LogInfo("rendered %d frames of %d meshes", e.FrameNumber(), len(meshes))
	return nil
}
