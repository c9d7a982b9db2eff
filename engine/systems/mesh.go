package systems

import (
	"errors"
	"fmt"
	"path/filepath"
	"unsafe"

	"github.com/google/uuid"
	"github.com/spaghettifunk/meshforge/engine/core"
	"github.com/spaghettifunk/meshforge/engine/math"
	"github.com/spaghettifunk/meshforge/engine/renderer"
	"github.com/spaghettifunk/meshforge/engine/renderer/metadata"
)

// GeometryLoader turns a model file into raw geometry.
type GeometryLoader interface {
	Load(path string) (*metadata.GeometryConfig, error)
}

// CameraProvider supplies the camera position written into mesh uniforms.
type CameraProvider interface {
	Position2D() math.Vec2
}

type ViewProjectionProvider interface {
	View() math.Mat4
	Projection() math.Mat4
}

/** @brief The mesh system configuration. */
type MeshSystemConfig struct {
	/** @brief Delete a mesh as soon as its last reference is released instead of on slot reuse. */
	AutoRelease bool
	/** @brief Config file of the standard mesh pipeline. */
	PipelineConfig string
	/** @brief Config file of the sky pipeline. */
	SkyPipelineConfig string
	/** @brief Draws each pipeline can queue per frame. Zero means one per mesh slot. */
	MaxDrawsPerFrame uint32
}

/**
 * @brief Owns a fixed pool of mesh slots and the two pipelines meshes are drawn with.
 * Slots never move once the pool is allocated, so callers may keep *metadata.Mesh
 * pointers for as long as they hold a reference. Not safe for concurrent use.
 */
type MeshSystem struct {
	config   MeshSystemConfig
	device   renderer.Device
	factory  renderer.PipelineFactory
	loader   GeometryLoader
	camera   CameraProvider
	viewProj ViewProjectionProvider

	layout           *renderer.VertexLayout
	meshes           []metadata.Mesh
	standardPipeline *renderer.Pipeline
	skyPipeline      *renderer.Pipeline
	initialized      bool
}

func NewMeshSystem(config *MeshSystemConfig, device renderer.Device, factory renderer.PipelineFactory, loader GeometryLoader, camera CameraProvider, viewProj ViewProjectionProvider) *MeshSystem {
	return &MeshSystem{
		config:   *config,
		device:   device,
		factory:  factory,
		loader:   loader,
		camera:   camera,
		viewProj: viewProj,
	}
}

/**
 * @brief Allocates maxMeshes slots and builds the sky and standard pipelines.
 * On any failure nothing stays allocated and the system remains uninitialized.
 */
func (ms *MeshSystem) Initialize(maxMeshes uint32) error {
	if ms.initialized {
		err := fmt.Errorf("mesh system already initialized: %w", core.ErrInvalidConfig)
		core.LogError(err.Error())
		return err
	}
	if maxMeshes == 0 {
		err := fmt.Errorf("cannot initialize mesh system with a capacity of 0: %w", core.ErrInvalidConfig)
		core.LogError(err.Error())
		return err
	}
	if ms.device == nil || ms.factory == nil || ms.loader == nil {
		err := fmt.Errorf("mesh system needs a device, a pipeline factory and a loader: %w", core.ErrInvalidConfig)
		core.LogError(err.Error())
		return err
	}

	ms.layout = renderer.NewVertexLayout()
	ms.meshes = make([]metadata.Mesh, maxMeshes)
	for i := range ms.meshes {
		ms.meshes[i].ID = uint32(i)
	}

	maxDraws := ms.config.MaxDrawsPerFrame
	if maxDraws == 0 {
		maxDraws = maxMeshes
	}

	sky, err := ms.createPipeline("sky", ms.config.SkyPipelineConfig, maxDraws)
	if err != nil {
		ms.meshes = nil
		return err
	}
	standard, err := ms.createPipeline("mesh", ms.config.PipelineConfig, maxDraws)
	if err != nil {
		ms.factory.DestroyPipeline(sky.Handle)
		ms.meshes = nil
		return err
	}
	ms.skyPipeline = sky
	ms.standardPipeline = standard
	ms.initialized = true

	core.LogInfo("mesh system initialized with %d slots", maxMeshes)
	return nil
}

func (ms *MeshSystem) createPipeline(name, configPath string, maxDraws uint32) (*renderer.Pipeline, error) {
	handle, err := ms.factory.CreatePipelineFromConfig(
		configPath,
		ms.device.ViewExtent(),
		maxDraws,
		ms.layout.Binding(),
		ms.layout.Attributes(),
		uint64(unsafe.Sizeof(metadata.MeshUBO{})),
		metadata.IndexTypeUint16,
	)
	if err != nil {
		err = fmt.Errorf("failed to create %s pipeline from '%s': %w", name, configPath, err)
		core.LogError(err.Error())
		return nil, err
	}
	return renderer.NewPipeline(name, handle, maxDraws), nil
}

/**
 * @brief Frees every mesh and both pipelines. Must run before the device is destroyed.
 * Calling it again, or before Initialize, does nothing.
 */
func (ms *MeshSystem) Shutdown() error {
	if !ms.initialized {
		return nil
	}
	for i := range ms.meshes {
		ms.DeleteMesh(&ms.meshes[i])
	}
	ms.meshes = nil

	for _, p := range []*renderer.Pipeline{ms.standardPipeline, ms.skyPipeline} {
		p.Reset()
		ms.factory.DestroyPipeline(p.Handle)
	}
	ms.standardPipeline = nil
	ms.skyPipeline = nil
	ms.initialized = false

	core.LogInfo("mesh system shut down")
	return nil
}

func (ms *MeshSystem) IsInitialized() bool {
	return ms.initialized
}

// Capacity is the number of slots in the pool.
func (ms *MeshSystem) Capacity() int {
	return len(ms.meshes)
}

// Mesh returns the slot at index i, in use or not.
func (ms *MeshSystem) Mesh(i uint32) *metadata.Mesh {
	if int(i) >= len(ms.meshes) {
		return nil
	}
	return &ms.meshes[i]
}

// InUseCount is the number of occupied slots, including unreferenced ones awaiting reclamation.
func (ms *MeshSystem) InUseCount() int {
	n := 0
	for i := range ms.meshes {
		if ms.meshes[i].InUse {
			n++
		}
	}
	return n
}

/**
 * @brief Claims a slot. Free slots are used first; when none is left the first
 * slot nobody references anymore is torn down and reused.
 */
func (ms *MeshSystem) Acquire() (*metadata.Mesh, error) {
	if !ms.initialized {
		return nil, core.ErrNotInitialized
	}
	for i := range ms.meshes {
		if !ms.meshes[i].InUse {
			return ms.claim(&ms.meshes[i]), nil
		}
	}
	for i := range ms.meshes {
		if ms.meshes[i].ReferenceCount == 0 {
			core.LogDebug("reclaiming unreferenced mesh slot %d ('%s')", i, ms.meshes[i].Filename)
			ms.DeleteMesh(&ms.meshes[i])
			return ms.claim(&ms.meshes[i]), nil
		}
	}
	err := fmt.Errorf("%w: all %d slots are referenced", core.ErrPoolExhausted, len(ms.meshes))
	core.LogError(err.Error())
	return nil, err
}

func (ms *MeshSystem) claim(mesh *metadata.Mesh) *metadata.Mesh {
	mesh.InUse = true
	mesh.ReferenceCount = 1
	mesh.UniqueID = uuid.New()
	mesh.Primitives = make([]*metadata.MeshPrimitive, 0, 1)
	return mesh
}

// FindByFilename returns the in-use mesh loaded from name, or nil. An empty name never matches.
func (ms *MeshSystem) FindByFilename(name string) *metadata.Mesh {
	if name == "" {
		return nil
	}
	for i := range ms.meshes {
		if ms.meshes[i].InUse && ms.meshes[i].Filename == name {
			return &ms.meshes[i]
		}
	}
	return nil
}

/**
 * @brief Loads a model file into a mesh with a single primitive.
 * A file that is already loaded returns the existing mesh as is; its
 * reference count is not changed.
 */
func (ms *MeshSystem) LoadFromFile(path string) (*metadata.Mesh, error) {
	if !ms.initialized {
		return nil, core.ErrNotInitialized
	}
	if path == "" {
		err := fmt.Errorf("%w: empty model path", core.ErrInvalidArgument)
		core.LogError(err.Error())
		return nil, err
	}
	if mesh := ms.FindByFilename(path); mesh != nil {
		return mesh, nil
	}

	geometry, err := ms.load(path)
	if err != nil {
		return nil, err
	}

	mesh, err := ms.Acquire()
	if err != nil {
		geometry.Dispose()
		return nil, err
	}
	mesh.Filename = path

	primitive := &metadata.MeshPrimitive{}
	if err := renderer.UploadPrimitive(ms.device, primitive, geometry); err != nil {
		ms.DeleteMesh(mesh)
		geometry.Dispose()
		return nil, err
	}
	mesh.Primitives = append(mesh.Primitives, primitive)
	mesh.Extents = geometry.Extents

	core.LogDebug("loaded mesh '%s' into slot %d", path, mesh.ID)
	return mesh, nil
}

func (ms *MeshSystem) load(path string) (*metadata.GeometryConfig, error) {
	geometry, err := ms.loader.Load(path)
	if err == nil && geometry == nil {
		err = errors.New("loader returned no geometry")
	}
	if err != nil {
		if !errors.Is(err, core.ErrLoadFailed) {
			err = fmt.Errorf("%w: '%s': %w", core.ErrLoadFailed, path, err)
		}
		core.LogError(err.Error())
		return nil, err
	}
	return geometry, nil
}

/**
 * @brief Drops one reference. A mesh at zero stays in its slot until Acquire
 * reclaims it, unless AutoRelease is set, in which case it is deleted now.
 */
func (ms *MeshSystem) Release(mesh *metadata.Mesh) {
	if !ms.owns(mesh) || !mesh.InUse {
		core.LogWarn("cannot release a mesh that is not in use. Nothing was done.")
		return
	}
	if mesh.ReferenceCount > 0 {
		mesh.ReferenceCount--
	}
	if mesh.ReferenceCount == 0 && ms.config.AutoRelease {
		ms.DeleteMesh(mesh)
	}
}

/**
 * @brief Frees every primitive of the mesh and resets the slot to its never-used state.
 * Does nothing for nil meshes and slots that are not in use.
 */
func (ms *MeshSystem) DeleteMesh(mesh *metadata.Mesh) {
	if mesh == nil || !mesh.InUse {
		return
	}
	for _, primitive := range mesh.Primitives {
		primitive.Destroy()
	}
	id := mesh.ID
	*mesh = metadata.Mesh{ID: id}
}

// owns reports whether mesh points into this system's pool.
func (ms *MeshSystem) owns(mesh *metadata.Mesh) bool {
	return mesh != nil && int(mesh.ID) < len(ms.meshes) && &ms.meshes[mesh.ID] == mesh
}

func (ms *MeshSystem) checkMesh(mesh *metadata.Mesh) error {
	if !ms.initialized {
		return core.ErrNotInitialized
	}
	if !ms.owns(mesh) || !mesh.InUse {
		err := fmt.Errorf("%w: mesh is not an in-use slot of this system", core.ErrInvalidArgument)
		core.LogError(err.Error())
		return err
	}
	return nil
}

// AppendPrimitive uploads geometry as a further primitive of mesh, drawn after the existing ones.
func (ms *MeshSystem) AppendPrimitive(mesh *metadata.Mesh, geometry *metadata.GeometryConfig) error {
	if err := ms.checkMesh(mesh); err != nil {
		return err
	}
	primitive := &metadata.MeshPrimitive{}
	if err := renderer.UploadPrimitive(ms.device, primitive, geometry); err != nil {
		return err
	}
	if len(mesh.Primitives) == 0 {
		mesh.Extents = geometry.Extents
	} else {
		mesh.Extents = mesh.Extents.Merge(geometry.Extents)
	}
	mesh.Primitives = append(mesh.Primitives, primitive)
	return nil
}

// CreateFromGeometry builds a single-primitive mesh from generated geometry.
// A non-empty name is used as the de-duplication key, like a filename.
func (ms *MeshSystem) CreateFromGeometry(name string, geometry *metadata.GeometryConfig) (*metadata.Mesh, error) {
	if !ms.initialized {
		return nil, core.ErrNotInitialized
	}
	if mesh := ms.FindByFilename(name); mesh != nil {
		return mesh, nil
	}
	mesh, err := ms.Acquire()
	if err != nil {
		return nil, err
	}
	if err := ms.AppendPrimitive(mesh, geometry); err != nil {
		ms.DeleteMesh(mesh)
		return nil, err
	}
	mesh.Filename = name
	return mesh, nil
}

/**
 * @brief Creates a new mesh with its own copy of every primitive of src.
 * The copy has no filename, so it never takes part in de-duplication.
 */
func (ms *MeshSystem) Copy(src *metadata.Mesh) (*metadata.Mesh, error) {
	if err := ms.checkMesh(src); err != nil {
		return nil, err
	}
	geometries := make([]*metadata.GeometryConfig, 0, len(src.Primitives))
	for _, primitive := range src.Primitives {
		if primitive.Geometry == nil {
			err := fmt.Errorf("%w: primitive of mesh %d has no raw geometry", core.ErrInvalidArgument, src.ID)
			core.LogError(err.Error())
			return nil, err
		}
		geometries = append(geometries, primitive.Geometry.Clone())
	}
	extents := src.Extents

	// hold src so Acquire cannot reclaim its slot when it sits at zero references
	src.ReferenceCount++
	out, err := ms.Acquire()
	src.ReferenceCount--
	if err != nil {
		return nil, err
	}
	for _, geometry := range geometries {
		primitive := &metadata.MeshPrimitive{}
		if err := renderer.UploadPrimitive(ms.device, primitive, geometry); err != nil {
			ms.DeleteMesh(out)
			return nil, err
		}
		out.Primitives = append(out.Primitives, primitive)
	}
	out.Extents = extents
	return out, nil
}

/**
 * @brief Rotates (Euler XYZ, radians) and then translates every vertex of the mesh
 * and re-uploads it. The old buffers are only freed once every new upload succeeded.
 */
func (ms *MeshSystem) MoveVertices(mesh *metadata.Mesh, offset, rotation math.Vec3) error {
	if err := ms.checkMesh(mesh); err != nil {
		return err
	}
	rotate := math.NewMat4EulerXYZ(rotation.X, rotation.Y, rotation.Z)
	transform := rotate.Mul(math.NewMat4Translation(offset))

	replacements := make([]*metadata.MeshPrimitive, 0, len(mesh.Primitives))
	discard := func() {
		for _, p := range replacements {
			p.Destroy()
		}
	}

	var extents math.Extents3D
	for i, primitive := range mesh.Primitives {
		if primitive.Geometry == nil {
			discard()
			err := fmt.Errorf("%w: primitive %d of mesh %d has no raw geometry", core.ErrInvalidArgument, i, mesh.ID)
			core.LogError(err.Error())
			return err
		}
		geometry := primitive.Geometry.Clone()
		for v := range geometry.Vertices {
			geometry.Vertices[v].Position = geometry.Vertices[v].Position.Transform(transform)
			geometry.Vertices[v].Normal = geometry.Vertices[v].Normal.TransformDirection(rotate).Normalized()
		}
		geometry.RecalculateExtents()

		moved := &metadata.MeshPrimitive{}
		if err := renderer.UploadPrimitive(ms.device, moved, geometry); err != nil {
			discard()
			return err
		}
		replacements = append(replacements, moved)
		if i == 0 {
			extents = geometry.Extents
		} else {
			extents = extents.Merge(geometry.Extents)
		}
	}

	for _, primitive := range mesh.Primitives {
		primitive.Destroy()
	}
	mesh.Primitives = replacements
	mesh.Extents = extents
	return nil
}

// meshesAtPath returns every in-use mesh whose filename names the same file as path.
func (ms *MeshSystem) meshesAtPath(path string) []*metadata.Mesh {
	if path == "" {
		return nil
	}
	clean := filepath.Clean(path)
	var out []*metadata.Mesh
	for i := range ms.meshes {
		m := &ms.meshes[i]
		if m.InUse && m.Filename != "" && filepath.Clean(m.Filename) == clean {
			out = append(out, m)
		}
	}
	return out
}

/**
 * @brief Re-reads a loaded model file and swaps in the new geometry. Paths are
 * compared after cleaning, so "./a.obj" and "a.obj" name the same file. The
 * slot, the mesh pointer and the reference count stay the same. On failure the
 * mesh keeps its current primitives.
 */
func (ms *MeshSystem) Reload(path string) error {
	if !ms.initialized {
		return core.ErrNotInitialized
	}
	meshes := ms.meshesAtPath(path)
	if len(meshes) == 0 {
		err := fmt.Errorf("%w: '%s' is not loaded", core.ErrInvalidArgument, path)
		core.LogWarn(err.Error())
		return err
	}
	var errs []error
	for _, mesh := range meshes {
		if err := ms.reloadMesh(mesh); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (ms *MeshSystem) reloadMesh(mesh *metadata.Mesh) error {
	geometry, err := ms.load(mesh.Filename)
	if err != nil {
		return err
	}
	primitive := &metadata.MeshPrimitive{}
	if err := renderer.UploadPrimitive(ms.device, primitive, geometry); err != nil {
		geometry.Dispose()
		return err
	}

	for _, old := range mesh.Primitives {
		old.Destroy()
	}
	mesh.Primitives = []*metadata.MeshPrimitive{primitive}
	mesh.Extents = geometry.Extents

	core.LogInfo("reloaded mesh '%s'", mesh.Filename)
	return nil
}

// ReloadChanged reloads every mesh loaded from one of paths and skips paths nothing was loaded from.
// It returns how many meshes were reloaded and the joined errors of the failed ones.
func (ms *MeshSystem) ReloadChanged(paths []string) (int, error) {
	if !ms.initialized {
		return 0, core.ErrNotInitialized
	}
	reloaded := 0
	var errs []error
	for _, path := range paths {
		for _, mesh := range ms.meshesAtPath(path) {
			if err := ms.reloadMesh(mesh); err != nil {
				errs = append(errs, err)
				continue
			}
			reloaded++
		}
	}
	return reloaded, errors.Join(errs...)
}

// VertexLayout returns the vertex binding, a copy of the attribute descriptors and their count.
func (ms *MeshSystem) VertexLayout() (metadata.VertexInputBinding, []metadata.VertexInputAttribute, uint32) {
	if ms.layout == nil {
		return metadata.VertexInputBinding{}, nil, 0
	}
	return ms.layout.Binding(), ms.layout.Attributes(), ms.layout.AttributeCount()
}

func (ms *MeshSystem) StandardPipeline() *renderer.Pipeline {
	return ms.standardPipeline
}

func (ms *MeshSystem) SkyPipeline() *renderer.Pipeline {
	return ms.skyPipeline
}
