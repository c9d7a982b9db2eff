package components

import (
	"github.com/spaghettifunk/meshforge/engine/math"
	"github.com/spaghettifunk/meshforge/engine/renderer/metadata"
)

/** @brief The name of the default camera. */
const DefaultCameraName string = "default"

const (
	DefaultFOV      float32 = 45.0
	DefaultNearClip float32 = 0.1
	DefaultFarClip  float32 = 1000.0

	// 89 degrees, keeps the camera out of gimbal lock.
	pitchLimit float32 = 1.55334306
)

/**
 * @brief A perspective camera. It serves the view and projection
 * matrices and the camera position consumed by mesh uniforms.
 */
type Camera struct {
	/**
	 * @brief The position of this camera.
	 * NOTE: Do not set this directly, use SetPosition() instead
	 * so the view matrix is recalculated when needed.
	 */
	Position math.Vec3
	/**
	 * @brief The rotation of this camera using Euler angles (pitch, yaw, roll).
	 * NOTE: Do not set this directly, use SetEulerRotation() instead
	 * so the view matrix is recalculated when needed.
	 */
	EulerRotation math.Vec3
	/** @brief Internal flag used to determine when the view matrix needs to be rebuilt. */
	IsDirty bool
	/** @brief The cached view matrix. Read it through View(). */
	ViewMatrix math.Mat4

	FOV      float32
	NearClip float32
	FarClip  float32
	viewport metadata.Extent2D
}

func NewCamera(viewport metadata.Extent2D) *Camera {
	camera := &Camera{}
	camera.Reset()
	camera.viewport = viewport
	return camera
}

func (c *Camera) Reset() {
	c.EulerRotation = math.NewVec3Zero()
	c.Position = math.NewVec3Zero()
	c.IsDirty = false
	c.ViewMatrix = math.NewMat4Identity()
	c.FOV = DefaultFOV
	c.NearClip = DefaultNearClip
	c.FarClip = DefaultFarClip
}

func (c *Camera) GetPosition() math.Vec3 {
	return c.Position
}

func (c *Camera) SetPosition(position math.Vec3) {
	c.Position = position
	c.IsDirty = true
}

// Position2D is the camera position as seen from above the XY plane.
func (c *Camera) Position2D() math.Vec2 {
	return math.NewVec2(c.Position.X, c.Position.Y)
}

func (c *Camera) GetEulerRotation() math.Vec3 {
	return c.EulerRotation
}

func (c *Camera) SetEulerRotation(rotation math.Vec3) {
	c.EulerRotation = rotation
	c.IsDirty = true
}

func (c *Camera) SetViewport(viewport metadata.Extent2D) {
	c.viewport = viewport
}

func (c *Camera) rotation() math.Mat4 {
	return math.NewMat4EulerXYZ(c.EulerRotation.X, c.EulerRotation.Y, c.EulerRotation.Z)
}

// View returns the world-to-camera matrix.
func (c *Camera) View() math.Mat4 {
	if c.IsDirty {
		// inverse of rotate-then-translate
		translation := math.NewMat4Translation(c.Position.MulScalar(-1))
		c.ViewMatrix = translation.Mul(c.rotation().Transposed())
		c.IsDirty = false
	}
	return c.ViewMatrix
}

func (c *Camera) Projection() math.Mat4 {
	aspect := float32(1)
	if c.viewport.Width > 0 && c.viewport.Height > 0 {
		aspect = float32(c.viewport.Width) / float32(c.viewport.Height)
	}
	return math.NewMat4Perspective(math.DegToRad(c.FOV), aspect, c.NearClip, c.FarClip)
}

func (c *Camera) Forward() math.Vec3 {
	return math.NewVec3(0, 0, -1).TransformDirection(c.rotation())
}

func (c *Camera) Right() math.Vec3 {
	return math.NewVec3(1, 0, 0).TransformDirection(c.rotation())
}

func (c *Camera) MoveForward(amount float32) {
	c.Position = c.Position.Add(c.Forward().MulScalar(amount))
	c.IsDirty = true
}

func (c *Camera) MoveRight(amount float32) {
	c.Position = c.Position.Add(c.Right().MulScalar(amount))
	c.IsDirty = true
}

func (c *Camera) MoveUp(amount float32) {
	c.Position.Y += amount
	c.IsDirty = true
}

func (c *Camera) Yaw(amount float32) {
	c.EulerRotation.Y += amount
	c.IsDirty = true
}

func (c *Camera) Pitch(amount float32) {
	c.EulerRotation.X += amount

	// Clamp to avoid Gimbal lock.
	c.EulerRotation.X = math.Clamp(c.EulerRotation.X, -pitchLimit, pitchLimit)

	c.IsDirty = true
}
