package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-bind/common"
	"github.com/Carmen-Shannon/oxy-bind/engine/renderer/schema"
	"github.com/chewxy/math32"
)

// DefaultViewProjectionName is the constant Bind writes unless WithViewProjectionName says otherwise.
const DefaultViewProjectionName = "g_ViewProj"

// minDistance is the closest Zoom brings the eye to the target.
const minDistance = 0.5

type cameraImpl struct {
	mu *sync.Mutex

	position [3]float32
	target   [3]float32
	up       [3]float32

	fov    float32
	aspect float32
	near   float32
	far    float32

	viewProjName string

	view           common.Mat4
	projection     common.Mat4
	viewProjection common.Mat4
}

// Camera holds a perspective look-at camera and writes its view-projection matrix into
// resource sets by constant name. Safe for concurrent use.
type Camera interface {
	// Position returns the eye position.
	Position() [3]float32

	// Target returns the point the camera looks at.
	Target() [3]float32

	// Fov returns the vertical field of view in radians.
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	Aspect() float32

	// View returns the current view matrix.
	View() common.Mat4

	// Projection returns the current projection matrix.
	Projection() common.Mat4

	// ViewProjection returns projection * view.
	ViewProjection() common.Mat4

	// SetPosition moves the eye and recomputes matrices.
	//
	// Parameters:
	//   - position: the eye position
	SetPosition(position [3]float32)

	// SetTarget sets the look-at point and recomputes matrices.
	//
	// Parameters:
	//   - target: the point to look at
	SetTarget(target [3]float32)

	// SetFov sets the field of view in radians and recomputes matrices.
	//
	// Parameters:
	//   - fov: field of view in radians
	SetFov(fov float32)

	// SetAspect sets the aspect ratio and recomputes matrices. Non-positive values are ignored.
	//
	// Parameters:
	//   - aspect: the aspect ratio
	SetAspect(aspect float32)

	// Zoom moves the eye along the view direction by amount, stopping minDistance short of the
	// target. Positive amounts move closer.
	//
	// Parameters:
	//   - amount: distance to move
	Zoom(amount float32)

	// Resize sets the aspect ratio from a surface size.
	//
	// Parameters:
	//   - width, height: the surface size in pixels
	Resize(width, height int)

	// Bind writes the view-projection matrix into set under the camera's constant name.
	// Call between set.BeginUpdate and set.EndUpdate. Sets whose schema lacks the name are
	// left untouched.
	//
	// Parameters:
	//   - set: the resource set being updated
	//
	// Returns:
	//   - bool: whether the schema declares the constant
	Bind(set schema.ResourceSet) bool
}

var _ Camera = &cameraImpl{}

// NewCamera creates a Camera at (0, 0, 4) looking at the origin with a 45 degree field of view.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:           &sync.Mutex{},
		position:     [3]float32{0, 0, 4},
		up:           [3]float32{0, 1, 0},
		fov:          45.0 * (math32.Pi / 180.0), // radians
		aspect:       1.0,
		near:         0.1,
		far:          100.0,
		viewProjName: DefaultViewProjectionName,
	}
	for _, option := range options {
		option(c)
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Position() [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *cameraImpl) Target() [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) View() common.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *cameraImpl) Projection() common.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projection
}

func (c *cameraImpl) ViewProjection() common.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjection
}

func (c *cameraImpl) SetPosition(position [3]float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = position
	c.updateMatrices()
}

func (c *cameraImpl) SetTarget(target [3]float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = target
	c.updateMatrices()
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
	c.updateMatrices()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	if aspect <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.updateMatrices()
}

func (c *cameraImpl) Zoom(amount float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var dir [3]float32
	for i := range dir {
		dir[i] = c.position[i] - c.target[i]
	}
	dist := math32.Sqrt(dir[0]*dir[0] + dir[1]*dir[1] + dir[2]*dir[2])
	if dist == 0 {
		return
	}
	next := max(dist-amount, minDistance)
	for i := range dir {
		c.position[i] = c.target[i] + dir[i]/dist*next
	}
	c.updateMatrices()
}

func (c *cameraImpl) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.SetAspect(float32(width) / float32(height))
}

func (c *cameraImpl) Bind(set schema.ResourceSet) bool {
	sch := set.Schema()
	idx := sch.LookupConstant(c.viewProjName)
	if idx == sch.ConstantCount() {
		return false
	}
	vp := c.ViewProjection()
	set.BindConstant(idx, vp.Bytes())
	return true
}

// updateMatrices recomputes view, projection and their product. Must be called with c.mu held.
func (c *cameraImpl) updateMatrices() {
	c.view = common.LookAt(c.position, c.target, c.up)
	c.projection = common.Perspective(c.fov, c.aspect, c.near, c.far)
	c.viewProjection = c.projection.Mul(c.view)
}
