package renderer

import (
	"math"

	"github.com/df07/go-volumetric-raytracer/pkg/core"
	"github.com/df07/go-volumetric-raytracer/pkg/scene"
)

// Camera generates rays for rendering
type Camera struct {
	origin          core.Vec3
	lowerLeftCorner core.Vec3
	horizontal      core.Vec3
	vertical        core.Vec3
	width, height   int
}

// NewCamera creates a pinhole camera looking from config.Center at config.LookAt
func NewCamera(config scene.CameraConfig) *Camera {
	theta := config.VFov * math.Pi / 180
	viewportHeight := 2.0 * math.Tan(theta/2)
	viewportWidth := config.AspectRatio * viewportHeight

	w := config.Center.Subtract(config.LookAt).Normalize()
	u := config.Up.Cross(w).Normalize()
	v := w.Cross(u)

	origin := config.Center
	horizontal := u.Multiply(viewportWidth)
	vertical := v.Multiply(viewportHeight)
	lowerLeftCorner := origin.Subtract(horizontal.Multiply(0.5)).
		Subtract(vertical.Multiply(0.5)).
		Subtract(w)

	return &Camera{
		origin:          origin,
		horizontal:      horizontal,
		vertical:        vertical,
		lowerLeftCorner: lowerLeftCorner,
		width:           config.Width,
		height:          config.Height(),
	}
}

// GetRay generates a ray through pixel (i, j), offset inside the pixel by
// jitter in [0,1)². Row 0 is the top of the image.
func (c *Camera) GetRay(i, j int, jitter core.Vec2) core.Ray {
	s := (float64(i) + jitter.X) / float64(c.width)
	t := 1.0 - (float64(j)+jitter.Y)/float64(c.height)

	direction := c.lowerLeftCorner.
		Add(c.horizontal.Multiply(s)).
		Add(c.vertical.Multiply(t)).
		Subtract(c.origin)

	return core.NewRay(c.origin, direction)
}
