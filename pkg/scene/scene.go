package scene

import (
	"fmt"
	"math"

	"github.com/df07/go-volumetric-raytracer/pkg/core"
	"github.com/df07/go-volumetric-raytracer/pkg/medium"
)

// CameraConfig describes the camera placement and the image it produces
type CameraConfig struct {
	Center      core.Vec3 // Camera position
	LookAt      core.Vec3 // Point the camera looks at
	Up          core.Vec3 // Up direction
	Width       int       // Image width in pixels
	AspectRatio float64   // Width / height
	VFov        float64   // Vertical field of view in degrees
}

// Height returns the image height implied by the width and aspect ratio
func (c CameraConfig) Height() int {
	return max(1, int(float64(c.Width)/c.AspectRatio))
}

// Scene is a single participating-medium volume bounded by a sphere and lit
// by a distant sun and a gradient sky
type Scene struct {
	CameraConfig CameraConfig
	Boundary     Sphere                 // Surface separating the media
	Media        medium.MediumInterface // Inside: the volume, Outside: usually vacuum
	SunDirection core.Vec3              // Unit direction toward the sun
	SunRadiance  core.Vec3
	TopColor     core.Vec3 // Sky color straight up
	BottomColor  core.Vec3 // Sky color straight down
}

// Background returns the sky gradient for a ray direction
func (s *Scene) Background(direction core.Vec3) core.Vec3 {
	unitDirection := direction.Normalize()

	// Use the y-component to create a gradient (map from -1,1 to 0,1)
	t := 0.5 * (unitDirection.Y + 1.0)

	// Linear interpolation: (1-t)*bottom + t*top
	return s.BottomColor.Multiply(1.0 - t).Add(s.TopColor.Multiply(t))
}

// Sphere is an index-matched boundary: rays cross it without refraction
type Sphere struct {
	Center core.Vec3
	Radius float64
}

// Intersect returns both ray parameters where a unit-direction ray meets
// the sphere, t0 <= t1. ok is false when the ray misses or the sphere lies
// entirely behind the origin.
func (s Sphere) Intersect(ray core.Ray) (t0, t1 float64, ok bool) {
	oc := ray.Origin.Subtract(s.Center)
	a := ray.Direction.Dot(ray.Direction)
	halfB := oc.Dot(ray.Direction)
	c := oc.Dot(oc) - s.Radius*s.Radius

	discriminant := halfB*halfB - a*c
	if discriminant < 0 {
		return 0, 0, false
	}

	sqrtD := math.Sqrt(discriminant)
	t0 = (-halfB - sqrtD) / a
	t1 = (-halfB + sqrtD) / a
	if t1 <= 0 {
		return 0, 0, false
	}
	return t0, t1, true
}

// Contains reports whether p lies inside the sphere
func (s Sphere) Contains(p core.Vec3) bool {
	return p.Subtract(s.Center).LengthSquared() < s.Radius*s.Radius
}

// FogConfig selects the medium filling the sphere
type FogConfig struct {
	MediumName string    // Measured material name; empty uses SigmaA/SigmaS
	Density    float64   // Multiplier applied to the coefficients
	SigmaA     core.Vec3 // Absorption when MediumName is empty
	SigmaS     core.Vec3 // Scattering when MediumName is empty
	G          float64   // Henyey-Greenstein asymmetry, in (-1, 1)
	Width      int       // Image width
}

// DefaultFogConfig returns a forward-scattering grey fog
func DefaultFogConfig() FogConfig {
	return FogConfig{
		Density: 1.0,
		SigmaA:  core.NewVec3(0.05, 0.05, 0.05),
		SigmaS:  core.NewVec3(1.2, 1.2, 1.2),
		G:       0.6,
		Width:   320,
	}
}

// NewFogSphereScene creates a unit sphere of homogeneous medium in vacuum
func NewFogSphereScene(config FogConfig) (*Scene, error) {
	if config.G <= -1 || config.G >= 1 {
		return nil, fmt.Errorf("asymmetry g=%f outside (-1, 1)", config.G)
	}
	if config.Density <= 0 {
		return nil, fmt.Errorf("density must be positive, got %f", config.Density)
	}

	var fog *medium.HomogeneousMedium
	if config.MediumName != "" {
		m, err := medium.NewNamedHomogeneousMedium(config.MediumName, config.Density, config.G)
		if err != nil {
			return nil, err
		}
		fog = m
	} else {
		fog = medium.NewHomogeneousMedium(config.SigmaA.Multiply(config.Density), config.SigmaS.Multiply(config.Density), config.G)
	}

	width := config.Width
	if width <= 0 {
		width = DefaultFogConfig().Width
	}

	return &Scene{
		CameraConfig: CameraConfig{
			Center:      core.NewVec3(0, 0.4, 3.2),
			LookAt:      core.NewVec3(0, 0, 0),
			Up:          core.NewVec3(0, 1, 0),
			Width:       width,
			AspectRatio: 4.0 / 3.0,
			VFov:        40,
		},
		Boundary:     Sphere{Center: core.NewVec3(0, 0, 0), Radius: 1},
		Media:        medium.NewMediumInterface(fog, nil),
		SunDirection: core.NewVec3(0.6, 0.7, 0.4).Normalize(),
		SunRadiance:  core.NewVec3(4.0, 3.8, 3.4),
		TopColor:     core.NewVec3(0.5, 0.7, 1.0),
		BottomColor:  core.NewVec3(0.08, 0.07, 0.06),
	}, nil
}
