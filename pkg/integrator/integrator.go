package integrator

import (
	"github.com/df07/go-volumetric-raytracer/pkg/core"
	"github.com/df07/go-volumetric-raytracer/pkg/medium"
	"github.com/df07/go-volumetric-raytracer/pkg/scene"
)

// Integrator defines the interface for light transport algorithms
type Integrator interface {
	// Li returns the radiance arriving along ray. Scattering events are
	// allocated from arena, which the caller resets between samples.
	Li(ray core.Ray, scn *scene.Scene, sampler core.Sampler, arena *core.Arena[medium.MediumInteraction]) core.Vec3
}

// Config controls path length and termination
type Config struct {
	MaxDepth                  int // Maximum number of real scattering events
	RussianRouletteMinBounces int // Scatters before Russian roulette kicks in
}

// DefaultConfig returns sensible default values
func DefaultConfig() Config {
	return Config{
		MaxDepth:                  64,
		RussianRouletteMinBounces: 8,
	}
}
