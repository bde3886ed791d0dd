package integrator

import (
	"math"

	"github.com/df07/go-volumetric-raytracer/pkg/core"
	"github.com/df07/go-volumetric-raytracer/pkg/medium"
	"github.com/df07/go-volumetric-raytracer/pkg/scene"
)

// rayEpsilon offsets rays leaving the boundary so they do not re-hit it
const rayEpsilon = 1e-4

// VolumePathIntegrator traces paths through the media on both sides of the
// scene boundary. Each real scattering event gathers direct light from the
// sun and continues in a direction drawn from the phase function.
type VolumePathIntegrator struct {
	config Config
}

// NewVolumePathIntegrator creates a new volumetric path tracer
func NewVolumePathIntegrator(config Config) *VolumePathIntegrator {
	return &VolumePathIntegrator{config: config}
}

// Li computes the radiance along ray
func (vp *VolumePathIntegrator) Li(ray core.Ray, scn *scene.Scene, sampler core.Sampler, arena *core.Arena[medium.MediumInteraction]) core.Vec3 {
	radiance := core.Vec3{}
	throughput := core.NewVec3(1, 1, 1)
	ray = core.NewRay(ray.Origin, ray.Direction.Normalize())
	inside := scn.Boundary.Contains(ray.Origin)
	scatters := 0

	for {
		current := vp.mediumAt(scn, inside)
		tBoundary := vp.boundaryDistance(scn, ray)

		var mi *medium.MediumInteraction
		if current != nil {
			weight, interaction := current.Sample(ray, tBoundary, sampler, arena)
			throughput = throughput.MultiplyVec(weight)
			mi = interaction
		}
		if throughput.IsZero() {
			break
		}

		if mi == nil {
			// No scattering before the boundary: cross it or escape
			if math.IsInf(tBoundary, 1) {
				radiance = radiance.Add(throughput.MultiplyVec(scn.Background(ray.Direction)))
				break
			}
			ray = core.NewRay(ray.At(tBoundary+rayEpsilon), ray.Direction)
			inside = !inside
			continue
		}

		scatters++
		if scatters > vp.config.MaxDepth {
			break
		}

		// Single scattering from the sun
		sunTr := vp.transmittance(scn, mi.Point, scn.SunDirection, inside, sampler)
		phase := mi.Phase.P(mi.Wo, scn.SunDirection)
		radiance = radiance.Add(throughput.MultiplyVec(sunTr).MultiplyVec(scn.SunRadiance).Multiply(phase))

		wi, pdf := mi.Phase.SampleP(mi.Wo, sampler.Get2D())
		if pdf <= 0 {
			break
		}
		throughput = throughput.Multiply(mi.Phase.P(mi.Wo, wi) / pdf)
		ray = core.NewRay(mi.Point, wi)

		shouldTerminate, rrCompensation := vp.applyRussianRoulette(scatters, throughput, sampler)
		if shouldTerminate {
			break
		}
		throughput = throughput.Multiply(rrCompensation)
	}

	return radiance
}

// mediumAt returns the medium on the given side of the boundary
func (vp *VolumePathIntegrator) mediumAt(scn *scene.Scene, inside bool) medium.Medium {
	if inside {
		return scn.Media.Inside
	}
	return scn.Media.Outside
}

// boundaryDistance returns the distance to the next boundary crossing along
// a unit-direction ray
func (vp *VolumePathIntegrator) boundaryDistance(scn *scene.Scene, ray core.Ray) float64 {
	t0, t1, ok := scn.Boundary.Intersect(ray)
	if !ok {
		return math.Inf(1)
	}
	if t0 > rayEpsilon {
		return t0
	}
	if t1 > rayEpsilon {
		return t1
	}
	return math.Inf(1)
}

// transmittance follows a shadow ray from p through every medium it crosses
// on its way out of the scene
func (vp *VolumePathIntegrator) transmittance(scn *scene.Scene, p, direction core.Vec3, inside bool, sampler core.Sampler) core.Vec3 {
	tr := core.NewVec3(1, 1, 1)
	ray := core.NewRay(p, direction)

	for {
		tBoundary := vp.boundaryDistance(scn, ray)
		if current := vp.mediumAt(scn, inside); current != nil {
			tr = tr.MultiplyVec(current.Tr(ray, tBoundary, sampler))
		}
		if math.IsInf(tBoundary, 1) || tr.IsZero() {
			return tr
		}
		ray = core.NewRay(ray.At(tBoundary+rayEpsilon), direction)
		inside = !inside
	}
}

// applyRussianRoulette determines if a path should be terminated and returns the compensation factor
// Returns (shouldTerminate, compensationFactor)
func (vp *VolumePathIntegrator) applyRussianRoulette(scatters int, throughput core.Vec3, sampler core.Sampler) (bool, float64) {
	if scatters < vp.config.RussianRouletteMinBounces {
		return false, 1.0 // Don't terminate, no compensation needed
	}

	// Use luminance for perceptually accurate survival probability
	luminance := throughput.Luminance()

	// Conservative bounds: survivalProb between 0.5 and 0.95
	survivalProb := math.Min(0.95, math.Max(0.5, luminance))

	if sampler.Get1D() > survivalProb {
		return true, 0.0 // Terminate path
	}

	return false, 1.0 / survivalProb
}
