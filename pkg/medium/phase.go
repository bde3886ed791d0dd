package medium

import (
	"fmt"
	"math"

	"github.com/df07/go-volumetric-raytracer/pkg/core"
)

const inv4Pi = 1.0 / (4.0 * math.Pi)

// PhaseFunction is the distribution of scattered directions at a point in a
// participating medium. Both directions point away from the scattering
// point. The set of implementations is closed: HenyeyGreenstein and
// Isotropic.
type PhaseFunction interface {
	// P evaluates the phase function for the pair of directions
	P(wo, wi core.Vec3) float64
	// SampleP samples an incident direction and returns it with its density,
	// which equals P(wo, wi)
	SampleP(wo core.Vec3, u core.Vec2) (core.Vec3, float64)
	String() string

	phaseFunction()
}

// PhaseHG evaluates the Henyey-Greenstein phase function. cosTheta is the
// cosine between wo and wi; g must lie in (-1, 1).
func PhaseHG(cosTheta, g float64) float64 {
	denom := 1 + g*g + 2*g*cosTheta
	return inv4Pi * (1 - g*g) / (denom * math.Sqrt(denom))
}

// HenyeyGreenstein is the single-parameter analytic phase function.
// Positive G favors forward scattering, negative G back scattering.
type HenyeyGreenstein struct {
	G float64
}

// NewHenyeyGreenstein creates a Henyey-Greenstein phase function
func NewHenyeyGreenstein(g float64) HenyeyGreenstein {
	return HenyeyGreenstein{G: g}
}

func (hg HenyeyGreenstein) P(wo, wi core.Vec3) float64 {
	return PhaseHG(wo.Dot(wi), hg.G)
}

func (hg HenyeyGreenstein) SampleP(wo core.Vec3, u core.Vec2) (core.Vec3, float64) {
	g := hg.G

	var cosTheta float64
	if math.Abs(g) < 1e-3 {
		cosTheta = 1 - 2*u.X
	} else {
		sqrTerm := (1 - g*g) / (1 - g + 2*g*u.X)
		cosTheta = -(1 + g*g - sqrTerm*sqrTerm) / (2 * g)
	}
	cosTheta = max(-1, min(1, cosTheta))

	sinTheta := math.Sqrt(math.Max(0, 1-cosTheta*cosTheta))
	phi := 2 * math.Pi * u.Y
	v1, v2 := core.CoordinateSystem(wo)
	wi := core.SphericalDirection(sinTheta, cosTheta, phi, v1, v2, wo)
	return wi, PhaseHG(cosTheta, g)
}

func (hg HenyeyGreenstein) String() string {
	return fmt.Sprintf("[ HenyeyGreenstein g: %f ]", hg.G)
}

func (HenyeyGreenstein) phaseFunction() {}

// Isotropic scatters uniformly over the sphere
type Isotropic struct{}

func (Isotropic) P(wo, wi core.Vec3) float64 {
	return inv4Pi
}

func (Isotropic) SampleP(wo core.Vec3, u core.Vec2) (core.Vec3, float64) {
	return core.SampleOnUnitSphere(u), inv4Pi
}

func (Isotropic) String() string {
	return "[ Isotropic ]"
}

func (Isotropic) phaseFunction() {}
