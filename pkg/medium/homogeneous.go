package medium

import (
	"fmt"
	"math"

	"github.com/df07/go-volumetric-raytracer/pkg/core"
)

// HomogeneousMedium has constant absorption and scattering coefficients
// (per unit distance, per RGB channel) and a Henyey-Greenstein phase
// function.
type HomogeneousMedium struct {
	SigmaA core.Vec3
	SigmaS core.Vec3
	SigmaT core.Vec3 // SigmaA + SigmaS
	G      float64
}

// NewHomogeneousMedium creates a homogeneous medium
func NewHomogeneousMedium(sigmaA, sigmaS core.Vec3, g float64) *HomogeneousMedium {
	return &HomogeneousMedium{
		SigmaA: sigmaA,
		SigmaS: sigmaS,
		SigmaT: sigmaA.Add(sigmaS),
		G:      g,
	}
}

// NewNamedHomogeneousMedium creates a medium from the measured
// coefficients of a named material, multiplied by scale
func NewNamedHomogeneousMedium(name string, scale, g float64) (*HomogeneousMedium, error) {
	sigmaA, sigmaS, ok := GetMediumScatteringProperties(name)
	if !ok {
		return nil, fmt.Errorf("unknown medium %q", name)
	}
	return NewHomogeneousMedium(sigmaA.Multiply(scale), sigmaS.Multiply(scale), g), nil
}

// Tr applies Beer-Lambert attenuation over the segment
func (m *HomogeneousMedium) Tr(ray core.Ray, tMax float64, sampler core.Sampler) core.Vec3 {
	distance := math.Min(tMax*ray.Direction.Length(), math.MaxFloat64)
	return m.SigmaT.Multiply(-distance).Exp()
}

// Sample picks an RGB channel uniformly, samples a free-flight distance
// proportional to that channel's transmittance, and returns the
// single-sample estimate averaged over all channels.
func (m *HomogeneousMedium) Sample(ray core.Ray, tMax float64, sampler core.Sampler, arena *core.Arena[MediumInteraction]) (core.Vec3, *MediumInteraction) {
	channel := min(int(sampler.Get1D()*3), 2)
	dirLength := ray.Direction.Length()
	dist := math.Inf(1)
	if sigmaT := m.SigmaT.Component(channel); sigmaT > 0 {
		dist = -math.Log(1-sampler.Get1D()) / sigmaT
	}
	t := math.Min(dist/dirLength, tMax)
	sampledMedium := t < tMax

	var mi *MediumInteraction
	if sampledMedium {
		mi = allocInteraction(arena)
		mi.Point = ray.At(t)
		mi.Wo = ray.Direction.Negate().Normalize()
		mi.Medium = m
		mi.Phase = NewHenyeyGreenstein(m.G)
	}

	tr := m.SigmaT.Multiply(-math.Min(t, math.MaxFloat64) * dirLength).Exp()

	density := tr
	if sampledMedium {
		density = m.SigmaT.MultiplyVec(tr)
	}
	pdf := density.Average()
	if pdf == 0 {
		pdf = 1
	}

	if sampledMedium {
		return tr.MultiplyVec(m.SigmaS).Multiply(1 / pdf), mi
	}
	return tr.Multiply(1 / pdf), nil
}

func (m *HomogeneousMedium) String() string {
	return fmt.Sprintf("[ HomogeneousMedium sigma_a: %v sigma_s: %v g: %f ]", m.SigmaA, m.SigmaS, m.G)
}
