// Package medium models participating media: phase functions, the media on
// either side of a boundary, and a homogeneous medium with measured
// scattering coefficients.
package medium

import "github.com/df07/go-volumetric-raytracer/pkg/core"

// Medium describes how light is absorbed and scattered along a ray segment.
// Implementations are used through pointers so that MediumInterface can
// compare them by identity.
type Medium interface {
	// Tr returns the transmittance along ray from t=0 to t=tMax
	Tr(ray core.Ray, tMax float64, sampler core.Sampler) core.Vec3

	// Sample samples a scattering event in [0, tMax). It returns the path
	// throughput weight and, if a real scattering event was sampled, the
	// interaction (allocated from arena when one is given).
	Sample(ray core.Ray, tMax float64, sampler core.Sampler, arena *core.Arena[MediumInteraction]) (core.Vec3, *MediumInteraction)
}

// MediumInteraction is a scattering event inside a medium
type MediumInteraction struct {
	Point  core.Vec3     // Scattering position
	Wo     core.Vec3     // Direction back along the incoming ray
	Medium Medium        // Medium the event happened in
	Phase  PhaseFunction // Phase function at the event
}

// IsValid reports whether the interaction carries a phase function
func (mi *MediumInteraction) IsValid() bool {
	return mi != nil && mi.Phase != nil
}

// MediumInterface pairs the media on the inside and outside of a boundary.
// A nil medium means vacuum.
type MediumInterface struct {
	Inside, Outside Medium
}

// NewMediumInterface creates an interface between two media
func NewMediumInterface(inside, outside Medium) MediumInterface {
	return MediumInterface{Inside: inside, Outside: outside}
}

// NewUniformMediumInterface creates an interface with the same medium on
// both sides
func NewUniformMediumInterface(m Medium) MediumInterface {
	return MediumInterface{Inside: m, Outside: m}
}

// IsMediumTransition reports whether crossing the boundary changes medium
func (mi MediumInterface) IsMediumTransition() bool {
	return mi.Inside != mi.Outside
}

// Across returns the medium a ray enters when it crosses the boundary,
// given whether it starts inside
func (mi MediumInterface) Across(fromInside bool) Medium {
	if fromInside {
		return mi.Outside
	}
	return mi.Inside
}

func allocInteraction(arena *core.Arena[MediumInteraction]) *MediumInteraction {
	if arena == nil {
		return &MediumInteraction{}
	}
	return arena.Alloc()
}
