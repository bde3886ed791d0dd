package medium

import (
	"slices"
	"strings"

	"github.com/df07/go-volumetric-raytracer/pkg/core"
)

// measuredSS holds measured subsurface coefficients in mm^-1
type measuredSS struct {
	name        string
	sigmaPrimeS core.Vec3
	sigmaA      core.Vec3
}

// Jensen et al. 2001, "A Practical Model for Subsurface Light Transport"
var measuredMedia = []measuredSS{
	{"Apple", core.Vec3{X: 2.29, Y: 2.39, Z: 1.97}, core.Vec3{X: 0.0030, Y: 0.0034, Z: 0.046}},
	{"Chicken1", core.Vec3{X: 0.15, Y: 0.21, Z: 0.38}, core.Vec3{X: 0.015, Y: 0.077, Z: 0.19}},
	{"Chicken2", core.Vec3{X: 0.19, Y: 0.25, Z: 0.32}, core.Vec3{X: 0.018, Y: 0.088, Z: 0.20}},
	{"Cream", core.Vec3{X: 7.38, Y: 5.47, Z: 3.15}, core.Vec3{X: 0.0002, Y: 0.0028, Z: 0.0163}},
	{"Ketchup", core.Vec3{X: 0.18, Y: 0.07, Z: 0.03}, core.Vec3{X: 0.061, Y: 0.97, Z: 1.45}},
	{"Marble", core.Vec3{X: 2.19, Y: 2.62, Z: 3.00}, core.Vec3{X: 0.0021, Y: 0.0041, Z: 0.0071}},
	{"Potato", core.Vec3{X: 0.68, Y: 0.70, Z: 0.55}, core.Vec3{X: 0.0024, Y: 0.0090, Z: 0.12}},
	{"Skimmilk", core.Vec3{X: 0.70, Y: 1.22, Z: 1.90}, core.Vec3{X: 0.0014, Y: 0.0025, Z: 0.0142}},
	{"Skin1", core.Vec3{X: 0.74, Y: 0.88, Z: 1.01}, core.Vec3{X: 0.032, Y: 0.17, Z: 0.48}},
	{"Skin2", core.Vec3{X: 1.09, Y: 1.59, Z: 1.79}, core.Vec3{X: 0.013, Y: 0.070, Z: 0.145}},
	{"Spectralon", core.Vec3{X: 11.6, Y: 20.4, Z: 14.9}, core.Vec3{X: 0.00, Y: 0.00, Z: 0.00}},
	{"Wholemilk", core.Vec3{X: 2.55, Y: 3.21, Z: 3.77}, core.Vec3{X: 0.0011, Y: 0.0024, Z: 0.014}},
}

// GetMediumScatteringProperties looks up the absorption and reduced
// scattering coefficients of a measured material. Names match
// case-insensitively.
func GetMediumScatteringProperties(name string) (sigmaA, sigmaS core.Vec3, ok bool) {
	for _, m := range measuredMedia {
		if strings.EqualFold(m.name, name) {
			return m.sigmaA, m.sigmaPrimeS, true
		}
	}
	return core.Vec3{}, core.Vec3{}, false
}

// MediumNames lists the measured materials in sorted order
func MediumNames() []string {
	names := make([]string, 0, len(measuredMedia))
	for _, m := range measuredMedia {
		names = append(names, m.name)
	}
	slices.Sort(names)
	return names
}
