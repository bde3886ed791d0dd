package renderer

import (
	"math"

	"github.com/df07/go-volumetric-raytracer/pkg/core"
	"github.com/df07/go-volumetric-raytracer/pkg/integrator"
	"github.com/df07/go-volumetric-raytracer/pkg/medium"
	"github.com/df07/go-volumetric-raytracer/pkg/scene"
)

// TileRenderer samples pixels of one scene with an integrator
type TileRenderer struct {
	scene      *scene.Scene
	camera     *Camera
	integrator integrator.Integrator
	config     Config
}

// NewTileRenderer creates a new tile renderer with the given scene and integrator
func NewTileRenderer(scn *scene.Scene, integ integrator.Integrator, config Config) *TileRenderer {
	return &TileRenderer{
		scene:      scn,
		camera:     NewCamera(scn.CameraConfig),
		integrator: integ,
		config:     config,
	}
}

// RenderRow brings every pixel of row y in [x0, x1) up to targetSamples,
// stopping early for pixels that have converged. It returns the number of
// samples taken and the sum of their luminance.
func (tr *TileRenderer) RenderRow(y, x0, x1 int, pixelStats [][]PixelStats, sampler core.Sampler, arena *core.Arena[medium.MediumInteraction], targetSamples int) (int, float64) {
	samples := 0
	luminance := 0.0
	for x := x0; x < x1; x++ {
		n, lum := tr.adaptiveSamplePixel(x, y, &pixelStats[y][x], sampler, arena, targetSamples)
		samples += n
		luminance += lum
	}
	return samples, luminance
}

// adaptiveSamplePixel samples one pixel until it converges or reaches maxSamples
func (tr *TileRenderer) adaptiveSamplePixel(i, j int, ps *PixelStats, sampler core.Sampler, arena *core.Arena[medium.MediumInteraction], maxSamples int) (int, float64) {
	initialSampleCount := ps.SampleCount
	luminance := 0.0

	for ps.SampleCount < maxSamples && !tr.shouldStopSampling(ps, maxSamples) {
		ray := tr.camera.GetRay(i, j, sampler.Get2D())
		color := tr.integrator.Li(ray, tr.scene, sampler, arena)
		arena.Reset()
		ps.AddSample(color)
		luminance += color.Luminance()
	}

	return ps.SampleCount - initialSampleCount, luminance
}

// shouldStopSampling determines if adaptive sampling should stop based on perceptual relative error
func (tr *TileRenderer) shouldStopSampling(ps *PixelStats, maxSamples int) bool {
	// Calculate minimum samples as percentage of max samples. A single sample
	// has zero variance, so at least 2 are needed before the error estimate means anything.
	minSamples := min(maxSamples, max(2, int(float64(maxSamples)*tr.config.AdaptiveMinSamples)))

	// Don't stop before minimum samples
	if ps.SampleCount < minSamples {
		return false
	}

	// Calculate variance from accumulated statistics
	mean := ps.LuminanceAccum / float64(ps.SampleCount)
	meanSq := ps.LuminanceSqAccum / float64(ps.SampleCount)
	variance := math.Max(0, meanSq-mean*mean)

	// Avoid division by zero for black pixels
	if mean <= 1e-8 {
		return variance < 1e-6 // Hardcoded epsilon for dark pixels
	}

	// Stop when the coefficient of variation is below the threshold
	relativeError := math.Sqrt(variance) / mean
	return relativeError < tr.config.AdaptiveThreshold
}
