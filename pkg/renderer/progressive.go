package renderer

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"go.uber.org/atomic"

	"github.com/df07/go-volumetric-raytracer/pkg/core"
	"github.com/df07/go-volumetric-raytracer/pkg/integrator"
	"github.com/df07/go-volumetric-raytracer/pkg/medium"
	"github.com/df07/go-volumetric-raytracer/pkg/parallel"
	"github.com/df07/go-volumetric-raytracer/pkg/scene"
)

// Worker counter names
const (
	CounterSamples = "samples"
	CounterRows    = "rows"
)

// Config contains configuration for progressive rendering
type Config struct {
	TileSize           int     // Size of each tile
	InitialSamples     int     // Samples for first pass (1 recommended)
	MaxSamplesPerPixel int     // Maximum total samples per pixel
	Passes             int     // Number of passes
	AdaptiveMinSamples float64 // Fraction of the pass target taken before adaptive stopping
	AdaptiveThreshold  float64 // Relative luminance error at which a pixel stops
}

// DefaultConfig returns sensible default values
func DefaultConfig() Config {
	return Config{
		TileSize:           32,
		InitialSamples:     1,
		MaxSamplesPerPixel: 64,
		Passes:             5,
		AdaptiveMinSamples: 0.15,
		AdaptiveThreshold:  0.02,
	}
}

// Validate checks the configuration for values the renderer cannot use
func (c Config) Validate() error {
	if c.TileSize <= 0 {
		return fmt.Errorf("tile size must be positive, got %d", c.TileSize)
	}
	if c.Passes <= 0 {
		return fmt.Errorf("passes must be positive, got %d", c.Passes)
	}
	if c.InitialSamples <= 0 || c.MaxSamplesPerPixel < c.InitialSamples {
		return fmt.Errorf("invalid sample counts: initial %d, max %d", c.InitialSamples, c.MaxSamplesPerPixel)
	}
	return nil
}

// PassResult contains the result of a single pass
type PassResult struct {
	PassNumber int
	Image      *image.RGBA
	Stats      RenderStats
	Elapsed    time.Duration
	IsLast     bool
}

// ProgressiveRaytracer renders a scene in passes of increasing sample
// count. Tiles are spread across the scheduler's workers and each tile's
// rows are split again as a nested loop.
type ProgressiveRaytracer struct {
	scene         *scene.Scene
	width, height int
	config        Config
	tiles         []*Tile
	pixelStats    [][]PixelStats // Shared pixel statistics array (global image coordinates)
	tileRenderer  *TileRenderer
	scheduler     *parallel.Scheduler
	worker        *parallel.Worker // Drives the loops; detached when there is no scheduler
	logger        core.Logger

	tilesRendered atomic.Int64
}

// NewProgressiveRaytracer creates a new progressive raytracer. A nil
// scheduler renders everything on the calling goroutine.
func NewProgressiveRaytracer(scn *scene.Scene, integ integrator.Integrator, scheduler *parallel.Scheduler, config Config, logger core.Logger) (*ProgressiveRaytracer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = core.NopLogger{}
	}

	width := scn.CameraConfig.Width
	height := scn.CameraConfig.Height()
	if width <= 0 {
		return nil, fmt.Errorf("image width must be positive, got %d", width)
	}

	pixelStats := make([][]PixelStats, height)
	for y := range pixelStats {
		pixelStats[y] = make([]PixelStats, width)
	}

	worker := parallel.NewWorker(0)
	if scheduler != nil {
		worker = scheduler.Main()
	}

	return &ProgressiveRaytracer{
		scene:        scn,
		width:        width,
		height:       height,
		config:       config,
		tiles:        NewTileGrid(width, height, config.TileSize),
		pixelStats:   pixelStats,
		tileRenderer: NewTileRenderer(scn, integ, config),
		scheduler:    scheduler,
		worker:       worker,
		logger:       logger,
	}, nil
}

// getSamplesForPass calculates the target total samples for a given pass
func (pr *ProgressiveRaytracer) getSamplesForPass(passNumber int) int {
	// Special case: if only 1 pass, use all samples
	if pr.config.Passes == 1 {
		return pr.config.MaxSamplesPerPixel
	}

	// For multiple passes: first pass is quick preview
	if passNumber == 1 {
		return pr.config.InitialSamples
	}

	// Divide remaining samples evenly across remaining passes
	remainingSamples := pr.config.MaxSamplesPerPixel - pr.config.InitialSamples
	remainingPasses := pr.config.Passes - 1
	samplesPerPass := remainingSamples / remainingPasses

	targetSamples := pr.config.InitialSamples + (passNumber-1)*samplesPerPass

	// For the final pass, use all remaining samples
	if passNumber == pr.config.Passes {
		targetSamples = pr.config.MaxSamplesPerPixel
	}

	return targetSamples
}

// numWorkers returns the parallelism available to a pass
func (pr *ProgressiveRaytracer) numWorkers() int {
	if pr.scheduler == nil {
		return 1
	}
	return pr.scheduler.NumWorkers()
}

// RenderPass renders a single progressive pass
func (pr *ProgressiveRaytracer) RenderPass(passNumber int) (*image.RGBA, RenderStats, error) {
	targetSamples := pr.getSamplesForPass(passNumber)
	numWorkers := pr.numWorkers()

	pr.logger.Printf("Pass %d: Target %d samples per pixel (using %d workers)...\n",
		passNumber, targetSamples, numWorkers)

	// One arena per worker; a worker runs at most one row at a time
	arenas := make([]*core.Arena[medium.MediumInteraction], numWorkers)
	for i := range arenas {
		arenas[i] = core.NewArena[medium.MediumInteraction](64)
	}

	var passLuminance parallel.AtomicFloat
	var passSamples atomic.Int64
	tilesX, tilesY := tileGridSize(pr.width, pr.height, pr.config.TileSize)

	renderTile := func(w *parallel.Worker, p image.Point) error {
		tile := pr.tiles[p.Y*tilesX+p.X]
		bounds := tile.Bounds

		renderRow := func(w *parallel.Worker, row int64) error {
			y := bounds.Min.Y + int(row)
			sampler := tile.RowSampler(passNumber, y)
			samples, luminance := pr.tileRenderer.RenderRow(y, bounds.Min.X, bounds.Max.X, pr.pixelStats, sampler, arenas[w.ID], targetSamples)

			passLuminance.Add(luminance)
			passSamples.Add(int64(samples))
			w.AddCounter(CounterSamples, int64(samples))
			w.AddCounter(CounterRows, 1)
			return nil
		}
		if err := w.ForLoop(renderRow, int64(bounds.Dy()), 1); err != nil {
			return fmt.Errorf("tile %d: %w", tile.ID, err)
		}

		tile.PassesCompleted++
		pr.tilesRendered.Inc()
		return nil
	}

	if err := pr.worker.ForLoop2D(renderTile, image.Pt(tilesX, tilesY)); err != nil {
		return nil, RenderStats{}, fmt.Errorf("pass %d: %w", passNumber, err)
	}

	img, stats := pr.assembleCurrentImage(targetSamples)
	if taken := passSamples.Load(); taken > 0 {
		stats.AverageLuminance = passLuminance.Load() / float64(taken)
	}
	return img, stats, nil
}

// Render runs every pass, calling callback after each one. Once the last
// pass is done the worker counters are merged and logged.
func (pr *ProgressiveRaytracer) Render(callback func(PassResult)) error {
	pr.logger.Printf("Starting progressive rendering with %d passes...\n", pr.config.Passes)

	for pass := 1; pass <= pr.config.Passes; pass++ {
		startTime := time.Now()

		img, stats, err := pr.RenderPass(pass)
		if err != nil {
			return err
		}

		passTime := time.Since(startTime)
		actualSamples := int(stats.AverageSamples)
		pr.logger.Printf("Pass %d completed in %v (actual: %d samples/pixel)\n",
			pass, passTime, actualSamples)

		isLast := pass == pr.config.Passes || stats.MinSamples >= pr.config.MaxSamplesPerPixel
		if callback != nil {
			callback(PassResult{
				PassNumber: pass,
				Image:      img,
				Stats:      stats,
				Elapsed:    passTime,
				IsLast:     isLast,
			})
		}
		if isLast {
			break
		}
	}

	counters := pr.Counters()
	pr.logger.Printf("Rendered %d tiles, %d rows, %d samples\n",
		pr.tilesRendered.Load(), counters[CounterRows], counters[CounterSamples])
	return nil
}

// Counters merges the worker counters and returns the totals. It must not
// be called while a pass is running.
func (pr *ProgressiveRaytracer) Counters() map[string]int64 {
	if pr.scheduler == nil {
		return map[string]int64{
			CounterSamples: pr.worker.Counter(CounterSamples),
			CounterRows:    pr.worker.Counter(CounterRows),
		}
	}
	pr.scheduler.MergeWorkerThreadStats()
	return pr.scheduler.Counters()
}

// assembleCurrentImage creates an image from the current state of the shared pixel stats
// and calculates render statistics in a single pass
func (pr *ProgressiveRaytracer) assembleCurrentImage(targetSamples int) (*image.RGBA, RenderStats) {
	img := image.NewRGBA(image.Rect(0, 0, pr.width, pr.height))

	stats := RenderStats{
		TotalPixels: pr.width * pr.height,
		MaxSamples:  targetSamples,
		MinSamples:  pr.config.MaxSamplesPerPixel, // Start high, will be reduced
	}

	for y := 0; y < pr.height; y++ {
		for x := 0; x < pr.width; x++ {
			pixel := &pr.pixelStats[y][x]
			img.SetRGBA(x, y, vec3ToColor(pixel.GetColor()))

			stats.TotalSamples += pixel.SampleCount
			stats.MinSamples = min(stats.MinSamples, pixel.SampleCount)
			stats.MaxSamplesUsed = max(stats.MaxSamplesUsed, pixel.SampleCount)
		}
	}

	stats.AverageSamples = float64(stats.TotalSamples) / float64(stats.TotalPixels)
	return img, stats
}

// vec3ToColor converts a Vec3 color to RGBA with proper clamping and gamma correction
func vec3ToColor(colorVec core.Vec3) color.RGBA {
	// Apply gamma correction (gamma = 2.0)
	colorVec = colorVec.GammaCorrect(2.0)

	// Clamp to valid color range
	colorVec = colorVec.Clamp(0.0, 1.0)

	return color.RGBA{
		R: uint8(255 * colorVec.X),
		G: uint8(255 * colorVec.Y),
		B: uint8(255 * colorVec.Z),
		A: 255,
	}
}
