package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/df07/go-volumetric-raytracer/pkg/core"
	"github.com/df07/go-volumetric-raytracer/pkg/integrator"
	"github.com/df07/go-volumetric-raytracer/pkg/medium"
	"github.com/df07/go-volumetric-raytracer/pkg/parallel"
	"github.com/df07/go-volumetric-raytracer/pkg/renderer"
	"github.com/df07/go-volumetric-raytracer/pkg/scene"
)

// Options holds everything a render needs. A JSON config file is decoded
// over the defaults and explicit flags override both.
type Options struct {
	Medium          string  `json:"medium"`  // Measured medium name; empty uses the default grey fog
	Density         float64 `json:"density"` // Coefficient multiplier
	G               float64 `json:"g"`       // Henyey-Greenstein asymmetry
	Workers         int     `json:"workers"` // Total parallelism, 0 = all cores
	Width           int     `json:"width"`
	SamplesPerPixel int     `json:"spp"`
	Passes          int     `json:"passes"`
	TileSize        int     `json:"tile"`
	MaxDepth        int     `json:"max_depth"`
	Output          string  `json:"output"` // PNG path; empty picks output/render_<timestamp>.png
}

func defaultOptions() Options {
	fog := scene.DefaultFogConfig()
	render := renderer.DefaultConfig()
	return Options{
		Density:         fog.Density,
		G:               fog.G,
		Width:           fog.Width,
		SamplesPerPixel: render.MaxSamplesPerPixel,
		Passes:          render.Passes,
		TileSize:        render.TileSize,
		MaxDepth:        integrator.DefaultConfig().MaxDepth,
	}
}

func loadConfig(path string, opts *Options) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, opts); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// parseOptions builds the options from command line arguments
func parseOptions(args []string) (Options, bool, error) {
	fs := flag.NewFlagSet("volumetric-raytracer", flag.ContinueOnError)
	configPath := fs.String("config", "", "JSON config file decoded over the defaults")
	help := fs.Bool("help", false, "Show help information")

	flagOpts := defaultOptions()
	fs.StringVar(&flagOpts.Medium, "medium", flagOpts.Medium, "Measured medium name (see -help)")
	fs.Float64Var(&flagOpts.Density, "density", flagOpts.Density, "Multiplier for the medium coefficients")
	fs.Float64Var(&flagOpts.G, "g", flagOpts.G, "Henyey-Greenstein asymmetry in (-1, 1)")
	fs.IntVar(&flagOpts.Workers, "workers", flagOpts.Workers, "Number of workers (0 = all cores)")
	fs.IntVar(&flagOpts.Width, "width", flagOpts.Width, "Image width in pixels")
	fs.IntVar(&flagOpts.SamplesPerPixel, "spp", flagOpts.SamplesPerPixel, "Maximum samples per pixel")
	fs.IntVar(&flagOpts.Passes, "passes", flagOpts.Passes, "Number of progressive passes")
	fs.IntVar(&flagOpts.TileSize, "tile", flagOpts.TileSize, "Tile size in pixels")
	fs.IntVar(&flagOpts.MaxDepth, "max-depth", flagOpts.MaxDepth, "Maximum scattering events per path")
	fs.StringVar(&flagOpts.Output, "out", flagOpts.Output, "Output PNG path")

	if err := fs.Parse(args); err != nil {
		return Options{}, false, err
	}
	if *help {
		printHelp(fs)
		return Options{}, true, nil
	}

	opts := defaultOptions()
	if *configPath != "" {
		if err := loadConfig(*configPath, &opts); err != nil {
			return Options{}, false, err
		}
	}

	// Explicit flags win over the config file
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "medium":
			opts.Medium = flagOpts.Medium
		case "density":
			opts.Density = flagOpts.Density
		case "g":
			opts.G = flagOpts.G
		case "workers":
			opts.Workers = flagOpts.Workers
		case "width":
			opts.Width = flagOpts.Width
		case "spp":
			opts.SamplesPerPixel = flagOpts.SamplesPerPixel
		case "passes":
			opts.Passes = flagOpts.Passes
		case "tile":
			opts.TileSize = flagOpts.TileSize
		case "max-depth":
			opts.MaxDepth = flagOpts.MaxDepth
		case "out":
			opts.Output = flagOpts.Output
		}
	})
	return opts, false, nil
}

func printHelp(fs *flag.FlagSet) {
	fmt.Println("Volumetric Raytracer")
	fmt.Println("Usage: volumetric-raytracer [options]")
	fmt.Println()
	fmt.Println("Options:")
	fs.SetOutput(os.Stdout)
	fs.PrintDefaults()
	fmt.Println()
	fmt.Println("Available media:")
	fmt.Printf("  %s\n", strings.Join(medium.MediumNames(), ", "))
}

// createScene builds the fog sphere described by the options
func createScene(opts Options) (*scene.Scene, error) {
	fog := scene.DefaultFogConfig()
	fog.MediumName = opts.Medium
	fog.Density = opts.Density
	fog.G = opts.G
	fog.Width = opts.Width
	return scene.NewFogSphereScene(fog)
}

// run renders the scene and writes the final pass to disk
func run(opts Options, logger core.Logger) (string, error) {
	scn, err := createScene(opts)
	if err != nil {
		return "", fmt.Errorf("creating scene: %w", err)
	}

	scheduler := parallel.NewScheduler(parallel.Config{NumWorkers: opts.Workers}, logger)
	if err := scheduler.Init(); err != nil {
		return "", fmt.Errorf("starting scheduler: %w", err)
	}
	defer scheduler.Cleanup()

	integConfig := integrator.DefaultConfig()
	integConfig.MaxDepth = opts.MaxDepth
	integ := integrator.NewVolumePathIntegrator(integConfig)

	renderConfig := renderer.DefaultConfig()
	renderConfig.MaxSamplesPerPixel = opts.SamplesPerPixel
	renderConfig.Passes = opts.Passes
	renderConfig.TileSize = opts.TileSize

	pr, err := renderer.NewProgressiveRaytracer(scn, integ, scheduler, renderConfig, logger)
	if err != nil {
		return "", err
	}

	var final *image.RGBA
	var stats renderer.RenderStats
	startTime := time.Now()
	err = pr.Render(func(result renderer.PassResult) {
		final = result.Image
		stats = result.Stats
	})
	if err != nil {
		return "", err
	}

	logger.Printf("Render completed in %v\n", time.Since(startTime))
	logger.Printf("Samples per pixel: %.1f (range %d - %d)\n",
		stats.AverageSamples, stats.MinSamples, stats.MaxSamplesUsed)
	logger.Printf("Average image luminance: %.4f\n", renderer.CalculateAverageLuminance(final))

	filename := opts.Output
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = filepath.Join("output", fmt.Sprintf("render_%s.png", timestamp))
	}
	if err := savePNG(filename, final); err != nil {
		return "", err
	}
	return filename, nil
}

func savePNG(filename string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("saving PNG: %w", err)
	}
	return nil
}

func main() {
	opts, helped, err := parseOptions(os.Args[1:])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(2)
	}
	if helped {
		return
	}

	logger := renderer.NewDefaultLogger()
	logger.Printf("Starting Volumetric Raytracer...\n")

	filename, err := run(opts, logger)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	logger.Printf("Render saved as %s\n", filename)
}
