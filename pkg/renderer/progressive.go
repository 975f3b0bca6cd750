// Package renderer is the built-in master renderer: it flattens a project
// into world space and path traces it progressively in tiles.
package renderer

import (
	"errors"
	"fmt"
	"image"
	"math/rand"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/df07/go-scene-bridge/pkg/core"
	"github.com/df07/go-scene-bridge/pkg/display"
	"github.com/df07/go-scene-bridge/pkg/edit"
	"github.com/df07/go-scene-bridge/pkg/integrator"
	"github.com/df07/go-scene-bridge/pkg/scene"
)

// Settings contains configuration for progressive rendering
type Settings struct {
	TileSize          int     // Size of each tile
	Passes            int     // Number of passes
	SamplesPerPass    int     // Samples added to every pixel per pass
	Threads           int     // Tiles rendered concurrently (0 = CPU count)
	MaxFPS            float64 // Limit on intermediate display updates (0 = unlimited)
	AdaptiveThreshold float64 // Relative error stopping pixels early (0 = off)
	Integrator        integrator.Config
}

// DefaultSettings returns the settings used for keys a configuration omits
func DefaultSettings() Settings {
	return Settings{
		TileSize:       64,
		Passes:         1,
		SamplesPerPass: 1,
		Integrator:     integrator.DefaultConfig(),
	}
}

// InteractivePasses is the pass count of the progressive frame renderer
const InteractivePasses = 64

// SettingsFromConfig reads render settings from a project configuration
func SettingsFromConfig(cfg scene.ParamArray) Settings {
	s := DefaultSettings()
	if cfg.String("frame_renderer", "generic") == "progressive" {
		s.Passes = cfg.Int("progressive_frame_renderer.max_passes", InteractivePasses)
		s.MaxFPS = cfg.Float("progressive_frame_renderer.max_fps", 0)
	} else {
		s.Passes = cfg.Int("generic_frame_renderer.passes", 1)
	}
	s.SamplesPerPass = cfg.Int("uniform_pixel_renderer.samples", 1)
	s.Threads = cfg.Int("rendering_threads", 0)
	s.AdaptiveThreshold = cfg.Float("adaptive_pixel_renderer.noise_threshold", 0)
	if n := cfg.Int("pt.max_path_length", 0); n > 0 {
		s.Integrator.MaxDepth = n
	}
	if n := cfg.Int("pt.rr_min_path_length", 0); n > 0 {
		s.Integrator.RussianRouletteMinBounces = n
	}

	s.Passes = max(1, s.Passes)
	s.SamplesPerPass = max(1, s.SamplesPerPass)
	if s.Threads <= 0 {
		s.Threads = runtime.NumCPU()
	}
	return s
}

// Progressive renders a project in passes, refining every pixel each pass
type Progressive struct {
	project  *scene.Project
	settings Settings
	driver   display.Driver
	logger   core.Logger

	width, height int
	tiles         []*Tile
	pixelStats    [][]PixelStats // Shared pixel statistics array (global image coordinates)
	lastUpdate    time.Time
}

// NewProgressive creates a renderer for the project using the named
// configuration. driver may be nil.
func NewProgressive(p *scene.Project, configName string, driver display.Driver, logger core.Logger) *Progressive {
	pr := &Progressive{
		project:  p,
		settings: SettingsFromConfig(p.Configuration(configName)),
		driver:   driver,
		logger:   core.OrDiscard(logger),
	}
	if p.Frame != nil {
		if tile := p.Frame.Params.Floats("tile_size"); len(tile) > 0 && tile[0] >= 1 {
			pr.settings.TileSize = int(tile[0])
		}
	}
	return pr
}

// Settings returns the effective render settings
func (pr *Progressive) Settings() Settings { return pr.settings }

// Render implements edit.MasterRenderer. It returns nil when aborted.
// A nil controller renders to completion.
func (pr *Progressive) Render(ctrl *edit.Controller) error {
	if ctrl == nil {
		ctrl = &edit.Controller{}
	}

	start := time.Now()
	world, err := NewWorld(pr.project, pr.logger)
	if err != nil {
		return err
	}
	stats := world.Stats()
	pr.logger.Debugf("render: Scene flattened in %v (%d triangles, %d lights, BVH depth %d)",
		time.Since(start), stats.TotalShapes, len(world.Lights()), stats.MaxDepth)

	pr.width, pr.height = 640, 480
	if pr.project.Frame != nil {
		pr.width, pr.height = pr.project.Frame.Resolution()
	}
	pr.tiles = NewTileGrid(pr.width, pr.height, pr.settings.TileSize)
	pr.pixelStats = make([][]PixelStats, pr.height)
	for y := range pr.pixelStats {
		pr.pixelStats[y] = make([]PixelStats, pr.width)
	}

	tr := NewTileRenderer(world, integrator.NewPathTracingIntegrator(pr.settings.Integrator))
	tr.AdaptiveThreshold = pr.settings.AdaptiveThreshold

	var img *image.RGBA
	for pass := 1; pass <= pr.settings.Passes; pass++ {
		passStart := time.Now()
		target := pass * pr.settings.SamplesPerPass

		aborted, err := pr.renderPass(ctrl, tr, target)
		if err != nil {
			return err
		}
		if aborted {
			pr.logger.Debugf("render: Aborted during pass %d", pass)
			return nil
		}

		var rs RenderStats
		img, rs = pr.assembleCurrentImage(target)
		final := pass == pr.settings.Passes
		pr.logger.Debugf("render: Pass %d/%d completed in %v (%.1f samples/pixel)",
			pass, pr.settings.Passes, time.Since(passStart), rs.AverageSamples)

		pr.deliver(display.PassResult{
			Pass:        pass,
			TotalPasses: pr.settings.Passes,
			Image:       img,
			Samples:     rs.AverageSamples,
			Final:       final,
		})
	}

	if pr.project.Frame != nil {
		if out, ok := pr.project.Frame.Params.Get("output_filename"); ok && img != nil {
			err := display.WriteImage(out, img)
			switch {
			case errors.Is(err, core.ErrUnknownModel):
				pr.logger.Warnf("render: Cannot write %s, unsupported image format.", out)
			case err != nil:
				return fmt.Errorf("render: %w", err)
			default:
				pr.logger.Infof("render: Wrote %s", out)
			}
		}
	}
	return nil
}

// deliver sends a pass to the display, throttling intermediate passes to MaxFPS
func (pr *Progressive) deliver(result display.PassResult) {
	if pr.driver == nil {
		return
	}
	if !result.Final && pr.settings.MaxFPS > 0 {
		minInterval := time.Duration(float64(time.Second) / pr.settings.MaxFPS)
		if time.Since(pr.lastUpdate) < minInterval {
			return
		}
	}
	pr.lastUpdate = time.Now()
	if err := pr.driver.Update(result); err != nil {
		pr.logger.Warnf("render: Display update failed: %v", err)
	}
}

// renderPass renders every tile up to target samples per pixel. Tiles are
// scheduled one at a time so pause and abort requests are seen between tiles.
func (pr *Progressive) renderPass(ctrl *edit.Controller, tr *TileRenderer, target int) (bool, error) {
	g := new(errgroup.Group)
	g.SetLimit(pr.settings.Threads)

	for _, tile := range pr.tiles {
		if ctrl.Wait() == edit.AbortRendering {
			break
		}
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("render: tile %d panicked: %v", tile.ID, r)
				}
			}()
			if ctrl.Status() == edit.AbortRendering {
				return nil
			}
			tr.RenderTileBounds(tile.Bounds, pr.pixelStats, tile.Random, target)
			tile.PassesCompleted++
			return nil
		})
	}

	err := g.Wait()
	return ctrl.Status() == edit.AbortRendering, err
}

// assembleCurrentImage creates an image from the current state of the shared pixel stats
// and calculates render statistics in a single pass
func (pr *Progressive) assembleCurrentImage(targetSamples int) (*image.RGBA, RenderStats) {
	img := image.NewRGBA(image.Rect(0, 0, pr.width, pr.height))
	stats := RenderStats{
		TotalPixels: pr.width * pr.height,
		MaxSamples:  targetSamples,
		MinSamples:  targetSamples,
	}

	for y := 0; y < pr.height; y++ {
		for x := 0; x < pr.width; x++ {
			pixel := &pr.pixelStats[y][x]
			img.SetRGBA(x, y, toRGBA(pixel.GetColor()))

			stats.TotalSamples += pixel.SampleCount
			stats.MinSamples = min(stats.MinSamples, pixel.SampleCount)
			stats.MaxSamplesUsed = max(stats.MaxSamplesUsed, pixel.SampleCount)
		}
	}

	if stats.TotalPixels > 0 {
		stats.AverageSamples = float64(stats.TotalSamples) / float64(stats.TotalPixels)
	}
	return img, stats
}

// Tile represents a rectangular region of the image to be rendered
type Tile struct {
	ID              int             // Unique tile identifier
	Bounds          image.Rectangle // Pixel bounds (x0,y0,x1,y1)
	PassesCompleted int             // Number of passes completed for this tile
	Random          *rand.Rand      // Tile-specific random generator for deterministic results
}

// NewTile creates a new tile with the specified bounds
func NewTile(id int, bounds image.Rectangle) *Tile {
	return &Tile{
		ID:     id,
		Bounds: bounds,
		Random: rand.New(rand.NewSource(int64(id + 42))), // +42 to avoid seed 0
	}
}

// NewTileGrid creates a grid of tiles covering the entire image
func NewTileGrid(width, height, tileSize int) []*Tile {
	var tiles []*Tile
	tilesX := (width + tileSize - 1) / tileSize
	tilesY := (height + tileSize - 1) / tileSize

	for tileY := 0; tileY < tilesY; tileY++ {
		for tileX := 0; tileX < tilesX; tileX++ {
			x0, y0 := tileX*tileSize, tileY*tileSize
			bounds := image.Rect(x0, y0, min(x0+tileSize, width), min(y0+tileSize, height))
			tiles = append(tiles, NewTile(len(tiles), bounds))
		}
	}
	return tiles
}

var _ edit.MasterRenderer = (*Progressive)(nil)
