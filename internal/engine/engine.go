package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/ivlev/scenecomp/internal/analyzer"
	"github.com/ivlev/scenecomp/internal/animation"
	"github.com/ivlev/scenecomp/internal/compositor"
	"github.com/ivlev/scenecomp/internal/config"
	"github.com/ivlev/scenecomp/internal/render"
	"github.com/ivlev/scenecomp/internal/scene"
	"github.com/ivlev/scenecomp/internal/session"
	"github.com/ivlev/scenecomp/internal/source"
	"github.com/ivlev/scenecomp/internal/stamp"
	"github.com/ivlev/scenecomp/internal/system"
	"github.com/ivlev/scenecomp/internal/video"
)

// Mode selects what Run does.
type Mode string

const (
	ModeStill   Mode = "still"
	ModeAnimate Mode = "animate"
	ModeEncode  Mode = "encode"
	ModeResume  Mode = "resume"
	ModeScenes  Mode = "scenes"
)

var (
	ErrUnknownMode = errors.New("unknown mode")
	ErrNotSetUp    = errors.New("project is not set up")
)

const compositeName = "Compositing"

type Project struct {
	Config   *config.Config
	Renderer render.Renderer
	Muxer    video.Muxer
	Detector analyzer.Detector

	registry  *scene.Registry
	composite *scene.Scene
	graph     *compositor.Graph
	devices   scene.DeviceConfig

	stats stats
}

type stats struct {
	setup, render, encode time.Duration
	frames                int
}

func NewProject(cfg *config.Config, r render.Renderer, m video.Muxer, d analyzer.Detector) *Project {
	return &Project{
		Config:   cfg,
		Renderer: r,
		Muxer:    m,
		Detector: d,
	}
}

// Setup builds every configured scene, the composite scene and the
// compositor graph.
func (p *Project) Setup() error {
	start := time.Now()
	defer func() { p.stats.setup += time.Since(start) }()

	reg, settings, err := p.buildScenes()
	if err != nil {
		return err
	}
	composite, err := scene.NewComposite(compositeName, settings)
	if err != nil {
		return err
	}
	return p.attach(reg, composite, reg.Names())
}

// buildScenes builds every configured scene on the discovered devices.
func (p *Project) buildScenes() (*scene.Registry, scene.RenderSettings, error) {
	devices, err := system.DiscoverDevices()
	if err != nil {
		log.Printf("[!] Не удалось определить устройства: %v", err)
		devices = scene.DeviceConfig{Compute: scene.DeviceCPU, Devices: []scene.Device{{Name: "CPU", Type: scene.DeviceCPU}}}
	}
	p.devices = devices

	settings := p.Config.RenderSettings()
	settings.Devices = devices

	reg := scene.NewRegistry()
	for _, sc := range p.Config.Scenes {
		built, err := scene.Build(sc.Name, sc.Shape, sc.Position, sc.Color, settings)
		if err != nil {
			return nil, settings, err
		}
		if err := reg.Add(built); err != nil {
			return nil, settings, err
		}
	}
	return reg, settings, nil
}

// attach wires the compositor for the scenes of reg, blended in order.
func (p *Project) attach(reg *scene.Registry, composite *scene.Scene, order []string) error {
	if len(order) == 0 {
		order = reg.Names()
	}
	opts := compositor.Options{Viewer: p.Config.Viewer}
	if c := p.Config.BackgroundColor; c != nil && c.A > 0 {
		opts.BackgroundColor = c.NRGBA()
	}
	if p.Config.Background != "" {
		w, h := composite.Render.Resolution()
		plate, err := source.LoadPlate(p.Config.Background, p.Config.PlateIndex(), image.Pt(w, h))
		if err != nil {
			return err
		}
		opts.Background = plate
		fmt.Printf("[*] Background: %s (page %d)\n", p.Config.Background, p.Config.BackgroundPage)
	}

	graph, err := compositor.Chain(order, opts)
	if err != nil {
		return err
	}

	p.registry, p.composite, p.graph = reg, composite, graph

	w, h := composite.Render.Resolution()
	fmt.Println("--- [PROJECT: SCENE COMPOSITOR] ---")
	fmt.Printf("[*] Scenes: %v | Blends: %d | Viewer: %v\n", order, len(graph.Blends()), graph.HasViewer())
	fmt.Printf("[*] Resolution: %dx%d @ %d samples | Devices: %d active\n", w, h, composite.Render.Samples, len(p.activeDevices()))
	fmt.Println("-----------------------------------")
	return nil
}

func (p *Project) activeDevices() []scene.Device {
	if p.registry == nil || p.registry.Len() == 0 {
		return nil
	}
	return p.registry.Scenes()[0].Render.Devices.Active()
}

// Scenes returns the contributing scenes in compositing order.
func (p *Project) Scenes() []*scene.Scene {
	if p.registry == nil {
		return nil
	}
	return p.registry.Scenes()
}

// Composite renders every scene and evaluates the compositor graph.
func (p *Project) Composite(ctx context.Context) (*compositor.Result, error) {
	if p.graph == nil {
		return nil, ErrNotSetUp
	}
	start := time.Now()
	defer func() { p.stats.render += time.Since(start) }()

	layers := make(map[string]image.Image, p.registry.Len())
	for _, sc := range p.registry.Scenes() {
		img, err := p.Renderer.Render(ctx, sc)
		if err != nil {
			return nil, fmt.Errorf("scene %s: %w", sc.Name, err)
		}
		layers[sc.Name] = img
	}
	return p.graph.Evaluate(layers)
}

// Still composites the current frame. Coverage is measured on the blended
// layers before the backdrop and the stamp are added.
func (p *Project) Still(ctx context.Context) (*image.RGBA, []analyzer.Region, error) {
	res, err := p.Composite(ctx)
	if err != nil {
		return nil, nil, err
	}
	img := res.Composite

	var regions []analyzer.Region
	if p.Detector != nil {
		if regions, err = p.Detector.Detect(res.Foreground); err != nil {
			return nil, nil, err
		}
		fmt.Printf("[*] Frame %d: %d covered regions, bounds %v\n", p.composite.Frame, len(regions), analyzer.Union(regions))
	}

	if p.Config.Stamp {
		size := min(img.Bounds().Dx(), img.Bounds().Dy()) / 6
		text := stamp.Text(filepath.Base(p.Config.OutputDir), p.composite.Frame, p.graph.Layers())
		if err := stamp.Apply(img, text, size); err != nil {
			log.Printf("[!] Stamp skipped: %v", err)
		}
	}
	return img, regions, nil
}

// RenderStill writes the composite of the current frame to path.
func (p *Project) RenderStill(ctx context.Context, path string) error {
	img, _, err := p.Still(ctx)
	if err != nil {
		return err
	}
	return writePNG(path, img)
}

// RenderScenes renders every configured scene on its own, with an opaque
// film over the world color, to <scene>_render.png in the output directory.
func (p *Project) RenderScenes(ctx context.Context) ([]string, error) {
	reg, _, err := p.buildScenes()
	if err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() { p.stats.render += time.Since(start) }()

	var paths []string
	for _, sc := range reg.Scenes() {
		sc.Render.Transparent = false
		img, err := p.Renderer.Render(ctx, sc)
		if err != nil {
			return paths, fmt.Errorf("scene %s: %w", sc.Name, err)
		}
		path := filepath.Join(p.Config.OutputDir, sc.Name+"_render.png")
		if err := writePNG(path, img); err != nil {
			return paths, err
		}
		fmt.Printf("[>] Scene %s: %s\n", sc.Name, path)
		paths = append(paths, path)
		p.stats.frames++
	}
	return paths, nil
}

// RenderFrame renders the current state as frame and returns its path.
func (p *Project) RenderFrame(ctx context.Context, frame int) (string, error) {
	path := filepath.Join(p.framesDir(), fmt.Sprintf("frame_%04d.png", frame))
	if err := p.RenderStill(ctx, path); err != nil {
		return "", err
	}
	p.stats.frames++
	return path, nil
}

func (p *Project) framesDir() string {
	return filepath.Join(p.Config.OutputDir, "frames")
}

// Animate renders the configured number of frames.
func (p *Project) Animate(ctx context.Context) (animation.FrameSequence, error) {
	if p.registry == nil {
		return nil, ErrNotSetUp
	}
	phase, err := animation.ParsePhaseMode(p.Config.Phase)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(p.framesDir(), 0755); err != nil {
		return nil, err
	}

	fmt.Printf("[*] Animating %d frames (range %.2f, frequency %.2f, phase %s)\n",
		p.Config.Frames, p.Config.MoveRange, p.Config.Frequency, phase)

	d := animation.NewDriver(p.registry.Scenes(), p.composite, p, animation.Options{
		MoveRange: p.Config.MoveRange,
		Frequency: p.Config.Frequency,
		Phase:     phase,
		Seed:      p.Config.Seed,
	})
	seq, err := d.Run(ctx, p.Config.Frames)
	if err != nil {
		return seq, err
	}
	return seq, seq.Validate()
}

// Encode muxes paths into the configured output video.
func (p *Project) Encode(ctx context.Context, paths []string) (video.Result, error) {
	start := time.Now()
	defer func() { p.stats.encode += time.Since(start) }()

	if err := video.CheckInputs(paths); err != nil {
		return video.Result{}, err
	}
	if dir := filepath.Dir(p.Config.OutputVideo); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return video.Result{}, err
		}
	}

	res, err := video.NewEncoder(p.Muxer).Encode(ctx, paths, p.Config.OutputVideo, p.Config.FPS)
	if err != nil {
		return res, err
	}

	if _, ok := p.Muxer.(*video.FFmpegMuxer); ok && system.FFmpegAvailable() {
		info, err := system.ProbeVideo(ctx, res.Output)
		if err != nil {
			log.Printf("[!] ffprobe: %v", err)
		} else {
			fmt.Printf("[*] Probe: %dx%d, %d frames, %.3fs\n", info.Width, info.Height, info.Frames, info.Duration)
		}
	}
	return res, nil
}

// SaveSession snapshots the project to path.
func (p *Project) SaveSession(path string) error {
	if p.registry == nil {
		return ErrNotSetUp
	}
	snap := session.Capture(p.composite, p.registry.Scenes(), p.graph.Layers(), p.graph.HasViewer())
	if p.Config.Background != "" {
		snap.Background = &session.Background{Path: p.Config.Background, Page: p.Config.BackgroundPage}
	}
	if c := p.Config.BackgroundColor; c != nil {
		cp := *c
		snap.BackgroundColor = &cp
	}
	if err := session.Save(snap, path); err != nil {
		return err
	}
	fmt.Printf("[*] Session %s saved: %s\n", snap.ID, path)
	return nil
}

// LoadSession replaces the project state with the snapshot at path.
func (p *Project) LoadSession(path string) error {
	snap, err := session.Load(path)
	if err != nil {
		return err
	}
	reg, composite, err := snap.Restore()
	if err != nil {
		return err
	}

	p.Config.Viewer = snap.Viewer
	p.Config.Background, p.Config.BackgroundPage = "", 1
	if snap.Background != nil {
		p.Config.Background, p.Config.BackgroundPage = snap.Background.Path, snap.Background.Page
	}
	p.Config.BackgroundColor = snap.BackgroundColor
	p.devices = snap.Devices

	fmt.Printf("[*] Session %s restored (frame %d)\n", snap.ID, snap.Frame)
	return p.attach(reg, composite, snap.Order)
}

func (p *Project) sessionPath() string {
	if p.Config.SessionFile != "" {
		return p.Config.SessionFile
	}
	return filepath.Join(p.Config.OutputDir, "session.yaml")
}

// Run executes mode end to end.
func (p *Project) Run(ctx context.Context, mode Mode) error {
	startTime := time.Now()

	if err := os.MkdirAll(p.Config.OutputDir, 0755); err != nil {
		return err
	}

	switch mode {
	case ModeStill:
		if err := p.Setup(); err != nil {
			return err
		}
		path := filepath.Join(p.Config.OutputDir, "still.png")
		if err := p.RenderStill(ctx, path); err != nil {
			return err
		}
		fmt.Printf("[>] Still: %s\n", path)
		if err := p.SaveSession(p.sessionPath()); err != nil {
			return err
		}

	case ModeAnimate:
		if err := p.Setup(); err != nil {
			return err
		}
		seq, err := p.Animate(ctx)
		if err != nil {
			return err
		}
		if err := p.SaveSession(p.sessionPath()); err != nil {
			return err
		}
		if _, err := p.Encode(ctx, seq); err != nil {
			return fmt.Errorf("ошибка сборки видео: %w", err)
		}

	case ModeEncode:
		src, err := source.NewImageSource(p.Config.FramesDir)
		if err != nil {
			return err
		}
		defer src.Close()
		res, err := p.Encode(ctx, src.Paths())
		if err != nil {
			return fmt.Errorf("ошибка сборки видео: %w", err)
		}
		p.stats.frames = res.Frames

	case ModeResume:
		if err := p.LoadSession(p.sessionPath()); err != nil {
			return err
		}
		path := filepath.Join(p.Config.OutputDir, fmt.Sprintf("resume_%04d.png", p.composite.Frame))
		if err := p.RenderStill(ctx, path); err != nil {
			return err
		}
		fmt.Printf("[>] Still: %s\n", path)

	case ModeScenes:
		if _, err := p.RenderScenes(ctx); err != nil {
			return err
		}

	default:
		return fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	if p.Config.ShowStats {
		p.report(mode, time.Since(startTime))
	}
	return nil
}

func (p *Project) report(mode Mode, total time.Duration) {
	host := system.CollectHostStats()
	fps := 0.0
	if total > 0 {
		fps = float64(p.stats.frames) / total.Seconds()
	}

	report := fmt.Sprintf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Mode: %s\n"+
			"Total Time: %.2fs\n"+
			"Setup: %.2fs\n"+
			"Rendering: %.2fs\n"+
			"Encoding: %.2fs\n"+
			"Effective FPS: %.2f\n"+
			"Compute: %s (%d devices)\n"+
			"Host: %s\n"+
			"----------------------------\n",
		p.Config.BuildVersion, mode, total.Seconds(), p.stats.setup.Seconds(),
		p.stats.render.Seconds(), p.stats.encode.Seconds(), fps,
		p.devices.Compute, len(p.activeDevices()), host,
	)
	fmt.Print(report)

	// Логирование в файл
	logEntry := fmt.Sprintf("[%s] Build: %s | Mode: %s | Frames: %d | Total: %.2fs | Render: %.2fs | Encode: %.2fs | FPS: %.2f | %s\n",
		time.Now().Format("2006-01-02 15:04:05"),
		p.Config.BuildVersion,
		mode,
		p.stats.frames,
		total.Seconds(),
		p.stats.render.Seconds(),
		p.stats.encode.Seconds(),
		fps,
		host,
	)

	f, err := os.OpenFile(filepath.Join(p.Config.OutputDir, "benchmark.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		f.WriteString(logEntry)
		f.Close()
	} else {
		fmt.Printf("[!] Не удалось записать benchmark.log: %v\n", err)
	}
}

func writePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
