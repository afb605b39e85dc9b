// Package animation moves scene objects along per-axis sine waves, keeps the
// frame counter of all scenes in step and collects the rendered frames.
package animation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strings"

	"github.com/ivlev/scenecomp/internal/scene"
)

var (
	ErrFrameOrder   = errors.New("animation: frames must be contiguous and start at 1")
	ErrUnknownPhase = errors.New("animation: unknown phase mode")
	ErrMissingFrame = errors.New("animation: rendered frame is missing")
)

// PhaseMode decides how often the sine phase of an object is drawn.
type PhaseMode int

const (
	// PhasePerFrame draws a new phase for every object and axis on every frame.
	PhasePerFrame PhaseMode = iota
	// PhaseFixed draws the phase once per object and axis, giving a smooth sinusoid.
	PhaseFixed
)

func (m PhaseMode) String() string {
	if m == PhaseFixed {
		return "fixed"
	}
	return "per-frame"
}

func ParsePhaseMode(s string) (PhaseMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "per-frame", "perframe", "random":
		return PhasePerFrame, nil
	case "fixed", "smooth":
		return PhaseFixed, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPhase, s)
}

// FrameRenderer renders the composite of the current frame and returns the image path.
type FrameRenderer interface {
	RenderFrame(ctx context.Context, frame int) (string, error)
}

// FrameSequence is the ordered list of rendered frames, index 0 holding frame 1.
type FrameSequence []string

// Validate checks that every frame file exists.
func (s FrameSequence) Validate() error {
	for i, p := range s {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("%w: frame %d (%s): %v", ErrMissingFrame, i+1, p, err)
		}
	}
	return nil
}

// Options configures a Driver.
type Options struct {
	MoveRange float64
	Frequency float64
	Phase     PhaseMode
	// Seed feeds the phase generator; zero picks a fixed default.
	Seed int64
}

// Driver advances frames over a set of scenes.
type Driver struct {
	scenes    []*scene.Scene
	composite *scene.Scene
	renderer  FrameRenderer
	opts      Options
	rnd       *rand.Rand
	phases    map[*scene.Mesh][3]float64
	frames    FrameSequence
}

// NewDriver creates a driver for scenes, composited in composite (may be nil).
func NewDriver(scenes []*scene.Scene, composite *scene.Scene, r FrameRenderer, opts Options) *Driver {
	seed := opts.Seed
	if seed == 0 {
		seed = 1
	}
	return &Driver{
		scenes:    scenes,
		composite: composite,
		renderer:  r,
		opts:      opts,
		rnd:       rand.New(rand.NewSource(seed)),
		phases:    make(map[*scene.Mesh][3]float64),
	}
}

// Offset is the displacement along one axis at frame.
func Offset(moveRange, frequency float64, frame int, phase float64) float64 {
	return moveRange * math.Sin(frequency*float64(frame)+phase)
}

func (d *Driver) phase(m *scene.Mesh) [3]float64 {
	if d.opts.Phase == PhaseFixed {
		if p, ok := d.phases[m]; ok {
			return p
		}
	}
	var p [3]float64
	for i := range p {
		p[i] = d.rnd.Float64() * 2 * math.Pi
	}
	d.phases[m] = p
	return p
}

// Move places every mesh of every scene at its offset position for frame.
func (d *Driver) Move(frame int) {
	for _, sc := range d.scenes {
		for _, m := range sc.Meshes {
			p := d.phase(m)
			m.Location = scene.Vec3{
				X: m.Base.X + Offset(d.opts.MoveRange, d.opts.Frequency, frame, p[0]),
				Y: m.Base.Y + Offset(d.opts.MoveRange, d.opts.Frequency, frame, p[1]),
				Z: m.Base.Z + Offset(d.opts.MoveRange, d.opts.Frequency, frame, p[2]),
			}
		}
	}
}

// SetFrame sets the frame counter of every scene and the composite scene.
func (d *Driver) SetFrame(frame int) {
	for _, sc := range d.scenes {
		sc.SetFrame(frame)
	}
	if d.composite != nil {
		d.composite.SetFrame(frame)
	}
}

// AdvanceAndRender moves the objects, sets frame on every scene, renders and
// records the output path. Frames must be requested in order starting at 1.
func (d *Driver) AdvanceAndRender(ctx context.Context, frame int) (string, error) {
	if frame != len(d.frames)+1 {
		return "", fmt.Errorf("%w: got %d, want %d", ErrFrameOrder, frame, len(d.frames)+1)
	}
	d.Move(frame)
	d.SetFrame(frame)

	path, err := d.renderer.RenderFrame(ctx, frame)
	if err != nil {
		return "", fmt.Errorf("frame %d: %w", frame, err)
	}
	d.frames = append(d.frames, path)
	return path, nil
}

// Run renders frames 1..count.
func (d *Driver) Run(ctx context.Context, count int) (FrameSequence, error) {
	for f := len(d.frames) + 1; f <= count; f++ {
		if err := ctx.Err(); err != nil {
			return d.Frames(), err
		}
		path, err := d.AdvanceAndRender(ctx, f)
		if err != nil {
			return d.Frames(), err
		}
		fmt.Printf("[>] Frame %d/%d: %s\n", f, count, path)
	}
	return d.Frames(), nil
}

// Frames returns the frames rendered so far.
func (d *Driver) Frames() FrameSequence {
	return append(FrameSequence(nil), d.frames...)
}
