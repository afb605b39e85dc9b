package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"golang.org/x/image/draw"

	"github.com/ivlev/scenecomp/internal/system"
)

var (
	ErrNoInput           = errors.New("video: no input frames")
	ErrMissingFile       = errors.New("video: input frame does not exist")
	ErrUnsupportedFormat = errors.New("video: unsupported frame format")
	ErrFrameTooSmall     = errors.New("video: frame smaller than one macroblock")
)

// Macroblock is the alignment applied to the output width and height.
const Macroblock = 16

// Extensions accepted as input frames.
var Extensions = []string{".png", ".jpg", ".jpeg"}

// FrameSink receives frames of one output video in order. Close finalizes
// the video; Abort discards it and leaves no output behind.
type FrameSink interface {
	WriteFrame(img *image.RGBA) error
	Close() error
	Abort() error
}

// Muxer opens an output video of fixed size and frame rate.
type Muxer interface {
	Open(ctx context.Context, output string, width, height, fps int) (FrameSink, error)
}

// Result describes an encoded video.
type Result struct {
	Output   string
	Width    int
	Height   int
	Frames   int
	FPS      int
	Duration float64
}

// Encoder reads a frame sequence, normalizes every frame to a common
// macroblock-aligned size and appends it to the muxer.
type Encoder struct {
	Muxer Muxer
	// Scaler defaults to draw.CatmullRom.
	Scaler draw.Scaler
}

func NewEncoder(m Muxer) *Encoder {
	return &Encoder{Muxer: m, Scaler: draw.CatmullRom}
}

// AlignDown rounds v down to a multiple of block.
func AlignDown(v, block int) int {
	return v / block * block
}

// CheckInputs validates the sequence without decoding it.
func CheckInputs(paths []string) error {
	if len(paths) == 0 {
		return ErrNoInput
	}
	for i, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return fmt.Errorf("%w: frame %d (%s)", ErrMissingFile, i+1, p)
		}
		if info.IsDir() {
			return fmt.Errorf("%w: frame %d (%s) is a directory", ErrMissingFile, i+1, p)
		}
		if !system.HasExtension(p, Extensions...) {
			return fmt.Errorf("%w: %s", ErrUnsupportedFormat, p)
		}
	}
	return nil
}

// Encode writes paths into output at fps. Nothing is written unless every
// input passes validation, and a frame failing to decode midway aborts the
// output instead of finalizing a shorter video.
func (e *Encoder) Encode(ctx context.Context, paths []string, output string, fps int) (Result, error) {
	if err := CheckInputs(paths); err != nil {
		return Result{}, err
	}
	if fps <= 0 {
		return Result{}, fmt.Errorf("video: invalid fps %d", fps)
	}

	first, err := decode(paths[0])
	if err != nil {
		return Result{}, err
	}
	b := first.Bounds()
	w, h := AlignDown(b.Dx(), Macroblock), AlignDown(b.Dy(), Macroblock)
	if w == 0 || h == 0 {
		return Result{}, fmt.Errorf("%w: %dx%d", ErrFrameTooSmall, b.Dx(), b.Dy())
	}
	fmt.Printf("[*] Encoding %d frames at %dx%d, %d fps -> %s\n", len(paths), w, h, fps, output)

	sink, err := e.Muxer.Open(ctx, output, w, h, fps)
	if err != nil {
		return Result{}, err
	}

	frame := system.GetImage(image.Rect(0, 0, w, h))
	defer system.PutImage(frame)

	scaler := e.Scaler
	if scaler == nil {
		scaler = draw.CatmullRom
	}

	for i, p := range paths {
		if err := ctx.Err(); err != nil {
			sink.Abort()
			return Result{}, err
		}
		img := first
		if i > 0 {
			if img, err = decode(p); err != nil {
				sink.Abort()
				return Result{}, fmt.Errorf("frame %d: %w", i+1, err)
			}
		}
		// Буфер из пула не очищен: кадры с прозрачностью рисуем поверх нуля.
		clear(frame.Pix)
		scaler.Scale(frame, frame.Bounds(), img, img.Bounds(), draw.Over, nil)
		if err := sink.WriteFrame(frame); err != nil {
			sink.Abort()
			return Result{}, fmt.Errorf("frame %d: %w", i+1, err)
		}
	}

	if err := sink.Close(); err != nil {
		return Result{}, err
	}

	return Result{
		Output:   output,
		Width:    w,
		Height:   h,
		Frames:   len(paths),
		FPS:      fps,
		Duration: float64(len(paths)) / float64(fps),
	}, nil
}

func decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingFile, path)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedFormat, path, err)
	}
	return img, nil
}
