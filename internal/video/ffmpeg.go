package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os"
	"os/exec"

	"golang.org/x/sync/errgroup"
)

// FFmpegMuxer pipes raw RGBA frames into an ffmpeg process.
type FFmpegMuxer struct {
	Encoder string
	Quality int
}

func (m *FFmpegMuxer) buildFFmpegArgs(output string, width, height, fps int) []string {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", width, height),
		"-framerate", fmt.Sprintf("%d", fps),
		"-i", "-",
		"-r", fmt.Sprintf("%d", fps),
		"-pix_fmt", "yuv420p",
		"-c:v", m.Encoder,
	}

	// Качество в зависимости от энкодера
	switch m.Encoder {
	case "h264_videotoolbox":
		bitrate := m.Quality * 100
		args = append(args, "-b:v", fmt.Sprintf("%dk", bitrate))
	case "h264_nvenc":
		args = append(args, "-cq", fmt.Sprintf("%d", m.Quality))
	default: // libx264
		args = append(args, "-crf", fmt.Sprintf("%d", m.Quality), "-preset", "medium")
	}

	args = append(args, output)
	return args
}

func (m *FFmpegMuxer) Open(ctx context.Context, output string, width, height, fps int) (FrameSink, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg", m.buildFFmpegArgs(output, width, height, fps)...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe error: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start error: %w", err)
	}

	s := &ffmpegSink{cmd: cmd, output: output, stdin: stdin, stderr: &stderr, width: width, height: height}
	s.g, _ = errgroup.WithContext(ctx)
	s.g.Go(func() error {
		if err := cmd.Wait(); err != nil {
			return fmt.Errorf("ffmpeg wait error: %w, output: %s", err, stderr.String())
		}
		return nil
	})
	return s, nil
}

type ffmpegSink struct {
	cmd    *exec.Cmd
	output string
	stdin  io.WriteCloser
	stderr *bytes.Buffer
	width  int
	height int
	g      *errgroup.Group
	closed bool
}

func (s *ffmpegSink) WriteFrame(img *image.RGBA) error {
	if b := img.Bounds(); b.Dx() != s.width || b.Dy() != s.height {
		return fmt.Errorf("frame size %dx%d, stream is %dx%d", b.Dx(), b.Dy(), s.width, s.height)
	}
	// Запись raw RGBA данных
	if err := writeRawRGBA(s.stdin, img); err != nil {
		return fmt.Errorf("write raw error: %w", err)
	}
	return nil
}

func (s *ffmpegSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.stdin.Close()
	if err := s.g.Wait(); err != nil {
		s.remove()
		return err
	}
	return nil
}

// Abort kills ffmpeg before it writes the trailer and deletes the output.
func (s *ffmpegSink) Abort() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	s.stdin.Close()
	s.g.Wait()
	return s.remove()
}

func (s *ffmpegSink) remove() error {
	if err := os.Remove(s.output); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove partial output: %w", err)
	}
	return nil
}

func writeRawRGBA(w io.Writer, img image.Image) error {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != bounds.Dx()*4 || rgba.Rect.Min.X != 0 || rgba.Rect.Min.Y != 0 {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}
	_, err := w.Write(rgba.Pix)
	return err
}
