// Package imageio turns ordinary image files into panel frames.
package imageio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"

	"github.com/coreman2200/ledmatrix/internal/matrix"
)

const (
	DefaultThreshold = 128
	// MaxPixels caps the declared size of an image before it is decoded.
	MaxPixels = 4096 * 4096
)

var (
	ErrEmpty  = errors.New("imageio: image has no pixels")
	ErrTooBig = errors.New("imageio: image too large")
)

// Options control the monochrome conversion. A pixel is lit when its
// luminance is at or above Threshold, or below it when Invert is set.
type Options struct {
	Threshold uint8
	Invert    bool
}

func DefaultOptions() Options { return Options{Threshold: DefaultThreshold} }

// Decode reads a PNG, JPEG, BMP or GIF. Animated GIFs give one frame per
// GIF frame, each drawn over the ones before it.
func Decode(r io.Reader, opt Options) ([]matrix.Image, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("imageio: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, ErrEmpty
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooBig, cfg.Width, cfg.Height)
	}
	if format == "gif" {
		g, err := gif.DecodeAll(bytes.NewReader(b))
		if err != nil {
			return nil, fmt.Errorf("imageio: %w", err)
		}
		return gifFrames(g, opt)
	}
	img, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("imageio: %w", err)
	}
	f, err := Convert(img, opt)
	if err != nil {
		return nil, err
	}
	return []matrix.Image{f}, nil
}

func gifFrames(g *gif.GIF, opt Options) ([]matrix.Image, error) {
	canvas := image.NewRGBA(image.Rect(0, 0, g.Config.Width, g.Config.Height))
	out := make([]matrix.Image, 0, len(g.Image))
	for i, fr := range g.Image {
		draw.Draw(canvas, fr.Bounds(), fr, fr.Bounds().Min, draw.Over)
		f, err := Convert(canvas, opt)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
		if i < len(g.Disposal) && g.Disposal[i] == gif.DisposalBackground {
			draw.Draw(canvas, fr.Bounds(), image.Transparent, image.Point{}, draw.Src)
		}
	}
	return out, nil
}

// Convert scales img to the panel and thresholds it.
func Convert(img image.Image, opt Options) (matrix.Image, error) {
	if img.Bounds().Empty() {
		return matrix.Image{}, ErrEmpty
	}
	gray := image.NewGray(image.Rect(0, 0, matrix.Size, matrix.Size))
	draw.ApproxBiLinear.Scale(gray, gray.Bounds(), img, img.Bounds(), draw.Src, nil)

	var c matrix.Canvas
	for y := 0; y < matrix.Size; y++ {
		for x := 0; x < matrix.Size; x++ {
			lit := gray.GrayAt(x, y).Y >= opt.Threshold
			c.SetPixel(x, y, lit != opt.Invert)
		}
	}
	return matrix.Snapshot(c), nil
}

// LoadFiles decodes every path in order and concatenates the frames.
func LoadFiles(paths []string, opt Options) ([]matrix.Image, error) {
	var out []matrix.Image
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, err
		}
		frames, err := Decode(f, opt)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		out = append(out, frames...)
	}
	return out, nil
}
