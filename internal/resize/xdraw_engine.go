package resize

import (
	"context"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
)

// XDrawEngine resizes images with golang.org/x/image/draw and encodes
// them with the standard library codecs.
type XDrawEngine struct {
	scaler draw.Scaler
}

// NewXDrawEngine returns an engine using CatmullRom, the highest
// quality (and slowest) x/image/draw kernel.
func NewXDrawEngine() *XDrawEngine {
	return &XDrawEngine{scaler: draw.CatmullRom}
}

func (e *XDrawEngine) Size(
	ctx context.Context,
	path string,
) (Dimensions, error) {
	if err := ctx.Err(); err != nil {
		return Dimensions{}, err
	}

	if _, err := sniffImage(path); err != nil {
		return Dimensions{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return Dimensions{}, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return Dimensions{}, fmt.Errorf(
			"failed to decode image config for %s: %w",
			path,
			err,
		)
	}

	return Dimensions{Width: cfg.Width, Height: cfg.Height}, nil
}

func (e *XDrawEngine) Resize(
	ctx context.Context,
	src string,
	dst string,
	box Dimensions,
	quality int,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open image %s: %w", src, err)
	}
	defer in.Close()

	img, _, err := image.Decode(in)
	if err != nil {
		return fmt.Errorf("failed to decode image %s: %w", src, err)
	}

	bounds := img.Bounds()
	outDims := Fit(Dimensions{Width: bounds.Dx(), Height: bounds.Dy()}, box)

	resized := image.NewRGBA(image.Rect(0, 0, outDims.Width, outDims.Height))
	e.scaler.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create image file %s: %w", dst, err)
	}

	if err := encode(out, resized, dst, quality); err != nil {
		out.Close()
		return fmt.Errorf("failed to write image file %s: %w", dst, err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close image file %s: %w", dst, err)
	}
	return nil
}

func encode(out *os.File, img image.Image, dst string, quality int) error {
	switch strings.ToLower(filepath.Ext(dst)) {
	case ".jpg", ".jpeg":
		return jpeg.Encode(out, img, &jpeg.Options{Quality: quality})
	case ".png":
		return png.Encode(out, img)
	case ".gif":
		return gif.Encode(out, img, nil)
	default:
		return fmt.Errorf("unsupported output format %q", filepath.Ext(dst))
	}
}
