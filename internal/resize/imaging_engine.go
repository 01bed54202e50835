package resize

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format
	_ "image/jpeg" // Register JPEG format
	_ "image/png"  // Register PNG format
	"log/slog"
	"os"

	"github.com/disintegration/imaging"
)

// ImagingEngine resizes images in pure Go with disintegration/imaging,
// using Lanczos resampling.
type ImagingEngine struct {
	filter imaging.ResampleFilter
}

func NewImagingEngine() *ImagingEngine {
	return &ImagingEngine{filter: imaging.Lanczos}
}

func (e *ImagingEngine) Size(
	ctx context.Context,
	path string,
) (Dimensions, error) {
	if err := ctx.Err(); err != nil {
		return Dimensions{}, err
	}

	mime, err := sniffImage(path)
	if err != nil {
		return Dimensions{}, err
	}

	// Resize honours the EXIF orientation of JPEGs, so their size must
	// be read from the rotated image rather than from the stored header.
	if mime == "image/jpeg" {
		img, err := imaging.Open(path, imaging.AutoOrientation(true))
		if err != nil {
			return Dimensions{}, fmt.Errorf("failed to decode image %s: %w", path, err)
		}
		bounds := img.Bounds()
		return Dimensions{Width: bounds.Dx(), Height: bounds.Dy()}, nil
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

func (e *ImagingEngine) Resize(
	ctx context.Context,
	src string,
	dst string,
	box Dimensions,
	quality int,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("failed to decode image %s: %w", src, err)
	}

	bounds := img.Bounds()
	outDims := Fit(Dimensions{Width: bounds.Dx(), Height: bounds.Dy()}, box)
	slog.Debug(
		"Resizing with imaging",
		"src", src,
		"dst", dst,
		"size", outDims,
	)

	resized := imaging.Resize(img, outDims.Width, outDims.Height, e.filter)
	if err := imaging.Save(resized, dst, imaging.JPEGQuality(quality)); err != nil {
		return fmt.Errorf("failed to write image file %s: %w", dst, err)
	}

	return nil
}
