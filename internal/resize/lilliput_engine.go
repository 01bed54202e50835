package resize

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/discord/lilliput"
)

// Size of the buffer lilliput encodes into. Variants larger than this
// fail to encode.
const lilliputOutputBufferSize = 50 * 1024 * 1024

// LilliputEngine resizes images with lilliput. Requires cgo.
type LilliputEngine struct{}

func NewLilliputEngine() *LilliputEngine {
	return &LilliputEngine{}
}

func (e *LilliputEngine) Size(
	ctx context.Context,
	path string,
) (Dimensions, error) {
	if err := ctx.Err(); err != nil {
		return Dimensions{}, err
	}

	if _, err := sniffImage(path); err != nil {
		return Dimensions{}, err
	}

	inputBuf, err := e.readFile(path)
	if err != nil {
		return Dimensions{}, err
	}

	decoder, err := e.decode(path, inputBuf)
	if err != nil {
		return Dimensions{}, err
	}
	defer decoder.Close()

	return e.getOrigDimensions(path, decoder)
}

func (e *LilliputEngine) Resize(
	ctx context.Context,
	src string,
	dst string,
	box Dimensions,
	quality int,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	slog.Debug("Resizing with lilliput", "src", src, "dst", dst, "box", box)

	inputBuf, err := e.readFile(src)
	if err != nil {
		return err
	}

	decoder, err := e.decode(src, inputBuf)
	if err != nil {
		return err
	}
	defer decoder.Close()

	origDims, err := e.getOrigDimensions(src, decoder)
	if err != nil {
		return err
	}
	outDims := Fit(origDims, box)

	ops := lilliput.NewImageOps(max(origDims.Width, origDims.Height, outDims.Width, outDims.Height))
	defer ops.Close()

	outputBuf := make([]byte, lilliputOutputBufferSize)
	opts := &lilliput.ImageOptions{
		FileType:             strings.ToLower(filepath.Ext(dst)),
		Width:                outDims.Width,
		Height:               outDims.Height,
		ResizeMethod:         lilliput.ImageOpsResize,
		NormalizeOrientation: true,
		EncodeOptions: map[int]int{
			lilliput.JpegQuality: quality,
			lilliput.WebpQuality: quality,
		},
	}

	resizedBuf, err := ops.Transform(decoder, opts, outputBuf)
	if err != nil {
		return fmt.Errorf("failed to resize %s: %w", src, err)
	}

	if err := os.WriteFile(dst, resizedBuf, 0644); err != nil {
		return fmt.Errorf("failed to write image file %s: %w", dst, err)
	}

	return nil
}

func (e *LilliputEngine) readFile(path string) ([]byte, error) {
	inputBuf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read original file %s: %w", path, err)
	}

	return inputBuf, nil
}

func (e *LilliputEngine) decode(
	path string,
	inputBuf []byte,
) (lilliput.Decoder, error) {
	decoder, err := lilliput.NewDecoder(inputBuf)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to create lilliput decoder for %s: %w",
			path,
			err,
		)
	}

	return decoder, nil
}

func (e *LilliputEngine) getOrigDimensions(
	path string,
	decoder lilliput.Decoder,
) (Dimensions, error) {
	imgHeader, err := decoder.Header()
	if err != nil {
		return Dimensions{}, fmt.Errorf(
			"failed to get image header for %s: %w",
			path,
			err,
		)
	}

	dims := Dimensions{
		Width:  imgHeader.Width(),
		Height: imgHeader.Height(),
	}

	// NormalizeOrientation turns these four orientations by 90 degrees
	switch imgHeader.Orientation() {
	case lilliput.OrientationLeftTop,
		lilliput.OrientationRightTop,
		lilliput.OrientationRightBottom,
		lilliput.OrientationLeftBottom:
		dims.Width, dims.Height = dims.Height, dims.Width
	}

	return dims, nil
}
