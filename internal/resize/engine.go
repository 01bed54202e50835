package resize

import (
	"context"
	"fmt"
)

// Dimensions is a pixel width/height pair.
type Dimensions struct {
	Width  int
	Height int
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// Known reports whether both sides are positive.
func (d Dimensions) Known() bool {
	return d.Width > 0 && d.Height > 0
}

// Engine is the image processing collaborator used by the resize
// coordinator. Implementations must be safe for concurrent use.
type Engine interface {

	// Size returns the native pixel dimensions of the image at path, as
	// Resize sees them. Engines that apply the EXIF orientation report
	// the rotated dimensions.
	Size(ctx context.Context, path string) (Dimensions, error)

	// Resize scales the image at src to fit inside box, keeping its
	// aspect ratio, and writes it to dst encoded with the given quality.
	// The output format follows the extension of dst.
	Resize(
		ctx context.Context,
		src string,
		dst string,
		box Dimensions,
		quality int,
	) error
}

const (
	EngineImaging  = "imaging"
	EngineLilliput = "lilliput"
	EngineXDraw    = "xdraw"
)

// EngineNames lists the names accepted by NewEngine.
var EngineNames = []string{EngineImaging, EngineLilliput, EngineXDraw}

// NewEngine returns the engine registered under name.
func NewEngine(name string) (Engine, error) {
	switch name {
	case "", EngineImaging:
		return NewImagingEngine(), nil
	case EngineLilliput:
		return NewLilliputEngine(), nil
	case EngineXDraw:
		return NewXDrawEngine(), nil
	default:
		return nil, fmt.Errorf(
			"unknown image engine %q, expected one of %v",
			name,
			EngineNames,
		)
	}
}
