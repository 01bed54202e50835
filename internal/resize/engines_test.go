package resize_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giobyte8/picturefill/internal/resize"
)

func writeImage(t *testing.T, path string, w, h int) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	switch filepath.Ext(path) {
	case ".png":
		require.NoError(t, png.Encode(f, img))
	case ".gif":
		require.NoError(t, gif.Encode(f, img, nil))
	default:
		require.NoError(t, jpeg.Encode(f, img, &jpeg.Options{Quality: 90}))
	}
}

// exifOrientation6 is an APP1 segment holding a little-endian EXIF IFD
// with a single entry: Orientation (0x0112) = 6, rotate 90 degrees CW.
var exifOrientation6 = []byte{
	0xFF, 0xE1, 0x00, 0x22,
	'E', 'x', 'i', 'f', 0x00, 0x00,
	'I', 'I', 0x2A, 0x00, 0x08, 0x00, 0x00, 0x00,
	0x01, 0x00,
	0x12, 0x01, 0x03, 0x00, 0x01, 0x00, 0x00, 0x00, 0x06, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00,
}

// writeRotatedJPEG writes a w×h JPEG tagged to be displayed rotated by
// 90 degrees, as phone cameras do for portrait shots.
func writeRotatedJPEG(t *testing.T, path string, w, h int) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))

	// APP1 goes right after the SOI marker
	encoded := buf.Bytes()
	out := append([]byte{}, encoded[:2]...)
	out = append(out, exifOrientation6...)
	out = append(out, encoded[2:]...)
	require.NoError(t, os.WriteFile(path, out, 0644))
}

func decodedSize(t *testing.T, path string) resize.Dimensions {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	require.NoError(t, err)
	return resize.Dimensions{Width: cfg.Width, Height: cfg.Height}
}

// Pure Go engines; lilliput needs its native libraries at test time
func pureGoEngines() map[string]resize.Engine {
	return map[string]resize.Engine{
		resize.EngineImaging: resize.NewImagingEngine(),
		resize.EngineXDraw:   resize.NewXDrawEngine(),
	}
}

func TestEngines_Size(t *testing.T) {
	dir := t.TempDir()
	photo := filepath.Join(dir, "photo.jpg")
	writeImage(t, photo, 400, 300)

	for name, engine := range pureGoEngines() {
		t.Run(name, func(t *testing.T) {
			got, err := engine.Size(context.Background(), photo)
			require.NoError(t, err)
			assert.Equal(t, dims(400, 300), got)
			assert.True(t, got.Known())
		})
	}
}

func TestEngines_SizeRejectsNonImages(t *testing.T) {
	dir := t.TempDir()
	fake := filepath.Join(dir, "fake.png")
	require.NoError(t, os.WriteFile(fake, []byte("definitely not a png"), 0644))

	for name, engine := range pureGoEngines() {
		t.Run(name, func(t *testing.T) {
			_, err := engine.Size(context.Background(), fake)
			assert.ErrorContains(t, err, "is not a supported image")

			_, err = engine.Size(context.Background(), filepath.Join(dir, "missing.png"))
			assert.Error(t, err)
		})
	}
}

func TestEngines_Resize(t *testing.T) {
	tests := []struct {
		file   string
		native resize.Dimensions
		box    resize.Dimensions
		want   resize.Dimensions
	}{
		{"photo.jpg", dims(400, 300), dims(320, 320), dims(320, 240)},
		{"tall.png", dims(300, 400), dims(150, 150), dims(113, 150)},
		{"anim.gif", dims(64, 32), dims(32, 32), dims(32, 16)},
		{"icon.png", dims(50, 50), dims(50, 50), dims(50, 50)},
	}

	for name, engine := range pureGoEngines() {
		for _, tt := range tests {
			t.Run(name+"/"+tt.file, func(t *testing.T) {
				dir := t.TempDir()
				src := filepath.Join(dir, tt.file)
				writeImage(t, src, tt.native.Width, tt.native.Height)

				dst := filepath.Join(dir, "out-"+tt.file)
				err := engine.Resize(context.Background(), src, dst, tt.box, 80)
				require.NoError(t, err)

				assert.Equal(t, tt.want, decodedSize(t, dst))
			})
		}
	}
}

func TestEngines_ResizeHonoursCancelledContext(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "photo.jpg")
	writeImage(t, src, 40, 30)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for name, engine := range pureGoEngines() {
		t.Run(name, func(t *testing.T) {
			dst := filepath.Join(dir, name+".jpg")
			err := engine.Resize(ctx, src, dst, dims(20, 20), 80)
			assert.ErrorIs(t, err, context.Canceled)
			assert.NoFileExists(t, dst)
		})
	}
}

func TestEngines_ResizeWriteFailure(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "photo.jpg")
	writeImage(t, src, 40, 30)

	for name, engine := range pureGoEngines() {
		t.Run(name, func(t *testing.T) {
			dst := filepath.Join(dir, "missing-dir", "photo.jpg")
			err := engine.Resize(context.Background(), src, dst, dims(20, 20), 80)
			assert.ErrorContains(t, err, "image file")
		})
	}
}

func TestImagingEngine_SizeFollowsExifOrientation(t *testing.T) {
	src := filepath.Join(t.TempDir(), "portrait.jpg")
	writeRotatedJPEG(t, src, 60, 40)

	got, err := resize.NewImagingEngine().Size(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, dims(40, 60), got)
}

// Keeping an image at native size means resizing it into the box Size
// reported, which must leave its dimensions untouched.
func TestEngines_NativeBoxKeepsRotatedImageSize(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "portrait.jpg")
	writeRotatedJPEG(t, src, 60, 40)

	for name, engine := range pureGoEngines() {
		t.Run(name, func(t *testing.T) {
			native, err := engine.Size(context.Background(), src)
			require.NoError(t, err)

			box, keepNative := resize.TargetBox(native, dims(320, 320))
			require.True(t, keepNative)

			dst := filepath.Join(dir, name+"-320.jpg")
			require.NoError(t, engine.Resize(context.Background(), src, dst, box, 90))
			assert.Equal(t, native, decodedSize(t, dst))
		})
	}
}
