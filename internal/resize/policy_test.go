package resize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/giobyte8/picturefill/internal/resize"
)

func dims(w, h int) resize.Dimensions {
	return resize.Dimensions{Width: w, Height: h}
}

func TestTargetBox(t *testing.T) {
	tests := []struct {
		name       string
		native     resize.Dimensions
		requested  resize.Dimensions
		want       resize.Dimensions
		keepNative bool
	}{
		{"larger image", dims(400, 300), dims(320, 240), dims(320, 240), false},
		{"same size", dims(320, 320), dims(320, 320), dims(320, 320), false},
		{"smaller image", dims(50, 50), dims(320, 320), dims(50, 50), true},
		{"narrower image", dims(300, 1000), dims(320, 320), dims(300, 1000), true},
		{"shorter image", dims(400, 300), dims(320, 320), dims(400, 300), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, keepNative := resize.TargetBox(tt.native, tt.requested)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.keepNative, keepNative)
		})
	}
}

func TestFit(t *testing.T) {
	tests := []struct {
		src  resize.Dimensions
		box  resize.Dimensions
		want resize.Dimensions
	}{
		{dims(400, 300), dims(320, 320), dims(320, 240)},
		{dims(300, 400), dims(320, 320), dims(240, 320)},
		{dims(1000, 10), dims(100, 100), dims(100, 1)},
		{dims(10000, 1), dims(100, 100), dims(100, 1)},
		{dims(50, 50), dims(50, 50), dims(50, 50)},
		{dims(1920, 1080), dims(768, 768), dims(768, 432)},
		{dims(333, 333), dims(100, 50), dims(50, 50)},
		{dims(0, 0), dims(100, 50), dims(100, 50)},
	}

	for _, tt := range tests {
		t.Run(tt.src.String()+"_in_"+tt.box.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, resize.Fit(tt.src, tt.box))
		})
	}
}

func TestNewEngine(t *testing.T) {
	for _, name := range []string{"", resize.EngineImaging, resize.EngineXDraw, resize.EngineLilliput} {
		engine, err := resize.NewEngine(name)
		assert.NoError(t, err, name)
		assert.NotNil(t, engine, name)
	}

	_, err := resize.NewEngine("gm")
	assert.ErrorContains(t, err, `unknown image engine "gm"`)
}
