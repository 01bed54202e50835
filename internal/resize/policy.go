package resize

// TargetBox decides the box an image is resized into. Images are never
// upscaled: when the native image is narrower or shorter than the
// requested box, the native dimensions are used instead and keepNative
// is true.
func TargetBox(native, requested Dimensions) (box Dimensions, keepNative bool) {
	if native.Width < requested.Width || native.Height < requested.Height {
		return native, true
	}
	return requested, false
}

// Fit returns the largest size with the aspect ratio of src that fits
// inside box. Both sides are at least one pixel.
func Fit(src, box Dimensions) Dimensions {
	if !src.Known() || !box.Known() {
		return box
	}

	// Compare src.W/src.H against box.W/box.H without floats
	if src.Width*box.Height >= src.Height*box.Width {
		h := roundDiv(src.Height*box.Width, src.Width)
		return Dimensions{Width: box.Width, Height: max(h, 1)}
	}

	w := roundDiv(src.Width*box.Height, src.Height)
	return Dimensions{Width: max(w, 1), Height: box.Height}
}

func roundDiv(a, b int) int {
	return (2*a + b) / (2 * b)
}
