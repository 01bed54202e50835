// Package breakpoints validates the breakpoint list of a target before
// any resize work is dispatched.
package breakpoints

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"unicode"

	"go.trai.ch/zerr"

	"github.com/giobyte8/picturefill/internal/models"
)

// DefaultQuality is used when neither the breakpoint nor the target
// options declare a quality.
const DefaultQuality = 100

var (
	// ErrInvalidBreakpoints is returned when one or more breakpoints lack
	// a 'breakpoint' identifier or a usable 'size'.
	ErrInvalidBreakpoints = zerr.New("invalid breakpoint configuration")

	// ErrNoBreakpoints is returned when sanitization leaves nothing to do.
	ErrNoBreakpoints = zerr.New("no breakpoints configured")
)

// Defaults returns the preset breakpoints used when a target declares
// neither 'picturefill' nor a legacy 'size'.
func Defaults() []models.BreakpointSpec {
	return []models.BreakpointSpec{
		preset("320px", 320),
		preset("768px", 768),
		preset("1024px", 1024),
	}
}

func preset(id string, px int) models.BreakpointSpec {
	return models.BreakpointSpec{
		Breakpoint: models.NewBreakpointID(id),
		Size:       &models.Size{Width: px, Height: px},
	}
}

// Candidates returns the breakpoint list declared by opts, falling back
// to a breakpoint synthesized from the legacy size/prefix options and
// then to Defaults.
func Candidates(opts models.Options) []models.BreakpointSpec {
	if len(opts.Picturefill) > 0 {
		return opts.Picturefill
	}

	if opts.Size != nil {
		size := *opts.Size
		return []models.BreakpointSpec{{
			Breakpoint: models.NumericBreakpointID(size.Width),
			Prefix:     opts.Prefix,
			Size:       &size,
		}}
	}

	return Defaults()
}

// Sanitize drops every candidate lacking a breakpoint identifier or a
// positive size, or declaring a quality outside 1..100, and fills in the
// resolved quality of the rest.
//
// Validation is all-or-nothing: if any candidate was dropped an error
// is returned together with the surviving list, so callers abort before
// touching the filesystem.
func Sanitize(
	candidates []models.BreakpointSpec,
	defaultQuality int,
) ([]models.BreakpointSpec, error) {
	active := make([]models.BreakpointSpec, 0, len(candidates))
	invalid := 0

	for i, bp := range candidates {
		if missingID(bp.Breakpoint) || !validSize(bp.Size) {
			invalid++
			slog.Error(
				"Breakpoint requires both 'breakpoint' and 'size'",
				"index", i,
				"breakpoint", describe(bp),
			)
			continue
		}

		if bp.Quality != nil && !ValidQuality(*bp.Quality) {
			invalid++
			slog.Error(
				"Breakpoint quality must be within 1 and 100",
				"index", i,
				"breakpoint", describe(bp),
			)
			continue
		}

		if bp.Quality == nil {
			q := defaultQuality
			bp.Quality = &q
		}
		active = append(active, bp)
	}

	if invalid > 0 {
		// With copies a bare sentinel; wrapping first keeps it visible to errors.Is
		return active, zerr.With(zerr.Wrap(ErrInvalidBreakpoints, ""), "invalid_count", invalid)
	}
	if len(active) == 0 {
		return active, ErrNoBreakpoints
	}

	return active, nil
}

// missingID reports an empty identifier or a numeric zero; "0" written
// as a string is a regular identifier.
func missingID(id models.BreakpointID) bool {
	if id.IsZero() {
		return true
	}
	if !id.IsNumeric() {
		return false
	}
	v, err := strconv.ParseFloat(id.String(), 64)
	return err == nil && v == 0
}

// ValidQuality reports whether q is a usable encoder quality.
func ValidQuality(q int) bool {
	return q >= 1 && q <= 100
}

func validSize(size *models.Size) bool {
	return size != nil && size.Width > 0 && size.Height > 0
}

func describe(bp models.BreakpointSpec) string {
	out, err := json.Marshal(bp)
	if err != nil {
		return err.Error()
	}
	return string(out)
}

// Min returns the smallest numeric breakpoint value. String identifiers
// are read from their leading digits ("768px" is 768); identifiers
// without leading digits are ignored. The second return value is false
// when no breakpoint has a numeric value.
func Min(specs []models.BreakpointSpec) (int, bool) {
	lowest, found := 0, false
	for _, bp := range specs {
		v, ok := Value(bp.Breakpoint)
		if !ok {
			continue
		}
		if !found || v < lowest {
			lowest, found = v, true
		}
	}
	return lowest, found
}

// Value returns the numeric value of a breakpoint identifier.
func Value(id models.BreakpointID) (int, bool) {
	raw := id.String()
	if id.IsNumeric() {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return int(f), true
		}
		return 0, false
	}

	end := 0
	for end < len(raw) && unicode.IsDigit(rune(raw[end])) {
		end++
	}
	if end == 0 {
		return 0, false
	}

	v, err := strconv.Atoi(raw[:end])
	if err != nil {
		return 0, false
	}
	return v, true
}
