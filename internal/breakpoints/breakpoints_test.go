package breakpoints_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giobyte8/picturefill/internal/breakpoints"
	"github.com/giobyte8/picturefill/internal/models"
)

func intPtr(v int) *int {
	return &v
}

func spec(id string, w, h int) models.BreakpointSpec {
	return models.BreakpointSpec{
		Breakpoint: models.NewBreakpointID(id),
		Size:       &models.Size{Width: w, Height: h},
	}
}

func withQuality(bp models.BreakpointSpec, q int) models.BreakpointSpec {
	bp.Quality = intPtr(q)
	return bp
}

func TestSanitize_StringZeroIsAnIdentifier(t *testing.T) {
	active, err := breakpoints.Sanitize(
		[]models.BreakpointSpec{withQuality(spec("0", 10, 10), 1)},
		breakpoints.DefaultQuality,
	)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, 1, *active[0].Quality)
}

func TestSanitize_AllValid(t *testing.T) {
	withQuality := spec("768px", 768, 768)
	withQuality.Quality = intPtr(60)

	active, err := breakpoints.Sanitize(
		[]models.BreakpointSpec{spec("320px", 320, 320), withQuality},
		90,
	)
	require.NoError(t, err)
	require.Len(t, active, 2)

	assert.Equal(t, 90, *active[0].Quality, "missing quality takes the default")
	assert.Equal(t, 60, *active[1].Quality, "declared quality is kept")
}

func TestSanitize_RejectsIncompleteCandidates(t *testing.T) {
	tests := []struct {
		name      string
		candidate models.BreakpointSpec
	}{
		{"missing size", models.BreakpointSpec{Prefix: "sm", Breakpoint: models.NewBreakpointID("320px")}},
		{"missing breakpoint", models.BreakpointSpec{Size: &models.Size{Width: 320, Height: 320}}},
		{"prefix only", models.BreakpointSpec{Prefix: "sm"}},
		{"zero width", spec("320px", 0, 320)},
		{"negative height", spec("320px", 320, -1)},
		{"numeric zero breakpoint", models.BreakpointSpec{
			Breakpoint: models.NumericBreakpointID(0),
			Size:       &models.Size{Width: 320, Height: 320},
		}},
		{"quality too low", withQuality(spec("320px", 320, 320), 0)},
		{"quality too high", withQuality(spec("320px", 320, 320), 101)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			active, err := breakpoints.Sanitize(
				[]models.BreakpointSpec{spec("1024px", 1024, 1024), tt.candidate},
				breakpoints.DefaultQuality,
			)
			require.Error(t, err)
			assert.ErrorIs(t, err, breakpoints.ErrInvalidBreakpoints)

			// The valid candidate survives, but the run must still abort
			require.Len(t, active, 1)
			assert.Equal(t, "1024px", active[0].Breakpoint.String())
		})
	}
}

func TestSanitize_Empty(t *testing.T) {
	_, err := breakpoints.Sanitize(nil, breakpoints.DefaultQuality)
	assert.ErrorIs(t, err, breakpoints.ErrNoBreakpoints)
}

func TestCandidates(t *testing.T) {
	t.Run("picturefill list wins", func(t *testing.T) {
		opts := models.Options{
			Size:        &models.Size{Width: 10, Height: 10},
			Picturefill: []models.BreakpointSpec{spec("480px", 480, 480)},
		}

		got := breakpoints.Candidates(opts)
		require.Len(t, got, 1)
		assert.Equal(t, "480px", got[0].Breakpoint.String())
	})

	t.Run("legacy size synthesizes one breakpoint", func(t *testing.T) {
		opts := models.Options{
			Size:   &models.Size{Width: 200, Height: 150},
			Prefix: "thumb",
		}

		got := breakpoints.Candidates(opts)
		require.Len(t, got, 1)
		assert.Equal(t, "200", got[0].Breakpoint.String())
		assert.True(t, got[0].Breakpoint.IsNumeric())
		assert.Equal(t, "thumb", got[0].Suffix())
		assert.Equal(t, models.Size{Width: 200, Height: 150}, *got[0].Size)
	})

	t.Run("defaults", func(t *testing.T) {
		got := breakpoints.Candidates(models.Options{})
		require.Len(t, got, 3)

		ids := []string{}
		for _, bp := range got {
			ids = append(ids, bp.Breakpoint.String())
			assert.Equal(t, bp.Size.Width, bp.Size.Height)
		}
		assert.Equal(t, []string{"320px", "768px", "1024px"}, ids)
	})
}

func TestValue(t *testing.T) {
	tests := []struct {
		id     models.BreakpointID
		want   int
		wantOk bool
	}{
		{models.NewBreakpointID("320px"), 320, true},
		{models.NewBreakpointID("1024"), 1024, true},
		{models.NewBreakpointID("48em"), 48, true},
		{models.NewBreakpointID("desktop"), 0, false},
		{models.NewBreakpointID("px320"), 0, false},
		{models.NumericBreakpointID(768), 768, true},
	}

	for _, tt := range tests {
		t.Run(tt.id.String(), func(t *testing.T) {
			got, ok := breakpoints.Value(tt.id)
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMin(t *testing.T) {
	got, ok := breakpoints.Min([]models.BreakpointSpec{
		spec("1024px", 1, 1),
		spec("desktop", 1, 1),
		spec("320px", 1, 1),
		spec("768px", 1, 1),
	})
	require.True(t, ok)
	assert.Equal(t, 320, got)

	_, ok = breakpoints.Min([]models.BreakpointSpec{spec("large", 1, 1)})
	assert.False(t, ok)
}
