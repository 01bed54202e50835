package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"

	"github.com/giobyte8/picturefill/internal/breakpoints"
	"github.com/giobyte8/picturefill/internal/models"
	"github.com/giobyte8/picturefill/internal/resize"
	"github.com/giobyte8/picturefill/internal/sources"
	"github.com/giobyte8/picturefill/internal/telemetry"
	"github.com/giobyte8/picturefill/internal/telemetry/metrics"
)

var (
	// ErrRunFailed is joined to every error that ends a run after
	// dispatch started.
	ErrRunFailed = zerr.New("resize run failed")

	// ErrIncompleteRun is returned when every task resolved but some
	// produced no output, e.g. because the image size query failed.
	ErrIncompleteRun = zerr.New("not every image variant was written")

	// ErrIndeterminateSize is returned when the engine reports an image
	// size without a usable width or height.
	ErrIndeterminateSize = zerr.New("image size could not be determined")

	// ErrOutputCollision is returned when two (image, breakpoint) pairs
	// would write the same variant file, e.g. 'a/photo.jpg' and
	// 'b/photo.jpg' resized into one destination directory.
	ErrOutputCollision = zerr.New("variant output paths collide")

	// ErrUnknownTarget is returned when a requested target is not
	// declared in the task file.
	ErrUnknownTarget = zerr.New("unknown target")
)

type CoordinatorConfig struct {

	// Default max number of resize operations in flight. Zero means
	// no limit. Targets may override it with 'options.concurrency'.
	Concurrency int
}

// Coordinator resizes the source images of a target into one variant
// per breakpoint.
type Coordinator struct {
	config    CoordinatorConfig
	engine    resize.Engine
	telemetry *telemetry.TelemetrySvc
}

func NewCoordinator(
	config CoordinatorConfig,
	engine resize.Engine,
	telemetry *telemetry.TelemetrySvc,
) *Coordinator {
	return &Coordinator{
		config:    config,
		engine:    engine,
		telemetry: telemetry,
	}
}

// RunOptions customizes a single run.
type RunOptions struct {

	// Called exactly once per run with its outcome.
	OnDone func(ok bool)
}

// RunResult summarizes a finished run.
type RunResult struct {
	RunID     uuid.UUID
	Target    string
	Expected  int
	Completed int
	Skipped   int

	// Variants kept at native size because the image was smaller
	// than the breakpoint size
	Fallbacks int

	// Smallest numeric breakpoint, informational only
	MinBreakpoint    int
	HasMinBreakpoint bool

	Duration time.Duration
}

// RunTargets runs the named targets of taskFile one after the other,
// stopping at the first failure. With no names every target runs, in
// name order.
func (c *Coordinator) RunTargets(
	ctx context.Context,
	taskFile *models.TaskFile,
	names []string,
) ([]*RunResult, error) {
	if len(names) == 0 {
		names = taskFile.TargetNames()
	}

	results := make([]*RunResult, 0, len(names))
	for _, name := range names {
		target, ok := taskFile.Targets[name]
		if !ok {
			return results, zerr.With(zerr.Wrap(ErrUnknownTarget, ""), "target", name)
		}

		res, err := c.RunTarget(ctx, name, target, RunOptions{})
		if res != nil {
			results = append(results, res)
		}
		if err != nil {
			return results, fmt.Errorf("target %s: %w", name, err)
		}
	}

	return results, nil
}

// RunTarget validates the breakpoints of target, resolves its sources
// and dispatches one resize per (image, breakpoint) pair.
//
// Invalid breakpoints abort the run before any file is touched.
func (c *Coordinator) RunTarget(
	ctx context.Context,
	name string,
	target models.Target,
	opts RunOptions,
) (*RunResult, error) {
	slog.Info("Running target", "target", name)

	quality := breakpoints.DefaultQuality
	if target.Options.Quality != nil {
		quality = *target.Options.Quality
	}

	active, err := breakpoints.Sanitize(
		breakpoints.Candidates(target.Options),
		quality,
	)
	if err != nil {
		slog.Error(
			"Aborting run, breakpoint configuration is invalid",
			"target", name,
			"error", err,
		)
		if opts.OnDone != nil {
			opts.OnDone(false)
		}
		return nil, err
	}

	files := sources.Resolve(target.Files)

	concurrency := c.config.Concurrency
	if target.Options.Concurrency > 0 {
		concurrency = target.Options.Concurrency
	}

	res, err := c.Dispatch(ctx, files, active, concurrency, opts)
	res.Target = name
	return res, err
}

// Dispatch fans out one resize task per (file, breakpoint) pair and
// waits until every task resolved. Specs must already be sanitized.
// A concurrency of zero starts every task at once.
func (c *Coordinator) Dispatch(
	ctx context.Context,
	files []sources.SourceFile,
	specs []models.BreakpointSpec,
	concurrency int,
	opts RunOptions,
) (*RunResult, error) {
	started := time.Now()
	expected := len(files) * len(specs)

	state := newRunState(expected, func(ok bool) {
		c.telemetry.Metrics().Increment(
			metrics.RunFinished,
			map[string]string{"success": strconv.FormatBool(ok)},
		)
		if opts.OnDone != nil {
			opts.OnDone(ok)
		}
	})

	c.telemetry.Metrics().Increment(metrics.RunStarted, nil)
	lowest, hasLowest := breakpoints.Min(specs)
	if hasLowest {
		slog.Debug("Minimum breakpoint", "runId", state.ID, "px", lowest)
	}
	result := func() *RunResult {
		res := c.result(state, started)
		res.MinBreakpoint, res.HasMinBreakpoint = lowest, hasLowest
		return res
	}

	if err := checkCollisions(files, specs); err != nil {
		slog.Error(
			"Aborting run before any write, variant paths collide",
			"runId", state.ID,
			"error", err,
		)
		state.Fail(err)
		return result(), state.Err()
	}

	if expected == 0 {
		slog.Warn("No source images to resize", "runId", state.ID)
		state.finish(nil)
		return result(), nil
	}

	slog.Info(
		"Dispatching resize tasks",
		"runId", state.ID,
		"images", len(files),
		"breakpoints", len(specs),
		"tasks", expected,
	)

	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}

	for _, spec := range specs {
		for _, file := range files {
			g.Go(func() error {
				return c.process(gctx, state, file, spec)
			})
		}
	}

	// Task errors already reached the run state
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		state.Fail(err)
	}
	if !state.Finished() {
		completed, skipped, _ := state.counts()
		slog.Error(
			"Run finished without writing every variant",
			"runId", state.ID,
			"expected", expected,
			"completed", completed,
			"skipped", skipped,
		)
		state.Fail(ErrIncompleteRun)
	}

	res := result()
	if err := state.Err(); err != nil {
		return res, err
	}

	slog.Info(
		"Run completed",
		"runId", state.ID,
		"variants", res.Completed,
		"nativeSize", res.Fallbacks,
		"duration", res.Duration,
	)
	return res, nil
}

func (c *Coordinator) process(
	ctx context.Context,
	state *RunState,
	file sources.SourceFile,
	spec models.BreakpointSpec,
) error {
	if state.Finished() || ctx.Err() != nil {
		state.Skip()
		return nil
	}

	dst := VariantPath(file, spec)

	// Idempotent, safe to race with other tasks sharing the directory
	if err := os.MkdirAll(file.DestinationDir, 0755); err != nil {
		err = fmt.Errorf(
			"failed to create destination directory %s: %w",
			file.DestinationDir,
			err,
		)
		slog.Error("Cannot create destination", "runId", state.ID, "error", err)
		state.Fail(err)
		return err
	}

	native, err := c.engine.Size(ctx, file.Path)
	if err != nil {
		if ctx.Err() == nil {
			slog.Error(
				"Cannot retrieve file size information",
				"runId", state.ID,
				"path", file.Path,
				"error", err,
			)
		}
		state.Skip()
		return nil
	}

	if !native.Known() {
		err := zerr.With(zerr.Wrap(ErrIndeterminateSize, ""), "path", file.Path)
		slog.Error(
			"Engine returned no usable image size",
			"runId", state.ID,
			"path", file.Path,
			"size", native,
		)
		state.Fail(err)
		return err
	}

	requested := resize.Dimensions{
		Width:  spec.Size.Width,
		Height: spec.Size.Height,
	}
	box, keepNative := resize.TargetBox(native, requested)
	if keepNative {
		slog.Warn(
			"Image is smaller than the breakpoint size, keeping original dimensions",
			"runId", state.ID,
			"path", file.Path,
			"breakpoint", spec.Breakpoint.String(),
			"native", native,
			"requested", requested,
		)
		c.telemetry.Metrics().Increment(
			metrics.VariantNativeDim,
			map[string]string{"breakpoint": spec.Breakpoint.String()},
		)
	}

	quality := breakpoints.DefaultQuality
	if spec.Quality != nil {
		quality = *spec.Quality
	}

	if err := c.engine.Resize(ctx, file.Path, dst, box, quality); err != nil {
		slog.Error(
			"Failed to write image variant",
			"runId", state.ID,
			"src", file.Path,
			"dst", dst,
			"error", err,
		)
		state.Fail(err)
		return err
	}

	slog.Debug("Created image variant", "runId", state.ID, "dst", dst, "box", box)
	c.telemetry.Metrics().Increment(
		metrics.VariantCreated,
		map[string]string{
			"breakpoint": spec.Breakpoint.String(),
			"origWidth":  strconv.Itoa(native.Width),
			"boxWidth":   strconv.Itoa(box.Width),
		},
	)

	state.Complete(keepNative)
	return nil
}

func (c *Coordinator) result(state *RunState, started time.Time) *RunResult {
	completed, skipped, fallbacks := state.counts()
	return &RunResult{
		RunID:     state.ID,
		Expected:  state.expected,
		Completed: completed,
		Skipped:   skipped,
		Fallbacks: fallbacks,
		Duration:  time.Since(started),
	}
}

// checkCollisions fails when two pairs map to the same variant path.
func checkCollisions(
	files []sources.SourceFile,
	specs []models.BreakpointSpec,
) error {
	owners := make(map[string]string, len(files)*len(specs))
	for _, spec := range specs {
		for _, file := range files {
			dst := filepath.Clean(VariantPath(file, spec))
			if prev, taken := owners[dst]; taken {
				return zerr.With(
					fmt.Errorf("%w: %s and %s both write %s", ErrOutputCollision, prev, file.Path, dst),
					"path", dst,
				)
			}
			owners[dst] = file.Path
		}
	}
	return nil
}

// VariantPath returns the path of the variant written for file at
// spec: '<dest>/<stem>-<prefix or breakpoint><ext>'.
func VariantPath(file sources.SourceFile, spec models.BreakpointSpec) string {
	ext := filepath.Ext(file.Path)
	stem := strings.TrimSuffix(filepath.Base(file.Path), ext)
	return filepath.Join(
		file.DestinationDir,
		stem+"-"+spec.Suffix()+ext,
	)
}
