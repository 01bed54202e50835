package services_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/giobyte8/picturefill/internal/resize"
)

type resizeCall struct {
	Src     string
	Dst     string
	Box     resize.Dimensions
	Quality int
}

// fakeEngine reports configured sizes and writes an empty file for
// every successful resize.
type fakeEngine struct {
	sizes      map[string]resize.Dimensions
	sizeErrs   map[string]error
	resizeErrs map[string]error
	delay      time.Duration

	mu    sync.Mutex
	calls []resizeCall

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		sizes:      make(map[string]resize.Dimensions),
		sizeErrs:   make(map[string]error),
		resizeErrs: make(map[string]error),
	}
}

func (e *fakeEngine) Size(_ context.Context, path string) (resize.Dimensions, error) {
	if err, ok := e.sizeErrs[path]; ok {
		return resize.Dimensions{}, err
	}
	if d, ok := e.sizes[path]; ok {
		return d, nil
	}
	return resize.Dimensions{Width: 2000, Height: 2000}, nil
}

func (e *fakeEngine) Resize(
	_ context.Context,
	src string,
	dst string,
	box resize.Dimensions,
	quality int,
) error {
	n := e.inFlight.Add(1)
	defer e.inFlight.Add(-1)
	for {
		peak := e.maxInFlight.Load()
		if n <= peak || e.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}
	if e.delay > 0 {
		time.Sleep(e.delay)
	}

	e.mu.Lock()
	e.calls = append(e.calls, resizeCall{Src: src, Dst: dst, Box: box, Quality: quality})
	e.mu.Unlock()

	if err, ok := e.resizeErrs[src]; ok {
		return err
	}
	return os.WriteFile(dst, nil, 0644)
}

func (e *fakeEngine) Calls() []resizeCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]resizeCall(nil), e.calls...)
}

var errDiskFull = errors.New("disk full")
