package layout

import (
	"context"
	"time"

	"github.com/ByLCY/flowbox/tree"
)

// Observer receives progress events of a layout run.
type Observer interface {
	// OnLoadStarted is called once before the root is dispatched.
	OnLoadStarted(ctx context.Context, root *tree.Node)

	// OnProgress reports dispatched nodes against the current node count,
	// which grows as text runs are split.
	OnProgress(ctx context.Context, done, total int)

	// OnLoaded is called when the run ends; height is the root's resolved height.
	OnLoaded(ctx context.Context, height float64, duration time.Duration, err error)
}

// NoopObserver is a no-op implementation of Observer.
type NoopObserver struct{}

func (NoopObserver) OnLoadStarted(context.Context, *tree.Node)               {}
func (NoopObserver) OnProgress(context.Context, int, int)                    {}
func (NoopObserver) OnLoaded(context.Context, float64, time.Duration, error) {}
