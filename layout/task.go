package layout

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Task is a layout run in progress. The walk runs on its own goroutine; the
// caller either polls it once per frame or waits for it.
type Task struct {
	done   chan struct{}
	hidden errgroup.Group

	result Result
	err    error
}

// Done is closed when the walk has finished.
func (t *Task) Done() <-chan struct{} { return t.done }

// Poll 非阻塞地查询结果；ok 为 false 表示仍在布局中。
func (t *Task) Poll() (res Result, ok bool, err error) {
	select {
	case <-t.done:
		return t.result, true, t.err
	default:
		return Result{}, false, nil
	}
}

// Wait 阻塞直到布局完成或 ctx 结束。
func (t *Task) Wait(ctx context.Context) (Result, error) {
	select {
	case <-t.done:
		return t.result, t.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Hidden waits for the walk and then for the background loads started for
// hidden subtrees. It returns the first load failure, which never affects the
// layout result.
func (t *Task) Hidden(ctx context.Context) error {
	if _, err := t.Wait(ctx); err != nil && ctx.Err() != nil {
		return err
	}
	joined := make(chan error, 1)
	go func() { joined <- t.hidden.Wait() }()
	select {
	case err := <-joined:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
