// Package resource holds the collaborators layout waits on: templates, image
// sizes, and the tracker that counts loads still in flight.
package resource

import (
	"sync/atomic"
)

// LoadKind 区分正在进行的加载类型。
type LoadKind int

const (
	TemplateLoad LoadKind = iota
	ImageLoad
)

// Tracker counts loads currently in flight. It is injected into the layout
// driver; suspension points read Outstanding to decide whether parking is
// worthwhile. The zero value is ready to use and a nil Tracker counts nothing.
type Tracker struct {
	templates atomic.Int64
	images    atomic.Int64
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker { return &Tracker{} }

// Begin 标记一次加载开始，返回的函数在加载结束时调用（可重复调用）。
func (t *Tracker) Begin(kind LoadKind) func() {
	if t == nil {
		return func() {}
	}
	counter := t.counter(kind)
	counter.Add(1)
	var once atomic.Bool
	return func() {
		if once.CompareAndSwap(false, true) {
			counter.Add(-1)
		}
	}
}

func (t *Tracker) counter(kind LoadKind) *atomic.Int64 {
	if kind == ImageLoad {
		return &t.images
	}
	return &t.templates
}

// Templates returns the number of template loads in flight.
func (t *Tracker) Templates() int64 {
	if t == nil {
		return 0
	}
	return t.templates.Load()
}

// Images returns the number of image loads in flight.
func (t *Tracker) Images() int64 {
	if t == nil {
		return 0
	}
	return t.images.Load()
}

// Outstanding returns all loads in flight.
func (t *Tracker) Outstanding() int64 { return t.Templates() + t.Images() }

// Pending is the result of an asynchronous load. Done is closed once the value
// or error is available.
type Pending[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func newPending[T any]() *Pending[T] {
	return &Pending[T]{done: make(chan struct{})}
}

// Resolved returns a Pending that is already complete.
func Resolved[T any](v T) *Pending[T] {
	p := newPending[T]()
	p.val = v
	close(p.done)
	return p
}

// Failed returns a Pending that already carries err.
func Failed[T any](err error) *Pending[T] {
	p := newPending[T]()
	p.err = err
	close(p.done)
	return p
}

// Go 在独立 goroutine 中执行 fn，并在执行期间计入 tracker。
func Go[T any](tracker *Tracker, kind LoadKind, fn func() (T, error)) *Pending[T] {
	p := newPending[T]()
	end := tracker.Begin(kind)
	go func() {
		defer close(p.done)
		defer end()
		p.val, p.err = fn()
	}()
	return p
}

// Done is closed once the result is available.
func (p *Pending[T]) Done() <-chan struct{} { return p.done }

// Poll 非阻塞地查询结果；ok 为 false 表示仍在加载。
func (p *Pending[T]) Poll() (v T, ok bool, err error) {
	select {
	case <-p.done:
		return p.val, true, p.err
	default:
		var zero T
		return zero, false, nil
	}
}

// Result 阻塞直到结果可用。
func (p *Pending[T]) Result() (T, error) {
	<-p.done
	return p.val, p.err
}
