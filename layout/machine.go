// Package layout lays a content tree out inside a viewport.
//
// The walk is a recursive dispatch over node kinds. Containers flow their
// children into lines and react to signals their children raise while being
// placed; layers position their boxes by anchor. Every placement is relative
// to the parent node.
package layout

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/ByLCY/flowbox/errors"
	"github.com/ByLCY/flowbox/resource"
	"github.com/ByLCY/flowbox/tree"
)

// Machine 是布局引擎，可以被多个布局任务复用。
type Machine struct {
	ts       Typesetter
	res      Resources
	tracker  *resource.Tracker
	logger   *log.Logger
	observer Observer
	style    resource.Style
}

// New 根据 Options 创建布局引擎。
func New(opts Options) (*Machine, error) {
	if opts.Typesetter == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "layout: 缺少排版后端 Typesetter")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	res := opts.Resources
	if res == nil {
		res = resource.NewLoader(nil, nil, opts.Tracker, logger)
	}
	tracker := opts.Tracker
	if tracker == nil {
		if src, ok := res.(trackerSource); ok {
			tracker = src.Tracker()
		}
	}
	observer := opts.Observer
	if observer == nil {
		observer = NoopObserver{}
	}
	return &Machine{
		ts:       opts.Typesetter,
		res:      res,
		tracker:  tracker,
		logger:   logger,
		observer: observer,
		style:    opts.DefaultStyle,
	}, nil
}

// Start 在独立的 goroutine 中布局 root，立即返回任务句柄。
func (m *Machine) Start(ctx context.Context, root *tree.Node, view Viewport) *Task {
	t := &Task{done: make(chan struct{})}
	go func() {
		defer close(t.done)
		t.result, t.err = m.run(ctx, root, view, &t.hidden)
	}()
	return t
}

// Layout 布局 root 并等待结果。
func (m *Machine) Layout(ctx context.Context, root *tree.Node, view Viewport) (Result, error) {
	return m.Start(ctx, root, view).Wait(ctx)
}

func (m *Machine) run(ctx context.Context, root *tree.Node, view Viewport, hidden *errgroup.Group) (Result, error) {
	if root == nil {
		return Result{}, errors.New(errors.ErrCodeInvalidInput, "layout: 根节点为空")
	}
	// 同一棵树可以反复布局：先撤销上一次的折行与放置。
	root.Rejoin()
	start := time.Now()
	p := &pass{
		Machine: m,
		ctx:     ctx,
		hidden:  hidden,
		seen:    map[*tree.Node]struct{}{},
	}
	root.Walk(func(*tree.Node) bool {
		p.total++
		return true
	})

	m.observer.OnLoadStarted(ctx, root)
	m.logger.Debug("layout started", "root", root.Name, "nodes", p.total, "viewport", view)

	pl, err := p.dispatch(root, view.cursor(), nil)
	if err != nil {
		m.observer.OnLoaded(ctx, 0, time.Since(start), err)
		return Result{}, err
	}
	m.observer.OnLoaded(ctx, pl.H, time.Since(start), nil)
	m.logger.Debug("layout finished", "width", pl.W, "height", pl.H, "nodes", p.total, "elapsed", time.Since(start))
	return Result{Root: root, Viewport: view, Width: pl.W, Height: pl.H}, nil
}

// pass 保存一次布局运行的状态。
type pass struct {
	*Machine
	ctx    context.Context
	hidden *errgroup.Group

	templates sync.Map // name -> *resource.Pending[resource.Template]

	seen  map[*tree.Node]struct{}
	done  int
	total int
}

// dispatch 按类别布局一个节点，并把结果写入节点。
func (p *pass) dispatch(n *tree.Node, c Cursor, sink Sink) (Placement, error) {
	if err := p.ctx.Err(); err != nil {
		return Placement{}, err
	}
	if err := c.Validate(); err != nil {
		return Placement{}, fmt.Errorf("layout %s %q: %w", n.Kind, n.Name, err)
	}
	if n.Kind < tree.CustomLayer || n.Kind > tree.LineBreak {
		return Placement{}, errors.New(errors.ErrCodeUnknownKind, "node %q has unknown kind %s", n.Name, n.Kind)
	}
	if n.Hidden() {
		return p.hide(n, c), nil
	}
	p.logger.Debug("layout node", "kind", n.Kind, "name", n.Name, "cursor", c)

	var (
		pl  Placement
		err error
	)
	switch n.Kind {
	case tree.CustomLayer:
		// layer 自行写入位置：报告给父节点的尺寸包含右下边距。
		pl, err = p.layoutLayer(n, c, sink)
		if err == nil {
			p.progress(n)
		}
		return pl, err
	case tree.CustomEmptyLayer:
		pl, err = p.layoutEmptyLayer(n, c)
	case tree.Container:
		pl, err = p.layoutContainer(n, c, sink)
	case tree.Image:
		pl, err = p.layoutImage(n, c, sink)
	case tree.Text:
		pl, err = p.layoutText(n, c, sink)
	case tree.LineBreak:
		pl = p.layoutLineBreak(n, c, sink)
	default:
		return Placement{}, errors.New(errors.ErrCodeUnreachable, "dispatch fell through for kind %s", n.Kind)
	}
	if err != nil {
		return Placement{}, err
	}
	n.Place(pl)
	p.progress(n)
	return pl, nil
}

// hide 将隐藏节点及其子树放置为零尺寸，并在后台预取子树需要的资源。
func (p *pass) hide(n *tree.Node, c Cursor) Placement {
	zero := c.ZeroSize()
	n.Place(zero)
	p.progress(n)
	for _, child := range n.Children {
		child.Walk(func(d *tree.Node) bool {
			d.Place(Placement{})
			p.progress(d)
			return true
		})
	}
	p.prefetch(n)
	return zero
}

func (p *pass) prefetch(n *tree.Node) {
	var templates, images []string
	n.Walk(func(d *tree.Node) bool {
		switch d.Kind {
		case tree.CustomLayer:
			templates = append(templates, layerTemplate(d))
		case tree.Image:
			if name := d.Attr(tree.AttrTemplate); name != "" {
				templates = append(templates, name)
			} else if src := d.Attr(tree.AttrSrc); src != "" {
				images = append(images, src)
			}
		}
		if name := d.Attr(tree.AttrStyle); name != "" {
			templates = append(templates, name)
		}
		return true
	})
	if len(templates)+len(images) == 0 {
		return
	}
	p.logger.Debug("prefetch hidden subtree", "name", n.Name, "templates", len(templates), "images", len(images))

	ctx := context.WithoutCancel(p.ctx)
	p.hidden.Go(func() error {
		var first error
		for _, name := range templates {
			if _, err := p.loadTemplate(ctx, name).Result(); err != nil && first == nil {
				first = err
			}
		}
		for _, src := range images {
			if _, err := p.res.LoadImage(ctx, src).Result(); err != nil && first == nil {
				first = err
			}
		}
		return first
	})
}

// loadTemplate 返回同名模板共享的加载结果。
func (p *pass) loadTemplate(ctx context.Context, name string) *resource.Pending[resource.Template] {
	if v, ok := p.templates.Load(name); ok {
		return v.(*resource.Pending[resource.Template])
	}
	v, _ := p.templates.LoadOrStore(name, p.res.LoadTemplate(ctx, name))
	return v.(*resource.Pending[resource.Template])
}

func (p *pass) template(name string) (resource.Template, error) {
	return await(p.ctx, p.tracker, p.loadTemplate(p.ctx, name))
}

func (p *pass) progress(n *tree.Node) {
	if _, ok := p.seen[n]; ok {
		return
	}
	p.seen[n] = struct{}{}
	p.done++
	p.observer.OnProgress(p.ctx, p.done, max(p.total, p.done))
}

func layerTemplate(n *tree.Node) string {
	if name := n.Attr(tree.AttrTemplate); name != "" {
		return name
	}
	return n.Name
}
