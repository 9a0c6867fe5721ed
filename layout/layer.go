package layout

import (
	"fmt"

	"github.com/ByLCY/flowbox/tree"
)

// layoutLayer 按模板锚点放置 layer，并在其中按锚点与碰撞分组放置各个 box。
// 节点中保存的是 layer 本身的矩形，返回给父节点的放置额外包含右、下边距。
func (p *pass) layoutLayer(n *tree.Node, c Cursor, sink Sink) (Placement, error) {
	var (
		base          Cursor
		right, bottom float64
	)
	if n.Parent.IsBox() {
		// box 中的 layer 继承 box 的宽高，从左端开始。
		base = Cursor{Y: c.Y, W: c.W, H: c.H}
	} else {
		name := layerTemplate(n)
		tmpl, err := p.template(name)
		if err != nil {
			return Placement{}, fmt.Errorf("layer %q: %w", name, err)
		}
		// layer 的纵向框架是它自己的模板高度加上下边距，right 与 bottom
		// 都取 Resolve 给出的到框架边缘的距离，与 box 的处理一致。
		span := tmpl.Anchor.Top + tmpl.OriginalHeight + tmpl.Anchor.Bottom
		rect, r, b := tmpl.Anchor.Resolve(c.W, span)
		if rect.W <= 0 {
			emit(sink, Signal{Kind: RetryWithNextLine, Node: n})
			zero := c.ZeroSize()
			n.Place(zero)
			return zero, nil
		}
		base = Cursor{X: c.X + rect.X, Y: c.Y + rect.Y, W: rect.W, H: tmpl.OriginalHeight}
		right, bottom = r, b
	}

	var (
		extRight, extBottom float64
		placedBottom        float64
		groupShift          float64
		group               int
	)
	for i, child := range n.Children {
		anchor, g := tree.Anchor{MaxX: 1, MaxY: 1}, 0
		if child.IsBox() {
			anchor, g = child.Box.Anchor, child.Box.Group
		}
		rect, r, b := anchor.Resolve(base.W, base.H)
		switch {
		case i == 0:
			group = g
		case g != group:
			// 分组变化：前面各组的高度已确定，新组整体移到它们下方。
			group = g
			groupShift = max(0, placedBottom-rect.Y)
		}
		view := Cursor{X: rect.X, Y: rect.Y + groupShift, W: rect.W, H: rect.H}

		var pl Placement
		if child.IsBox() {
			h, err := p.layoutBox(child, view)
			if err != nil {
				return Placement{}, err
			}
			pl = Placement{X: view.X, Y: view.Y, W: view.W, H: h}
			child.Place(pl)
			p.progress(child)
		} else {
			var err error
			if pl, err = p.dispatch(child, view, nil); err != nil {
				return Placement{}, err
			}
		}
		placedBottom = max(placedBottom, pl.Bottom())

		endRight, endBottom := pl.Right(), pl.Bottom()
		if i == len(n.Children)-1 {
			endRight += r
			endBottom += b
		}
		extRight = max(extRight, endRight)
		extBottom = max(extBottom, endBottom)
	}

	stored := Placement{X: base.X, Y: base.Y, W: max(base.W, extRight), H: max(base.H, extBottom)}
	n.Place(stored)
	p.logger.Debug("layer placed", "name", n.Name, "pos", stored, "right", right, "bottom", bottom)
	return Placement{X: stored.X, Y: stored.Y, W: stored.W + right, H: stored.H + bottom}, nil
}

// layoutBox 将 box 的内容自上而下堆叠，返回内容的总高度。
func (p *pass) layoutBox(box *tree.Node, view Cursor) (float64, error) {
	sink := &boxSink{pass: p, box: box}
	y := 0.0
	for i := 0; i < len(box.Children); i++ {
		child := box.Children[i]
		sink.current = child
		pl, err := p.dispatch(child, Cursor{Y: y, W: view.W, H: view.H}, sink)
		if err != nil {
			return 0, err
		}
		y = max(y, pl.Bottom())
	}
	return y, nil
}

// boxSink 接收 box 内容发出的信号。box 内容各占一行，
// 只有文本折行的余下部分需要处理：它作为下一个子节点继续堆叠。
type boxSink struct {
	*pass
	box     *tree.Node
	current *tree.Node
}

func (s *boxSink) Signal(sig Signal) (Cursor, bool) {
	if sig.Kind == InsertContentToNextLine && sig.Node != nil {
		s.box.InsertAfter(s.current, sig.Node)
		s.total++
		return Cursor{}, false
	}
	s.logger.Debug("box ignores signal", "box", s.box.Name, "signal", sig.Kind)
	return Cursor{}, false
}

// layoutEmptyLayer 以视口宽度流式排列内容，高度至少为游标高度。
func (p *pass) layoutEmptyLayer(n *tree.Node, c Cursor) (Placement, error) {
	pl, err := p.layoutContainer(n, Cursor{Y: c.Y, W: c.W, H: c.H}, nil)
	if err != nil {
		return Placement{}, err
	}
	if pl.H < c.H {
		pl.H = c.H
	}
	return pl, nil
}
