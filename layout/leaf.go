package layout

import (
	"fmt"

	"github.com/ByLCY/flowbox/errors"
	"github.com/ByLCY/flowbox/resource"
	"github.com/ByLCY/flowbox/tree"
)

func (p *pass) layoutText(n *tree.Node, c Cursor, sink Sink) (Placement, error) {
	style, err := p.styleFor(n)
	if err != nil {
		return Placement{}, err
	}
	req := TextRequest{
		Node:      n,
		Text:      n.Text(),
		Style:     style,
		Cursor:    c,
		LineStart: startsLine(sink, c),
	}
	pl, err := p.ts.LayoutText(p.ctx, req, sink)
	if err != nil {
		return Placement{}, fmt.Errorf("layout text %q: %w", n.Name, err)
	}
	return pl, nil
}

// lineStarter 由能判断游标是否位于真正行首的接收方实现。
type lineStarter interface {
	startsLine(c Cursor) bool
}

func startsLine(sink Sink, c Cursor) bool {
	if ls, ok := sink.(lineStarter); ok {
		return ls.startsLine(c)
	}
	return c.X == 0
}

// styleFor 解析节点的文本样式：节点自身属性优先，其次是它引用的样式模板，
// 然后逐级向上合并祖先，最后回退到 DefaultStyle。
func (p *pass) styleFor(n *tree.Node) (resource.Style, error) {
	var s resource.Style
	for cur := n; cur != nil; cur = cur.Parent {
		s = s.Merge(attrStyle(cur))
		name := cur.Attr(tree.AttrStyle)
		if name == "" {
			continue
		}
		tmpl, err := p.template(name)
		if err != nil {
			if ctxErr := p.ctx.Err(); ctxErr != nil {
				return resource.Style{}, ctxErr
			}
			p.logger.Warn("text style unavailable", "style", name, "err", err)
			continue
		}
		s = s.Merge(tmpl.Style)
	}
	return s.Merge(p.style), nil
}

func attrStyle(n *tree.Node) resource.Style {
	s := resource.Style{Font: n.Attr(tree.AttrFont)}
	if v, ok := n.FloatAttr(tree.AttrSize); ok {
		s.Size = v
	}
	if v, ok := n.FloatAttr(tree.AttrLineHeight); ok {
		s.LineHeight = v
	}
	return s
}

// lineHeight 返回容器内文本的默认行高，用于显式换行。
func (p *pass) lineHeight(n *tree.Node) (float64, error) {
	style, err := p.styleFor(n)
	if err != nil {
		return 0, err
	}
	return p.ts.LineHeight(p.ctx, style)
}

func (p *pass) layoutImage(n *tree.Node, c Cursor, sink Sink) (Placement, error) {
	w, hasW := n.FloatAttr(tree.AttrWidth)
	h, hasH := n.FloatAttr(tree.AttrHeight)

	if name := n.Attr(tree.AttrTemplate); name != "" {
		tmpl, err := p.template(name)
		if err != nil {
			if ctxErr := p.ctx.Err(); ctxErr != nil {
				return Placement{}, ctxErr
			}
			p.logger.Warn("image template unavailable", "template", name, "err", err)
			return c.ZeroSize(), nil
		}
		if !hasW {
			w = tmpl.Width
		}
		if !hasH {
			h = tmpl.Height
		}
		return Placement{X: c.X, Y: c.Y, W: w, H: h}, nil
	}
	if hasW && hasH {
		return Placement{X: c.X, Y: c.Y, W: w, H: h}, nil
	}

	src := n.Attr(tree.AttrSrc)
	if src == "" {
		return Placement{}, errors.New(errors.ErrCodeMissingAttribute, "image %q requires %q", n.Name, tree.AttrSrc)
	}
	info, err := await(p.ctx, p.tracker, p.res.LoadImage(p.ctx, src))
	if err != nil {
		if ctxErr := p.ctx.Err(); ctxErr != nil {
			return Placement{}, ctxErr
		}
		// 加载失败按零尺寸处理。
		p.logger.Warn("image unavailable, laid out as zero size", "src", src, "err", err)
		return c.ZeroSize(), nil
	}

	nw, nh := float64(info.Width), float64(info.Height)
	switch {
	case hasW && nw > 0:
		h = w * nh / nw
	case hasH && nh > 0:
		w = h * nw / nh
	default:
		w, h = nw, nh
	}
	if w > c.W && w > 0 {
		h *= c.W / w
		w = c.W
		emit(sink, Signal{Kind: LineEndedWithFilledImage, Node: n})
	}
	return Placement{X: c.X, Y: c.Y, W: w, H: h}, nil
}

func (p *pass) layoutLineBreak(n *tree.Node, c Cursor, sink Sink) Placement {
	emit(sink, Signal{Kind: Crlf, Node: n})
	return c.ZeroSize()
}
