package layout

import (
	"slices"

	"github.com/ByLCY/flowbox/tree"
)

// flowFrame 是一个容器的排行状态。子节点按队列逐个放置，
// 放置过程中子节点发来的信号记录在 last 中，放置后据此决定换行与对齐。
type flowFrame struct {
	*pass
	node   *tree.Node
	parent Sink
	align  string

	env   Cursor // 容器在父帧中的包络
	next  Cursor // 下一个子节点的游标，容器坐标系
	// midRow 表示容器的首行接在某个祖先行的中间，即使 env.X 为 0。
	midRow    bool
	firstLine bool
	queue []*tree.Node
	index int
	line  []*tree.Node
	offs  offsets

	mostRight  float64
	mostBottom float64

	last    Signal
	current *tree.Node
}

func (p *pass) layoutContainer(n *tree.Node, c Cursor, parent Sink) (Placement, error) {
	if len(n.Children) == 0 {
		return c.ZeroSize(), nil
	}
	f := &flowFrame{
		pass:   p,
		node:   n,
		parent: parent,
		align:  n.Align(),
		env:    c,
		next:   Cursor{W: c.W, H: c.H},
		queue:  slices.Clone(n.Children),
		offs:   offsets{},

		midRow:    parent != nil && !startsLine(parent, c),
		firstLine: true,
	}
	return f.run()
}

func (f *flowFrame) run() (Placement, error) {
	for f.index = 0; f.index < len(f.queue); f.index++ {
		withdrawn, err := f.place(f.queue[f.index])
		if err != nil {
			return Placement{}, err
		}
		if withdrawn {
			return f.env.ZeroSize(), nil
		}
	}
	if len(f.line) > 0 {
		f.closeLine(f.next.Y)
	}
	return Placement{X: f.env.X, Y: f.env.Y, W: f.mostRight, H: f.mostBottom}, nil
}

// place 放置一个子节点，必要时换行重试。返回 true 表示容器放弃当前行，交由父容器换行后重新布局。
func (f *flowFrame) place(child *tree.Node) (bool, error) {
	for {
		f.line = append(f.line, child)
		f.last = Signal{}
		f.current = child

		p, err := f.dispatch(child, f.next, f)
		if err != nil {
			return false, err
		}

		switch f.last.Kind {
		case Crlf:
			f.line = without(f.line, child)
			lh, err := f.lineHeight(f.node)
			if err != nil {
				return false, err
			}
			f.newLine(max(f.closeLine(f.next.Y), f.next.Y+lh))
			return false, nil

		case RetryWithNextLine:
			f.line = without(f.line, child)
			if f.withdraws() {
				emit(f.parent, Signal{Kind: LineEndedWithoutNewContainerFirstLine, Node: f.node})
				return true, nil
			}
			if len(f.line) == 0 && f.next.X == 0 {
				// 空行行首仍放不下，保留当前结果，避免无限换行。
				f.logger.Warn("content does not fit an empty line", "kind", child.Kind, "name", child.Name, "width", f.env.W)
				f.line = append(f.line, child)
				f.advance(p)
				return false, nil
			}
			f.newLine(f.closeLine(f.next.Y))

		case LineEndedWithoutNewContainerFirstLine:
			f.line = without(f.line, child)
			if f.withdraws() {
				emit(f.parent, Signal{Kind: LineEndedWithoutNewContainerFirstLine, Node: f.node})
				return true, nil
			}
			f.newLine(f.closeLine(f.next.Y))

		case InsertContentToNextLine:
			f.insert(child, f.last.Node)
			f.extend(p)
			if f.inHeadRow() && f.negotiateHead() {
				return false, nil
			}
			f.newLine(max(f.closeLine(f.next.Y), p.Bottom()))
			return false, nil

		case LineEndedWithFilledImage:
			f.extend(p)
			alignFromTallest(f.line, f.offs)
			y := f.closeLineAsIs()
			f.newLine(max(y, child.Pos.Bottom()))
			return false, nil

		case TailInsertedToLine:
			if f.index == len(f.queue)-1 && len(f.queue) > 1 && f.parent != nil {
				emit(f.parent, Signal{Kind: LastLineEndedInTheMiddleOfLine, Node: f.node})
			}
			f.advance(p)
			return false, nil

		case LastLineEndedInTheMiddleOfLine:
			f.extend(p)
			f.continueAfterLastContent(child)
			if f.index == len(f.queue)-1 && f.parent != nil {
				emit(f.parent, Signal{Kind: LastLineEndedInTheMiddleOfLine, Node: f.node})
			}
			return false, nil

		default:
			f.advance(p)
			return false, nil
		}
	}
}

// Signal 接收子节点的信号。只有行中开始的子容器发来的
// HeadInsertedToTheEndOfLine 会得到新的包络：它的首行并入当前行，之后从下一行行首继续。
// 子容器位于本容器行首、而本容器自己接在祖先行中间时，请求继续向上转发。
func (f *flowFrame) Signal(s Signal) (Cursor, bool) {
	f.last = s
	if s.Kind != HeadInsertedToTheEndOfLine {
		return Cursor{}, false
	}
	if f.next.X <= 0 {
		if !f.inHeadRow() {
			return Cursor{}, false
		}
		return f.forwardHead(s)
	}
	f.line = without(f.line, f.current)
	own := slices.Clone(f.line)
	f.line = append(f.line, s.Line...)
	alignFromTallest(f.line, f.offs)
	f.extendLine(own)
	f.line = f.line[:0]
	return Cursor{Y: f.next.Y, W: f.env.W, H: f.env.H}, true
}

// forwardHead 把子容器的首行连同本容器已放在同一行的成员一起交给父容器。
// 父容器接受后本容器改从父行首开始，子容器从本容器的行首继续。
func (f *flowFrame) forwardHead(s Signal) (Cursor, bool) {
	own := without(slices.Clone(f.line), f.current)
	env, ok := emit(f.parent, Signal{
		Kind: HeadInsertedToTheEndOfLine,
		Node: f.node,
		Line: append(own, s.Line...),
	})
	if !ok {
		return Cursor{}, false
	}
	dx := f.env.X - env.X
	for _, m := range own {
		m.Pos.X += dx
	}
	for _, m := range s.Line {
		m.Pos.X += dx
	}
	f.extendLine(own)
	f.line = f.line[:0]
	f.env = env
	f.midRow, f.firstLine = false, false
	return Cursor{X: f.next.X, Y: f.next.Y, W: env.W, H: env.H}, true
}

// startsLine 在容器的首行接在祖先行中间时，首行上的游标都不是行首。
func (f *flowFrame) startsLine(c Cursor) bool {
	return c.X == 0 && !(f.firstLine && f.midRow)
}

func (f *flowFrame) inHeadRow() bool {
	return f.midRow && f.firstLine && f.parent != nil
}

// withdraws 判断首个子节点放不下时容器是否整体退到父容器的下一行。
func (f *flowFrame) withdraws() bool {
	return f.index == 0 && f.inHeadRow()
}

func (f *flowFrame) newLine(y float64) {
	f.next = f.env.NextLine(y)
	f.firstLine = false
}

// negotiateHead 把首行交给父容器排行。父容器接受时，容器的包络改为从父行首开始，
// 已放置的首行成员按原包络 X 平移以保持位置不变。
func (f *flowFrame) negotiateHead() bool {
	env, ok := emit(f.parent, Signal{
		Kind: HeadInsertedToTheEndOfLine,
		Node: f.node,
		Line: slices.Clone(f.line),
	})
	if !ok {
		return false
	}
	dx := f.env.X - env.X
	for _, m := range f.line {
		m.Pos.X += dx
	}
	f.extendLine(f.line)
	_, bottom := extent(f.line, f.offs)
	f.line = f.line[:0]
	f.env = env
	f.midRow = false
	f.newLine(bottom)
	return true
}

// continueAfterLastContent 把子容器最后一行的最后一个内容节点并入当前行，
// 后续内容从它的右侧继续。
func (f *flowFrame) continueAfterLastContent(child *tree.Node) {
	f.line = without(f.line, child)
	last, dx, dy := child.LastContent()
	if last == child {
		f.line = append(f.line, child)
		f.next = f.next.RightOf(child.Pos, f.env.W)
		return
	}
	f.offs[last] = shift{dx: child.Pos.X + dx, dy: child.Pos.Y + dy}
	f.line = append(f.line, last)
	r := f.offs.rect(last)
	f.next = Cursor{X: r.Right(), Y: r.Y, W: f.env.W - r.Right(), H: f.env.H}
}

// insert 把折行余下的部分排在 child 之后。
func (f *flowFrame) insert(child, rest *tree.Node) {
	if rest == nil {
		return
	}
	f.queue = slices.Insert(f.queue, f.index+1, rest)
	f.node.InsertAfter(child, rest)
	f.total++
}

// advance 是默认规则：右边缘到达容器宽度时换行，否则继续在右侧放置。
func (f *flowFrame) advance(p Placement) {
	f.extend(p)
	if p.Right() >= f.env.W {
		f.newLine(max(f.closeLine(f.next.Y), p.Bottom()))
		return
	}
	f.next = f.next.RightOf(p, f.env.W)
}

// closeLine 对齐当前行并返回下一行的 Y。
func (f *flowFrame) closeLine(fallback float64) float64 {
	y := alignLine(f.line, f.align, f.env.W, fallback, f.offs)
	f.extendLine(f.line)
	f.line = f.line[:0]
	return y
}

// closeLineAsIs 结束已对齐的行并返回其下边缘。
func (f *flowFrame) closeLineAsIs() float64 {
	_, bottom := extent(f.line, f.offs)
	f.extendLine(f.line)
	f.line = f.line[:0]
	return bottom
}

func (f *flowFrame) extend(p Placement) {
	f.mostRight = max(f.mostRight, p.Right())
	f.mostBottom = max(f.mostBottom, p.Bottom())
}

func (f *flowFrame) extendLine(line []*tree.Node) {
	right, bottom := extent(line, f.offs)
	f.mostRight = max(f.mostRight, right)
	f.mostBottom = max(f.mostBottom, bottom)
}
