package layout

import "github.com/ByLCY/flowbox/tree"

// shift converts a node's own frame into the frame that lines it.
type shift struct{ dx, dy float64 }

// offsets 记录跨容器参与排行的节点的坐标偏移，由所属帧持有。
type offsets map[*tree.Node]shift

// rect 返回 n 在接收帧坐标系中的矩形。
func (o offsets) rect(n *tree.Node) Placement {
	s := o[n]
	r := n.Pos
	r.X += s.dx
	r.Y += s.dy
	return r
}

// alignLine 底部对齐一行并按 align 水平平移，返回该行的基线（最低的下边缘）。
// 空行返回 fallback。
func alignLine(line []*tree.Node, align string, frameW, fallback float64, offs offsets) float64 {
	if len(line) == 0 {
		return fallback
	}
	baseline := 0.0
	for i, n := range line {
		if b := offs.rect(n).Bottom(); i == 0 || b > baseline {
			baseline = b
		}
	}
	for _, n := range line {
		n.Pos.Y += baseline - offs.rect(n).Bottom()
	}

	gap := frameW - offs.rect(line[len(line)-1]).Right()
	var dx float64
	switch align {
	case "center":
		dx = gap / 2
	case "right":
		dx = gap
	}
	// 超出框架的行 gap 为负，按同样的规则向左平移。
	for _, n := range line {
		n.Pos.X += dx
	}
	return baseline
}

// alignFromTallest 以最高的成员为准，把其余成员下移高度差，使它们的下边缘对齐；
// 返回最高成员在接收帧中的下边缘。用于跨容器的行。
func alignFromTallest(line []*tree.Node, offs offsets) float64 {
	if len(line) == 0 {
		return 0
	}
	tallest := line[0]
	for _, n := range line[1:] {
		if n.Pos.H > tallest.Pos.H {
			tallest = n
		}
	}
	for _, n := range line {
		n.Pos.Y += tallest.Pos.H - n.Pos.H
	}
	return offs.rect(tallest).Bottom()
}

// extent returns the greatest right and bottom edges of the line.
func extent(line []*tree.Node, offs offsets) (right, bottom float64) {
	for _, n := range line {
		r := offs.rect(n)
		right = max(right, r.Right())
		bottom = max(bottom, r.Bottom())
	}
	return right, bottom
}

func without(line []*tree.Node, n *tree.Node) []*tree.Node {
	for i, m := range line {
		if m == n {
			return append(line[:i], line[i+1:]...)
		}
	}
	return line
}
