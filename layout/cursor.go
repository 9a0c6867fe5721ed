package layout

import (
	"fmt"

	"github.com/ByLCY/flowbox/errors"
	"github.com/ByLCY/flowbox/tree"
)

// Placement 是节点相对父框架的矩形。
type Placement = tree.Rect

// Cursor 描述一次放置可用的区域：起点 (X, Y) 与剩余宽高。
type Cursor struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Validate 拒绝负宽度的游标。
func (c Cursor) Validate() error {
	if c.W < 0 {
		return errors.New(errors.ErrCodeNegativeWidth, "cursor width %g is negative at (%g,%g)", c.W, c.X, c.Y)
	}
	return nil
}

// ZeroSize 返回位于游标起点的零尺寸放置。
func (c Cursor) ZeroSize() Placement { return Placement{X: c.X, Y: c.Y} }

// NextLine 返回从 y 开始的新行，宽高沿用当前框架。
func (c Cursor) NextLine(y float64) Cursor { return Cursor{Y: y, W: c.W, H: c.H} }

// RightOf continues the row to the right of p inside a frame frameW wide.
func (c Cursor) RightOf(p Placement, frameW float64) Cursor {
	return Cursor{X: p.Right(), Y: p.Y, W: frameW - p.Right(), H: c.H}
}

// IsEmpty reports whether c is the no-op envelope.
func (c Cursor) IsEmpty() bool { return c == Cursor{} }

func (c Cursor) String() string {
	return fmt.Sprintf("(%g,%g %gx%g)", c.X, c.Y, c.W, c.H)
}

