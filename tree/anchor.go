package tree

// Anchor describes a rectangle anchored inside a parent frame.
//
// Min/Max are fractions of the parent frame (0 = left/top, 1 = right/bottom).
// On an axis where Min == Max the rectangle has the fixed size Width/Height and
// its own Min-fraction point sits on the anchor; otherwise it stretches between
// the anchored edges, shrunk by the insets.
type Anchor struct {
	MinX float64 `json:"minX" yaml:"min_x" toml:"min_x"`
	MinY float64 `json:"minY" yaml:"min_y" toml:"min_y"`
	MaxX float64 `json:"maxX" yaml:"max_x" toml:"max_x"`
	MaxY float64 `json:"maxY" yaml:"max_y" toml:"max_y"`

	Left   float64 `json:"left" yaml:"left" toml:"left"`
	Top    float64 `json:"top" yaml:"top" toml:"top"`
	Right  float64 `json:"right" yaml:"right" toml:"right"`
	Bottom float64 `json:"bottom" yaml:"bottom" toml:"bottom"`

	Width  float64 `json:"width" yaml:"width" toml:"width"`
	Height float64 `json:"height" yaml:"height" toml:"height"`
}

// Fixed 返回左上角定位、固定尺寸的锚点。
func Fixed(x, y, w, h float64) Anchor {
	return Anchor{Left: x, Top: y, Width: w, Height: h}
}

// Resolve 将锚点矩形解析到 parentW × parentH 的框架中。
// right/bottom 是矩形右、下边缘到框架边缘的剩余距离。
func (a Anchor) Resolve(parentW, parentH float64) (rect Rect, right, bottom float64) {
	x, w := resolveAxis(a.MinX, a.MaxX, a.Left, a.Right, a.Width, parentW)
	y, h := resolveAxis(a.MinY, a.MaxY, a.Top, a.Bottom, a.Height, parentH)
	rect = Rect{X: x, Y: y, W: w, H: h}
	return rect, parentW - rect.Right(), parentH - rect.Bottom()
}

func resolveAxis(min, max, lead, trail, size, span float64) (start, length float64) {
	if min == max {
		start = min*(span-size) + lead*(1-min) - trail*min
		return start, size
	}
	start = min*span + lead
	return start, max*span - trail - start
}
