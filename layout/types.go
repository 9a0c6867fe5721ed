package layout

import "github.com/ByLCY/flowbox/tree"

// Viewport 是布局的可视区域，宽度约束折行，高度作为 layer/空 layer 的参考高度。
type Viewport struct {
	Width  float64 `json:"width" yaml:"width" toml:"width"`
	Height float64 `json:"height" yaml:"height" toml:"height"`
}

func (v Viewport) cursor() Cursor { return Cursor{W: v.Width, H: v.Height} }

// Result 保存一次布局的结果。Height 为根节点的最终高度，用于确定滚动区域。
type Result struct {
	Root     *tree.Node `json:"root"`
	Viewport Viewport   `json:"viewport"`
	Width    float64    `json:"width"`
	Height   float64    `json:"height"`
}
