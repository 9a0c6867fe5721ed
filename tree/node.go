// Package tree defines the content tree that flowbox lays out.
package tree

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Kind 表示节点的布局类别。
type Kind int

const (
	CustomLayer Kind = iota
	CustomEmptyLayer
	Container
	Image
	Text
	LineBreak
)

func (k Kind) String() string {
	switch k {
	case CustomLayer:
		return "layer"
	case CustomEmptyLayer:
		return "empty-layer"
	case Container:
		return "container"
	case Image:
		return "image"
	case Text:
		return "text"
	case LineBreak:
		return "br"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalText 让调试 JSON 输出可读的类别名。
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Attribute keys understood by the layout engine.
const (
	AttrAlign      = "align"
	AttrSrc        = "src"
	AttrContent    = "content"
	AttrTemplate   = "template"
	AttrHidden     = "hidden"
	AttrWidth      = "width"
	AttrHeight     = "height"
	AttrFont       = "font"
	AttrSize       = "size"
	AttrLineHeight = "line-height"
	AttrStyle      = "style"
)

// Rect 是节点在父坐标系中的位置与尺寸。
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

func (r Rect) Right() float64  { return r.X + r.W }
func (r Rect) Bottom() float64 { return r.Y + r.H }

func (r Rect) String() string {
	return fmt.Sprintf("(%g,%g %gx%g)", r.X, r.Y, r.W, r.H)
}

// BoxSpec 描述 layer 子区域（box）的锚点矩形与碰撞分组。
type BoxSpec struct {
	Anchor Anchor `json:"anchor"`
	Group  int    `json:"group"`
}

// Node 是内容树中的一个节点。
// Pos 只由布局引擎写入；Placed 为 false 时 Pos 无意义。
type Node struct {
	ID       string            `json:"id"`
	Name     string            `json:"name,omitempty"`
	Kind     Kind              `json:"kind"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Box      *BoxSpec          `json:"box,omitempty"`
	Children []*Node           `json:"children,omitempty"`
	Parent   *Node             `json:"-"`

	// Continued 标记由文本折行产生的后续片段。
	Continued bool `json:"continued,omitempty"`

	// original 是第一次被截断前的文本内容，Rejoin 据此恢复。
	original  string
	truncated bool

	Pos    Rect `json:"pos"`
	Placed bool `json:"placed"`
}

// New 创建一个带有随机 ID 的节点。
func New(kind Kind, name string) *Node {
	return &Node{
		ID:    uuid.NewString(),
		Name:  name,
		Kind:  kind,
		Attrs: map[string]string{},
	}
}

// NewText 创建文本节点。
func NewText(content string) *Node {
	n := New(Text, "text")
	n.Attrs[AttrContent] = content
	return n
}

// Attr 返回属性值，不存在时为空串。
func (n *Node) Attr(key string) string {
	if n == nil || n.Attrs == nil {
		return ""
	}
	return n.Attrs[key]
}

// HasAttr reports whether key is set.
func (n *Node) HasAttr(key string) bool {
	if n == nil || n.Attrs == nil {
		return false
	}
	_, ok := n.Attrs[key]
	return ok
}

func (n *Node) SetAttr(key, value string) {
	if n.Attrs == nil {
		n.Attrs = map[string]string{}
	}
	if key == AttrContent {
		// 外部改写内容后不再恢复布局前的文本。
		n.original, n.truncated = "", false
	}
	n.Attrs[key] = value
}

// FloatAttr 解析数值属性。
func (n *Node) FloatAttr(key string) (float64, bool) {
	raw := strings.TrimSpace(n.Attr(key))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(raw, "px"), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Hidden reports whether the node is laid out as zero-size.
func (n *Node) Hidden() bool {
	v := strings.ToLower(n.Attr(AttrHidden))
	return v == "true" || v == "1" || v == "yes"
}

// Align 返回 def / center / right 之一。
func (n *Node) Align() string {
	switch strings.ToLower(n.Attr(AttrAlign)) {
	case "center":
		return "center"
	case "right":
		return "right"
	default:
		return "def"
	}
}

func (n *Node) Text() string { return n.Attr(AttrContent) }

// IsBox reports whether the node is a layer sub-region.
func (n *Node) IsBox() bool { return n != nil && n.Box != nil }

// Append 追加子节点并设置父指针。
func (n *Node) Append(children ...*Node) {
	for _, c := range children {
		c.Parent = n
		n.Children = append(n.Children, c)
	}
}

// InsertAfter 将 child 插入到 ref 之后；ref 不在子列表中时追加到末尾。
func (n *Node) InsertAfter(ref, child *Node) {
	child.Parent = n
	idx := n.IndexOf(ref)
	if idx < 0 {
		n.Children = append(n.Children, child)
		return
	}
	n.Children = append(n.Children, nil)
	copy(n.Children[idx+2:], n.Children[idx+1:])
	n.Children[idx+1] = child
}

// Remove 移除子节点，返回其原位置（不存在时为 -1）。
func (n *Node) Remove(child *Node) int {
	idx := n.IndexOf(child)
	if idx < 0 {
		return -1
	}
	n.Children = append(n.Children[:idx], n.Children[idx+1:]...)
	child.Parent = nil
	return idx
}

func (n *Node) IndexOf(child *Node) int {
	for i, c := range n.Children {
		if c == child {
			return i
		}
	}
	return -1
}

// Place 写入布局结果。
func (n *Node) Place(r Rect) {
	n.Pos = r
	n.Placed = true
}

// Walk 先序遍历；fn 返回 false 时跳过该节点的子树。
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Absolute 返回节点在根坐标系下的矩形。
func Absolute(n *Node) Rect {
	r := n.Pos
	for p := n.Parent; p != nil; p = p.Parent {
		r.X += p.Pos.X
		r.Y += p.Pos.Y
	}
	return r
}

// Clone 深拷贝整棵子树（保留 ID，清空布局结果）。
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{
		ID:    n.ID,
		Name:  n.Name,
		Kind:  n.Kind,
		Attrs: make(map[string]string, len(n.Attrs)),

		Continued: n.Continued,
		original:  n.original,
		truncated: n.truncated,
	}
	for k, v := range n.Attrs {
		out.Attrs[k] = v
	}
	if n.Box != nil {
		box := *n.Box
		out.Box = &box
	}
	for _, c := range n.Children {
		out.Append(c.Clone())
	}
	return out
}

// SplitText 将文本节点截断为 head，并返回承载 rest 的后续片段。
// 后续片段复制原节点的属性，拥有新的 ID，尚未挂到任何父节点下。
func (n *Node) SplitText(head, rest string) *Node {
	tail := New(n.Kind, n.Name)
	for k, v := range n.Attrs {
		tail.Attrs[k] = v
	}
	tail.Attrs[AttrContent] = rest
	tail.Continued = true
	n.Truncate(head)
	return tail
}

// Truncate 把文本内容改为 content，并在第一次修改时记住原始内容。
func (n *Node) Truncate(content string) {
	if !n.truncated && !n.Continued {
		n.original = n.Text()
		n.truncated = true
	}
	if n.Attrs == nil {
		n.Attrs = map[string]string{}
	}
	n.Attrs[AttrContent] = content
}

// Rejoin 撤销上一次布局对子树的修改：移除折行产生的后续片段，
// 恢复被截断文本的原始内容，并清除所有放置。对从未布局过的树没有影响。
func (n *Node) Rejoin() {
	n.Walk(func(d *Node) bool {
		if d.truncated {
			d.Attrs[AttrContent] = d.original
			d.original, d.truncated = "", false
		}
		kept := d.Children[:0]
		for _, c := range d.Children {
			if c.Continued {
				c.Parent = nil
				continue
			}
			kept = append(kept, c)
		}
		clear(d.Children[len(kept):])
		d.Children = kept
		d.Pos, d.Placed = Rect{}, false
		return true
	})
}

// LastContent 沿最后一个子节点向下，返回最深的内容节点及其相对 n 的坐标偏移。
func (n *Node) LastContent() (*Node, float64, float64) {
	cur := n
	var dx, dy float64
	for len(cur.Children) > 0 {
		if cur != n {
			dx += cur.Pos.X
			dy += cur.Pos.Y
		}
		cur = cur.Children[len(cur.Children)-1]
	}
	return cur, dx, dy
}
