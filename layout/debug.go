package layout

import (
	"encoding/json"
	"os"

	"github.com/ByLCY/flowbox/tree"
)

// DebugNode 是调试 JSON 中的一个节点，同时给出相对父节点与相对根节点的矩形。
type DebugNode struct {
	ID       string            `json:"id"`
	Name     string            `json:"name,omitempty"`
	Kind     tree.Kind         `json:"kind"`
	Text     string            `json:"text,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Local    tree.Rect         `json:"local"`
	Absolute tree.Rect         `json:"absolute"`
	Hidden   bool              `json:"hidden,omitempty"`
	Children []DebugNode       `json:"children,omitempty"`
}

// DebugDocument 是 WriteDebugJSON 的输出结构。
type DebugDocument struct {
	Viewport Viewport  `json:"viewport"`
	Width    float64   `json:"width"`
	Height   float64   `json:"height"`
	Root     DebugNode `json:"root"`
}

// Debug 将布局结果转换为调试结构。
func Debug(res *Result) DebugDocument {
	doc := DebugDocument{Viewport: res.Viewport, Width: res.Width, Height: res.Height}
	if res.Root != nil {
		doc.Root = debugNode(res.Root)
	}
	return doc
}

func debugNode(n *tree.Node) DebugNode {
	d := DebugNode{
		ID:       n.ID,
		Name:     n.Name,
		Kind:     n.Kind,
		Local:    n.Pos,
		Absolute: tree.Absolute(n),
		Hidden:   n.Hidden(),
	}
	if n.Kind == tree.Text {
		d.Text = n.Text()
	} else if len(n.Attrs) > 0 {
		d.Attrs = n.Attrs
	}
	for _, c := range n.Children {
		d.Children = append(d.Children, debugNode(c))
	}
	return d
}

// WriteDebugJSON 将布局结果输出为 JSON，便于调试或可视化。
func WriteDebugJSON(res *Result, path string) error {
	if res == nil {
		return nil
	}
	data, err := json.MarshalIndent(Debug(res), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
