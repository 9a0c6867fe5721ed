package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ByLCY/flowbox/tree"
)

var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorBlue   = lipgloss.Color("75")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")

	kindStyles = map[tree.Kind]lipgloss.Style{
		tree.CustomLayer:      lipgloss.NewStyle().Bold(true).Foreground(colorBlue),
		tree.CustomEmptyLayer: lipgloss.NewStyle().Foreground(colorBlue),
		tree.Container:        lipgloss.NewStyle().Foreground(colorCyan),
		tree.Image:            lipgloss.NewStyle().Foreground(colorGreen),
		tree.Text:             lipgloss.NewStyle().Foreground(colorYellow),
		tree.LineBreak:        lipgloss.NewStyle().Foreground(colorGray),
	}
	styleRect   = lipgloss.NewStyle().Foreground(colorGray)
	styleDim    = lipgloss.NewStyle().Foreground(colorDim)
	styleTitle  = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleHidden = lipgloss.NewStyle().Faint(true).Strikethrough(true)
)

// maxTextPreview 是 inspect 中文本内容的最大显示字符数。
const maxTextPreview = 32

// renderTree 以缩进树的形式列出节点及其相对父节点的放置。
func renderTree(root *tree.Node) string {
	if root == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(styleTitle.Render(fmt.Sprintf("%s %s", root.Name, root.Pos)))
	b.WriteByte('\n')
	for i, c := range root.Children {
		writeNode(&b, c, "", i == len(root.Children)-1)
	}
	return b.String()
}

func writeNode(b *strings.Builder, n *tree.Node, prefix string, last bool) {
	branch, next := "├─ ", "│  "
	if last {
		branch, next = "└─ ", "   "
	}
	b.WriteString(styleDim.Render(prefix + branch))
	b.WriteString(nodeLabel(n))
	b.WriteByte('\n')
	for i, c := range n.Children {
		writeNode(b, c, prefix+next, i == len(n.Children)-1)
	}
}

func nodeLabel(n *tree.Node) string {
	label := n.Kind.String()
	if n.Name != "" && n.Kind != tree.Text {
		label += " " + n.Name
	}
	if n.IsBox() {
		label += fmt.Sprintf(" [box g%d]", n.Box.Group)
	}
	style := kindStyles[n.Kind]
	if n.Hidden() {
		style = styleHidden
	}
	out := style.Render(label)
	if n.Kind == tree.Text {
		out += " " + fmt.Sprintf("%q", preview(n.Text()))
	}
	if n.Placed {
		out += " " + styleRect.Render(n.Pos.String())
	}
	return out
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= maxTextPreview {
		return s
	}
	return string(r[:maxTextPreview]) + "…"
}
