package dsl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/ByLCY/flowbox/errors"
	"github.com/ByLCY/flowbox/layout"
	"github.com/ByLCY/flowbox/resource"
	"github.com/ByLCY/flowbox/tree"
)

var templateKinds = map[string]resource.TemplateKind{
	"layer": resource.LayerTemplate,
	"box":   resource.BoxTemplate,
	"image": resource.ImageTemplate,
	"style": resource.TextTemplate,
}

func parseErr(pos lexer.Position, format string, args ...any) error {
	return errors.New(errors.ErrCodeParse, "%s: %s", pos, fmt.Sprintf(format, args...))
}

// Library 收集 resources 段声明的模板。
func (d *Document) Library() (*resource.Library, error) {
	lib := resource.NewLibrary()
	for _, sec := range d.Sections {
		if sec.Resources == nil {
			continue
		}
		for _, st := range sec.Resources.Block.Statements {
			if st.Command == nil {
				return nil, parseErr(statementPos(st), "resources 中只能声明模板")
			}
			t, err := templateOf(st.Command)
			if err != nil {
				return nil, err
			}
			if err := lib.Add(t); err != nil {
				return nil, err
			}
		}
	}
	return lib, nil
}

func statementPos(st *Statement) lexer.Position {
	switch {
	case st.Assignment != nil:
		return st.Assignment.Pos
	case st.Command != nil:
		return st.Command.Pos
	case st.Text != nil:
		return st.Text.Pos
	default:
		return lexer.Position{}
	}
}

// argName 把参数拼成名字，box 模板写作 layer.box。
func argName(args []*Lexeme) string {
	var b strings.Builder
	for _, a := range args {
		b.WriteString(a.Value)
	}
	return b.String()
}

func templateOf(cmd *Command) (resource.Template, error) {
	kind, ok := templateKinds[cmd.Name]
	if !ok {
		return resource.Template{}, parseErr(cmd.Pos, "未知的资源类型 %q", cmd.Name)
	}
	t := resource.Template{Name: argName(cmd.Args), Kind: kind}
	if t.Name == "" {
		return t, parseErr(cmd.Pos, "%s 缺少名称", cmd.Name)
	}
	if kind == resource.BoxTemplate && !strings.Contains(t.Name, ".") {
		return t, parseErr(cmd.Pos, "box %q 需写作 layer.box", t.Name)
	}
	if cmd.Block == nil {
		return t, nil
	}

	var lineHeight *LineHeightSpec
	for _, st := range cmd.Block.Statements {
		a := st.Assignment
		if a == nil {
			return t, parseErr(statementPos(st), "%s %s 中只能使用 key: value", cmd.Name, t.Name)
		}
		var err error
		switch key := a.Key; {
		case key == "anchor" && kind != resource.ImageTemplate && kind != resource.TextTemplate:
			err = parseAnchor(a.Value.Raw(), &t.Anchor)
		case key == "insets" && kind != resource.ImageTemplate && kind != resource.TextTemplate:
			err = parseInsets(a.Value.Raw(), &t.Anchor)
		case key == "width" && kind != resource.TextTemplate:
			var v float64
			if v, err = lengthPT(a.Value.Raw()); kind == resource.ImageTemplate {
				t.Width = v
			} else {
				t.Anchor.Width = v
			}
		case key == "height" && kind != resource.TextTemplate:
			var v float64
			if v, err = lengthPT(a.Value.Raw()); kind == resource.ImageTemplate {
				t.Height = v
			} else {
				t.Anchor.Height = v
			}
		case key == "group" && kind == resource.BoxTemplate:
			t.Group, err = strconv.Atoi(a.Value.Raw())
		case key == "font" && kind == resource.TextTemplate:
			t.Style.Font = a.Value.Raw()
		case key == "size" && kind == resource.TextTemplate:
			t.Style.Size, err = lengthPT(a.Value.Raw())
		case key == "line-height" && kind == resource.TextTemplate:
			var l Length
			if l, err = ParseLength(a.Value.Raw()); err == nil {
				lineHeight = &LineHeightSpec{Len: l}
			}
		default:
			return t, parseErr(a.Pos, "%s 不支持属性 %q", cmd.Name, key)
		}
		if err != nil {
			return t, parseErr(a.Pos, "%s: %v", a.Key, err)
		}
	}
	if lineHeight != nil {
		if lineHeight.Len.Unit == UnitFactor && t.Style.Size <= 0 {
			return t, parseErr(cmd.Pos, "style %s 的倍数行高需要同时声明 size", t.Name)
		}
		t.Style.LineHeight = lineHeight.Resolve(t.Style.Size)
	}
	return t, nil
}

func lengthPT(raw string) (float64, error) {
	l, err := ParseLength(raw)
	if err != nil {
		return 0, err
	}
	if l.Unit == UnitFactor {
		return 0, errors.New(errors.ErrCodeParse, "%q 不是绝对长度", raw)
	}
	return l.PT(), nil
}

func floats(raw string, n int) ([]float64, error) {
	fields := strings.Fields(raw)
	if len(fields) != n {
		return nil, errors.New(errors.ErrCodeParse, "需要 %d 个数值, got %q", n, raw)
	}
	out := make([]float64, n)
	for i, f := range fields {
		v, err := lengthPT(f)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// parseAnchor 解析 "minX minY maxX maxY"（父框架的比例）。
func parseAnchor(raw string, a *tree.Anchor) error {
	v, err := floats(raw, 4)
	if err != nil {
		return err
	}
	a.MinX, a.MinY, a.MaxX, a.MaxY = v[0], v[1], v[2], v[3]
	return nil
}

// parseInsets 解析 "left top right bottom"。
func parseInsets(raw string, a *tree.Anchor) error {
	v, err := floats(raw, 4)
	if err != nil {
		return err
	}
	a.Left, a.Top, a.Right, a.Bottom = v[0], v[1], v[2], v[3]
	return nil
}

func (d *Document) view() *ViewSection {
	for _, sec := range d.Sections {
		if sec.View != nil {
			return sec.View
		}
	}
	return nil
}

// Viewport 返回 view 段声明的视口尺寸（pt）。
func (d *Document) Viewport() (layout.Viewport, error) {
	v := d.view()
	if v == nil {
		return layout.Viewport{}, errors.New(errors.ErrCodeInvalidInput, "文档缺少 view 段")
	}
	w, err := lengthPT(v.Width)
	if err != nil {
		return layout.Viewport{}, parseErr(v.Pos, "view width: %v", err)
	}
	h, err := lengthPT(v.Height)
	if err != nil {
		return layout.Viewport{}, parseErr(v.Pos, "view height: %v", err)
	}
	return layout.Viewport{Width: w, Height: h}, nil
}

// Tree 构建 view 段的内容树。根节点是名为 view 的容器。
func (d *Document) Tree() (*tree.Node, error) {
	v := d.view()
	if v == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "文档缺少 view 段")
	}
	lib, err := d.Library()
	if err != nil {
		return nil, err
	}
	b := &builder{lib: lib}
	root := tree.New(tree.Container, "view")
	if err := b.attrs(root, v.Args); err != nil {
		return nil, err
	}
	if err := b.fill(root, v.Block, ""); err != nil {
		return nil, err
	}
	return root, nil
}

type builder struct {
	lib *resource.Library
}

// fill 把块中的语句加到 n 下：文本字面量成为文本节点，赋值成为 n 的属性。
// layer 非空时，块中名为 layer.box 的元素成为 box。
func (b *builder) fill(n *tree.Node, block *Block, layer string) error {
	if block == nil {
		return nil
	}
	for _, st := range block.Statements {
		switch {
		case st.Text != nil:
			n.Append(tree.NewText(string(st.Text.Value)))
		case st.Assignment != nil:
			v, err := attrValue(st.Assignment.Value.Raw(), st.Assignment.Value.Number != nil)
			if err != nil {
				return parseErr(st.Assignment.Pos, "%s: %v", st.Assignment.Key, err)
			}
			n.SetAttr(st.Assignment.Key, v)
		case st.Command != nil:
			child, err := b.element(st.Command, layer)
			if err != nil {
				return err
			}
			n.Append(child)
		}
	}
	return nil
}

func (b *builder) element(cmd *Command, layer string) (*tree.Node, error) {
	var n *tree.Node
	switch name := cmd.Name; {
	case layer != "" && b.lib.Has(resource.BoxName(layer, name), resource.BoxTemplate):
		t, _ := b.lib.Lookup(resource.BoxName(layer, name))
		n = tree.New(tree.Container, name)
		n.Box = &tree.BoxSpec{Anchor: t.Anchor, Group: t.Group}
	case name == "container" || name == "div":
		n = tree.New(tree.Container, name)
	case name == "br":
		n = tree.New(tree.LineBreak, name)
	case name == "img":
		n = tree.New(tree.Image, name)
	case name == "text":
		n = tree.NewText("")
	case name == "page":
		n = tree.New(tree.CustomEmptyLayer, name)
	case name == "layer":
		n = tree.New(tree.CustomLayer, name)
	case b.lib.Has(name, resource.LayerTemplate):
		n = tree.New(tree.CustomLayer, name)
	case b.lib.Has(name, resource.ImageTemplate):
		n = tree.New(tree.Image, name)
		n.SetAttr(tree.AttrTemplate, name)
	case b.lib.Has(name, resource.TextTemplate):
		n = tree.New(tree.Container, name)
		n.SetAttr(tree.AttrStyle, name)
	default:
		return nil, errors.New(errors.ErrCodeUnknownKind, "%s: 未知元素 %q", cmd.Pos, name)
	}
	if err := b.attrs(n, cmd.Args); err != nil {
		return nil, err
	}

	switch n.Kind {
	case tree.Text:
		return n, b.textBody(n, cmd)
	case tree.Image, tree.LineBreak:
		if cmd.Block != nil && len(cmd.Block.Statements) > 0 {
			return nil, parseErr(cmd.Pos, "%s 不能包含子元素", cmd.Name)
		}
		return n, nil
	case tree.CustomLayer:
		tmpl := n.Name
		if v := n.Attr(tree.AttrTemplate); v != "" {
			tmpl = v
		}
		if !b.lib.Has(tmpl, resource.LayerTemplate) {
			return nil, parseErr(cmd.Pos, "layer 模板 %q 未声明", tmpl)
		}
		return n, b.fill(n, cmd.Block, tmpl)
	default:
		return n, b.fill(n, cmd.Block, "")
	}
}

// textBody 把 text 元素块中的字符串拼成节点内容。
func (b *builder) textBody(n *tree.Node, cmd *Command) error {
	if cmd.Block == nil {
		return nil
	}
	var parts []string
	for _, st := range cmd.Block.Statements {
		if st.Text == nil {
			return parseErr(statementPos(st), "text 中只能包含字符串")
		}
		parts = append(parts, string(st.Text.Value))
	}
	n.SetAttr(tree.AttrContent, strings.Join(parts, ""))
	return nil
}

// attrs 把 key value 对写入节点属性；末尾单独的 key 视为 true。
func (b *builder) attrs(n *tree.Node, args []*Lexeme) error {
	for i := 0; i < len(args); i += 2 {
		key := args[i]
		if key.Type != "Ident" {
			return parseErr(key.Pos, "属性名应为标识符, got %q", key.Raw)
		}
		if i+1 == len(args) {
			n.SetAttr(key.Value, "true")
			break
		}
		val := args[i+1]
		v, err := attrValue(val.Value, val.Type == "Number")
		if err != nil {
			return parseErr(val.Pos, "%s: %v", key.Value, err)
		}
		n.SetAttr(key.Value, v)
	}
	return nil
}

// attrValue 把数值属性换算为 pt，其余原样保留。
func attrValue(raw string, number bool) (string, error) {
	if !number {
		return raw, nil
	}
	v, err := lengthPT(raw)
	if err != nil {
		return "", err
	}
	return formatPT(v), nil
}
