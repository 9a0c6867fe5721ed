package layout

import (
	"testing"

	"github.com/ByLCY/flowbox/errors"
	"github.com/ByLCY/flowbox/resource"
	"github.com/ByLCY/flowbox/tree"
)

func box(name string, anchor tree.Anchor, group int, children ...*tree.Node) *tree.Node {
	n := tree.New(tree.Container, name)
	n.Box = &tree.BoxSpec{Anchor: anchor, Group: group}
	n.Append(children...)
	return n
}

func layer(name string, children ...*tree.Node) *tree.Node {
	n := tree.New(tree.CustomLayer, name)
	n.Append(children...)
	return n
}

func cardLibrary() *resource.Library {
	return resource.NewLibrary(
		resource.Template{
			Name:   "card",
			Kind:   resource.LayerTemplate,
			Anchor: tree.Anchor{MaxX: 1, Left: 10, Right: 10, Height: 100},
		},
		resource.Template{
			Name:   "footed",
			Kind:   resource.LayerTemplate,
			Anchor: tree.Anchor{MaxX: 1, Left: 10, Right: 10, Bottom: 6, Height: 100},
		},
		resource.Template{
			Name:   "wide",
			Kind:   resource.LayerTemplate,
			Anchor: tree.Anchor{MaxX: 1, Left: 10, Right: 10, Height: 20},
		},
	)
}

func TestLayerCollisionGroupsPushLaterGroupsDown(t *testing.T) {
	title := box("title", tree.Anchor{MaxX: 1, Height: 20}, 0, text("aaaa bbbb cccc dddd eeee"))
	body := box("body", tree.Anchor{MaxX: 1, Top: 10, Height: 30}, 1, text("x"))
	card := layer("card", title, body)

	res := layoutTree(t, newMachine(t, cardLibrary(), nil), card, 200, 500)

	wantRect(t, "title", title.Pos, tree.Rect{X: 0, Y: 0, W: 180, H: 40})
	wantRect(t, "body", body.Pos, tree.Rect{X: 0, Y: 40, W: 180, H: 20})
	wantRect(t, "card", card.Pos, tree.Rect{X: 10, Y: 0, W: 180, H: 120})
	if res.Width != 190 || res.Height != 120 {
		t.Fatalf("报告尺寸 = %gx%g, want 190x120", res.Width, res.Height)
	}
	if got := len(title.Children); got != 2 {
		t.Fatalf("title 中的长文本应折成两段: %d", got)
	}
	if title.Children[1].Pos.Y != 20 {
		t.Fatalf("box 内容应纵向堆叠: %v", title.Children[1].Pos)
	}
}

func TestLayerCollisionGroups(t *testing.T) {
	line := func(name string, top float64, group int) *tree.Node {
		return box(name, tree.Anchor{MaxX: 1, Top: top, Height: 20}, group, text("x"))
	}
	tests := []struct {
		name  string
		boxes []*tree.Node
		wantY []float64
		wantH float64
	}{
		{
			name:  "same group may overlap",
			boxes: []*tree.Node{line("a", 0, 0), line("b", 10, 0)},
			wantY: []float64{0, 10},
			wantH: 100,
		},
		{
			name:  "group shifts uniformly",
			boxes: []*tree.Node{line("a", 0, 0), line("b", 10, 0), line("c", 0, 1), line("d", 5, 1)},
			wantY: []float64{0, 10, 30, 35},
			wantH: 130, // 最后一个 box 的下边距跟随平移
		},
		{
			name:  "later group already below",
			boxes: []*tree.Node{line("a", 0, 0), line("e", 50, 1)},
			wantY: []float64{0, 50},
			wantH: 100,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := layer("card", tt.boxes...)
			layoutTree(t, newMachine(t, cardLibrary(), nil), card, 200, 500)
			for i, b := range tt.boxes {
				if b.Pos.Y != tt.wantY[i] {
					t.Fatalf("box %s y = %g, want %g", b.Name, b.Pos.Y, tt.wantY[i])
				}
			}
			if card.Pos.H != tt.wantH {
				t.Fatalf("layer 高度 = %g, want %g", card.Pos.H, tt.wantH)
			}
		})
	}
}

func TestLayerReportsBottomMargin(t *testing.T) {
	card := layer("footed", box("title", tree.Anchor{MaxX: 1, Height: 20}, 0, text("hi")))
	after := text("zz")
	root := container(card, after)
	res := layoutTree(t, newMachine(t, cardLibrary(), nil), root, 200, 500)

	wantRect(t, "footed", card.Pos, tree.Rect{X: 10, Y: 0, W: 180, H: 100})
	if res.Height != 126 {
		t.Fatalf("高度 = %g, want 106 的 layer 加一行 20", res.Height)
	}
	if after.Pos.Y != 106 {
		t.Fatalf("layer 下边距未计入: after.y = %g", after.Pos.Y)
	}
}

func TestLayerWithoutOverflowKeepsTemplateHeight(t *testing.T) {
	title := box("title", tree.Anchor{MaxX: 1, Height: 20}, 0, text("hi"))
	card := layer("card", title)
	layoutTree(t, newMachine(t, cardLibrary(), nil), card, 200, 500)
	if card.Pos.H != 100 {
		t.Fatalf("layer 高度 = %g, want 模板高度 100", card.Pos.H)
	}
}

func TestLayerRetriesOnNextLineWhenTooNarrow(t *testing.T) {
	lead := text("aaaaaaaa")
	wide := layer("wide", box("slot", tree.Anchor{MaxX: 1, MaxY: 1}, 0, text("ok")))
	root := container(lead, wide)
	res := layoutTree(t, newMachine(t, cardLibrary(), nil), root, 100, 500)

	wantRect(t, "wide", wide.Pos, tree.Rect{X: 10, Y: 20, W: 80, H: 20})
	if res.Height != 40 {
		t.Fatalf("高度 = %g, want 40", res.Height)
	}
}

func TestLayerInsideBoxInheritsBoxWidth(t *testing.T) {
	nested := layer("nested", box("inner", tree.Anchor{MaxX: 1, MaxY: 1}, 0, text("abc")))
	outer := layer("card", box("slot", tree.Anchor{MaxX: 1, Height: 10}, 0, nested))
	layoutTree(t, newMachine(t, cardLibrary(), nil), outer, 200, 500)

	if nested.Pos.X != 0 || nested.Pos.W != 180 {
		t.Fatalf("box 中的 layer = %v, want x=0 w=180", nested.Pos)
	}
}

func TestLayerMissingTemplateFails(t *testing.T) {
	m := newMachine(t, cardLibrary(), nil)
	_, err := m.Layout(t.Context(), layer("ghost"), Viewport{Width: 100, Height: 100})
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
}

func TestEmptyLayerPadsToViewportHeight(t *testing.T) {
	tests := []struct {
		name     string
		children []*tree.Node
		height   float64
	}{
		{"short content", []*tree.Node{text("ab")}, 300},
		{"no content", nil, 300},
		{"tall content", []*tree.Node{img(tree.AttrWidth, "10", tree.AttrHeight, "400")}, 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := tree.New(tree.CustomEmptyLayer, "page")
			n.Append(tt.children...)
			res := layoutTree(t, newMachine(t, nil, nil), n, 100, 300)
			if res.Height != tt.height {
				t.Fatalf("高度 = %g, want %g", res.Height, tt.height)
			}
		})
	}
}
