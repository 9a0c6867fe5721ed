package typeset

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/ByLCY/flowbox/layout"
	"github.com/ByLCY/flowbox/resource"
	"github.com/ByLCY/flowbox/tree"
)

// recorder 记录收到的信号。
type recorder struct {
	got []layout.Signal
}

func (r *recorder) Signal(s layout.Signal) (layout.Cursor, bool) {
	r.got = append(r.got, s)
	return layout.Cursor{}, false
}

func (r *recorder) kinds() []layout.SignalKind {
	var out []layout.SignalKind
	for _, s := range r.got {
		out = append(out, s.Kind)
	}
	return out
}

func request(n *tree.Node, x, w float64, lineStart bool) layout.TextRequest {
	return layout.TextRequest{
		Node:      n,
		Text:      n.Text(),
		Cursor:    layout.Cursor{X: x, W: w, H: 500},
		LineStart: lineStart,
	}
}

func TestBasicFaceMetrics(t *testing.T) {
	face, err := Basic{}.Face("", 26)
	if err != nil {
		t.Fatalf("Face: %v", err)
	}
	if got := face.TextWidth("abc"); got != 42 {
		t.Fatalf("TextWidth = %g, want 42", got)
	}
	if got := face.LineHeight(); got != 26 {
		t.Fatalf("LineHeight = %g, want 26", got)
	}
}

func TestLayoutTextSplits(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		x, w      float64
		lineStart bool
		head      string
		rest      string
		width     float64
	}{
		{name: "at space", content: "hello world", w: 50, lineStart: true, head: "hello", rest: "world", width: 35},
		{name: "several words", content: "aa bb cc dd", w: 50, lineStart: true, head: "aa bb", rest: "cc dd", width: 35},
		{name: "forced inside word", content: "abcdefgh", w: 30, lineStart: true, head: "abcd", rest: "efgh", width: 28},
		{name: "at least one rune", content: "abc", w: 3, lineStart: true, head: "a", rest: "bc", width: 7},
		{name: "ideographs", content: "排版引擎布局", w: 21, lineStart: true, head: "排版引", rest: "擎布局", width: 21},
		{name: "hard newline", content: "ab\ncd", w: 100, lineStart: true, head: "ab", rest: "cd", width: 14},
		{name: "mid-row word break", content: "ab cdefgh", x: 40, w: 30, head: "ab", rest: "cdefgh", width: 14},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := tree.NewText(tt.content)
			sink := &recorder{}
			pl, err := New(Options{}).LayoutText(context.Background(), request(n, tt.x, tt.w, tt.lineStart), sink)
			if err != nil {
				t.Fatalf("LayoutText: %v", err)
			}
			if len(sink.got) != 1 || sink.got[0].Kind != layout.InsertContentToNextLine {
				t.Fatalf("信号 = %v, want 一次 InsertContentToNextLine", sink.kinds())
			}
			tail := sink.got[0].Node
			if n.Text() != tt.head || tail.Text() != tt.rest {
				t.Fatalf("切分 = %q | %q, want %q | %q", n.Text(), tail.Text(), tt.head, tt.rest)
			}
			if !tail.Continued {
				t.Fatalf("后续片段应标记 Continued")
			}
			want := layout.Placement{X: tt.x, W: tt.width, H: DefaultSize}
			if pl != want {
				t.Fatalf("placement = %v, want %v", pl, want)
			}
		})
	}
}

func TestLayoutTextRetriesMidRow(t *testing.T) {
	n := tree.NewText("abcdefgh")
	sink := &recorder{}
	pl, err := New(Options{}).LayoutText(context.Background(), request(n, 40, 30, false), sink)
	if err != nil {
		t.Fatalf("LayoutText: %v", err)
	}
	if !reflect.DeepEqual(sink.kinds(), []layout.SignalKind{layout.RetryWithNextLine}) {
		t.Fatalf("信号 = %v", sink.kinds())
	}
	if pl.W != 0 || pl.H != 0 || n.Text() != "abcdefgh" {
		t.Fatalf("重试时不应放置或修改节点: %v %q", pl, n.Text())
	}
}

func TestLayoutTextFits(t *testing.T) {
	ts := New(Options{})

	plain := tree.NewText("abc")
	sink := &recorder{}
	pl, err := ts.LayoutText(context.Background(), request(plain, 0, 100, true), sink)
	if err != nil {
		t.Fatalf("LayoutText: %v", err)
	}
	if len(sink.got) != 0 || pl.W != 21 {
		t.Fatalf("放得下时不发信号: %v %v", sink.kinds(), pl)
	}

	// 折行产生的末段停在行中。
	tail := tree.NewText("x").SplitText("x", "yz")
	sink = &recorder{}
	if _, err := ts.LayoutText(context.Background(), request(tail, 0, 100, true), sink); err != nil {
		t.Fatalf("LayoutText: %v", err)
	}
	if !reflect.DeepEqual(sink.kinds(), []layout.SignalKind{layout.TailInsertedToLine}) {
		t.Fatalf("信号 = %v, want TailInsertedToLine", sink.kinds())
	}

	// 去掉行尾空白后放得下时只截断，不产生新节点。
	spaced := tree.NewText("abcd    ")
	sink = &recorder{}
	pl, err = ts.LayoutText(context.Background(), request(spaced, 0, 30, true), sink)
	if err != nil {
		t.Fatalf("LayoutText: %v", err)
	}
	if len(sink.got) != 0 || spaced.Text() != "abcd" || pl.W != 28 {
		t.Fatalf("行尾空白: %v %q %v", sink.kinds(), spaced.Text(), pl)
	}
}

func TestLayoutTextNormalisesToNFC(t *testing.T) {
	// e + 组合重音 归一为单个 é。
	n := tree.NewText("e\u0301")
	pl, err := New(Options{}).LayoutText(context.Background(), request(n, 0, 100, true), nil)
	if err != nil {
		t.Fatalf("LayoutText: %v", err)
	}
	if n.Text() != "\u00e9" || pl.W != 7 {
		t.Fatalf("NFC = %q (w=%g)", n.Text(), pl.W)
	}
}

func TestLayoutTextWithoutSinkWrapsWholeBlock(t *testing.T) {
	tests := []struct {
		name    string
		content string
		w       float64
		width   float64
		height  float64
	}{
		{name: "fits", content: "abc", w: 100, width: 21, height: 13},
		{name: "wraps at spaces", content: "aaaa bbbb cccc", w: 40, width: 28, height: 39},
		{name: "forced inside word", content: "abcdefgh", w: 30, width: 28, height: 26},
		{name: "hard newline", content: "ab\ncdef\r\ng", w: 100, width: 28, height: 39},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := tree.NewText(tt.content)
			pl, err := New(Options{}).LayoutText(context.Background(), request(n, 5, tt.w, true), nil)
			if err != nil {
				t.Fatalf("LayoutText: %v", err)
			}
			if n.Text() != tt.content {
				t.Fatalf("没有容器时不应截断文本: %q", n.Text())
			}
			want := layout.Placement{X: 5, W: tt.width, H: tt.height}
			if pl != want {
				t.Fatalf("placement = %v, want %v", pl, want)
			}
		})
	}
}

func newMachine(t *testing.T) *layout.Machine {
	t.Helper()
	m, err := layout.New(layout.Options{Typesetter: New(Options{})})
	if err != nil {
		t.Fatalf("layout.New: %v", err)
	}
	return m
}

func TestRelayoutRestoresSplitText(t *testing.T) {
	tests := []struct {
		name    string
		content string
		width   float64
		head    string
		tail    tree.Rect
	}{
		{name: "hard newline", content: "ab\ncd", width: 300, head: "ab", tail: tree.Rect{Y: 13, W: 14, H: 13}},
		{name: "soft wrap", content: "aaaa bbbb c", width: 75, head: "aaaa bbbb", tail: tree.Rect{Y: 13, W: 7, H: 13}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMachine(t)
			first := tree.NewText(tt.content)
			root := tree.New(tree.Container, "div")
			root.Append(first)

			for i := range 2 {
				res, err := m.Layout(context.Background(), root, layout.Viewport{Width: tt.width, Height: 500})
				if err != nil {
					t.Fatalf("第 %d 次布局: %v", i+1, err)
				}
				if len(root.Children) != 2 || first.Text() != tt.head {
					t.Fatalf("第 %d 次布局片段 = %d %q", i+1, len(root.Children), first.Text())
				}
				if got := root.Children[1].Pos; got != tt.tail {
					t.Fatalf("第 %d 次布局后续片段 = %v, want %v", i+1, got, tt.tail)
				}
				if res.Height != 26 {
					t.Fatalf("第 %d 次布局高度 = %g, want 26", i+1, res.Height)
				}
			}
		})
	}
}

func TestTextRootKeepsWholeContent(t *testing.T) {
	root := tree.NewText("aaaa bbbb cccc")
	res, err := newMachine(t).Layout(context.Background(), root, layout.Viewport{Width: 40, Height: 500})
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	if root.Text() != "aaaa bbbb cccc" {
		t.Fatalf("根文本被截断: %q", root.Text())
	}
	if res.Height != 39 || res.Width != 28 {
		t.Fatalf("结果尺寸 = %gx%g, want 28x39", res.Width, res.Height)
	}
}

func TestLineHeightPrefersStyle(t *testing.T) {
	ts := New(Options{Size: 26})
	if lh, _ := ts.LineHeight(context.Background(), resource.Style{}); lh != 26 {
		t.Fatalf("默认行高 = %g, want 26", lh)
	}
	if lh, _ := ts.LineHeight(context.Background(), resource.Style{LineHeight: 40}); lh != 40 {
		t.Fatalf("样式行高 = %g, want 40", lh)
	}
}

type failingFaces struct{ calls int }

func (f *failingFaces) Face(string, float64) (Face, error) {
	f.calls++
	return nil, errors.New("no such font")
}

func TestFontFailureFallsBackToBasic(t *testing.T) {
	faces := &failingFaces{}
	ts := New(Options{Faces: faces, Font: "missing.ttf"})
	for range 2 {
		lh, err := ts.LineHeight(context.Background(), resource.Style{})
		if err != nil || lh != DefaultSize {
			t.Fatalf("回退行高 = %g, %v", lh, err)
		}
	}
	if faces.calls != 1 {
		t.Fatalf("失败的字体应只尝试一次: %d", faces.calls)
	}
}

func TestLayoutTextHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Options{}).LayoutText(ctx, request(tree.NewText("a"), 0, 10, true), nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestTokenize(t *testing.T) {
	got := tokenize("hi  there\r排版x")
	want := []string{"hi", "  ", "there", "排", "版", "x"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tokenize = %q, want %q", got, want)
	}
}
