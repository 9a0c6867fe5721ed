package layout

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strings"
	"testing"
	"testing/fstest"
	"unicode/utf8"

	"github.com/ByLCY/flowbox/resource"
	"github.com/ByLCY/flowbox/tree"
)

// stubTypesetter 是等宽排版的最小实现：每个字符 charW 宽，仅在空格处折行，
// 行首放不下时按字符强制截断。
type stubTypesetter struct {
	charW float64
	lineH float64
}

func newStub() *stubTypesetter { return &stubTypesetter{charW: 10, lineH: 20} }

func (s *stubTypesetter) width(text string) float64 {
	return float64(utf8.RuneCountInString(text)) * s.charW
}

func (s *stubTypesetter) LineHeight(_ context.Context, style resource.Style) (float64, error) {
	if style.LineHeight > 0 {
		return style.LineHeight, nil
	}
	return s.lineH, nil
}

func (s *stubTypesetter) LayoutText(ctx context.Context, req TextRequest, sink Sink) (Placement, error) {
	c := req.Cursor
	lh, _ := s.LineHeight(ctx, req.Style)
	text := req.Text
	if w := s.width(text); w <= c.W {
		if req.Node.Continued && w < c.W {
			emit(sink, Signal{Kind: TailInsertedToLine, Node: req.Node})
		}
		return Placement{X: c.X, Y: c.Y, W: w, H: lh}, nil
	}

	head := ""
	for i, r := range text {
		if r == ' ' && s.width(text[:i]) <= c.W {
			head = text[:i]
		}
	}
	if head == "" {
		if !req.LineStart {
			emit(sink, Signal{Kind: RetryWithNextLine, Node: req.Node})
			return c.ZeroSize(), nil
		}
		runes := []rune(text)
		n := max(int(c.W/s.charW), 1)
		head = string(runes[:n])
	}
	rest := strings.TrimLeft(text[len(head):], " ")
	tail := req.Node.SplitText(head, rest)
	emit(sink, Signal{Kind: InsertContentToNextLine, Node: tail})
	return Placement{X: c.X, Y: c.Y, W: s.width(head), H: lh}, nil
}

func pngData(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// newMachine 用真实的 resource.Loader 搭建引擎，图片来自内存文件系统。
func newMachine(t *testing.T, lib *resource.Library, files fstest.MapFS, opts ...func(*Options)) *Machine {
	t.Helper()
	if files == nil {
		files = fstest.MapFS{}
	}
	tracker := resource.NewTracker()
	loader := resource.NewLoader(lib, resource.NewImages(resource.ImageOptions{FS: files}), tracker, nil)
	o := Options{Typesetter: newStub(), Resources: loader}
	for _, fn := range opts {
		fn(&o)
	}
	m, err := New(o)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func layoutTree(t *testing.T, m *Machine, root *tree.Node, w, h float64) Result {
	t.Helper()
	res, err := m.Layout(context.Background(), root, Viewport{Width: w, Height: h})
	if err != nil {
		t.Fatalf("布局失败: %v", err)
	}
	return res
}

func container(children ...*tree.Node) *tree.Node {
	n := tree.New(tree.Container, "div")
	n.Append(children...)
	return n
}

func text(s string) *tree.Node { return tree.NewText(s) }

func img(attrs ...string) *tree.Node {
	n := tree.New(tree.Image, "img")
	for i := 0; i+1 < len(attrs); i += 2 {
		n.SetAttr(attrs[i], attrs[i+1])
	}
	return n
}

func br() *tree.Node { return tree.New(tree.LineBreak, "br") }

func abs(n *tree.Node) tree.Rect { return tree.Absolute(n) }

func wantRect(t *testing.T, label string, got, want tree.Rect) {
	t.Helper()
	if got != want {
		t.Fatalf("%s = %v, want %v", label, got, want)
	}
}

// texts 返回容器下所有文本节点的内容，按树序。
func texts(root *tree.Node) []string {
	var out []string
	root.Walk(func(n *tree.Node) bool {
		if n.Kind == tree.Text {
			out = append(out, n.Text())
		}
		return true
	})
	return out
}
