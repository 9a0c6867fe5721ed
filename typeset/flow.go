package typeset

import (
	"context"
	"io"
	"strings"
	"sync"
	"unicode"

	"github.com/charmbracelet/log"
	"golang.org/x/text/unicode/norm"

	"github.com/ByLCY/flowbox/layout"
	"github.com/ByLCY/flowbox/resource"
	"github.com/ByLCY/flowbox/tree"
)

// DefaultSize 是样式未给出字号时使用的字号。
const DefaultSize = 13

// Options 配置 Flow。
type Options struct {
	// Faces 提供字体度量；为空时使用 Basic。
	Faces FaceSource
	// Font、Size 是样式未指定时的默认字体与字号。
	Font   string
	Size   float64
	Logger *log.Logger
}

// Flow 是基于贪心折行的 layout.Typesetter：
// 先在空白处断开，表意文字之间可任意断开，行首仍放不下的单词按字符截断。
type Flow struct {
	faces  FaceSource
	font   string
	size   float64
	logger *log.Logger

	mu    sync.Mutex
	cache map[faceKey]Face
}

type faceKey struct {
	font string
	size float64
}

var _ layout.Typesetter = (*Flow)(nil)

func New(opts Options) *Flow {
	if opts.Faces == nil {
		opts.Faces = Basic{}
	}
	if opts.Size <= 0 {
		opts.Size = DefaultSize
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &Flow{
		faces:  opts.Faces,
		font:   opts.Font,
		size:   opts.Size,
		logger: opts.Logger,
		cache:  map[faceKey]Face{},
	}
}

// face 返回样式对应的度量。字体加载失败时记录警告并退回 Basic，不中断布局。
func (f *Flow) face(style resource.Style) Face {
	key := faceKey{font: style.Font, size: style.Size}
	if key.font == "" {
		key.font = f.font
	}
	if key.size <= 0 {
		key.size = f.size
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if face, ok := f.cache[key]; ok {
		return face
	}
	face, err := f.faces.Face(key.font, key.size)
	if err != nil {
		f.logger.Warn("font unavailable, using basic metrics", "font", key.font, "size", key.size, "err", err)
		face, _ = Basic{}.Face(key.font, key.size)
	}
	f.cache[key] = face
	return face
}

func lineHeight(style resource.Style, face Face) float64 {
	if style.LineHeight > 0 {
		return style.LineHeight
	}
	return face.LineHeight()
}

func (f *Flow) LineHeight(ctx context.Context, style resource.Style) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return lineHeight(style, f.face(style)), nil
}

// LayoutText 在游标内放置文本的第一行。显式换行符总是结束当前片段。
func (f *Flow) LayoutText(ctx context.Context, req layout.TextRequest, sink layout.Sink) (layout.Placement, error) {
	if err := ctx.Err(); err != nil {
		return layout.Placement{}, err
	}
	face := f.face(req.Style)
	lh := lineHeight(req.Style, face)
	c := req.Cursor

	text := norm.NFC.String(req.Text)
	if text != req.Text {
		req.Node.SetAttr(tree.AttrContent, text)
	}
	if sink == nil {
		// 没有容器接收余下部分时不拆分节点，整段在游标宽度内折行。
		return measureBlock(text, c, face, lh), nil
	}

	line, after, hard := strings.Cut(text, "\n")
	line = strings.TrimSuffix(line, "\r")

	w := face.TextWidth(line)
	if w > c.W && isBlank(line) {
		// 行尾空白在折行处折叠。
		line, w = "", 0
	}
	if w <= c.W {
		if hard {
			return f.split(req, sink, line, after, w, lh), nil
		}
		if req.Node.Continued && w < c.W {
			signal(sink, layout.Signal{Kind: layout.TailInsertedToLine, Node: req.Node})
		}
		return layout.Placement{X: c.X, Y: c.Y, W: w, H: lh}, nil
	}

	head, rest := fitPrefix(tokenize(line), c.W, face)
	if head == "" {
		if !req.LineStart {
			signal(sink, layout.Signal{Kind: layout.RetryWithNextLine, Node: req.Node})
			return c.ZeroSize(), nil
		}
		head, rest = forceSplit(line, c.W, face)
	}
	if hard {
		rest += "\n" + after
	} else if rest == "" {
		req.Node.Truncate(head)
		return layout.Placement{X: c.X, Y: c.Y, W: face.TextWidth(head), H: lh}, nil
	}
	return f.split(req, sink, head, rest, face.TextWidth(head), lh), nil
}

// split 把节点截断为 head，余下部分作为新节点交给所在容器排到下一行。
func (f *Flow) split(req layout.TextRequest, sink layout.Sink, head, rest string, w, lh float64) layout.Placement {
	tail := req.Node.SplitText(head, rest)
	signal(sink, layout.Signal{Kind: layout.InsertContentToNextLine, Node: tail})
	c := req.Cursor
	return layout.Placement{X: c.X, Y: c.Y, W: w, H: lh}
}

// forceSplit 在行首按宽度截断单词，至少保留一个字符。
func forceSplit(line string, limit float64, face Face) (head, rest string) {
	head, rest = splitByWidth(strings.TrimLeftFunc(line, unicode.IsSpace), limit, face)
	return head, strings.TrimLeftFunc(rest, unicode.IsSpace)
}

// measureBlock 逐行折行整段文本而不修改节点，返回所有行的外接矩形。
// 每一行都从行首开始，放不下的单词按字符截断。
func measureBlock(text string, c layout.Cursor, face Face, lh float64) layout.Placement {
	var w, h float64
	for _, para := range strings.Split(text, "\n") {
		line := strings.TrimSuffix(para, "\r")
		for {
			lw := face.TextWidth(line)
			if lw <= c.W || isBlank(line) {
				if lw > c.W {
					lw = 0
				}
				w, h = max(w, lw), h+lh
				break
			}
			head, rest := fitPrefix(tokenize(line), c.W, face)
			if head == "" {
				head, rest = forceSplit(line, c.W, face)
			}
			w, h = max(w, face.TextWidth(head)), h+lh
			if rest == "" {
				break
			}
			line = rest
		}
	}
	return layout.Placement{X: c.X, Y: c.Y, W: w, H: h}
}

// signal 在 sink 存在时发送信号，返回是否已发送。
func signal(sink layout.Sink, s layout.Signal) bool {
	if sink == nil {
		return false
	}
	sink.Signal(s)
	return true
}
