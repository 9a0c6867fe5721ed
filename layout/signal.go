package layout

import (
	"fmt"

	"github.com/ByLCY/flowbox/tree"
)

// SignalKind 是子节点在布局过程中向所在容器发出的通知类型。
type SignalKind int

const (
	Continue SignalKind = iota
	// InsertContentToNextLine：文本溢出，余下部分作为新节点插入到下一行。
	InsertContentToNextLine
	// RetryWithNextLine：当前行放不下，需要换行后重新布局同一节点。
	RetryWithNextLine
	// Crlf：显式换行。
	Crlf
	// HeadInsertedToTheEndOfLine：行中开始的子容器在首行折行，请求父容器把首行并入当前行。
	HeadInsertedToTheEndOfLine
	// TailInsertedToLine：折行文本的最后一段停在行中。
	TailInsertedToLine
	// LastLineEndedInTheMiddleOfLine：子容器的最后一行停在行中，后续内容接在其右侧。
	LastLineEndedInTheMiddleOfLine
	// LineEndedWithoutNewContainerFirstLine：行中开始的容器连首行都放不下，整体撤回。
	LineEndedWithoutNewContainerFirstLine
	// LineEndedWithFilledImage：图片被缩放到整行宽度。
	LineEndedWithFilledImage
)

var signalNames = [...]string{
	Continue:                              "continue",
	InsertContentToNextLine:               "insert-content-to-next-line",
	RetryWithNextLine:                     "retry-with-next-line",
	Crlf:                                  "crlf",
	HeadInsertedToTheEndOfLine:            "head-inserted-to-the-end-of-line",
	TailInsertedToLine:                    "tail-inserted-to-line",
	LastLineEndedInTheMiddleOfLine:        "last-line-ended-in-the-middle-of-line",
	LineEndedWithoutNewContainerFirstLine: "line-ended-without-new-container-first-line",
	LineEndedWithFilledImage:              "line-ended-with-filled-image",
}

func (k SignalKind) String() string {
	if k >= 0 && int(k) < len(signalNames) {
		return signalNames[k]
	}
	return fmt.Sprintf("signal(%d)", int(k))
}

// Signal carries a kind plus its companion: the remainder node for
// InsertContentToNextLine, the emitting child for the cross-container kinds,
// and the first-line members for HeadInsertedToTheEndOfLine.
type Signal struct {
	Kind SignalKind
	Node *tree.Node
	Line []*tree.Node
}

// Sink 接收子节点发出的信号。回复仅对 HeadInsertedToTheEndOfLine 有意义：
// ok 为 true 时返回子容器新的包络。
type Sink interface {
	Signal(s Signal) (Cursor, bool)
}

// emit 向 sink 发送信号，sink 为空时视为无人接收。
func emit(sink Sink, s Signal) (Cursor, bool) {
	if sink == nil {
		return Cursor{}, false
	}
	return sink.Signal(s)
}
