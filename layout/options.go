package layout

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/ByLCY/flowbox/resource"
	"github.com/ByLCY/flowbox/tree"
)

// Options 配置布局引擎所需的协作者，例如排版后端与资源加载器。
type Options struct {
	Typesetter Typesetter
	Resources  Resources

	// Tracker 统计进行中的模板/图片加载；为空时取 Resources 的 tracker。
	Tracker *resource.Tracker
	Logger  *log.Logger
	// Observer 接收进度事件，默认 NoopObserver。
	Observer Observer

	// DefaultStyle 是没有任何样式声明时文本使用的字体、字号与行高。
	DefaultStyle resource.Style
}

// Resources 异步提供模板与图片尺寸。
type Resources interface {
	LoadTemplate(ctx context.Context, name string) *resource.Pending[resource.Template]
	LoadImage(ctx context.Context, src string) *resource.Pending[resource.ImageInfo]
}

// TextRequest 是一次文本测量与折行请求。
type TextRequest struct {
	Node   *tree.Node
	Text   string
	Style  resource.Style
	Cursor Cursor
	// LineStart 表示游标位于一行的真正起点；此时即使一个字符都放不下也必须放置。
	LineStart bool
}

// Typesetter 负责在游标内放置一段文本。
//
// 放不下的部分通过 sink 以信号的形式交给所在容器：
// 不在行首且无处可放时发 RetryWithNextLine，溢出时截断节点并以
// InsertContentToNextLine 交出余下部分，折行后的末段停在行中时发 TailInsertedToLine。
// 返回值为留在当前行的片段的放置。
type Typesetter interface {
	LayoutText(ctx context.Context, req TextRequest, sink Sink) (Placement, error)
	LineHeight(ctx context.Context, style resource.Style) (float64, error)
}

type trackerSource interface {
	Tracker() *resource.Tracker
}
