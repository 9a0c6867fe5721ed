// Package renderer 定义把布局结果输出为文件的接口。
package renderer

import (
	"context"

	"github.com/ByLCY/flowbox/layout"
)

// Renderer 将布局结果输出为最终文件，例如 PDF 预览。
// Render 返回生成的二进制数据以及可能的错误。
type Renderer interface {
	Render(ctx context.Context, result *layout.Result) ([]byte, error)
}
