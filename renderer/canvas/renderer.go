// Package canvasrenderer 使用 github.com/tdewolff/canvas 把布局结果画成 PDF 线框预览。
package canvasrenderer

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/ByLCY/flowbox/errors"
	"github.com/ByLCY/flowbox/layout"
	"github.com/ByLCY/flowbox/renderer"
	"github.com/ByLCY/flowbox/resource"
	"github.com/ByLCY/flowbox/tree"
)

const (
	strokeWidth = 0.2 // mm
	// previewDPMM 是缩略图的像素密度（约 150 dpi）。
	previewDPMM = 150 / 25.4
)

var (
	transparent = color.RGBA{}
	kindColors  = map[tree.Kind]color.Color{
		tree.CustomLayer:      canvas.Hex("#3b6fd8"),
		tree.CustomEmptyLayer: canvas.Hex("#7b8ba8"),
		tree.Container:        canvas.Hex("#b0b0b0"),
		tree.Image:            canvas.Hex("#2f9e44"),
		tree.Text:             canvas.Hex("#e8590c"),
	}
	boxColor = canvas.Hex("#9c36b5")
)

// Options configures the preview renderer.
type Options struct {
	// Faces 为空或字体为 basic 时，文本只画出外框与基线。
	Faces  *Faces
	Images *resource.Images
	// Style 是节点未声明字体时使用的默认样式。
	Style  resource.Style
	Logger *log.Logger
}

// Renderer 画出每个已放置节点的外框，用测量字体绘制文本，并把图片缩略到其放置区域。
type Renderer struct {
	faces  *Faces
	images *resource.Images
	style  resource.Style
	logger *log.Logger
}

var _ renderer.Renderer = (*Renderer)(nil)

func New(opts Options) *Renderer {
	if opts.Images == nil {
		opts.Images = resource.NewImages(resource.ImageOptions{Logger: opts.Logger})
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &Renderer{
		faces:  opts.Faces,
		images: opts.Images,
		style:  opts.Style,
		logger: opts.Logger,
	}
}

// Render renders the result into a single-page PDF sized to the laid-out content.
func (r *Renderer) Render(ctx context.Context, result *layout.Result) ([]byte, error) {
	if result == nil || result.Root == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "渲染结果为空")
	}
	w := toMm(math.Max(math.Max(result.Width, result.Viewport.Width), 1))
	h := toMm(math.Max(result.Height, 1))

	var buf bytes.Buffer
	writer := pdf.New(&buf, w, h, nil)
	c := canvas.New(w, h)
	cc := canvas.NewContext(c)
	cc.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点

	var err error
	result.Root.Walk(func(n *tree.Node) bool {
		if err != nil || !n.Placed {
			return false
		}
		if err = ctx.Err(); err != nil {
			return false
		}
		r.drawNode(ctx, cc, n)
		return true
	})
	if err != nil {
		return nil, err
	}

	c.RenderTo(writer)
	if err := writer.Close(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "写入 PDF 失败")
	}
	return buf.Bytes(), nil
}

func (r *Renderer) drawNode(ctx context.Context, cc *canvas.Context, n *tree.Node) {
	rect := tree.Absolute(n)
	if rect.W <= 0 && rect.H <= 0 {
		return
	}
	switch n.Kind {
	case tree.Text:
		r.drawText(cc, n, rect)
	case tree.Image:
		r.drawImage(ctx, cc, n, rect)
	case tree.LineBreak:
	default:
		col := kindColors[n.Kind]
		if n.IsBox() {
			col = boxColor
		}
		drawOutline(cc, rect, col)
	}
}

func drawOutline(cc *canvas.Context, rect tree.Rect, col color.Color) {
	cc.SetFillColor(transparent)
	cc.SetStrokeColor(col)
	cc.SetStrokeWidth(strokeWidth)
	cc.DrawPath(toMm(rect.X), toMm(rect.Y), canvas.Rectangle(toMm(rect.W), toMm(rect.H)))
}

func (r *Renderer) drawText(cc *canvas.Context, n *tree.Node, rect tree.Rect) {
	drawOutline(cc, rect, kindColors[tree.Text])
	style := styleOf(n).Merge(r.style)
	if r.faces == nil || isBasic(style.Font) {
		r.drawBaseline(cc, rect)
		return
	}
	face, err := r.faces.canvasFace(style.Font, style.Size)
	if err != nil {
		r.logger.Warn("preview font unavailable", "font", style.Font, "err", err)
		r.drawBaseline(cc, rect)
		return
	}
	line := canvas.NewTextLine(face, n.Text(), canvas.Left)
	// 基线位置：行顶部加上字体上升部，均为 mm
	cc.DrawText(toMm(rect.X), toMm(rect.Y)+face.Metrics().Ascent, line)
}

func (r *Renderer) drawBaseline(cc *canvas.Context, rect tree.Rect) {
	cc.SetStrokeColor(kindColors[tree.Text])
	cc.SetStrokeWidth(strokeWidth)
	p := &canvas.Path{}
	p.MoveTo(0, 0)
	p.LineTo(toMm(rect.W), 0)
	cc.DrawPath(toMm(rect.X), toMm(rect.Bottom())-strokeWidth, p)
}

func (r *Renderer) drawImage(ctx context.Context, cc *canvas.Context, n *tree.Node, rect tree.Rect) {
	src := n.Attr(tree.AttrSrc)
	if src == "" {
		drawPlaceholder(cc, rect)
		return
	}
	img, err := r.decode(ctx, src)
	if err != nil {
		r.logger.Warn("preview image unavailable", "src", src, "err", err)
		drawPlaceholder(cc, rect)
		return
	}
	wMm, hMm := toMm(rect.W), toMm(rect.H)
	thumb := imaging.Fit(img, max(int(math.Ceil(wMm*previewDPMM)), 1), max(int(math.Ceil(hMm*previewDPMM)), 1), imaging.Lanczos)
	dpmm := float64(thumb.Bounds().Dx()) / wMm
	if dpmm <= 0 || math.IsInf(dpmm, 0) {
		dpmm = previewDPMM
	}
	cc.DrawImage(toMm(rect.X), toMm(rect.Y), thumb, canvas.DPMM(dpmm))
}

func (r *Renderer) decode(ctx context.Context, src string) (image.Image, error) {
	data, err := r.images.Read(ctx, src)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

// drawPlaceholder 画出带对角线的外框，表示没有可用像素的图片。
func drawPlaceholder(cc *canvas.Context, rect tree.Rect) {
	drawOutline(cc, rect, kindColors[tree.Image])
	p := &canvas.Path{}
	p.MoveTo(0, 0)
	p.LineTo(toMm(rect.W), toMm(rect.H))
	p.MoveTo(toMm(rect.W), 0)
	p.LineTo(0, toMm(rect.H))
	cc.DrawPath(toMm(rect.X), toMm(rect.Y), p)
}

// styleOf 沿祖先链收集 font 与 size 属性，近处优先。
func styleOf(n *tree.Node) resource.Style {
	var s resource.Style
	for p := n; p != nil; p = p.Parent {
		if s.Font == "" {
			s.Font = p.Attr(tree.AttrFont)
		}
		if s.Size <= 0 {
			s.Size, _ = p.FloatAttr(tree.AttrSize)
		}
	}
	return s
}
