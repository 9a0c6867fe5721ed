package canvasrenderer

import (
	"strings"
	"sync"

	"github.com/tdewolff/canvas"

	"github.com/ByLCY/flowbox/fonts"
	"github.com/ByLCY/flowbox/typeset"
)

// BasicFont 是内置等宽度量的字体名。
const BasicFont = "basic"

// Faces 从字体文件构建 canvas 字体度量，实现 typeset.FaceSource。
// 字体名是相对 baseDir 的文件路径，可带 "#bold"、"#italic" 之类的样式后缀。
type Faces struct {
	baseDir string

	mu       sync.Mutex
	families map[string]familyEntry
}

type familyEntry struct {
	family *canvas.FontFamily
	style  canvas.FontStyle
}

var _ typeset.FaceSource = (*Faces)(nil)

func NewFaces(baseDir string) *Faces {
	return &Faces{baseDir: baseDir, families: map[string]familyEntry{}}
}

// Face 返回 size（pt）下的度量，宽度与行高同样以 pt 计。
func (f *Faces) Face(font string, size float64) (typeset.Face, error) {
	if isBasic(font) {
		return typeset.Basic{}.Face(font, size)
	}
	face, err := f.canvasFace(font, size)
	if err != nil {
		return nil, err
	}
	return canvasFace{face: face}, nil
}

func isBasic(font string) bool { return font == "" || font == BasicFont }

func (f *Faces) canvasFace(font string, size float64) (*canvas.FontFace, error) {
	if size <= 0 {
		size = typeset.DefaultSize
	}
	entry, err := f.family(font)
	if err != nil {
		return nil, err
	}
	return entry.family.Face(size, canvas.Black, entry.style, canvas.FontNormal), nil
}

func (f *Faces) family(font string) (familyEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if entry, ok := f.families[font]; ok {
		return entry, nil
	}

	file, style, _ := strings.Cut(font, "#")
	data, err := fonts.Load(file, f.baseDir)
	if err != nil {
		return familyEntry{}, err
	}
	family := canvas.NewFontFamily(font)
	entry := familyEntry{family: family, style: parseFontStyle(style)}
	if err := family.LoadFont(data, 0, entry.style); err != nil {
		return familyEntry{}, err
	}
	f.families[font] = entry
	return entry, nil
}

// canvasFace 把 canvas 的毫米度量换算为布局使用的 pt。
type canvasFace struct {
	face *canvas.FontFace
}

func (c canvasFace) TextWidth(s string) float64 { return toPt(c.face.TextWidth(s)) }

func (c canvasFace) LineHeight() float64 { return toPt(c.face.Metrics().LineHeight) }

func parseFontStyle(style string) canvas.FontStyle {
	if style == "" {
		return canvas.FontRegular
	}
	s := strings.ToLower(style)
	result := canvas.FontRegular
	switch {
	case strings.Contains(s, "black"):
		result = canvas.FontBlack
	case strings.Contains(s, "extrabold"):
		result = canvas.FontExtraBold
	case strings.Contains(s, "semibold"), strings.Contains(s, "demibold"):
		result = canvas.FontSemiBold
	case strings.Contains(s, "bold"):
		result = canvas.FontBold
	case strings.Contains(s, "medium"):
		result = canvas.FontMedium
	case strings.Contains(s, "light"):
		result = canvas.FontLight
	}
	if strings.Contains(s, "italic") || strings.Contains(s, "oblique") {
		result |= canvas.FontItalic
	}
	return result
}

const (
	mmToPt = 72 / 25.4
	ptToMm = 25.4 / 72
)

// toPt 将毫米(mm)转换为点(pt)。
func toPt(mm float64) float64 { return mm * mmToPt }

// toMm 将点(pt)转换为毫米(mm)。
func toMm(pt float64) float64 { return pt * ptToMm }
