// Package typeset measures text runs and breaks them across lines for the layout engine.
package typeset

import (
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Face 测量一种字体在固定字号下的文本宽度与行高，单位与布局一致。
type Face interface {
	TextWidth(s string) float64
	LineHeight() float64
}

// FaceSource 按字体名与字号提供 Face。
type FaceSource interface {
	Face(font string, size float64) (Face, error)
}

// basicSize 是 basicfont.Face7x13 的设计字号。
const basicSize = 13

// Basic 是内置的等宽度量，基于 basicfont.Face7x13 按字号等比缩放。
// 忽略字体名，适合测试与没有字体文件的环境。
type Basic struct{}

var _ FaceSource = Basic{}

func (Basic) Face(_ string, size float64) (Face, error) {
	if size <= 0 {
		size = basicSize
	}
	return basicFace{scale: size / basicSize}, nil
}

type basicFace struct {
	scale float64
}

func (f basicFace) TextWidth(s string) float64 {
	return toFloat(font.MeasureString(basicfont.Face7x13, s)) * f.scale
}

func (f basicFace) LineHeight() float64 {
	return toFloat(basicfont.Face7x13.Metrics().Height) * f.scale
}

func toFloat(v fixed.Int26_6) float64 { return float64(v) / 64 }
