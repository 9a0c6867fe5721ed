package resource

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/ByLCY/flowbox/errors"
	"github.com/ByLCY/flowbox/tree"
)

// Style 描述文本的字体、字号与行高。
type Style struct {
	Font       string  `json:"font,omitempty" yaml:"font" toml:"font"`
	Size       float64 `json:"size,omitempty" yaml:"size" toml:"size"`
	LineHeight float64 `json:"lineHeight,omitempty" yaml:"line_height" toml:"line_height"`
}

// Merge 用 fallback 补齐 s 中未设置的字段。
func (s Style) Merge(fallback Style) Style {
	if s.Font == "" {
		s.Font = fallback.Font
	}
	if s.Size <= 0 {
		s.Size = fallback.Size
	}
	if s.LineHeight <= 0 {
		s.LineHeight = fallback.LineHeight
	}
	return s
}

// IsZero reports whether no field is set.
func (s Style) IsZero() bool { return s == Style{} }

// TemplateKind 区分模板用途。
type TemplateKind int

const (
	LayerTemplate TemplateKind = iota
	BoxTemplate
	ImageTemplate
	TextTemplate
)

func (k TemplateKind) String() string {
	switch k {
	case LayerTemplate:
		return "layer"
	case BoxTemplate:
		return "box"
	case ImageTemplate:
		return "image"
	case TextTemplate:
		return "style"
	default:
		return "unknown"
	}
}

// Template is a named, pre-declared visual component: a layer's frame, a box
// slot inside a layer, an image with a fixed size, or a text style.
type Template struct {
	Name string       `json:"name"`
	Kind TemplateKind `json:"kind"`

	// layer / box
	Anchor         tree.Anchor `json:"anchor"`
	OriginalHeight float64     `json:"originalHeight,omitempty"`
	Group          int         `json:"group,omitempty"`

	// image
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`

	// text
	Style Style `json:"style,omitempty"`
}

// BoxName 返回 layer 内 box 模板的限定名（layer.box）。
func BoxName(layer, box string) string { return layer + "." + box }

// Library 是模板注册表，可被多个布局并发读取。
type Library struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// NewLibrary 创建空的模板库。
func NewLibrary(templates ...Template) *Library {
	lib := &Library{templates: map[string]Template{}}
	for _, t := range templates {
		_ = lib.Add(t)
	}
	return lib
}

// Add 注册模板，同名模板会被覆盖。
func (l *Library) Add(t Template) error {
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return errors.New(errors.ErrCodeInvalidInput, "template %s without name", t.Kind)
	}
	if t.Kind == LayerTemplate && t.OriginalHeight <= 0 {
		t.OriginalHeight = t.Anchor.Height
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.templates[name] = t
	return nil
}

// Lookup 同步查找模板。
func (l *Library) Lookup(name string) (Template, bool) {
	if l == nil {
		return Template{}, false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.templates[name]
	return t, ok
}

// Has reports whether a template of the given kind exists.
func (l *Library) Has(name string, kind TemplateKind) bool {
	t, ok := l.Lookup(name)
	return ok && t.Kind == kind
}

// Names 返回排序后的模板名。
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.templates))
	for name := range l.templates {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Fetch 查找模板，不存在时返回 NOT_FOUND。
func (l *Library) Fetch(ctx context.Context, name string) (Template, error) {
	if err := ctx.Err(); err != nil {
		return Template{}, err
	}
	t, ok := l.Lookup(name)
	if !ok {
		return Template{}, errors.New(errors.ErrCodeNotFound, "template %q not declared", name)
	}
	return t, nil
}
