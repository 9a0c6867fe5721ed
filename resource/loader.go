package resource

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
)

// Loader serves templates and image sizes asynchronously, counting every load
// in its tracker while it runs.
type Loader struct {
	lib     *Library
	images  *Images
	tracker *Tracker
	logger  *log.Logger
}

// NewLoader wires a template library and an image resolver to a tracker.
func NewLoader(lib *Library, images *Images, tracker *Tracker, logger *log.Logger) *Loader {
	if lib == nil {
		lib = NewLibrary()
	}
	if images == nil {
		images = NewImages(ImageOptions{})
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Loader{lib: lib, images: images, tracker: tracker, logger: logger}
}

func (l *Loader) Library() *Library { return l.lib }
func (l *Loader) Tracker() *Tracker { return l.tracker }

// LoadTemplate 异步实例化模板。
func (l *Loader) LoadTemplate(ctx context.Context, name string) *Pending[Template] {
	return Go(l.tracker, TemplateLoad, func() (Template, error) {
		t, err := l.lib.Fetch(ctx, name)
		if err != nil {
			l.logger.Debug("template load failed", "name", name, "err", err)
		}
		return t, err
	})
}

// LoadImage 异步解析图片自然尺寸；已解析过的来源直接返回完成状态。
func (l *Loader) LoadImage(ctx context.Context, src string) *Pending[ImageInfo] {
	if info, ok := l.images.Cached(src); ok {
		return Resolved(info)
	}
	return Go(l.tracker, ImageLoad, func() (ImageInfo, error) {
		info, err := l.images.Resolve(ctx, src)
		if err != nil {
			l.logger.Warn("image load failed", "src", src, "err", err)
			return info, err
		}
		l.logger.Debug("image resolved", "src", src, "width", info.Width, "height", info.Height)
		return info, nil
	})
}

// Close releases the image cache.
func (l *Loader) Close() error { return l.images.Close() }
