package resource

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/singleflight"

	"github.com/ByLCY/flowbox/errors"
)

// sniffLen is the header length filetype needs to recognise every format.
const sniffLen = 262

// ImageInfo is the natural pixel size of an image.
type ImageInfo struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
	MIME   string `json:"mime"`
}

// ImageOptions configures an Images resolver.
type ImageOptions struct {
	// FS 为相对路径的根；为空时使用 os.DirFS(BaseDir)。
	FS      fs.FS
	BaseDir string
	Cache   Cache
	TTL     time.Duration
	Logger  *log.Logger
}

// Images resolves the natural size of image sources. Concurrent requests for
// the same source share one read, and results are memoised for the lifetime
// of the resolver (and in Cache across runs).
type Images struct {
	fsys   fs.FS
	cache  Cache
	ttl    time.Duration
	logger *log.Logger

	group singleflight.Group
	mu    sync.RWMutex
	sizes map[string]ImageInfo
}

// NewImages 创建图片尺寸解析器。
func NewImages(opts ImageOptions) *Images {
	fsys := opts.FS
	if fsys == nil {
		base := opts.BaseDir
		if base == "" {
			base = "."
		}
		fsys = os.DirFS(base)
	}
	cache := opts.Cache
	if cache == nil {
		cache = NullCache{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Images{
		fsys:   fsys,
		cache:  cache,
		ttl:    opts.TTL,
		logger: logger,
		sizes:  map[string]ImageInfo{},
	}
}

// Cached 返回已解析过的尺寸。
func (im *Images) Cached(src string) (ImageInfo, bool) {
	im.mu.RLock()
	defer im.mu.RUnlock()
	info, ok := im.sizes[src]
	return info, ok
}

// Resolve 返回 src 的自然尺寸。
func (im *Images) Resolve(ctx context.Context, src string) (ImageInfo, error) {
	if strings.TrimSpace(src) == "" {
		return ImageInfo{}, errors.New(errors.ErrCodeInvalidInput, "empty image source")
	}
	if info, ok := im.Cached(src); ok {
		return info, nil
	}
	v, err, _ := im.group.Do(src, func() (any, error) {
		return im.resolve(ctx, src)
	})
	if err != nil {
		return ImageInfo{}, err
	}
	info := v.(ImageInfo)
	im.mu.Lock()
	im.sizes[src] = info
	im.mu.Unlock()
	return info, nil
}

func (im *Images) resolve(ctx context.Context, src string) (ImageInfo, error) {
	key := "image-size:" + src
	inline := isDataURI(src)
	if !inline {
		raw, ok, err := im.cache.Get(ctx, key)
		if err != nil {
			im.logger.Warn("image cache read failed", "src", src, "err", err)
		} else if ok {
			var info ImageInfo
			if json.Unmarshal(raw, &info) == nil && info.Width > 0 {
				im.logger.Debug("image size from cache", "src", src)
				return info, nil
			}
		}
	}

	data, err := im.Read(ctx, src)
	if err != nil {
		return ImageInfo{}, errors.Wrap(errors.ErrCodeResourceLoad, err, "read image %q", src)
	}
	info, err := Probe(data)
	if err != nil {
		return ImageInfo{}, errors.Wrap(errors.ErrCodeResourceLoad, err, "probe image %q", src)
	}

	if !inline {
		if raw, err := json.Marshal(info); err == nil {
			if err := im.cache.Set(ctx, key, raw, im.ttl); err != nil {
				im.logger.Warn("image cache write failed", "src", src, "err", err)
			}
		}
	}
	return info, nil
}

// Read 返回 src 的原始字节，支持 data: URI、绝对路径与相对于根目录的路径。
func (im *Images) Read(ctx context.Context, src string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if isDataURI(src) {
		return decodeDataURI(src)
	}
	p := strings.TrimPrefix(src, "file://")
	if filepath.IsAbs(p) {
		return os.ReadFile(p)
	}
	clean := path.Clean(filepath.ToSlash(p))
	if !fs.ValidPath(clean) {
		return nil, fmt.Errorf("invalid image path %q", src)
	}
	return fs.ReadFile(im.fsys, clean)
}

// Close releases the underlying cache.
func (im *Images) Close() error { return im.cache.Close() }

// Probe 嗅探图片格式并读取其像素尺寸，不解码像素数据。
func Probe(data []byte) (ImageInfo, error) {
	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	if !filetype.IsImage(head) {
		return ImageInfo{}, fmt.Errorf("payload is not a supported image")
	}
	kind, err := filetype.Match(head)
	if err != nil {
		return ImageInfo{}, err
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{}, fmt.Errorf("decode %s header: %w", kind.MIME.Value, err)
	}
	return ImageInfo{
		Width:  cfg.Width,
		Height: cfg.Height,
		Format: format,
		MIME:   kind.MIME.Value,
	}, nil
}

func isDataURI(src string) bool { return strings.HasPrefix(src, "data:") }

// decodeDataURI 解析 data:[mime][;base64],payload。
func decodeDataURI(src string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(src, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("malformed data uri")
	}
	if strings.HasSuffix(meta, ";base64") {
		return base64.StdEncoding.DecodeString(payload)
	}
	text, err := url.PathUnescape(payload)
	if err != nil {
		return nil, err
	}
	return []byte(text), nil
}
