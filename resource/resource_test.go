package resource

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/png"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	flowerrors "github.com/ByLCY/flowbox/errors"
	"github.com/ByLCY/flowbox/tree"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestTrackerCountsInFlightLoads(t *testing.T) {
	tracker := NewTracker()
	release := make(chan struct{})

	p := Go(tracker, ImageLoad, func() (int, error) {
		<-release
		return 7, nil
	})

	if got := tracker.Images(); got != 1 {
		t.Fatalf("Images() = %d, want 1", got)
	}
	if got := tracker.Outstanding(); got != 1 {
		t.Fatalf("Outstanding() = %d, want 1", got)
	}
	if _, ok, _ := p.Poll(); ok {
		t.Fatalf("Poll 在加载完成前不应返回 ok")
	}

	close(release)
	v, err := p.Result()
	if err != nil || v != 7 {
		t.Fatalf("Result = %d, %v", v, err)
	}
	if got := tracker.Outstanding(); got != 0 {
		t.Fatalf("加载完成后 Outstanding() = %d, want 0", got)
	}
}

func TestTrackerNilAndDoubleEnd(t *testing.T) {
	var nilTracker *Tracker
	nilTracker.Begin(TemplateLoad)()
	if nilTracker.Outstanding() != 0 {
		t.Fatalf("nil tracker should count nothing")
	}

	tracker := NewTracker()
	end := tracker.Begin(TemplateLoad)
	end()
	end()
	if got := tracker.Templates(); got != 0 {
		t.Fatalf("重复结束不应使计数为负: %d", got)
	}
}

func TestResolvedAndFailed(t *testing.T) {
	v, ok, err := Resolved("x").Poll()
	if !ok || err != nil || v != "x" {
		t.Fatalf("Resolved.Poll = %q,%v,%v", v, ok, err)
	}
	boom := errors.New("boom")
	if _, err := Failed[int](boom).Result(); err != boom {
		t.Fatalf("Failed.Result err = %v", err)
	}
}

func TestImagesResolveFromFS(t *testing.T) {
	fsys := fstest.MapFS{
		"img/cat.png":  {Data: pngBytes(t, 40, 20)},
		"img/note.txt": {Data: []byte("definitely not an image, just some text padding")},
	}
	images := NewImages(ImageOptions{FS: fsys})
	ctx := context.Background()

	info, err := images.Resolve(ctx, "img/cat.png")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if info.Width != 40 || info.Height != 20 || info.Format != "png" || info.MIME != "image/png" {
		t.Fatalf("info = %+v", info)
	}
	if _, ok := images.Cached("img/cat.png"); !ok {
		t.Fatalf("解析结果应被缓存")
	}

	tests := []struct {
		name string
		src  string
		code flowerrors.Code
	}{
		{"missing file", "img/dog.png", flowerrors.ErrCodeResourceLoad},
		{"not an image", "img/note.txt", flowerrors.ErrCodeResourceLoad},
		{"escaping path", "../secret.png", flowerrors.ErrCodeResourceLoad},
		{"empty", " ", flowerrors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := images.Resolve(ctx, tt.src)
			if !flowerrors.Is(err, tt.code) {
				t.Fatalf("err = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestImagesResolveDataURI(t *testing.T) {
	src := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t, 3, 9))
	info, err := NewImages(ImageOptions{FS: fstest.MapFS{}}).Resolve(context.Background(), src)
	if err != nil {
		t.Fatalf("Resolve data uri: %v", err)
	}
	if info.Width != 3 || info.Height != 9 {
		t.Fatalf("info = %+v", info)
	}
}

func TestImagesConcurrentResolveSharesResult(t *testing.T) {
	images := NewImages(ImageOptions{FS: fstest.MapFS{"a.png": {Data: pngBytes(t, 12, 6)}}})
	var wg sync.WaitGroup
	results := make([]ImageInfo, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			info, err := images.Resolve(context.Background(), "a.png")
			if err != nil {
				t.Errorf("Resolve: %v", err)
			}
			results[i] = info
		}(i)
	}
	wg.Wait()
	for i, info := range results {
		if info.Width != 12 || info.Height != 6 {
			t.Fatalf("result %d = %+v", i, info)
		}
	}
}

func TestImagesUsesFileCache(t *testing.T) {
	cache, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	fsys := fstest.MapFS{"b.png": {Data: pngBytes(t, 5, 5)}}
	if _, err := NewImages(ImageOptions{FS: fsys, Cache: cache, TTL: time.Hour}).Resolve(context.Background(), "b.png"); err != nil {
		t.Fatalf("first resolve: %v", err)
	}

	// 第二个解析器的文件系统中已没有该文件，只能命中磁盘缓存。
	second := NewImages(ImageOptions{FS: fstest.MapFS{}, Cache: cache})
	info, err := second.Resolve(context.Background(), "b.png")
	if err != nil {
		t.Fatalf("cached resolve: %v", err)
	}
	if info.Width != 5 {
		t.Fatalf("info = %+v", info)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	cache, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	ctx := context.Background()

	if err := cache.Set(ctx, "k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if _, ok, _ := cache.Get(ctx, "k"); ok {
		t.Fatalf("过期条目不应命中")
	}

	if err := cache.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if data, ok, _ := cache.Get(ctx, "k"); !ok || string(data) != "v" {
		t.Fatalf("Get = %q,%v", data, ok)
	}
	if err := cache.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := cache.Delete(ctx, "k"); err != nil {
		t.Fatalf("删除不存在的条目不应报错: %v", err)
	}
}

func TestLoaderTemplates(t *testing.T) {
	lib := NewLibrary(Template{
		Name:   "card",
		Kind:   LayerTemplate,
		Anchor: tree.Anchor{MaxX: 1, Height: 120},
	})
	tracker := NewTracker()
	loader := NewLoader(lib, nil, tracker, nil)

	tmpl, err := loader.LoadTemplate(context.Background(), "card").Result()
	if err != nil {
		t.Fatalf("LoadTemplate: %v", err)
	}
	if tmpl.OriginalHeight != 120 {
		t.Fatalf("OriginalHeight 应回退到锚点高度, got %g", tmpl.OriginalHeight)
	}

	_, err = loader.LoadTemplate(context.Background(), "nope").Result()
	if !flowerrors.Is(err, flowerrors.ErrCodeNotFound) {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
	if tracker.Outstanding() != 0 {
		t.Fatalf("加载结束后计数应归零")
	}
	if err := lib.Add(Template{Kind: TextTemplate}); !flowerrors.Is(err, flowerrors.ErrCodeInvalidInput) {
		t.Fatalf("无名模板应被拒绝: %v", err)
	}
}

func TestStyleMerge(t *testing.T) {
	got := Style{Size: 20}.Merge(Style{Font: "basic", Size: 13, LineHeight: 16})
	want := Style{Font: "basic", Size: 20, LineHeight: 16}
	if got != want {
		t.Fatalf("Merge = %+v, want %+v", got, want)
	}
}
