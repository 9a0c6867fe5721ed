package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/ByLCY/flowbox/binding"
	"github.com/ByLCY/flowbox/config"
	"github.com/ByLCY/flowbox/dsl"
	"github.com/ByLCY/flowbox/errors"
	"github.com/ByLCY/flowbox/layout"
	canvasrenderer "github.com/ByLCY/flowbox/renderer/canvas"
	"github.com/ByLCY/flowbox/resource"
	"github.com/ByLCY/flowbox/tree"
	"github.com/ByLCY/flowbox/typeset"
)

// app 保存命令共享的配置与日志。
type app struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *log.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "flowbox",
		Short:         "flowbox 按内容树与模板计算布局",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "配置文件 (.yaml/.yml/.toml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "输出调试日志")

	root.AddCommand(newLayoutCmd(a))
	root.AddCommand(newInspectCmd(a))
	return root
}

func (a *app) setup(stderr io.Writer) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	level := cfg.LogLevel()
	if a.verbose {
		level = log.DebugLevel
	}
	a.cfg = cfg
	a.logger = log.NewWithOptions(stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
	return nil
}

type layoutFlags struct {
	data    string
	debug   string
	preview string
}

func newLayoutCmd(a *app) *cobra.Command {
	var f layoutFlags
	cmd := &cobra.Command{
		Use:   "layout <file.flow>",
		Short: "布局文档，输出调试 JSON 与 PDF 预览",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runLayout(cmd.Context(), cmd.OutOrStdout(), args[0], f)
		},
	}
	cmd.Flags().StringVarP(&f.data, "data", "d", "", "绑定到 ${path} 占位符的 YAML/JSON 数据文件")
	cmd.Flags().StringVar(&f.debug, "debug", "", "布局调试 JSON 输出路径")
	cmd.Flags().StringVar(&f.preview, "preview", "", "PDF 线框预览输出路径（覆盖 preview.output 并启用预览）")
	return cmd
}

func newInspectCmd(a *app) *cobra.Command {
	var data string
	cmd := &cobra.Command{
		Use:   "inspect <file.flow>",
		Short: "打印布局后的节点树",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			s, err := a.open(args[0], data)
			if err != nil {
				return err
			}
			defer multierr.AppendInvoke(&err, multierr.Close(s))
			res, err := s.run(cmd.Context())
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), renderTree(res.Root))
			return err
		},
	}
	cmd.Flags().StringVarP(&data, "data", "d", "", "绑定到 ${path} 占位符的 YAML/JSON 数据文件")
	return cmd
}

// runLayout 串联解析、绑定、布局与输出。
func (a *app) runLayout(ctx context.Context, stdout io.Writer, input string, f layoutFlags) (err error) {
	s, err := a.open(input, f.data)
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Close(s))

	res, err := s.run(ctx)
	if err != nil {
		return err
	}

	if f.debug != "" {
		if err := os.MkdirAll(filepath.Dir(f.debug), 0o755); err != nil {
			return fmt.Errorf("创建调试目录失败: %w", err)
		}
		if err := layout.WriteDebugJSON(&res, f.debug); err != nil {
			return fmt.Errorf("输出调试 JSON 失败: %w", err)
		}
		a.logger.Info("debug json written", "path", f.debug)
	}

	output := a.cfg.Preview.Output
	if f.preview != "" {
		output = f.preview
	}
	if a.cfg.Preview.Enabled || f.preview != "" {
		r := canvasrenderer.New(canvasrenderer.Options{
			Faces:  s.faces,
			Images: s.images,
			Style:  a.cfg.Style(),
			Logger: a.logger,
		})
		pdf, err := r.Render(ctx, &res)
		if err != nil {
			return fmt.Errorf("渲染预览失败: %w", err)
		}
		if err := writeFile(output, pdf); err != nil {
			return err
		}
		a.logger.Info("preview written", "path", output, "bytes", len(pdf))
	}

	_, err = fmt.Fprintf(stdout, "已完成布局：%s，%gx%g pt，%d 个节点\n", input, res.Width, res.Height, countNodes(res))
	return err
}

// session 是一次文档布局所需的全部协作者。
type session struct {
	logger  *log.Logger
	doc     *dsl.Document
	data    any
	view    layout.Viewport
	images  *resource.Images
	loader  *resource.Loader
	faces   *canvasrenderer.Faces
	machine *layout.Machine
}

func (a *app) open(input, dataPath string) (*session, error) {
	file, err := os.Open(input)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "无法打开文档 %s", input)
	}
	defer file.Close()

	doc, err := dsl.Parse(input, file)
	if err != nil {
		return nil, err
	}
	lib, err := doc.Library()
	if err != nil {
		return nil, err
	}
	view, err := doc.Viewport()
	if err != nil {
		return nil, err
	}
	if view.Width <= 0 {
		view.Width = a.cfg.Viewport.Width
	}
	if view.Height <= 0 {
		view.Height = a.cfg.Viewport.Height
	}

	var data any
	if dataPath != "" {
		if data, err = binding.Load(dataPath); err != nil {
			return nil, err
		}
	}

	baseDir := a.cfg.Resources.BaseDir
	if !filepath.IsAbs(baseDir) {
		baseDir = filepath.Join(filepath.Dir(input), baseDir)
	}
	var cache resource.Cache = resource.NullCache{}
	if dir := a.cfg.Resources.CacheDir; dir != "" {
		fc, err := resource.NewFileCache(dir)
		if err != nil {
			return nil, err
		}
		cache = fc
	}
	images := resource.NewImages(resource.ImageOptions{
		BaseDir: baseDir,
		Cache:   cache,
		TTL:     a.cfg.Resources.CacheTTL.Duration,
		Logger:  a.logger,
	})
	loader := resource.NewLoader(lib, images, resource.NewTracker(), a.logger)

	faces := canvasrenderer.NewFaces(baseDir)
	var source typeset.FaceSource = typeset.Basic{}
	if a.cfg.Text.Measurer == config.MeasurerCanvas {
		source = faces
	}
	ts := typeset.New(typeset.Options{
		Faces:  source,
		Font:   a.cfg.Text.Font,
		Size:   a.cfg.Text.Size,
		Logger: a.logger,
	})
	machine, err := layout.New(layout.Options{
		Typesetter:   ts,
		Resources:    loader,
		Logger:       a.logger,
		Observer:     newProgress(a.logger),
		DefaultStyle: a.cfg.Style(),
	})
	if err != nil {
		return nil, multierr.Append(err, loader.Close())
	}
	return &session{
		logger:  a.logger,
		doc:     doc,
		data:    data,
		view:    view,
		images:  images,
		loader:  loader,
		faces:   faces,
		machine: machine,
	}, nil
}

// run 构建内容树、绑定数据并布局。隐藏子树的预取失败只记录日志。
func (s *session) run(ctx context.Context) (layout.Result, error) {
	root, err := s.doc.Tree()
	if err != nil {
		return layout.Result{}, err
	}
	for _, path := range binding.Apply(root, s.data) {
		s.logger.Warn("unbound placeholder", "path", path)
	}

	task := s.machine.Start(ctx, root, s.view)
	res, err := task.Wait(ctx)
	if err != nil {
		return layout.Result{}, fmt.Errorf("布局计算失败: %w", err)
	}
	if err := task.Hidden(ctx); err != nil {
		s.logger.Warn("hidden subtree prefetch failed", "err", err)
	}
	return res, nil
}

func (s *session) Close() error { return s.loader.Close() }

func countNodes(res layout.Result) int {
	if res.Root == nil {
		return 0
	}
	var n int
	res.Root.Walk(func(*tree.Node) bool {
		n++
		return true
	})
	return n
}

func writeFile(path string, data []byte) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建 %s 失败: %w", path, err)
	}
	defer multierr.AppendInvoke(&err, multierr.Close(f))
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("写入 %s 失败: %w", path, err)
	}
	return nil
}

// progress 把布局进度写入日志。
type progress struct {
	logger *log.Logger
	last   time.Time
}

var _ layout.Observer = (*progress)(nil)

func newProgress(logger *log.Logger) *progress { return &progress{logger: logger} }

func (p *progress) OnLoadStarted(_ context.Context, root *tree.Node) {
	p.last = time.Now()
	p.logger.Debug("layout started", "root", root.Name)
}

// OnProgress 至多每 100ms 记录一次。
func (p *progress) OnProgress(_ context.Context, done, total int) {
	if time.Since(p.last) < 100*time.Millisecond && done < total {
		return
	}
	p.last = time.Now()
	p.logger.Debug("layout progress", "done", done, "total", total)
}

func (p *progress) OnLoaded(_ context.Context, height float64, d time.Duration, err error) {
	if err != nil {
		p.logger.Error("layout failed", "err", err, "elapsed", d)
		return
	}
	p.logger.Info("layout finished", "height", height, "elapsed", d)
}
