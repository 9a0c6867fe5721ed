// Package config loads flowbox settings from YAML or TOML files.
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/ByLCY/flowbox/errors"
	"github.com/ByLCY/flowbox/layout"
	"github.com/ByLCY/flowbox/resource"
)

// Measurers understood by Text.Measurer.
const (
	MeasurerBasic  = "basic"
	MeasurerCanvas = "canvas"
)

// Config is the complete CLI configuration.
type Config struct {
	Viewport  layout.Viewport `yaml:"viewport" toml:"viewport"`
	Text      Text            `yaml:"text" toml:"text"`
	Resources Resources       `yaml:"resources" toml:"resources"`
	Log       Log             `yaml:"log" toml:"log"`
	Preview   Preview         `yaml:"preview" toml:"preview"`
}

// Text 是文本的默认样式与度量后端。
type Text struct {
	Font       string  `yaml:"font" toml:"font"`
	Size       float64 `yaml:"size" toml:"size"`
	LineHeight float64 `yaml:"line_height" toml:"line_height"`
	// Measurer 为 basic（内置等宽度量）或 canvas（按字体文件测量）。
	Measurer string `yaml:"measurer" toml:"measurer"`
}

type Resources struct {
	BaseDir  string   `yaml:"base_dir" toml:"base_dir"`
	CacheDir string   `yaml:"cache_dir" toml:"cache_dir"`
	CacheTTL Duration `yaml:"cache_ttl" toml:"cache_ttl"`
}

type Log struct {
	Level string `yaml:"level" toml:"level"`
}

type Preview struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Output  string `yaml:"output" toml:"output"`
}

// Duration 以 "24h"、"90m" 这样的文本读写。
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Viewport: layout.Viewport{Width: 360, Height: 640},
		Text:     Text{Font: "basic", Size: 13, Measurer: MeasurerBasic},
		Resources: Resources{
			BaseDir:  ".",
			CacheTTL: Duration{24 * time.Hour},
		},
		Log:     Log{Level: "info"},
		Preview: Preview{Output: "preview.pdf"},
	}
}

// Load 读取配置文件并叠加在默认值之上，按扩展名选择 YAML 或 TOML。
// path 为空时返回默认配置。
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "读取配置文件失败")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		// 只接受已定义的字段
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "解析配置 %s 失败", path)
		}
	case ".toml":
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "解析配置 %s 失败", path)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "配置 %s 含未知字段 %s", path, undecoded[0])
		}
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "不支持的配置格式 %q", filepath.Ext(path))
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults 用默认值补齐未设置的字段。
func (c *Config) ApplyDefaults() {
	def := Default()
	if c.Viewport.Width == 0 {
		c.Viewport.Width = def.Viewport.Width
	}
	if c.Viewport.Height == 0 {
		c.Viewport.Height = def.Viewport.Height
	}
	if c.Text.Font == "" {
		c.Text.Font = def.Text.Font
	}
	if c.Text.Size == 0 {
		c.Text.Size = def.Text.Size
	}
	if c.Text.Measurer == "" {
		c.Text.Measurer = def.Text.Measurer
	}
	if c.Resources.BaseDir == "" {
		c.Resources.BaseDir = def.Resources.BaseDir
	}
	if c.Resources.CacheTTL.Duration == 0 {
		c.Resources.CacheTTL = def.Resources.CacheTTL
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Preview.Output == "" {
		c.Preview.Output = def.Preview.Output
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Viewport.Width < 0 || c.Viewport.Height < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "viewport 尺寸不能为负: %gx%g", c.Viewport.Width, c.Viewport.Height)
	case c.Text.Size < 0 || c.Text.LineHeight < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "text.size 与 text.line_height 不能为负")
	case c.Text.Measurer != MeasurerBasic && c.Text.Measurer != MeasurerCanvas:
		return errors.New(errors.ErrCodeInvalidConfig, "未知的 text.measurer %q", c.Text.Measurer)
	case c.Resources.CacheTTL.Duration < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "resources.cache_ttl 不能为负")
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "未知的 log.level %q", c.Log.Level)
	}
	return nil
}

// Style 返回文本的默认样式。
func (c *Config) Style() resource.Style {
	return resource.Style{Font: c.Text.Font, Size: c.Text.Size, LineHeight: c.Text.LineHeight}
}

// LogLevel 返回解析后的日志级别，无法解析时为 info。
func (c *Config) LogLevel() log.Level {
	lvl, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}
