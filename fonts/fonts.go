// Package fonts 读取并校验字体文件。
package fonts

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"

	"github.com/ByLCY/flowbox/errors"
)

// sniffLen 足够 filetype 识别全部字体格式。
const sniffLen = 64

// Load 读取字体文件，相对路径基于 baseDir 解析。
func Load(name, baseDir string) ([]byte, error) {
	name = strings.TrimPrefix(name, "file://")
	if filepath.IsAbs(name) {
		data, err := os.ReadFile(name)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeResourceLoad, err, "读取字体 %s 失败", name)
		}
		return checked(name, data)
	}
	if baseDir == "" {
		baseDir = "."
	}
	return LoadFS(os.DirFS(baseDir), name)
}

// LoadFS 从 fsys 读取字体文件。
func LoadFS(fsys fs.FS, name string) ([]byte, error) {
	clean := path.Clean(filepath.ToSlash(name))
	if !fs.ValidPath(clean) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "非法的字体路径 %q", name)
	}
	data, err := fs.ReadFile(fsys, clean)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeResourceLoad, err, "读取字体 %s 失败", clean)
	}
	return checked(clean, data)
}

func checked(name string, data []byte) ([]byte, error) {
	if _, err := Format(data); err != nil {
		return nil, errors.Wrap(errors.ErrCodeResourceLoad, err, "字体 %s 无法使用", name)
	}
	return data, nil
}

// Format 嗅探字体格式，返回扩展名（ttf、otf、woff、woff2）。
func Format(data []byte) (string, error) {
	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	if !filetype.IsFont(head) {
		return "", errors.New(errors.ErrCodeInvalidInput, "不是受支持的字体格式")
	}
	kind, err := filetype.Match(head)
	if err != nil {
		return "", err
	}
	return kind.Extension, nil
}
