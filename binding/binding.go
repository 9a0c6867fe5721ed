// Package binding 把数据绑定到内容树中的 ${path} 占位符。
package binding

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ByLCY/flowbox/errors"
	"github.com/ByLCY/flowbox/tree"
)

var exprPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load 读取 YAML 或 JSON 数据文件。
func Load(path string) (any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeResourceLoad, err, "读取数据文件 %s 失败", path)
	}
	var data any
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "解析数据文件 %s 失败", path)
	}
	return data, nil
}

// Apply 对树中所有文本内容与属性做插值，返回未能解析的路径（去重、按出现顺序）。
func Apply(root *tree.Node, data any) []string {
	var missing []string
	note := func(path string) {
		if !slices.Contains(missing, path) {
			missing = append(missing, path)
		}
	}
	root.Walk(func(n *tree.Node) bool {
		for k, v := range n.Attrs {
			if strings.Contains(v, "${") {
				n.Attrs[k] = interpolate(v, data, note)
			}
		}
		return true
	})
	return missing
}

// Interpolate 将文本中的 ${path.to.value} 替换为 data 中的值。
// 若 data 为空或路径不存在，则返回原占位符。
func Interpolate(text string, data any) string {
	return interpolate(text, data, func(string) {})
}

func interpolate(text string, data any, missing func(path string)) string {
	return exprPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := exprPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		path := strings.TrimSpace(groups[1])
		if path == "" {
			return match
		}
		if val, ok := resolvePath(data, path); ok && data != nil {
			return fmt.Sprint(val)
		}
		missing(path)
		return match
	})
}

func resolvePath(data any, path string) (any, bool) {
	current := data
	segments := strings.Split(path, ".")
	for _, segment := range segments {
		name, indexes := parseSegment(segment)
		if name != "" {
			var ok bool
			current, ok = descendMap(current, name)
			if !ok {
				return nil, false
			}
		}
		for _, idxStr := range indexes {
			idx, err := strconv.Atoi(idxStr)
			if err != nil {
				return nil, false
			}
			var ok bool
			current, ok = descendArray(current, idx)
			if !ok {
				return nil, false
			}
		}
	}
	return current, true
}

func parseSegment(segment string) (string, []string) {
	name := segment
	indexes := []string{}
	if i := strings.Index(segment, "["); i != -1 {
		name = segment[:i]
		rest := segment[i:]
		for len(rest) > 0 {
			if rest[0] != '[' {
				break
			}
			end := strings.IndexByte(rest, ']')
			if end == -1 {
				break
			}
			indexes = append(indexes, rest[1:end])
			rest = rest[end+1:]
		}
	}
	return name, indexes
}

func descendMap(current any, key string) (any, bool) {
	switch c := current.(type) {
	case map[string]interface{}:
		val, ok := c[key]
		return val, ok
	case map[string]string:
		val, ok := c[key]
		return val, ok
	default:
		return nil, false
	}
}

func descendArray(current any, idx int) (any, bool) {
	switch c := current.(type) {
	case []interface{}:
		if idx < 0 || idx >= len(c) {
			return nil, false
		}
		return c[idx], true
	default:
		return nil, false
	}
}
