package binding

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ByLCY/flowbox/errors"
	"github.com/ByLCY/flowbox/tree"
)

func TestInterpolate(t *testing.T) {
	data := map[string]any{
		"user":  map[string]any{"name": "Ada", "tags": []any{"x", "y"}},
		"count": 3,
	}
	tests := []struct {
		in, want string
	}{
		{"Hello ${user.name}", "Hello Ada"},
		{"${ count } items", "3 items"},
		{"second tag ${user.tags[1]}", "second tag y"},
		{"${user.missing}", "${user.missing}"},
		{"${user.tags[9]}", "${user.tags[9]}"},
		{"no placeholders", "no placeholders"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Interpolate(tt.in, data); got != tt.want {
				t.Fatalf("Interpolate = %q, want %q", got, tt.want)
			}
		})
	}
	if got := Interpolate("${a}", nil); got != "${a}" {
		t.Fatalf("nil data 应保留占位符: %q", got)
	}
}

func TestApplyWalksTree(t *testing.T) {
	root := tree.New(tree.Container, "div")
	pic := tree.New(tree.Image, "img")
	pic.SetAttr(tree.AttrSrc, "${user.avatar}")
	root.Append(tree.NewText("Hi ${user.name}, ${user.nick} ${user.nick}"), pic)

	missing := Apply(root, map[string]any{"user": map[string]any{"name": "Ada", "avatar": "ada.png"}})
	if got := root.Children[0].Text(); got != "Hi Ada, ${user.nick} ${user.nick}" {
		t.Fatalf("text = %q", got)
	}
	if pic.Attr(tree.AttrSrc) != "ada.png" {
		t.Fatalf("src = %q", pic.Attr(tree.AttrSrc))
	}
	if !reflect.DeepEqual(missing, []string{"user.nick"}) {
		t.Fatalf("missing = %v", missing)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	yml := filepath.Join(dir, "data.yaml")
	if err := os.WriteFile(yml, []byte("user:\n  name: Ada\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	js := filepath.Join(dir, "data.json")
	if err := os.WriteFile(js, []byte(`{"user": {"name": "Lin"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	for path, want := range map[string]string{yml: "Ada", js: "Lin"} {
		data, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%s): %v", path, err)
		}
		if got := Interpolate("${user.name}", data); got != want {
			t.Fatalf("%s: %q, want %q", path, got, want)
		}
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("user: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); !errors.Is(err, errors.ErrCodeParse) {
		t.Fatalf("err = %v, want PARSE", err)
	}
	if _, err := Load(filepath.Join(dir, "none.yaml")); !errors.Is(err, errors.ErrCodeResourceLoad) {
		t.Fatalf("err = %v, want RESOURCE_LOAD", err)
	}
}
