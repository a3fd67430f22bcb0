package hooks

import (
	"fmt"
	"os"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
)

// Modules lists the tengo standard modules a hook may import. Modules that
// touch the filesystem or depend on the clock or a random source are left
// out so a scene always exports to the same document.
var Modules = []string{"math", "text", "fmt", "json", "enum", "base64", "hex"}

// Script is a compiled tengo program that rewrites one recipe at a time.
// The recipe is exposed as the global map `recipe`; assigning `undefined`
// to a key removes it once nulls are stripped.
//
//	if recipe.type == "Weed" && is_undefined(recipe.is_static) {
//		recipe.is_static = true
//	}
type Script struct {
	name     string
	compiled *tengo.Compiled
}

// Load reads and compiles the script at path.
func Load(path string) (*Script, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("hooks: read %s: %w", path, err)
	}
	return Compile(path, src)
}

// Compile compiles src. name is only used in error messages.
func Compile(name string, src []byte) (*Script, error) {
	script := tengo.NewScript(src)
	_ = script.Add("recipe", map[string]any{})
	script.SetImports(stdlib.GetModuleMap(Modules...))

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("hooks: compile %s: %w", name, err)
	}
	return &Script{name: name, compiled: compiled}, nil
}

func (s *Script) Name() string { return s.name }

// Apply runs the script against r and returns the rewritten recipe. Each
// call works on a clone of the compiled program, so a Script can be shared
// between goroutines.
func (s *Script) Apply(r map[string]any) (map[string]any, error) {
	c := s.compiled.Clone()
	if err := c.Set("recipe", r); err != nil {
		return nil, fmt.Errorf("%s: set recipe: %w", s.name, err)
	}
	if err := c.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w", s.name, err)
	}

	v := c.Get("recipe")
	if _, ok := v.Object().(*tengo.Map); !ok {
		return nil, fmt.Errorf("%s: recipe must remain a map, got %s", s.name, v.ValueType())
	}
	return v.Map(), nil
}

// LoadAll compiles every script in order.
func LoadAll(paths []string) ([]*Script, error) {
	scripts := make([]*Script, 0, len(paths))
	for _, p := range paths {
		s, err := Load(p)
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, s)
	}
	return scripts, nil
}
