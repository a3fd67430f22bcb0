package hooks

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply(t *testing.T) {
	cases := []struct {
		name  string
		src   string
		input map[string]any
		check func(t *testing.T, out map[string]any)
	}{
		{
			name:  "default_field",
			src:   `if recipe.type == "Weed" && is_undefined(recipe.is_static) { recipe.is_static = true }`,
			input: map[string]any{"type": "Weed", "width": 1.0},
			check: func(t *testing.T, out map[string]any) {
				assert.Equal(t, true, out["is_static"])
				assert.Equal(t, 1.0, out["width"])
			},
		},
		{
			name:  "delete_with_undefined",
			src:   `recipe.debug = undefined`,
			input: map[string]any{"type": "Box", "debug": "yes"},
			check: func(t *testing.T, out map[string]any) {
				v, ok := out["debug"]
				assert.True(t, ok)
				assert.Nil(t, v)
			},
		},
		{
			name:  "delete_builtin",
			src:   `delete(recipe, "debug")`,
			input: map[string]any{"type": "Box", "debug": "yes"},
			check: func(t *testing.T, out map[string]any) {
				assert.NotContains(t, out, "debug")
			},
		},
		{
			name:  "nested_pose",
			src:   `recipe.pose.x = recipe.pose.x + 1.5`,
			input: map[string]any{"pose": map[string]any{"x": 1.0, "y": 2.0}},
			check: func(t *testing.T, out map[string]any) {
				assert.Equal(t, map[string]any{"x": 2.5, "y": 2.0}, out["pose"])
			},
		},
		{
			name:  "stdlib_import",
			src:   `math := import("math"); recipe.half_pi = math.pi / 2`,
			input: map[string]any{},
			check: func(t *testing.T, out map[string]any) {
				assert.InDelta(t, 1.5707963, out["half_pi"], 1e-6)
			},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s, err := Compile(c.name, []byte(c.src))
			require.NoError(t, err)
			out, err := s.Apply(c.input)
			require.NoError(t, err)
			c.check(t, out)
		})
	}
}

func TestApplyErrors(t *testing.T) {
	_, err := Compile("syntax", []byte(`recipe.x = (`))
	require.Error(t, err)

	s, err := Compile("replace", []byte(`recipe = 3`))
	require.NoError(t, err)
	_, err = s.Apply(map[string]any{"type": "Box"})
	assert.ErrorContains(t, err, "must remain a map")

	s, err = Compile("runtime", []byte(`recipe.x = recipe.id + "a"`))
	require.NoError(t, err)
	_, err = s.Apply(map[string]any{"id": 1.0})
	assert.Error(t, err)
}

func TestImpureModulesUnavailable(t *testing.T) {
	for _, mod := range []string{"os", "rand", "times"} {
		t.Run(mod, func(t *testing.T) {
			_, err := Compile(mod, []byte(`m := import("`+mod+`"); recipe.m = true`))
			require.Error(t, err)
		})
	}
}

func TestApplyIsDeterministic(t *testing.T) {
	s, err := Compile("text", []byte(`text := import("text"); recipe.tag = text.to_upper(recipe.type) + "_" + string(recipe.id)`))
	require.NoError(t, err)

	first, err := s.Apply(map[string]any{"type": "box", "id": 7})
	require.NoError(t, err)
	second, err := s.Apply(map[string]any{"type": "box", "id": 7})
	require.NoError(t, err)
	assert.Equal(t, "BOX_7", first["tag"])
	assert.Equal(t, first, second)
}

func TestApplyConcurrent(t *testing.T) {
	s, err := Compile("counter", []byte(`recipe.seen = recipe.id * 2`))
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]map[string]any, 32)
	errs := make([]error, 32)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = s.Apply(map[string]any{"id": float64(i)})
		}()
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, float64(i*2), results[i]["seen"])
	}
}

func TestLoadAll(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.tengo")
	b := filepath.Join(dir, "b.tengo")
	require.NoError(t, os.WriteFile(a, []byte(`recipe.a = true`), 0o644))
	require.NoError(t, os.WriteFile(b, []byte(`recipe.b = recipe.a`), 0o644))

	scripts, err := LoadAll([]string{a, b})
	require.NoError(t, err)
	require.Len(t, scripts, 2)
	assert.Equal(t, a, scripts[0].Name())

	_, err = LoadAll([]string{filepath.Join(dir, "missing.tengo")})
	assert.Error(t, err)
}
