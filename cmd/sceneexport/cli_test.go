package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/milk9111/sceneexport/levels"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// setup points the CLI globals at a temp workspace and returns it.
func setup(t *testing.T) string {
	t.Helper()
	logger = zap.NewNop()
	fsys = afero.NewOsFs()

	ws := t.TempDir()
	cfg := filepath.Join(ws, "sceneexport.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("out_dir: "+filepath.Join(ws, "export")+"\n"), 0o644))
	configPath = cfg
	t.Cleanup(func() { configPath = "" })
	return ws
}

func newCmd() (*cobra.Command, *bytes.Buffer) {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	return cmd, &out
}

func copyLevel(t *testing.T, name, dst string) {
	t.Helper()
	data, err := levels.Load(name)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0o755))
	require.NoError(t, os.WriteFile(dst, data, 0o644))
}

func TestExportCmdSingleFile(t *testing.T) {
	ws := setup(t)
	in := filepath.Join(ws, "scenes", "tutorial.json")
	copyLevel(t, "tutorial", in)

	cmd, _ := newCmd()
	require.NoError(t, runExport(cmd, []string{in}))

	data, err := os.ReadFile(filepath.Join(ws, "export", "tutorial.json"))
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Len(t, doc["recipes"], 4)
}

func TestExportCmdDirectoryReportsFailures(t *testing.T) {
	ws := setup(t)
	dir := filepath.Join(ws, "scenes")
	copyLevel(t, "tutorial", filepath.Join(dir, "a.json"))
	copyLevel(t, "broken", filepath.Join(dir, "b.json"))

	cmd, out := newCmd()
	err := runExport(cmd, []string{dir})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2")
	assert.Contains(t, out.String(), "b.json")

	_, statErr := os.Stat(filepath.Join(ws, "export", "a.json"))
	assert.NoError(t, statErr, "healthy scenes are still exported under the skip policy")
}

func TestExportCmdHook(t *testing.T) {
	ws := setup(t)
	in := filepath.Join(ws, "tutorial.json")
	copyLevel(t, "tutorial", in)
	hook := filepath.Join(ws, "density.tengo")
	require.NoError(t, os.WriteFile(hook, []byte(`if recipe.type == "PhysicsObject" { recipe.density = 0.25 }`), 0o644))

	cfg := "out_dir: " + filepath.Join(ws, "export") + "\nhooks: [" + hook + "]\n"
	require.NoError(t, os.WriteFile(configPath, []byte(cfg), 0o644))

	cmd, _ := newCmd()
	require.NoError(t, runExport(cmd, []string{in}))

	data, err := os.ReadFile(filepath.Join(ws, "export", "tutorial.json"))
	require.NoError(t, err)
	var doc struct {
		Recipes []map[string]any `json:"recipes"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, 0.25, doc.Recipes[3]["density"])
	assert.NotContains(t, doc.Recipes[0], "density")
}

func TestExportCmdBadConfig(t *testing.T) {
	setup(t)
	require.NoError(t, os.WriteFile(configPath, []byte("scale: -1\n"), 0o644))

	cmd, _ := newCmd()
	assert.Error(t, runExport(cmd, []string{"whatever.json"}))
}

func TestBoundsCmd(t *testing.T) {
	ws := setup(t)
	in := filepath.Join(ws, "tutorial.json")
	copyLevel(t, "tutorial", in)

	cmd, out := newCmd()
	require.NoError(t, runBounds(cmd, []string{in}))
	assert.Contains(t, out.String(), "left=")
	assert.Contains(t, out.String(), "(4 recipes)")
}

func TestWatchCmdRejectsExportDir(t *testing.T) {
	ws := setup(t)
	out := filepath.Join(ws, "export")
	require.NoError(t, os.MkdirAll(out, 0o755))

	cmd, _ := newCmd()
	err := runWatch(cmd, []string{out})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inside the export directory")
}
