package batch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/milk9111/sceneexport/config"
	"github.com/milk9111/sceneexport/recipe"
	"github.com/milk9111/sceneexport/scene"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// WriteError reports an export that could not be written.
type WriteError struct {
	File string
	Out  string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s (from %s): %v", e.Out, e.File, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Result is the outcome of one input file.
type Result struct {
	Input   string
	Output  string
	Recipes int
	// Skipped is set for files never attempted because the batch was
	// aborted or cancelled.
	Skipped bool
	Err     error
}

// Exporter exports scene files to a designated directory.
type Exporter struct {
	Fs      afero.Fs
	Options recipe.Options
	OutDir  string
	OutExt  string
	Workers int
	Policy  config.Policy
	Logger  *zap.Logger
}

func (e *Exporter) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// OutputPath maps an input scene to its export path: same base name under
// outDir, with the extension replaced by ext when ext is non-empty.
func OutputPath(input, outDir, ext string) string {
	base := filepath.Base(input)
	if ext != "" {
		base = strings.TrimSuffix(base, filepath.Ext(base)) + ext
	}
	return filepath.Join(outDir, base)
}

// ExportFile reads, transforms and writes a single scene.
func (e *Exporter) ExportFile(path string) Result {
	res := Result{Input: path, Output: OutputPath(path, e.OutDir, e.OutExt)}
	log := e.logger().With(zap.String("file", path))

	res.Recipes, res.Err = e.exportFile(path, res.Output)
	if res.Err != nil {
		log.Error("export failed", zap.Error(res.Err))
		return res
	}
	log.Info("exported", zap.String("out", res.Output), zap.Int("recipes", res.Recipes))
	return res
}

func (e *Exporter) exportFile(in, out string) (int, error) {
	data, err := afero.ReadFile(e.Fs, in)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", in, err)
	}

	encoded, doc, err := recipe.ExportBytes(data, e.Options)
	if err != nil {
		return 0, scene.WithFile(err, in)
	}

	if bb, ok := recipe.Bounds(doc); ok {
		e.logger().Debug("scene bounds",
			zap.String("file", in),
			zap.Float64("left", bb.L), zap.Float64("bottom", bb.B),
			zap.Float64("right", bb.R), zap.Float64("top", bb.T))
	}

	if filepath.Clean(in) == filepath.Clean(out) {
		return 0, &WriteError{File: in, Out: out, Err: errors.New("output would overwrite the input scene")}
	}
	if err := e.Fs.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return 0, &WriteError{File: in, Out: out, Err: err}
	}
	if err := afero.WriteFile(e.Fs, out, encoded, 0o644); err != nil {
		return 0, &WriteError{File: in, Out: out, Err: err}
	}
	return len(doc.Recipes), nil
}

// Expand resolves the command line inputs to scene files. Directories are
// scanned one level deep for .json files, in name order; plain files are
// kept as given.
func (e *Exporter) Expand(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := e.Fs.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}

		entries, err := afero.ReadDir(e.Fs, p)
		if err != nil {
			return nil, fmt.Errorf("read dir %s: %w", p, err)
		}
		var found []string
		for _, entry := range entries {
			if entry.IsDir() || !IsSceneFile(entry.Name()) {
				continue
			}
			found = append(found, filepath.Join(p, entry.Name()))
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}

// IsSceneFile reports whether path looks like a JSON scene export.
func IsSceneFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// Run exports every file on a bounded worker pool. Results keep the order
// of files. With config.Abort no new file is started after a failure. The
// returned error joins every per-file error.
func (e *Exporter) Run(ctx context.Context, files []string) ([]Result, error) {
	workers := e.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]Result, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, f := range files {
		if gctx.Err() != nil {
			results[i] = Result{Input: f, Skipped: true}
			continue
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				results[i] = Result{Input: f, Skipped: true}
				return nil
			}
			results[i] = e.ExportFile(f)
			if results[i].Err != nil && e.Policy == config.Abort {
				return results[i].Err
			}
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	failed, skipped := 0, 0
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
			errs = append(errs, r.Err)
		case r.Skipped:
			skipped++
		}
	}

	log := e.logger()
	if failed > 0 || skipped > 0 {
		log.Warn("batch finished with failures",
			zap.Int("files", len(files)),
			zap.Int("failed", failed),
			zap.Int("skipped", skipped))
	} else {
		log.Info("batch finished", zap.Int("files", len(files)))
	}

	if err := ctx.Err(); err != nil && skipped > 0 {
		errs = append(errs, err)
	}
	return results, errors.Join(errs...)
}
