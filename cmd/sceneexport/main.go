package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/milk9111/sceneexport/batch"
	"github.com/milk9111/sceneexport/config"
	"github.com/milk9111/sceneexport/hooks"
	"github.com/milk9111/sceneexport/recipe"
	"github.com/milk9111/sceneexport/scene"
	"github.com/milk9111/sceneexport/watch"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	configPath string
	verbose    bool
	scale      float64
	outDir     string
	outExt     string
	workers    int
	onError    string
	hookPaths  []string
	knownTypes []string

	logger *zap.Logger
	fsys   afero.Fs = afero.NewOsFs()
)

var rootCmd = &cobra.Command{
	Use:   "sceneexport",
	Short: "Convert Tiled scene exports into engine recipe documents",
	Long: `sceneexport reads scenes exported from the Tiled level editor and writes
the recipe documents the game engine loads: one recipe per placed object,
positioned at the object's center in Y-up engine units.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logConfig := zap.NewProductionConfig()
		if verbose {
			logConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = logConfig.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [scene.json|dir]...",
	Short: "Export scene files or directories of scene files",
	Long: `Exports each scene to a file with the same base name under the export
directory. A single file aborts on the first error; batches follow the
on_error policy ("skip" reports failed files and continues, "abort" stops).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExport,
}

var watchCmd = &cobra.Command{
	Use:   "watch [scene.json|dir]...",
	Short: "Export all scenes, then re-export them whenever they change",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runWatch,
}

var boundsCmd = &cobra.Command{
	Use:   "bounds [scene.json]",
	Short: "Print the engine-space bounding box of a scene",
	Args:  cobra.ExactArgs(1),
	RunE:  runBounds,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "config file (default "+config.DefaultPath+" if present)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	pf.Float64Var(&scale, "scale", 0, "editor units per engine unit")
	pf.StringVarP(&outDir, "out-dir", "o", "", "export directory")
	pf.StringVar(&outExt, "out-ext", "", "extension of exported files")
	pf.IntVarP(&workers, "workers", "j", 0, "parallel exports (0 = number of CPUs)")
	pf.StringVar(&onError, "on-error", "", "batch failure policy: skip or abort")
	pf.StringSliceVar(&hookPaths, "hook", nil, "tengo hook script applied to every recipe (repeatable)")
	pf.StringSliceVar(&knownTypes, "known-type", nil, "accepted recipe type (repeatable, default any)")

	rootCmd.AddCommand(exportCmd, watchCmd, boundsCmd)
}

// loadConfig reads the config file and applies flags the user set.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, optional := configPath, false
	if path == "" {
		path, optional = config.DefaultPath, true
	}
	cfg, err := config.Load(path, optional)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("scale") {
		cfg.Scale = scale
	}
	if flags.Changed("out-dir") {
		cfg.OutDir = outDir
	}
	if flags.Changed("out-ext") {
		cfg.OutExt = outExt
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("on-error") {
		cfg.OnError = config.Policy(onError)
	}
	if flags.Changed("hook") {
		cfg.Hooks = hookPaths
	}
	if flags.Changed("known-type") {
		cfg.KnownTypes = knownTypes
	}
	return cfg, cfg.Validate()
}

func newExporter(cfg config.Config) (*batch.Exporter, error) {
	scripts, err := hooks.LoadAll(cfg.Hooks)
	if err != nil {
		return nil, err
	}
	hs := make([]recipe.Hook, len(scripts))
	for i, s := range scripts {
		hs[i] = s
	}

	return &batch.Exporter{
		Fs: fsys,
		Options: recipe.Options{
			Scale:      cfg.Scale,
			KnownTypes: cfg.KnownTypes,
			Hooks:      hs,
		},
		OutDir:  cfg.OutDir,
		OutExt:  cfg.OutExt,
		Workers: cfg.Workers,
		Policy:  cfg.OnError,
		Logger:  logger,
	}, nil
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	exp, err := newExporter(cfg)
	if err != nil {
		return err
	}

	files, err := exp.Expand(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		logger.Warn("no scene files found", zap.Strings("paths", args))
		return nil
	}
	if len(args) == 1 && len(files) == 1 && files[0] == args[0] {
		exp.Policy = config.Abort
	}

	results, err := exp.Run(cmd.Context(), files)
	if err != nil {
		for _, r := range results {
			if r.Err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "FAIL %s: %v\n", r.Input, r.Err)
			}
		}
		return fmt.Errorf("export failed for %d of %d files", countFailed(results), len(files))
	}
	return nil
}

func countFailed(results []batch.Result) int {
	n := 0
	for _, r := range results {
		if r.Err != nil || r.Skipped {
			n++
		}
	}
	return n
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	exp, err := newExporter(cfg)
	if err != nil {
		return err
	}
	exp.Policy = config.Skip

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	isDir := func(p string) bool {
		info, err := fsys.Stat(p)
		return err == nil && info.IsDir()
	}
	scope := watch.NewScope(args, isDir, cfg.OutDir)
	if dir, ok := scope.Overlap(); ok {
		return fmt.Errorf("watch: %s is inside the export directory %s", dir, cfg.OutDir)
	}

	files, err := exp.Expand(args)
	if err != nil {
		return err
	}
	// initial failures are logged; the watcher keeps running so they can be fixed
	_, _ = exp.Run(ctx, files)

	w, err := watch.NewWatcher(cfg.Debounce, scope.Dirs()...)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Close()

	logger.Info("watching for scene changes", zap.Strings("dirs", scope.Dirs()))
	watch.Loop(ctx, w, exp, scope, logger)
	return nil
}

func runBounds(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	exp, err := newExporter(cfg)
	if err != nil {
		return err
	}

	data, err := afero.ReadFile(fsys, args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	_, doc, err := recipe.ExportBytes(data, exp.Options)
	if err != nil {
		return scene.WithFile(err, args[0])
	}

	bb, ok := recipe.Bounds(doc)
	if !ok {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: no recipes\n", args[0])
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: left=%g bottom=%g right=%g top=%g (%d recipes)\n",
		args[0], bb.L, bb.B, bb.R, bb.T, len(doc.Recipes))
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
