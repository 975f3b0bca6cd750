package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/df07/go-scene-bridge/pkg/bridge"
	"github.com/df07/go-scene-bridge/pkg/config"
	"github.com/df07/go-scene-bridge/pkg/core"
	"github.com/df07/go-scene-bridge/pkg/loaders"
	"github.com/df07/go-scene-bridge/pkg/rib"
	"github.com/df07/go-scene-bridge/web/server"
)

// version is set with -ldflags "-X main.version=..."
var version = "dev"

// app holds state shared by every command, filled in before a command runs
type app struct {
	stdout, stderr io.Writer

	verbose    bool
	configPath string

	cfg    *config.Config
	logger *log.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "scenebridge",
		Short:         "Render scene description files",
		Long:          `scenebridge reads scene description files and renders them in process, writes them as project files, or translates them to RIB.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "TOML settings file")

	root.AddCommand(a.newRenderCmd())
	root.AddCommand(a.newRibCmd())
	root.AddCommand(a.newVersionCmd())
	return root
}

// setup loads the settings file and builds the logger
func (a *app) setup() error {
	a.cfg = config.Default()
	if a.configPath != "" {
		cfg, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}

	level, err := a.cfg.Level()
	if err != nil {
		return err
	}
	if a.verbose {
		level = log.DebugLevel
	}
	a.logger = core.NewLogger(a.stderr, level)
	return nil
}

func (a *app) newRenderCmd() *cobra.Command {
	var projectPath, preview string

	cmd := &cobra.Command{
		Use:   "render <scene>",
		Short: "Render a scene, or write it as a project file with --project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("preview") {
				preview = a.cfg.Preview
			}
			return a.runRender(cmd.Context(), args[0], projectPath, preview)
		},
	}
	cmd.Flags().StringVar(&projectPath, "project", "", "write a project file instead of rendering")
	cmd.Flags().StringVar(&preview, "preview", "", "serve a live preview on this address")
	return cmd
}

func (a *app) runRender(ctx context.Context, scenePath, projectPath, preview string) error {
	var logger core.Logger = a.logger

	var srv *server.Server
	if preview != "" {
		if projectPath != "" {
			a.logger.Warnf("render: Preview is not available when writing a project file.")
		} else {
			srv = server.New(a.logger)
			logger = srv.Logger(a.logger)
			go func() {
				if err := srv.ListenAndServe(preview); err != nil {
					a.logger.Errorf("%v", err)
				}
			}()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
		}
	}

	var r *bridge.Renderer
	if projectPath != "" {
		r = bridge.NewBatch(projectPath, logger)
	} else {
		r = bridge.NewInteractive(logger)
	}
	if srv != nil {
		r.AddDisplayDriver(srv)
	}
	a.cfg.Apply(r)

	start := time.Now()
	err := loaders.RenderSceneFile(scenePath, r, logger)
	r.Wait()
	if cerr := r.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("render %s: %w", scenePath, err)
	}

	if projectPath != "" {
		a.logger.Infof("Wrote %s (%s)", projectPath, time.Since(start).Round(time.Millisecond))
		return nil
	}
	a.logger.Infof("Rendered %s (%s)", scenePath, time.Since(start).Round(time.Millisecond))

	if srv != nil {
		a.logger.Infof("preview: Press Ctrl-C to stop serving.")
		<-ctx.Done()
	}
	return nil
}

func (a *app) newRibCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "rib <scene>",
		Short: "Translate a scene to a RenderMan Interface Bytestream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = ribPath(args[0])
			}
			return a.runRib(args[0], output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, gzip compressed when ending in .gz")
	return cmd
}

// ribPath replaces the scene file extension with .rib
func ribPath(scenePath string) string {
	base := strings.TrimSuffix(scenePath, ".gz")
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".rib"
}

func (a *app) runRib(scenePath, output string) error {
	r, err := rib.Create(output, a.logger)
	if err != nil {
		return err
	}
	a.cfg.Apply(r)

	err = loaders.RenderSceneFile(scenePath, r, a.logger)
	if cerr := r.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("rib %s: %w", scenePath, err)
	}
	a.logger.Infof("Wrote %s", output)
	return nil
}

func (a *app) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "scenebridge %s\n", version)
		},
	}
}
