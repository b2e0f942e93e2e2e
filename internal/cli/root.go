// Package cli wires dashgrid's commands: the desktop editor, the catalog
// server, the standalone MCP server and one-shot mirroring.
package cli

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"dashgrid/internal/config"
	"dashgrid/internal/logging"
)

var (
	version string // semantic version (e.g., "v1.2.3")
	commit  string // git commit SHA
	date    string // build timestamp
)

// SetVersion sets the version information displayed by --version, usually
// from values injected via ldflags.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// CLI holds what every command needs once the root has run.
type CLI struct {
	assets     fs.FS
	configPath string
	verbose    bool

	cfg    config.Config
	logger *log.Logger
}

// Execute runs the dashgrid CLI. assets is the built front-end served by
// the desktop command.
func Execute(assets fs.FS) error {
	return newRootCommand(assets).ExecuteContext(context.Background())
}

func newRootCommand(assets fs.FS) *cobra.Command {
	c := &CLI{assets: assets}

	root := &cobra.Command{
		Use:          "dashgrid",
		Short:        "Grid dashboard editor",
		Long:         `dashgrid edits dashboards of plot, table and metric blocks on a snapping grid. Without a subcommand it opens the desktop editor.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDesktop(cmd.Context())
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("dashgrid %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (default "+config.DefaultPath()+")")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.desktopCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.mcpCommand())
	root.AddCommand(c.mirrorCommand())

	return root
}

// setup loads the config and attaches the logger to the command context.
// Logs go to stderr: the mcp command owns stdout.
func (c *CLI) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg

	level := logging.ParseLevel(cfg.Log.Level)
	if c.verbose {
		level = log.DebugLevel
	}
	c.logger = logging.New(os.Stderr, level)
	cmd.SetContext(logging.WithLogger(cmd.Context(), c.logger))
	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

// watchConfig applies log level changes itself and hands the new config to
// apply. A config directory that does not exist is not watched.
func (c *CLI) watchConfig(ctx context.Context, apply func(config.Config)) func() {
	w, err := config.Watch(ctx, c.configPath, c.logger.WithPrefix("config"), func(cfg config.Config) {
		if !c.verbose {
			c.logger.SetLevel(logging.ParseLevel(cfg.Log.Level))
		}
		if apply != nil {
			apply(cfg)
		}
	})
	if err != nil {
		c.logger.Debug("config not watched", "err", err)
		return func() {}
	}
	return func() { w.Close() }
}
