package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/getmockd/entityd/pkg/config"
	"github.com/getmockd/entityd/pkg/entity"
	"github.com/getmockd/entityd/pkg/logging"
	"github.com/getmockd/entityd/pkg/server"
)

// serveFlags holds the serve command's flag values.
type serveFlags struct {
	configFile string
	host       string
	port       int
	scope      string
	seeds      []string
	watch      bool
	logFile    string
}

// serveFlagVals is the package-level instance bound to cobra flags.
var serveFlagVals serveFlags

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the entityd server (foreground)",
	Long: `Start the entityd server and block until interrupted.

Settings are applied in order: defaults, configuration file (--config or
ENTITYD_CONFIG), ENTITYD_* environment variables, then flags.`,
	Example: `  # Start with defaults on :8080
  entityd serve

  # Start from a config file on a custom port
  entityd serve --config entityd.yaml --port 3000

  # Seed from files and reload them on change
  entityd serve --seed 'data/**/*.yaml' --watch

  # Give every request its own seeded store
  entityd serve --scope request`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, cmd, cmd.ErrOrStderr())
	},
}

func runServe(ctx context.Context, cmd *cobra.Command, stderr io.Writer) error {
	cfg, err := serveConfig(cmd, &serveFlagVals)
	if err != nil {
		return err
	}

	log, closer, err := logging.Open(logging.Config{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: logging.ParseFormat(cfg.Log.Format),
		Output: stderr,
		File:   cfg.Log.File,
	})
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	seed, err := cfg.LoadSeed()
	if err != nil {
		return err
	}

	srv, err := server.New(ctx, cfg, seed, server.WithLogger(log))
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	if cfg.Seed.Watch && len(cfg.SeedPatterns()) > 0 {
		g.Go(func() error {
			return config.WatchSeed(gctx, cfg, log, func(seed []entity.Entity) {
				_ = srv.Reload(seed)
			})
		})
	} else if cfg.Seed.Watch {
		log.Warn("seed watch requested but no seed files are configured")
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

// serveConfig resolves the configuration for serve: defaults, then the config
// file, then the environment, then flags that were set explicitly.
func serveConfig(cmd *cobra.Command, f *serveFlags) (*config.Config, error) {
	path := f.configFile
	if path == "" {
		path = config.ConfigPathFromEnv()
	}
	cfg, err := loadConfig(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Server.Host = f.host
	}
	if flags.Changed("port") {
		cfg.Server.Port = f.port
	}
	if flags.Changed("scope") {
		cfg.Store.Scope = f.scope
	}
	if flags.Changed("resource") {
		cfg.Store.Name = resourceName
	}
	if flags.Changed("base-path") {
		cfg.Server.BasePath = basePath
	}
	if flags.Changed("watch") {
		cfg.Seed.Watch = f.watch
	}
	if flags.Changed("log-file") {
		cfg.Log.File = f.logFile
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	for _, pattern := range f.seeds {
		// Flag patterns are relative to the working directory, not the config file.
		abs, err := filepath.Abs(pattern)
		if err != nil {
			return nil, fmt.Errorf("--seed %s: %w", pattern, err)
		}
		cfg.Seed.Files = append(cfg.Seed.Files, abs)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func init() {
	f := serveCmd.Flags()
	f.StringVarP(&serveFlagVals.configFile, "config", "c", "", "Path to a YAML or JSON config file (env "+config.EnvConfig+")")
	f.StringVar(&serveFlagVals.host, "host", "", "Listen host (default all interfaces)")
	f.IntVarP(&serveFlagVals.port, "port", "p", config.DefaultPort, "Listen port (env "+config.EnvPort+")")
	f.StringVar(&serveFlagVals.scope, "scope", string(entity.ScopeSingleton), "Store scope: singleton or request (env "+config.EnvScope+")")
	f.StringArrayVar(&serveFlagVals.seeds, "seed", nil, "Seed file glob, ** supported (repeatable)")
	f.BoolVar(&serveFlagVals.watch, "watch", false, "Reload seed files when they change")
	f.StringVar(&serveFlagVals.logFile, "log-file", "", "Also append JSON logs to this file")
	rootCmd.AddCommand(serveCmd)
}
