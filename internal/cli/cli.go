// Package cli implements the qlayout command-line interface.
package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/qlayout/pkg/buildinfo"
	"github.com/matzehuels/qlayout/pkg/cache"
	"github.com/matzehuels/qlayout/pkg/component"
	"github.com/matzehuels/qlayout/pkg/config"
	"github.com/matzehuels/qlayout/pkg/design"
	"github.com/matzehuels/qlayout/pkg/errors"
	"github.com/matzehuels/qlayout/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = config.AppName

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	cfg        *config.Config
	catalog    *component.Catalog
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger:  newLogger(w, level),
		cfg:     config.Default(),
		catalog: component.DefaultCatalog(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "qlayout draws and checks superconducting chip layouts",
		Long:         `qlayout builds planar superconducting-qubit chip layouts from option records: it places air bridges, maps qubit lattices to chip coordinates, checks line crossings and moves geometry in and out of GDSII.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.cfg = cfg
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/qlayout/config.toml)")

	root.AddCommand(c.bboxCommand())
	root.AddCommand(c.intersectCommand())
	root.AddCommand(c.topoCommand())
	root.AddCommand(c.bridgesCommand())
	root.AddCommand(c.gdsCommand())
	root.AddCommand(c.optionsCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.designCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner and Store Factories
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	ch, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	var keyer cache.Keyer
	if ns := c.cfg.Cache.Namespace; ns != "" {
		keyer = cache.NewScopedKeyer(nil, ns)
	}
	return pipeline.NewRunner(ch, keyer, c.Logger), nil
}

func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch c.cfg.Cache.Backend {
	case config.BackendNone:
		return cache.NewNullCache(), nil
	case config.BackendRedis:
		return cache.NewRedisCache(ctx, c.cfg.Cache.RedisURL, c.cfg.Cache.RedisPrefix)
	}
	dir, err := c.cfg.CacheDir()
	if err != nil {
		c.Logger.Warn("no cache directory, caching disabled", "err", err)
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// newStore opens the design store selected by the configuration.
func (c *CLI) newStore(ctx context.Context) (design.Store, error) {
	s := c.cfg.Store
	switch s.Backend {
	case config.BackendRedis:
		return design.NewRedisStore(ctx, s.RedisURL, s.RedisPrefix)
	case config.BackendMongo:
		return design.NewMongoStore(ctx, s.MongoURI, s.MongoDatabase, s.MongoCollection)
	case config.BackendFile:
		dir, err := c.cfg.StoreDir()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "locate design store")
		}
		return design.NewFileStore(dir)
	}
	return nil, errors.New(errors.ErrCodeUnsupported, "store backend %q cannot hold designs", s.Backend)
}
