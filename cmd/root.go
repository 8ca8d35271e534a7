// Package cmd implements the partgraph command line.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/partgraph/internal/config"
	"github.com/zjrosen/partgraph/internal/log"
	"github.com/zjrosen/partgraph/internal/presentation"
)

var version = "dev"

// defaultConfigPath is where a default config is written when none is found.
const defaultConfigPath = ".partgraph/config.yaml"

// cli holds the state shared by every command of one invocation.
type cli struct {
	cfgFile   string
	debug     bool
	text      bool
	manifests []string

	v          *viper.Viper
	cfg        config.Config
	logCleanup func()
}

// NewRootCmd builds the command tree. Each call returns an independent tree
// with its own viper instance.
func NewRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:   "partgraph",
		Short: "Inspect plugin composition metadata",
		Long: `partgraph scans plugin manifests and answers composition questions about them:
which types derive from which, which parts export what, and which exports
satisfy a part's imports.

Output is JSON unless --text is given.`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: c.initConfig,
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.logCleanup != nil {
				c.logCleanup()
				c.logCleanup = nil
			}
		},
	}

	root.PersistentFlags().StringVarP(&c.cfgFile, "config", "c", "",
		"config file (default: .partgraph/config.yaml, then ~/.config/partgraph/config.yaml)")
	root.PersistentFlags().BoolVarP(&c.debug, "debug", "d", false,
		"write debug log (also PARTGRAPH_DEBUG=1)")
	root.PersistentFlags().BoolVar(&c.text, "text", false,
		"human-readable output instead of JSON")
	root.PersistentFlags().StringSliceVarP(&c.manifests, "manifests", "m", nil,
		"manifest directories, overriding the config (repeatable)")

	root.AddCommand(
		newScanCmd(c),
		newTypesCmd(c),
		newPartsCmd(c),
		newSubtypeCmd(c),
		newMatchCmd(c),
		newOriginsCmd(c),
		newWatchCmd(c),
	)
	return root
}

func (c *cli) initConfig(cmd *cobra.Command, _ []string) error {
	config.SetDefaults(c.v)
	c.v.SetEnvPrefix(config.EnvPrefix)
	c.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	c.v.AutomaticEnv()

	if c.cfgFile != "" {
		c.v.SetConfigFile(c.cfgFile)
	} else {
		// Config lookup order:
		// 1. .partgraph/config.yaml (current directory)
		// 2. ~/.config/partgraph/config.yaml (user config)
		if _, err := os.Stat(defaultConfigPath); err == nil {
			c.v.SetConfigFile(defaultConfigPath)
		} else {
			home, _ := os.UserHomeDir()
			c.v.AddConfigPath(filepath.Join(home, ".config", "partgraph"))
			c.v.SetConfigName("config")
			c.v.SetConfigType("yaml")
		}
	}

	if err := c.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
		// No config file found anywhere - create default at .partgraph/config.yaml
		if writeErr := config.WriteDefaultConfig(defaultConfigPath); writeErr == nil {
			c.v.SetConfigFile(defaultConfigPath)
			_ = c.v.ReadInConfig()
		}
		// If write fails, just continue with defaults (no config file)
	}

	if cmd.Flags().Changed("manifests") {
		c.v.Set("manifests", c.manifests)
	}

	cfg, err := config.Load(c.v)
	if err != nil {
		return err
	}
	c.cfg = cfg

	if c.debug || os.Getenv("PARTGRAPH_DEBUG") != "" || cfg.Log.Debug {
		cleanup, err := log.Init(cfg.Log.Path)
		if err != nil {
			return err
		}
		if level, ok := log.ParseLevel(cfg.Log.Level); ok {
			log.SetMinLevel(level)
		}
		c.logCleanup = cleanup
		log.Debug(log.CatConfig, "config loaded", "file", c.v.ConfigFileUsed(), "manifests", cfg.Manifests)
	}
	return nil
}

// formatter returns the output formatter selected by --text.
func (c *cli) formatter(cmd *cobra.Command) *presentation.Formatter {
	if c.text {
		return presentation.NewTextFormatter(cmd.OutOrStdout())
	}
	return presentation.NewFormatter(cmd.OutOrStdout())
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
}
