package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agentic-research/lectern/catalog"
	"github.com/agentic-research/lectern/internal/config"
)

// defaultConfig is read from the working directory when --config is not given.
const defaultConfig = "articles.json"

var (
	configPath string
	language   string
	verbose    bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfig, "Path to store configuration (.json, .yaml or .hcl)")
	rootCmd.PersistentFlags().StringVarP(&language, "lang", "l", "", "Language tag (defaults to the configured language)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log ingestion and queries")
}

var rootCmd = &cobra.Command{
	Use:           "lectern",
	Short:         "Lectern: a multilingual article catalog over a content folder tree",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

// loadConfig reads --config. The default file may be absent, in which case
// the environment alone configures the store.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configPath
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && !cmd.Flags().Changed("config") {
		path = ""
	}
	return config.Load(path)
}

// openCatalog loads the configuration and opens the catalog, bootstrapping
// the store on first use. The returned func releases both.
func openCatalog(cmd *cobra.Command) (*catalog.Catalog, func(), error) {
	logger, err := newLogger()
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	c, err := catalog.Open(cfg, catalog.WithLogger(logger))
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	return c, func() {
		_ = c.Close()
		_ = logger.Sync()
	}, nil
}

// session honors --lang over the configured language.
func session(c *catalog.Catalog) *catalog.Session {
	if language != "" {
		return c.Session(language)
	}
	return c.DefaultSession()
}
