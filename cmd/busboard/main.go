package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"buscom.dev/transit"
	"buscom.dev/transit/congestion"
	"buscom.dev/transit/fetch"
	"buscom.dev/transit/operator"
	"buscom.dev/transit/snapshot"
)

var rootCmd = &cobra.Command{
	Use:          "busboard",
	Short:        "Bus departure board service",
	Long:         "Aggregates operator schedules and realtime feeds into departure boards with crowding data",
	SilenceUsage: true,
}

var (
	configPath string
	verbose    bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yml", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(pollCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(departuresCmd)
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// newManager assembles the manager from the config file: one
// snapshot store and one congestion store per operator, plus a shared
// downloader.
func newManager(logger *zap.Logger) (*transit.Manager, *operator.AppConfig, error) {
	cfg, err := operator.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	var dl fetch.Downloader
	if dir := cfg.Schedule.CacheDirectory; dir != "" {
		dl, err = fetch.NewFilesystemDownloader(dir)
		if err != nil {
			return nil, nil, err
		}
	} else {
		dl = fetch.NewMemoryDownloader()
	}

	resources := make([]transit.OperatorResources, 0, len(cfg.Operators))
	for _, op := range cfg.Operators {
		store, err := newCongestionStore(cfg.Congestion, op)
		if err != nil {
			return nil, nil, fmt.Errorf("operator %s: %w", op.Name, err)
		}

		var snapshots snapshot.Store = snapshot.NewMemoryStore()
		if dir := cfg.Schedule.CacheDirectory; dir != "" {
			snapshots, err = snapshot.NewFilesystemStore(filepath.Join(dir, "snapshots", op.Name))
			if err != nil {
				return nil, nil, fmt.Errorf("operator %s: %w", op.Name, err)
			}
		}

		resources = append(resources, transit.OperatorResources{
			Config:     op,
			Snapshots:  snapshots,
			Congestion: store,
		})
	}

	manager, err := transit.NewManager(resources, dl, logger)
	if err != nil {
		return nil, nil, err
	}

	return manager, cfg, nil
}

func newCongestionStore(cfg operator.CongestionConfig, op operator.Config) (congestion.Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return congestion.NewMemoryStore(), nil
	case "sqlite":
		if cfg.Directory == "" {
			return congestion.NewSQLiteStore()
		}
		dir := filepath.Join(cfg.Directory, op.Name)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating sqlite dir: %w", err)
		}
		return congestion.NewSQLiteStore(congestion.SQLiteConfig{
			OnDisk:    true,
			Directory: dir,
		})
	case "postgres":
		return congestion.NewPSQLStore(cfg.DSN, op.CongestionTable, false)
	default:
		return nil, fmt.Errorf("unknown congestion driver %q", cfg.Driver)
	}
}

func main() {
	// Tokens referenced as ${VAR} in the config file may live in a
	// local .env during development.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}
