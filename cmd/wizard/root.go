package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/wizard/internal/config"
	"github.com/aretw0/wizard/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Wizard runs multi-step application guides",
	Long: `Wizard walks applicants through server-defined guides one step at a time,
keeps their progress between visits and submits completed applications.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "YAML configuration file (default $WIZARD_CONFIG)")
	pf.String("env-file", ".env", "dotenv file read before the environment")
	pf.Bool("debug", false, "Enable debug logging")
	pf.String("store", "", "Session store driver: memory, file, redis or sqlite")
	pf.String("store-path", "", "Location of the file or sqlite session store")
}

// loadConfig layers the command-line flags over the configuration sources.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	flags := cmd.Flags()
	configFile, _ := flags.GetString("config")
	envFile, _ := flags.GetString("env-file")

	cfg, err := config.Load(config.Sources{EnvFile: envFile, ConfigFile: configFile})
	if err != nil {
		return config.Config{}, err
	}

	if flags.Changed("debug") {
		cfg.Debug, _ = flags.GetBool("debug")
	}
	if flags.Changed("store") {
		cfg.Store.Driver, _ = flags.GetString("store")
	}
	if flags.Changed("store-path") {
		cfg.Store.Path, _ = flags.GetString("store-path")
	}
	for _, name := range []string{"addr", "guides", "backend"} {
		if flags.Lookup(name) == nil || !flags.Changed(name) {
			continue
		}
		v, _ := flags.GetString(name)
		switch name {
		case "addr":
			cfg.Addr = v
		case "guides":
			cfg.GuidesDir = v
		case "backend":
			cfg.BackendURL = v
		}
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg config.Config) *slog.Logger {
	return logging.NewWithOptions(logging.Options{Level: cfg.LogLevel(), Format: cfg.LogFormat})
}
