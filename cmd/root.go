// Package cmd wires the delta command line interface.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/apexline-data/delta.report/internal/config"
	"github.com/apexline-data/delta.report/internal/version"
	"github.com/apexline-data/delta.report/log"
)

const envPrefix = "DELTA"

var (
	cfgFile    string
	tuningFile string
	logLevel   string
	devMode    bool
	dbPath     string
)

var rootCmd = &cobra.Command{
	Use:     "delta",
	Short:   "Lap telemetry decoding, segmentation and comparison",
	Version: fmt.Sprintf("%s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if devMode {
			return log.InitDevelopmentLogger(logLevel)
		}
		return log.InitProductionLogger(logLevel)
	},
	SilenceUsage: true,
}

// Execute runs the root command. Called once from main.
func Execute() {
	defer log.Sync()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $HOME/.delta.yml)")
	rootCmd.PersistentFlags().StringVar(&tuningFile, "analysis-config", "",
		"analysis tuning file (defaults to built-in values)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&devMode, "dev", false,
		"human-readable console logging")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "sessions.db",
		"path to the session database")

	rootCmd.AddCommand(newInfoCmd())
	rootCmd.AddCommand(newLapsCmd())
	rootCmd.AddCommand(newCompareCmd())
	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newSessionsCmd())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".delta")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	bindFlags(rootCmd, viper.GetViper())
	for _, cmd := range rootCmd.Commands() {
		bindFlags(cmd, viper.GetViper())
	}
}

// bindFlags overlays DELTA_* environment variables onto any flag the user
// did not set on the command line.
func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		name := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
		if err := v.BindEnv(f.Name, fmt.Sprintf("%s_%s", envPrefix, name)); err != nil {
			fmt.Fprintf(os.Stderr, "could not bind env var %s: %v\n", f.Name, err)
			return
		}
		if !f.Changed && v.IsSet(f.Name) {
			_ = cmd.Flags().Set(f.Name, v.GetString(f.Name))
		}
	})
}

// tuning loads the tuning config named by --analysis-config, or the
// built-in defaults when the flag is unset.
func tuning() (*config.TuningConfig, error) {
	if tuningFile == "" {
		return config.EmptyTuningConfig(), nil
	}
	return config.LoadTuningConfig(tuningFile)
}
