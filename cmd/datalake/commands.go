package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tigerroll/datalake/internal/app"
	config "github.com/tigerroll/datalake/pkg/batch/core/config"
)

var (
	// Version of this software, filled in by ldflags.
	Version string
	// BuildTime of this software, filled in by ldflags.
	BuildTime string
)

func versionString() string {
	v, b := Version, BuildTime
	if v == "" {
		v = "v0.0.0"
	}
	if b == "" {
		b = "not recorded"
	}
	return fmt.Sprintf("datalake %s (built %s)", v, b)
}

// NewRootCommand creates the datalake command with its run and version subcommands.
func NewRootCommand(embedded []byte) *cobra.Command {
	root := &cobra.Command{
		Use:   "datalake",
		Short: "datalake - song-play star schema ETL",
		Long: `Reads raw song metadata and play events, derives the songs, artists, users,
time and songplays tables and writes them as partitioned Parquet.

` + versionString() + "\n",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(NewRunCommand(embedded), NewVersionCommand())
	return root
}

type runFlags struct {
	configFile string
	envFile    string
	overrides  config.Overrides
}

func (f *runFlags) bind(flags *pflag.FlagSet) {
	flags.StringVarP(&f.configFile, "config", "c", "", "YAML file layered over the built-in configuration")
	flags.StringVar(&f.envFile, "env-file", "", ".env file loaded before environment overrides (default: ./.env if present)")
	flags.StringVar(&f.overrides.InputRoot, "input-root", "", "object prefix of song_data and log_data in the input storage")
	flags.StringVar(&f.overrides.OutputRoot, "output-root", "", "object prefix of the output tables in the output storage")
	flags.StringVar(&f.overrides.Timezone, "timezone", "", "IANA zone used to decompose event timestamps (default UTC)")
	flags.StringVar(&f.overrides.LogLevel, "log-level", "", "DEBUG, INFO, WARN or ERROR")
}

// NewRunCommand creates the command that runs datalakeJob once.
func NewRunCommand(embedded []byte) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "run the ETL job once, overwriting the output tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunApplication(cmd.Context(), app.Options{
				EmbeddedConfig: config.EmbeddedConfig(embedded),
				EnvFilePath:    f.envFile,
				ConfigFilePath: f.configFile,
				Overrides:      f.overrides,
			})
		},
	}
	f.bind(cmd.Flags())
	return cmd
}

// NewVersionCommand creates the command that prints the build version.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), versionString())
		},
	}
}
