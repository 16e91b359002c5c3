package main

import (
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/i2y/moviemood/config"
	"github.com/i2y/moviemood/logging"
	"github.com/i2y/moviemood/mcpserver"
	"github.com/i2y/moviemood/repl"
)

type rootFlags struct {
	configFile string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "moviemood",
		Short: "Movie recommendations for how you feel, with where to stream them",
		Long: "moviemood indexes a movie catalog, asks a language model for 3-5 matching\n" +
			"movies for your mood and looks up which streaming services carry them.\n\n" +
			"Secrets come from the environment or a .env file: OPENAI_API_KEY and\n" +
			"UTELLY_API_KEY are required, LANGCHAIN_API_KEY enables tracing.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := startApp(cmd, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			busy := spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
			busy.Suffix = " Finding movies..."

			loop := &repl.Loop{
				Recommender: a.service,
				In:          cmd.InOrStdin(),
				Out:         cmd.OutOrStdout(),
				Busy:        busy,
			}
			return loop.Run(ctx)
		},
	}

	cmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "YAML config file (default: $"+config.ConfigPathEnvVar+" or ./moviemood.yaml)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")

	cmd.AddCommand(newMCPCmd(flags))
	return cmd
}

func newMCPCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the recommender as MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := startApp(cmd, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			return mcpserver.Serve(cmd.Context(), mcpserver.New(a.service, a.lookups, version))
		},
	}
}

// startApp loads configuration, sets up logging and builds the app with a
// spinner on stderr while the catalog is indexed.
func startApp(cmd *cobra.Command, flags *rootFlags) (*app, error) {
	cfg, err := config.Load(config.LoadOptions{
		ConfigFile: flags.configFile,
		DotEnv:     []string{".env"},
	})
	if err != nil {
		return nil, err
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: os.Stderr})

	busy := spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	busy.Suffix = " Indexing catalog..."
	busy.Start()
	defer busy.Stop()

	return newApp(cmd.Context(), cfg)
}
