package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/esbridge"
	"github.com/kailas-cloud/esbridge/internal/config"
	logpkg "github.com/kailas-cloud/esbridge/internal/logger"
	"github.com/kailas-cloud/esbridge/internal/version"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configFile string
	env        string
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "esbridge",
		Short:         "Model-level CRUD and mapping management over Elasticsearch and OpenSearch",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "config file path (default: config/<env>.yaml)")
	root.PersistentFlags().StringVar(&flags.env, "env", "", "environment name (default: $ESBRIDGE_ENV or local)")

	root.AddCommand(
		newServeCommand(flags),
		newMappingsCommand(flags, "setup-mappings", "Create indices and put declared mappings", runSetup),
		newMappingsCommand(flags, "remove-mappings", "Delete the types of declared models", runRemove),
		newMappingsCommand(flags, "migrate", "Remove then set up declared mappings", runMigrate),
		newVersionCommand(),
	)
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

// bootstrap loads configuration, builds the logger and connects the client.
func bootstrap(flags *globalFlags) (config.Config, *zap.Logger, *esbridge.Client, error) {
	env := flags.env
	if env == "" {
		env = config.GetEnv()
	}

	var (
		cfg config.Config
		err error
	)
	if flags.configFile != "" {
		cfg, err = config.LoadFile(flags.configFile)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return config.Config{}, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return config.Config{}, nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	client, err := esbridge.FromConfig(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return config.Config{}, nil, nil, fmt.Errorf("failed to create client: %w", err)
	}

	logger.Info("esbridge initialized",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.String("driver", cfg.Engine.Driver),
		zap.Strings("hosts", cfg.Engine.Hosts),
		zap.Strings("models", client.Models()),
		zap.Bool("migration_lock", cfg.Lock.Enabled()),
	)
	return cfg, logger, client, nil
}
