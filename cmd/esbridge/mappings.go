package main

import (
	"context"
	"encoding/json"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/esbridge"
)

type mappingsRun func(c *esbridge.Client, ctx context.Context, models ...string) (*esbridge.MigrationReport, error)

var (
	runSetup   mappingsRun = (*esbridge.Client).SetupMappings
	runRemove  mappingsRun = (*esbridge.Client).RemoveMappings
	runMigrate mappingsRun = (*esbridge.Client).Automigrate
)

// newMappingsCommand builds a one-shot reconciliation command. Positional
// arguments name the models; none means every declared model.
func newMappingsCommand(flags *globalFlags, use, short string, run mappingsRun) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [model...]",
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, client, err := bootstrap(flags)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			defer client.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			report, runErr := run(client, ctx, args...)
			if report != nil {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				_ = enc.Encode(report)
			}
			return runErr
		},
	}
}
