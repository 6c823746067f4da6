package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/epic-swf/stfmon/internal/common"
	"github.com/epic-swf/stfmon/internal/common/app"
	"github.com/epic-swf/stfmon/internal/stfagent/configuration"
	"github.com/epic-swf/stfmon/internal/stfagent/repository"
)

func main() {
	common.ConfigureLogging()
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stfmonctl",
		Short: "Operator tooling for the STF fast-monitoring pipeline",
	}
	cmd.PersistentFlags().StringSlice("config", []string{}, "Path to application configuration file")
	cmd.AddCommand(statusCmd())
	return cmd
}

func statusCmd() *cobra.Command {
	var runNumber int32
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show per-run file counts by status",
		Long: "Shows how many files each run has in every status, including failed files " +
			"and files stalled in processed, so backlog is visible without reading agent logs.",
		RunE: func(cmd *cobra.Command, args []string) error {
			userSpecifiedConfigs, err := cmd.Flags().GetStringSlice("config")
			if err != nil {
				return err
			}
			var config configuration.StfAgentConfiguration
			common.LoadConfig(&config, "./config/stfagent", userSpecifiedConfigs)

			repo, err := repository.OpenStatusRepository(config.Postgres)
			if err != nil {
				return err
			}

			var filter *int32
			if cmd.Flags().Changed("run") {
				filter = &runNumber
			}
			counts, err := repo.StatusCounts(app.CreateContextWithShutdown(), filter)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tREGISTERED\tPROCESSING\tPROCESSED\tFAILED\tDONE\tTOTAL\tBYTES")
			for _, row := range counts {
				fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
					row.RunNumber, row.Registered, row.Processing, row.Processed,
					row.Failed, row.Done, row.TotalFiles, row.TotalBytes)
			}
			return w.Flush()
		},
	}
	cmd.Flags().Int32Var(&runNumber, "run", 0, "Restrict output to a single run number")
	return cmd
}
