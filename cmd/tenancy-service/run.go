package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/app"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/config"
	"github.com/spf13/cobra"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <job>",
		Short: "Run one job now and print its result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := buildEngine()
			if err != nil {
				return err
			}
			defer e.app.Close()

			res, runErr := e.scheduler.RunJob(context.Background(), args[0])
			if res != nil {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				_ = enc.Encode(res)
			}
			return runErr
		},
	}
}

func jobsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "List scheduled jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := buildEngine()
			if err != nil {
				return err
			}
			defer e.app.Close()
			for _, j := range e.scheduler.Jobs() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-24s %-14s %s\n", j.Name, j.Spec, j.Timeout)
			}
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.StoreDriver != config.StoreDriverPostgres {
				fmt.Fprintln(os.Stderr, "STORE_DRIVER is not postgres; nothing to migrate")
				return nil
			}
			return app.Migrate(cfg.DBUrl)
		},
	}
}
