package main

import (
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/config"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/utils"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()
	utils.InitLogger(config.AppName)

	rootCmd := &cobra.Command{
		Use:   "tenancy-service",
		Short: "Occupancy lifecycle and billing ledger engine",
		// serve is the default so the container entrypoint needs no args
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		migrateCmd(),
		runCmd(),
		jobsCmd(),
		bookCmd(),
		noticeCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
