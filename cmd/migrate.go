package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the venues table and its indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, cfg, "migrate")
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Pipeline.InitStorage(ctx); err != nil {
			return err
		}
		zap.L().Info("storage ready", zap.String("driver", cfg.Store.Driver))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
