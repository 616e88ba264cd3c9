package main

import "github.com/spf13/cobra"

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate counts over stored venues",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		format, _ := cmd.Flags().GetString("format")
		if err := checkFormat(format); err != nil {
			return err
		}

		env, err := initEnv(ctx, cfg, "query")
		if err != nil {
			return err
		}
		defer env.Close()

		stats, err := env.Pipeline.GetStats(ctx)
		if err != nil {
			return err
		}
		if format == formatTable {
			return writeStatsTable(cmd.OutOrStdout(), stats)
		}
		return writeOutput(cmd.OutOrStdout(), format, stats)
	},
}

func init() {
	statsCmd.Flags().String("format", formatTable, "output format: table, json or yaml")
	rootCmd.AddCommand(statsCmd)
}
