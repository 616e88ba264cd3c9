package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/venue-ingest/internal/model"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "List stored venues matching filters",
	Example: `  venue-ingest query --city Bangkok --min-rating 4.5 --limit 10
  venue-ingest query --category cafe --delivery=true --format yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		filter, err := parseQueryFilter(cmd)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		if err := checkFormat(format); err != nil {
			return err
		}

		env, err := initEnv(ctx, cfg, "query")
		if err != nil {
			return err
		}
		defer env.Close()

		venues, err := env.Pipeline.QueryEntities(ctx, filter)
		if err != nil {
			return err
		}
		if format == formatTable {
			return writeVenueTable(cmd.OutOrStdout(), venues)
		}
		return writeOutput(cmd.OutOrStdout(), format, venues)
	},
}

// parseQueryFilter maps filter flags onto a VenueFilter. Unset numeric and
// boolean flags leave their predicate off.
func parseQueryFilter(cmd *cobra.Command) (model.VenueFilter, error) {
	var f model.VenueFilter
	flags := cmd.Flags()

	f.City, _ = flags.GetString("city")
	f.Category, _ = flags.GetString("category")

	if flags.Changed("min-rating") {
		v, err := flags.GetFloat64("min-rating")
		if err != nil {
			return f, eris.Wrap(err, "parse --min-rating")
		}
		f.MinRating = &v
	}
	if flags.Changed("price-tier") {
		v, err := flags.GetInt("price-tier")
		if err != nil {
			return f, eris.Wrap(err, "parse --price-tier")
		}
		f.PriceTier = &v
	}
	if flags.Changed("delivery") {
		v, err := flags.GetBool("delivery")
		if err != nil {
			return f, eris.Wrap(err, "parse --delivery")
		}
		f.DeliveryAvailable = &v
	}

	limit, _ := flags.GetInt("limit")
	if limit < 0 {
		return f, eris.Errorf("--limit must be >= 0, got %d", limit)
	}
	f.Limit = limit
	return f, nil
}

func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().String("city", "", "city substring, case-insensitive")
	cmd.Flags().String("category", "", "category substring, case-insensitive")
	cmd.Flags().Float64("min-rating", 0, "minimum rating")
	cmd.Flags().Int("price-tier", 0, "exact price tier")
	cmd.Flags().Bool("delivery", false, "match delivery availability")
	cmd.Flags().Int("limit", 0, "maximum rows (0 = all)")
	cmd.Flags().String("format", formatTable, "output format: table, json or yaml")
}

func init() {
	addQueryFlags(queryCmd)
	rootCmd.AddCommand(queryCmd)
}
