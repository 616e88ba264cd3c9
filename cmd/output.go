package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/venue-ingest/internal/model"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func checkFormat(format string) error {
	switch format {
	case formatTable, formatJSON, formatYAML:
		return nil
	default:
		return eris.Errorf("unsupported format %q (want table, json or yaml)", format)
	}
}

// writeOutput encodes v as JSON or YAML.
func writeOutput(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(v), "encode json")
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return eris.Wrap(enc.Close(), "encode yaml")
	default:
		return checkFormat(format)
	}
}

func writeVenueTable(w io.Writer, venues []model.Venue) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tCITY\tRATING\tREVIEWS\tPRICE\tDELIVERY")
	for _, v := range venues {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.1f\t%d\t%s\t%s\n",
			v.ID, v.Name, v.Category, dash(v.City), v.Rating, v.ReviewCount, priceLabel(v.PriceTier), yesNo(v.DeliveryAvailable))
	}
	fmt.Fprintf(tw, "\n%d venues\n", len(venues))
	return tw.Flush()
}

func writeStatsTable(w io.Writer, s *model.VenueStats) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "total venues:\t%d\n", s.Total)
	fmt.Fprintf(tw, "cities:\t%d\n", s.Cities)
	fmt.Fprintf(tw, "categories:\t%d\n", s.Categories)
	fmt.Fprintf(tw, "average rating:\t%.2f\n", s.AvgRating)
	fmt.Fprintf(tw, "with delivery:\t%d\n", s.DeliveryCount)
	fmt.Fprintf(tw, "with pickup:\t%d\n", s.PickupCount)
	return tw.Flush()
}

func priceLabel(tier int) string {
	if tier <= 0 {
		return "-"
	}
	return strings.Repeat("฿", tier)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
