package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"repairshop/internal/catalog"
	"repairshop/internal/model"
	"repairshop/internal/schedule"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newSlotsCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "slots <location> <YYYY-MM-DD>",
		Short: "Print the slot schedule of a location for a date, ignoring bookings",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.NewFileLoader(zerolog.Nop()).Load(cmd.Context(), path)
			if err != nil {
				return err
			}
			return printSlots(cmd.OutOrStdout(), cat, args[0], args[1])
		},
	}
	cmd.Flags().StringVar(&path, "catalog", "data/locations.yaml", "path to the location catalog")
	return cmd
}

func printSlots(w io.Writer, cat *catalog.Catalog, slug, date string) error {
	loc, ok := cat.Lookup(slug)
	if !ok {
		return fmt.Errorf("unknown location %q", slug)
	}

	day, err := time.ParseInLocation(model.DateLayout, date, cat.Timezone())
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", date, err)
	}

	slots := schedule.SlotsForDate(loc.Hours, day)
	if len(slots) == 0 {
		_, err = fmt.Fprintf(w, "%s is closed on %s\n", loc.Name, day.Format("Monday, 2006-01-02"))
		return err
	}
	_, err = fmt.Fprintf(w, "%s, %s: %s\n", loc.Name, day.Format("Monday, 2006-01-02"), strings.Join(slots, " "))
	return err
}
