package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	hikeplan "github.com/gezmi/plan-hikes"
)

var stopsCmd = &cobra.Command{
	Use:   "stops <date> <city> [radius_m]",
	Short: "Lists stops near an origin city on a date",
	Args:  cobra.RangeArgs(2, 3),
	RunE:  stops,
}

func init() {
	rootCmd.AddCommand(stopsCmd)
}

func stops(cmd *cobra.Command, args []string) error {
	date, err := parseDate(args[0])
	if err != nil {
		return err
	}

	city, found := hikeplan.ResolveCity(args[1])
	if !found {
		return fmt.Errorf("unknown city '%s'", args[1])
	}

	radius := hikeplan.StopSearchRadiusM
	if len(args) == 3 {
		radius, err = strconv.ParseFloat(args[2], 64)
		if err != nil || radius <= 0 {
			return fmt.Errorf("invalid radius '%s'", args[2])
		}
	}

	store, err := openStore(cmd.Context(), date)
	if err != nil {
		return err
	}
	defer store.Close()

	nearby, err := store.StopsWithin(city.Lat, city.Lon, radius)
	if err != nil {
		return err
	}

	for _, stop := range nearby {
		fmt.Printf("%s: %s (%.5f, %.5f)\n", stop.ID, stop.Name, stop.Lat, stop.Lon)
	}

	return nil
}
