package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gezmi/plan-hikes/spatial"
	"github.com/gezmi/plan-hikes/trails"
)

var buildIndexCmd = &cobra.Command{
	Use:   "build-index [date]",
	Short: "Builds the trail index, and optionally a date's schedule index",
	Args:  cobra.RangeArgs(0, 1),
	RunE:  buildIndex,
}

func init() {
	rootCmd.AddCommand(buildIndexCmd)
}

func buildIndex(cmd *cobra.Command, args []string) error {
	trailList, err := buildTrailIndex(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("indexed %d trails\n", len(trailList))

	if len(args) == 1 {
		date, err := parseDate(args[0])
		if err != nil {
			return err
		}

		store, err := openStore(cmd.Context(), date)
		if err != nil {
			return err
		}
		defer store.Close()

		fmt.Printf("schedule index ready for %s (%d stops)\n",
			date.Format("2006-01-02"), len(store.Stops()))

		// Precompute access points with the default walk radius so
		// planning can skip the join.
		joined := spatial.JoinTrails(trailList, store.Stops(), spatial.DefaultMaxWalkM)
		if err := trails.SaveIndex(indexPath(), trailList); err != nil {
			return err
		}
		fmt.Printf("%d trails reachable by bus\n", len(joined))
	}

	return nil
}
