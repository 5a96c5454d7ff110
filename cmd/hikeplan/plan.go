package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gezmi/plan-hikes/model"
)

var planCmd = &cobra.Command{
	Use:   "plan <date>",
	Short: "Plans hikes for a date",
	Args:  cobra.ExactArgs(1),
	RunE:  plan,
}

var (
	planOrigins      []string
	planEarliest     string
	planSafetyMargin float64
	planMaxWalk      float64
	planMinHours     float64
	planMaxResults   int

	planColors     []string
	planMinKm      float64
	planMaxKm      float64
	planLoopOnly   bool
	planLinearOnly bool
	planMaxGain    float64
	planDifficulty string
)

func init() {
	planCmd.Flags().StringSliceVarP(&planOrigins, "origin", "o", []string{"rehovot"}, "Origin city (repeatable)")
	planCmd.Flags().StringVarP(&planEarliest, "earliest", "e", "06:00", "Earliest departure (HH:MM)")
	planCmd.Flags().Float64VarP(&planSafetyMargin, "safety-margin", "", 0, "Hours before candle lighting to be home (Fridays)")
	planCmd.Flags().Float64VarP(&planMaxWalk, "max-walk", "", 0, "Max walk between stop and trail in meters")
	planCmd.Flags().Float64VarP(&planMinHours, "min-hours", "", 0, "Minimum hours of actual hiking")
	planCmd.Flags().IntVarP(&planMaxResults, "max-results", "n", 0, "Max plans per origin")

	planCmd.Flags().StringSliceVarP(&planColors, "color", "c", nil, "Trail marking color (repeatable)")
	planCmd.Flags().Float64VarP(&planMinKm, "min-km", "", 0, "Minimum trail length in km")
	planCmd.Flags().Float64VarP(&planMaxKm, "max-km", "", 0, "Maximum trail length in km")
	planCmd.Flags().BoolVarP(&planLoopOnly, "loop-only", "", false, "Only loop trails")
	planCmd.Flags().BoolVarP(&planLinearOnly, "linear-only", "", false, "Only linear trails")
	planCmd.Flags().Float64VarP(&planMaxGain, "max-gain", "", 0, "Maximum elevation gain in meters")
	planCmd.Flags().StringVarP(&planDifficulty, "difficulty", "", "", "Trail difficulty")

	rootCmd.AddCommand(planCmd)
}

func plan(cmd *cobra.Command, args []string) error {
	date, err := parseDate(args[0])
	if err != nil {
		return err
	}

	earliestSecs := 0
	if planEarliest != "" {
		var h, m int
		if _, err := fmt.Sscanf(planEarliest, "%d:%d", &h, &m); err != nil {
			return fmt.Errorf("'%s' is not on form HH:MM", planEarliest)
		}
		earliestSecs = h*3600 + m*60
	}

	query := model.HikeQuery{
		Origin:            planOrigins[0],
		Date:              date,
		SafetyMarginHours: planSafetyMargin,
		MaxWalkToTrailM:   planMaxWalk,
		MinHikingHours:    planMinHours,
		MaxResults:        planMaxResults,
		EarliestDepSecs:   earliestSecs,
		Colors:            planColors,
		MinDistanceKm:     planMinKm,
		MaxDistanceKm:     planMaxKm,
		LoopOnly:          planLoopOnly,
		LinearOnly:        planLinearOnly,
		MaxElevationGainM: planMaxGain,
		Difficulty:        planDifficulty,
	}

	planner, err := plannerFor(cmd.Context(), query)
	if err != nil {
		return err
	}

	for _, origin := range planOrigins {
		plans, err := planner.PlanHikesForOrigin(origin)
		if err != nil {
			return err
		}

		fmt.Printf("=== %s: %d plans, back by %s ===\n",
			origin, len(plans), planner.Deadline().Format("15:04"))
		for i, p := range plans {
			printPlan(i+1, p)
		}
	}

	return nil
}

func printPlan(n int, p *model.HikePlan) {
	kind := "out-and-back"
	if p.HikeSegment.IsLoop {
		kind = "loop"
	}
	if p.HikeSegment.IsThroughHike {
		kind = "through-hike"
	}

	fmt.Printf("%d. %s (%s", n, p.Trail.Name, kind)
	if len(p.Trail.Colors) > 0 {
		fmt.Printf(", %s", strings.Join(p.Trail.Colors, "/"))
	}
	fmt.Printf(")\n")

	for _, leg := range p.OutboundLegs {
		printLeg("out", leg)
	}

	fmt.Printf("   hike %s-%s: %.1f km in %.1f h",
		p.HikeSegment.HikeStart.Format("15:04"),
		p.HikeSegment.HikeEnd.Format("15:04"),
		p.HikeSegment.EstimatedDistanceKm,
		p.HikeSegment.HikingHours)
	if p.HikeSegment.ElevationGainM > 0 {
		fmt.Printf(", %.0f m up", p.HikeSegment.ElevationGainM)
	}
	fmt.Printf("\n")

	for _, leg := range p.ReturnLegs {
		printLeg("back", leg)
	}

	fmt.Printf("   door to door %.1f h, hiking ratio %.0f%%\n",
		p.TotalHours, p.HikingRatio*100)

	for _, w := range p.Warnings {
		fmt.Printf("   warning: %s\n", w)
	}
}

func printLeg(dir string, leg model.BusLeg) {
	fmt.Printf("   %s %s bus %s: %s -> %s (%d min)\n",
		dir,
		leg.Departure.Format("15:04"),
		leg.Line,
		leg.FromStopName,
		leg.ToStopName,
		int(leg.Duration().Minutes()))
}
