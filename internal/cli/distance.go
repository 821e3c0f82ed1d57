package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rcliao/daypulse/internal/geo"
	"github.com/rcliao/daypulse/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "distance <lat1> <lon1> <lat2> <lon2>",
		Short: "Great-circle distance in meters between two points",
		Args:  cobra.ExactArgs(4),
		Run:   runDistance,
	}

	cmd.Flags().Float64("radius", 0, "Also report whether the second point lies within this many meters of the first")

	RootCmd.AddCommand(cmd)
}

func runDistance(cmd *cobra.Command, args []string) {
	var v [4]float64
	for i, s := range args {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			exitErr("distance", fmt.Errorf("argument %d: %w", i+1, err))
		}
		v[i] = f
	}
	a := model.Coordinates{Latitude: v[0], Longitude: v[1]}
	b := model.Coordinates{Latitude: v[2], Longitude: v[3]}
	for _, c := range []model.Coordinates{a, b} {
		if err := geo.ValidateCoordinates(c); err != nil {
			exitErr("distance", err)
		}
	}

	d := geo.Distance(a, b)
	radius, _ := cmd.Flags().GetFloat64("radius")
	if radius > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), `{"meters":%.1f,"inside":%t}`+"\n", d, d <= radius)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"meters":%.1f}`+"\n", d)
}
