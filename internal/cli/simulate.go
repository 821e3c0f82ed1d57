package cli

import (
	"context"
	"errors"
	"sync"

	"github.com/spf13/cobra"

	"github.com/rcliao/daypulse/internal/app"
	"github.com/rcliao/daypulse/internal/geo"
	"github.com/rcliao/daypulse/internal/model"
	"github.com/rcliao/daypulse/internal/notify"
	"github.com/rcliao/daypulse/internal/store"
)

// simulation is the report printed by simulate.
type simulation struct {
	Samples     int                    `json:"samples"`
	Transitions []transitionView       `json:"transitions"`
	Outcomes    []notify.Outcome       `json:"outcomes"`
	Regions     []model.GeofenceRegion `json:"regions"`
}

type transitionView struct {
	Region     string           `json:"region"`
	Transition model.Transition `json:"transition"`
	Latitude   float64          `json:"latitude"`
	Longitude  float64          `json:"longitude"`
	DistanceM  float64          `json:"distance_m"`
}

func init() {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay a location track through geofences and notifications",
		Long: "Register the regions and location notifications of a scenario file, replay a JSON-lines " +
			"track through the geofence monitor and print every transition and delivery outcome.",
		Run: runSimulate,
	}

	cmd.Flags().StringP("scenario", "s", "", "Scenario YAML with regions and notifications (required)")
	cmd.Flags().StringP("track", "t", "", "JSON-lines location track (required)")
	cmd.Flags().Duration("interval", 0, "Delay between samples")
	cmd.Flags().Bool("persist", false, "Use the configured database instead of an in-memory store")
	cmd.MarkFlagRequired("scenario")
	cmd.MarkFlagRequired("track")

	RootCmd.AddCommand(cmd)
}

func runSimulate(cmd *cobra.Command, args []string) {
	scenarioPath, _ := cmd.Flags().GetString("scenario")
	trackPath, _ := cmd.Flags().GetString("track")
	interval, _ := cmd.Flags().GetDuration("interval")
	persist, _ := cmd.Flags().GetBool("persist")

	sc, err := app.LoadScenarioFile(scenarioPath)
	if err != nil {
		exitErr("load scenario", err)
	}
	samples, err := geo.LoadTrackFile(trackPath)
	if err != nil {
		exitErr("load track", err)
	}

	opts := app.Options{Source: geo.NewReplaySource(nil, samples, interval)}
	if !persist {
		opts.Store = store.NewMemoryStore()
	}
	a := openApp(cmd, opts)
	defer a.Close()

	var mu sync.Mutex
	report := simulation{Transitions: []transitionView{}, Outcomes: []notify.Outcome{}}
	a.Monitor.OnTransition(func(ev geo.Event) {
		mu.Lock()
		defer mu.Unlock()
		report.Transitions = append(report.Transitions, transitionView{
			Region:     ev.Region.ID,
			Transition: ev.Transition,
			Latitude:   ev.Sample.Latitude,
			Longitude:  ev.Sample.Longitude,
			DistanceM:  ev.Distance,
		})
	})
	a.Scheduler.OnOutcome(func(out notify.Outcome) {
		mu.Lock()
		defer mu.Unlock()
		report.Outcomes = append(report.Outcomes, out)
	})

	if err := a.Apply(cmd.Context(), sc); err != nil {
		exitErr("apply scenario", err)
	}
	err = a.Replay(cmd.Context(), func(model.LocationSample) {
		mu.Lock()
		defer mu.Unlock()
		report.Samples++
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		exitErr("replay", err)
	}

	mu.Lock()
	defer mu.Unlock()
	report.Regions = a.Monitor.Regions()
	printJSON(cmd, report)
}
