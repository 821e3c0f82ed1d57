package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/daypulse/internal/app"
	"github.com/rcliao/daypulse/internal/geo"
	"github.com/rcliao/daypulse/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the long-lived service",
		Long: "Rehydrate persisted schedules, deliver them on time and serve /healthz and /metrics until " +
			"interrupted. Schedules, location notifications and preferences changed by other commands are " +
			"picked up every DAYPULSE_SYNC_INTERVAL, or at once on SIGHUP. " +
			"With --track, the track is replayed through the geofence monitor.",
		Run: runRun,
	}

	cmd.Flags().StringP("scenario", "s", "", "Scenario YAML with regions and notifications")
	cmd.Flags().StringP("track", "t", "", "JSON-lines location track to replay")
	cmd.Flags().Duration("interval", 0, "Delay between replayed samples")

	RootCmd.AddCommand(cmd)
}

func runRun(cmd *cobra.Command, args []string) {
	scenarioPath, _ := cmd.Flags().GetString("scenario")
	trackPath, _ := cmd.Flags().GetString("track")
	interval, _ := cmd.Flags().GetDuration("interval")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts app.Options
	if trackPath != "" {
		samples, err := geo.LoadTrackFile(trackPath)
		if err != nil {
			exitErr("load track", err)
		}
		opts.Source = geo.NewReplaySource(nil, samples, interval)
	}

	cmd.SetContext(ctx)
	a := openApp(cmd, opts)
	defer a.Close()

	log := a.Logger()
	a.Scheduler.RegisterTapHandler(func(req model.NotificationRequest) {
		log.Info("notification tapped", zap.String("id", req.ID), zap.String("action_url", req.ActionURL))
	})

	if scenarioPath != "" {
		sc, err := app.LoadScenarioFile(scenarioPath)
		if err != nil {
			exitErr("load scenario", err)
		}
		if err := a.Apply(ctx, sc); err != nil {
			exitErr("apply scenario", err)
		}
	}
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				res := a.Scheduler.Sync(ctx)
				log.Info("store synced", zap.Int("armed", res.Armed), zap.Int("disarmed", res.Disarmed), zap.Int("dropped", res.Dropped))
			}
		}
	}()

	if trackPath != "" {
		go func() {
			if err := a.Replay(ctx, nil); err != nil && !errors.Is(err, context.Canceled) {
				log.Warn("replay stopped", zap.Error(err))
			}
		}()
	}

	if err := a.Run(ctx); err != nil {
		exitErr("run", err)
	}
}
