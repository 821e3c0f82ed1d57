package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/daypulse/internal/app"
	"github.com/rcliao/daypulse/internal/model"
)

// dailyStatus summarizes today's unlock state.
type dailyStatus struct {
	Today     string            `json:"today"`
	Event     *model.DailyEvent `json:"event,omitempty"`
	Revealed  bool              `json:"revealed"`
	AdWatches int               `json:"ad_watches"`
	Threshold int               `json:"threshold"`
	Unlocked  bool              `json:"unlocked"`
}

func init() {
	dailyCmd := &cobra.Command{
		Use:   "daily",
		Short: "Today's event and reveal state",
	}

	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Print today's cached event",
		Run:   runDailyGet,
	}

	setCmd := &cobra.Command{
		Use:   "set [payload-json]",
		Short: "Cache today's event",
		Args:  cobra.MaximumNArgs(1),
		Run:   runDailySet,
	}
	setCmd.Flags().String("id", "", "Event id (required)")
	setCmd.MarkFlagRequired("id")

	revealCmd := &cobra.Command{
		Use:   "reveal",
		Short: "Mark today's event as revealed",
		Run:   runDailyReveal,
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show today's event, reveal state and ad-watch progress",
		Run:   runDailyStatus,
	}

	dailyCmd.AddCommand(getCmd, setCmd, revealCmd, statusCmd)
	RootCmd.AddCommand(dailyCmd)
}

func runDailyGet(cmd *cobra.Command, args []string) {
	a := openApp(cmd, app.Options{})
	defer a.Close()

	ev, ok := a.Cache.DailyEvent(cmd.Context())
	if !ok {
		exitErr("daily get", fmt.Errorf("no event cached for %s", a.Cache.Today()))
	}
	printJSON(cmd, ev)
}

func runDailySet(cmd *cobra.Command, args []string) {
	id, _ := cmd.Flags().GetString("id")
	ev := model.DailyEvent{ID: id}
	if len(args) > 0 {
		payload := strings.TrimSpace(args[0])
		if !json.Valid([]byte(payload)) {
			exitErr("daily set", fmt.Errorf("payload is not valid JSON"))
		}
		ev.Payload = json.RawMessage(payload)
	}

	a := openApp(cmd, app.Options{})
	defer a.Close()

	a.Cache.SetDailyEvent(cmd.Context(), ev)
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"id":%q,"date":%q}`+"\n", id, a.Cache.Today())
}

func runDailyReveal(cmd *cobra.Command, args []string) {
	a := openApp(cmd, app.Options{})
	defer a.Close()

	a.Cache.MarkRevealed(cmd.Context())
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"date":%q}`+"\n", a.Cache.Today())
}

func runDailyStatus(cmd *cobra.Command, args []string) {
	a := openApp(cmd, app.Options{})
	defer a.Close()

	ctx := cmd.Context()
	st := dailyStatus{
		Today:     a.Cache.Today(),
		Revealed:  a.Cache.IsRevealed(ctx),
		AdWatches: a.Cache.AdWatchCount(ctx),
		Threshold: a.AdWatchThreshold(),
		Unlocked:  a.Cache.Unlocked(ctx, a.AdWatchThreshold()),
	}
	if ev, ok := a.Cache.DailyEvent(ctx); ok {
		st.Event = &ev
	}
	printJSON(cmd, st)
}
