package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/daypulse/internal/app"
)

func init() {
	adCmd := &cobra.Command{
		Use:   "adwatch",
		Short: "Today's ad-watch counter",
	}

	recordCmd := &cobra.Command{
		Use:   "record",
		Short: "Count one watched ad",
		Run:   runAdWatchRecord,
	}

	countCmd := &cobra.Command{
		Use:   "count",
		Short: "Print today's ad-watch count",
		Run:   runAdWatchCount,
	}

	adCmd.AddCommand(recordCmd, countCmd)
	RootCmd.AddCommand(adCmd)
}

func runAdWatchRecord(cmd *cobra.Command, args []string) {
	a := openApp(cmd, app.Options{})
	defer a.Close()

	n := a.Cache.RecordAdWatch(cmd.Context())
	fmt.Fprintf(cmd.OutOrStdout(), `{"count":%d,"threshold":%d,"unlocked":%t}`+"\n",
		n, a.AdWatchThreshold(), a.Cache.Unlocked(cmd.Context(), a.AdWatchThreshold()))
}

func runAdWatchCount(cmd *cobra.Command, args []string) {
	a := openApp(cmd, app.Options{})
	defer a.Close()

	fmt.Fprintf(cmd.OutOrStdout(), `{"date":%q,"count":%d}`+"\n", a.Cache.Today(), a.Cache.AdWatchCount(cmd.Context()))
}
