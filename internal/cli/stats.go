package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/daypulse/internal/app"
	"github.com/rcliao/daypulse/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	a := openApp(cmd, app.Options{})
	defer a.Close()

	stats, err := store.CollectStats(cmd.Context(), a.Store, a.NS.Prefix())
	if err != nil {
		exitErr("stats", err)
	}

	printJSON(cmd, stats)
}
