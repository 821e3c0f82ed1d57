package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/daypulse/internal/app"
	"github.com/rcliao/daypulse/internal/store"
)

func init() {
	nsCmd := &cobra.Command{
		Use:   "ns",
		Short: "Namespace inspection",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List key groups under the app namespace",
		Run:   runNSList,
	}

	nsCmd.AddCommand(listCmd)
	RootCmd.AddCommand(nsCmd)
}

func runNSList(cmd *cobra.Command, args []string) {
	a := openApp(cmd, app.Options{})
	defer a.Close()

	stats, err := store.CollectStats(cmd.Context(), a.Store, a.NS.Prefix())
	if err != nil {
		exitErr("list namespaces", err)
	}

	rows := stats.Namespaces
	if rows == nil {
		rows = []store.NamespaceStats{}
	}
	printJSON(cmd, rows)
}
