package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/daypulse/internal/app"
	"github.com/rcliao/daypulse/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored entries as JSON",
		Long:  "Export every entry under the app namespace as JSON. Narrow it with --prefix.",
		Run:   runExport,
	}

	cmd.Flags().StringP("prefix", "p", "", "Relative key prefix")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	prefix, _ := cmd.Flags().GetString("prefix")

	a := openApp(cmd, app.Options{})
	defer a.Close()

	entries, err := store.ExportAll(cmd.Context(), a.Store, a.NS.Key(prefix))
	if err != nil {
		exitErr("export", err)
	}

	printJSON(cmd, entries)
}
