package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/daypulse/internal/app"
)

// entryView renders a stored value as text rather than base64.
type entryView struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List keys under the namespace",
		Run:   runList,
	}

	cmd.Flags().StringP("prefix", "p", "", "Relative key prefix")
	cmd.Flags().IntP("limit", "l", 100, "Max results (0 for all)")
	cmd.Flags().Bool("keys-only", false, "Only output keys")

	kvCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	prefix, _ := cmd.Flags().GetString("prefix")
	limit, _ := cmd.Flags().GetInt("limit")
	keysOnly, _ := cmd.Flags().GetBool("keys-only")

	a := openApp(cmd, app.Options{})
	defer a.Close()

	entries, err := a.NS.List(cmd.Context(), prefix)
	if err != nil {
		exitErr("list", err)
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	if keysOnly {
		for _, e := range entries {
			fmt.Fprintln(cmd.OutOrStdout(), e.Key)
		}
		return
	}

	views := make([]entryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, entryView{Key: e.Key, Value: string(e.Value), UpdatedAt: e.UpdatedAt})
	}
	printJSON(cmd, views)
}
