package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/daypulse/internal/app"
)

func init() {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all app data and cancel every scheduled notification",
		Run:   runClear,
	}

	cmd.Flags().Bool("yes", false, "Confirm the deletion")

	RootCmd.AddCommand(cmd)
}

func runClear(cmd *cobra.Command, args []string) {
	yes, _ := cmd.Flags().GetBool("yes")
	if !yes {
		exitErr("clear", fmt.Errorf("refusing to delete without --yes"))
	}

	a := openApp(cmd, app.Options{})
	defer a.Close()

	n, err := a.Clear(cmd.Context())
	if err != nil {
		exitErr("clear", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"removed":%d}`+"\n", n)
}
