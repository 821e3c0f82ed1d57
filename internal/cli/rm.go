package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/daypulse/internal/app"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rm",
		Short: "Delete a key",
		Run:   runRm,
	}

	cmd.Flags().StringP("key", "k", "", "Key relative to the namespace")
	cmd.Flags().String("prefix", "", "Delete every key with this relative prefix")

	kvCmd.AddCommand(cmd)
}

func runRm(cmd *cobra.Command, args []string) {
	key, _ := cmd.Flags().GetString("key")
	prefix, _ := cmd.Flags().GetString("prefix")
	if (key == "") == (prefix == "") {
		exitErr("rm", fmt.Errorf("exactly one of --key or --prefix is required"))
	}

	a := openApp(cmd, app.Options{})
	defer a.Close()

	if key != "" {
		if err := a.NS.Remove(cmd.Context(), key); err != nil {
			exitErr("rm", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"key":%q}`+"\n", a.NS.Key(key))
		return
	}

	n, err := a.NS.ClearPrefix(cmd.Context(), prefix)
	if err != nil {
		exitErr("rm", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"prefix":%q,"removed":%d}`+"\n", a.NS.Key(prefix), n)
}
