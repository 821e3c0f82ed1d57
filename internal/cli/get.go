package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/daypulse/internal/app"
	"github.com/rcliao/daypulse/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print the raw value of a key",
		Run:   runGet,
	}

	cmd.Flags().StringP("key", "k", "", "Key relative to the namespace (required)")
	cmd.MarkFlagRequired("key")

	kvCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	key, _ := cmd.Flags().GetString("key")

	a := openApp(cmd, app.Options{})
	defer a.Close()

	v, err := a.NS.Get(cmd.Context(), key)
	if errors.Is(err, store.ErrNotFound) {
		exitErr("get", fmt.Errorf("%s: %w", key, err))
	}
	if err != nil {
		exitErr("get", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(v))
}
