package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/daypulse/internal/app"
	"github.com/rcliao/daypulse/internal/model"
)

func init() {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Permanently cached user profile",
	}

	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Print the cached profile",
		Run:   runProfileGet,
	}

	setCmd := &cobra.Command{
		Use:   "set <payload-json>",
		Short: "Cache the user profile",
		Args:  cobra.ExactArgs(1),
		Run:   runProfileSet,
	}
	setCmd.Flags().String("id", "", "Profile id (required)")
	setCmd.MarkFlagRequired("id")

	profileCmd.AddCommand(getCmd, setCmd)
	RootCmd.AddCommand(profileCmd)
}

func runProfileGet(cmd *cobra.Command, args []string) {
	a := openApp(cmd, app.Options{})
	defer a.Close()

	p, ok := a.Cache.UserProfile(cmd.Context())
	if !ok {
		exitErr("profile get", fmt.Errorf("no profile cached"))
	}
	printJSON(cmd, p)
}

func runProfileSet(cmd *cobra.Command, args []string) {
	id, _ := cmd.Flags().GetString("id")
	if !json.Valid([]byte(args[0])) {
		exitErr("profile set", fmt.Errorf("payload is not valid JSON"))
	}

	a := openApp(cmd, app.Options{})
	defer a.Close()

	a.Cache.SetUserProfile(cmd.Context(), model.UserProfile{ID: id, Payload: json.RawMessage(args[0])})
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"id":%q}`+"\n", id)
}
