package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/daypulse/internal/app"
)

func init() {
	cmd := &cobra.Command{
		Use:   "put [value]",
		Short: "Store a raw value",
		Long:  "Store a raw value under the namespace. The value can be a positional arg or piped via stdin.",
		Run:   runPut,
	}

	cmd.Flags().StringP("key", "k", "", "Key relative to the namespace (required)")
	cmd.Flags().Bool("json", false, "Require the value to be valid JSON")
	cmd.MarkFlagRequired("key")

	kvCmd.AddCommand(cmd)
}

func runPut(cmd *cobra.Command, args []string) {
	key, _ := cmd.Flags().GetString("key")
	mustJSON, _ := cmd.Flags().GetBool("json")

	// Get value: positional arg first, then check stdin
	var value string
	if len(args) > 0 {
		value = strings.Join(args, " ")
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			value = string(b)
		}
	}

	value = strings.TrimSpace(value)
	if value == "" {
		exitErr("put", fmt.Errorf("value is required (positional arg or stdin)"))
	}
	if mustJSON && !json.Valid([]byte(value)) {
		exitErr("put", fmt.Errorf("value is not valid JSON"))
	}

	a := openApp(cmd, app.Options{})
	defer a.Close()

	if err := a.NS.Set(cmd.Context(), key, []byte(value)); err != nil {
		exitErr("put", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"key":%q}`+"\n", a.NS.Key(key))
}
