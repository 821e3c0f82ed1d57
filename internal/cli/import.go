package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/daypulse/internal/app"
	"github.com/rcliao/daypulse/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import entries from JSON",
		Long:  "Import entries from JSON on stdin. Expects the format produced by export. Keys outside the app namespace are skipped.",
		Run:   runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		exitErr("read stdin", err)
	}

	var entries []store.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		exitErr("parse json", err)
	}

	a := openApp(cmd, app.Options{})
	defer a.Close()

	kept := entries[:0]
	for _, e := range entries {
		if strings.HasPrefix(e.Key, a.NS.Prefix()) {
			kept = append(kept, e)
		}
	}

	imported, err := store.Import(cmd.Context(), a.Store, kept)
	if err != nil {
		exitErr("import", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"imported":%d,"skipped":%d}`+"\n", imported, len(entries)-len(kept))
}
