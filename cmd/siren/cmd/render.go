package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var renderCompact bool

var renderCmd = &cobra.Command{
	Use:   "render <path>",
	Short: "Print the Siren document for a resource path",
	Example: `  siren render /courses
  siren render '/courses?status=open&limit=5'`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().BoolVar(&renderCompact, "compact", false, "print without indentation")
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, queries, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := requireMigrated(database); err != nil {
		return err
	}

	service, err := newService(cfg, database, queries)
	if err != nil {
		return err
	}
	body, _, err := service.Render(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("render %s: %w", args[0], err)
	}

	if !renderCompact {
		var buf bytes.Buffer
		if err := json.Indent(&buf, body, "", "  "); err != nil {
			return err
		}
		body = buf.Bytes()
	}
	out := cmd.OutOrStdout()
	if _, err := out.Write(body); err != nil {
		return err
	}
	_, err = fmt.Fprintln(out)
	return err
}
