package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/c360/c360cfg/internal/app"
	"github.com/c360/c360cfg/internal/transfer"
)

var scriptsOnly string

var scriptsCmd = &cobra.Command{
	Use:   "scripts",
	Short: "Print the generated transfer scripts",
	Long: `Generate download_files.sh and upload_files.sh and print them instead of
writing them to the home directory.

Examples:
  c360cfg scripts
  c360cfg scripts --only download`,
	RunE: runScripts,
}

func init() {
	scriptsCmd.Flags().StringVar(&scriptsOnly, "only", "", `print a single script: "download" or "upload"`)
	rootCmd.AddCommand(scriptsCmd)
}

func runScripts(cmd *cobra.Command, _ []string) error {
	var selected func(transfer.Scripts) []transfer.Script
	switch scriptsOnly {
	case "":
		selected = func(s transfer.Scripts) []transfer.Script { return []transfer.Script{s.Download, s.Upload} }
	case "download":
		selected = func(s transfer.Scripts) []transfer.Script { return []transfer.Script{s.Download} }
	case "upload":
		selected = func(s transfer.Scripts) []transfer.Script { return []transfer.Script{s.Upload} }
	default:
		return fmt.Errorf("--only must be \"download\" or \"upload\", got %q", scriptsOnly)
	}

	cleanup, err := loadSettings()
	if err != nil {
		return err
	}
	defer cleanup()

	provider, flush, err := newTracer()
	if err != nil {
		return err
	}
	defer flush()

	res, err := app.Build(cmd.Context(), pipelineOptions(provider))
	if err != nil {
		return err
	}

	scripts := selected(res.Scripts)
	out := cmd.OutOrStdout()
	for i, s := range scripts {
		if len(scripts) > 1 {
			if i > 0 {
				_, _ = fmt.Fprintln(out)
			}
			_, _ = fmt.Fprintf(out, "==> %s <==\n", s.Name)
		}
		if _, err := out.Write(s.Bytes()); err != nil {
			return err
		}
	}
	return nil
}
