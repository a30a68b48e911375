package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/c360/c360cfg/internal/app"
	"github.com/c360/c360cfg/internal/output"
)

var envShowSources bool

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Print the resolved environment as export lines",
	Long: `Resolve the environment and print it in the same form as ~/.c360cfg,
without writing any file.

Examples:
  # Source it directly
  eval "$(c360cfg env)"

  # See where each value came from (env, store or default)
  c360cfg env --sources`,
	RunE: runEnv,
}

func init() {
	envCmd.Flags().BoolVar(&envShowSources, "sources", false, "print the tier each derived key was resolved from")
	rootCmd.AddCommand(envCmd)
}

func runEnv(cmd *cobra.Command, _ []string) error {
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

	out := cmd.OutOrStdout()
	if !envShowSources {
		_, err = out.Write(output.RenderExport(res.Table))
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, key := range res.Table.Keys() {
		src, ok := res.Report.Sources[key]
		if !ok {
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\n", key, src)
	}
	return w.Flush()
}
