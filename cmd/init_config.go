package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/c360/c360cfg/internal/config"
)

var initConfigForce bool

var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write a commented default settings file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := settingsPath()
		if _, err := os.Stat(path); err == nil && !initConfigForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.WriteDefaultConfig(path); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var setCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting in the settings file",
	Long: `Change one setting in the settings file, keeping its comments.

Examples:
  c360cfg set store /etc/c360/store.yaml
  c360cfg set tracing.enabled true
  c360cfg set watch.debounce 5s`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := settingsPath()
		if err := config.SaveSetting(path, args[0], args[1]); err != nil {
			return fmt.Errorf("saving %s: %w", args[0], err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s = %s\n", path, args[0], args[1])
		return nil
	},
}

func init() {
	initConfigCmd.Flags().BoolVarP(&initConfigForce, "force", "f", false, "overwrite an existing settings file")
	rootCmd.AddCommand(initConfigCmd)
	rootCmd.AddCommand(setCmd)
}

// settingsPath is the --config file, or the default location.
func settingsPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultSettingsPath()
}
