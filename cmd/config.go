/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	Long: `Print the settings groundlink would run with after merging defaults, the
config file, GROUNDLINK_* environment variables and flags. The output is a
valid groundlink.yaml.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(nil)

		if used := settings.ConfigFileUsed(); used != "" {
			fmt.Fprintf(os.Stderr, "# from %s\n", used)
		}

		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		enc.Close()
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
