package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFormat string

var configCmd = &cobra.Command{
	Use:   "config [FILE]",
	Short: "Print the effective configuration or write it to FILE",
	Long: `Prints the configuration that make and batch would use: defaults,
overlaid with --config and any flags. With FILE the configuration is
written there instead, as YAML or JSON by extension.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			fmt.Fprintln(os.Stderr, "warning:", err)
		}

		if len(args) == 1 {
			if err := cfg.SaveToFile(args[0]); err != nil {
				return err
			}
			newLogger().Printf("wrote %s", args[0])
			return nil
		}

		data, err := cfg.Marshal("config." + configFormat)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

func init() {
	addPipelineFlags(configCmd)
	configCmd.Flags().StringVar(&configFormat, "output", "yaml", "stdout format: yaml or json")
	rootCmd.AddCommand(configCmd)
}
