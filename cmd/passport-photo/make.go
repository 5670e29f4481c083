package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/menta2k/passport-photo/internal/bootstrap"
	"github.com/menta2k/passport-photo/internal/config"
	"github.com/menta2k/passport-photo/internal/utils"
)

var makeCmd = &cobra.Command{
	Use:   "make INPUT [OUTPUT]",
	Short: "Make a passport photo or sheet from one image",
	Long: `Locates the face in INPUT, crops it to the photo ratio, replaces the
background and writes either a single photo or a sheet of copies.
The output format follows the extension of OUTPUT; without OUTPUT the
file goes to the configured output directory.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		input := args[0]
		output := outputPath(cfg, input)
		if len(args) == 2 {
			output = args[1]
		}

		logger := newLogger()
		p, closer, err := bootstrap.Build(cfg, logger)
		if err != nil {
			return err
		}
		defer closer.Close()

		res, err := p.Run(cmd.Context(), input, output)
		if err != nil {
			return err
		}
		logger.Printf("wrote %s: %d page(s), photo %dx%d, face %dx%d",
			res.Output, res.Pages, res.PhotoSize.W, res.PhotoSize.H, res.Face.W, res.Face.H)
		if !quiet {
			fmt.Println(res.Output)
		}
		return nil
	},
}

func init() {
	addPipelineFlags(makeCmd)
	rootCmd.AddCommand(makeCmd)
}

// outputPath names the output for input inside the configured directory.
func outputPath(cfg *config.Config, input string) string {
	return utils.GenerateOutputFilename(input, cfg.Output.OutputDir, cfg.Output.Prefix, cfg.Output.Suffix, cfg.Output.Format)
}
