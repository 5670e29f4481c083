package main

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/menta2k/passport-photo/internal/bootstrap"
	"github.com/menta2k/passport-photo/internal/utils"
	"github.com/menta2k/passport-photo/pkg/pipeline"
)

var batchWorkers int

var batchCmd = &cobra.Command{
	Use:   "batch INPUT_DIR [OUTPUT_DIR]",
	Short: "Process every image in a directory",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if len(args) == 2 {
			cfg.Output.OutputDir = args[1]
		}
		if cmd.Flags().Changed("workers") {
			cfg.Output.Workers = batchWorkers
		}

		files, err := utils.ListImageFiles(args[0], cfg.Input.SupportedFormats)
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", args[0], err)
		}
		if len(files) == 0 {
			return fmt.Errorf("no %v images in %s", cfg.Input.SupportedFormats, args[0])
		}

		logger := newLogger()
		p, closer, err := bootstrap.Build(cfg, logger)
		if err != nil {
			return err
		}
		defer closer.Close()

		out := cfg.Output
		outputs := utils.BatchOutputFilenames(args[0], files, out.OutputDir, out.Prefix, out.Suffix, out.Format)
		jobs := make([]pipeline.Job, len(files))
		for i, f := range files {
			jobs[i] = pipeline.Job{Input: f, Output: outputs[i]}
		}

		var barOut io.Writer = os.Stderr
		if quiet {
			barOut = io.Discard
		}
		bar := progressbar.NewOptions(len(jobs),
			progressbar.OptionSetDescription("Processing"),
			progressbar.OptionSetWriter(barOut),
			progressbar.OptionShowCount(),
		)

		results := p.RunBatch(cmd.Context(), jobs, cfg.Output.Workers, func(pipeline.BatchResult) {
			bar.Add(1)
		})
		bar.Finish()
		fmt.Fprintln(barOut)

		failed := 0
		for _, r := range results {
			if r.Err != nil {
				failed++
				logger.Printf("%s: %v", r.Job.Input, r.Err)
			}
		}
		logger.Printf("processed %d image(s), %d failed", len(results), failed)
		if failed > 0 {
			return fmt.Errorf("%d of %d images failed", failed, len(results))
		}
		return nil
	},
}

func init() {
	addPipelineFlags(batchCmd)
	batchCmd.Flags().IntVarP(&batchWorkers, "workers", "w", 2, "images processed in parallel")
	rootCmd.AddCommand(batchCmd)
}
