package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/menta2k/passport-photo/internal/bootstrap"
	"github.com/menta2k/passport-photo/pkg/processing"
)

var probeDebug string

var probeCmd = &cobra.Command{
	Use:   "probe INPUT",
	Short: "Locate faces and print the planned crop as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		// probing never composites
		cfg.Background.Replace = false
		cfg.Upscale.Factor = 1

		logger := newLogger()
		p, closer, err := bootstrap.Build(cfg, logger)
		if err != nil {
			return err
		}
		defer closer.Close()

		res, img, err := p.Probe(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if probeDebug != "" {
			proc := processing.NewProcessor()
			overlay := proc.CreateDebugOverlay(img, res.Faces, res.Face, res.Crop)
			if err := proc.SaveImage(overlay, probeDebug, processing.FormatFromPath(probeDebug), 92, false); err != nil {
				return err
			}
			logger.Printf("wrote %s", probeDebug)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	addPipelineFlags(probeCmd)
	probeCmd.Flags().StringVar(&probeDebug, "debug", "", "write an overlay of faces and crop to this image file")
	rootCmd.AddCommand(probeCmd)
}
