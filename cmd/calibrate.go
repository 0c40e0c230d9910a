package cmd

import (
	"fmt"
	"image"
	"strconv"
	"strings"

	"balancecam/calibration"
	"balancecam/config"
	"balancecam/overlay"

	"github.com/spf13/cobra"
)

var (
	calImage     string
	calSelection string
	calOut       string
	calPreview   string
	calMaxWidth  int
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Capture the key-zero templates from a still picture of the dial",
	RunE: func(cmd *cobra.Command, args []string) error {
		sel, err := parseRect(calSelection)
		if err != nil {
			return err
		}

		frame, err := calibration.LoadStill(calImage, calMaxWidth)
		if err != nil {
			return err
		}
		defer frame.Close()

		capture, err := calibration.CaptureTemplates(frame, sel, cfg.Fiducial.Threshold)
		if err != nil {
			return err
		}
		logger.Info().
			Float64("outer_aspect", capture.Outer.AspectRatio).
			Float64("inner_aspect", capture.Inner.AspectRatio).
			Float64("area_ratio", capture.AreaRatio()).
			Msg("Templates captured")

		updated := calibration.Apply(cfg, capture)
		if err := updated.Validate(); err != nil {
			return err
		}
		if err := config.Save(calOut, updated); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", calOut)

		if calPreview != "" {
			renderer, err := overlay.NewRenderer(updated)
			if err != nil {
				return err
			}
			renderer.DrawSelection(&frame, capture.Selection, 2)
			if err := overlay.Snapshot(frame, calPreview); err != nil {
				return err
			}
		}
		return nil
	},
}

// parseRect parses "x,y,w,h".
func parseRect(s string) (image.Rectangle, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, fmt.Errorf("selection %q: want x,y,w,h", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("selection %q: %w", s, err)
		}
		v[i] = n
	}
	if v[2] <= 0 || v[3] <= 0 {
		return image.Rectangle{}, fmt.Errorf("selection %q: empty", s)
	}
	return image.Rect(v[0], v[1], v[0]+v[2], v[1]+v[3]), nil
}

func init() {
	calibrateCmd.Flags().StringVar(&calImage, "image", "", "still picture of the dial")
	calibrateCmd.Flags().StringVar(&calSelection, "select", "", "region holding the key-zero ring as x,y,w,h")
	calibrateCmd.Flags().StringVar(&calOut, "out", "balancecam.json", "config file to write")
	calibrateCmd.Flags().StringVar(&calPreview, "preview", "", "optional picture showing the selection")
	calibrateCmd.Flags().IntVar(&calMaxWidth, "max-width", 0, "scale wider pictures down to this width")
	calibrateCmd.MarkFlagRequired("image")
	calibrateCmd.MarkFlagRequired("select")
	rootCmd.AddCommand(calibrateCmd)
}
