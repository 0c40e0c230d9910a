package cmd

import (
	"encoding/json"
	"fmt"
	"image"

	"balancecam/calibration"
	"balancecam/detection"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the effective configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var explainImage string

var configExplainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Report which fiducial check rejects each contour of a picture",
	RunE: func(cmd *cobra.Command, args []string) error {
		frame, err := calibration.LoadStill(explainImage, 0)
		if err != nil {
			return err
		}
		defer frame.Close()

		locator := detection.NewLocator(cfg.Fiducial)
		defer locator.Close()

		full := image.Rect(0, 0, frame.Cols(), frame.Rows())
		counts := make(map[detection.CheckID]int)
		verdicts := locator.Explain(frame, full)
		for _, v := range verdicts {
			counts[v.Failed]++
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%d outside contours\n", len(verdicts))
		for id := detection.CheckNone; id <= detection.CheckEllipsePoints; id++ {
			if counts[id] == 0 {
				continue
			}
			label := "rejected by " + id.String()
			if id == detection.CheckNone {
				label = "accepted"
			}
			fmt.Fprintf(out, "  %-28s %d\n", label, counts[id])
		}

		if fix, ok := locator.Locate(frame, full); ok {
			fmt.Fprintf(out, "fiducial at %v, size %v\n", fix.Center, fix.Size)
		}
		return nil
	},
}

func init() {
	configExplainCmd.Flags().StringVar(&explainImage, "image", "", "picture to analyse")
	configExplainCmd.MarkFlagRequired("image")

	configCmd.AddCommand(configShowCmd, configExplainCmd)
	rootCmd.AddCommand(configCmd)
}
