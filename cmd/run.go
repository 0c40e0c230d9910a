package cmd

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"balancecam/overlay"
	"balancecam/pipeline"
	"balancecam/pkg/video"

	"github.com/spf13/cobra"
	"gocv.io/x/gocv"
)

const (
	keySpace = 32
	keyEsc   = 27
	keyS     = 's'
)

var (
	showSearch  bool
	snapshotDir string
)

var runCmd = &cobra.Command{
	Use:   "run [video]",
	Short: "Play a video with live annotations (space pauses, s saves, Esc quits)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := videoPath(args)
		if err != nil {
			return err
		}

		src, err := video.OpenFile(path, true)
		if err != nil {
			return err
		}
		defer src.Close()

		proc := pipeline.NewProcessor(cfg)
		defer proc.Close()

		renderer, err := overlay.NewRenderer(cfg)
		if err != nil {
			return err
		}
		renderer.ShowSearch = showSearch

		window := gocv.NewWindow("balancecam")
		defer window.Close()

		pacer := video.NewPacer(cfg.Video.FPS)
		frame := gocv.NewMat()
		defer frame.Close()

		paused := false
		wait := 1
		for window.IsOpen() {
			select {
			case <-cmd.Context().Done():
				return nil
			default:
			}

			if !paused {
				if err := src.Next(&frame); err != nil {
					if errors.Is(err, io.EOF) {
						return nil
					}
					if errors.Is(err, video.ErrInvalidFrame) {
						logger.Warn().Err(err).Msg("Skipping frame")
						continue
					}
					return err
				}

				reading, err := proc.Process(frame)
				if err != nil {
					logger.Warn().Err(err).Int("frame", proc.Frames()).Msg("Frame rejected")
					continue
				}
				renderer.Draw(&frame, reading)
				wait = pacer.WaitMillis()
				window.IMShow(frame)
			}

			switch key := window.WaitKey(wait); key {
			case keySpace:
				paused = !paused
				logger.Info().Bool("paused", paused).Msg("Playback toggled")
			case keyEsc:
				return nil
			case keyS:
				name := filepath.Join(snapshotDir, fmt.Sprintf("balancecam-%s.png", time.Now().Format("20060102-150405.000")))
				if err := overlay.Snapshot(frame, name); err != nil {
					logger.Error().Err(err).Msg("Snapshot failed")
				} else {
					logger.Info().Str("path", name).Msg("Snapshot saved")
				}
			case -1:
			default:
				logger.Debug().Int("key", key).Msg("Unhandled key")
			}
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&showSearch, "show-search", false, "outline the fiducial search region")
	runCmd.Flags().StringVar(&snapshotDir, "snapshots", ".", "directory for snapshots taken with 's'")
	rootCmd.AddCommand(runCmd)
}
