package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"balancecam/pipeline"
	"balancecam/pkg/video"
	"balancecam/record"
	"balancecam/tracking"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"gocv.io/x/gocv"
)

var (
	dbPath    string
	maxFrames int
	noRecord  bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [video]",
	Short: "Process a video once without display and record the readings",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := videoPath(args)
		if err != nil {
			return err
		}

		src, err := video.OpenFile(path, false)
		if err != nil {
			return err
		}
		defer src.Close()

		total := src.FrameCount()
		if maxFrames > 0 && (total <= 0 || maxFrames < total) {
			total = maxFrames
		}
		if total <= 0 {
			total = -1 // spinner
		}

		var rec readingSink = discardSink{}
		if !noRecord {
			store, err := record.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			sess, err := store.StartSession(cmd.Context(), path, cfg)
			if err != nil {
				return err
			}
			rec = sessionSink{store: store, session: sess}
			logger.Info().Str("session", sess.ID.String()).Str("db", dbPath).Msg("Recording readings")
		}

		proc := pipeline.NewProcessor(cfg)
		defer proc.Close()

		bar := progressbar.NewOptions(total,
			progressbar.OptionSetDescription("Scanning "+path),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
		)

		summary, err := scanFrames(cmd.Context(), src, proc, rec, maxFrames, bar.Add)
		bar.Finish()
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return err
		}

		fmt.Fprint(cmd.OutOrStdout(), summary)
		return nil
	},
}

// readingSink receives every processed reading.
type readingSink interface {
	Record(ctx context.Context, r pipeline.Reading) error
}

type discardSink struct{}

func (discardSink) Record(context.Context, pipeline.Reading) error { return nil }

type sessionSink struct {
	store   *record.Store
	session record.Session
}

func (s sessionSink) Record(ctx context.Context, r pipeline.Reading) error {
	return s.store.Record(ctx, s.session.ID, r)
}

// scanSummary counts what a scan observed.
type scanSummary struct {
	Frames        int
	Rejected      int
	Searches      int
	ValidFrames   int
	BeamFound     int
	FreshMarkFits map[string]int
	markOrder     []string
}

func (s scanSummary) String() string {
	out := fmt.Sprintf("frames:      %d (%d rejected)\n", s.Frames, s.Rejected)
	out += fmt.Sprintf("fiducial:    %d valid, %d searches\n", s.ValidFrames, s.Searches)
	out += fmt.Sprintf("beam:        %d found\n", s.BeamFound)
	for _, name := range s.markOrder {
		out += fmt.Sprintf("mark %-7s %d fresh fits\n", name+":", s.FreshMarkFits[name])
	}
	return out
}

// scanFrames processes frames until the source ends, the context is
// cancelled or limit frames (when positive) have been read.
func scanFrames(ctx context.Context, src video.Source, proc *pipeline.Processor, sink readingSink, limit int, progress func(int) error) (scanSummary, error) {
	summary := scanSummary{FreshMarkFits: make(map[string]int)}

	frame := gocv.NewMat()
	defer frame.Close()

	for limit <= 0 || summary.Frames < limit {
		select {
		case <-ctx.Done():
			logger.Warn().Int("frames", summary.Frames).Msg("Scan interrupted")
			return summary, nil
		default:
		}

		err := src.Next(&frame)
		if errors.Is(err, io.EOF) {
			break
		}
		summary.Frames++
		if progress != nil {
			progress(1)
		}
		if err != nil {
			if errors.Is(err, video.ErrInvalidFrame) {
				summary.Rejected++
				continue
			}
			return summary, err
		}

		reading, err := proc.Process(frame)
		if err != nil {
			summary.Rejected++
			logger.Debug().Err(err).Int("frame", summary.Frames-1).Msg("Frame rejected")
			continue
		}

		if reading.Fiducial.Searched {
			summary.Searches++
		}
		if reading.Fiducial.State.Mode == tracking.ModeValid {
			summary.ValidFrames++
		}
		if reading.BeamFound {
			summary.BeamFound++
		}
		for _, line := range reading.Marks {
			if _, seen := summary.FreshMarkFits[line.Name]; !seen {
				summary.markOrder = append(summary.markOrder, line.Name)
				summary.FreshMarkFits[line.Name] = 0
			}
			if line.Fresh {
				summary.FreshMarkFits[line.Name]++
			}
		}

		if err := sink.Record(ctx, reading); err != nil {
			return summary, err
		}
	}
	return summary, nil
}

func init() {
	scanCmd.Flags().StringVar(&dbPath, "db", "balancecam.db", "sqlite database for readings")
	scanCmd.Flags().IntVar(&maxFrames, "max-frames", 0, "stop after this many frames (0 = whole video)")
	scanCmd.Flags().BoolVar(&noRecord, "no-record", false, "do not write readings to the database")
	rootCmd.AddCommand(scanCmd)
}
