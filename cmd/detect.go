package cmd

import (
	"fmt"
	"io"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"lpr-service/internal/db"
	"lpr-service/internal/notify"
	"lpr-service/internal/pipeline"
	"lpr-service/internal/service"
)

var (
	detectFile   string
	detectDevice int
	detectFormat string
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Process a video file or webcam without the HTTP API",
	Long: `Runs the recognition loop headless until the video ends or the command is
interrupted, then prints a summary of the plates that were recorded.`,
	RunE: runDetect,
}

func init() {
	RootCmd.AddCommand(detectCmd)

	detectCmd.Flags().StringVar(&detectFile, "file", "", "Video file to process (overrides camera.file)")
	detectCmd.Flags().IntVar(&detectDevice, "webcam", -1, "Capture device index (overrides camera.source)")
	detectCmd.Flags().StringVarP(&detectFormat, "format", "f", "text", "Summary format: text, yaml or json")
}

func runDetect(cmd *cobra.Command, args []string) error {
	switch {
	case detectDevice >= 0:
		cfg.Camera.Source = "webcam"
		cfg.Camera.Device = detectDevice
	case detectFile != "":
		cfg.Camera.Source = "file"
		cfg.Camera.File = detectFile
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, store, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close(conn)

	detections := service.NewDetectionService(store, store, log)
	notifier := notify.NewMulti(log)
	if err := addCloudNotifiers(ctx, notifier, cfg.Events); err != nil {
		return err
	}

	var n pipeline.Notifier
	if notifier.Len() > 0 {
		n = notifier
	}
	cam, err := newCamera(ctx, detections, n, nil, nil)
	if err != nil {
		return err
	}
	defer cam.Close()

	summary, err := cam.processor.Run(ctx)
	if err != nil {
		return err
	}

	if detectFormat == "text" {
		return printSummary(cmd.OutOrStdout(), summary)
	}
	return writeFormatted(cmd.OutOrStdout(), detectFormat, summary)
}

func printSummary(w io.Writer, s *pipeline.Summary) error {
	plates := make([]*pipeline.PlateSummary, 0, len(s.Plates))
	for _, p := range s.Plates {
		plates = append(plates, p)
	}
	sort.Slice(plates, func(i, j int) bool { return plates[i].Plate < plates[j].Plate })

	if _, err := fmt.Fprintf(w, "Session %s: %d frames, %d processed, %d detections, %d plates\n",
		s.SessionID, s.Frames, s.Processed, s.Accepted, len(plates)); err != nil {
		return err
	}
	for _, p := range plates {
		status := "unknown"
		if p.Known {
			status = "known"
		}
		if _, err := fmt.Fprintf(w, "  %-8s %-14s x%-3d best %.0f%%  %s\n",
			p.Plate, p.Category, p.Count, p.BestConfidence*100, status); err != nil {
			return err
		}
	}
	return nil
}
