package cmd

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/youzi001/pngCompress/internal/processor"
	"github.com/youzi001/pngCompress/internal/scan"
	"github.com/youzi001/pngCompress/internal/tui"
)

var (
	compressMode    string
	compressQuality int
	compressWorkers int
)

var compressCmd = &cobra.Command{
	Use:   "compress [flags] <path>...",
	Short: "Compress PNG/JPEG files in place",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := processor.ParseMode(compressMode)
		if err != nil {
			return err
		}
		if compressQuality < 0 || compressQuality > 100 {
			return fmt.Errorf("--quality must be between 0 and 100")
		}

		paths, err := scan.Paths(args)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return fmt.Errorf("no PNG or JPEG files found")
		}

		cfg := processor.Config{
			Mode:    mode,
			Quality: compressQuality,
			Workers: compressWorkers,
		}

		events := make(chan processor.ProgressEvent, 64)
		model := tui.NewModel(events)
		program := tea.NewProgram(model)

		uiDone := make(chan struct{})
		go func() {
			_, _ = program.Run()
			close(uiDone)
		}()

		summary, runErr := processor.Run(context.Background(), paths, cfg, func(event processor.ProgressEvent) {
			events <- event
		})

		close(events)
		<-uiDone
		if runErr != nil {
			return runErr
		}

		rows := []tui.SummaryRow{
			{Label: "Files processed", Value: fmt.Sprintf("%d", summary.Total)},
			{Label: "Compressed", Value: fmt.Sprintf("%d", summary.Compressed)},
			{Label: "Skipped (no gain)", Value: fmt.Sprintf("%d", summary.Skipped)},
			{Label: "Errors", Value: fmt.Sprintf("%d", summary.Errors)},
			{Label: "Space saved", Value: humanize.Bytes(uint64(summary.BytesSaved))},
		}
		fmt.Fprintln(os.Stdout, tui.RenderSummary(rows))

		return nil
	},
}

func init() {
	compressCmd.Flags().StringVarP(&compressMode, "mode", "m", "lossy", "compression mode: lossy or lossless")
	compressCmd.Flags().IntVarP(&compressQuality, "quality", "q", 80, "target quality 0-100 (lossy mode)")
	compressCmd.Flags().IntVarP(&compressWorkers, "workers", "w", 0, "parallel workers (0 = number of CPUs)")

	rootCmd.AddCommand(compressCmd)
}
