package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/youzi001/pngCompress/internal/scan"
	"github.com/youzi001/pngCompress/internal/tui"
)

var scanCmd = &cobra.Command{
	Use:   "scan <path>...",
	Short: "List candidate files and strippable metadata without modifying anything",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := scan.Paths(args)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			fmt.Fprintln(os.Stdout, scanDimStyle.Render("no PNG or JPEG files found"))
			return nil
		}

		for _, path := range paths {
			report, err := scan.Inspect(path)
			if err != nil {
				fmt.Fprintf(os.Stdout, "%s  %s\n", scanFileStyle.Render(path), scanErrStyle.Render(err.Error()))
				continue
			}

			line := fmt.Sprintf("%s  %s  %s",
				scanFileStyle.Render(report.Path),
				scanDimStyle.Render(humanize.Bytes(uint64(report.Size))),
				scanDimStyle.Render(report.Sniffed.String()),
			)
			if report.Mismatched() {
				line += "  " + scanWarnStyle.Render(fmt.Sprintf("extension says %s", report.Kind))
			}
			fmt.Fprintln(os.Stdout, line)

			if len(report.Metadata) > 0 {
				fmt.Fprintf(os.Stdout, "  %s %s\n",
					scanBulletStyle.Render("-"),
					scanValueStyle.Render("metadata: "+strings.Join(report.Metadata, ", ")),
				)
			}
		}
		return nil
	},
}

var (
	scanFileStyle   = lipgloss.NewStyle().Bold(true).Foreground(tui.ColorAccent)
	scanValueStyle  = lipgloss.NewStyle().Foreground(tui.ColorInk)
	scanDimStyle    = lipgloss.NewStyle().Foreground(tui.ColorDim)
	scanWarnStyle   = lipgloss.NewStyle().Foreground(tui.ColorWarn)
	scanErrStyle    = lipgloss.NewStyle().Foreground(tui.ColorError)
	scanBulletStyle = lipgloss.NewStyle().Foreground(tui.ColorDim)
)

func init() {
	rootCmd.AddCommand(scanCmd)
}
