package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pngcompress",
	Short: "pngcompress - shrink PNG and JPEG files in place",
	Long:  "pngcompress compresses batches of PNG and JPEG files in place, never making a file bigger, with live per-file progress.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
}
