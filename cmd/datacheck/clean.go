package main

import (
	"fmt"

	"github.com/newthinker/datacheck/internal/fsutil"
	"github.com/newthinker/datacheck/internal/interrupt"
	"github.com/newthinker/datacheck/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cleanRecursive bool

var cleanCmd = &cobra.Command{
	Use:   "clean [dir]",
	Short: "Remove the files in a directory",
	Long: `Clean removes every file in dir. Sub-directories are only removed with
--recursive. Interrupts are held until the removal has finished.`,
	Args: cobra.ExactArgs(1),
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().BoolVarP(&cleanRecursive, "recursive", "r", false, "Also remove sub-directories")
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug, quiet)
	defer log.Sync()

	dir := args[0]
	err := interrupt.Run(log, func() error {
		return fsutil.ClearDir(dir, cleanRecursive)
	})
	if err != nil {
		return fmt.Errorf("cleaning %s: %w", dir, err)
	}

	log.Info("directory cleaned",
		zap.String("dir", dir),
		zap.Bool("recursive", cleanRecursive),
	)
	return nil
}
