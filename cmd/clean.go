package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tanq16/splitfetch/internal/output"
	"github.com/tanq16/splitfetch/internal/utils"
)

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean [DIR]",
		Short: "Remove leftover fragment files",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			dir := outputDir
			if len(args) == 1 {
				dir = args[0]
			}
			removed, err := utils.CleanFragments(dir)
			if err != nil {
				output.PrintError(fmt.Sprintf("Error cleaning fragment files: %v", err))
				os.Exit(1)
			}
			if removed == 0 {
				output.PrintInfo(fmt.Sprintf("No fragment files found in %s", dir))
				return
			}
			output.PrintSuccess(fmt.Sprintf("Removed %d fragment file(s) from %s", removed, dir))
		},
	}
}
