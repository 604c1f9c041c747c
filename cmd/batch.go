package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tanq16/splitfetch/internal/output"
	"github.com/tanq16/splitfetch/internal/utils"
)

func newBatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch [YAML_FILE]",
		Short: "Download every entry of a YAML batch file",
		Long: `Download every entry of a YAML batch file. Each entry takes a link and,
optionally, its own headers, output directory and fragment count:

  - link: https://example.com/file.iso
    headers: ["Authorization: Bearer abc"]
    dir: ./isos
    fragments: 4`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			entries, err := utils.ReadBatchFile(args[0])
			if err != nil {
				output.PrintError(fmt.Sprintf("Failed to read batch file: %v", err))
				os.Exit(1)
			}
			if len(entries) == 0 {
				output.PrintError("No entries found in the batch file")
				os.Exit(1)
			}
			execute(entries)
		},
	}
}
