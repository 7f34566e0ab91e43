// ABOUTME: CLI command that cleans caption text
// ABOUTME: Reads arguments or stdin and prints text without timecodes and fillers
package commands

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/harper/chapterize/internal/core"
	"github.com/spf13/cobra"
)

// NewCleanCmd creates the clean command
func NewCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean [text...]",
		Short: "Strip timecodes, annotations and filler words",
		Long: `Clean caption text the same way transcripts are cleaned before
paragraphs are built. With no arguments, stdin is cleaned line by line.

Examples:
  chapterize clean "[00:01:02] Um, so [laughter] we begin"
  cat captions.txt | chapterize clean`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) > 0 {
				fmt.Fprintln(out, core.CleanText(strings.Join(args, " ")))
				return nil
			}

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				fmt.Fprintln(out, core.CleanText(scanner.Text()))
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}
			return nil
		},
	}
}
