// ABOUTME: Root command and global flags for the chapterize CLI
// ABOUTME: Loads .env, validates output format, and wires subcommands
package commands

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	verbose      bool
	quiet        bool
	outputFormat string
	configPath   string
)

const banner = `
 ██████╗██╗  ██╗ █████╗ ██████╗ ████████╗███████╗██████╗ ██╗███████╗███████╗
██╔════╝██║  ██║██╔══██╗██╔══██╗╚══██╔══╝██╔════╝██╔══██╗██║╚══███╔╝██╔════╝
██║     ███████║███████║██████╔╝   ██║   █████╗  ██████╔╝██║  ███╔╝ █████╗
██║     ██╔══██║██╔══██║██╔═══╝    ██║   ██╔══╝  ██╔══██╗██║ ███╔╝  ██╔══╝
╚██████╗██║  ██║██║  ██║██║        ██║   ███████╗██║  ██║██║███████╗███████╗
 ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝╚═╝        ╚═╝   ╚══════╝╚═╝  ╚═╝╚═╝╚══════╝╚══════╝`

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chapterize",
		Short: "Split timestamped transcripts into titled chapters",
		Long: banner + `

Chapterize cleans a timestamped transcript into paragraphs, packs them
into token-bounded chunks, embeds each paragraph, finds topic shifts
with sliding-window cosine similarity, and titles every chapter.

Embeddings and titles come from any OpenAI-compatible endpoint
(LM Studio by default) or from the OpenAI Responses API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env is optional
			_ = godotenv.Load()

			switch outputFormat {
			case "auto", "text", "json", "yaml":
				return nil
			default:
				return fmt.Errorf("unknown --format %q (want auto, text, json or yaml)", outputFormat)
			}
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging on stderr")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log errors")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "auto", "Output format: auto, text, json or yaml")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (environment variables still win)")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewCleanCmd())
	cmd.AddCommand(NewMCPCmd())
	cmd.AddCommand(NewCacheCmd())
	cmd.AddCommand(NewVersionCmd())
	cmd.AddCommand(NewInstallSkillCmd())

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
