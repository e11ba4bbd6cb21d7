package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pep299/research-blog-pipeline/internal/config"
)

var (
	verbose    bool
	promptsDir string
	model      string

	jsonOutput bool
	notify     bool
	archiveRun bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "blogpipe",
	Short: "Research a topic and turn it into a reviewed blog post",
	Long: `blogpipe chains four stages: a Wikipedia research lookup, a summary,
a blog post written from the summary, and a critical review of the post.

Run without arguments to process the default topic once.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, nil)
	},
}

var runCmd = &cobra.Command{
	Use:   "run [topic]",
	Short: "Run the full pipeline once",
	Long: `Runs research, summary, blog writing and critique for the topic and
prints the four outputs. Without a topic the configured default is used.

Example:
  blogpipe run --json "History of the transistor"`,
	RunE: runPipeline,
}

var researchCmd = &cobra.Command{
	Use:   "research [topic]",
	Short: "Run only the Wikipedia research stage",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runResearch,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "blogpipe %s\n", config.Version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log stage inputs and outputs")
	rootCmd.PersistentFlags().StringVar(&promptsDir, "prompts-dir", "", "Directory with *_agent_prompt.txt files (default: built-in prompts)")
	rootCmd.PersistentFlags().StringVar(&model, "model", "", "Gemini model name (overrides GEMINI_MODEL)")

	runCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as a JSON object")
	runCmd.Flags().BoolVar(&notify, "notify", false, "Post the run to Slack")
	runCmd.Flags().BoolVar(&archiveRun, "archive", false, "Store the run record")

	rootCmd.AddCommand(runCmd, researchCmd, versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
