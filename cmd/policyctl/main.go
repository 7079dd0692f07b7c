// Command policyctl runs the PolicyLens pipeline against a local policy
// file, without the HTTP server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var version = "dev" // Overwritten at build time

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	rootCmd := &cobra.Command{
		Use:   "policyctl",
		Short: "Summarize and compare insurance policies from the terminal",
		Long: `policyctl reads a policy PDF or text file (or stdin) and runs the same
validation, summary, recommendation and quote prompts as the API.`,
		SilenceUsage: true,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.file, "file", "f", "-", "Policy PDF or text file, - for stdin")
	flags.StringVarP(&opts.output, "output", "o", "human", "Output format (human, json, yaml)")
	flags.StringVar(&opts.provider, "provider", "", "Override LLM_PROVIDER")
	flags.StringVar(&opts.model, "model", "", "Override LLM_MODEL")

	rootCmd.AddCommand(
		newValidateCmd(opts),
		newSummarizeCmd(opts),
		newRecommendCmd(opts),
		newQuoteCmd(opts),
		newChatCmd(opts),
		newPDFCmd(opts),
		newEmailCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("policyctl version %s\n", version)
		},
	}
}
