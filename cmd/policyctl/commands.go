package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"policylens-backend/internal/analyses"
	"policylens-backend/internal/export"
	"policylens-backend/internal/intake"
	"policylens-backend/internal/policy"
	"policylens-backend/internal/recommendations"
	"policylens-backend/internal/render"
)

func newValidateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check whether a document is an insurance policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(opts)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			text, err := readPolicy(ctx, opts.file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			var verdict policy.ValidationResult
			if err := step("Validating document", func() error {
				verdict, err = rt.analyses.Validator.Validate(ctx, text)
				return err
			}); err != nil {
				return err
			}
			if done, err := emit(opts.output, verdict); done {
				return err
			}
			printVerdict(verdict)
			return nil
		},
	}
}

func newSummarizeCmd(opts *globalOptions) *cobra.Command {
	var pdfPath string
	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Validate a policy and print its plain-language summary",
		Example: `  policyctl summarize -f policy.pdf
  policyctl summarize -f policy.pdf --pdf policy_summary.pdf`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(opts)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			text, err := readPolicy(ctx, opts.file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			var res analyses.Result
			if err := step("Analyzing policy", func() error {
				res, err = rt.analyses.Analyze(ctx, text)
				return err
			}); err != nil {
				return err
			}
			if res.Validation.Valid && pdfPath != "" {
				if err := writePDF(pdfPath, export.DefaultTitle, res.Summary); err != nil {
					return err
				}
			}
			if done, err := emit(opts.output, res); done {
				return err
			}
			printVerdict(res.Validation)
			if res.Validation.Valid {
				printHeader(export.DefaultTitle)
				fmt.Println(res.Summary)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&pdfPath, "pdf", "", "Also write the summary PDF to this path")
	return cmd
}

func newRecommendCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "recommend",
		Short: "Suggest four alternative policies for the current one",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(opts)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			text, err := readPolicy(ctx, opts.file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			var set policy.RecommendationSet
			if err := step("Finding alternatives", func() error {
				set, err = rt.recommendations.FromPolicy(ctx, text)
				return err
			}); err != nil {
				return err
			}
			if done, err := emit(opts.output, set); done {
				return err
			}
			printHeader("📊 Your Current Policy")
			printMetrics(render.CurrentPolicyMetrics(set.Extracted))
			printAlternatives("🎯 Recommended Alternatives", set.Alternatives)
			return nil
		},
	}
}

func newQuoteCmd(opts *globalOptions) *cobra.Command {
	var (
		pdfPath  string
		fromFile bool
	)
	cmd := &cobra.Command{
		Use:   "quote INSURER",
		Short: "Generate a detailed quote from one insurer",
		Example: `  policyctl quote "Star Health"
  policyctl quote "Niva Bupa" -f policy.pdf --from-policy --pdf quote.pdf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(opts)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var set *policy.RecommendationSet
			if fromFile {
				text, err := readPolicy(ctx, opts.file, cmd.InOrStdin())
				if err != nil {
					return err
				}
				if err := step("Reading current policy", func() error {
					got, err := rt.recommendations.FromPolicy(ctx, text)
					set = &got
					return err
				}); err != nil {
					return err
				}
			}
			insurer, err := recommendations.QuotableInsurer(args[0], set)
			if err != nil {
				return err
			}
			var extracted policy.Extracted
			if set != nil {
				extracted = set.Extracted
			}

			var q policy.Quote
			if err := step("Generating quote from "+insurer, func() error {
				q, err = rt.recommendations.Quote(ctx, insurer, extracted)
				return err
			}); err != nil {
				return err
			}
			if pdfPath != "" {
				if err := writePDF(pdfPath, export.QuoteTitle(q.Insurer), q.Text); err != nil {
					return err
				}
			}
			if done, err := emit(opts.output, q); done {
				return err
			}
			printHeader(export.QuoteTitle(q.Insurer))
			fmt.Println(q.Text)
			return nil
		},
	}
	cmd.Flags().StringVar(&pdfPath, "pdf", "", "Also write the quote PDF to this path")
	cmd.Flags().BoolVar(&fromFile, "from-policy", false, "Read the current policy from --file to fill in the quote details")
	return cmd
}

func newChatCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Talk to the intake advisor and get profile-based recommendations",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(opts)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			conv := policy.NewConversation()
			rt.agent.Start(&conv)

			advisor := color.New(color.FgCyan)
			advisor.Printf("\nAdvisor: %s\n", conv.Transcript[0].Content)

			in := bufio.NewScanner(cmd.InOrStdin())
			for conv.State == policy.ChatCollecting {
				fmt.Print(color.New(color.Bold).Sprint("\nYou: "))
				if !in.Scan() {
					return in.Err()
				}
				line := strings.TrimSpace(in.Text())
				switch line {
				case "":
					continue
				case "/quit", "/exit":
					return nil
				case "/reset":
					rt.agent.Reset(&conv)
					rt.agent.Start(&conv)
					advisor.Printf("\nAdvisor: %s\n", conv.Transcript[0].Content)
					continue
				}
				var turn intake.Turn
				if err := step("Thinking", func() error {
					turn, err = rt.agent.Reply(ctx, &conv, line)
					return err
				}); err != nil {
					return err
				}
				advisor.Printf("\nAdvisor: %s\n", turn.Reply.Content)
			}

			var set policy.ProfileRecommendationSet
			if err := step("Finding best policies", func() error {
				set, err = rt.agent.Recommend(ctx, &conv)
				return err
			}); err != nil {
				return err
			}
			if done, err := emit(opts.output, set); done {
				return err
			}
			printAlternatives("🎯 Personalized Recommendations for "+set.CustomerName.Or("You"), set.Alternatives)
			return nil
		},
	}
}

func newPDFCmd(opts *globalOptions) *cobra.Command {
	var (
		title   string
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "pdf",
		Short: "Render a text or Markdown file as a PolicyLens PDF",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readPolicy(cmd.Context(), opts.file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return writePDF(outPath, title, text)
		},
	}
	cmd.Flags().StringVar(&title, "title", export.DefaultTitle, "Document title")
	cmd.Flags().StringVar(&outPath, "out", export.SummaryFileName, "Output path")
	return cmd
}

func newEmailCmd(opts *globalOptions) *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "email",
		Short: "Summarize a policy and email the summary with its PDF",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(opts)
			if err != nil {
				return err
			}
			if !rt.mailer.Configured() {
				return errors.New("set GMAIL_ADDRESS and GMAIL_APP_PASSWORD to send email")
			}
			ctx := cmd.Context()
			text, err := readPolicy(ctx, opts.file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			var res analyses.Result
			if err := step("Analyzing policy", func() error {
				res, err = rt.analyses.Analyze(ctx, text)
				return err
			}); err != nil {
				return err
			}
			if !res.Validation.Valid {
				printVerdict(res.Validation)
				return errors.New("nothing to send")
			}
			pdf, err := export.RenderPDF(export.DefaultTitle, res.Summary)
			if err != nil {
				return err
			}
			return step("Sending to "+to, func() error {
				return rt.mailer.SendSummary(ctx, to, res.Summary, pdf)
			})
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "Recipient address")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func writePDF(path, title, body string) error {
	pdf, err := export.RenderPDF(title, body)
	if err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	printSuccess("Wrote " + path)
	return nil
}
