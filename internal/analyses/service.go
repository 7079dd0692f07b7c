package analyses

import (
	"context"
	"strings"

	"policylens-backend/internal/llm"
	"policylens-backend/internal/policy"
	"policylens-backend/internal/shared/metrics"
	"policylens-backend/internal/shared/telemetry"
)

// Summarizer produces the six-section plain-language summary.
type Summarizer struct {
	LLM       llm.Client
	Contracts *llm.Contracts
}

// Summarize returns the completion verbatim. The full text is sent.
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	contract, err := s.Contracts.Get(llm.ContractSummarize)
	if err != nil {
		return "", err
	}
	req, err := contract.Build(struct{ Text string }{Text: text})
	if err != nil {
		return "", err
	}
	return s.LLM.Complete(ctx, req)
}

// Result is the outcome of one analyze action. Summary is empty unless the
// document was judged valid.
type Result struct {
	Validation policy.ValidationResult
	Summary    string
}

// Service runs validation then summarization.
type Service struct {
	Validator  *Validator
	Summarizer *Summarizer
}

// NewService builds the validator and summarizer on one client.
func NewService(client llm.Client, contracts *llm.Contracts) *Service {
	return &Service{
		Validator:  &Validator{LLM: client, Contracts: contracts},
		Summarizer: &Summarizer{LLM: client, Contracts: contracts},
	}
}

// Analyze validates text and summarizes it when it is a policy.
func (s *Service) Analyze(ctx context.Context, text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrEmptyText
	}
	verdict, err := s.Validator.Validate(ctx, text)
	if err != nil {
		metrics.IncAnalysis("error")
		return Result{}, err
	}
	if !verdict.Valid {
		metrics.IncAnalysis("invalid")
		telemetry.Info("analysis.rejected", map[string]any{
			"reason": verdict.Reason,
			"chars":  len(text),
		})
		return Result{Validation: verdict}, nil
	}
	summary, err := s.Summarizer.Summarize(ctx, text)
	if err != nil {
		metrics.IncAnalysis("error")
		return Result{Validation: verdict}, err
	}
	metrics.IncAnalysis("valid")
	return Result{Validation: verdict, Summary: summary}, nil
}
