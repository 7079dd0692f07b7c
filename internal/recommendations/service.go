package recommendations

import (
	"context"
	"errors"
	"strings"

	"policylens-backend/internal/llm"
	"policylens-backend/internal/policy"
	"policylens-backend/internal/shared/telemetry"
)

var (
	ErrEmptyText       = errors.New("policy text is required")
	ErrUnknownInsurer  = errors.New("insurer is not one of the recommended alternatives")
	ErrInsurerRequired = errors.New("insurer is required")
)

// Quote defaults used when the current policy does not state them.
const (
	defaultPolicyType = "Health"
	defaultSumInsured = "5 Lakhs"
	defaultAge        = "35 years"
)

// Service asks the model for alternatives and quotes.
type Service struct {
	LLM       llm.Client
	Contracts *llm.Contracts
}

// NewService constructs a Service.
func NewService(client llm.Client, contracts *llm.Contracts) *Service {
	return &Service{LLM: client, Contracts: contracts}
}

type recommendPrompt struct {
	Text     string
	Insurers []string
}

// FromPolicy extracts the current policy's attributes and four alternatives.
func (s *Service) FromPolicy(ctx context.Context, text string) (policy.RecommendationSet, error) {
	if strings.TrimSpace(text) == "" {
		return policy.RecommendationSet{}, ErrEmptyText
	}
	contract, err := s.Contracts.Get(llm.ContractRecommend)
	if err != nil {
		return policy.RecommendationSet{}, err
	}
	req, err := contract.Build(recommendPrompt{Text: contract.Clip(text), Insurers: policy.Insurers})
	if err != nil {
		return policy.RecommendationSet{}, err
	}
	reply, err := s.LLM.Complete(ctx, req)
	if err != nil {
		return policy.RecommendationSet{}, err
	}
	set, err := ParseRecommendations(reply)
	if err != nil {
		logMalformed(llm.ContractRecommend, reply, err)
		return policy.RecommendationSet{}, err
	}
	return set, nil
}

type profilePrompt struct {
	Profile  policy.Profile
	Insurers []string
}

// FromProfile recommends four alternatives for a collected customer profile.
func (s *Service) FromProfile(ctx context.Context, profile policy.Profile) (policy.ProfileRecommendationSet, error) {
	contract, err := s.Contracts.Get(llm.ContractChatRecommend)
	if err != nil {
		return policy.ProfileRecommendationSet{}, err
	}
	req, err := contract.Build(profilePrompt{Profile: profile.WithDefaults(), Insurers: policy.Insurers})
	if err != nil {
		return policy.ProfileRecommendationSet{}, err
	}
	reply, err := s.LLM.Complete(ctx, req)
	if err != nil {
		return policy.ProfileRecommendationSet{}, err
	}
	set, err := ParseProfileRecommendations(reply)
	if err != nil {
		logMalformed(llm.ContractChatRecommend, reply, err)
		return policy.ProfileRecommendationSet{}, err
	}
	return set, nil
}

type quotePrompt struct {
	Insurer    string
	PolicyType string
	SumInsured string
	Age        string
}

// Quote generates a detailed quote for insurer. Attributes missing from
// extracted fall back to a 35 year old's 5 Lakh health cover.
func (s *Service) Quote(ctx context.Context, insurer string, extracted policy.Extracted) (policy.Quote, error) {
	insurer = strings.TrimSpace(insurer)
	if insurer == "" {
		return policy.Quote{}, ErrInsurerRequired
	}
	if canonical, ok := policy.CanonicalInsurer(insurer); ok {
		insurer = canonical
	}
	contract, err := s.Contracts.Get(llm.ContractQuote)
	if err != nil {
		return policy.Quote{}, err
	}
	req, err := contract.Build(quotePrompt{
		Insurer:    insurer,
		PolicyType: extracted.PolicyType.Or(defaultPolicyType),
		SumInsured: extracted.CurrentSumInsured.Or(defaultSumInsured),
		Age:        extracted.PolicyholderAge.Or(defaultAge),
	})
	if err != nil {
		return policy.Quote{}, err
	}
	reply, err := s.LLM.Complete(ctx, req)
	if err != nil {
		return policy.Quote{}, err
	}
	if strings.TrimSpace(reply) == "" {
		return policy.Quote{}, ErrMalformedOutput
	}
	return policy.Quote{Insurer: insurer, Text: reply}, nil
}

// QuotableInsurer resolves the insurer a quote may be requested for. With a
// recommendation set the insurer must be one of its alternatives; without
// one it must be on the closed list.
func QuotableInsurer(insurer string, set *policy.RecommendationSet) (string, error) {
	insurer = strings.TrimSpace(insurer)
	if insurer == "" {
		return "", ErrInsurerRequired
	}
	if set != nil {
		alt, ok := set.Find(insurer)
		if !ok {
			return "", ErrUnknownInsurer
		}
		return alt.Insurer, nil
	}
	canonical, ok := policy.CanonicalInsurer(insurer)
	if !ok {
		return "", ErrUnknownInsurer
	}
	return canonical, nil
}

func logMalformed(contract, reply string, err error) {
	telemetry.Warn("llm.malformed_output", map[string]any{
		"contract":    contract,
		"reply_chars": len(reply),
		"reply_head":  llm.Truncate(reply, 200),
		"error":       err,
	})
}
