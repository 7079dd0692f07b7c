package analyses

import (
	"context"
	"strings"
	"unicode/utf8"

	"policylens-backend/internal/llm"
	"policylens-backend/internal/policy"
)

// Validator asks the model whether text is an insurance policy.
type Validator struct {
	LLM       llm.Client
	Contracts *llm.Contracts
}

// Validate returns the verdict. An unparseable reply counts as a NO; only
// transport failures are errors.
func (v *Validator) Validate(ctx context.Context, text string) (policy.ValidationResult, error) {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < minPolicyTextChars {
		return policy.ValidationResult{Valid: false, Reason: tooShortReason}, nil
	}

	contract, err := v.Contracts.Get(llm.ContractValidate)
	if err != nil {
		return policy.ValidationResult{}, err
	}
	req, err := contract.Build(struct{ Text string }{Text: contract.Clip(text)})
	if err != nil {
		return policy.ValidationResult{}, err
	}
	reply, err := v.LLM.Complete(ctx, req)
	if err != nil {
		return policy.ValidationResult{}, err
	}
	return ParseVerdict(reply), nil
}

// ParseVerdict reads the VALID:/REASON: answer format.
func ParseVerdict(reply string) policy.ValidationResult {
	if strings.Contains(reply, "VALID: YES") {
		return policy.ValidationResult{Valid: true, Reason: validPolicyReason}
	}
	reason := defaultFailReason
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "REASON:") {
			if r := strings.TrimSpace(strings.TrimPrefix(line, "REASON:")); r != "" {
				reason = r
			}
			break
		}
	}
	return policy.ValidationResult{Valid: false, Reason: reason}
}
