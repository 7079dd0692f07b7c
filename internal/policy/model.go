// Package policy holds the session-scoped domain records shared by the
// analysis, recommendation and intake packages.
package policy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Insurers is the closed list alternatives are drawn from.
var Insurers = []string{
	"Star Health",
	"HDFC Ergo",
	"Niva Bupa",
	"Care Health",
	"Bajaj Allianz",
	"ICICI Lombard",
	"Tata AIG",
	"Aditya Birla Health",
}

// CanonicalInsurer maps a model-written insurer name onto the closed list,
// ignoring case and surrounding whitespace. Trailing words after a listed
// name are accepted, so "Star Health Insurance" maps to "Star Health".
func CanonicalInsurer(name string) (string, bool) {
	needle := strings.Join(strings.Fields(strings.ToLower(name)), " ")
	if needle == "" {
		return "", false
	}
	for _, ins := range Insurers {
		if strings.ToLower(ins) == needle {
			return ins, true
		}
	}
	for _, ins := range Insurers {
		if strings.HasPrefix(needle, strings.ToLower(ins)+" ") {
			return ins, true
		}
	}
	return "", false
}

// FlexString decodes a JSON string, number or boolean into text. Models are
// asked for strings but routinely emit bare numbers for ages and premiums,
// and lists for fields like dependents. Lists are joined with ", ".
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	switch {
	case len(trimmed) == 0, bytes.Equal(trimmed, []byte("null")):
		*f = ""
		return nil
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(s))
		return nil
	case trimmed[0] == '[':
		var items []FlexString
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return fmt.Errorf("expected list of scalars, got %s", truncateForError(trimmed))
		}
		parts := make([]string, 0, len(items))
		for _, item := range items {
			if item != "" {
				parts = append(parts, string(item))
			}
		}
		*f = FlexString(strings.Join(parts, ", "))
		return nil
	case bytes.Equal(trimmed, []byte("true")), bytes.Equal(trimmed, []byte("false")):
		*f = FlexString(trimmed)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return fmt.Errorf("expected string or number, got %s", truncateForError(trimmed))
		}
		*f = FlexString(n.String())
		return nil
	}
}

func (f FlexString) String() string { return string(f) }

// Or returns def when the value is blank.
func (f FlexString) Or(def string) string {
	if strings.TrimSpace(string(f)) == "" {
		return def
	}
	return string(f)
}

// ValidationResult is the outcome of asking whether text is an insurance policy.
type ValidationResult struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason"`
}

// Extracted holds attributes of the user's current policy as read by the model.
type Extracted struct {
	PolicyType        FlexString `json:"policy_type"`
	CurrentSumInsured FlexString `json:"current_sum_insured"`
	CurrentPremium    FlexString `json:"current_premium"`
	PolicyholderAge   FlexString `json:"policyholder_age"`
	KeyCoverages      []string   `json:"key_coverages"`
}

// Alternative is one competing product suggested by the model.
type Alternative struct {
	Insurer              string     `json:"insurer" validate:"required,insurer"`
	Product              FlexString `json:"product"`
	WhyPerfect           FlexString `json:"why_perfect,omitempty"`
	EstimatedPremium     FlexString `json:"estimated_premium"`
	SumInsured           FlexString `json:"sum_insured"`
	Advantages           []string   `json:"advantages"`
	Weakness             FlexString `json:"weakness"`
	Rating               float64    `json:"rating" validate:"gte=0,lte=5"`
	ClaimSettlementRatio FlexString `json:"claim_settlement_ratio"`
}

// RecommendationSet is the reply shape of the policy-driven recommender.
type RecommendationSet struct {
	Extracted    Extracted     `json:"extracted"`
	Alternatives []Alternative `json:"alternatives" validate:"len=4,dive"`
}

// Find returns the alternative offered by insurer, ignoring case.
func (r RecommendationSet) Find(insurer string) (Alternative, bool) {
	for _, alt := range r.Alternatives {
		if strings.EqualFold(alt.Insurer, strings.TrimSpace(insurer)) {
			return alt, true
		}
	}
	return Alternative{}, false
}

// ProfileRecommendationSet is the reply shape of the profile-driven recommender.
type ProfileRecommendationSet struct {
	CustomerName  FlexString    `json:"customer_name"`
	InsuranceType FlexString    `json:"insurance_type"`
	Alternatives  []Alternative `json:"alternatives" validate:"len=4,dive"`
}

// Quote is the most recent detailed quote. Regenerating replaces it.
type Quote struct {
	Insurer string `json:"insurer"`
	Text    string `json:"text"`
}

func truncateForError(b []byte) string {
	if len(b) > 40 {
		return string(b[:40]) + "..."
	}
	return string(b)
}
