// Package recommendations turns model output into validated alternatives and
// generates detailed quotes.
package recommendations

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"

	"policylens-backend/internal/policy"
)

// ErrMalformedOutput marks model output that does not match the reply shape.
// Nothing from such a reply is kept.
var ErrMalformedOutput = errors.New("malformed model output")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("insurer", func(fl validator.FieldLevel) bool {
		_, ok := policy.CanonicalInsurer(fl.Field().String())
		return ok
	})
	return v
}

// StripFences removes Markdown code fence markers around a JSON reply.
func StripFences(raw string) string {
	s := strings.ReplaceAll(raw, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// DecodeJSON decodes exactly one JSON value from raw into out. Trailing
// content after the value is rejected.
func DecodeJSON(raw string, out any) error {
	dec := json.NewDecoder(strings.NewReader(raw))
	if err := dec.Decode(out); err != nil {
		return oops.In("recommendations").Wrapf(joinMalformed(err), "decode reply")
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return oops.In("recommendations").Wrapf(ErrMalformedOutput, "unexpected content after JSON value")
	}
	return nil
}

// ParseRecommendations decodes the policy-driven reply and validates it:
// exactly four alternatives, ratings within 0..5 and insurers from the
// closed list.
func ParseRecommendations(raw string) (policy.RecommendationSet, error) {
	var set policy.RecommendationSet
	if err := DecodeJSON(StripFences(raw), &set); err != nil {
		return policy.RecommendationSet{}, err
	}
	if err := check(&set, set.Alternatives); err != nil {
		return policy.RecommendationSet{}, err
	}
	return set, nil
}

// ParseProfileRecommendations decodes the profile-driven reply.
func ParseProfileRecommendations(raw string) (policy.ProfileRecommendationSet, error) {
	var set policy.ProfileRecommendationSet
	if err := DecodeJSON(StripFences(raw), &set); err != nil {
		return policy.ProfileRecommendationSet{}, err
	}
	if err := check(&set, set.Alternatives); err != nil {
		return policy.ProfileRecommendationSet{}, err
	}
	return set, nil
}

// check validates set and rewrites insurer names to their canonical form.
func check(set any, alts []policy.Alternative) error {
	if err := validate.Struct(set); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return oops.In("recommendations").
				With("violations", describe(verrs)).
				Wrapf(ErrMalformedOutput, "reply failed validation: %s", describe(verrs))
		}
		return oops.In("recommendations").Wrapf(joinMalformed(err), "validate reply")
	}
	for i := range alts {
		canonical, _ := policy.CanonicalInsurer(alts[i].Insurer)
		alts[i].Insurer = canonical
	}
	return nil
}

func describe(verrs validator.ValidationErrors) string {
	var b bytes.Buffer
	for i, fe := range verrs {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s failed %s", fe.Namespace(), fe.Tag())
		if fe.Param() != "" {
			fmt.Fprintf(&b, "=%s", fe.Param())
		}
	}
	return b.String()
}

func joinMalformed(err error) error {
	return fmt.Errorf("%w: %w", ErrMalformedOutput, err)
}
