package render

import (
	"bytes"
	"fmt"
	"html/template"
	"math"
	"strconv"
	"strings"

	"policylens-backend/internal/policy"
)

type cardView struct {
	Insurer    string
	Product    string
	Stars      string
	Rating     string
	WhyPerfect string
	Premium    string
	SumInsured string
	ClaimRatio string
	Advantages []string
	Weakness   string
}

var cardsTemplate = template.Must(template.New("cards").Parse(`{{if .Header}}<div class="reco-header"><h3>🎯 Personalized Recommendations for {{.Header}}</h3></div>{{end}}
{{- range .Cards}}
<div class="alt-card">
  <div class="alt-card__head"><h3>{{.Insurer}}</h3><span class="alt-card__rating">{{.Stars}} {{.Rating}}/5</span></div>
  <p class="alt-card__product">📦 {{.Product}}</p>
  {{- if .WhyPerfect}}
  <p class="alt-card__why">🎯 {{.WhyPerfect}}</p>
  {{- end}}
  <div class="alt-card__badges">
    <span class="badge">💰 {{.Premium}}/yr</span>
    <span class="badge">🛡️ {{.SumInsured}}</span>
    <span class="badge">📊 {{.ClaimRatio}}</span>
  </div>
  <ul class="alt-card__advantages">
    {{- range .Advantages}}
    <li>✅ {{.}}</li>
    {{- end}}
  </ul>
  <p class="alt-card__weakness">⚠️ {{.Weakness}}</p>
</div>
{{- end}}
`))

// AlternativeCards renders one card per alternative. A non-empty header adds
// the personalized heading, and showWhy includes why_perfect.
func AlternativeCards(alts []policy.Alternative, header string, showWhy bool) (string, error) {
	cards := make([]cardView, 0, len(alts))
	for _, alt := range alts {
		view := cardView{
			Insurer:    alt.Insurer,
			Product:    alt.Product.String(),
			Stars:      Stars(alt.Rating),
			Rating:     strconv.FormatFloat(alt.Rating, 'f', -1, 64),
			Premium:    alt.EstimatedPremium.String(),
			SumInsured: alt.SumInsured.String(),
			ClaimRatio: alt.ClaimSettlementRatio.String(),
			Advantages: alt.Advantages,
			Weakness:   alt.Weakness.String(),
		}
		if showWhy {
			view.WhyPerfect = alt.WhyPerfect.String()
		}
		cards = append(cards, view)
	}

	var buf bytes.Buffer
	err := cardsTemplate.Execute(&buf, struct {
		Header string
		Cards  []cardView
	}{Header: strings.TrimSpace(header), Cards: cards})
	if err != nil {
		return "", fmt.Errorf("render alternative cards: %w", err)
	}
	return buf.String(), nil
}

// Stars draws one star per whole rating point plus a half mark when the
// fractional part is at least .5.
func Stars(rating float64) string {
	if rating <= 0 || math.IsNaN(rating) {
		return ""
	}
	whole := int(math.Floor(rating))
	out := strings.Repeat("⭐", whole)
	if rating-float64(whole) >= 0.5 {
		out += "½"
	}
	return out
}

// PolicyMetric is one labelled figure from the user's current policy.
type PolicyMetric struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// CurrentPolicyMetrics lists the headline attributes of the analysed policy.
func CurrentPolicyMetrics(ex policy.Extracted) []PolicyMetric {
	const na = "N/A"
	return []PolicyMetric{
		{Label: "Policy Type", Value: ex.PolicyType.Or(na)},
		{Label: "Sum Insured", Value: ex.CurrentSumInsured.Or(na)},
		{Label: "Current Premium", Value: ex.CurrentPremium.Or(na)},
	}
}
