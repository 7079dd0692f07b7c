package render

import (
	"strings"
	"testing"

	"policylens-backend/internal/policy"
)

func TestStars(t *testing.T) {
	tests := []struct {
		rating float64
		want   string
	}{
		{0, ""},
		{3, "⭐⭐⭐"},
		{4.5, "⭐⭐⭐⭐½"},
		{4.4, "⭐⭐⭐⭐"},
		{5, "⭐⭐⭐⭐⭐"},
	}
	for _, tt := range tests {
		if got := Stars(tt.rating); got != tt.want {
			t.Fatalf("Stars(%v) = %q, want %q", tt.rating, got, tt.want)
		}
	}
}

func TestAlternativeCardsEscapesAndShowsWhy(t *testing.T) {
	alts := []policy.Alternative{{
		Insurer:              "Star Health",
		Product:              "Family Health Optima",
		WhyPerfect:           "Covers your parents",
		EstimatedPremium:     "₹18,000",
		SumInsured:           "10 Lakhs",
		Advantages:           []string{"No room rent cap", "<b>bold</b>"},
		Weakness:             "2 year PED waiting",
		Rating:               4.5,
		ClaimSettlementRatio: "82%",
	}}

	out, err := AlternativeCards(alts, "Asha", true)
	if err != nil {
		t.Fatalf("AlternativeCards: %v", err)
	}
	for _, want := range []string{"Personalized Recommendations for Asha", "⭐⭐⭐⭐½ 4.5/5", "🎯 Covers your parents", "₹18,000/yr", "&lt;b&gt;bold&lt;/b&gt;"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}

	plain, err := AlternativeCards(alts, "", false)
	if err != nil {
		t.Fatalf("AlternativeCards: %v", err)
	}
	if strings.Contains(plain, "Covers your parents") || strings.Contains(plain, "Personalized") {
		t.Fatalf("why_perfect and header must be omitted:\n%s", plain)
	}
}

func TestMarkdown(t *testing.T) {
	out := Markdown("📋 POLICY OVERVIEW\n**Sum insured:** 5 Lakhs\n\n<script>x</script>")
	if !strings.Contains(out, "<strong>Sum insured:</strong>") {
		t.Fatalf("expected bold markup, got %s", out)
	}
	if strings.Contains(out, "<script>") {
		t.Fatalf("raw html must not pass through: %s", out)
	}
	if Markdown("  ") != "" {
		t.Fatalf("blank input should render empty")
	}
}

func TestCurrentPolicyMetricsDefaults(t *testing.T) {
	got := CurrentPolicyMetrics(policy.Extracted{PolicyType: "Health"})
	if got[0].Value != "Health" || got[1].Value != "N/A" || got[2].Value != "N/A" {
		t.Fatalf("unexpected metrics: %+v", got)
	}
}
