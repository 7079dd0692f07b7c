package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"policylens-backend/internal/policy"
	"policylens-backend/internal/render"
)

func printSuccess(msg string) {
	green := color.New(color.FgGreen)
	green.Fprintf(os.Stderr, "✓ %s\n", msg)
}

func printFailure(msg string) {
	red := color.New(color.FgRed)
	red.Fprintf(os.Stderr, "✗ %s\n", msg)
}

func printHeader(title string) {
	cyan := color.New(color.FgCyan, color.Bold)
	fmt.Println()
	cyan.Println(title)
	fmt.Println(strings.Repeat("─", len([]rune(title))))
}

// emit writes v as JSON or YAML. It reports false for the human format, in
// which case the caller prints its own layout.
func emit(format string, v any) (bool, error) {
	switch format {
	case "json":
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return true, err
		}
		fmt.Println(string(out))
		return true, nil
	case "yaml":
		out, err := yaml.Marshal(v)
		if err != nil {
			return true, err
		}
		fmt.Print(string(out))
		return true, nil
	default:
		return false, nil
	}
}

func printVerdict(v policy.ValidationResult) {
	if v.Valid {
		color.New(color.FgGreen, color.Bold).Printf("VALID: %s\n", v.Reason)
		return
	}
	color.New(color.FgRed, color.Bold).Printf("NOT A POLICY: %s\n", v.Reason)
}

func printAlternatives(header string, alts []policy.Alternative) {
	printHeader(header)
	yellow := color.New(color.FgYellow, color.Bold)
	for i, alt := range alts {
		fmt.Println()
		yellow.Printf("%d. %s — %s\n", i+1, alt.Insurer, alt.Product.Or("Plan"))
		fmt.Printf("   Rating: %s (%.1f/5)\n", render.Stars(alt.Rating), alt.Rating)
		if alt.WhyPerfect != "" {
			fmt.Printf("   Why: %s\n", alt.WhyPerfect)
		}
		fmt.Printf("   Premium: %s   Sum insured: %s   Claim ratio: %s\n",
			alt.EstimatedPremium.Or("N/A"), alt.SumInsured.Or("N/A"), alt.ClaimSettlementRatio.Or("N/A"))
		for _, adv := range alt.Advantages {
			fmt.Printf("   %s %s\n", color.GreenString("+"), adv)
		}
		if alt.Weakness != "" {
			fmt.Printf("   %s %s\n", color.RedString("-"), alt.Weakness)
		}
	}
	fmt.Println()
}

func printMetrics(ms []render.PolicyMetric) {
	for _, m := range ms {
		fmt.Printf("%s: %s\n", color.New(color.Bold).Sprint(m.Label), m.Value)
	}
}
