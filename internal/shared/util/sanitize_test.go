package util

import (
	"errors"
	"testing"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "star_health", want: "star_health"},
		{in: "  a/b\\c  ", want: "a_b_c"},
		{in: "HDFC Ergo (Optima)", want: "HDFC_Ergo_Optima"},
		{in: "policy summary.pdf", want: "policy_summary.pdf"},
		{in: "__tata__aig__", want: "tata_aig"},
		{in: "बीमा", wantErr: true},
		{in: "../etc/passwd", wantErr: true},
		{in: "   ", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			got, err := SanitizeFileName(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidFileName) {
					t.Fatalf("expected ErrInvalidFileName for %q, got %v", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SanitizeFileName(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
