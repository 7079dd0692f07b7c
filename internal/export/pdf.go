// Package export renders summaries and quotes as single-column PDF documents.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"

	"policylens-backend/internal/shared/util"
)

const (
	// DefaultTitle heads a policy summary export.
	DefaultTitle = "Insurance Policy Summary"
	// SummaryFileName is the download and attachment name of a summary export.
	SummaryFileName = "policy_summary.pdf"
	// Footer closes every document.
	Footer = "Generated by PolicyLens AI | For reference only"

	margin      = 60.0
	titleSize   = 20.0
	titleLead   = 26.0
	bodySize    = 11.0
	bodyLead    = 18.0
	blankGap    = 6.0
	footerSize  = 8.0
	footerGap   = 20.0
	fontFamily  = "Helvetica"
	accentRed   = 0x1a
	accentGreen = 0x3a
	accentBlue  = 0x5c
	grey        = 0x80
)

// RenderPDF lays out title and body on Letter pages: a title, an accent rule,
// one paragraph per non-blank line and a footer.
func RenderPDF(title, body string) ([]byte, error) {
	if strings.TrimSpace(title) == "" {
		title = DefaultTitle
	}

	doc := fpdf.New("P", "pt", "Letter", "")
	doc.SetMargins(margin, margin, margin)
	doc.SetAutoPageBreak(true, margin)
	doc.SetTitle(toCodePage(title), false)
	doc.SetCreator("PolicyLens AI", false)
	doc.AddPage()

	pageW, _ := doc.GetPageSize()
	rule := func(width float64, r, g, b int, after float64) {
		y := doc.GetY()
		doc.SetDrawColor(r, g, b)
		doc.SetLineWidth(width)
		doc.Line(margin, y, pageW-margin, y)
		doc.Ln(after)
	}

	doc.SetFont(fontFamily, "B", titleSize)
	doc.SetTextColor(accentRed, accentGreen, accentBlue)
	doc.MultiCell(0, titleLead, toCodePage(title), "", "L", false)
	doc.Ln(6)
	rule(2, accentRed, accentGreen, accentBlue, 12)

	doc.SetFont(fontFamily, "", bodySize)
	doc.SetTextColor(0x33, 0x33, 0x33)
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			doc.Ln(blankGap)
			continue
		}
		doc.MultiCell(0, bodyLead, toCodePage(stripEmphasis(line)), "", "L", false)
		doc.Ln(blankGap)
	}

	doc.Ln(footerGap)
	rule(1, grey, grey, grey, 8)
	doc.SetFont(fontFamily, "", footerSize)
	doc.SetTextColor(grey, grey, grey)
	doc.CellFormat(0, footerSize+2, Footer, "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// QuoteTitle is the document title of a quote export.
func QuoteTitle(insurer string) string {
	return "Quote — " + strings.TrimSpace(insurer)
}

// QuoteFileName is the download name of a quote export, e.g. quote_star_health.pdf.
func QuoteFileName(insurer string) string {
	safe, err := util.SanitizeFileName(strings.ToLower(insurer))
	if err != nil {
		safe = "insurer"
	}
	return "quote_" + safe + ".pdf"
}

// toCodePage encodes s for the PDF core fonts, which only cover cp1252.
// Runes outside the code page, emoji among them, are dropped.
func toCodePage(s string) string {
	enc := charmap.Windows1252
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\t' {
			b.WriteString("    ")
			continue
		}
		if c, ok := enc.EncodeRune(r); ok {
			b.WriteByte(c)
		}
	}
	return strings.TrimLeft(b.String(), " ")
}

func stripEmphasis(line string) string {
	line = strings.ReplaceAll(line, "**", "")
	return strings.ReplaceAll(line, "__", "")
}
