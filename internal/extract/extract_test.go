package extract

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestExtractTextFromBytes_PlainText(t *testing.T) {
	res, err := ExtractTextFromBytes(context.Background(), []byte("Policy No. 123\nSum insured: 5 Lakhs"), "text/plain; charset=utf-8", "policy.txt")
	if err != nil {
		t.Fatalf("ExtractTextFromBytes: %v", err)
	}
	if res.MimeType != "text/plain" || !strings.Contains(res.Text, "Sum insured") {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestExtractTextFromBytes_SniffsTextWithoutMime(t *testing.T) {
	res, err := ExtractTextFromBytes(context.Background(), []byte("plain policy wording"), "", "")
	if err != nil {
		t.Fatalf("ExtractTextFromBytes: %v", err)
	}
	if res.Text != "plain policy wording" {
		t.Fatalf("unexpected text: %q", res.Text)
	}
}

func TestExtractTextFromBytes_MalformedPDF(t *testing.T) {
	_, err := ExtractTextFromBytes(context.Background(), []byte("%PDF-1.4\nthis is not really a pdf"), "application/pdf", "policy.pdf")
	if err == nil {
		t.Fatal("expected error for malformed pdf")
	}
}

func TestExtractTextFromBytes_Unsupported(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}
	_, err := ExtractTextFromBytes(context.Background(), png, "image/png", "scan.png")
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestExtractTextFromBytes_Empty(t *testing.T) {
	if _, err := ExtractTextFromBytes(context.Background(), nil, "application/pdf", "a.pdf"); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
	if _, err := ExtractTextFromBytes(context.Background(), []byte("   \n  "), "text/plain", "a.txt"); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty for blank text, got %v", err)
	}
}

func TestExtractTextFromBytes_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ExtractTextFromBytes(ctx, []byte("text"), "text/plain", ""); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
