package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"policylens-backend/internal/extract"
)

func TestReadPolicyFromStdin(t *testing.T) {
	text, err := readPolicy(context.Background(), "-", strings.NewReader("Sum insured: 5 Lakhs"))
	if err != nil {
		t.Fatalf("readPolicy: %v", err)
	}
	if text != "Sum insured: 5 Lakhs" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestReadPolicyFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.txt")
	if err := os.WriteFile(path, []byte("Room rent capped at 1%"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	text, err := readPolicy(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("readPolicy: %v", err)
	}
	if text != "Room rent capped at 1%" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestReadPolicyRejectsEmpty(t *testing.T) {
	_, err := readPolicy(context.Background(), "", bytes.NewReader(nil))
	if !errors.Is(err, extract.ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
	if _, err := readPolicy(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"), nil); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestEmitHumanIsNoop(t *testing.T) {
	done, err := emit("human", struct{}{})
	if done || err != nil {
		t.Fatalf("human format must defer to the caller, got %v %v", done, err)
	}
}

func TestRootRegistersCommands(t *testing.T) {
	root := newRootCmd()
	want := []string{"validate", "summarize", "recommend", "quote", "chat", "pdf", "email", "version"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Fatalf("command %q not registered: %v", name, err)
		}
	}
}
