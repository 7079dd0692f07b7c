package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/briandowns/spinner"

	"policylens-backend/internal/analyses"
	"policylens-backend/internal/bootstrap"
	"policylens-backend/internal/extract"
	"policylens-backend/internal/intake"
	"policylens-backend/internal/llm"
	"policylens-backend/internal/mail"
	"policylens-backend/internal/recommendations"
	"policylens-backend/internal/shared/config"
	"policylens-backend/internal/shared/telemetry"
)

type globalOptions struct {
	file     string
	output   string
	provider string
	model    string
}

// runtime bundles the services a command needs.
type runtime struct {
	cfg             config.Config
	analyses        *analyses.Service
	recommendations *recommendations.Service
	agent           *intake.Agent
	mailer          *mail.Sender
}

func newRuntime(opts *globalOptions) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if opts.provider != "" {
		cfg.LLMProvider = strings.ToLower(strings.TrimSpace(opts.provider))
	}
	if opts.model != "" {
		cfg.LLMModel = opts.model
	}
	// Keep request logs off the terminal unless asked for.
	if os.Getenv("LOG_LEVEL") == "" {
		cfg.LogLevel = "error"
	}
	telemetry.Init(cfg.Env, cfg.LogLevel)

	client, err := bootstrap.NewLLMClient(cfg)
	if err != nil {
		return nil, err
	}
	contracts, err := llm.LoadContracts(cfg.PromptsFile)
	if err != nil {
		return nil, err
	}
	recs := recommendations.NewService(client, contracts)
	return &runtime{
		cfg:             cfg,
		analyses:        analyses.NewService(client, contracts),
		recommendations: recs,
		agent:           intake.NewAgent(client, contracts, recs),
		mailer: mail.NewSender(mail.Options{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.GmailAddress,
			Password: cfg.GmailAppPassword,
		}),
	}, nil
}

// readPolicy loads policy text from a PDF or text file, or from stdin.
func readPolicy(ctx context.Context, path string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
		name string
	)
	if path == "" || path == "-" {
		data, err = io.ReadAll(stdin)
		name = "stdin.txt"
	} else {
		data, err = os.ReadFile(path)
		name = filepath.Base(path)
	}
	if err != nil {
		return "", fmt.Errorf("read policy: %w", err)
	}
	res, err := extract.ExtractTextFromBytes(ctx, data, "", name)
	if err != nil {
		return "", fmt.Errorf("extract policy text: %w", err)
	}
	return res.Text, nil
}

// step runs fn behind a spinner and prints a tick or cross when it returns.
func step(label string, fn func() error) error {
	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + label + "..."
	s.Start()
	err := fn()
	s.Stop()
	if err != nil {
		printFailure(label)
		return err
	}
	printSuccess(label)
	return nil
}
