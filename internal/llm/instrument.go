package llm

import (
	"context"
	"time"

	"policylens-backend/internal/shared/metrics"
	"policylens-backend/internal/shared/telemetry"
)

type instrumentedClient struct {
	base     Client
	provider string
	model    string
}

// Instrument logs and records metrics for every completion call.
func Instrument(base Client, provider, model string) Client {
	if base == nil {
		return nil
	}
	return instrumentedClient{base: base, provider: provider, model: model}
}

func (c instrumentedClient) Complete(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	out, err := c.base.Complete(ctx, req)
	elapsed := time.Since(start)
	metrics.ObserveLLM(req.Contract, elapsed, err)

	fields := map[string]any{
		"contract":     req.Contract,
		"version":      req.Version,
		"provider":     c.provider,
		"model":        c.model,
		"messages":     len(req.Messages),
		"prompt_hash":  PromptHash(req),
		"duration_ms":  elapsed.Milliseconds(),
		"output_chars": len(out),
	}
	if req.Temperature != nil {
		fields["temperature"] = *req.Temperature
	}
	if err != nil {
		fields["error"] = err.Error()
		telemetry.Error("llm.complete", fields)
		return "", err
	}
	telemetry.Info("llm.complete", fields)
	return out, nil
}
