package intake

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"policylens-backend/internal/llm"
	"policylens-backend/internal/llm/llmtest"
	"policylens-backend/internal/policy"
	"policylens-backend/internal/recommendations"
)

const ashaReply = "Thank you, Asha! That's everything.\n" + Sentinel + "\n" + `{
  "name": "Asha",
  "age": 29,
  "city": "Pune",
  "occupation": "Engineer",
  "income": "12 LPA",
  "dependents": "None",
  "health_conditions": "None",
  "insurance_type": "Health",
  "coverage_needed": "10 Lakhs",
  "budget": "15000/year",
  "special_requirements": "OPD"
}`

func newAgent(fake *llmtest.Client) *Agent {
	contracts := llm.MustLoadContracts()
	return NewAgent(fake, contracts, recommendations.NewService(fake, contracts))
}

func startedConversation(a *Agent) policy.Conversation {
	conv := policy.NewConversation()
	a.Start(&conv)
	return conv
}

func TestStartOpensWithGreeting(t *testing.T) {
	a := newAgent(llmtest.New())
	conv := policy.NewConversation()

	if !a.Start(&conv) {
		t.Fatalf("expected Start to open the conversation")
	}
	if conv.State != policy.ChatCollecting {
		t.Fatalf("expected collecting, got %s", conv.State)
	}
	if len(conv.Transcript) != 1 || conv.Transcript[0].Role != policy.RoleAssistant || conv.Transcript[0].Content != OpeningMessage {
		t.Fatalf("unexpected transcript %+v", conv.Transcript)
	}
	if a.Start(&conv) {
		t.Fatalf("second Start must be a no-op")
	}
	if len(conv.Transcript) != 1 {
		t.Fatalf("second Start must not touch the transcript")
	}
}

func TestReplyGrowsTranscriptByTwo(t *testing.T) {
	fake := llmtest.New("Nice to meet you, Asha! How old are you?", "Great. Which city do you live in?", "And your occupation?")
	a := newAgent(fake)
	conv := startedConversation(a)

	for i, msg := range []string{"Asha", "29", "Pune"} {
		turn, err := a.Reply(context.Background(), &conv, msg)
		if err != nil {
			t.Fatalf("Reply %d: %v", i, err)
		}
		if turn.ProfileReady || turn.ProfileFailed {
			t.Fatalf("turn %d must not finish the profile", i)
		}
		if want := 1 + 2*(i+1); len(conv.Transcript) != want {
			t.Fatalf("after %d replies expected %d entries, got %d", i+1, want, len(conv.Transcript))
		}
	}
	if conv.State != policy.ChatCollecting {
		t.Fatalf("expected collecting, got %s", conv.State)
	}

	req := fake.Last()
	if req.Contract != llm.ContractChat {
		t.Fatalf("unexpected contract %q", req.Contract)
	}
	if req.Temperature == nil || *req.Temperature != 0.7 {
		t.Fatalf("expected temperature 0.7")
	}
	if req.Messages[0].Role != policy.RoleSystem || !strings.Contains(req.Messages[0].Content, Sentinel) {
		t.Fatalf("system prompt must carry the sentinel")
	}
	// system + greeting + 2 earlier exchanges + the new user message
	if len(req.Messages) != 1+1+4+1 {
		t.Fatalf("expected full history in request, got %d messages", len(req.Messages))
	}
	if last := req.Messages[len(req.Messages)-1]; last.Role != policy.RoleUser || last.Content != "Pune" {
		t.Fatalf("unexpected last message %+v", last)
	}
}

func TestReplyWithSentinelCompletesProfile(t *testing.T) {
	a := newAgent(llmtest.New(ashaReply))
	conv := startedConversation(a)

	turn, err := a.Reply(context.Background(), &conv, "My budget is 15000 a year and I want OPD cover")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if !turn.ProfileReady {
		t.Fatalf("expected profile ready")
	}
	if conv.State != policy.ChatProfileReady || conv.Profile == nil {
		t.Fatalf("unexpected conversation %+v", conv)
	}
	if conv.Profile.Name != "Asha" || conv.Profile.Age != "29" || conv.Profile.City != "Pune" {
		t.Fatalf("unexpected profile %+v", conv.Profile)
	}
	want := "Thank you, Asha! That's everything.\n\n" + ProfileCompleteMessage
	if turn.Reply.Content != want {
		t.Fatalf("unexpected display %q", turn.Reply.Content)
	}
	if strings.Contains(conv.Transcript[len(conv.Transcript)-1].Content, Sentinel) {
		t.Fatalf("sentinel must not be shown")
	}
}

func TestReplyAcceptsListValuedProfileFields(t *testing.T) {
	reply := Sentinel + "\n" + `{"name": "Ravi", "age": 41, "dependents": ["wife", "son"], "health_conditions": ["diabetes"]}`
	a := newAgent(llmtest.New(reply))
	conv := startedConversation(a)

	turn, err := a.Reply(context.Background(), &conv, "That's all")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if !turn.ProfileReady || conv.Profile == nil {
		t.Fatalf("expected profile ready, got %+v", turn)
	}
	if conv.Profile.Dependents != "wife, son" || conv.Profile.HealthConditions != "diabetes" {
		t.Fatalf("unexpected profile %+v", conv.Profile)
	}
}

func TestReplyWithBareSentinel(t *testing.T) {
	a := newAgent(llmtest.New(Sentinel + "\n" + `{"name": "Ravi", "insurance_type": "Life"}`))
	conv := startedConversation(a)

	turn, err := a.Reply(context.Background(), &conv, "done")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if turn.Reply.Content != ProfileCompleteMessage {
		t.Fatalf("unexpected display %q", turn.Reply.Content)
	}
}

func TestReplyWithUnparseableProfileKeepsCollecting(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{name: "no json", reply: "Got it!\n" + Sentinel + "\nI'll prepare things now."},
		{name: "broken json", reply: Sentinel + "\n{\"name\": \"Asha\", \"age\": }"},
		{name: "wrong type", reply: Sentinel + "\n{\"name\": [\"Asha\"]}"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			a := newAgent(llmtest.New(tt.reply))
			conv := startedConversation(a)

			turn, err := a.Reply(context.Background(), &conv, "that's all")
			if err != nil {
				t.Fatalf("Reply: %v", err)
			}
			if !turn.ProfileFailed || turn.ProfileReady {
				t.Fatalf("expected a failed profile turn, got %+v", turn)
			}
			if conv.State != policy.ChatCollecting || conv.Profile != nil {
				t.Fatalf("conversation must keep collecting, got %+v", conv)
			}
			if len(conv.Transcript) != 3 {
				t.Fatalf("expected 3 entries, got %d", len(conv.Transcript))
			}
			if !strings.HasSuffix(turn.Reply.Content, ProfileRetryMessage) {
				t.Fatalf("expected retry prompt, got %q", turn.Reply.Content)
			}
		})
	}
}

func TestReplyRollsBackOnTransportError(t *testing.T) {
	fake := llmtest.New().Push(llmtest.Reply{Err: errors.New("connection reset")})
	a := newAgent(fake)
	conv := startedConversation(a)

	if _, err := a.Reply(context.Background(), &conv, "Asha"); err == nil {
		t.Fatalf("expected error")
	}
	if len(conv.Transcript) != 1 || conv.State != policy.ChatCollecting {
		t.Fatalf("transcript must be unchanged, got %+v", conv)
	}
}

func TestReplyRequiresCollecting(t *testing.T) {
	fake := llmtest.New()
	a := newAgent(fake)

	conv := policy.NewConversation()
	if _, err := a.Reply(context.Background(), &conv, "hi"); !errors.Is(err, ErrNotCollecting) {
		t.Fatalf("expected ErrNotCollecting, got %v", err)
	}
	conv = startedConversation(a)
	if _, err := a.Reply(context.Background(), &conv, "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if fake.Calls() != 0 {
		t.Fatalf("no completion expected, got %d", fake.Calls())
	}
}

func TestRecommendNeedsProfile(t *testing.T) {
	fake := llmtest.New()
	a := newAgent(fake)
	conv := startedConversation(a)

	if _, err := a.Recommend(context.Background(), &conv); !errors.Is(err, ErrProfileNotReady) {
		t.Fatalf("expected ErrProfileNotReady, got %v", err)
	}
	if fake.Calls() != 0 {
		t.Fatalf("no completion expected")
	}
}

func TestRecommendStoresSet(t *testing.T) {
	alts := []string{}
	for _, ins := range []string{"Star Health", "HDFC Ergo", "Care Health", "Niva Bupa"} {
		alts = append(alts, `{"insurer": "`+ins+`", "product": "Plan", "why_perfect": "Fits budget", "estimated_premium": "₹12,000", "sum_insured": "10 Lakhs", "advantages": ["OPD"], "weakness": "Waiting period", "rating": 4.3, "claim_settlement_ratio": "95%"}`)
	}
	set := `{"customer_name": "Asha", "insurance_type": "Health", "alternatives": [` + strings.Join(alts, ",") + `]}`
	fake := llmtest.New(ashaReply, set)
	a := newAgent(fake)
	conv := startedConversation(a)
	if _, err := a.Reply(context.Background(), &conv, "done"); err != nil {
		t.Fatalf("Reply: %v", err)
	}

	got, err := a.Recommend(context.Background(), &conv)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if got.CustomerName != "Asha" || len(got.Alternatives) != 4 {
		t.Fatalf("unexpected set %+v", got)
	}
	if conv.Recommendations == nil || conv.State != policy.ChatProfileReady {
		t.Fatalf("recommendations must be stored, state kept")
	}
	prompt := fake.Last().Messages[len(fake.Last().Messages)-1].Content
	if !strings.Contains(prompt, "- City: Pune") {
		t.Fatalf("prompt must carry the profile:\n%s", prompt)
	}
}

func TestResetRestoresInitialState(t *testing.T) {
	a := newAgent(llmtest.New(ashaReply))
	conv := startedConversation(a)
	if _, err := a.Reply(context.Background(), &conv, "done"); err != nil {
		t.Fatalf("Reply: %v", err)
	}

	a.Reset(&conv)
	if !reflect.DeepEqual(conv, policy.NewConversation()) {
		t.Fatalf("expected a fresh conversation, got %+v", conv)
	}
}

func TestParseProfileTakesOutermostObject(t *testing.T) {
	p, err := ParseProfile("\n```json\n{\"name\": \"Asha\", \"special_requirements\": \"{maternity}\"}\n```")
	if err != nil {
		t.Fatalf("ParseProfile: %v", err)
	}
	if p.Name != "Asha" || p.SpecialRequirements != "{maternity}" {
		t.Fatalf("unexpected profile %+v", p)
	}
	if _, err := ParseProfile("no object here"); !errors.Is(err, recommendations.ErrMalformedOutput) {
		t.Fatalf("expected ErrMalformedOutput, got %v", err)
	}
}
