// Package intake runs the conversational agent that collects a customer
// profile and recommends policies from it.
package intake

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"policylens-backend/internal/llm"
	"policylens-backend/internal/policy"
	"policylens-backend/internal/recommendations"
	"policylens-backend/internal/shared/metrics"
	"policylens-backend/internal/shared/telemetry"
)

// Sentinel is the marker the model emits once every detail is collected.
const Sentinel = "PROFILE_COMPLETE"

const (
	OpeningMessage = "Hello! 👋 I'm your AI insurance advisor.\n\n" +
		"I'll help you find the best insurance policy by asking a few simple questions. " +
		"Just answer honestly and I'll find the best options for you.\n\n" +
		"Let's start! **What is your name?**"

	ProfileCompleteMessage = "✅ **Perfect! I have all the information I need.**\n\n" +
		"Click **Find Best Policies** below to see your personalized recommendations!"

	ProfileRetryMessage = "⚠️ I couldn't quite record your details. " +
		"Could you please confirm them once more so I can prepare your recommendations?"
)

var (
	ErrNotCollecting   = errors.New("chat is not collecting answers, start or reset it first")
	ErrProfileNotReady = errors.New("profile is not complete yet")
	ErrEmptyMessage    = errors.New("message is required")
)

// profileJSON is greedy so nested braces inside the profile stay in the match.
var profileJSON = regexp.MustCompile(`(?s)\{.*\}`)

// Agent drives one conversation per call. It holds no per-session state.
type Agent struct {
	LLM         llm.Client
	Contracts   *llm.Contracts
	Recommender *recommendations.Service
}

// NewAgent constructs an Agent.
func NewAgent(client llm.Client, contracts *llm.Contracts, recommender *recommendations.Service) *Agent {
	return &Agent{LLM: client, Contracts: contracts, Recommender: recommender}
}

// Start opens the conversation with the fixed greeting. It reports false and
// changes nothing when the conversation is already under way.
func (a *Agent) Start(conv *policy.Conversation) bool {
	if conv.State != policy.ChatNotStarted && conv.State != "" {
		return false
	}
	conv.State = policy.ChatCollecting
	conv.Transcript = append(conv.Transcript[:0], policy.Message{Role: policy.RoleAssistant, Content: OpeningMessage})
	return true
}

// Turn is the outcome of one user message.
type Turn struct {
	Reply         policy.Message
	ProfileReady  bool
	ProfileFailed bool
}

// Reply appends the user's message and the agent's answer. The transcript
// grows by exactly two entries on success and is unchanged on error.
func (a *Agent) Reply(ctx context.Context, conv *policy.Conversation, text string) (Turn, error) {
	if conv.State != policy.ChatCollecting {
		return Turn{}, ErrNotCollecting
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Turn{}, ErrEmptyMessage
	}

	contract, err := a.Contracts.Get(llm.ContractChat)
	if err != nil {
		return Turn{}, err
	}
	before := len(conv.Transcript)
	conv.Transcript = append(conv.Transcript, policy.Message{Role: policy.RoleUser, Content: text})

	req, err := contract.Converse(struct{ Sentinel string }{Sentinel: Sentinel}, conv.Transcript)
	if err != nil {
		conv.Transcript = conv.Transcript[:before]
		return Turn{}, err
	}
	reply, err := a.LLM.Complete(ctx, req)
	if err != nil {
		conv.Transcript = conv.Transcript[:before]
		return Turn{}, err
	}

	turn := a.absorb(conv, reply)
	conv.Transcript = append(conv.Transcript, turn.Reply)
	metrics.IncChatTurn(string(conv.State))
	return turn, nil
}

// absorb interprets a completion. Without the sentinel the reply is shown as
// is; with it the profile is parsed and the conversation moves on only if
// parsing succeeds.
func (a *Agent) absorb(conv *policy.Conversation, reply string) Turn {
	idx := strings.Index(reply, Sentinel)
	if idx < 0 {
		return Turn{Reply: policy.Message{Role: policy.RoleAssistant, Content: reply}}
	}

	display := strings.TrimSpace(reply[:idx])
	prefix := ""
	if display != "" {
		prefix = display + "\n\n"
	}

	profile, err := ParseProfile(reply[idx+len(Sentinel):])
	if err != nil {
		telemetry.Warn("intake.profile_parse_failed", map[string]any{
			"error":       err,
			"reply_chars": len(reply),
		})
		return Turn{
			Reply:         policy.Message{Role: policy.RoleAssistant, Content: prefix + ProfileRetryMessage},
			ProfileFailed: true,
		}
	}

	conv.State = policy.ChatProfileReady
	conv.Profile = &profile
	telemetry.Info("intake.profile_ready", map[string]any{
		"insurance_type": profile.InsuranceType.String(),
		"turns":          len(conv.Transcript),
	})
	return Turn{
		Reply:        policy.Message{Role: policy.RoleAssistant, Content: prefix + ProfileCompleteMessage},
		ProfileReady: true,
	}
}

// ParseProfile extracts the profile object that follows the sentinel.
func ParseProfile(afterSentinel string) (policy.Profile, error) {
	match := profileJSON.FindString(afterSentinel)
	if match == "" {
		return policy.Profile{}, recommendations.ErrMalformedOutput
	}
	var p policy.Profile
	if err := recommendations.DecodeJSON(match, &p); err != nil {
		return policy.Profile{}, err
	}
	return p, nil
}

// Recommend asks for four policies matching the collected profile and
// stores them on the conversation.
func (a *Agent) Recommend(ctx context.Context, conv *policy.Conversation) (policy.ProfileRecommendationSet, error) {
	if conv.State != policy.ChatProfileReady || conv.Profile == nil {
		return policy.ProfileRecommendationSet{}, ErrProfileNotReady
	}
	set, err := a.Recommender.FromProfile(ctx, *conv.Profile)
	if err != nil {
		return policy.ProfileRecommendationSet{}, err
	}
	conv.Recommendations = &set
	return set, nil
}

// Reset returns the conversation to its initial state.
func (a *Agent) Reset(conv *policy.Conversation) {
	*conv = policy.NewConversation()
}
