// Package sessions stores the per-visitor analysis and chat state.
package sessions

import (
	"time"

	"policylens-backend/internal/policy"
)

// Session is everything PolicyLens knows about one visitor. Derived fields
// are recomputed from PolicyText and overwritten, never versioned.
type Session struct {
	ID              string                    `json:"id"`
	PolicyText      string                    `json:"policyText,omitempty"`
	Validation      *policy.ValidationResult  `json:"validation,omitempty"`
	Summary         string                    `json:"summary,omitempty"`
	SummaryPDF      []byte                    `json:"summaryPdf,omitempty"`
	Recommendations *policy.RecommendationSet `json:"recommendations,omitempty"`
	Quote           *policy.Quote             `json:"quote,omitempty"`
	Chat            policy.Conversation       `json:"chat"`
	CreatedAt       time.Time                 `json:"createdAt"`
	UpdatedAt       time.Time                 `json:"updatedAt"`
}

// New returns an empty session.
func New(id string, now time.Time) Session {
	now = now.UTC()
	return Session{
		ID:        id,
		Chat:      policy.NewConversation(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetPolicyText replaces the policy text and drops everything derived from
// the previous one. The chat is independent of the document and is kept.
func (s *Session) SetPolicyText(text string) {
	s.PolicyText = text
	s.Validation = nil
	s.ClearDerived()
}

// ClearDerived drops the summary, its PDF, the alternatives and the quote.
func (s *Session) ClearDerived() {
	s.Summary = ""
	s.SummaryPDF = nil
	s.Recommendations = nil
	s.Quote = nil
}

// Expired reports whether the session was last touched more than ttl ago.
func (s Session) Expired(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(s.UpdatedAt) > ttl
}

// Snapshot is the client view of a session: which artifacts exist.
type Snapshot struct {
	SessionID          string                   `json:"sessionId"`
	HasPolicyText      bool                     `json:"hasPolicyText"`
	PolicyChars        int                      `json:"policyChars"`
	Validation         *policy.ValidationResult `json:"validation,omitempty"`
	HasSummary         bool                     `json:"hasSummary"`
	HasRecommendations bool                     `json:"hasRecommendations"`
	QuoteInsurer       string                   `json:"quoteInsurer,omitempty"`
	ChatState          policy.ChatState         `json:"chatState"`
	ChatTurns          int                      `json:"chatTurns"`
	CreatedAt          time.Time                `json:"createdAt"`
	UpdatedAt          time.Time                `json:"updatedAt"`
}

// Snapshot summarises the session for GET /session.
func (s Session) Snapshot() Snapshot {
	snap := Snapshot{
		SessionID:          s.ID,
		HasPolicyText:      s.PolicyText != "",
		PolicyChars:        len([]rune(s.PolicyText)),
		Validation:         s.Validation,
		HasSummary:         s.Summary != "",
		HasRecommendations: s.Recommendations != nil,
		ChatState:          s.Chat.State,
		ChatTurns:          len(s.Chat.Transcript),
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
	if snap.ChatState == "" {
		snap.ChatState = policy.ChatNotStarted
	}
	if s.Quote != nil {
		snap.QuoteInsurer = s.Quote.Insurer
	}
	return snap
}
