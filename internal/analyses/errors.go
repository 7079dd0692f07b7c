package analyses

import "errors"

var (
	ErrEmptyText = errors.New("policy text is required")
	ErrNoSummary = errors.New("no summary yet, analyze a policy first")
)

const (
	tooShortReason     = "The text is too short to be an insurance policy."
	defaultFailReason  = "Document does not appear to be an insurance policy"
	validPolicyReason  = "Valid insurance document"
	minPolicyTextChars = 100
)
