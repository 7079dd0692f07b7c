package policy

// ChatState is the intake conversation's position.
type ChatState string

const (
	ChatNotStarted   ChatState = "not_started"
	ChatCollecting   ChatState = "collecting"
	ChatProfileReady ChatState = "profile_ready"
)

// Message is one transcript entry.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Profile is the customer record the intake agent collects.
type Profile struct {
	Name                FlexString `json:"name"`
	Age                 FlexString `json:"age"`
	City                FlexString `json:"city"`
	Occupation          FlexString `json:"occupation"`
	Income              FlexString `json:"income"`
	Dependents          FlexString `json:"dependents"`
	HealthConditions    FlexString `json:"health_conditions"`
	InsuranceType       FlexString `json:"insurance_type"`
	CoverageNeeded      FlexString `json:"coverage_needed"`
	Budget              FlexString `json:"budget"`
	SpecialRequirements FlexString `json:"special_requirements"`
}

// WithDefaults fills blank fields with the placeholders used in prompts.
func (p Profile) WithDefaults() Profile {
	const na = "N/A"
	return Profile{
		Name:                FlexString(p.Name.Or("Customer")),
		Age:                 FlexString(p.Age.Or(na)),
		City:                FlexString(p.City.Or("India")),
		Occupation:          FlexString(p.Occupation.Or(na)),
		Income:              FlexString(p.Income.Or(na)),
		Dependents:          FlexString(p.Dependents.Or(na)),
		HealthConditions:    FlexString(p.HealthConditions.Or("None")),
		InsuranceType:       FlexString(p.InsuranceType.Or("Health")),
		CoverageNeeded:      FlexString(p.CoverageNeeded.Or(na)),
		Budget:              FlexString(p.Budget.Or(na)),
		SpecialRequirements: FlexString(p.SpecialRequirements.Or("None")),
	}
}

// Conversation is the intake chat state held on a session.
type Conversation struct {
	State           ChatState                 `json:"state"`
	Transcript      []Message                 `json:"transcript,omitempty"`
	Profile         *Profile                  `json:"profile,omitempty"`
	Recommendations *ProfileRecommendationSet `json:"recommendations,omitempty"`
}

// NewConversation returns a conversation that has not been started.
func NewConversation() Conversation {
	return Conversation{State: ChatNotStarted}
}
