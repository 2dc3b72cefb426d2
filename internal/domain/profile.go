package domain

import (
	"time"
)

// Preferences holds the user's advice-style preferences. Each field is a
// small enumerated string chosen in the profile form.
type Preferences struct {
	CommunicationStyle string `json:"communicationStyle"`
	DecisionMaking     string `json:"decisionMaking"`
	RiskTolerance      string `json:"riskTolerance"`
}

// UserProfile is the per-device profile record. It is saved wholesale and
// never partially persisted.
type UserProfile struct {
	Goals       []string    `json:"goals"`
	Personality string      `json:"personality"`
	PastChoices []string    `json:"pastChoices"`
	Preferences Preferences `json:"preferences"`
	LastUpdated time.Time   `json:"lastUpdated"`
}
