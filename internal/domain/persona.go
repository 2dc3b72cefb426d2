// Package domain contains core domain types for the AI Council application.
package domain

// Persona is an immutable council member identity. The set of personas is
// fixed at process start and never mutated.
type Persona struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	SystemPrompt string   `json:"-"`
	Strengths    []string `json:"strengths,omitempty"`
	BestFor      []string `json:"best_for,omitempty"`
	Icon         string   `json:"icon,omitempty"`
}
