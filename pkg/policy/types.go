package policy

import (
	"time"
)

// Severity represents the severity level of a policy violation.
type Severity string

const (
	// SeverityInfo is for informational messages.
	SeverityInfo Severity = "info"

	// SeverityWarning is for findings that should be reviewed.
	SeverityWarning Severity = "warning"

	// SeverityError marks a profile as failing the check.
	SeverityError Severity = "error"

	// SeverityCritical marks a profile as failing the check.
	SeverityCritical Severity = "critical"
)

func (s Severity) valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityError, SeverityCritical:
		return true
	}
	return false
}

// Blocking reports whether violations of this severity fail a check.
func (s Severity) Blocking() bool {
	return s == SeverityError || s == SeverityCritical
}

// Policy is a Rego module whose deny rules describe unmet requirements.
type Policy struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Rego        string `json:"rego" yaml:"rego"`

	// Severity applies to violations that do not carry their own.
	Severity Severity `json:"severity" yaml:"severity"`
	Enabled  bool     `json:"enabled" yaml:"enabled"`

	// Source is the file the policy was read from, empty for built-ins.
	Source string   `json:"source,omitempty" yaml:"-"`
	Tags   []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Violation is one deny result for one profile.
type Violation struct {
	Policy   string         `json:"policy"`
	Profile  string         `json:"profile"`
	Message  string         `json:"message"`
	Severity Severity       `json:"severity"`
	Details  map[string]any `json:"details,omitempty"`
}

// Result is the outcome of checking one profile.
type Result struct {
	Profile string `json:"profile"`

	// Allowed is false when any violation is blocking.
	Allowed bool `json:"allowed"`

	Violations []Violation `json:"violations,omitempty"`

	// Warnings lists policies that failed to evaluate.
	Warnings []string `json:"warnings,omitempty"`

	EvaluatedPolicies []string      `json:"evaluated_policies"`
	EvaluatedAt       time.Time     `json:"evaluated_at"`
	Duration          time.Duration `json:"duration"`
}

// Input is the document a policy sees as input.
type Input struct {
	// Profile is the registered profile name.
	Profile string `json:"profile"`

	// Caps maps every script key of the profile to its value.
	Caps map[string]any `json:"caps"`

	Context *Context `json:"context"`
}

// Context provides information about the check itself.
type Context struct {
	Timestamp time.Time `json:"timestamp"`

	Operation string `json:"operation,omitempty"`
}
