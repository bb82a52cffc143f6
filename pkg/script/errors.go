package script

import (
	"fmt"
	"strings"
)

// ErrorClass classifies why a script failed to decode.
type ErrorClass string

const (
	// ErrorClassStructural covers malformed headers, misplaced braces and
	// blocks cut short by the end of input.
	ErrorClassStructural ErrorClass = "structural"

	// ErrorClassValue means a known key carried a value that does not convert
	// to the key's type.
	ErrorClassValue ErrorClass = "value"

	// ErrorClassUnknownKey means a body line used a key outside the key table
	// while the decoder was rejecting unknown keys.
	ErrorClassUnknownKey ErrorClass = "unknown_key"
)

// Sentinels for errors.Is. They match any ScriptError of the same class.
var (
	ErrStructural = &ScriptError{Class: ErrorClassStructural}
	ErrValue      = &ScriptError{Class: ErrorClassValue}
	ErrUnknownKey = &ScriptError{Class: ErrorClassUnknownKey}
)

// ScriptError describes a decode failure and where it happened.
type ScriptError struct {
	// Class is the failure classification.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Source names the resource being decoded, if known.
	Source string `json:"source,omitempty"`

	// Line is the 1-based line number of the offending line, 0 if unknown.
	Line int `json:"line,omitempty"`

	// Key is the body key involved, if any.
	Key string `json:"key,omitempty"`

	// Err is the underlying conversion error, if any.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *ScriptError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] ", e.Class)
	if e.Source != "" {
		b.WriteString(e.Source)
		if e.Line > 0 {
			fmt.Fprintf(&b, ":%d", e.Line)
		}
		b.WriteString(": ")
	} else if e.Line > 0 {
		fmt.Fprintf(&b, "line %d: ", e.Line)
	}
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error for error chain inspection.
func (e *ScriptError) Unwrap() error {
	return e.Err
}

// Is matches another ScriptError of the same class. A target with a Key set
// also requires the key to match.
func (e *ScriptError) Is(target error) bool {
	t, ok := target.(*ScriptError)
	if !ok {
		return false
	}
	if e.Class != t.Class {
		return false
	}
	return t.Key == "" || t.Key == e.Key
}

// NewStructuralError creates a structural error at line.
func NewStructuralError(line int, message string) *ScriptError {
	return &ScriptError{
		Class:   ErrorClassStructural,
		Message: message,
		Line:    line,
	}
}

// NewValueError creates a value error for key at line.
func NewValueError(line int, key, message string, err error) *ScriptError {
	return &ScriptError{
		Class:   ErrorClassValue,
		Message: message,
		Line:    line,
		Key:     key,
		Err:     err,
	}
}

// NewUnknownKeyError creates an unknown-key error for key at line.
func NewUnknownKeyError(line int, key string) *ScriptError {
	return &ScriptError{
		Class:   ErrorClassUnknownKey,
		Message: fmt.Sprintf("unknown key %q", key),
		Line:    line,
		Key:     key,
	}
}

// WithSource sets the resource name reported by the error.
func (e *ScriptError) WithSource(source string) *ScriptError {
	e.Source = source
	return e
}
