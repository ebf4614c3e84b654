package document

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"
)

// ValidationError reports why a candidate document was rejected.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ValidationError struct {
	Reason string
	cause  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("document validation failed: %s", e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.cause }

// Validate performs the structural check applied to untrusted bytes before
// they are accepted as a document. Rules, first failure wins:
//
//  1. the candidate is a JSON object
//  2. the profile, education and experience keys are present
//  3. the profile section is an object
//  4. the education and experience sections are arrays
//
// Validate is intentionally permissive beyond structure: older or partial
// documents must survive it so the recovery path can accept them, while
// garbage is still rejected cheaply.
func Validate(data []byte) error {
	var sections map[string]json.RawMessage
	if err := json.Unmarshal(data, &sections); err != nil {
		return &ValidationError{Reason: "candidate is not a JSON object", cause: err}
	}
	if sections == nil {
		return &ValidationError{Reason: "candidate is null"}
	}

	for _, key := range []string{"profile", "education", "experience"} {
		if _, ok := sections[key]; !ok {
			return &ValidationError{Reason: fmt.Sprintf("missing required section %q", key)}
		}
	}

	if tok := firstToken(sections["profile"]); tok != '{' {
		return &ValidationError{Reason: "profile section is not an object"}
	}
	for _, key := range []string{"education", "experience"} {
		if tok := firstToken(sections[key]); tok != '[' {
			return &ValidationError{Reason: fmt.Sprintf("%s section is not an array", key)}
		}
	}

	return nil
}

// firstToken returns the first non-whitespace byte of a raw JSON value,
// or 0 when the value is empty.
func firstToken(raw json.RawMessage) byte {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}
