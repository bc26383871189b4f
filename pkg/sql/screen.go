// Package sql screens user-supplied transformation statements before they
// are accepted into a collection rule.
package sql

import (
	"errors"
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"
)

var (
	// ErrMultipleStatements indicates the statement contains more than one
	// SQL statement. Transformation rules run a single statement only.
	ErrMultipleStatements = errors.New("multiple SQL statements not allowed")
)

// InjectionResult describes a detected injection pattern.
type InjectionResult struct {
	// Fingerprint is the libinjection fingerprint of the detected pattern,
	// useful for grouping attempts in audit logs.
	Fingerprint string
}

// Normalize trims whitespace, strips a single trailing semicolon, and
// rejects statements that still contain a semicolon outside string
// literals.
func Normalize(statement string) (string, error) {
	statement = strings.TrimSpace(statement)
	if statement == "" {
		return "", nil
	}

	normalized := strings.TrimSpace(strings.TrimSuffix(statement, ";"))
	if hasSemicolonOutsideStrings(normalized) {
		return "", ErrMultipleStatements
	}
	return normalized, nil
}

// CheckInjection runs libinjection over the statement and returns a
// non-nil result when an injection pattern is detected.
func CheckInjection(statement string) *InjectionResult {
	if statement == "" {
		return nil
	}
	if found, fingerprint := libinjection.IsSQLi(statement); found {
		return &InjectionResult{Fingerprint: string(fingerprint)}
	}
	return nil
}

// Screen normalizes the statement and checks it for injection patterns in
// one call. The returned result is nil when the statement is clean.
func Screen(statement string) (string, *InjectionResult, error) {
	normalized, err := Normalize(statement)
	if err != nil {
		return "", nil, err
	}
	return normalized, CheckInjection(normalized), nil
}

// hasSemicolonOutsideStrings walks the statement tracking single and
// double quoted literals so a semicolon inside a string does not count as
// a statement separator.
func hasSemicolonOutsideStrings(statement string) bool {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)

	state := stateNormal
	for i := 0; i < len(statement); i++ {
		c := statement[i]
		switch state {
		case stateNormal:
			switch c {
			case ';':
				return true
			case '\'':
				state = stateSingleQuote
			case '"':
				state = stateDoubleQuote
			}
		case stateSingleQuote:
			if c == '\'' {
				// Doubled quote is an escaped quote inside the literal.
				if i+1 < len(statement) && statement[i+1] == '\'' {
					i++
					continue
				}
				state = stateNormal
			}
		case stateDoubleQuote:
			if c == '"' {
				if i+1 < len(statement) && statement[i+1] == '"' {
					i++
					continue
				}
				state = stateNormal
			}
		}
	}
	return false
}
