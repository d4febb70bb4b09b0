package formula

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	identifierPattern = regexp.MustCompile(`\b[A-Za-z_][A-Za-z0-9_]*\b`)
	ifCallPattern     = regexp.MustCompile(`(?i)\bIF\s*\(`)
	formulaAlphabet   = regexp.MustCompile(`[^A-Za-z0-9_\s+\-*/().,?:<>=!&|]`)
)

// SyntaxResult is authoring-time feedback for a formula
type SyntaxResult struct {
	IsValid            bool     `json:"is_valid"`
	Errors             []string `json:"errors,omitempty"`
	UnknownIdentifiers []string `json:"unknown_identifiers,omitempty"`
}

// ValidateSyntax checks a formula without evaluating it. It reports every
// problem it can find rather than stopping at the first one.
func ValidateSyntax(src string) SyntaxResult {
	result := SyntaxResult{IsValid: true}
	fail := func(format string, args ...interface{}) {
		result.IsValid = false
		result.Errors = append(result.Errors, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(src) == "" {
		fail("formula cannot be empty")
		return result
	}

	if loc := formulaAlphabet.FindStringIndex(src); loc != nil {
		fail("invalid character %q at position %d", src[loc[0]:loc[1]], loc[0])
	}

	balanced := true
	depth := 0
	for i, r := range src {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				fail("unexpected closing parenthesis at position %d", i)
				balanced = false
				depth = 0
			}
		}
	}
	if depth != 0 {
		fail("%d unclosed parenthesis", depth)
		balanced = false
	}

	seen := make(map[string]bool)
	for _, ident := range identifierPattern.FindAllString(src, -1) {
		if IsVariable(ident) || isIF(ident) || seen[ident] {
			continue
		}
		seen[ident] = true
		result.UnknownIdentifiers = append(result.UnknownIdentifiers, ident)
	}
	if len(result.UnknownIdentifiers) > 0 {
		fail("unknown identifiers: %s (allowed: %s, IF)",
			strings.Join(result.UnknownIdentifiers, ", "), strings.Join(Variables(), ", "))
	}

	if balanced {
		for _, loc := range ifCallPattern.FindAllStringIndex(src, -1) {
			open := loc[1] - 1
			args, ok := splitTopLevelArgs(src, open)
			if !ok {
				continue
			}
			if len(args) != 3 {
				fail("IF at position %d requires exactly 3 arguments, got %d", loc[0], len(args))
			}
		}
	}

	// structural problems the scans above cannot see, e.g. "Hours * * 2"
	if result.IsValid {
		if _, err := parse(src); err != nil {
			fail("%s", err.Error())
		}
	}

	return result
}

// splitTopLevelArgs returns the comma separated arguments of the call whose
// opening parenthesis is at index open. Commas inside nested parentheses
// belong to inner expressions and do not split.
func splitTopLevelArgs(src string, open int) ([]string, bool) {
	depth := 0
	start := open + 1
	var args []string
	for i := open; i < len(src); i++ {
		switch src[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				args = append(args, strings.TrimSpace(src[start:i]))
				return args, true
			}
		case ',':
			if depth == 1 {
				args = append(args, strings.TrimSpace(src[start:i]))
				start = i + 1
			}
		}
	}
	return nil, false
}
