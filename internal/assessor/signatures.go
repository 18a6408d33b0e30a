package assessor

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Signatures matches database error text in response bodies.
type Signatures struct {
	re *regexp.Regexp
}

// CompileSignatures joins patterns into one case-insensitive alternation.
func CompileSignatures(patterns []string) (*Signatures, error) {
	if len(patterns) == 0 {
		return nil, errors.New("no signature patterns")
	}
	parts := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if _, err := regexp.Compile(p); err != nil {
			return nil, fmt.Errorf("compile signature %q: %w", p, err)
		}
		parts = append(parts, "(?:"+p+")")
	}
	re, err := regexp.Compile("(?i)" + strings.Join(parts, "|"))
	if err != nil {
		return nil, fmt.Errorf("compile signatures: %w", err)
	}
	return &Signatures{re: re}, nil
}

// Match returns the first matched text in body.
func (s *Signatures) Match(body string) (bool, string) {
	if s == nil || body == "" {
		return false, ""
	}
	m := s.re.FindString(body)
	if m == "" {
		return false, ""
	}
	return true, m
}
