package main

import (
	"fmt"
	"strings"
)

// FuzzyMatchError is returned when a user-typed `run PIPELINE.TASK`
// doesn't name a known pipeline, carrying the nearest candidates for
// the error message.
type FuzzyMatchError struct {
	Target  string
	Matches []string
}

func (e *FuzzyMatchError) Error() string {
	if len(e.Matches) == 0 {
		return fmt.Sprintf("no pipeline named %q", e.Target)
	}
	return fmt.Sprintf("no pipeline named %q; did you mean one of: %s?", e.Target, strings.Join(e.Matches, ", "))
}

// findFuzzyMatches returns every name in names that contains pattern
// as a case-insensitive substring, in the order given.
func findFuzzyMatches(names []string, pattern string) []string {
	lowerPattern := strings.ToLower(pattern)
	var matches []string
	for _, name := range names {
		if strings.Contains(strings.ToLower(name), lowerPattern) {
			matches = append(matches, name)
		}
	}
	return matches
}
