package host

import (
	"fmt"
	"regexp"
)

// RegexReplaceAll compiles pattern and replaces every match in input
// with replacement, backing the `std::replace` built-in.
func (h *DefaultHost) RegexReplaceAll(pattern, input, replacement string) (string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("host: compile regex %q: %w", pattern, err)
	}
	return re.ReplaceAllString(input, replacement), nil
}
