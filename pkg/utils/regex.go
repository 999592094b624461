package utils

import (
	"regexp"
)

// CompileIgnorePatterns compiles the configured ignore patterns into
// case-insensitive *regexp.Regexp objects. Returns an error if any pattern is
// invalid; empty patterns are skipped silently.
func CompileIgnorePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for i, pattern := range patterns {
		if pattern == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, WrapErrorf(ErrConfigValidation, "invalid ignore pattern #%d ('%s')", i+1, pattern)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}
