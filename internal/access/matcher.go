package access

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// WildcardSegment stands for exactly one non-empty path segment.
const WildcardSegment = "[id]"

const segmentClass = "[^/]+"

var ErrInvalidPattern = errors.New("access: invalid path pattern")

// Match reports whether path satisfies pattern. Equal strings always match;
// otherwise every [id] in the pattern matches one non-slash segment and the
// whole path has to match. There is no prefix matching.
func Match(path, pattern string) bool {
	if path == pattern {
		return true
	}
	if !strings.Contains(pattern, WildcardSegment) {
		return false
	}
	re, err := compilePattern(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(path)
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	parts := strings.Split(pattern, WildcardSegment)
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}
	return regexp.Compile("^" + strings.Join(parts, segmentClass) + "$")
}

// Pattern is a validated, precompiled path pattern.
type Pattern struct {
	raw string
	re  *regexp.Regexp
}

// ParsePattern accepts absolute paths with at most one wildcard, and only as a whole segment.
func ParsePattern(raw string) (Pattern, error) {
	if !strings.HasPrefix(raw, "/") {
		return Pattern{}, fmt.Errorf("%w: %q must start with /", ErrInvalidPattern, raw)
	}

	switch strings.Count(raw, WildcardSegment) {
	case 0:
		return Pattern{raw: raw}, nil
	case 1:
	default:
		return Pattern{}, fmt.Errorf("%w: %q has more than one %s", ErrInvalidPattern, raw, WildcardSegment)
	}

	for _, segment := range strings.Split(raw, "/") {
		if strings.Contains(segment, WildcardSegment) && segment != WildcardSegment {
			return Pattern{}, fmt.Errorf("%w: %q mixes %s with literal text", ErrInvalidPattern, raw, WildcardSegment)
		}
	}

	re, err := compilePattern(raw)
	if err != nil {
		return Pattern{}, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	return Pattern{raw: raw, re: re}, nil
}

func (p Pattern) Matches(path string) bool {
	if path == p.raw {
		return true
	}
	if p.re == nil {
		return false
	}
	return p.re.MatchString(path)
}

func (p Pattern) String() string {
	return p.raw
}
