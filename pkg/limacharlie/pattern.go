package limacharlie

import (
	"fmt"
	"strings"
)

const (
	sigmaWildcard = '*'
	sigmaSingle   = '?'
	sigmaEscape   = '\\'
)

// CompileValue converts a sigma value, possibly with wildcards, into a D&R operator and value
//
// Leading and trailing wildcards map onto prefix, suffix and substring operators.
// Wildcards anywhere else turn the value into a regular expression.
// An escaped trailing asterisk is indistinguishable from a wildcard here, such values
// are compiled as if the asterisk was a wildcard.
func CompileValue(val interface{}, allStrings bool) (Op, interface{}) {
	s, ok := val.(string)
	if !ok {
		if allStrings {
			return OpIs, fmt.Sprintf("%v", val)
		}
		return OpIs, val
	}
	hasPrefix := strings.HasPrefix(s, string(sigmaWildcard))
	hasSuffix := strings.HasSuffix(s, string(sigmaWildcard))
	switch {
	case len(s) > 2 && strings.ContainsRune(s[1:len(s)-1], sigmaWildcard):
		return OpMatches, wildcardToRegex(s)
	case hasPrefix && hasSuffix:
		return OpContains, strings.TrimSuffix(strings.TrimPrefix(s, string(sigmaWildcard)), string(sigmaWildcard))
	case hasSuffix:
		return OpStartsWith, s[:len(s)-1]
	case hasPrefix:
		return OpEndsWith, s[1:]
	default:
		return OpIs, s
	}
}

// wildcardToRegex escapes regex metacharacters used in paths and quoted values
// then expands sigma wildcards into their regex equivalents
// Backslashes in front of a wildcard are kept, the wildcard itself is still expanded
func wildcardToRegex(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 2)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"', '.', '^', '$':
			b.WriteByte(sigmaEscape)
			b.WriteByte(c)
		case sigmaEscape:
			if i+1 < len(s) && (s[i+1] == sigmaWildcard || s[i+1] == sigmaSingle) {
				b.WriteByte(c)
				continue
			}
			b.WriteByte(sigmaEscape)
			b.WriteByte(c)
		case sigmaWildcard:
			b.WriteString(".*")
		case sigmaSingle:
			b.WriteByte('.')
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
