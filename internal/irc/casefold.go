package irc

import "strings"

// CaseMapping selects how names are compared, as advertised by CASEMAPPING.
type CaseMapping int

const (
	// CaseMappingRFC1459 folds A-Z and []\~ to a-z and {}|^.
	CaseMappingRFC1459 CaseMapping = iota
	// CaseMappingStrictRFC1459 folds A-Z and []\ to a-z and {}|.
	CaseMappingStrictRFC1459
	// CaseMappingASCII folds A-Z only.
	CaseMappingASCII
)

// ParseCaseMapping returns the mapping for a CASEMAPPING token value.
// Unknown values fall back to rfc1459.
func ParseCaseMapping(name string) CaseMapping {
	switch strings.ToLower(name) {
	case "ascii":
		return CaseMappingASCII
	case "strict-rfc1459":
		return CaseMappingStrictRFC1459
	default:
		return CaseMappingRFC1459
	}
}

// String returns the CASEMAPPING token value.
func (c CaseMapping) String() string {
	switch c {
	case CaseMappingASCII:
		return "ascii"
	case CaseMappingStrictRFC1459:
		return "strict-rfc1459"
	default:
		return "rfc1459"
	}
}

// Fold lowercases s according to the mapping.
func (c CaseMapping) Fold(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case c == CaseMappingASCII:
			return r
		case r == '[':
			return '{'
		case r == ']':
			return '}'
		case r == '\\':
			return '|'
		case r == '~' && c == CaseMappingRFC1459:
			return '^'
		default:
			return r
		}
	}, s)
}
