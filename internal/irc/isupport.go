package irc

import (
	"strconv"
	"strings"
)

// Defaults used until the server advertises its own values.
const (
	DefaultModes     = 3
	DefaultChanModes = "eIbq,k,flj,CFLMPQScgimnprstuz"
	DefaultPrefix    = "(ov)@+"
	DefaultChanTypes = "#&"
)

// ISupport holds the server features the session relies on.
type ISupport struct {
	// Modes is the maximum number of argument modes per MODE command.
	Modes int
	// ChanModes holds the A, B, C and D channel mode groups.
	ChanModes [4]string
	// PrefixModes are the membership modes, highest first.
	PrefixModes string
	// PrefixSymbols are the NAMES symbols matching PrefixModes.
	PrefixSymbols string
	// ChanTypes are the characters that start a channel name.
	ChanTypes   string
	CaseMapping CaseMapping
}

// NewISupport returns the feature set assumed before 005 arrives.
func NewISupport() ISupport {
	s := ISupport{
		Modes:       DefaultModes,
		ChanTypes:   DefaultChanTypes,
		CaseMapping: CaseMappingRFC1459,
	}
	s.setChanModes(DefaultChanModes)
	s.setPrefix(DefaultPrefix)
	return s
}

// Apply updates the feature set from the parameters of a 005 reply.
// The first parameter (our nick) and the trailing text are skipped.
func (s *ISupport) Apply(params []string) {
	if len(params) < 2 {
		return
	}

	defaults := NewISupport()
	for _, token := range params[1 : len(params)-1] {
		negated := strings.HasPrefix(token, "-")
		name, value, _ := strings.Cut(strings.TrimPrefix(token, "-"), "=")

		switch strings.ToUpper(name) {
		case "MODES":
			s.Modes = defaults.Modes
			if n, err := strconv.Atoi(value); err == nil && n > 0 && !negated {
				s.Modes = n
			}
		case "CHANMODES":
			if negated || value == "" {
				s.ChanModes = defaults.ChanModes
				continue
			}
			s.setChanModes(value)
		case "PREFIX":
			if negated {
				s.PrefixModes, s.PrefixSymbols = defaults.PrefixModes, defaults.PrefixSymbols
				continue
			}
			s.setPrefix(value)
		case "CHANTYPES":
			if negated {
				s.ChanTypes = defaults.ChanTypes
				continue
			}
			s.ChanTypes = value
		case "CASEMAPPING":
			if negated {
				s.CaseMapping = defaults.CaseMapping
				continue
			}
			s.CaseMapping = ParseCaseMapping(value)
		}
	}
}

// ModeTakesArg reports whether a channel mode letter consumes an argument
// when set (adding) or unset.
func (s *ISupport) ModeTakesArg(mode byte, adding bool) bool {
	if strings.IndexByte(s.PrefixModes, mode) >= 0 {
		return true
	}

	switch {
	case strings.IndexByte(s.ChanModes[0], mode) >= 0:
		return true
	case strings.IndexByte(s.ChanModes[1], mode) >= 0:
		return true
	case strings.IndexByte(s.ChanModes[2], mode) >= 0:
		return adding
	default:
		return false
	}
}

// IsPrefixMode reports whether mode is a membership mode such as o or v.
func (s *ISupport) IsPrefixMode(mode byte) bool {
	return strings.IndexByte(s.PrefixModes, mode) >= 0
}

// ModeForSymbol returns the membership mode for a NAMES prefix symbol.
func (s *ISupport) ModeForSymbol(symbol byte) (byte, bool) {
	i := strings.IndexByte(s.PrefixSymbols, symbol)
	if i < 0 || i >= len(s.PrefixModes) {
		return 0, false
	}
	return s.PrefixModes[i], true
}

// IsChannel reports whether name is a channel name.
func (s *ISupport) IsChannel(name string) bool {
	return name != "" && strings.IndexByte(s.ChanTypes, name[0]) >= 0
}

func (s *ISupport) setChanModes(value string) {
	var groups [4]string
	copy(groups[:], strings.SplitN(value, ",", 4))
	s.ChanModes = groups
}

// setPrefix parses a PREFIX value like "(ov)@+". Malformed values are ignored.
func (s *ISupport) setPrefix(value string) {
	if value == "" {
		s.PrefixModes, s.PrefixSymbols = "", ""
		return
	}

	modes, symbols, ok := strings.Cut(strings.TrimPrefix(value, "("), ")")
	if !ok || !strings.HasPrefix(value, "(") || len(modes) != len(symbols) {
		return
	}

	s.PrefixModes, s.PrefixSymbols = modes, symbols
}
