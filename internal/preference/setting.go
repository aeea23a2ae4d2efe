package preference

import (
	"math"
	"strings"
	"time"
)

// Scope is a bit set of the contexts a setting may be used in.
type Scope uint8

const (
	// ScopeGlobal allows a bot-wide value.
	ScopeGlobal Scope = 1 << iota
	// ScopeChannel allows per-channel values.
	ScopeChannel
)

// Has reports whether every bit of other is set.
func (s Scope) Has(other Scope) bool {
	return s&other == other
}

// String lists the scopes, e.g. "global, channel".
func (s Scope) String() string {
	var parts []string
	if s.Has(ScopeGlobal) {
		parts = append(parts, "global")
	}
	if s.Has(ScopeChannel) {
		parts = append(parts, "channel")
	}
	return strings.Join(parts, ", ")
}

// Setting describes a runtime setting.
type Setting struct {
	Key         string
	Description string
	Default     any
	Scope       Scope
	Restricted  bool // Only administrators may change the value
	Codec       Codec
}

// Setting keys known to the bot.
const (
	KeyReportChannel  = "reportChannel"
	KeyAutoExpire     = "autoExpire"
	KeyReportOn       = "reportOn"
	KeyRequestComment = "requestComment"
	KeyOpTimeout      = "opTimeout"
)

// MaxAutoExpire is the largest autoExpire, in seconds, that fits a time.Duration.
const MaxAutoExpire = int64(math.MaxInt64 / time.Second)

// Report kinds accepted by the reportOn setting.
const (
	ReportNew     = "new"
	ReportExpired = "exp"
	ReportRemoved = "rem"
)
