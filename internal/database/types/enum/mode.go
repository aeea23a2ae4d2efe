package enum

// ListMode is a channel list-mode letter tracked by the moderation engine.
type ListMode string

const (
	// ListModeBan is the channel ban list (+b).
	ListModeBan ListMode = "b"
	// ListModeQuiet is the channel quiet list (+q).
	ListModeQuiet ListMode = "q"
	// ListModeException is the ban exception list (+e).
	ListModeException ListMode = "e"
	// ListModeInvite is the invite exception list (+I).
	ListModeInvite ListMode = "I"
)

// ListModeFromLetter returns the tracked list mode for a mode letter.
func ListModeFromLetter(letter byte) (ListMode, bool) {
	switch mode := ListMode(string(letter)); mode {
	case ListModeBan, ListModeQuiet, ListModeException, ListModeInvite:
		return mode, true
	default:
		return "", false
	}
}

// Letter returns the mode letter as a byte.
func (m ListMode) Letter() byte {
	if m == "" {
		return 0
	}
	return m[0]
}

// String returns the mode letter.
func (m ListMode) String() string {
	return string(m)
}

// Name returns a human readable name for the mode.
func (m ListMode) Name() string {
	switch m {
	case ListModeBan:
		return "ban"
	case ListModeQuiet:
		return "quiet"
	case ListModeException:
		return "exception"
	case ListModeInvite:
		return "invex"
	default:
		return "unknown"
	}
}
