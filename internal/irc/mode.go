package irc

// ModeChange is one letter of a MODE command with its argument.
type ModeChange struct {
	Adding bool
	Mode   byte
	Arg    string
	HasArg bool
}

// TakesArgFunc reports whether a mode letter consumes an argument.
type TakesArgFunc func(mode byte, adding bool) bool

// ParseModeChanges walks a mode string tracking polarity and pairs each letter
// with an argument when takesArg says it has one. Arguments are consumed left
// to right; a letter whose argument is missing gets none.
func ParseModeChanges(takesArg TakesArgFunc, modes string, args []string) []ModeChange {
	changes := make([]ModeChange, 0, len(modes))

	adding := true
	for i := range len(modes) {
		switch c := modes[i]; c {
		case '+':
			adding = true
		case '-':
			adding = false
		default:
			change := ModeChange{Adding: adding, Mode: c}
			if takesArg(c, adding) && len(args) > 0 {
				change.Arg, change.HasArg = args[0], true
				args = args[1:]
			}
			changes = append(changes, change)
		}
	}

	return changes
}
