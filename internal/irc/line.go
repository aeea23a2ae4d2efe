package irc

import (
	"strings"

	"github.com/ergochat/irc-go/ircmsg"
)

// Line is a parsed protocol line.
type Line struct {
	ircmsg.Message
}

// ParseLine parses a raw line with or without its trailing CRLF.
func ParseLine(raw string) (Line, error) {
	msg, err := ircmsg.ParseLine(strings.TrimRight(raw, "\r\n"))
	if err != nil {
		return Line{}, err
	}
	return Line{Message: msg}, nil
}

// NewLine builds a line from its parts.
func NewLine(tags map[string]string, source, command string, params ...string) Line {
	return Line{Message: ircmsg.MakeMessage(tags, source, command, params...)}
}

// Nick returns the nickname part of the line source.
func (l Line) Nick() string {
	return SourceNick(l.Source)
}

// Param returns the i-th parameter or an empty string.
func (l Line) Param(i int) string {
	if i < 0 || i >= len(l.Params) {
		return ""
	}
	return l.Params[i]
}

// Tag returns the value of a message tag.
func (l Line) Tag(name string) (string, bool) {
	present, value := l.GetTag(name)
	return value, present
}

// Account returns the services account carried by the account tag.
func (l Line) Account() (string, bool) {
	account, ok := l.Tag("account")
	if !ok || account == "" || account == "*" {
		return "", false
	}
	return account, true
}

// SourceNick extracts the nickname from a nick!user@host source.
func SourceNick(source string) string {
	nick, _, _ := strings.Cut(source, "!")
	nick, _, _ = strings.Cut(nick, "@")
	return nick
}
