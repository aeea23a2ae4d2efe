package irc

import "strings"

// channelState is the roster of a joined channel.
type channelState struct {
	name    string
	members map[string]*member // keyed by folded nick
}

type member struct {
	nick  string
	modes string
}

// state is the session view of the network. It is guarded by Session.mu.
type state struct {
	nick       string
	source     string
	registered bool
	isupport   ISupport
	channels   map[string]*channelState // keyed by folded name
}

func newState(nick string) *state {
	return &state{
		nick:     nick,
		isupport: NewISupport(),
		channels: make(map[string]*channelState),
	}
}

func (st *state) fold(s string) string {
	return st.isupport.CaseMapping.Fold(s)
}

func (st *state) isMe(nick string) bool {
	return st.fold(nick) == st.fold(st.nick)
}

func (st *state) channel(name string) *channelState {
	return st.channels[st.fold(name)]
}

func (st *state) join(channel, nick string) {
	if st.isMe(nick) {
		st.channels[st.fold(channel)] = &channelState{
			name:    channel,
			members: map[string]*member{st.fold(nick): {nick: nick}},
		}
		return
	}

	if ch := st.channel(channel); ch != nil {
		ch.members[st.fold(nick)] = &member{nick: nick}
	}
}

func (st *state) part(channel, nick string) {
	if st.isMe(nick) {
		delete(st.channels, st.fold(channel))
		return
	}

	if ch := st.channel(channel); ch != nil {
		delete(ch.members, st.fold(nick))
	}
}

func (st *state) quit(nick string) {
	folded := st.fold(nick)
	for _, ch := range st.channels {
		delete(ch.members, folded)
	}
}

func (st *state) rename(oldNick, newNick string) {
	if st.isMe(oldNick) {
		st.nick = newNick
		if _, rest, ok := strings.Cut(st.source, "!"); ok {
			st.source = newNick + "!" + rest
		}
	}

	oldFolded, newFolded := st.fold(oldNick), st.fold(newNick)
	for _, ch := range st.channels {
		if m, ok := ch.members[oldFolded]; ok {
			delete(ch.members, oldFolded)
			m.nick = newNick
			ch.members[newFolded] = m
		}
	}
}

// names adds the members listed in a 353 reply, keeping their prefix modes.
func (st *state) names(channel, list string) {
	ch := st.channel(channel)
	if ch == nil {
		return
	}

	for _, entry := range strings.Fields(list) {
		var modes strings.Builder
		for entry != "" {
			mode, ok := st.isupport.ModeForSymbol(entry[0])
			if !ok {
				break
			}
			modes.WriteByte(mode)
			entry = entry[1:]
		}

		nick := SourceNick(entry)
		if nick == "" {
			continue
		}
		ch.members[st.fold(nick)] = &member{nick: nick, modes: modes.String()}
	}
}

// mode applies the membership changes of a channel MODE line.
func (st *state) mode(channel string, params []string) {
	ch := st.channel(channel)
	if ch == nil || len(params) == 0 {
		return
	}

	for _, change := range ParseModeChanges(st.isupport.ModeTakesArg, params[0], params[1:]) {
		if !st.isupport.IsPrefixMode(change.Mode) || !change.HasArg {
			continue
		}

		m, ok := ch.members[st.fold(change.Arg)]
		if !ok {
			continue
		}

		has := strings.IndexByte(m.modes, change.Mode) >= 0
		switch {
		case change.Adding && !has:
			m.modes += string(change.Mode)
		case !change.Adding && has:
			m.modes = strings.ReplaceAll(m.modes, string(change.Mode), "")
		}
	}
}

func (st *state) hasMemberMode(channel, nick string, mode byte) bool {
	ch := st.channel(channel)
	if ch == nil {
		return false
	}
	m, ok := ch.members[st.fold(nick)]
	return ok && strings.IndexByte(m.modes, mode) >= 0
}
