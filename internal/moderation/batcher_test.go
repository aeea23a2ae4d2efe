package moderation_test

import (
	"strings"
	"testing"

	"github.com/robalyx/warden/internal/irc"
	"github.com/robalyx/warden/internal/moderation"
	"github.com/robalyx/warden/internal/preference"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSplitBatches(t *testing.T) {
	t.Parallel()

	session := newFakeSession()

	tests := []struct {
		name  string
		modes string
		args  []string
		size  int
		add   bool
		want  []moderation.ModeCommand
	}{
		{
			name:  "exact multiple",
			modes: "bbbbbb",
			args:  []string{"1", "2", "3", "4", "5", "6"},
			size:  3,
			want: []moderation.ModeCommand{
				{Modes: "-bbb", Args: []string{"1", "2", "3"}},
				{Modes: "-bbb", Args: []string{"4", "5", "6"}},
			},
		},
		{
			name:  "remainder",
			modes: "bqbqb",
			args:  []string{"1", "2", "3", "4", "5"},
			size:  4,
			add:   true,
			want: []moderation.ModeCommand{
				{Modes: "+bqbq", Args: []string{"1", "2", "3", "4"}},
				{Modes: "+b", Args: []string{"5"}},
			},
		},
		{
			name:  "argumentless letters keep pairing",
			modes: "bmb",
			args:  []string{"1", "2"},
			size:  2,
			add:   true,
			want: []moderation.ModeCommand{
				{Modes: "+bm", Args: []string{"1"}},
				{Modes: "+b", Args: []string{"2"}},
			},
		},
		{
			name:  "single letter batches",
			modes: "qq",
			args:  []string{"1", "2"},
			size:  0,
			want: []moderation.ModeCommand{
				{Modes: "-q", Args: []string{"1"}},
				{Modes: "-q", Args: []string{"2"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			changes := moderation.PairModes(session, tt.add, tt.modes, tt.args)
			got := moderation.SplitBatches(tt.add, changes, tt.size)
			assert.Equal(t, tt.want, got)

			// Concatenating the batches gives back the input in order
			var modes strings.Builder
			var args []string
			for _, cmd := range got {
				modes.WriteString(cmd.Modes[1:])
				args = append(args, cmd.Args...)
			}
			assert.Equal(t, tt.modes, modes.String())
			assert.Equal(t, tt.args, args)

			size := max(tt.size, 1)
			assert.Len(t, got, (len(tt.modes)+size-1)/size)
		})
	}
}

func TestBatcherApply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		add        bool
		haveOp     bool
		chanServOp bool
		wantModes  []string
		wantOpReq  bool
	}{
		{
			name:      "adding never asks for op",
			add:       true,
			wantModes: []string{"+bqb", "+b"},
		},
		{
			name:      "removing with op",
			haveOp:    true,
			wantModes: []string{"-bqb", "-b"},
		},
		{
			name:       "removing after services grant op",
			chanServOp: true,
			wantModes:  []string{"-bqb", "-bo"},
			wantOpReq:  true,
		},
		{
			name:      "removing when services stay silent",
			wantModes: []string{"-bqb", "-b"},
			wantOpReq: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := t.Context()
			_, prefs := newEnv(t)
			require.NoError(t, prefs.Set(ctx, preference.KeyOpTimeout, "0.1", "", true))

			session := newFakeSession("#chan")
			if tt.haveOp {
				session.setMemberMode("#chan", "warden", "o")
			}
			if tt.chanServOp {
				session.onSend = func(f *fakeSession, line irc.Line) {
					if line.Command == "PRIVMSG" && line.Param(0) == "ChanServ" {
						f.deliver(t, ":ChanServ!ChanServ@services. MODE #chan +o warden")
					}
				}
			}

			batcher := moderation.NewBatcher(prefs, "ChanServ", zap.NewNop())
			commands, err := batcher.Apply(ctx, session, "#chan", tt.add, "bqbb",
				[]string{"a!*@*", "b!*@*", "c!*@*", "d!*@*"})
			require.NoError(t, err)

			var modes []string
			for _, cmd := range commands {
				modes = append(modes, cmd.Modes)
			}
			assert.Equal(t, tt.wantModes, modes)

			sent := session.sentCommands("MODE")
			require.Len(t, sent, len(tt.wantModes))
			assert.Equal(t, []string{"#chan", tt.wantModes[0], "a!*@*", "b!*@*", "c!*@*"}, sent[0].Params)
			if tt.chanServOp {
				assert.Equal(t, []string{"#chan", "-bo", "d!*@*", "warden"}, sent[1].Params)
			}

			requests := session.sentCommands("PRIVMSG")
			if tt.wantOpReq {
				require.Len(t, requests, 1)
				assert.Equal(t, []string{"ChanServ", "OP #chan"}, requests[0].Params)
			} else {
				assert.Empty(t, requests)
			}
		})
	}
}
