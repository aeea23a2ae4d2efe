package irc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriptionNext(t *testing.T) {
	t.Parallel()

	sub := NewSubscription(func(l Line) bool { return l.Command == RplBanList })

	assert.False(t, sub.Deliver(NewLine(nil, "irc.test", "NOTICE", "*", "hello")))
	assert.True(t, sub.Deliver(NewLine(nil, "irc.test", RplBanList, "warden", "#chan", "a!*@*")))
	assert.True(t, sub.Deliver(NewLine(nil, "irc.test", RplBanList, "warden", "#chan", "b!*@*")))

	first, err := sub.Next(t.Context(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "a!*@*", first.Param(2))

	second, err := sub.Next(t.Context(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "b!*@*", second.Param(2))

	_, err = sub.Next(t.Context(), 10*time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestSubscriptionWakesOnDelivery(t *testing.T) {
	t.Parallel()

	sub := NewSubscription(func(Line) bool { return true })

	go func() {
		time.Sleep(20 * time.Millisecond)
		sub.Deliver(NewLine(nil, "", "PING", "x"))
	}()

	line, err := sub.Next(t.Context(), 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "PING", line.Command)
}

func TestSubscriptionClose(t *testing.T) {
	t.Parallel()

	sub := NewSubscription(func(Line) bool { return true })
	sub.Deliver(NewLine(nil, "", "PING", "x"))
	sub.Close()
	sub.Close()

	assert.False(t, sub.Deliver(NewLine(nil, "", "PING", "y")))

	_, err := sub.Next(t.Context(), time.Second)
	require.NoError(t, err)

	_, err = sub.Next(t.Context(), time.Second)
	require.ErrorIs(t, err, ErrSubscriptionClosed)
}

func TestSubscriptionContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	sub := NewSubscription(func(Line) bool { return true })
	_, err := sub.Next(ctx, 0)
	require.ErrorIs(t, err, context.Canceled)
}

func TestLineHelpers(t *testing.T) {
	t.Parallel()

	line, err := ParseLine("@account=bobby;time=2025-01-01T00:00:00Z :bob!b@host MODE #chan +b x!*@*\r\n")
	require.NoError(t, err)

	assert.Equal(t, "bob", line.Nick())
	assert.Equal(t, "MODE", line.Command)
	assert.Equal(t, "+b", line.Param(1))
	assert.Empty(t, line.Param(5))

	account, ok := line.Account()
	assert.True(t, ok)
	assert.Equal(t, "bobby", account)

	noAccount, err := ParseLine("@account=* :bob!b@host PRIVMSG warden :hi")
	require.NoError(t, err)
	_, ok = noAccount.Account()
	assert.False(t, ok)

	assert.Equal(t, "irc.test", SourceNick("irc.test"))
}
