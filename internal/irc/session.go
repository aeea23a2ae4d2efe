package irc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/robalyx/warden/internal/setup/config"
	"github.com/robalyx/warden/pkg/utils"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

const (
	// idleTimeout is how long the reader waits for data before probing the server.
	idleTimeout = 2 * time.Minute
	// writeTimeout bounds a single line write.
	writeTimeout = 30 * time.Second
	// readBufferSize fits a tagged line with room to spare.
	readBufferSize = 16 << 10
)

// Handler receives every line read from the server, one at a time, in order.
// A handler may block waiting on a subscription; the session keeps reading.
type Handler interface {
	HandleLine(ctx context.Context, s *Session, line Line)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, s *Session, line Line)

// HandleLine calls f.
func (f HandlerFunc) HandleLine(ctx context.Context, s *Session, line Line) {
	f(ctx, s, line)
}

// Session is a single registered connection to the server.
type Session struct {
	conn    net.Conn
	cfg     *config.IRC
	handler Handler
	logger  *zap.Logger

	mu    sync.RWMutex
	state *state

	subsMu  sync.Mutex
	subs    map[*Subscription]struct{}
	stopped bool

	writes  *queue[string]
	inbound *queue[Line]

	// reg is only touched by the reader goroutine.
	reg registration
}

// NewSession wraps an established connection. Call Run to register and serve it.
func NewSession(conn net.Conn, cfg *config.IRC, handler Handler, logger *zap.Logger) *Session {
	return &Session{
		conn:    conn,
		cfg:     cfg,
		handler: handler,
		logger:  logger.Named("irc_session"),
		state:   newState(cfg.Nickname),
		subs:    make(map[*Subscription]struct{}),
		writes:  newQueue[string](),
		inbound: newQueue[Line](),
	}
}

// Run registers with the server and serves the connection until it closes or
// ctx is cancelled. It always returns a non-nil error.
func (s *Session) Run(ctx context.Context) error {
	defer s.stop()

	s.register()

	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	p.Go(s.readLoop)
	p.Go(s.writeLoop)
	p.Go(s.handleLoop)

	err := p.Wait()
	if err == nil {
		err = ErrConnectionClosed
	}
	return err
}

// Send queues a command for the writer. It does not wait for the line to be written.
func (s *Session) Send(ctx context.Context, command string, params ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	line := NewLine(nil, "", command, params...)
	raw, err := line.Line()
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", command, err)
	}

	if !s.writes.push(raw) {
		return ErrNotConnected
	}
	return nil
}

// Subscribe starts buffering lines that match. The caller must Close the subscription.
func (s *Session) Subscribe(match MatchFunc) *Subscription {
	sub := NewSubscription(match)
	sub.onClose = func() {
		s.subsMu.Lock()
		delete(s.subs, sub)
		s.subsMu.Unlock()
	}

	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	if s.stopped {
		sub.lines.close()
		return sub
	}
	s.subs[sub] = struct{}{}

	return sub
}

// Join joins a channel and waits for the end of the names list or a join error.
func (s *Session) Join(ctx context.Context, channel string, timeout time.Duration) error {
	folded := s.Casefold(channel)

	sub := s.Subscribe(func(l Line) bool {
		if l.Command != RplEndOfNames {
			if _, ok := joinErrors[l.Command]; !ok {
				return false
			}
		}
		return s.Casefold(l.Param(1)) == folded
	})
	defer sub.Close()

	if err := s.Send(ctx, "JOIN", channel); err != nil {
		return err
	}

	line, err := sub.Next(ctx, timeout)
	if err != nil {
		return err
	}

	if line.Command != RplEndOfNames {
		return fmt.Errorf("%w %s: %s", ErrJoinFailed, channel, line.Param(len(line.Params)-1))
	}
	return nil
}

// Nick returns the current nickname.
func (s *Session) Nick() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.nick
}

// Source returns our nick!user@host as last seen on a JOIN, or the nick if unknown.
func (s *Session) Source() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state.source == "" {
		return s.state.nick
	}
	return s.state.source
}

// Casefold folds a nickname or channel name using the server case mapping.
func (s *Session) Casefold(name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.fold(name)
}

// IsChannel reports whether target names a channel.
func (s *Session) IsChannel(target string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.isupport.IsChannel(target)
}

// InChannel reports whether we are currently in the channel.
func (s *Session) InChannel(channel string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.channel(channel) != nil
}

// Channels returns the names of the joined channels.
func (s *Session) Channels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.state.channels))
	for _, ch := range s.state.channels {
		names = append(names, ch.name)
	}
	return names
}

// HasMemberMode reports whether nick holds a membership mode such as o in channel.
func (s *Session) HasMemberMode(channel, nick string, mode byte) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.hasMemberMode(channel, nick, mode)
}

// ModesPerCommand returns the MODES limit advertised by the server.
func (s *Session) ModesPerCommand() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.isupport.Modes
}

// ModeTakesArg reports whether a channel mode consumes an argument.
func (s *Session) ModeTakesArg(mode byte, adding bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.isupport.ModeTakesArg(mode, adding)
}

// Registered reports whether the server has welcomed us.
func (s *Session) Registered() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.registered
}

func (s *Session) readLoop(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.Close()
	})
	defer stop()

	reader := bufio.NewReaderSize(s.conn, readBufferSize)
	probed := false

	for {
		_ = s.conn.SetReadDeadline(time.Now().Add(idleTimeout))

		raw, err := reader.ReadString('\n')
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				if probed {
					return ErrPingTimeout
				}
				probed = true
				_ = s.Send(ctx, "PING", "warden")
				continue
			}

			if errors.Is(err, io.EOF) {
				return ErrConnectionClosed
			}
			return fmt.Errorf("failed to read from server: %w", err)
		}
		probed = false

		line, err := ParseLine(raw)
		if err != nil {
			s.logger.Debug("Skipping malformed line", zap.String("line", raw), zap.Error(err))
			continue
		}

		s.process(ctx, line)
		s.dispatch(line)
		s.inbound.push(line)
	}
}

func (s *Session) writeLoop(ctx context.Context) error {
	delay := time.Duration(s.cfg.SendDelay) * time.Millisecond

	for {
		raw, ok := s.writes.pop()
		if !ok {
			if s.writes.isClosed() {
				return nil
			}

			select {
			case <-s.writes.wait():
				continue
			case <-ctx.Done():
				return nil
			}
		}

		_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if _, err := io.WriteString(s.conn, raw); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to write to server: %w", err)
		}

		if utils.ContextSleep(ctx, delay) == utils.SleepCancelled {
			return nil
		}
	}
}

func (s *Session) handleLoop(ctx context.Context) error {
	for {
		line, ok := s.inbound.pop()
		if !ok {
			select {
			case <-s.inbound.wait():
				continue
			case <-ctx.Done():
				return nil
			}
		}

		s.handler.HandleLine(ctx, s, line)
	}
}

// dispatch feeds the line to every subscription that wants it.
func (s *Session) dispatch(line Line) {
	s.subsMu.Lock()
	subs := make([]*Subscription, 0, len(s.subs))
	for sub := range s.subs {
		subs = append(subs, sub)
	}
	s.subsMu.Unlock()

	for _, sub := range subs {
		sub.Deliver(line)
	}
}

// process updates the session state from a line before anyone else sees it.
func (s *Session) process(ctx context.Context, line Line) {
	switch line.Command {
	case "PING":
		_ = s.Send(ctx, "PONG", line.Params...)
		return
	case "CAP", "AUTHENTICATE", RplSASLSuccess, ErrSASLFail, ErrSASLTooLong,
		ErrSASLAborted, ErrSASLAlready, RplSASLMechs:
		s.handleRegistration(ctx, line)
		return
	case ErrNicknameInUse:
		if !s.Registered() {
			s.handleRegistration(ctx, line)
		}
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state
	nick := line.Nick()

	switch line.Command {
	case RplWelcome:
		st.registered = true
		if me := line.Param(0); me != "" {
			st.nick = me
		}
		s.logger.Info("Registered with server", zap.String("nick", st.nick))
	case RplISupport:
		st.isupport.Apply(line.Params)
	case "JOIN":
		if st.isMe(nick) {
			st.source = line.Source
		}
		st.join(line.Param(0), nick)
	case "PART":
		st.part(line.Param(0), nick)
	case "KICK":
		st.part(line.Param(0), line.Param(1))
	case "QUIT":
		st.quit(nick)
	case "NICK":
		st.rename(nick, line.Param(0))
	case RplNamReply:
		st.names(line.Param(2), line.Param(3))
	case "MODE":
		if st.isupport.IsChannel(line.Param(0)) && len(line.Params) > 1 {
			st.mode(line.Param(0), line.Params[1:])
		}
	}
}

// stop closes the queues and every open subscription.
func (s *Session) stop() {
	s.writes.close()
	s.inbound.close()

	s.subsMu.Lock()
	s.stopped = true
	subs := s.subs
	s.subs = make(map[*Subscription]struct{})
	s.subsMu.Unlock()

	for sub := range subs {
		sub.lines.close()
	}

	_ = s.conn.Close()
}
