package irc

import (
	"context"
	"encoding/base64"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// saslChunkSize is the largest AUTHENTICATE payload per line.
const saslChunkSize = 400

// registration tracks capability negotiation and SASL before the welcome reply.
type registration struct {
	available []string
	ended     bool
}

// wantedCaps returns the capabilities we ask for when the server offers them.
func (s *Session) wantedCaps() []string {
	caps := []string{"account-tag", "message-tags"}
	if s.cfg.SASL.Enabled() {
		caps = append(caps, "sasl")
	}
	return caps
}

// register sends the opening registration burst.
func (s *Session) register() {
	ctx := context.Background()

	_ = s.Send(ctx, "CAP", "LS", "302")
	if s.cfg.Password != "" {
		_ = s.Send(ctx, "PASS", s.cfg.Password)
	}
	_ = s.Send(ctx, "NICK", s.cfg.Nickname)
	_ = s.Send(ctx, "USER", s.cfg.Username, "0", "*", s.cfg.Realname)
}

func (s *Session) handleRegistration(ctx context.Context, line Line) {
	switch line.Command {
	case "CAP":
		s.handleCap(ctx, line)
	case "AUTHENTICATE":
		if line.Param(0) == "+" {
			s.sendSASLPlain(ctx)
		}
	case RplSASLSuccess, ErrSASLAlready:
		s.logger.Info("SASL authentication succeeded")
		s.endCap(ctx)
	case ErrSASLFail, ErrSASLTooLong, ErrSASLAborted, RplSASLMechs:
		s.logger.Warn("SASL authentication failed",
			zap.String("numeric", line.Command),
			zap.String("message", line.Param(len(line.Params)-1)))
		s.endCap(ctx)
	case ErrNicknameInUse:
		s.mu.Lock()
		s.state.nick += "_"
		nick := s.state.nick
		s.mu.Unlock()

		s.logger.Warn("Nickname in use, retrying", zap.String("nick", nick))
		_ = s.Send(ctx, "NICK", nick)
	}
}

func (s *Session) handleCap(ctx context.Context, line Line) {
	switch strings.ToUpper(line.Param(1)) {
	case "LS":
		// Multi-line replies carry "*" before the final parameter
		more := len(line.Params) > 3 && line.Param(2) == "*"
		for _, token := range strings.Fields(line.Param(len(line.Params) - 1)) {
			name, _, _ := strings.Cut(token, "=")
			s.reg.available = append(s.reg.available, name)
		}
		if more {
			return
		}

		var request []string
		for _, c := range s.wantedCaps() {
			if slices.Contains(s.reg.available, c) {
				request = append(request, c)
			}
		}

		if len(request) == 0 {
			s.endCap(ctx)
			return
		}
		_ = s.Send(ctx, "CAP", "REQ", strings.Join(request, " "))

	case "ACK":
		acked := strings.Fields(line.Param(len(line.Params) - 1))
		s.logger.Debug("Capabilities acknowledged", zap.Strings("caps", acked))

		if s.cfg.SASL.Enabled() && slices.Contains(acked, "sasl") {
			_ = s.Send(ctx, "AUTHENTICATE", "PLAIN")
			return
		}
		s.endCap(ctx)

	case "NAK":
		s.logger.Warn("Capabilities rejected", zap.String("caps", line.Param(len(line.Params)-1)))
		s.endCap(ctx)
	}
}

// sendSASLPlain sends the PLAIN credentials split into protocol sized chunks.
func (s *Session) sendSASLPlain(ctx context.Context) {
	sasl := s.cfg.SASL
	payload := base64.StdEncoding.EncodeToString(
		[]byte(sasl.Username + "\x00" + sasl.Username + "\x00" + sasl.Password))

	for len(payload) >= saslChunkSize {
		_ = s.Send(ctx, "AUTHENTICATE", payload[:saslChunkSize])
		payload = payload[saslChunkSize:]
	}

	if payload == "" {
		payload = "+"
	}
	_ = s.Send(ctx, "AUTHENTICATE", payload)
}

func (s *Session) endCap(ctx context.Context) {
	if s.reg.ended {
		return
	}
	s.reg.ended = true
	_ = s.Send(ctx, "CAP", "END")
}
