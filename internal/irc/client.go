package irc

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/robalyx/warden/internal/setup/config"
	"github.com/robalyx/warden/pkg/utils"
	"go.uber.org/zap"
)

const dialTimeout = 30 * time.Second

// errSessionEnded ends a retry round after a registered session drops, so the
// next reconnect starts from a fresh backoff.
var errSessionEnded = errors.New("registered session ended")

// Client keeps a session to the server alive, reconnecting with backoff.
type Client struct {
	cfg     *config.IRC
	handler Handler
	logger  *zap.Logger
	retry   utils.RetryOptions

	mu     sync.RWMutex
	active *Session
}

// NewClient creates a client. Call Run to connect.
func NewClient(cfg *config.IRC, handler Handler, logger *zap.Logger) *Client {
	return &Client{
		cfg:     cfg,
		handler: handler,
		logger:  logger.Named("irc_client"),
		retry:   utils.GetReconnectRetryOptions(),
	}
}

// Run connects and serves sessions until ctx is cancelled. Failed attempts
// back off exponentially; the backoff starts over once a session registers.
func (c *Client) Run(ctx context.Context) error {
	for {
		_, err := utils.WithRetry(ctx, func() (struct{}, error) {
			registered, err := c.serve(ctx)
			if ctx.Err() != nil {
				return struct{}{}, backoff.Permanent(ctx.Err())
			}

			c.logger.Warn("Connection lost, reconnecting",
				zap.Bool("registered", registered),
				zap.Error(err))

			if registered {
				return struct{}{}, backoff.Permanent(errSessionEnded)
			}
			return struct{}{}, err
		}, c.retry)

		switch {
		case errors.Is(err, context.Canceled), ctx.Err() != nil:
			return nil
		case errors.Is(err, errSessionEnded):
			if utils.ContextSleep(ctx, c.retry.InitialInterval) == utils.SleepCancelled {
				return nil
			}
		default:
			return err
		}
	}
}

// Active returns the current session once it is registered.
func (c *Client) Active() (*Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.active == nil || !c.active.Registered() {
		return nil, false
	}
	return c.active, true
}

// serve runs one connection and reports whether it got as far as registering.
func (c *Client) serve(ctx context.Context) (bool, error) {
	conn, err := Dial(ctx, c.cfg)
	if err != nil {
		return false, err
	}

	c.logger.Info("Connected to server",
		zap.String("host", c.cfg.Host),
		zap.Int("port", c.cfg.Port),
		zap.Bool("tls", c.cfg.TLS))

	session := NewSession(conn, c.cfg, c.handler, c.logger)

	c.mu.Lock()
	c.active = session
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.active = nil
		c.mu.Unlock()
	}()

	err = session.Run(ctx)
	return session.Registered(), err
}

// Dial opens a TCP or TLS connection to the configured server.
func Dial(ctx context.Context, cfg *config.IRC) (net.Conn, error) {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	dialer := &net.Dialer{Timeout: dialTimeout, KeepAlive: 30 * time.Second}

	var (
		conn net.Conn
		err  error
	)
	if cfg.TLS {
		tlsDialer := &tls.Dialer{
			NetDialer: dialer,
			Config: &tls.Config{
				ServerName:         cfg.Host,
				InsecureSkipVerify: cfg.TLSSkipVerify, //nolint:gosec // opt-in for self-signed test networks
				MinVersion:         tls.VersionTLS12,
			},
		}
		conn, err = tlsDialer.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	return conn, nil
}
