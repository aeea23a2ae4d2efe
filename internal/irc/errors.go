package irc

import "errors"

var (
	// ErrTimeout is returned when a subscription sees no matching line in time.
	ErrTimeout = errors.New("timed out waiting for server reply")
	// ErrSubscriptionClosed is returned by Next after Close.
	ErrSubscriptionClosed = errors.New("subscription closed")
	// ErrNotConnected is returned when sending on a session that has stopped.
	ErrNotConnected = errors.New("not connected")
	// ErrConnectionClosed is returned by Run when the server closes the connection.
	ErrConnectionClosed = errors.New("connection closed by server")
	// ErrPingTimeout is returned by Run when the server stops answering.
	ErrPingTimeout = errors.New("server ping timeout")
	// ErrJoinFailed is returned when the server refuses a join.
	ErrJoinFailed = errors.New("failed to join channel")
)
