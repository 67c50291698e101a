package stream

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrNilClient           = errors.New("stream: nil client")
	ErrNilSubscription     = errors.New("stream: nil subscription")
	ErrInvalidSubscription = errors.New("stream: invalid subscription")
	ErrInvalidParameters   = errors.New("stream: invalid reconnection parameters")
	ErrAuthTimeout         = errors.New("stream: authentication timeout")
	ErrClosed              = errors.New("stream: client closed")
)

// AuthStatus is the result of a connect-and-authenticate handshake.
type AuthStatus int

const (
	AuthUnknown AuthStatus = iota
	AuthAuthorized
	AuthUnauthorized
	AuthTooManyConnections
)

func (s AuthStatus) String() string {
	switch s {
	case AuthAuthorized:
		return "authorized"
	case AuthUnauthorized:
		return "unauthorized"
	case AuthTooManyConnections:
		return "too_many_connections"
	default:
		return "unknown"
	}
}

// State is the lifecycle state of a Session.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateAuthenticated
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateAuthenticated:
		return "authenticated"
	case StateClosing:
		return "closing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Channel is a set of Polygon-style channel flags for one symbol.
type Channel uint8

const (
	ChannelTrade Channel = 1 << iota
	ChannelQuote
	ChannelSecondBar
	ChannelMinuteBar
)

// AllChannels has every channel flag set.
const AllChannels = ChannelTrade | ChannelQuote | ChannelSecondBar | ChannelMinuteBar

// Has reports whether every flag in other is set in c.
func (c Channel) Has(other Channel) bool {
	return c&other == other
}

// Split returns the individual flags set in c, lowest bit first.
func (c Channel) Split() []Channel {
	var out []Channel
	for bit := ChannelTrade; bit <= ChannelMinuteBar; bit <<= 1 {
		if c&bit != 0 {
			out = append(out, bit)
		}
	}
	return out
}

func (c Channel) String() string {
	if c == 0 {
		return "none"
	}
	names := map[Channel]string{
		ChannelTrade:     "trade",
		ChannelQuote:     "quote",
		ChannelSecondBar: "second_bar",
		ChannelMinuteBar: "minute_bar",
	}
	s := ""
	for _, bit := range c.Split() {
		if s != "" {
			s += "|"
		}
		s += names[bit]
	}
	return s
}

// ReplayError reports a subscription that could not be re-issued after a
// reconnection.
type ReplayError struct {
	Key string
	Err error
}

func (e *ReplayError) Error() string {
	return fmt.Sprintf("replay subscription %s: %v", e.Key, e.Err)
}

func (e *ReplayError) Unwrap() error {
	return e.Err
}
