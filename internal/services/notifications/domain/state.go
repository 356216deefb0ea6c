package domain

import "fmt"

// ConnectionState is the push channel lifecycle.
type ConnectionState int

const (
	ConnectionDisconnected ConnectionState = iota
	ConnectionConnecting
	ConnectionConnected
	ConnectionReconnecting
)

func (s ConnectionState) String() string {
	switch s {
	case ConnectionDisconnected:
		return "DISCONNECTED"
	case ConnectionConnecting:
		return "CONNECTING"
	case ConnectionConnected:
		return "CONNECTED"
	case ConnectionReconnecting:
		return "RECONNECTING"
	default:
		return fmt.Sprintf("ConnectionState(%d)", int(s))
	}
}

var connectionTransitions = map[ConnectionState][]ConnectionState{
	ConnectionDisconnected: {ConnectionConnecting},
	ConnectionConnecting:   {ConnectionConnected, ConnectionReconnecting, ConnectionDisconnected},
	ConnectionConnected:    {ConnectionReconnecting, ConnectionDisconnected},
	ConnectionReconnecting: {ConnectionConnected, ConnectionDisconnected},
}

// CanTransition reports whether the push channel may move from s to next.
func (s ConnectionState) CanTransition(next ConnectionState) bool {
	for _, allowed := range connectionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AudioState is the audio manager lifecycle.
type AudioState int

const (
	AudioUninitialized AudioState = iota
	AudioLoading
	// AudioSuspended means a decoded sound is ready but the output context
	// needs a user gesture before it can play.
	AudioSuspended
	AudioReady
)

func (s AudioState) String() string {
	switch s {
	case AudioUninitialized:
		return "UNINITIALIZED"
	case AudioLoading:
		return "LOADING"
	case AudioSuspended:
		return "SUSPENDED"
	case AudioReady:
		return "READY"
	default:
		return fmt.Sprintf("AudioState(%d)", int(s))
	}
}
