// Package peerprotocol defines the messages exchanged with a remote execution
// peer. Messages flow over a WebSocket connection, one message per exchange.
package peerprotocol

import (
	"encoding/json"
	"fmt"
)

// Client -> Peer messages

// CommandRequest asks the peer to run a command in the connection's session
type CommandRequest struct {
	Command string `json:"command"`
}

// InputRequest delivers input to a command that is blocked on a prompt
type InputRequest struct {
	Input string `json:"input"`
}

// Peer -> Client messages are raw text frames. An empty frame means there is
// no more output right now.

// Request is used by the peer to decode either client message
type Request struct {
	Command *string `json:"command,omitempty"`
	Input   *string `json:"input,omitempty"`
}

// Request kinds
const (
	KindCommand = "command"
	KindInput   = "input"
)

// Marshal encodes a client message
func Marshal(msg interface{}) ([]byte, error) {
	switch msg.(type) {
	case CommandRequest, InputRequest:
	default:
		return nil, fmt.Errorf("unsupported message type %T", msg)
	}
	return json.Marshal(msg)
}

// ParseRequest decodes a client message and reports its kind and text
func ParseRequest(data []byte) (kind string, text string, err error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return "", "", fmt.Errorf("invalid request: %w", err)
	}
	switch {
	case req.Command != nil && req.Input != nil:
		return "", "", fmt.Errorf("request carries both command and input")
	case req.Command != nil:
		return KindCommand, *req.Command, nil
	case req.Input != nil:
		return KindInput, *req.Input, nil
	default:
		return "", "", fmt.Errorf("request carries neither command nor input")
	}
}
