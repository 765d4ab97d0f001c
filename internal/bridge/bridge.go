// Package bridge carries preview messages from authoring contexts to
// rendering contexts: in process through a Pipe, or across processes through
// the websocket Hub and the Dial client.
package bridge

import (
	"context"
	"errors"

	"vellum/internal/protocol"
)

// Role is the side of the bridge a websocket client speaks for.
type Role string

const (
	RoleAuthor Role = "author"
	RoleFrame  Role = "frame"
)

// ParseRole validates a role string.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAuthor, RoleFrame:
		return Role(s), true
	}
	return "", false
}

// ErrClosed is returned when sending on a closed bridge.
var ErrClosed = errors.New("bridge: closed")

// Sender pushes preview messages to the rendering side.
type Sender interface {
	Send(ctx context.Context, msg protocol.PreviewMessage) error
}

// Poster receives raw bridge payloads, like a window's message event.
type Poster interface {
	PostMessage(data []byte)
}

// Pipe is an in-process bridge: every message is encoded and posted to the
// destination, so the receiving frame sees exactly what a remote one would.
type Pipe struct {
	dst Poster
}

// NewPipe returns a Pipe posting to dst.
func NewPipe(dst Poster) *Pipe {
	return &Pipe{dst: dst}
}

// Send implements Sender.
func (p *Pipe) Send(ctx context.Context, msg protocol.PreviewMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.dst == nil {
		return ErrClosed
	}
	data, err := msg.Encode()
	if err != nil {
		return err
	}
	p.dst.PostMessage(data)
	return nil
}
