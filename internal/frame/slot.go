package frame

import (
	"encoding/json"
	"sync/atomic"
)

// Slot is the well-known place the frame publishes the current definition to.
// The frame is its only writer and the rendering runtime its only reader; the
// runtime may read it at any time, including long after the publishing
// message was handled.
type Slot struct {
	v atomic.Pointer[slotValue]
}

type slotValue struct {
	definition json.RawMessage
	version    uint64
}

// NewSlot returns an empty slot.
func NewSlot() *Slot {
	return &Slot{}
}

// Publish stores def and returns its version. Versions start at 1.
func (s *Slot) Publish(def json.RawMessage) uint64 {
	var version uint64 = 1
	if cur := s.v.Load(); cur != nil {
		version = cur.version + 1
	}
	s.v.Store(&slotValue{definition: def, version: version})
	return version
}

// Load returns the last published definition and its version. Version 0
// means nothing was published yet.
func (s *Slot) Load() (json.RawMessage, uint64) {
	cur := s.v.Load()
	if cur == nil {
		return nil, 0
	}
	return cur.definition, cur.version
}
