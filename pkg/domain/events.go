package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStateChange   EventType = "state_change"
	EventSearch        EventType = "search"
	EventChainResolved EventType = "chain_resolved"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// StateEvent is emitted on every lifecycle transition.
type StateEvent struct {
	EventBase
	From SessionState `json:"from"`
	To   SessionState `json:"to"`
	Err  error        `json:"-"`
}

// SearchEvent is emitted after the alignment collaborator returns for a chain.
type SearchEvent struct {
	EventBase
	ChainID  string        `json:"chain_id"`
	Hits     int           `json:"hits"`
	Duration time.Duration `json:"duration"`
	IsError  bool          `json:"is_error,omitempty"`
}

// ChainEvent is emitted when a chain has been resolved.
type ChainEvent struct {
	EventBase
	ChainID     string `json:"chain_id"`
	Assignments int    `json:"assignments"`
	Gaps        int    `json:"gaps"`
	Unassigned  int    `json:"unassigned"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnStateChange   func(context.Context, *StateEvent)
	OnSearch        func(context.Context, *SearchEvent)
	OnChainResolved func(context.Context, *ChainEvent)
}
