package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActorRef identifies who produced the event. Guest checkouts carry no user.
type ActorRef struct {
	UserID *uuid.UUID `json:"userId,omitempty"`
	Role   string     `json:"role,omitempty"`
}

// Actor roles recorded on envelopes.
const (
	RoleGuest  = "guest"
	RoleUser   = "user"
	RoleAdmin  = "admin"
	RoleSystem = "system"
)

// SystemActor is used by background jobs.
func SystemActor() *ActorRef {
	return &ActorRef{Role: RoleSystem}
}

// UserActor builds an actor for an optional authenticated user.
func UserActor(userID *uuid.UUID, isAdmin bool) *ActorRef {
	switch {
	case userID == nil:
		return &ActorRef{Role: RoleGuest}
	case isAdmin:
		return &ActorRef{UserID: userID, Role: RoleAdmin}
	default:
		return &ActorRef{UserID: userID, Role: RoleUser}
	}
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
