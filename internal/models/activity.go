package models

import (
	"encoding/json"
	"time"
)

// Well-known activity actions. The set is open; callers may log any action
// name, these are the ones this service emits itself.
const (
	ActionBootstrap      = "bootstrap"
	ActionLogin          = "login"
	ActionPasswordReset  = "password_reset"
	ActionPasswordChange = "password_change"
	ActionResetRequested = "reset_requested"
	ActionResetCancelled = "reset_cancelled"
	ActionSuspended      = "suspended"
	ActionReinstated     = "reinstated"
)

// ActivityEntry is one row of the append-only audit trail. Details is an
// open, per-action payload; it is persisted as JSON text so each action kind
// can evolve its shape independently.
type ActivityEntry struct {
	AdminID     string                 `db:"admin_id" json:"admin_id"`
	EntryID     string                 `db:"entry_id" json:"entry_id"`
	EventBucket int                    `db:"event_bucket" json:"event_bucket"`
	Action      string                 `db:"action" json:"action"`
	Timestamp   time.Time              `db:"ts" json:"timestamp"`
	Details     map[string]interface{} `db:"-" json:"details,omitempty"`
}

// EncodeDetails serializes the open payload for storage. A nil payload
// encodes as an empty string rather than "null".
func (e *ActivityEntry) EncodeDetails() (string, error) {
	if len(e.Details) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(e.Details)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// DecodeDetails restores the open payload from its stored form.
func (e *ActivityEntry) DecodeDetails(raw string) error {
	if raw == "" {
		e.Details = nil
		return nil
	}
	return json.Unmarshal([]byte(raw), &e.Details)
}
