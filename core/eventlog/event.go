package eventlog

import (
	"encoding/json"
	"time"
)

// Record is an event that has not been appended yet.
type Record struct {
	// UniqueID is generated on append when empty.
	UniqueID string
	EntityID string
	Type     string
	Version  int
	Payload  json.RawMessage
	Metadata json.RawMessage
	// Timestamp defaults to the log's clock when zero.
	Timestamp time.Time
}

// StoredEvent is an immutable, sequenced event read back from the log.
type StoredEvent struct {
	Sequence  int64           `json:"sequence"`
	UniqueID  string          `json:"uniqueId"`
	EntityID  string          `json:"entityId"`
	Type      string          `json:"eventType"`
	Version   int             `json:"version"`
	Payload   json.RawMessage `json:"payload"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Validate checks the fields every log implementation requires.
func (r Record) Validate() error {
	switch {
	case r.EntityID == "":
		return ErrMissingEntityID
	case r.Type == "":
		return ErrMissingEventType
	case len(r.Payload) == 0:
		return ErrMissingPayload
	case !json.Valid(r.Payload):
		return ErrInvalidPayload
	case len(r.Metadata) > 0 && !json.Valid(r.Metadata):
		return ErrInvalidPayload
	}
	return nil
}
