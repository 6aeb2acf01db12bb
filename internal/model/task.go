package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidStatus is returned when a status value is neither pending nor completed.
var ErrInvalidStatus = errors.New("invalid task status")

// Status is the completion state of a task. On the wire it is the string "0" or "1".
type Status int

const (
	StatusPending Status = iota
	StatusCompleted
)

const (
	wirePending   = "0"
	wireCompleted = "1"
)

// StatusFromBool converts the form toggle into a status.
func StatusFromBool(completed bool) Status {
	if completed {
		return StatusCompleted
	}
	return StatusPending
}

// ParseStatus decodes the wire representation.
func ParseStatus(raw string) (Status, error) {
	switch strings.TrimSpace(raw) {
	case wirePending:
		return StatusPending, nil
	case wireCompleted:
		return StatusCompleted, nil
	default:
		return StatusPending, fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
}

func (s Status) Completed() bool {
	return s == StatusCompleted
}

// Wire returns the string sent to the API.
func (s Status) Wire() string {
	if s == StatusCompleted {
		return wireCompleted
	}
	return wirePending
}

func (s Status) String() string {
	if s == StatusCompleted {
		return "completed"
	}
	return "pending"
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Wire())
}

// UnmarshalJSON accepts "0"/"1" and, leniently, the numbers 0/1.
func (s *Status) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var raw string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	} else {
		raw = string(data)
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ID is the server-assigned task identifier. Servers send it either as a
// string or as a number; it is kept as text.
type ID string

func (id ID) IsZero() bool {
	return id == ""
}

func (id ID) String() string {
	return string(id)
}

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*id = ID(raw)
		return nil
	default:
		var num json.Number
		if err := json.Unmarshal(data, &num); err != nil {
			return fmt.Errorf("decode task id: %w", err)
		}
		*id = ID(num.String())
		return nil
	}
}

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Timestamp is an ISO 8601 instant. Values the client cannot parse are kept
// verbatim so they survive an update round trip.
type Timestamp struct {
	time.Time
	raw string
}

// NewTimestamp truncates t to milliseconds in UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC().Truncate(time.Millisecond)}
}

func (t Timestamp) IsZero() bool {
	return t.Time.IsZero() && t.raw == ""
}

func (t Timestamp) String() string {
	if t.Time.IsZero() {
		return t.raw
	}
	return t.UTC().Format(timestampLayout)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.String())
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode timestamp: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		*t = Timestamp{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			*t = Timestamp{Time: parsed}
			return nil
		}
	}
	*t = Timestamp{raw: raw}
	return nil
}

// Task is a record managed through the remote API.
type Task struct {
	ID          ID        `json:"id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	CreatedAt   Timestamp `json:"created_at"`
	UpdatedAt   Timestamp `json:"updated_at"`
}
