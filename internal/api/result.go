package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Kind tells where a failure came from.
type Kind int

const (
	// KindTransport means no response reached the client.
	KindTransport Kind = iota + 1
	// KindServer means the server answered and reported a failure.
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// Failure describes an API call that did not succeed.
type Failure struct {
	Kind    Kind
	Status  int
	Message string
	Fields  map[string][]string

	// Validation is set when the body carried an errors member, even one
	// with no usable field messages.
	Validation bool
}

func (f *Failure) Error() string {
	if f.Status != 0 {
		return fmt.Sprintf("%s failure (status %d): %s", f.Kind, f.Status, f.Message)
	}
	return fmt.Sprintf("%s failure: %s", f.Kind, f.Message)
}

// Field returns the first message reported for a field.
func (f *Failure) Field(name string) (string, bool) {
	msgs := f.Fields[name]
	if len(msgs) == 0 {
		return "", false
	}
	return msgs[0], true
}

// Result is either a successful payload or a Failure.
type Result struct {
	Payload json.RawMessage
	Failure *Failure
}

func Ok(payload json.RawMessage) Result {
	return Result{Payload: payload}
}

func Fail(f *Failure) Result {
	return Result{Failure: f}
}

func (r Result) Failed() bool {
	return r.Failure != nil
}

// errorBody is the failure envelope servers send.
type errorBody struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
}

// parseErrorBody reads the envelope leniently. ok is false when the body is
// not a JSON object.
func parseErrorBody(data []byte) (errorBody, bool) {
	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		return errorBody{}, false
	}
	return body, true
}

// signalsFailure reports an explicit success:false, or an errors member
// without an explicit success:true.
func (b errorBody) signalsFailure() bool {
	if b.Success != nil {
		return !*b.Success
	}
	return b.hasErrors()
}

func (b errorBody) hasErrors() bool {
	raw := bytes.TrimSpace(b.Errors)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

func (b errorBody) fields() map[string][]string {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(b.Errors, &members); err != nil || len(members) == 0 {
		return nil
	}
	fields := make(map[string][]string, len(members))
	for name, raw := range members {
		var list []string
		if err := json.Unmarshal(raw, &list); err == nil {
			fields[name] = list
			continue
		}
		var single string
		if err := json.Unmarshal(raw, &single); err == nil && strings.TrimSpace(single) != "" {
			fields[name] = []string{single}
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}
