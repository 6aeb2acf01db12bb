package controller

import "taskboard/internal/api"

type operation int

const (
	opCreate operation = iota
	opUpdate
	opDelete
)

func (op operation) String() string {
	switch op {
	case opCreate:
		return "create"
	case opUpdate:
		return "update"
	default:
		return "delete"
	}
}

func (op operation) fallback() string {
	switch op {
	case opCreate:
		return "Failed to create task"
	case opUpdate:
		return "Failed to update task"
	default:
		return "Failed to delete task"
	}
}

const validationFallback = "Validation error"

// Field messages win in this order.
var fieldLabels = []struct {
	field string
	label string
}{
	{"title", "Title"},
	{"description", "Description"},
	{"status", "Status"},
}

// failureMessage picks the one line shown to the user. Transport failures
// always map to the per-operation fallback; their details only go to the log.
func failureMessage(op operation, failure *api.Failure) string {
	if failure == nil || failure.Kind != api.KindServer {
		return op.fallback()
	}

	if failure.Validation || len(failure.Fields) > 0 {
		for _, fl := range fieldLabels {
			if msg, ok := failure.Field(fl.field); ok {
				return fl.label + ": " + msg
			}
		}
		if failure.Message != "" {
			return failure.Message
		}
		return validationFallback
	}

	if failure.Message != "" {
		return failure.Message
	}
	return op.fallback()
}
