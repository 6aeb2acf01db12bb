package controller

import (
	"bytes"
	"encoding/json"

	"github.com/rs/zerolog"

	"taskboard/internal/model"
)

type envelope struct {
	Data json.RawMessage `json:"data"`
}

// decodeTaskList accepts either {"data": [...]} or a bare array. Any other
// shape yields an empty list and ok == false. Items that are not objects, fail
// to decode or lack an id are skipped, as are repeated ids.
func decodeTaskList(payload json.RawMessage, log zerolog.Logger) ([]model.Task, bool) {
	items, ok := unwrapList(payload)
	tasks := make([]model.Task, 0, len(items))
	if !ok {
		return tasks, false
	}

	seen := make(map[model.ID]struct{}, len(items))
	for i, raw := range items {
		if !isObject(raw) {
			log.Warn().Int("index", i).Str("item", abbreviate(raw)).Msg("skipping non-object task")
			continue
		}
		var task model.Task
		if err := json.Unmarshal(raw, &task); err != nil {
			log.Warn().Err(err).Int("index", i).Msg("skipping undecodable task")
			continue
		}
		if task.ID.IsZero() {
			log.Warn().Int("index", i).Msg("skipping task without id")
			continue
		}
		if _, dup := seen[task.ID]; dup {
			log.Warn().Str("task_id", task.ID.String()).Msg("skipping duplicate task id")
			continue
		}
		seen[task.ID] = struct{}{}
		tasks = append(tasks, task)
	}
	return tasks, true
}

func unwrapList(payload json.RawMessage) ([]json.RawMessage, bool) {
	var list []json.RawMessage
	if isArray(payload) {
		if err := json.Unmarshal(payload, &list); err == nil {
			return list, true
		}
		return nil, false
	}

	if !isObject(payload) {
		return nil, false
	}
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil || !isArray(env.Data) {
		return nil, false
	}
	if err := json.Unmarshal(env.Data, &list); err != nil {
		return nil, false
	}
	return list, true
}

// decodeCreatedTask picks the record to append after a successful create: the
// "data" object of the response, else the response itself when it carries an
// id, else the locally built task.
func decodeCreatedTask(payload json.RawMessage, local model.Task) model.Task {
	if !isObject(payload) {
		return local
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err == nil && isObject(env.Data) {
		var task model.Task
		if err := json.Unmarshal(env.Data, &task); err == nil {
			return task
		}
	}

	var task model.Task
	if err := json.Unmarshal(payload, &task); err == nil && !task.ID.IsZero() {
		return task
	}
	return local
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func abbreviate(raw json.RawMessage) string {
	const limit = 200
	if len(raw) <= limit {
		return string(raw)
	}
	return string(raw[:limit]) + "..."
}
