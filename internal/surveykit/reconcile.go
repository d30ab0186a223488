package surveykit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
)

// Answer is one reconciled entry of a result payload.
type Answer struct {
	StepID   string
	Question string
	Value    any
	Full     any
}

// ReconcileJSON decodes a raw result payload and reconciles it against task.
// A payload that is not JSON is an error; a payload with the wrong shape is not.
// Numbers are kept as json.Number so large integers survive intact.
func ReconcileJSON(payload []byte, task *Task) ([]Answer, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode result payload: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode result payload: trailing data after JSON value")
	}
	return Reconcile(decoded, task), nil
}

// Reconcile extracts one normalized answer per result entry whose step is
// part of task. Entries that are malformed or point at unknown steps are
// skipped. Output follows the payload's entry order.
func Reconcile(payload any, task *Task) []Answer {
	answers := []Answer{}
	if task == nil {
		return answers
	}
	root, ok := payload.(map[string]any)
	if !ok {
		return answers
	}
	entries, ok := root["results"].([]any)
	if !ok {
		return answers
	}

	titles := make(map[string]string, len(task.Steps))
	for _, step := range task.Steps {
		if _, seen := titles[step.StepIdentifier.ID]; !seen {
			titles[step.StepIdentifier.ID] = step.Title
		}
	}

	for _, entry := range entries {
		stepID, full, ok := entryAnswer(entry)
		if !ok {
			continue
		}
		title, known := titles[stepID]
		if !known {
			continue
		}
		answers = append(answers, Answer{
			StepID:   stepID,
			Question: title,
			Value:    normalizeAnswer(full),
			Full:     full,
		})
	}
	return answers
}

// entryAnswer walks entry["results"][0]["result"] and entry["id"]["id"].
func entryAnswer(entry any) (stepID string, full any, ok bool) {
	m, ok := entry.(map[string]any)
	if !ok {
		return "", nil, false
	}
	results, ok := m["results"].([]any)
	if !ok || len(results) == 0 {
		return "", nil, false
	}
	first, ok := results[0].(map[string]any)
	if !ok {
		return "", nil, false
	}
	full, ok = first["result"]
	if !ok {
		return "", nil, false
	}
	id, ok := m["id"].(map[string]any)
	if !ok {
		return "", nil, false
	}
	stepID, ok = id["id"].(string)
	if !ok {
		return "", nil, false
	}
	return stepID, full, true
}

func normalizeAnswer(v any) any {
	if list, ok := v.([]any); ok && len(list) == 1 {
		v = list[0]
	}

	if m, ok := v.(map[string]any); ok && len(m) == 2 {
		text, hasText := m["text"]
		value, hasValue := m["value"]
		if hasText && hasValue && equalJSON(text, value) {
			return value
		}
	}

	if list, ok := v.([]any); ok {
		values := make([]string, 0, len(list))
		for _, item := range list {
			m, ok := item.(map[string]any)
			if !ok || !truthy(m["text"]) || !truthy(m["value"]) {
				return v
			}
			values = append(values, scalarString(m["value"]))
		}
		return strings.Join(values, ", ")
	}
	return v
}

func equalJSON(a, b any) bool {
	switch at := a.(type) {
	case json.Number:
		bn, ok := b.(json.Number)
		if !ok {
			return false
		}
		x, okA := new(big.Rat).SetString(at.String())
		y, okB := new(big.Rat).SetString(bn.String())
		return okA && okB && x.Cmp(y) == 0
	case string, float64, bool, nil:
		return a == b
	default:
		ab, err1 := json.Marshal(at)
		bb, err2 := json.Marshal(b)
		return err1 == nil && err2 == nil && string(ab) == string(bb)
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case float64:
		return t != 0
	case json.Number:
		r, ok := new(big.Rat).SetString(t.String())
		return !ok || r.Sign() != 0
	case bool:
		return t
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}
