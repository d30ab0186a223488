package surveykit

import (
	"encoding/json"
	"strconv"
)

// Response is a materialized answer for one question of one instance.
type Response struct {
	UserSurveyID string
	QuestionID   string
	Value        string
}

// ExistingCheck reports whether responses were already recorded for the
// instance being materialized.
type ExistingCheck func() (bool, error)

// Materialize maps reconciled answers onto the live questions of the
// instance's survey. It returns nil when responses already exist. Answers
// for steps that no longer match a question are dropped, and a repeated
// step keeps the later answer.
func Materialize(userSurveyID string, answers []Answer, live []Question, existing ExistingCheck) ([]Response, error) {
	if existing != nil {
		found, err := existing()
		if err != nil {
			return nil, err
		}
		if found {
			return nil, nil
		}
	}

	questions := make(map[string]Question, len(live))
	for _, q := range live {
		questions[StepIdentifier(q)] = q
	}

	out := []Response{}
	position := map[string]int{}
	for _, a := range answers {
		q, ok := questions[a.StepID]
		if !ok {
			continue
		}
		r := Response{
			UserSurveyID: userSurveyID,
			QuestionID:   q.ID,
			Value:        ResponseText(a.Value),
		}
		if i, dup := position[q.ID]; dup {
			out[i] = r
			continue
		}
		position[q.ID] = len(out)
		out = append(out, r)
	}
	return out, nil
}

// ResponseText renders a normalized answer as the stored response value.
func ResponseText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case map[string]any:
		if value, ok := t["value"]; ok {
			switch value.(type) {
			case string, float64, json.Number, bool:
				return scalarString(value)
			}
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return scalarString(v)
	}
	return string(b)
}
