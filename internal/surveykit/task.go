package surveykit

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/expr-lang/expr"
)

const (
	TaskNavigable = "navigable"

	StepQuestion   = "question"
	StepIntro      = "intro"
	StepCompletion = "completion"

	RuleConditional = "conditional"
	RuleDirect      = "direct"
	RuleExpression  = "expression"
)

// Identifier wraps a step id the way SurveyKit nests it.
type Identifier struct {
	ID string `json:"id"`
}

// Task is the navigable task document handed to the rendering client.
type Task struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Rules []Rule `json:"rules"`
	Steps []Step `json:"steps"`
}

// Step is a single entry of a task. Question steps carry an AnswerFormat;
// intro and completion steps carry their settings in Fields, which are
// serialized at the top level of the step.
type Step struct {
	Type           string
	Title          string
	Text           string
	StepIdentifier Identifier
	AnswerFormat   map[string]any
	Fields         map[string]any
}

// Rule is a navigation rule keyed on the step that triggers it.
type Rule struct {
	Type                      string            `json:"type"`
	TriggerStepIdentifier     Identifier        `json:"triggerStepIdentifier"`
	DestinationStepIdentifier *Identifier       `json:"destinationStepIdentifier,omitempty"`
	Values                    map[string]string `json:"values,omitempty"`
	Expression                string            `json:"expression,omitempty"`
}

func (s Step) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Fields)+5)
	for k, v := range s.Fields {
		out[k] = v
	}
	out["type"] = s.Type
	out["title"] = s.Title
	out["stepIdentifier"] = s.StepIdentifier
	if s.Text != "" {
		out["text"] = s.Text
	}
	if s.AnswerFormat != nil {
		out["answerFormat"] = s.AnswerFormat
	}
	return json.Marshal(out)
}

func (s *Step) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Step{}
	targets := map[string]any{
		"type":           &s.Type,
		"title":          &s.Title,
		"text":           &s.Text,
		"stepIdentifier": &s.StepIdentifier,
		"answerFormat":   &s.AnswerFormat,
	}
	for key, value := range raw {
		if target, ok := targets[key]; ok {
			if err := json.Unmarshal(value, target); err != nil {
				return fmt.Errorf("step %s: %w", key, err)
			}
			continue
		}
		var v any
		if err := json.Unmarshal(value, &v); err != nil {
			return fmt.Errorf("step %s: %w", key, err)
		}
		if s.Fields == nil {
			s.Fields = map[string]any{}
		}
		s.Fields[key] = v
	}
	return nil
}

// StepIndex maps step ids to their position in the task.
func (t *Task) StepIndex() map[string]int {
	index := make(map[string]int, len(t.Steps))
	for i, step := range t.Steps {
		if _, dup := index[step.StepIdentifier.ID]; !dup {
			index[step.StepIdentifier.ID] = i
		}
	}
	return index
}

// ValidationError collects every problem found in a question set or task.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid task: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// ValidateTask checks that step ids are unique and that every rule points
// at steps that exist. Expression rules must also compile.
func ValidateTask(t *Task) error {
	if t == nil {
		return nil
	}
	verr := &ValidationError{}
	ids := map[string]bool{}
	for i, step := range t.Steps {
		id := step.StepIdentifier.ID
		switch {
		case id == "":
			verr.add("step %d has no stepIdentifier", i)
			continue
		case ids[id]:
			verr.add("duplicate stepIdentifier '%s'", id)
		}
		ids[id] = true
	}

	for line, rule := range t.Rules {
		trigger := rule.TriggerStepIdentifier.ID
		if !ids[trigger] {
			verr.add("invalid triggerStepIdentifier '%s' in rule '%d'", trigger, line)
		}
		switch rule.Type {
		case RuleConditional:
			keys := make([]string, 0, len(rule.Values))
			for k := range rule.Values {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				if v := rule.Values[k]; !ids[v] {
					verr.add("invalid target step '%s' in value '%s' of rule '%d'", v, k, line)
				}
			}
		case RuleDirect, RuleExpression:
			if rule.DestinationStepIdentifier == nil || !ids[rule.DestinationStepIdentifier.ID] {
				dest := ""
				if rule.DestinationStepIdentifier != nil {
					dest = rule.DestinationStepIdentifier.ID
				}
				verr.add("invalid destinationStepIdentifier '%s' in rule '%d'", dest, line)
			}
			if rule.Type == RuleExpression {
				if _, err := expr.Compile(rule.Expression); err != nil {
					verr.add("invalid expression in rule '%d': %v", line, err)
				}
			}
		default:
			verr.add("unknown rule type '%s' in rule '%d'", rule.Type, line)
		}
	}

	if len(verr.Problems) > 0 {
		return verr
	}
	return nil
}

// DecodeTask parses a stored task document.
func DecodeTask(data []byte) (*Task, error) {
	var t Task
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	if t.Rules == nil {
		t.Rules = []Rule{}
	}
	return &t, nil
}
