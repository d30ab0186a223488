package surveykit

import (
	"strings"
	"testing"
)

func navigationTask() *Task {
	step := func(id string) Step {
		return Step{Type: StepQuestion, Title: id, StepIdentifier: Identifier{ID: id}}
	}
	return &Task{
		ID:    "s",
		Type:  TaskNavigable,
		Steps: []Step{step("q1"), step("q2"), step("q3"), step("q4")},
		Rules: []Rule{
			{
				Type:                  RuleConditional,
				TriggerStepIdentifier: Identifier{ID: "q1"},
				Values:                map[string]string{"no": "q4"},
			},
			{
				Type:                      RuleExpression,
				TriggerStepIdentifier:     Identifier{ID: "q2"},
				Expression:                `answer > 17`,
				DestinationStepIdentifier: &Identifier{ID: "q4"},
			},
			{
				Type:                      RuleDirect,
				TriggerStepIdentifier:     Identifier{ID: "q3"},
				DestinationStepIdentifier: &Identifier{ID: "q1"},
			},
		},
	}
}

func TestNextStep(t *testing.T) {
	tests := []struct {
		name    string
		current string
		answer  any
		expect  string
	}{
		{"conditional match", "q1", "no", "q4"},
		{"conditional match on choice", "q1", []any{map[string]any{"text": "no", "value": "no"}}, "q4"},
		{"conditional miss", "q1", "yes", "q2"},
		{"expression match", "q2", 18, "q4"},
		{"expression miss", "q2", 12, "q3"},
		{"direct", "q3", "anything", "q1"},
		{"last step", "q4", "bye", ""},
	}

	task := navigationTask()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextStep(task, tt.current, tt.answer)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expect {
				t.Errorf("NextStep(%s, %v) = %q, want %q", tt.current, tt.answer, got, tt.expect)
			}
		})
	}
}

func TestNextStepErrors(t *testing.T) {
	task := navigationTask()

	_, err := NextStep(task, "q999", "x")
	if err == nil || !strings.Contains(err.Error(), "invalid step") {
		t.Errorf("expected invalid step error, got %v", err)
	}

	task.Rules[1].Expression = `"text"`
	_, err = NextStep(task, "q2", 3)
	if err == nil || !strings.Contains(err.Error(), "did not return a boolean") {
		t.Errorf("expected boolean error, got %v", err)
	}
}
