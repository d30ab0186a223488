package surveykit

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateTask(t *testing.T) {
	if err := ValidateTask(navigationTask()); err != nil {
		t.Fatalf("expected valid task, got %v", err)
	}

	task := navigationTask()
	task.Steps = append(task.Steps, Step{StepIdentifier: Identifier{ID: "q1"}}, Step{})
	task.Rules = append(task.Rules,
		Rule{Type: RuleConditional, TriggerStepIdentifier: Identifier{ID: "nope"}, Values: map[string]string{"b": "q9", "a": "q2"}},
		Rule{Type: RuleDirect, TriggerStepIdentifier: Identifier{ID: "q1"}},
		Rule{Type: RuleExpression, TriggerStepIdentifier: Identifier{ID: "q1"}, Expression: "answer ==", DestinationStepIdentifier: &Identifier{ID: "q2"}},
		Rule{Type: "jump", TriggerStepIdentifier: Identifier{ID: "q1"}},
	)

	err := ValidateTask(task)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	expected := []string{
		"duplicate stepIdentifier 'q1'",
		"step 5 has no stepIdentifier",
		"invalid triggerStepIdentifier 'nope' in rule '3'",
		"invalid target step 'q9' in value 'b' of rule '3'",
		"invalid destinationStepIdentifier '' in rule '4'",
		"invalid expression in rule '5'",
		"unknown rule type 'jump' in rule '6'",
	}
	if len(verr.Problems) != len(expected) {
		t.Fatalf("expected %d problems, got %v", len(expected), verr.Problems)
	}
	for i, want := range expected {
		if !strings.Contains(verr.Problems[i], want) {
			t.Errorf("problem %d = %q, want %q", i, verr.Problems[i], want)
		}
	}
}

func TestDecodeTask(t *testing.T) {
	task, err := DecodeTask([]byte(`{"id":"s","type":"navigable","steps":[{"type":"question","title":"A","stepIdentifier":{"id":"a"},"answerFormat":{"type":"text"}}]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Rules == nil {
		t.Errorf("expected rules to default to empty")
	}
	if task.Steps[0].AnswerFormat["type"] != "text" {
		t.Errorf("unexpected step %+v", task.Steps[0])
	}

	if _, err := DecodeTask([]byte(`[`)); err == nil {
		t.Errorf("expected decode error")
	}
}
