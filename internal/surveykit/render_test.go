package surveykit

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func sampleQuestions() []Question {
	return []Question{
		{ID: "q-intro", Question: "Welcome", Type: TypeInfo, Format: "Start"},
		{ID: "q-name", Question: "Your name?", Text: "First name only", Type: TypeText},
		{ID: "q-age", Question: "Your age?", Type: TypeInteger, Format: "0..100"},
		{ID: "q-born", Question: "Birthday?", Type: TypeDate, Format: "1900-01-01..2020-12-31"},
		{ID: "q-city", Question: "City?", Type: TypeSingle, Format: "Paris|Rome"},
		{ID: "q-colors", Question: "Colors?", Type: TypeMulti, Format: "a|b|c"},
		{ID: "q-done", Question: "Thanks", Type: TypeCompletion, Format: `{"buttonText": "Finish"}`},
	}
}

func TestRenderTask(t *testing.T) {
	questions := sampleQuestions()
	task, err := RenderTask("survey-1", questions)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if task.ID != "survey-1" || task.Type != TaskNavigable {
		t.Errorf("unexpected task header: %s %s", task.ID, task.Type)
	}
	if task.Rules == nil || len(task.Rules) != 0 {
		t.Errorf("expected empty rules, got %v", task.Rules)
	}
	if len(task.Steps) != len(questions) {
		t.Fatalf("expected %d steps, got %d", len(questions), len(task.Steps))
	}
	for i, step := range task.Steps {
		if step.StepIdentifier.ID != questions[i].ID {
			t.Errorf("step %d: expected id %s, got %s", i, questions[i].ID, step.StepIdentifier.ID)
		}
	}

	age := task.Steps[2].AnswerFormat
	if age["minimumValue"] != "0" || age["maximumValue"] != "100" {
		t.Errorf("unexpected integer format: %v", age)
	}

	born := task.Steps[3].AnswerFormat
	if born["minDate"] != "1900-01-01" || born["maxDate"] != "2020-12-31" {
		t.Errorf("unexpected date format: %v", born)
	}

	colors := task.Steps[5].AnswerFormat
	if colors["type"] != "multiple" || colors["otherField"] != false {
		t.Errorf("unexpected multi format: %v", colors)
	}
	want := []Choice{{Value: "a", Text: "a"}, {Value: "b", Text: "b"}, {Value: "c", Text: "c"}}
	if !reflect.DeepEqual(colors["choices"], want) {
		t.Errorf("expected choices %v, got %v", want, colors["choices"])
	}

	if task.Steps[4].AnswerFormat["type"] != "single" {
		t.Errorf("expected single format, got %v", task.Steps[4].AnswerFormat)
	}
}

func TestRenderTaskRootLevelSteps(t *testing.T) {
	task, err := RenderTask("s", sampleQuestions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := json.Marshal(task)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var doc struct {
		Steps []map[string]any `json:"steps"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	intro := doc.Steps[0]
	if intro["type"] != "intro" || intro["buttonText"] != "Start" {
		t.Errorf("unexpected intro step: %v", intro)
	}
	if _, ok := intro["answerFormat"]; ok {
		t.Errorf("intro step must not carry an answerFormat")
	}

	done := doc.Steps[6]
	if done["type"] != "completion" || done["buttonText"] != "Finish" {
		t.Errorf("unexpected completion step: %v", done)
	}

	name := doc.Steps[1]
	if name["text"] != "First name only" {
		t.Errorf("expected text on question step, got %v", name["text"])
	}
	if _, ok := doc.Steps[2]["text"]; ok {
		t.Errorf("empty text must be omitted")
	}
}

func TestRenderTaskIsStable(t *testing.T) {
	first, err := RenderTask("s", sampleQuestions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := RenderTask("s", sampleQuestions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Errorf("render is not stable:\n%s\n%s", a, b)
	}
}

func TestRenderTaskUnknownType(t *testing.T) {
	questions := append(sampleQuestions(), Question{ID: "q-x", Question: "?", Type: "slider"})

	task, err := RenderTask("s", questions)
	if task != nil {
		t.Errorf("expected no task, got %v", task)
	}

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !strings.Contains(err.Error(), "slider") {
		t.Errorf("expected error to name the type, got %v", err)
	}
}

func TestStepJSONRoundTrip(t *testing.T) {
	raw := `{"type":"intro","title":"Hi","stepIdentifier":{"id":"a"},"buttonText":"Go"}`

	var step Step
	if err := json.Unmarshal([]byte(raw), &step); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if step.StepIdentifier.ID != "a" || step.Fields["buttonText"] != "Go" {
		t.Errorf("unexpected step: %+v", step)
	}

	out, err := json.Marshal(step)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(out), `"buttonText":"Go"`) {
		t.Errorf("expected merged field in %s", out)
	}
}
