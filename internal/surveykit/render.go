package surveykit

import "fmt"

var choiceKeys = []string{"choices", "options", "textChoices"}

// RenderTask builds the navigable task document for questions, which must
// already be in display order. An unknown question type aborts the whole
// render; no partial document is returned.
func RenderTask(id string, questions []Question) (*Task, error) {
	steps := make([]Step, 0, len(questions))
	for _, q := range questions {
		step, err := renderStep(q)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return &Task{
		ID:    id,
		Type:  TaskNavigable,
		Rules: []Rule{},
		Steps: steps,
	}, nil
}

func renderStep(q Question) (Step, error) {
	c := ParseFormat(q.Type, q.Format)
	step := Step{
		Type:           StepQuestion,
		Title:          q.Question,
		Text:           q.Text,
		StepIdentifier: Identifier{ID: StepIdentifier(q)},
	}

	switch q.Type {
	case TypeText:
		step.AnswerFormat = map[string]any{"type": "text"}
	case TypeInteger:
		step.AnswerFormat = map[string]any{"type": "integer"}
		copyConstraint(step.AnswerFormat, "minimumValue", c, "min")
		copyConstraint(step.AnswerFormat, "maximumValue", c, "max")
	case TypeDate:
		step.AnswerFormat = map[string]any{"type": "date"}
		copyConstraint(step.AnswerFormat, "minDate", c, "min")
		copyConstraint(step.AnswerFormat, "maxDate", c, "max")
	case TypeSingle:
		step.AnswerFormat = map[string]any{
			"type":       "single",
			"otherField": false,
			"choices":    choicesFrom(c),
		}
	case TypeMulti:
		step.AnswerFormat = map[string]any{
			"type":       "multiple",
			"otherField": false,
			"choices":    choicesFrom(c),
		}
	case TypeInfo, TypeIntro:
		step.Type = StepIntro
		step.Fields = rootFields(c)
	case TypeCompletion:
		step.Type = StepCompletion
		step.Fields = rootFields(c)
	default:
		return Step{}, &ValidationError{Problems: []string{
			fmt.Sprintf("unrecognized question type '%s' (question %s)", q.Type, q.ID),
		}}
	}
	return step, nil
}

func copyConstraint(dst map[string]any, dstKey string, c Constraints, srcKey string) {
	if v, ok := c[srcKey]; ok {
		dst[dstKey] = v
	}
}

func choicesFrom(c Constraints) []Choice {
	for _, key := range choiceKeys {
		if v, ok := c[key]; ok {
			if choices := toChoices(v); len(choices) > 0 {
				return choices
			}
		}
	}
	return []Choice{}
}

// rootFields lifts an intro/completion format onto the step itself. The
// scalar grammar form is the button caption.
func rootFields(c Constraints) map[string]any {
	if len(c) == 0 {
		return nil
	}
	fields := make(map[string]any, len(c))
	for k, v := range c {
		if k == "value" {
			fields["buttonText"] = v
			continue
		}
		fields[k] = v
	}
	return fields
}
