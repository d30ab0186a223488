package surveykit

import (
	"errors"
	"fmt"

	"github.com/expr-lang/expr"
)

// NextStep returns the step that follows current once answer is given.
// The first rule triggered by current that matches decides; otherwise the
// next step in order is used. An empty id means current was the last step.
func NextStep(t *Task, current string, answer any) (string, error) {
	index := t.StepIndex()
	pos, ok := index[current]
	if !ok {
		return "", fmt.Errorf("invalid step %q", current)
	}

	for i, rule := range t.Rules {
		if rule.TriggerStepIdentifier.ID != current {
			continue
		}
		next, matched, err := applyRule(rule, answer)
		if err != nil {
			return "", fmt.Errorf("rule %d: %w", i, err)
		}
		if matched {
			if _, ok := index[next]; !ok {
				return "", fmt.Errorf("rule %d: next step %q not found", i, next)
			}
			return next, nil
		}
	}

	if pos+1 < len(t.Steps) {
		return t.Steps[pos+1].StepIdentifier.ID, nil
	}
	return "", nil
}

func applyRule(rule Rule, answer any) (string, bool, error) {
	switch rule.Type {
	case RuleConditional:
		next, ok := rule.Values[ResponseText(normalizeAnswer(answer))]
		return next, ok, nil
	case RuleDirect:
		if rule.DestinationStepIdentifier == nil {
			return "", false, errors.New("direct rule without destination")
		}
		return rule.DestinationStepIdentifier.ID, true, nil
	case RuleExpression:
		if rule.DestinationStepIdentifier == nil {
			return "", false, errors.New("expression rule without destination")
		}
		match, err := evaluateExpression(rule.Expression, ruleEnv(answer))
		if err != nil {
			return "", false, err
		}
		return rule.DestinationStepIdentifier.ID, match, nil
	}
	return "", false, fmt.Errorf("unknown rule type %q", rule.Type)
}

func ruleEnv(answer any) map[string]any {
	return map[string]any{"answer": answer}
}

func evaluateExpression(expression string, input map[string]any) (bool, error) {
	program, err := expr.Compile(expression, expr.Env(input))
	if err != nil {
		return false, err
	}

	output, err := expr.Run(program, input)
	if err != nil {
		return false, err
	}

	result, ok := output.(bool)

	if !ok {
		return false, errors.New("expression did not return a boolean")
	}

	return result, nil
}
