package surveykit

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Constraints is the normalized form of a question's format field.
type Constraints map[string]any

// Choice is one selectable option of a single or multiple choice question.
type Choice struct {
	Value string `json:"value"`
	Text  string `json:"text"`
}

// ParseFormat parses the compact format grammar attached to a question.
//
// The first rule whose trigger matches wins:
//
//	{"min": 1}     JSON object, used as is
//	0..100         min/max range (kept as strings)
//	red|green      choices, value and text both set to the token
//	k:v;k2:a,b     key/value pairs, a comma turns the value into a list
//	Start          single scalar stored under "value"
//
// A triggered rule that yields nothing is not retried against later rules.
// Choice-typed questions get their choice lists normalized to []Choice.
func ParseFormat(qtype QuestionType, raw string) Constraints {
	c := parseGrammar(strings.TrimSpace(raw))
	if qtype == TypeSingle || qtype == TypeMulti {
		for _, key := range choiceKeys {
			if v, ok := c[key]; ok {
				c[key] = toChoices(v)
			}
		}
	}
	return c
}

func parseGrammar(s string) Constraints {
	c := Constraints{}
	if s == "" {
		return c
	}
	if strings.HasPrefix(s, "{") {
		var m map[string]any
		if err := json.Unmarshal([]byte(s), &m); err == nil {
			for k, v := range m {
				c[k] = v
			}
			return c
		}
	}
	switch {
	case strings.Contains(s, ".."):
		lo, hi, _ := strings.Cut(s, "..")
		if lo = strings.TrimSpace(lo); lo != "" {
			c["min"] = lo
		}
		if hi = strings.TrimSpace(hi); hi != "" {
			c["max"] = hi
		}
	case strings.Contains(s, "|"):
		var choices []Choice
		for _, token := range strings.Split(s, "|") {
			token = strings.TrimSpace(token)
			if token == "" {
				continue
			}
			choices = append(choices, Choice{Value: token, Text: token})
		}
		if len(choices) > 0 {
			c["choices"] = choices
		}
	case strings.Contains(s, ";"):
		for _, pair := range strings.Split(s, ";") {
			key, value, ok := strings.Cut(pair, ":")
			key = strings.TrimSpace(key)
			if !ok || key == "" {
				continue
			}
			value = strings.TrimSpace(value)
			if strings.Contains(value, ",") {
				var items []string
				for _, item := range strings.Split(value, ",") {
					items = append(items, strings.TrimSpace(item))
				}
				c[key] = items
				continue
			}
			c[key] = value
		}
	default:
		c["value"] = s
	}
	return c
}

func toChoices(v any) []Choice {
	var choices []Choice
	switch items := v.(type) {
	case []Choice:
		return items
	case []string:
		for _, s := range items {
			choices = append(choices, Choice{Value: s, Text: s})
		}
	case []any:
		for _, item := range items {
			switch it := item.(type) {
			case map[string]any:
				text, hasText := it["text"]
				value, hasValue := it["value"]
				switch {
				case hasText && hasValue:
					choices = append(choices, Choice{Value: scalarString(value), Text: scalarString(text)})
				case hasValue:
					choices = append(choices, Choice{Value: scalarString(value), Text: scalarString(value)})
				case hasText:
					choices = append(choices, Choice{Value: scalarString(text), Text: scalarString(text)})
				}
			case nil:
			default:
				s := scalarString(it)
				choices = append(choices, Choice{Value: s, Text: s})
			}
		}
	case string:
		if items != "" {
			choices = append(choices, Choice{Value: items, Text: items})
		}
	}
	return choices
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
