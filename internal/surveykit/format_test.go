package surveykit

import (
	"reflect"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name   string
		qtype  QuestionType
		raw    string
		expect Constraints
	}{
		{
			name:   "empty",
			qtype:  TypeText,
			raw:    "   ",
			expect: Constraints{},
		},
		{
			name:   "range",
			qtype:  TypeInteger,
			raw:    "0..100",
			expect: Constraints{"min": "0", "max": "100"},
		},
		{
			name:   "open range",
			qtype:  TypeDate,
			raw:    "..2024-12-31",
			expect: Constraints{"max": "2024-12-31"},
		},
		{
			name:  "choices",
			qtype: TypeMulti,
			raw:   "a| b |c",
			expect: Constraints{"choices": []Choice{
				{Value: "a", Text: "a"},
				{Value: "b", Text: "b"},
				{Value: "c", Text: "c"},
			}},
		},
		{
			name:   "key value pairs",
			qtype:  TypeText,
			raw:    "maxLines:3;hints:one, two",
			expect: Constraints{"maxLines": "3", "hints": []string{"one", "two"}},
		},
		{
			name:   "scalar",
			qtype:  TypeInfo,
			raw:    "Start",
			expect: Constraints{"value": "Start"},
		},
		{
			name:   "json",
			qtype:  TypeIntro,
			raw:    `{"buttonText": "Go", "title": "Hi"}`,
			expect: Constraints{"buttonText": "Go", "title": "Hi"},
		},
		{
			name:  "json choices normalized",
			qtype: TypeSingle,
			raw:   `{"options": ["x", {"text": "Why", "value": "y"}]}`,
			expect: Constraints{"options": []Choice{
				{Value: "x", Text: "x"},
				{Value: "y", Text: "Why"},
			}},
		},
		{
			name:   "range wins over pipe",
			qtype:  TypeText,
			raw:    "1..2|3",
			expect: Constraints{"min": "1", "max": "2|3"},
		},
		{
			name:   "broken json falls through",
			qtype:  TypeText,
			raw:    "{oops",
			expect: Constraints{"value": "{oops"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseFormat(tt.qtype, tt.raw)
			if !reflect.DeepEqual(got, tt.expect) {
				t.Errorf("ParseFormat(%q) = %#v, want %#v", tt.raw, got, tt.expect)
			}
		})
	}
}

func TestParseFormatTriggeredRuleIsNotRetried(t *testing.T) {
	got := ParseFormat(TypeSingle, " | | ")
	if len(got) != 0 {
		t.Errorf("expected empty constraints, got %#v", got)
	}
}
