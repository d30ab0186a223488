// Package surveykit turns survey questions into the navigable task document
// consumed by SurveyKit clients, and turns the result payload those clients
// submit back into per-question answers.
package surveykit

// QuestionType is the closed set of question kinds a survey can hold.
type QuestionType string

const (
	TypeText       QuestionType = "text"
	TypeInteger    QuestionType = "integer"
	TypeDate       QuestionType = "date"
	TypeSingle     QuestionType = "single"
	TypeMulti      QuestionType = "multi"
	TypeInfo       QuestionType = "info"
	TypeIntro      QuestionType = "intro" // legacy alias of info
	TypeCompletion QuestionType = "completion"
)

// Valid reports whether t is one of the known question types.
func (t QuestionType) Valid() bool {
	switch t {
	case TypeText, TypeInteger, TypeDate, TypeSingle, TypeMulti, TypeInfo, TypeIntro, TypeCompletion:
		return true
	}
	return false
}

// CapturesAnswer is false for the intro and completion control steps.
func (t QuestionType) CapturesAnswer() bool {
	switch t {
	case TypeInfo, TypeIntro, TypeCompletion:
		return false
	}
	return t.Valid()
}

// Question is the renderer's view of a stored question.
type Question struct {
	ID       string
	Question string
	Text     string
	Type     QuestionType
	Format   string
}

// StepIdentifier returns the id the question's step is published under.
// It is the question's primary key so that a result submitted against an
// older copy of the task still resolves to the same question.
func StepIdentifier(q Question) string {
	return q.ID
}
