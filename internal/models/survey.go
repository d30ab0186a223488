package models

import (
	"database/sql"

	"github.com/jmoiron/sqlx/types"
)

type Category struct {
	ID        string `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	CreatedAt string `db:"created_at" json:"created_at"`
}

func (c Category) PrimaryKey() string { return c.ID }

// Survey is either a template or a survey instantiated from one. Task holds
// the rendered task document once it has been generated.
type Survey struct {
	ID          string             `db:"id" json:"id"`
	CategoryID  sql.NullString     `db:"category_id" json:"category_id"`
	TemplateID  sql.NullString     `db:"template_id" json:"template_id"`
	Title       string             `db:"title" json:"title"`
	Description string             `db:"description" json:"description"`
	IsTemplate  bool               `db:"is_template" json:"is_template"`
	Task        types.NullJSONText `db:"task" json:"task"`
	CreatedAt   string             `db:"created_at" json:"created_at"`
	UpdatedAt   string             `db:"updated_at" json:"updated_at"`
}

func (s Survey) PrimaryKey() string { return s.ID }

// SurveyTask is the partial update written when a task document changes.
type SurveyTask struct {
	ID        string             `db:"-"`
	Task      types.NullJSONText `db:"task"`
	UpdatedAt string             `db:"updated_at"`
}

func (s SurveyTask) PrimaryKey() string { return s.ID }

type Question struct {
	ID        string `db:"id" json:"id"`
	SurveyID  string `db:"survey_id" json:"survey_id"`
	Question  string `db:"question" json:"question"`
	Text      string `db:"text" json:"text"`
	Type      string `db:"question_type" json:"type"`
	Format    string `db:"format" json:"format"`
	Sequence  int    `db:"sequence" json:"sequence"`
	CreatedAt string `db:"created_at" json:"created_at"`
}

func (q Question) PrimaryKey() string { return q.ID }

// UserSurvey is one user's copy of a survey: the step they are on and the
// result payload submitted once they finish.
type UserSurvey struct {
	ID          string             `db:"id" json:"id"`
	UserID      string             `db:"user_id" json:"user_id"`
	SurveyID    string             `db:"survey_id" json:"survey_id"`
	CurrentStep sql.NullString     `db:"current_step" json:"current_step"`
	Result      types.NullJSONText `db:"result" json:"result"`
	CreatedAt   string             `db:"created_at" json:"created_at"`
	UpdatedAt   string             `db:"updated_at" json:"updated_at"`
}

func (u UserSurvey) PrimaryKey() string { return u.ID }

// Completed reports whether a result payload has been submitted.
func (u UserSurvey) Completed() bool { return u.Result.Valid }

// UserSurveyStep is the partial update written when a user moves between steps.
type UserSurveyStep struct {
	ID          string         `db:"-"`
	CurrentStep sql.NullString `db:"current_step"`
	UpdatedAt   string         `db:"updated_at"`
}

func (u UserSurveyStep) PrimaryKey() string { return u.ID }

type Response struct {
	ID           string `db:"id" json:"id"`
	UserSurveyID string `db:"user_survey_id" json:"user_survey_id"`
	QuestionID   string `db:"question_id" json:"question_id"`
	Value        string `db:"value" json:"value"`
	CreatedAt    string `db:"created_at" json:"created_at"`
}

func (r Response) PrimaryKey() string { return r.ID }

// SurveyStats counts the users a survey was assigned to.
type SurveyStats struct {
	SurveyID       string `db:"survey_id" json:"survey_id"`
	UsersTotal     int    `db:"users_total" json:"users_total"`
	UsersCompleted int    `db:"users_completed" json:"users_completed"`
}

// Respondent is a user who has at least one recorded response.
type Respondent struct {
	UserID       string `db:"user_id" json:"user_id"`
	UserSurveyID string `db:"user_survey_id" json:"user_survey_id"`
}

// ResponseDetail is a response joined with its question and respondent.
type ResponseDetail struct {
	ID           string `db:"id" json:"id"`
	UserSurveyID string `db:"user_survey_id" json:"user_survey_id"`
	UserID       string `db:"user_id" json:"user_id"`
	QuestionID   string `db:"question_id" json:"question_id"`
	Question     string `db:"question" json:"question"`
	Sequence     int    `db:"sequence" json:"sequence"`
	Value        string `db:"value" json:"value"`
}
