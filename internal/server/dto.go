package server

import (
	"encoding/json"

	"github.com/jmoiron/sqlx/types"

	"github.com/paulexconde/dfsurvey/internal/models"
	"github.com/paulexconde/dfsurvey/internal/pkg/paginator"
	"github.com/paulexconde/dfsurvey/internal/services"
)

// Request payloads

type CreateCategoryRequest struct {
	Name string `json:"name" minLength:"1"`
}

type CreateSurveyRequest struct {
	Title       string  `json:"title" minLength:"1"`
	Description *string `json:"description,omitempty"`
	CategoryID  *string `json:"category_id,omitempty"`
	IsTemplate  bool    `json:"is_template,omitempty"`
}

type InstantiateRequest struct {
	Title *string `json:"title,omitempty"`
}

type CreateQuestionRequest struct {
	Question string  `json:"question" minLength:"1"`
	Text     *string `json:"text,omitempty"`
	Type     string  `json:"type" enum:"text,integer,date,single,multi,info,intro,completion"`
	Format   *string `json:"format,omitempty"`
	Sequence *int    `json:"sequence,omitempty" minimum:"0"`
}

type ImportQuestionsRequest struct {
	Rows  []services.QuestionRow `json:"rows"`
	Prune bool                   `json:"prune,omitempty"`
}

type AssignRequest struct {
	UserIDs []string `json:"user_ids" minItems:"1"`
}

type AnswerStepRequest struct {
	Answer any `json:"answer,omitempty"`
}

// Response payloads

type CategoryResponse = models.Category
type QuestionResponse = models.Question
type ResponseResponse = models.Response
type ResponseDetailResponse = models.ResponseDetail

type SurveyResponse struct {
	ID          string `json:"id"`
	CategoryID  string `json:"category_id,omitempty"`
	TemplateID  string `json:"template_id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
	IsTemplate  bool   `json:"is_template"`
	HasTask     bool   `json:"has_task"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type SurveyPage struct {
	Items       []SurveyResponse `json:"items"`
	CurrentPage int              `json:"current_page"`
	TotalPages  int              `json:"total_pages"`
	PrevPage    *int             `json:"prev_page,omitempty"`
	NextPage    *int             `json:"next_page,omitempty"`
	TotalItems  int              `json:"total_items"`
}

type UserSurveyResponse struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	SurveyID    string `json:"survey_id"`
	CurrentStep string `json:"current_step,omitempty"`
	Completed   bool   `json:"completed"`
	Result      any    `json:"result,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type UserSurveyPage struct {
	Items       []UserSurveyResponse `json:"items"`
	CurrentPage int                  `json:"current_page"`
	TotalPages  int                  `json:"total_pages"`
	PrevPage    *int                 `json:"prev_page,omitempty"`
	NextPage    *int                 `json:"next_page,omitempty"`
	TotalItems  int                  `json:"total_items"`
}

type StepProgressResponse struct {
	UserSurveyID string `json:"user_survey_id"`
	Answered     string `json:"answered"`
	Next         string `json:"next,omitempty"`
	Last         bool   `json:"last"`
}

type ImportResponse struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Skipped int      `json:"skipped"`
	Kept    []string `json:"kept"`
	Pruned  int      `json:"pruned"`
}

type RegenerateResponse struct {
	Regenerated int `json:"regenerated"`
}

func surveyResponse(s models.Survey) SurveyResponse {
	return SurveyResponse{
		ID:          s.ID,
		CategoryID:  s.CategoryID.String,
		TemplateID:  s.TemplateID.String,
		Title:       s.Title,
		Description: s.Description,
		IsTemplate:  s.IsTemplate,
		HasTask:     s.Task.Valid,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func surveyPage(p *paginator.PaginatedResponse[models.Survey]) SurveyPage {
	items := make([]SurveyResponse, 0, len(p.Items))
	for _, s := range p.Items {
		items = append(items, surveyResponse(s))
	}
	return SurveyPage{
		Items:       items,
		CurrentPage: p.CurrentPage,
		TotalPages:  p.TotalPages,
		PrevPage:    p.PrevPage,
		NextPage:    p.NextPage,
		TotalItems:  p.TotalItems,
	}
}

func userSurveyResponse(u models.UserSurvey) UserSurveyResponse {
	return UserSurveyResponse{
		ID:          u.ID,
		UserID:      u.UserID,
		SurveyID:    u.SurveyID,
		CurrentStep: u.CurrentStep.String,
		Completed:   u.Completed(),
		Result:      rawJSON(u.Result),
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func mapUserSurveys(items []models.UserSurvey) []UserSurveyResponse {
	out := make([]UserSurveyResponse, 0, len(items))
	for _, u := range items {
		out = append(out, userSurveyResponse(u))
	}
	return out
}

func userSurveyPage(p *paginator.PaginatedResponse[models.UserSurvey]) UserSurveyPage {
	return UserSurveyPage{
		Items:       mapUserSurveys(p.Items),
		CurrentPage: p.CurrentPage,
		TotalPages:  p.TotalPages,
		PrevPage:    p.PrevPage,
		NextPage:    p.NextPage,
		TotalItems:  p.TotalItems,
	}
}

func stepProgressResponse(p *services.StepProgress) StepProgressResponse {
	return StepProgressResponse{
		UserSurveyID: p.UserSurveyID,
		Answered:     p.Answered,
		Next:         p.Next,
		Last:         p.Last,
	}
}

// rawJSON hands a stored JSON column back as-is so it is not re-encoded as a
// string.
func rawJSON(v types.NullJSONText) any {
	if !v.Valid || len(v.JSONText) == 0 {
		return nil
	}
	return json.RawMessage(v.JSONText)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
