package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"github.com/paulexconde/dfsurvey/internal/models"
	"github.com/paulexconde/dfsurvey/internal/pkg/metrics"
	"github.com/paulexconde/dfsurvey/internal/pkg/paginator"
	"github.com/paulexconde/dfsurvey/internal/pkg/store"
	"github.com/paulexconde/dfsurvey/internal/pkg/workerpool"
	"github.com/paulexconde/dfsurvey/internal/surveykit"
	"github.com/paulexconde/dfsurvey/pkg/fault"
	"go.uber.org/zap"
)

// NewSurvey holds the fields needed to create a survey or template.
type NewSurvey struct {
	Title       string
	Description string
	CategoryID  string
	IsTemplate  bool
}

// NewQuestion holds the fields needed to add a question. A nil Sequence
// places the question after the existing ones.
type NewQuestion struct {
	Question string
	Text     string
	Type     string
	Format   string
	Sequence *int
}

// SurveyFilter narrows ListSurveys. A nil IsTemplate lists both kinds.
type SurveyFilter struct {
	IsTemplate *bool
	CategoryID string
}

// Manages surveys, their questions and their task documents.
type SurveyService interface {
	CreateCategory(ctx context.Context, name string) (*models.Category, error)
	CreateSurvey(ctx context.Context, in NewSurvey) (*models.Survey, error)
	GetSurvey(ctx context.Context, id string) (*models.Survey, error)
	ListSurveys(ctx context.Context, filter SurveyFilter, page, limit int) (*paginator.PaginatedResponse[models.Survey], error)
	// Create a survey from a template, copying its questions. The task is
	// rendered on first use.
	CreateFromTemplate(ctx context.Context, templateID, title string) (*models.Survey, error)
	Stats(ctx context.Context, surveyID string) (*models.SurveyStats, error)

	AddQuestion(ctx context.Context, surveyID string, in NewQuestion) (*models.Question, error)
	ListQuestions(ctx context.Context, surveyID string) ([]models.Question, error)
	DeleteQuestion(ctx context.Context, id string) error

	// Returns the survey's task document, rendering and storing it when the
	// survey has none yet.
	Task(ctx context.Context, surveyID string) (*surveykit.Task, error)
	// Renders the task again from the current questions.
	RegenerateTask(ctx context.Context, surveyID string) (*surveykit.Task, error)
	// Regenerates every survey's task and returns how many succeeded.
	RegenerateAll(ctx context.Context) (int, error)
	// Stores an author-edited task document after validating it.
	SetTask(ctx context.Context, surveyID string, task *surveykit.Task) (*surveykit.Task, error)
}

type surveyServiceImpl struct {
	stores  *Stores
	surveys paginator.Paginator[models.Survey]
	logger  *zap.Logger
	metrics *metrics.Metrics
	workers int
	queue   int
}

// Instantiate the SurveyService. workers bounds RegenerateAll's concurrency
// and queue is how many renders may wait for a free worker.
func NewSurveyService(stores *Stores, logger *zap.Logger, m *metrics.Metrics, workers, queue int) SurveyService {
	return &surveyServiceImpl{
		stores:  stores,
		surveys: paginator.NewPaginator(stores.Surveys),
		logger:  logger,
		metrics: m,
		workers: workers,
		queue:   queue,
	}
}

func (s *surveyServiceImpl) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fault.NewClientError("category name is required", nil)
	}

	category, err := s.stores.Categories.Create(ctx, models.Category{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: store.Now(),
	})
	if err != nil {
		if errors.Is(err, fault.ErrUniqueViolation) {
			return nil, fault.NewConflictError(fmt.Sprintf("category %q already exists", name), err)
		}
		return nil, err
	}
	return category, nil
}

func (s *surveyServiceImpl) CreateSurvey(ctx context.Context, in NewSurvey) (*models.Survey, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fault.NewClientError("survey title is required", nil)
	}

	now := store.Now()
	survey := models.Survey{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		IsTemplate:  in.IsTemplate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.CategoryID != "" {
		survey.CategoryID = sql.NullString{String: in.CategoryID, Valid: true}
	}

	created, err := s.stores.Surveys.Create(ctx, survey)
	if err != nil {
		if errors.Is(err, fault.ErrForeignKeyViolation) {
			return nil, fault.NewClientError(fmt.Sprintf("unknown category %s", in.CategoryID), err)
		}
		return nil, err
	}

	s.logger.Info("survey created", zap.String("survey_id", created.ID), zap.Bool("template", created.IsTemplate))
	return created, nil
}

func (s *surveyServiceImpl) GetSurvey(ctx context.Context, id string) (*models.Survey, error) {
	return s.stores.Surveys.Get(ctx, "SELECT * FROM surveys WHERE id = ?", id)
}

func (s *surveyServiceImpl) ListSurveys(ctx context.Context, filter SurveyFilter, page, limit int) (*paginator.PaginatedResponse[models.Survey], error) {
	var (
		where []string
		args  []any
	)
	if filter.IsTemplate != nil {
		where = append(where, "is_template = ?")
		args = append(args, *filter.IsTemplate)
	}
	if filter.CategoryID != "" {
		where = append(where, "category_id = ?")
		args = append(args, filter.CategoryID)
	}

	query := "SELECT * FROM surveys"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"

	return s.surveys.PaginateQuery(ctx, query, args, page, limit)
}

func (s *surveyServiceImpl) CreateFromTemplate(ctx context.Context, templateID, title string) (*models.Survey, error) {
	template, err := s.GetSurvey(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if !template.IsTemplate {
		return nil, fault.NewClientError(fmt.Sprintf("survey %s is not a template", templateID), nil)
	}

	questions, err := s.ListQuestions(ctx, templateID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(title) == "" {
		title = template.Title
	}

	now := store.Now()
	survey, err := s.stores.Surveys.Create(ctx, models.Survey{
		ID:          uuid.NewString(),
		CategoryID:  template.CategoryID,
		TemplateID:  sql.NullString{String: template.ID, Valid: true},
		Title:       title,
		Description: template.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, err
	}

	for _, q := range questions {
		_, err := s.stores.Questions.Create(ctx, models.Question{
			ID:        uuid.NewString(),
			SurveyID:  survey.ID,
			Question:  q.Question,
			Text:      q.Text,
			Type:      q.Type,
			Format:    q.Format,
			Sequence:  q.Sequence,
			CreatedAt: store.Now(),
		})
		if err != nil {
			if derr := s.stores.Surveys.Delete(ctx, survey.ID); derr != nil {
				s.logger.Error("cleanup of partial survey failed", zap.String("survey_id", survey.ID), zap.Error(derr))
			}
			return nil, err
		}
	}

	s.logger.Info("survey created from template",
		zap.String("survey_id", survey.ID),
		zap.String("template_id", templateID),
		zap.Int("questions", len(questions)))

	return survey, nil
}

func (s *surveyServiceImpl) Stats(ctx context.Context, surveyID string) (*models.SurveyStats, error) {
	if _, err := s.GetSurvey(ctx, surveyID); err != nil {
		return nil, err
	}

	stats := models.SurveyStats{SurveyID: surveyID}
	db := s.stores.UserSurveys.Base()
	query := db.Rebind(`SELECT COUNT(*) AS users_total, COUNT(result) AS users_completed
		FROM user_surveys WHERE survey_id = ?`)

	if err := db.GetContext(ctx, &stats, query, surveyID); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *surveyServiceImpl) AddQuestion(ctx context.Context, surveyID string, in NewQuestion) (*models.Question, error) {
	if strings.TrimSpace(in.Question) == "" {
		return nil, fault.NewClientError("question text is required", nil)
	}
	if !surveykit.QuestionType(in.Type).Valid() {
		return nil, fault.NewClientError(fmt.Sprintf("unknown question type %q", in.Type), nil)
	}
	if _, err := s.GetSurvey(ctx, surveyID); err != nil {
		return nil, err
	}

	sequence := 0
	if in.Sequence != nil {
		sequence = *in.Sequence
	} else {
		last, err := s.stores.Questions.QueryRow(ctx, "SELECT COALESCE(MAX(sequence), 0) FROM questions WHERE survey_id = ?", surveyID)
		if err != nil {
			return nil, err
		}
		if n, ok := last.(int64); ok {
			sequence = int(n) + 1
		}
	}

	return s.stores.Questions.Create(ctx, models.Question{
		ID:        uuid.NewString(),
		SurveyID:  surveyID,
		Question:  strings.TrimSpace(in.Question),
		Text:      in.Text,
		Type:      in.Type,
		Format:    in.Format,
		Sequence:  sequence,
		CreatedAt: store.Now(),
	})
}

func (s *surveyServiceImpl) ListQuestions(ctx context.Context, surveyID string) ([]models.Question, error) {
	return s.stores.Questions.Select(ctx,
		"SELECT * FROM questions WHERE survey_id = ? ORDER BY sequence, created_at", surveyID)
}

func (s *surveyServiceImpl) DeleteQuestion(ctx context.Context, id string) error {
	return s.stores.Questions.Delete(ctx, id)
}

func (s *surveyServiceImpl) Task(ctx context.Context, surveyID string) (*surveykit.Task, error) {
	survey, err := s.GetSurvey(ctx, surveyID)
	if err != nil {
		return nil, err
	}

	if survey.Task.Valid {
		return surveykit.DecodeTask(survey.Task.JSONText)
	}

	// Concurrent first reads may both render; both write the same document.
	return s.render(ctx, surveyID, "lazy")
}

func (s *surveyServiceImpl) RegenerateTask(ctx context.Context, surveyID string) (*surveykit.Task, error) {
	if _, err := s.GetSurvey(ctx, surveyID); err != nil {
		return nil, err
	}
	return s.render(ctx, surveyID, "regenerate")
}

const (
	regenerateAttempts = 3
	regenerateDelay    = 50 * time.Millisecond
)

func (s *surveyServiceImpl) RegenerateAll(ctx context.Context) (int, error) {
	ids, err := s.stores.Surveys.Select(ctx, "SELECT * FROM surveys ORDER BY created_at")
	if err != nil {
		return 0, err
	}

	pool := workerpool.NewWorkerPool(ctx, s.logger, s.workers, s.queue)

	results := make(chan error, len(ids))
	for _, survey := range ids {
		surveyID := survey.ID
		// Validation failures are final; storage errors are retried.
		lastErr := errors.New("regeneration did not run")
		render := workerpool.WithRetry(s.logger, regenerateAttempts, regenerateDelay, func(ctx context.Context) error {
			_, lastErr = s.render(ctx, surveyID, "regenerate")
			var ve *surveykit.ValidationError
			if errors.As(lastErr, &ve) {
				return nil
			}
			return lastErr
		})
		job := func(ctx context.Context) {
			render(ctx)
			if lastErr != nil {
				s.logger.Error("task regeneration failed", zap.String("survey_id", surveyID), zap.Error(lastErr))
			}
			results <- lastErr
		}
		if err := pool.SubmitWait(ctx, job); err != nil {
			return 0, err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
	defer cancel()
	pool.Shutdown(shutdownCtx)
	close(results)

	var (
		done int
		errs []error
	)
	for err := range results {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		done++
	}

	return done, errors.Join(errs...)
}

func (s *surveyServiceImpl) SetTask(ctx context.Context, surveyID string, task *surveykit.Task) (*surveykit.Task, error) {
	if task == nil {
		return nil, fault.NewClientError("task document is required", nil)
	}
	if task.ID == "" {
		task.ID = surveyID
	}
	if task.Type == "" {
		task.Type = surveykit.TaskNavigable
	}
	if task.Rules == nil {
		task.Rules = []surveykit.Rule{}
	}
	if err := s.storeTask(ctx, surveyID, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *surveyServiceImpl) render(ctx context.Context, surveyID string, trigger string) (*surveykit.Task, error) {
	rows, err := s.ListQuestions(ctx, surveyID)
	if err != nil {
		return nil, err
	}

	task, err := surveykit.RenderTask(surveyID, kitQuestions(rows))
	if err != nil {
		return nil, err
	}

	if err := s.storeTask(ctx, surveyID, task); err != nil {
		return nil, err
	}

	s.metrics.TasksRendered.WithLabelValues(trigger).Inc()
	s.logger.Info("task rendered",
		zap.String("survey_id", surveyID),
		zap.String("trigger", trigger),
		zap.Int("steps", len(task.Steps)))

	return task, nil
}

func (s *surveyServiceImpl) storeTask(ctx context.Context, surveyID string, task *surveykit.Task) error {
	doc, err := json.Marshal(task)
	if err != nil {
		return err
	}

	_, err = s.stores.Surveys.Update(ctx, surveyID, models.SurveyTask{
		ID:        surveyID,
		Task:      types.NullJSONText{JSONText: doc, Valid: true},
		UpdatedAt: store.Now(),
	})
	return err
}

func kitQuestions(rows []models.Question) []surveykit.Question {
	out := make([]surveykit.Question, 0, len(rows))
	for _, q := range rows {
		out = append(out, surveykit.Question{
			ID:       q.ID,
			Question: q.Question,
			Text:     q.Text,
			Type:     surveykit.QuestionType(q.Type),
			Format:   q.Format,
		})
	}
	return out
}
