package services

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/paulexconde/dfsurvey/internal/models"
	"github.com/paulexconde/dfsurvey/internal/pkg/metrics"
	"github.com/paulexconde/dfsurvey/internal/pkg/store"
	"github.com/paulexconde/dfsurvey/internal/surveykit"
	"github.com/paulexconde/dfsurvey/pkg/fault"
	"go.uber.org/zap"
)

// Bounds re-derivation when questions disappear mid-write.
const materializeAttempts = 3

// ResponseGrid is the question by respondent matrix of a survey. Values[i][j]
// is respondent j's answer to question i, or "" when there is none.
type ResponseGrid struct {
	Questions   []models.Question
	Respondents []string
	Values      [][]string
}

// Handles result payloads and the responses derived from them.
type ResponseService interface {
	// Stores the result payload of a user survey. A payload can only be
	// stored once; responses are materialized right after.
	SubmitResult(ctx context.Context, userSurveyID string, payload []byte) ([]models.Response, error)
	// Derives responses from the stored payload in one transaction. It does
	// nothing when the instance already has responses.
	Materialize(ctx context.Context, userSurveyID string) ([]models.Response, error)
	// Deletes the responses of a user survey, keeping the payload.
	Reset(ctx context.Context, userSurveyID string) (int64, error)
	// Resets and materializes again.
	Reparse(ctx context.Context, userSurveyID string) ([]models.Response, error)

	ListResponses(ctx context.Context, userSurveyID string) ([]models.ResponseDetail, error)
	ListSurveyResponses(ctx context.Context, surveyID string) ([]models.ResponseDetail, error)
	Respondents(ctx context.Context, surveyID string) ([]models.Respondent, error)
	Grid(ctx context.Context, surveyID string) (*ResponseGrid, error)
}

type responseServiceImpl struct {
	stores  *Stores
	surveys SurveyService
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// Instantiate the ResponseService.
func NewResponseService(stores *Stores, surveys SurveyService, logger *zap.Logger, m *metrics.Metrics) ResponseService {
	return &responseServiceImpl{
		stores:  stores,
		surveys: surveys,
		logger:  logger,
		metrics: m,
	}
}

func (s *responseServiceImpl) SubmitResult(ctx context.Context, userSurveyID string, payload []byte) ([]models.Response, error) {
	var doc map[string]any
	if err := json.Unmarshal(payload, &doc); err != nil || doc == nil {
		return nil, fault.NewClientError("result payload must be a JSON object", err)
	}

	instance, err := s.getInstance(ctx, userSurveyID)
	if err != nil {
		return nil, err
	}
	if instance.Completed() {
		return nil, fault.NewConflictError("cannot submit result", fault.ErrResultAlreadySet)
	}

	// The IS NULL guard keeps the first payload when two submissions race.
	n, err := s.stores.UserSurveys.BulkUpdate(ctx,
		"UPDATE user_surveys SET result = ?, current_step = NULL, updated_at = ? WHERE id = ? AND result IS NULL",
		string(payload), store.Now(), userSurveyID)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fault.NewConflictError("cannot submit result", fault.ErrResultAlreadySet)
	}

	s.metrics.ResultsSubmitted.Inc()
	s.logger.Info("result submitted", zap.String("user_survey_id", userSurveyID))

	return s.Materialize(ctx, userSurveyID)
}

func (s *responseServiceImpl) Materialize(ctx context.Context, userSurveyID string) ([]models.Response, error) {
	instance, err := s.getInstance(ctx, userSurveyID)
	if err != nil {
		return nil, err
	}
	if !instance.Completed() {
		return nil, fault.NewClientError("user survey has no result yet", nil)
	}

	task, err := s.surveys.Task(ctx, instance.SurveyID)
	if err != nil {
		return nil, err
	}

	answers, err := surveykit.ReconcileJSON(instance.Result.JSONText, task)
	if err != nil {
		return nil, fault.NewInternalError("stored result payload is not valid JSON", err)
	}

	var (
		derived []surveykit.Response
		stored  []models.Response
	)
	for attempt := 1; ; attempt++ {
		derived, err = s.derive(ctx, instance.SurveyID, userSurveyID, answers)
		if err != nil {
			return nil, err
		}
		if derived == nil {
			s.logger.Debug("responses already materialized", zap.String("user_survey_id", userSurveyID))
			return []models.Response{}, nil
		}

		rows := make([]store.DTO, 0, len(derived))
		for _, r := range derived {
			rows = append(rows, models.Response{
				ID:           uuid.NewString(),
				UserSurveyID: r.UserSurveyID,
				QuestionID:   r.QuestionID,
				Value:        r.Value,
				CreatedAt:    store.Now(),
			})
		}

		stored, err = s.stores.Responses.CreateMany(ctx, rows)
		if err == nil {
			break
		}
		switch {
		case errors.Is(err, fault.ErrUniqueViolation):
			// Another writer materialized the same result first.
			s.logger.Debug("responses materialized concurrently", zap.String("user_survey_id", userSurveyID))
			return []models.Response{}, nil
		case errors.Is(err, fault.ErrForeignKeyViolation) && attempt < materializeAttempts:
			// A question was deleted after it was listed. Re-derive so it
			// is dropped as stale.
			s.logger.Warn("question deleted during materialization",
				zap.String("user_survey_id", userSurveyID),
				zap.Int("attempt", attempt))
			continue
		}
		return nil, err
	}

	skipped := len(answers) - len(derived)
	s.metrics.ResponsesStored.Add(float64(len(stored)))
	s.metrics.EntriesSkipped.Add(float64(skipped))
	s.logger.Info("responses materialized",
		zap.String("user_survey_id", userSurveyID),
		zap.Int("answers", len(answers)),
		zap.Int("stored", len(stored)),
		zap.Int("dropped", skipped))

	return stored, nil
}

// derive maps answers onto the survey's live questions. It returns nil when
// responses already exist for the instance.
func (s *responseServiceImpl) derive(ctx context.Context, surveyID, userSurveyID string, answers []surveykit.Answer) ([]surveykit.Response, error) {
	live, err := s.surveys.ListQuestions(ctx, surveyID)
	if err != nil {
		return nil, err
	}

	return surveykit.Materialize(userSurveyID, answers, kitQuestions(live), func() (bool, error) {
		count, err := s.stores.Responses.QueryRow(ctx,
			"SELECT COUNT(*) FROM responses WHERE user_survey_id = ?", userSurveyID)
		if err != nil {
			return false, err
		}
		n, _ := count.(int64)
		return n > 0, nil
	})
}

func (s *responseServiceImpl) Reset(ctx context.Context, userSurveyID string) (int64, error) {
	if _, err := s.getInstance(ctx, userSurveyID); err != nil {
		return 0, err
	}
	return s.stores.Responses.DeleteWhere(ctx, "user_survey_id", userSurveyID)
}

func (s *responseServiceImpl) Reparse(ctx context.Context, userSurveyID string) ([]models.Response, error) {
	removed, err := s.Reset(ctx, userSurveyID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("responses reset", zap.String("user_survey_id", userSurveyID), zap.Int64("removed", removed))
	return s.Materialize(ctx, userSurveyID)
}

const responseDetailQuery = `SELECT r.id, r.user_survey_id, us.user_id, r.question_id, q.question, q.sequence, r.value
	FROM responses r
	JOIN user_surveys us ON us.id = r.user_survey_id
	JOIN questions q ON q.id = r.question_id`

func (s *responseServiceImpl) ListResponses(ctx context.Context, userSurveyID string) ([]models.ResponseDetail, error) {
	if _, err := s.getInstance(ctx, userSurveyID); err != nil {
		return nil, err
	}
	return s.stores.ResponseDetails.Select(ctx,
		responseDetailQuery+" WHERE r.user_survey_id = ? ORDER BY q.sequence, q.created_at", userSurveyID)
}

func (s *responseServiceImpl) ListSurveyResponses(ctx context.Context, surveyID string) ([]models.ResponseDetail, error) {
	if _, err := s.surveys.GetSurvey(ctx, surveyID); err != nil {
		return nil, err
	}
	return s.stores.ResponseDetails.Select(ctx,
		responseDetailQuery+" WHERE us.survey_id = ? ORDER BY us.user_id, q.sequence, q.created_at", surveyID)
}

func (s *responseServiceImpl) Respondents(ctx context.Context, surveyID string) ([]models.Respondent, error) {
	db := s.stores.Responses.Base()
	respondents := []models.Respondent{}
	query := db.Rebind(`SELECT DISTINCT us.user_id, us.id AS user_survey_id
		FROM responses r
		JOIN user_surveys us ON us.id = r.user_survey_id
		WHERE us.survey_id = ? AND us.user_id <> ''
		ORDER BY us.user_id`)

	if err := db.SelectContext(ctx, &respondents, query, surveyID); err != nil {
		return nil, err
	}
	return respondents, nil
}

func (s *responseServiceImpl) Grid(ctx context.Context, surveyID string) (*ResponseGrid, error) {
	questions, err := s.surveys.ListQuestions(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	details, err := s.ListSurveyResponses(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	respondents, err := s.Respondents(ctx, surveyID)
	if err != nil {
		return nil, err
	}

	column := make(map[string]int, len(respondents))
	grid := &ResponseGrid{Questions: questions, Respondents: make([]string, 0, len(respondents))}
	for i, r := range respondents {
		column[r.UserID] = i
		grid.Respondents = append(grid.Respondents, r.UserID)
	}

	row := make(map[string]int, len(questions))
	grid.Values = make([][]string, len(questions))
	for i, q := range questions {
		row[q.ID] = i
		grid.Values[i] = make([]string, len(respondents))
	}

	for _, d := range details {
		i, okRow := row[d.QuestionID]
		j, okCol := column[d.UserID]
		if okRow && okCol {
			grid.Values[i][j] = d.Value
		}
	}

	return grid, nil
}

func (s *responseServiceImpl) getInstance(ctx context.Context, id string) (*models.UserSurvey, error) {
	return s.stores.UserSurveys.Get(ctx, "SELECT * FROM user_surveys WHERE id = ?", id)
}
