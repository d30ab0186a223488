package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/paulexconde/dfsurvey/internal/models"
	"github.com/paulexconde/dfsurvey/internal/pkg/paginator"
	"github.com/paulexconde/dfsurvey/internal/pkg/store"
	"github.com/paulexconde/dfsurvey/internal/surveykit"
	"github.com/paulexconde/dfsurvey/pkg/fault"
	"go.uber.org/zap"
)

// StepProgress is where a user stands after answering a step.
type StepProgress struct {
	UserSurveyID string
	Answered     string
	Next         string
	// Last is set once the answered step was the final one.
	Last bool
}

// Handles the assignment of surveys to users and their progress through
// the task.
type UserSurveyService interface {
	// Assign the survey to each user that does not have it yet. Only the
	// newly created instances are returned.
	Assign(ctx context.Context, surveyID string, userIDs []string) ([]models.UserSurvey, error)
	Get(ctx context.Context, id string) (*models.UserSurvey, error)
	ListForUser(ctx context.Context, userID string, page, limit int) (*paginator.PaginatedResponse[models.UserSurvey], error)
	// Records that stepID was answered and moves the instance to the next
	// step according to the task's rules.
	AnswerStep(ctx context.Context, id, stepID string, answer any) (*StepProgress, error)
	// Instances that are still waiting for a result, optionally limited to
	// one survey.
	PendingReminders(ctx context.Context, surveyID string) ([]models.UserSurvey, error)
}

type userSurveyServiceImpl struct {
	stores      *Stores
	surveys     SurveyService
	userSurveys paginator.Paginator[models.UserSurvey]
	logger      *zap.Logger
}

// Instantiate the UserSurveyService.
func NewUserSurveyService(stores *Stores, surveys SurveyService, logger *zap.Logger) UserSurveyService {
	return &userSurveyServiceImpl{
		stores:      stores,
		surveys:     surveys,
		userSurveys: paginator.NewPaginator(stores.UserSurveys),
		logger:      logger,
	}
}

func (s *userSurveyServiceImpl) Assign(ctx context.Context, surveyID string, userIDs []string) ([]models.UserSurvey, error) {
	if _, err := s.surveys.GetSurvey(ctx, surveyID); err != nil {
		return nil, err
	}

	created := []models.UserSurvey{}
	seen := map[string]bool{}
	for _, userID := range userIDs {
		userID = strings.TrimSpace(userID)
		if userID == "" || seen[userID] {
			continue
		}
		seen[userID] = true

		_, err := s.stores.UserSurveys.Get(ctx,
			"SELECT * FROM user_surveys WHERE user_id = ? AND survey_id = ?", userID, surveyID)
		if err == nil {
			continue
		}
		if !errors.Is(err, fault.ErrNotFound) {
			return created, err
		}

		now := store.Now()
		instance, err := s.stores.UserSurveys.Create(ctx, models.UserSurvey{
			ID:        uuid.NewString(),
			UserID:    userID,
			SurveyID:  surveyID,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			// Assigned concurrently.
			if errors.Is(err, fault.ErrUniqueViolation) {
				continue
			}
			return created, err
		}
		created = append(created, *instance)
	}

	s.logger.Info("survey assigned",
		zap.String("survey_id", surveyID),
		zap.Int("requested", len(userIDs)),
		zap.Int("created", len(created)))

	return created, nil
}

func (s *userSurveyServiceImpl) Get(ctx context.Context, id string) (*models.UserSurvey, error) {
	return s.stores.UserSurveys.Get(ctx, "SELECT * FROM user_surveys WHERE id = ?", id)
}

func (s *userSurveyServiceImpl) ListForUser(ctx context.Context, userID string, page, limit int) (*paginator.PaginatedResponse[models.UserSurvey], error) {
	return s.userSurveys.PaginateQuery(ctx,
		"SELECT * FROM user_surveys WHERE user_id = ? ORDER BY updated_at DESC, id",
		[]any{userID}, page, limit)
}

func (s *userSurveyServiceImpl) AnswerStep(ctx context.Context, id, stepID string, answer any) (*StepProgress, error) {
	instance, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if instance.Completed() {
		return nil, fault.NewConflictError("cannot answer a step", fault.ErrSurveyCompleted)
	}

	task, err := s.surveys.Task(ctx, instance.SurveyID)
	if err != nil {
		return nil, err
	}

	next, err := surveykit.NextStep(task, stepID, answer)
	if err != nil {
		return nil, fault.NewClientError(fmt.Sprintf("cannot answer step %s", stepID), err)
	}

	var current any
	if next != "" {
		current = next
	}

	n, err := s.stores.UserSurveys.BulkUpdate(ctx,
		"UPDATE user_surveys SET current_step = ?, updated_at = ? WHERE id = ? AND result IS NULL",
		current, store.Now(), id)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fault.NewConflictError("cannot answer a step", fault.ErrSurveyCompleted)
	}

	s.logger.Debug("step answered",
		zap.String("user_survey_id", id),
		zap.String("step", stepID),
		zap.String("next", next))

	return &StepProgress{
		UserSurveyID: id,
		Answered:     stepID,
		Next:         next,
		Last:         next == "",
	}, nil
}

func (s *userSurveyServiceImpl) PendingReminders(ctx context.Context, surveyID string) ([]models.UserSurvey, error) {
	if surveyID == "" {
		return s.stores.UserSurveys.Select(ctx,
			"SELECT * FROM user_surveys WHERE result IS NULL ORDER BY created_at")
	}
	return s.stores.UserSurveys.Select(ctx,
		"SELECT * FROM user_surveys WHERE result IS NULL AND survey_id = ? ORDER BY created_at", surveyID)
}
