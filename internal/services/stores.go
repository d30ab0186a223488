package services

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/paulexconde/dfsurvey/internal/models"
	"github.com/paulexconde/dfsurvey/internal/pkg/store"
	"github.com/paulexconde/dfsurvey/internal/surveykit"
)

// Stores groups the table datastores the services share.
type Stores struct {
	Categories      store.Datastorer[models.Category]
	Surveys         store.Datastorer[models.Survey]
	Questions       store.Datastorer[models.Question]
	UserSurveys     store.Datastorer[models.UserSurvey]
	Responses       store.Datastorer[models.Response]
	ResponseDetails store.Datastorer[models.ResponseDetail]
}

// NewStores builds the datastores over db and installs the survey hooks.
func NewStores(db *sqlx.DB) *Stores {
	s := &Stores{
		Categories:      store.NewDataStore[models.Category](db, "categories"),
		Surveys:         store.NewDataStore[models.Survey](db, "surveys"),
		Questions:       store.NewDataStore[models.Question](db, "questions"),
		UserSurveys:     store.NewDataStore[models.UserSurvey](db, "user_surveys"),
		Responses:       store.NewDataStore[models.Response](db, "responses"),
		ResponseDetails: store.NewDataStore[models.ResponseDetail](db, "responses"),
	}

	s.Surveys.SetHooks(store.Hooks{
		PreSave: []func(ctx context.Context, tx *sqlx.Tx, data store.DTO, isNew bool) error{
			validateTaskHook,
		},
	})

	return s
}

// validateTaskHook rejects task documents whose rules point at missing steps.
func validateTaskHook(ctx context.Context, tx *sqlx.Tx, data store.DTO, isNew bool) error {
	var raw []byte
	switch d := data.(type) {
	case models.Survey:
		if !d.Task.Valid {
			return nil
		}
		raw = d.Task.JSONText
	case models.SurveyTask:
		if !d.Task.Valid {
			return nil
		}
		raw = d.Task.JSONText
	default:
		return nil
	}

	task, err := surveykit.DecodeTask(raw)
	if err != nil {
		return &surveykit.ValidationError{Problems: []string{err.Error()}}
	}
	if err := surveykit.ValidateTask(task); err != nil {
		return fmt.Errorf("survey %s: %w", data.PrimaryKey(), err)
	}
	return nil
}
