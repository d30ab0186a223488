package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/paulexconde/dfsurvey/internal/config"
	"github.com/paulexconde/dfsurvey/internal/db"
	"github.com/paulexconde/dfsurvey/internal/models"
	"github.com/paulexconde/dfsurvey/internal/pkg/metrics"
	"go.uber.org/zap"
)

type testEnv struct {
	Ctx         context.Context
	Stores      *Stores
	Surveys     SurveyService
	UserSurveys UserSurveyService
	Responses   ResponseService
	NPS         NPSService
	Import      ImportService
	Metrics     *metrics.Metrics
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	conn, err := db.Open(config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "surveyd.db")})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	ctx := context.Background()
	if err := db.ApplySchema(ctx, conn); err != nil {
		t.Fatalf("apply schema: %v", err)
	}

	log := zap.NewNop()
	m := metrics.New()
	stores := NewStores(conn)
	surveys := NewSurveyService(stores, log, m, 2, 8)
	responses := NewResponseService(stores, surveys, log, m)

	return testEnv{
		Ctx:         ctx,
		Stores:      stores,
		Surveys:     surveys,
		UserSurveys: NewUserSurveyService(stores, surveys, log),
		Responses:   responses,
		NPS:         NewNPSService(surveys, responses),
		Import:      NewImportService(stores, surveys, log),
		Metrics:     m,
	}
}

// seedSurvey creates a survey with a name, an age and a colors question.
func seedSurvey(t *testing.T, env testEnv) (*models.Survey, []models.Question) {
	t.Helper()
	survey, err := env.Surveys.CreateSurvey(env.Ctx, NewSurvey{Title: "Check-in"})
	if err != nil {
		t.Fatalf("create survey: %v", err)
	}

	inputs := []NewQuestion{
		{Question: "Your name?", Type: "text"},
		{Question: "How likely are you to recommend us?", Type: "integer", Format: "0..10"},
		{Question: "Colors?", Type: "multi", Format: "red|blue|green"},
	}
	var questions []models.Question
	for _, in := range inputs {
		q, err := env.Surveys.AddQuestion(env.Ctx, survey.ID, in)
		if err != nil {
			t.Fatalf("add question: %v", err)
		}
		questions = append(questions, *q)
	}
	return survey, questions
}
