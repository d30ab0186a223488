package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/paulexconde/dfsurvey/internal/models"
	"github.com/paulexconde/dfsurvey/pkg/fault"
	"go.uber.org/zap"
)

func resultPayload(questions []models.Question, name string, rating int) []byte {
	return []byte(fmt.Sprintf(`{
  "results": [
    {"id": {"id": %q}, "results": [{"result": [%q]}]},
    {"id": {"id": %q}, "results": [{"result": %d}]},
    {"id": {"id": %q}, "results": [{"result": [{"text": "Red", "value": "red"}, {"text": "Blue", "value": "blue"}]}]},
    {"id": {"id": "gone"}, "results": [{"result": "stale"}]},
    {"id": {"id": %q}, "results": []}
  ]
}`, questions[0].ID, name, questions[1].ID, rating, questions[2].ID, questions[0].ID))
}

func TestSubmitResultMaterializes(t *testing.T) {
	env := newTestEnv(t)
	survey, questions := seedSurvey(t, env)

	instances, err := env.UserSurveys.Assign(env.Ctx, survey.ID, []string{"u1"})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	id := instances[0].ID

	responses, err := env.Responses.SubmitResult(env.Ctx, id, resultPayload(questions, "Paris", 9))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(responses) != 3 {
		t.Fatalf("expected 3 responses, got %+v", responses)
	}

	want := map[string]string{
		questions[0].ID: "Paris",
		questions[1].ID: "9",
		questions[2].ID: "red, blue",
	}
	for _, r := range responses {
		if want[r.QuestionID] != r.Value {
			t.Errorf("question %s: expected %q, got %q", r.QuestionID, want[r.QuestionID], r.Value)
		}
	}

	details, err := env.Responses.ListResponses(env.Ctx, id)
	if err != nil {
		t.Fatalf("list responses: %v", err)
	}
	if len(details) != 3 || details[0].QuestionID != questions[0].ID || details[0].UserID != "u1" {
		t.Errorf("unexpected details %+v", details)
	}
}

func TestSubmitResultIsWriteOnce(t *testing.T) {
	env := newTestEnv(t)
	survey, questions := seedSurvey(t, env)

	instances, err := env.UserSurveys.Assign(env.Ctx, survey.ID, []string{"u1"})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	id := instances[0].ID

	if _, err := env.Responses.SubmitResult(env.Ctx, id, resultPayload(questions, "Paris", 9)); err != nil {
		t.Fatalf("submit: %v", err)
	}

	_, err = env.Responses.SubmitResult(env.Ctx, id, resultPayload(questions, "Rome", 1))
	if !fault.IsConflictError(err) || !errors.Is(err, fault.ErrResultAlreadySet) {
		t.Fatalf("expected already set conflict, got %v", err)
	}

	details, err := env.Responses.ListResponses(env.Ctx, id)
	if err != nil {
		t.Fatalf("list responses: %v", err)
	}
	if details[0].Value != "Paris" {
		t.Errorf("expected first payload to stay, got %q", details[0].Value)
	}
}

func TestSubmitResultRejectsInvalidPayload(t *testing.T) {
	env := newTestEnv(t)
	survey, _ := seedSurvey(t, env)
	instances, err := env.UserSurveys.Assign(env.Ctx, survey.ID, []string{"u1"})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}

	for _, payload := range []string{`[]`, `null`, `nope`} {
		if _, err := env.Responses.SubmitResult(env.Ctx, instances[0].ID, []byte(payload)); !fault.IsClientError(err) {
			t.Errorf("%s: expected client error, got %v", payload, err)
		}
	}

	if _, err := env.Responses.SubmitResult(env.Ctx, "missing", []byte(`{}`)); !errors.Is(err, fault.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestMaterializeIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	survey, questions := seedSurvey(t, env)
	instances, err := env.UserSurveys.Assign(env.Ctx, survey.ID, []string{"u1"})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	id := instances[0].ID

	if _, err := env.Responses.SubmitResult(env.Ctx, id, resultPayload(questions, "Paris", 9)); err != nil {
		t.Fatalf("submit: %v", err)
	}

	again, err := env.Responses.Materialize(env.Ctx, id)
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("expected second materialization to be a no-op, got %+v", again)
	}

	count, err := env.Stores.Responses.QueryRow(env.Ctx, "SELECT COUNT(*) FROM responses WHERE user_survey_id = ?", id)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count.(int64) != 3 {
		t.Errorf("expected 3 rows, got %v", count)
	}
}

func TestReparseDropsDeletedQuestions(t *testing.T) {
	env := newTestEnv(t)
	survey, questions := seedSurvey(t, env)
	instances, err := env.UserSurveys.Assign(env.Ctx, survey.ID, []string{"u1"})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	id := instances[0].ID

	if _, err := env.Responses.SubmitResult(env.Ctx, id, resultPayload(questions, "Paris", 9)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := env.Surveys.DeleteQuestion(env.Ctx, questions[2].ID); err != nil {
		t.Fatalf("delete question: %v", err)
	}

	responses, err := env.Responses.Reparse(env.Ctx, id)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if len(responses) != 2 {
		t.Errorf("expected the stale step to be dropped, got %+v", responses)
	}
}

func countResponses(t *testing.T, env testEnv, userSurveyID string) int64 {
	t.Helper()
	count, err := env.Stores.Responses.QueryRow(env.Ctx, "SELECT COUNT(*) FROM responses WHERE user_survey_id = ?", userSurveyID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	return count.(int64)
}

func TestMaterializeFailureStoresNothing(t *testing.T) {
	env := newTestEnv(t)
	survey, questions := seedSurvey(t, env)
	instances, err := env.UserSurveys.Assign(env.Ctx, survey.ID, []string{"u1"})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	id := instances[0].ID

	conn := env.Stores.Responses.Base()
	trigger := fmt.Sprintf(`CREATE TRIGGER reject_rating BEFORE INSERT ON responses
		WHEN NEW.question_id = '%s' BEGIN SELECT RAISE(ABORT, 'rating rejected'); END`, questions[1].ID)
	if _, err := conn.Exec(trigger); err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	if _, err := env.Responses.SubmitResult(env.Ctx, id, resultPayload(questions, "Paris", 9)); err == nil {
		t.Fatal("expected submit to fail on the second row")
	}
	if n := countResponses(t, env, id); n != 0 {
		t.Fatalf("expected no partial rows, got %d", n)
	}

	if _, err := conn.Exec("DROP TRIGGER reject_rating"); err != nil {
		t.Fatalf("drop trigger: %v", err)
	}

	responses, err := env.Responses.Materialize(env.Ctx, id)
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if len(responses) != 3 || countResponses(t, env, id) != 3 {
		t.Errorf("expected a later materialization to store all rows, got %+v", responses)
	}
}

// deletingSurveys deletes a question right after it has been listed.
type deletingSurveys struct {
	SurveyService
	victim string
	fired  bool
}

func (d *deletingSurveys) ListQuestions(ctx context.Context, surveyID string) ([]models.Question, error) {
	questions, err := d.SurveyService.ListQuestions(ctx, surveyID)
	if err != nil || d.fired {
		return questions, err
	}
	d.fired = true
	return questions, d.SurveyService.DeleteQuestion(ctx, d.victim)
}

func TestMaterializeDropsQuestionDeletedMidway(t *testing.T) {
	env := newTestEnv(t)
	survey, questions := seedSurvey(t, env)
	if _, err := env.Surveys.Task(env.Ctx, survey.ID); err != nil {
		t.Fatalf("task: %v", err)
	}

	surveys := &deletingSurveys{SurveyService: env.Surveys, victim: questions[2].ID}
	responses := NewResponseService(env.Stores, surveys, zap.NewNop(), env.Metrics)

	instances, err := env.UserSurveys.Assign(env.Ctx, survey.ID, []string{"u1"})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	id := instances[0].ID

	stored, err := responses.SubmitResult(env.Ctx, id, resultPayload(questions, "Paris", 9))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !surveys.fired {
		t.Fatal("expected the question to be deleted during materialization")
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 responses, got %+v", stored)
	}
	for _, r := range stored {
		if r.QuestionID == questions[2].ID {
			t.Errorf("deleted question was materialized: %+v", r)
		}
	}
	if n := countResponses(t, env, id); n != 2 {
		t.Errorf("expected 2 rows, got %d", n)
	}
}

func TestMaterializeWithoutResult(t *testing.T) {
	env := newTestEnv(t)
	survey, _ := seedSurvey(t, env)
	instances, err := env.UserSurveys.Assign(env.Ctx, survey.ID, []string{"u1"})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}

	if _, err := env.Responses.Materialize(env.Ctx, instances[0].ID); !fault.IsClientError(err) {
		t.Errorf("expected client error, got %v", err)
	}
}

func TestGridAndNPS(t *testing.T) {
	env := newTestEnv(t)
	survey, questions := seedSurvey(t, env)

	instances, err := env.UserSurveys.Assign(env.Ctx, survey.ID, []string{"u1", "u2", "u3"})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	ratings := []int{10, 7, 3}
	for i, instance := range instances[:2] {
		if _, err := env.Responses.SubmitResult(env.Ctx, instance.ID, resultPayload(questions, instance.UserID, ratings[i])); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	respondents, err := env.Responses.Respondents(env.Ctx, survey.ID)
	if err != nil {
		t.Fatalf("respondents: %v", err)
	}
	if len(respondents) != 2 {
		t.Fatalf("expected 2 respondents, got %+v", respondents)
	}

	grid, err := env.Responses.Grid(env.Ctx, survey.ID)
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	if len(grid.Questions) != 3 || len(grid.Respondents) != 2 {
		t.Fatalf("unexpected grid shape %+v", grid)
	}
	if grid.Values[0][0] != "u1" || grid.Values[1][1] != "7" {
		t.Errorf("unexpected grid values %v", grid.Values)
	}

	report, err := env.NPS.ForQuestion(env.Ctx, survey.ID, questions[1].ID)
	if err != nil {
		t.Fatalf("nps: %v", err)
	}
	if report.TotalSurvey != 2 || report.Promoters != 1 || report.Passives != 1 || report.Score != 50 {
		t.Errorf("unexpected report %+v", report)
	}

	if _, err := env.NPS.ForQuestion(env.Ctx, survey.ID, questions[0].ID); !fault.IsClientError(err) {
		t.Errorf("expected client error for text question, got %v", err)
	}
	if _, err := env.NPS.ForQuestion(env.Ctx, survey.ID, "missing"); !errors.Is(err, fault.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}
