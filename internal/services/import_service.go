package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/paulexconde/dfsurvey/internal/models"
	"github.com/paulexconde/dfsurvey/internal/pkg/store"
	"github.com/paulexconde/dfsurvey/internal/surveykit"
	"github.com/paulexconde/dfsurvey/pkg/fault"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// QuestionRow is one question in an import or export file.
type QuestionRow struct {
	ID       string `yaml:"id" json:"id"`
	Question string `yaml:"question" json:"question"`
	Text     string `yaml:"text,omitempty" json:"text,omitempty"`
	Type     string `yaml:"type" json:"type"`
	Format   string `yaml:"format,omitempty" json:"format,omitempty"`
}

// ImportResult accumulates the outcome of one or more imports into the
// same survey. Kept lists the ids of every question written.
type ImportResult struct {
	Kept    []string `json:"kept"`
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Skipped int      `json:"skipped"`
}

func (r *ImportResult) keep(id string) {
	r.Kept = append(r.Kept, id)
}

// Imports and exports the question list of a survey.
type ImportService interface {
	// Writes rows into the survey. Rows whose id is not a question of the
	// survey are created with a new id, rows without a question are
	// skipped, and every row's sequence is its 1-based position. The
	// accumulator is updated and returned; nil starts a new one.
	ImportQuestions(ctx context.Context, surveyID string, rows []QuestionRow, acc *ImportResult) (*ImportResult, error)
	// Deletes the survey's questions that acc did not keep.
	PruneQuestions(ctx context.Context, surveyID string, acc *ImportResult) (int, error)
	ExportQuestions(ctx context.Context, surveyID string, w io.Writer) error
}

type importServiceImpl struct {
	stores  *Stores
	surveys SurveyService
	logger  *zap.Logger
}

// Instantiate the ImportService.
func NewImportService(stores *Stores, surveys SurveyService, logger *zap.Logger) ImportService {
	return &importServiceImpl{stores: stores, surveys: surveys, logger: logger}
}

// ParseQuestionRows reads a YAML (or JSON) list of question rows.
func ParseQuestionRows(r io.Reader) ([]QuestionRow, error) {
	var rows []QuestionRow
	if err := yaml.NewDecoder(r).Decode(&rows); err != nil {
		if err == io.EOF {
			return []QuestionRow{}, nil
		}
		return nil, fault.NewClientError("cannot parse question rows", err)
	}
	return rows, nil
}

func (s *importServiceImpl) ImportQuestions(ctx context.Context, surveyID string, rows []QuestionRow, acc *ImportResult) (*ImportResult, error) {
	if acc == nil {
		acc = &ImportResult{Kept: []string{}}
	}

	if _, err := s.surveys.GetSurvey(ctx, surveyID); err != nil {
		return acc, err
	}
	existing, err := s.surveys.ListQuestions(ctx, surveyID)
	if err != nil {
		return acc, err
	}

	owned := make(map[string]bool, len(existing))
	for _, q := range existing {
		owned[q.ID] = true
	}

	for i, row := range rows {
		sequence := i + 1

		if strings.TrimSpace(row.Question) == "" {
			acc.Skipped++
			continue
		}
		if !surveykit.QuestionType(row.Type).Valid() {
			return acc, fault.NewClientError(fmt.Sprintf("row %d: unknown question type %q", sequence, row.Type), nil)
		}

		question := models.Question{
			SurveyID: surveyID,
			Question: strings.TrimSpace(row.Question),
			Text:     row.Text,
			Type:     row.Type,
			Format:   row.Format,
			Sequence: sequence,
		}

		// Ids from another survey's export are not reused.
		if owned[row.ID] {
			// Empty text and format overwrite the stored ones.
			_, err := s.stores.Questions.BulkUpdate(ctx,
				"UPDATE questions SET question = ?, text = ?, question_type = ?, format = ?, sequence = ? WHERE id = ?",
				question.Question, question.Text, question.Type, question.Format, question.Sequence, row.ID)
			if err != nil {
				return acc, fmt.Errorf("row %d: %w", sequence, err)
			}
			acc.Updated++
			acc.keep(row.ID)
			continue
		}

		question.ID = uuid.NewString()
		question.CreatedAt = store.Now()
		if _, err := s.stores.Questions.Create(ctx, question); err != nil {
			return acc, fmt.Errorf("row %d: %w", sequence, err)
		}
		owned[question.ID] = true
		acc.Created++
		acc.keep(question.ID)
	}

	s.logger.Info("questions imported",
		zap.String("survey_id", surveyID),
		zap.Int("created", acc.Created),
		zap.Int("updated", acc.Updated),
		zap.Int("skipped", acc.Skipped))

	return acc, nil
}

func (s *importServiceImpl) PruneQuestions(ctx context.Context, surveyID string, acc *ImportResult) (int, error) {
	if acc == nil {
		return 0, fault.NewClientError("nothing was imported", nil)
	}

	keep := make(map[string]bool, len(acc.Kept))
	for _, id := range acc.Kept {
		keep[id] = true
	}

	existing, err := s.surveys.ListQuestions(ctx, surveyID)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, q := range existing {
		if keep[q.ID] {
			continue
		}
		if err := s.stores.Questions.Delete(ctx, q.ID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func (s *importServiceImpl) ExportQuestions(ctx context.Context, surveyID string, w io.Writer) error {
	if _, err := s.surveys.GetSurvey(ctx, surveyID); err != nil {
		return err
	}
	questions, err := s.surveys.ListQuestions(ctx, surveyID)
	if err != nil {
		return err
	}

	rows := make([]QuestionRow, 0, len(questions))
	for _, q := range questions {
		rows = append(rows, QuestionRow{
			ID:       q.ID,
			Question: q.Question,
			Text:     q.Text,
			Type:     q.Type,
			Format:   q.Format,
		})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rows); err != nil {
		return err
	}
	return enc.Close()
}
