package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulexconde/dfsurvey/internal/surveykit"
	"github.com/paulexconde/dfsurvey/pkg/fault"
)

// NOTE: the formula for determining the NPS
// NPS = %Promoters − %Detractors

type NPS struct {
	// The total of surveyed people
	TotalSurvey int `json:"total"`
	// Ratings 9 or 10
	Promoters int `json:"promoters"`
	// Ratings 7 or 8
	Passives int `json:"passives"`
	// 6 or lower
	Detractors int `json:"detractors"`
}

func (n *NPS) CalculateNPS() (int, error) {
	if n.TotalSurvey == 0 {
		return 0, nil
	}

	// what if the total of the promter, passives and detractors are greater than the total survey.
	totalEntities := (n.Promoters + n.Passives + n.Detractors)
	if n.TotalSurvey < totalEntities {
		return 0, fmt.Errorf("cannot compute nps with total survey is less than from the total of entities: %d total < total entities: %d", n.TotalSurvey, totalEntities)
	}

	promoterCalc := (float64(n.Promoters) / float64(n.TotalSurvey)) * 100
	detractorCalc := (float64(n.Detractors) / float64(n.TotalSurvey)) * 100

	return int(promoterCalc - detractorCalc), nil
}

// Add buckets a single 0-10 rating.
func (n *NPS) Add(rating int) {
	n.TotalSurvey++
	switch {
	case rating >= 9:
		n.Promoters++
	case rating >= 7:
		n.Passives++
	default:
		n.Detractors++
	}
}

// NPSReport is the NPS of one integer question.
type NPSReport struct {
	SurveyID   string `json:"survey_id"`
	QuestionID string `json:"question_id"`
	NPS
	Score int `json:"score"`
	// Responses that were not a 0-10 rating.
	Ignored int `json:"ignored"`
}

// Computes the net promoter score of a survey question.
type NPSService interface {
	ForQuestion(ctx context.Context, surveyID, questionID string) (*NPSReport, error)
}

type npsServiceImpl struct {
	responses ResponseService
	surveys   SurveyService
}

// Instantiate the NPSService.
func NewNPSService(surveys SurveyService, responses ResponseService) NPSService {
	return &npsServiceImpl{surveys: surveys, responses: responses}
}

func (s *npsServiceImpl) ForQuestion(ctx context.Context, surveyID, questionID string) (*NPSReport, error) {
	questions, err := s.surveys.ListQuestions(ctx, surveyID)
	if err != nil {
		return nil, err
	}

	found := false
	for _, q := range questions {
		if q.ID != questionID {
			continue
		}
		if surveykit.QuestionType(q.Type) != surveykit.TypeInteger {
			return nil, fault.NewClientError(fmt.Sprintf("question %s is not an integer question", questionID), nil)
		}
		found = true
	}
	if !found {
		return nil, fault.ErrNotFound
	}

	details, err := s.responses.ListSurveyResponses(ctx, surveyID)
	if err != nil {
		return nil, err
	}

	report := &NPSReport{SurveyID: surveyID, QuestionID: questionID}
	for _, d := range details {
		if d.QuestionID != questionID {
			continue
		}
		rating, err := strconv.Atoi(strings.TrimSpace(d.Value))
		if err != nil || rating < 0 || rating > 10 {
			report.Ignored++
			continue
		}
		report.Add(rating)
	}

	score, err := report.CalculateNPS()
	if err != nil {
		return nil, err
	}
	report.Score = score

	return report, nil
}
