package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/paulexconde/dfsurvey/internal/models"
	"github.com/paulexconde/dfsurvey/internal/pkg/metrics"
	"github.com/paulexconde/dfsurvey/internal/services"
	"github.com/paulexconde/dfsurvey/internal/surveykit"
	"github.com/paulexconde/dfsurvey/pkg/fault"
)

// Services groups what the handlers call into.
type Services struct {
	Surveys     services.SurveyService
	UserSurveys services.UserSurveyService
	Responses   services.ResponseService
	NPS         services.NPSService
	Import      services.ImportService
}

// Config for the HTTP API handler.
type Config struct {
	Services Services
	BasePath string
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"resource not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError is the error envelope returned by every endpoint.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the survey API.
func New(cfg Config) (http.Handler, error) {
	if cfg.Services.Surveys == nil || cfg.Services.UserSurveys == nil || cfg.Services.Responses == nil ||
		cfg.Services.NPS == nil || cfg.Services.Import == nil {
		return nil, errors.New("server: all services are required")
	}
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v1"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.New()
	}

	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		// Request schema failures are reported as bad requests; 422 is kept
		// for task documents that fail validation.
		if status == http.StatusUnprocessableEntity {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(m.Middleware)
	router.Use(accessLog(logger))

	hcfg := huma.DefaultConfig("Survey API", "1.0.0")
	hcfg.OpenAPIPath = ""
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	router.Method(http.MethodGet, "/metrics", m.Handler())
	registerHealth(group)
	registerCategories(group, cfg.Services)
	registerSurveys(group, cfg.Services)
	registerQuestions(group, cfg.Services)
	registerTasks(group, cfg.Services)
	registerUserSurveys(group, cfg.Services)
	registerResponses(group, cfg.Services)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func accessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var se huma.StatusError
	if errors.As(err, &se) {
		return se
	}
	var ve *surveykit.ValidationError
	if errors.As(err, &ve) {
		return newAPIError(http.StatusUnprocessableEntity, "invalid_task", err.Error(), map[string]any{"problems": ve.Problems})
	}
	switch {
	case errors.Is(err, fault.ErrNotFound):
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, fault.ErrResultAlreadySet):
		return newAPIError(http.StatusConflict, "result_already_set", err.Error(), nil)
	case errors.Is(err, fault.ErrSurveyCompleted):
		return newAPIError(http.StatusConflict, "survey_completed", err.Error(), nil)
	case fault.IsConflictError(err):
		return newAPIError(http.StatusConflict, "conflict", err.Error(), nil)
	case fault.IsClientError(err):
		return newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": err.Error()})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var (
		once sync.Once
		doc  []byte
	)
	r.Get(path.Join(basePath, "openapi.json"), func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			doc, _ = json.Marshal(oas)
		})
		w.Header().Set("Content-Type", "application/json")
		w.Write(doc)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Patch,
		} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			if _, ok := op.Responses["default"]; ok {
				continue
			}
			op.Responses["default"] = &huma.Response{Description: "Error"}
		}
	}
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerCategories(api huma.API, svc Services) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-category",
		Method:        http.MethodPost,
		Path:          "/categories",
		Summary:       "Create category",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body CreateCategoryRequest `json:"body"`
	}) (*struct {
		Body CategoryResponse `json:"body"`
	}, error) {
		c, err := svc.Surveys.CreateCategory(ctx, input.Body.Name)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CategoryResponse `json:"body"`
		}{Body: *c}, nil
	})
}

type surveyPath struct {
	ID string `path:"id"`
}

func registerSurveys(api huma.API, svc Services) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-survey",
		Method:        http.MethodPost,
		Path:          "/surveys",
		Summary:       "Create survey or template",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body CreateSurveyRequest `json:"body"`
	}) (*struct {
		Body SurveyResponse `json:"body"`
	}, error) {
		in := services.NewSurvey{
			Title:      input.Body.Title,
			IsTemplate: input.Body.IsTemplate,
		}
		if input.Body.Description != nil {
			in.Description = *input.Body.Description
		}
		if input.Body.CategoryID != nil {
			in.CategoryID = *input.Body.CategoryID
		}
		s, err := svc.Surveys.CreateSurvey(ctx, in)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SurveyResponse `json:"body"`
		}{Body: surveyResponse(*s)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-surveys",
		Method:      http.MethodGet,
		Path:        "/surveys",
		Summary:     "List surveys",
	}, func(ctx context.Context, input *struct {
		Kind       string `query:"kind" enum:"template,survey" doc:"Limit the listing to templates or to surveys"`
		CategoryID string `query:"category_id"`
		Page       int    `query:"page" minimum:"1" default:"1"`
		Limit      int    `query:"limit" minimum:"1" maximum:"100" default:"10"`
	}) (*struct {
		Body SurveyPage `json:"body"`
	}, error) {
		filter := services.SurveyFilter{CategoryID: input.CategoryID}
		switch input.Kind {
		case "template":
			t := true
			filter.IsTemplate = &t
		case "survey":
			f := false
			filter.IsTemplate = &f
		}
		page, err := svc.Surveys.ListSurveys(ctx, filter, input.Page, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SurveyPage `json:"body"`
		}{Body: surveyPage(page)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-survey",
		Method:      http.MethodGet,
		Path:        "/surveys/{id}",
		Summary:     "Get survey",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *surveyPath) (*struct {
		Body SurveyResponse `json:"body"`
	}, error) {
		s, err := svc.Surveys.GetSurvey(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SurveyResponse `json:"body"`
		}{Body: surveyResponse(*s)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "survey-stats",
		Method:      http.MethodGet,
		Path:        "/surveys/{id}/stats",
		Summary:     "Assignment and completion counts",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *surveyPath) (*struct {
		Body models.SurveyStats `json:"body"`
	}, error) {
		stats, err := svc.Surveys.Stats(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body models.SurveyStats `json:"body"`
		}{Body: *stats}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "instantiate-template",
		Method:        http.MethodPost,
		Path:          "/surveys/{id}/instantiate",
		Summary:       "Create a survey from a template",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string             `path:"id"`
		Body InstantiateRequest `json:"body"`
	}) (*struct {
		Body SurveyResponse `json:"body"`
	}, error) {
		title := ""
		if input.Body.Title != nil {
			title = *input.Body.Title
		}
		s, err := svc.Surveys.CreateFromTemplate(ctx, input.ID, title)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SurveyResponse `json:"body"`
		}{Body: surveyResponse(*s)}, nil
	})
}

func registerQuestions(api huma.API, svc Services) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-question",
		Method:        http.MethodPost,
		Path:          "/surveys/{id}/questions",
		Summary:       "Add question",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string                `path:"id"`
		Body CreateQuestionRequest `json:"body"`
	}) (*struct {
		Body QuestionResponse `json:"body"`
	}, error) {
		in := services.NewQuestion{
			Question: input.Body.Question,
			Type:     input.Body.Type,
			Sequence: input.Body.Sequence,
		}
		if input.Body.Text != nil {
			in.Text = *input.Body.Text
		}
		if input.Body.Format != nil {
			in.Format = *input.Body.Format
		}
		q, err := svc.Surveys.AddQuestion(ctx, input.ID, in)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body QuestionResponse `json:"body"`
		}{Body: *q}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-questions",
		Method:      http.MethodGet,
		Path:        "/surveys/{id}/questions",
		Summary:     "List questions in order",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *surveyPath) (*struct {
		Body []QuestionResponse `json:"body"`
	}, error) {
		items, err := svc.Surveys.ListQuestions(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []QuestionResponse `json:"body"`
		}{Body: nonNil(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "import-questions",
		Method:      http.MethodPost,
		Path:        "/surveys/{id}/questions/import",
		Summary:     "Import question rows",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string                 `path:"id"`
		Body ImportQuestionsRequest `json:"body"`
	}) (*struct {
		Body ImportResponse `json:"body"`
	}, error) {
		res, err := svc.Import.ImportQuestions(ctx, input.ID, input.Body.Rows, nil)
		if err != nil {
			return nil, handleError(err)
		}
		out := ImportResponse{
			Created: res.Created,
			Updated: res.Updated,
			Skipped: res.Skipped,
			Kept:    nonNil(res.Kept),
		}
		if input.Body.Prune {
			if out.Pruned, err = svc.Import.PruneQuestions(ctx, input.ID, res); err != nil {
				return nil, handleError(err)
			}
		}
		return &struct {
			Body ImportResponse `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-question",
		Method:        http.MethodDelete,
		Path:          "/questions/{id}",
		Summary:       "Delete question",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *surveyPath) (*struct{}, error) {
		if err := svc.Surveys.DeleteQuestion(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerTasks(api huma.API, svc Services) {
	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/surveys/{id}/task",
		Summary:     "Task document, rendered on first use",
		Errors:      []int{http.StatusNotFound, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *surveyPath) (*struct {
		Body any `json:"body"`
	}, error) {
		task, err := svc.Surveys.Task(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body any `json:"body"`
		}{Body: task}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "regenerate-task",
		Method:      http.MethodPost,
		Path:        "/surveys/{id}/task/regenerate",
		Summary:     "Render the task again from the questions",
		Errors:      []int{http.StatusNotFound, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *surveyPath) (*struct {
		Body any `json:"body"`
	}, error) {
		task, err := svc.Surveys.RegenerateTask(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body any `json:"body"`
		}{Body: task}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "put-task",
		Method:      http.MethodPut,
		Path:        "/surveys/{id}/task",
		Summary:     "Store an edited task document",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		ID      string `path:"id"`
		RawBody []byte `contentType:"application/json"`
	}) (*struct {
		Body any `json:"body"`
	}, error) {
		if len(input.RawBody) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		task, err := surveykit.DecodeTask(input.RawBody)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
		}
		stored, err := svc.Surveys.SetTask(ctx, input.ID, task)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body any `json:"body"`
		}{Body: stored}, nil
	})
}

type userSurveyPath struct {
	ID string `path:"id"`
}

func registerUserSurveys(api huma.API, svc Services) {
	huma.Register(api, huma.Operation{
		OperationID:   "assign-survey",
		Method:        http.MethodPost,
		Path:          "/surveys/{id}/assign",
		Summary:       "Assign a survey to users",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string        `path:"id"`
		Body AssignRequest `json:"body"`
	}) (*struct {
		Body []UserSurveyResponse `json:"body"`
	}, error) {
		created, err := svc.UserSurveys.Assign(ctx, input.ID, input.Body.UserIDs)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []UserSurveyResponse `json:"body"`
		}{Body: mapUserSurveys(created)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-user-survey",
		Method:      http.MethodGet,
		Path:        "/user-surveys/{id}",
		Summary:     "Get user survey",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *userSurveyPath) (*struct {
		Body UserSurveyResponse `json:"body"`
	}, error) {
		u, err := svc.UserSurveys.Get(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body UserSurveyResponse `json:"body"`
		}{Body: userSurveyResponse(*u)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-user-surveys",
		Method:      http.MethodGet,
		Path:        "/users/{user_id}/surveys",
		Summary:     "Surveys assigned to a user",
	}, func(ctx context.Context, input *struct {
		UserID string `path:"user_id"`
		Page   int    `query:"page" minimum:"1" default:"1"`
		Limit  int    `query:"limit" minimum:"1" maximum:"100" default:"10"`
	}) (*struct {
		Body UserSurveyPage `json:"body"`
	}, error) {
		page, err := svc.UserSurveys.ListForUser(ctx, input.UserID, input.Page, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body UserSurveyPage `json:"body"`
		}{Body: userSurveyPage(page)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "answer-step",
		Method:      http.MethodPost,
		Path:        "/user-surveys/{id}/steps/{step_id}/answer",
		Summary:     "Record a step answer and move to the next step",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID     string            `path:"id"`
		StepID string            `path:"step_id"`
		Body   AnswerStepRequest `json:"body"`
	}) (*struct {
		Body StepProgressResponse `json:"body"`
	}, error) {
		progress, err := svc.UserSurveys.AnswerStep(ctx, input.ID, input.StepID, input.Body.Answer)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body StepProgressResponse `json:"body"`
		}{Body: stepProgressResponse(progress)}, nil
	})
}

func registerResponses(api huma.API, svc Services) {
	huma.Register(api, huma.Operation{
		OperationID:   "submit-result",
		Method:        http.MethodPost,
		Path:          "/user-surveys/{id}/result",
		Summary:       "Submit the result payload",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID      string `path:"id"`
		RawBody []byte `contentType:"application/json"`
	}) (*struct {
		Body []ResponseResponse `json:"body"`
	}, error) {
		if len(input.RawBody) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		items, err := svc.Responses.SubmitResult(ctx, input.ID, input.RawBody)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []ResponseResponse `json:"body"`
		}{Body: nonNil(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reparse-result",
		Method:      http.MethodPost,
		Path:        "/user-surveys/{id}/reparse",
		Summary:     "Rebuild responses from the stored payload",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *userSurveyPath) (*struct {
		Body []ResponseResponse `json:"body"`
	}, error) {
		items, err := svc.Responses.Reparse(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []ResponseResponse `json:"body"`
		}{Body: nonNil(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-user-survey-responses",
		Method:      http.MethodGet,
		Path:        "/user-surveys/{id}/responses",
		Summary:     "Responses of a user survey",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *userSurveyPath) (*struct {
		Body []ResponseDetailResponse `json:"body"`
	}, error) {
		items, err := svc.Responses.ListResponses(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []ResponseDetailResponse `json:"body"`
		}{Body: nonNil(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-survey-responses",
		Method:      http.MethodGet,
		Path:        "/surveys/{id}/responses",
		Summary:     "Responses of every user of a survey",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *surveyPath) (*struct {
		Body []ResponseDetailResponse `json:"body"`
	}, error) {
		items, err := svc.Responses.ListSurveyResponses(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []ResponseDetailResponse `json:"body"`
		}{Body: nonNil(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "question-nps",
		Method:      http.MethodGet,
		Path:        "/surveys/{id}/questions/{qid}/nps",
		Summary:     "Net promoter score of a rating question",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID  string `path:"id"`
		QID string `path:"qid"`
	}) (*struct {
		Body services.NPSReport `json:"body"`
	}, error) {
		report, err := svc.NPS.ForQuestion(ctx, input.ID, input.QID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body services.NPSReport `json:"body"`
		}{Body: *report}, nil
	})
}
