package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/paulexconde/dfsurvey/internal/config"
	"github.com/paulexconde/dfsurvey/internal/db"
	"github.com/paulexconde/dfsurvey/internal/pkg/logger"
	"github.com/paulexconde/dfsurvey/internal/pkg/metrics"
	"github.com/paulexconde/dfsurvey/internal/server"
	"github.com/paulexconde/dfsurvey/internal/services"
)

var (
	v          = config.New()
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "surveyd",
	Short: "Survey task renderer and result reconciler",
	Long: `surveyd turns survey questions into navigable task documents for the
mobile client and turns the submitted result payloads back into one
response per question.`,
	SilenceUsage: true,
}

func main() {
	addPersistentFlags()
	registerCommands()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addPersistentFlags() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file (default ./surveyd.yaml)")
	flags.Bool("json", false, "output JSON")
	flags.String("db-driver", "", "database driver: sqlite or postgres")
	flags.String("db-dsn", "", "database connection string")
	_ = v.BindPFlag("json", flags.Lookup("json"))
	_ = v.BindPFlag("database.driver", flags.Lookup("db-driver"))
	_ = v.BindPFlag("database.dsn", flags.Lookup("db-dsn"))
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(schemaCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(questionsCmd())
	rootCmd.AddCommand(resultCmd())
	rootCmd.AddCommand(responsesCmd())
	rootCmd.AddCommand(remindersCmd())
	rootCmd.AddCommand(npsCmd())
}

// runtime carries what a command needs once config, logging and the
// database are set up.
type runtime struct {
	cfg     *config.Config
	log     *zap.Logger
	metrics *metrics.Metrics
	svc     server.Services
}

func withRuntime(ctx context.Context, fn func(context.Context, *runtime) error) error {
	cfg, err := config.Load(v, configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	conn, err := db.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := db.ApplySchema(ctx, conn); err != nil {
		return err
	}

	m := metrics.New()
	stores := services.NewStores(conn)
	surveys := services.NewSurveyService(stores, log, m, cfg.Workers.Count, cfg.Workers.Queue)
	responses := services.NewResponseService(stores, surveys, log, m)

	return fn(ctx, &runtime{
		cfg:     cfg,
		log:     log,
		metrics: m,
		svc: server.Services{
			Surveys:     surveys,
			UserSurveys: services.NewUserSurveyService(stores, surveys, log),
			Responses:   responses,
			NPS:         services.NewNPSService(surveys, responses),
			Import:      services.NewImportService(stores, surveys, log),
		},
	})
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				handler, err := server.New(server.Config{
					Services: rt.svc,
					BasePath: rt.cfg.Server.BasePath,
					Metrics:  rt.metrics,
					Logger:   rt.log,
				})
				if err != nil {
					return err
				}
				srv := &http.Server{
					Addr:              rt.cfg.Server.Addr,
					Handler:           handler,
					ReadHeaderTimeout: 10 * time.Second,
				}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				rt.log.Info("serving survey API",
					zap.String("addr", rt.cfg.Server.Addr),
					zap.String("base_path", rt.cfg.Server.BasePath),
					zap.String("driver", rt.cfg.Database.Driver))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().String("addr", "", "listen address")
	cmd.Flags().String("base-path", "", "API base path")
	_ = v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = v.BindPFlag("server.base_path", cmd.Flags().Lookup("base-path"))
	return cmd
}

func schemaCmd() *cobra.Command {
	schema := &cobra.Command{Use: "schema", Short: "Manage the database schema"}
	schema.AddCommand(&cobra.Command{
		Use:   "apply",
		Short: "Create missing tables and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			// withRuntime applies the schema before running fn.
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				fmt.Printf("schema applied (%s)\n", rt.cfg.Database.Driver)
				return nil
			})
		},
	})
	return schema
}

func taskCmd() *cobra.Command {
	task := &cobra.Command{Use: "task", Short: "Render task documents"}

	var surveyID string
	render := &cobra.Command{
		Use:   "render",
		Short: "Print a survey's task, rendering it when missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if surveyID == "" {
				return fmt.Errorf("--survey required")
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				t, err := rt.svc.Surveys.Task(ctx, surveyID)
				if err != nil {
					return err
				}
				return printJSON(t)
			})
		},
	}
	render.Flags().StringVar(&surveyID, "survey", "", "survey id")

	var regenID string
	var all bool
	regenerate := &cobra.Command{
		Use:   "regenerate",
		Short: "Render tasks again from the current questions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (regenID != "") {
				return fmt.Errorf("exactly one of --survey or --all required")
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				if all {
					n, err := rt.svc.Surveys.RegenerateAll(ctx)
					fmt.Printf("regenerated %d task(s)\n", n)
					return err
				}
				t, err := rt.svc.Surveys.RegenerateTask(ctx, regenID)
				if err != nil {
					return err
				}
				return printJSON(t)
			})
		},
	}
	regenerate.Flags().StringVar(&regenID, "survey", "", "survey id")
	regenerate.Flags().BoolVar(&all, "all", false, "regenerate every survey")

	task.AddCommand(render, regenerate)
	return task
}

func questionsCmd() *cobra.Command {
	questions := &cobra.Command{Use: "questions", Short: "Import and export question lists"}

	var surveyID, file string
	var prune bool
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import question rows from a YAML or JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if surveyID == "" || file == "" {
				return fmt.Errorf("--survey and --file required")
			}
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()
			rows, err := services.ParseQuestionRows(f)
			if err != nil {
				return err
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				res, err := rt.svc.Import.ImportQuestions(ctx, surveyID, rows, nil)
				if err != nil {
					return err
				}
				pruned := 0
				if prune {
					if pruned, err = rt.svc.Import.PruneQuestions(ctx, surveyID, res); err != nil {
						return err
					}
				}
				if jsonOutput() {
					return printJSON(map[string]any{"result": res, "pruned": pruned})
				}
				fmt.Printf("created %d, updated %d, skipped %d, pruned %d\n", res.Created, res.Updated, res.Skipped, pruned)
				return nil
			})
		},
	}
	importCmd.Flags().StringVar(&surveyID, "survey", "", "survey id")
	importCmd.Flags().StringVar(&file, "file", "", "rows file")
	importCmd.Flags().BoolVar(&prune, "prune", false, "delete questions missing from the file")

	var exportID, out string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export a survey's questions as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			if exportID == "" {
				return fmt.Errorf("--survey required")
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				var w io.Writer = os.Stdout
				if out != "" {
					f, err := os.Create(out)
					if err != nil {
						return err
					}
					defer f.Close()
					w = f
				}
				return rt.svc.Import.ExportQuestions(ctx, exportID, w)
			})
		},
	}
	exportCmd.Flags().StringVar(&exportID, "survey", "", "survey id")
	exportCmd.Flags().StringVar(&out, "out", "", "output file (default stdout)")

	questions.AddCommand(importCmd, exportCmd)
	return questions
}

func resultCmd() *cobra.Command {
	result := &cobra.Command{Use: "result", Short: "Submit result payloads"}

	var userSurveyID, file string
	submit := &cobra.Command{
		Use:   "submit",
		Short: "Store a result payload and materialize its responses",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userSurveyID == "" || file == "" {
				return fmt.Errorf("--user-survey and --file required")
			}
			payload, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				items, err := rt.svc.Responses.SubmitResult(ctx, userSurveyID, payload)
				if err != nil {
					return err
				}
				if jsonOutput() {
					return printJSON(items)
				}
				fmt.Printf("stored %d response(s)\n", len(items))
				return nil
			})
		},
	}
	submit.Flags().StringVar(&userSurveyID, "user-survey", "", "user survey id")
	submit.Flags().StringVar(&file, "file", "", "result payload file")

	result.AddCommand(submit)
	return result
}

func responsesCmd() *cobra.Command {
	responses := &cobra.Command{Use: "responses", Short: "Inspect and rebuild responses"}

	var userSurveyID string
	reparse := &cobra.Command{
		Use:   "reparse",
		Short: "Delete and rebuild responses from the stored payload",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userSurveyID == "" {
				return fmt.Errorf("--user-survey required")
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				items, err := rt.svc.Responses.Reparse(ctx, userSurveyID)
				if err != nil {
					return err
				}
				if jsonOutput() {
					return printJSON(items)
				}
				fmt.Printf("rebuilt %d response(s)\n", len(items))
				return nil
			})
		},
	}
	reparse.Flags().StringVar(&userSurveyID, "user-survey", "", "user survey id")

	var surveyID string
	var asCSV bool
	export := &cobra.Command{
		Use:   "export",
		Short: "Print the question by respondent grid of a survey",
		RunE: func(cmd *cobra.Command, args []string) error {
			if surveyID == "" {
				return fmt.Errorf("--survey required")
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				grid, err := rt.svc.Responses.Grid(ctx, surveyID)
				if err != nil {
					return err
				}
				if jsonOutput() {
					return printJSON(grid)
				}
				tw := gridTable(grid)
				if asCSV {
					tw.RenderCSV()
				} else {
					tw.Render()
				}
				return nil
			})
		},
	}
	export.Flags().StringVar(&surveyID, "survey", "", "survey id")
	export.Flags().BoolVar(&asCSV, "csv", false, "write CSV instead of a table")

	responses.AddCommand(reparse, export)
	return responses
}

func gridTable(grid *services.ResponseGrid) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	header := table.Row{"Question"}
	for _, r := range grid.Respondents {
		header = append(header, r)
	}
	tw.AppendHeader(header)
	for i, q := range grid.Questions {
		row := table.Row{q.Question}
		for _, value := range grid.Values[i] {
			row = append(row, value)
		}
		tw.AppendRow(row)
	}
	return tw
}

func remindersCmd() *cobra.Command {
	reminders := &cobra.Command{Use: "reminders", Short: "Find users who have not finished"}

	var surveyID string
	list := &cobra.Command{
		Use:   "list",
		Short: "List user surveys still waiting for a result",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				items, err := rt.svc.UserSurveys.PendingReminders(ctx, surveyID)
				if err != nil {
					return err
				}
				if jsonOutput() {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "User", "Survey", "Current step", "Assigned"})
				for _, u := range items {
					tw.AppendRow(table.Row{u.ID, u.UserID, u.SurveyID, u.CurrentStep.String, u.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	list.Flags().StringVar(&surveyID, "survey", "", "limit to one survey")

	reminders.AddCommand(list)
	return reminders
}

func npsCmd() *cobra.Command {
	var surveyID, questionID string
	cmd := &cobra.Command{
		Use:   "nps",
		Short: "Net promoter score of a rating question",
		RunE: func(cmd *cobra.Command, args []string) error {
			if surveyID == "" || questionID == "" {
				return fmt.Errorf("--survey and --question required")
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				report, err := rt.svc.NPS.ForQuestion(ctx, surveyID, questionID)
				if err != nil {
					return err
				}
				if jsonOutput() {
					return printJSON(report)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Score", "Total", "Promoters", "Passives", "Detractors", "Ignored"})
				tw.AppendRow(table.Row{report.Score, report.TotalSurvey, report.Promoters, report.Passives, report.Detractors, report.Ignored})
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&surveyID, "survey", "", "survey id")
	cmd.Flags().StringVar(&questionID, "question", "", "question id")
	return cmd
}

func jsonOutput() bool {
	return v.GetBool("json")
}

func printJSON(val any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(val)
}
