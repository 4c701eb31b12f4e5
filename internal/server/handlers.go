package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"csvclean/internal/artifacts"
	"csvclean/internal/basicclean"
	"csvclean/internal/dataset"
	"csvclean/internal/executor"
	"csvclean/internal/metrics"
	"csvclean/internal/plan"
	"csvclean/internal/profile"
)

const (
	modeBasic = "basic"
	modeLLM   = "llm"
	modePlan  = "plan"
)

// planValidation is the validator summary returned alongside a plan that
// passed validation.
type planValidation struct {
	OK           bool         `json:"ok"`
	Warnings     []plan.Issue `json:"warnings"`
	FinalColumns []string     `json:"final_columns"`
}

func summarize(res plan.Result) planValidation {
	return planValidation{OK: res.OK, Warnings: res.Warnings, FinalColumns: res.FinalColumns}
}

type basicReport struct {
	JobID        string           `json:"job_id"`
	Filename     string           `json:"filename"`
	CleaningMode string           `json:"cleaning_mode"`
	CleanStats   basicclean.Stats `json:"clean_stats"`
	Before       *profile.Profile `json:"before"`
	After        *profile.Profile `json:"after"`
}

type basicResponse struct {
	JobID              string           `json:"job_id"`
	Filename           string           `json:"filename"`
	CleaningMode       string           `json:"cleaning_mode"`
	CleanStats         basicclean.Stats `json:"clean_stats"`
	Artifacts          artifacts.Paths  `json:"artifacts"`
	Before             *profile.Profile `json:"before"`
	After              *profile.Profile `json:"after"`
	CleanedPreviewRows []dataset.Record `json:"cleaned_preview_rows"`
}

type planResponse struct {
	JobID          string          `json:"job_id"`
	Filename       string          `json:"filename"`
	Model          string          `json:"model"`
	Plan           *plan.Plan      `json:"plan"`
	PlanValidation planValidation  `json:"plan_validation"`
	Artifacts      artifacts.Paths `json:"artifacts"`
}

type planReport struct {
	JobID           string           `json:"job_id"`
	Filename        string           `json:"filename"`
	CleaningMode    string           `json:"cleaning_mode"`
	Plan            *plan.Plan       `json:"plan"`
	ExecutionReport *executor.Report `json:"execution_report"`
	Before          *profile.Profile `json:"before"`
	After           *profile.Profile `json:"after"`
}

type cleanResponse struct {
	JobID              string           `json:"job_id"`
	Filename           string           `json:"filename"`
	CleaningMode       string           `json:"cleaning_mode"`
	Plan               *plan.Plan       `json:"plan"`
	PlanValidation     planValidation   `json:"plan_validation"`
	ExecutionReport    *executor.Report `json:"execution_report"`
	Artifacts          artifacts.Paths  `json:"artifacts"`
	Before             *profile.Profile `json:"before"`
	After              *profile.Profile `json:"after"`
	CleanedPreviewRows []dataset.Record `json:"cleaned_preview_rows"`
}

func (s *Server) handleIndex(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(http.StatusOK)
	return s.tmpl.Execute(c.Response(), nil)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProfile(c echo.Context) error {
	up, err := s.readUpload(c)
	if err != nil {
		return err
	}
	prof, err := s.profile(up.Data, up.Filename)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, prof)
}

func (s *Server) handleCleanBasic(c echo.Context) (err error) {
	start := time.Now()
	defer func() { metrics.RecordStep(s.cfg.Job, "basic_clean", err, time.Since(start)) }()

	up, err := s.readUpload(c)
	if err != nil {
		return err
	}
	before, err := s.profile(up.Data, up.Filename)
	if err != nil {
		return err
	}

	cleaned, stats := basicclean.Clean(up.Data)
	after, err := profileAfter(cleaned, up.Filename)
	if err != nil {
		return err
	}

	jobID := artifacts.NewJobID()
	report := basicReport{
		JobID:        jobID,
		Filename:     up.Filename,
		CleaningMode: modeBasic,
		CleanStats:   stats,
		Before:       before,
		After:        after,
	}
	paths, err := s.save(c, artifacts.Job{ID: jobID, Cleaned: cleaned, Report: report})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, basicResponse{
		JobID:              jobID,
		Filename:           up.Filename,
		CleaningMode:       modeBasic,
		CleanStats:         stats,
		Artifacts:          paths,
		Before:             before,
		After:              after,
		CleanedPreviewRows: cleaned.Preview(s.cfg.PreviewRows),
	})
}

func (s *Server) handlePlan(c echo.Context) error {
	up, err := s.readUpload(c)
	if err != nil {
		return err
	}
	prof, err := s.profile(up.Data, up.Filename)
	if err != nil {
		return err
	}

	jobID := artifacts.NewJobID()
	p, err := s.generate(c, prof, "")
	if err != nil {
		return err
	}
	res, err := ensureValid(p, up.Data.Columns)
	if err != nil {
		return err
	}

	paths, err := s.save(c, artifacts.Job{ID: jobID, Plan: p})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, planResponse{
		JobID:          jobID,
		Filename:       up.Filename,
		Model:          s.planner.Model(),
		Plan:           p,
		PlanValidation: summarize(res),
		Artifacts:      paths,
	})
}

func (s *Server) handleCleanLLM(c echo.Context) error {
	up, err := s.readUpload(c)
	if err != nil {
		return err
	}
	before, err := s.profile(up.Data, up.Filename)
	if err != nil {
		return err
	}
	p, err := s.generate(c, before, "planning failed: ")
	if err != nil {
		return err
	}
	return s.executePlan(c, up, before, p, modeLLM)
}

// handleCleanPlan runs a caller-supplied plan (JSON or YAML) from the
// "plan" form field against the uploaded file.
func (s *Server) handleCleanPlan(c echo.Context) error {
	up, err := s.readUpload(c)
	if err != nil {
		return err
	}
	doc := strings.TrimSpace(c.FormValue("plan"))
	if doc == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing plan")
	}
	p, err := parsePlanDocument([]byte(doc))
	if err != nil {
		return schemaFailure(err)
	}
	before, err := s.profile(up.Data, up.Filename)
	if err != nil {
		return err
	}
	return s.executePlan(c, up, before, p, modePlan)
}

type validateRequest struct {
	Plan    json.RawMessage `json:"plan"`
	Columns *[]string       `json:"columns"`
}

func (s *Server) handleValidatePlan(c echo.Context) error {
	var req validateRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json body").SetInternal(err)
	}
	if len(req.Plan) == 0 || string(req.Plan) == "null" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing plan")
	}
	p, err := plan.Parse(req.Plan)
	if err != nil {
		return schemaFailure(err)
	}

	var opts []plan.Option
	if req.Columns != nil {
		opts = append(opts, plan.WithColumns(*req.Columns))
	}
	return c.JSON(http.StatusOK, plan.Validate(p, opts...))
}

func (s *Server) handleGetJob(c echo.Context) error {
	raw, err := s.store.ReadReport(c.Param("id"))
	if err != nil {
		if errors.Is(err, artifacts.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "job_id not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError,
			fmt.Sprintf("failed to read report: %v", err)).SetInternal(err)
	}
	return c.JSONBlob(http.StatusOK, raw)
}

func (s *Server) handleDownload(c echo.Context) error {
	id := c.Param("id")
	p, err := s.store.CleanedPath(id)
	if err != nil {
		if errors.Is(err, artifacts.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "job_id not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError,
			fmt.Sprintf("failed to read csv: %v", err)).SetInternal(err)
	}
	c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	return c.Attachment(p, id+".csv")
}

// executePlan validates p against the upload, runs it, saves all three
// artifacts and writes the response. Shared by /clean/llm and /clean/plan.
func (s *Server) executePlan(c echo.Context, up *upload, before *profile.Profile, p *plan.Plan, mode string) (err error) {
	start := time.Now()
	defer func() { metrics.RecordStep(s.cfg.Job, "clean_"+mode, err, time.Since(start)) }()

	res, err := ensureValid(p, up.Data.Columns)
	if err != nil {
		return err
	}

	jobID := artifacts.NewJobID()
	exec := executor.New(executor.WithLogger(s.log), executor.WithJob(s.cfg.Job))
	cleaned, report, err := exec.Execute(up.Data, p)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError,
			fmt.Sprintf("execution failed: %v", err)).SetInternal(err)
	}
	report.AddPlanWarnings(res.Warnings)

	after, err := profileAfter(cleaned, up.Filename)
	if err != nil {
		return err
	}

	stored := planReport{
		JobID:           jobID,
		Filename:        up.Filename,
		CleaningMode:    mode,
		Plan:            p,
		ExecutionReport: report,
		Before:          before,
		After:           after,
	}
	paths, err := s.save(c, artifacts.Job{ID: jobID, Cleaned: cleaned, Report: stored, Plan: p})
	if err != nil {
		return err
	}

	s.log.Info("plan executed",
		zap.String("job_id", jobID),
		zap.String("mode", mode),
		zap.Int("actions", len(p.Actions)),
		zap.Int("rows_out", cleaned.Len()))

	return c.JSON(http.StatusOK, cleanResponse{
		JobID:              jobID,
		Filename:           up.Filename,
		CleaningMode:       mode,
		Plan:               p,
		PlanValidation:     summarize(res),
		ExecutionReport:    report,
		Artifacts:          paths,
		Before:             before,
		After:              after,
		CleanedPreviewRows: cleaned.Preview(s.cfg.PreviewRows),
	})
}

func (s *Server) profile(ds *dataset.Dataset, filename string) (*profile.Profile, error) {
	prof, err := profile.Build(ds, filename)
	if err != nil {
		if errors.Is(err, profile.ErrNoColumns) {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "no columns found in csv")
		}
		return nil, err
	}
	return prof, nil
}

// profileAfter profiles a cleaned dataset. A plan may drop every column,
// which yields an empty profile instead of an upload error.
func profileAfter(ds *dataset.Dataset, filename string) (*profile.Profile, error) {
	prof, err := profile.Build(ds, filename)
	if errors.Is(err, profile.ErrNoColumns) {
		return &profile.Profile{
			Shape:       profile.Shape{Rows: ds.Len()},
			Columns:     []string{},
			PreviewRows: []dataset.Record{},
			Filename:    filename,
		}, nil
	}
	return prof, err
}

// generate asks the planner for a plan. Failures are 500s whose detail is
// prefix plus the planner message.
func (s *Server) generate(c echo.Context, prof *profile.Profile, prefix string) (*plan.Plan, error) {
	if s.planner == nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, prefix+"no planner configured")
	}
	metrics.RecordRow(s.cfg.Job, "read", int64(prof.Shape.Rows))
	p, err := s.planner.Generate(c.Request().Context(), prof)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, prefix+err.Error()).SetInternal(err)
	}
	return p, nil
}

func (s *Server) save(c echo.Context, job artifacts.Job) (artifacts.Paths, error) {
	paths, err := s.store.Save(c.Request().Context(), job)
	if err != nil {
		return artifacts.Paths{}, fmt.Errorf("save artifacts for %s: %w", job.ID, err)
	}
	if job.Cleaned != nil {
		metrics.RecordRow(s.cfg.Job, "written", int64(job.Cleaned.Len()))
	}
	return paths, nil
}

// ensureValid validates p against the real columns, mapping failure to a
// 422 carrying every error and warning.
func ensureValid(p *plan.Plan, columns []string) (plan.Result, error) {
	res, err := plan.EnsureValid(p, plan.WithColumns(columns))
	if err != nil {
		return res, echo.NewHTTPError(http.StatusUnprocessableEntity, map[string]any{
			"message":  "plan validation failed",
			"errors":   res.Errors,
			"warnings": res.Warnings,
		}).SetInternal(err)
	}
	return res, nil
}

// schemaFailure reports an undecodable user-supplied plan as a 422 in the
// same shape as a semantic failure.
func schemaFailure(err error) error {
	issue := plan.Issue{Severity: plan.SeverityError, Message: err.Error()}
	var se *plan.SchemaError
	if errors.As(err, &se) {
		issue.Path = se.Path
		issue.Message = se.Message
	}
	return echo.NewHTTPError(http.StatusUnprocessableEntity, map[string]any{
		"message":  "plan schema invalid",
		"errors":   []plan.Issue{issue},
		"warnings": []plan.Issue{},
	}).SetInternal(err)
}

// parsePlanDocument accepts a JSON object or, failing that, YAML.
func parsePlanDocument(doc []byte) (*plan.Plan, error) {
	if len(doc) > 0 && doc[0] == '{' {
		return plan.Parse(doc)
	}
	return plan.ParseYAML(doc)
}
