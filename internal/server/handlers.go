package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/resume-wizard/internal/markdown"
	"github.com/jonathan/resume-wizard/internal/report"
	"github.com/jonathan/resume-wizard/internal/schemas"
	"github.com/jonathan/resume-wizard/internal/types"
	"github.com/jonathan/resume-wizard/internal/wizard"
	"github.com/jonathan/resume-wizard/internal/workspace"
)

// reportTitle names the exported analysis page
const reportTitle = "Match Analysis"

// decodeJSON reads a JSON body into v. An empty body leaves v untouched
// when allowEmpty is set.
func decodeJSON(r *http.Request, v any, allowEmpty bool) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return &ErrValidation{Field: "body", Message: err.Error()}
	}
	if len(body) == 0 {
		if allowEmpty {
			return nil
		}
		return &ErrValidation{Field: "body", Message: "request body is empty"}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &ErrValidation{Field: "body", Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return nil
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, types.VersionResponse{Version: s.cfg.Version, StartedAt: s.startedAt})
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.cfg.Wizard.State())
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var req types.NavigateRequest
	if err := decodeJSON(r, &req, false); err != nil {
		s.fail(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.fail(w, err)
		return
	}

	state, err := s.cfg.Wizard.Navigate(wizard.Step(req.Step))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, state)
}

func (s *Server) handleFileFilters(w http.ResponseWriter, r *http.Request) {
	category := workspace.Category(r.URL.Query().Get("category"))
	if category == "" {
		category = workspace.CategoryCandidate
	}
	policy, err := workspace.Selection(category)
	if err != nil {
		s.fail(w, &ErrValidation{Field: "category", Message: err.Error()})
		return
	}
	s.jsonResponse(w, http.StatusOK, policy)
}

func (s *Server) handleListFiles(w http.ResponseWriter, _ *http.Request) {
	candidate, err := s.cfg.Files.List(workspace.CategoryCandidate)
	if err != nil {
		s.fail(w, err)
		return
	}
	vacancy, err := s.cfg.Files.List(workspace.CategoryVacancy)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"uploaded":  s.cfg.Wizard.State().UploadedFiles,
		"candidate": candidate,
		"vacancy":   vacancy,
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	var req types.UploadRequest
	if err := decodeJSON(r, &req, false); err != nil {
		s.fail(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.fail(w, err)
		return
	}

	result, err := s.cfg.Wizard.Upload(workspace.Category(req.Category), req.Paths, req.Text)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, result)
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		s.fail(w, &ErrValidation{Field: "index", Message: "must be an integer"})
		return
	}

	state, err := s.cfg.Wizard.DeleteFile(index)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, state)
}

func (s *Server) handleClear(w http.ResponseWriter, _ *http.Request) {
	clearReport, err := s.cfg.Wizard.ClearAll()
	if err != nil {
		s.fail(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"removed":  clearReport.Removed(),
		"outcomes": clearReport.Outcomes,
	})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, _ *http.Request) {
	settings, err := s.cfg.Wizard.LoadSettings()
	if err != nil {
		s.fail(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"settings": settings})
}

func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.fail(w, &ErrValidation{Field: "body", Message: err.Error()})
		return
	}
	if err := schemas.ValidateSettingsUpdate(body); err != nil {
		s.fail(w, err)
		return
	}

	var req types.SettingsUpdateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.fail(w, &ErrValidation{Field: "body", Message: err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		s.fail(w, err)
		return
	}

	settings, err := s.cfg.Wizard.SaveSettings(req.Settings)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"settings": settings})
}

func (s *Server) handleListStages(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.cfg.Wizard.Stages())
}

func (s *Server) handleRunStage(w http.ResponseWriter, r *http.Request) {
	var req types.StageRequest
	if err := decodeJSON(r, &req, true); err != nil {
		s.fail(w, err)
		return
	}

	name := r.PathValue("name")
	result, err := s.cfg.Wizard.RunStage(r.Context(), name, req.Force)
	if err != nil {
		s.jsonResponse(w, HTTPStatus(err), map[string]any{"error": err.Error(), "result": result})
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"stage": name, "result": result})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req types.GenerateRequest
	if err := decodeJSON(r, &req, true); err != nil {
		s.fail(w, err)
		return
	}

	outcome, err := s.cfg.Wizard.Generate(r.Context(), req.VacancyText)
	if err != nil {
		s.jsonResponse(w, HTTPStatus(err), map[string]any{"error": err.Error(), "outcome": outcome})
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"outcome": outcome, "state": s.cfg.Wizard.State()})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	md, err := s.cfg.Wizard.Analyze(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"markdown": md,
		"html":     markdown.Render(md),
	})
}

// handleReport serves the analysis report as markdown (default), a full
// HTML page or a JSON outline, chosen by ?format=
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	data, err := s.cfg.Files.ReadOutput(workspace.AnalysisReportPath)
	if err != nil {
		s.fail(w, err)
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = w.Write(data)
	case "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, report.Document(reportTitle, string(data)))
	case "outline":
		outline, err := report.Outline(markdown.Render(string(data)))
		if err != nil {
			s.fail(w, err)
			return
		}
		s.jsonResponse(w, http.StatusOK, map[string]any{"outline": outline})
	default:
		s.fail(w, &ErrValidation{Field: "format", Message: fmt.Sprintf("unsupported format %q", format)})
	}
}

func (s *Server) handleReportPDF(w http.ResponseWriter, r *http.Request) {
	data, err := s.cfg.Files.ReadOutput(workspace.AnalysisReportPath)
	if err != nil {
		s.fail(w, err)
		return
	}

	pdf, err := s.exportPDF(r.Context(), report.Document(reportTitle, string(data)), s.cfg.PDFTimeout)
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="analysis_report.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	_, _ = w.Write(pdf)
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Opener == nil {
		s.errorResponse(w, http.StatusNotImplemented, "opening files is not supported")
		return
	}

	var req types.OpenRequest
	if err := decodeJSON(r, &req, false); err != nil {
		s.fail(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.fail(w, err)
		return
	}

	open := s.cfg.Opener.Open
	if req.Reveal {
		open = s.cfg.Opener.Reveal
	}
	if err := open(req.Path); err != nil {
		s.fail(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleLogs streams log events until the client goes away
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	sub := s.cfg.Logs.Subscribe(logBuffer)
	defer sub.Close()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := sse.WriteKeepAlive(); err != nil {
				return
			}
		case event, ok := <-sub.Events():
			if !ok {
				sse.WriteError("log stream closed")
				return
			}
			if err := sse.WriteEvent("log", event.ID.String(), event); err != nil {
				log.Printf("[SERVER] Log stream write failed: %v", err)
				return
			}
		}
	}
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.cfg.History == nil {
		s.fail(w, ErrHistoryDisabled)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.fail(w, &ErrValidation{Field: "limit", Message: "must be a non-negative integer"})
			return
		}
		limit = n
	}

	runs, err := s.cfg.History.ListRuns(r.Context(), limit)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleListRunStages(w http.ResponseWriter, r *http.Request) {
	if s.cfg.History == nil {
		s.fail(w, ErrHistoryDisabled)
		return
	}

	runID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.fail(w, &ErrValidation{Field: "id", Message: "must be a UUID"})
		return
	}

	stages, err := s.cfg.History.ListRunSteps(r.Context(), runID)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"run_id": runID, "stages": stages})
}
