package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/resume-wizard/internal/db"
	"github.com/jonathan/resume-wizard/internal/events"
	"github.com/jonathan/resume-wizard/internal/pipeline"
	"github.com/jonathan/resume-wizard/internal/report"
	"github.com/jonathan/resume-wizard/internal/runner"
	"github.com/jonathan/resume-wizard/internal/server/middleware"
	"github.com/jonathan/resume-wizard/internal/wizard"
	"github.com/jonathan/resume-wizard/internal/workspace"
)

// Wizard is the controller surface served over HTTP
type Wizard interface {
	State() wizard.State
	Navigate(step wizard.Step) (wizard.State, error)
	Upload(category workspace.Category, paths []string, text string) (*wizard.UploadResult, error)
	DeleteFile(index int) (wizard.State, error)
	ClearAll() (workspace.ClearReport, error)
	LoadSettings() (map[string]string, error)
	SaveSettings(updates map[string]string) (map[string]string, error)
	Stages() wizard.StageAvailability
	RunStage(ctx context.Context, name string, force bool) (*runner.Result, error)
	Generate(ctx context.Context, vacancyText string) (*pipeline.Outcome, error)
	Analyze(ctx context.Context) (string, error)
}

// Files reads workspace contents
type Files interface {
	List(category workspace.Category) ([]workspace.UploadedFile, error)
	ReadOutput(relativePath string) ([]byte, error)
}

// Opener hands workspace files to the desktop
type Opener interface {
	Open(path string) error
	Reveal(path string) error
}

// RunHistory lists recorded runs
type RunHistory interface {
	ListRuns(ctx context.Context, limit int) ([]db.Run, error)
	ListRunSteps(ctx context.Context, runID uuid.UUID) ([]db.RunStep, error)
}

// LogSource hands out log subscriptions
type LogSource interface {
	Subscribe(buffer int) *events.Subscription
}

// Config holds server configuration
type Config struct {
	Port       int
	Version    string
	Wizard     Wizard
	Files      Files
	Opener     Opener
	History    RunHistory // nil disables the /runs routes
	Logs       LogSource
	Tokens     *JWTService
	PDFTimeout time.Duration
}

const (
	// logBuffer is the per-subscriber queue of the /logs stream
	logBuffer = 256
	// keepAliveInterval spaces comment lines on an idle /logs stream
	keepAliveInterval = 15 * time.Second
	// maxBodyBytes caps JSON request bodies
	maxBodyBytes = 1 << 20
)

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	cfg        Config
	startedAt  time.Time
	exportPDF  func(ctx context.Context, htmlDoc string, timeout time.Duration) ([]byte, error)
}

// New creates a new server instance
func New(cfg Config) (*Server, error) {
	if cfg.Wizard == nil || cfg.Files == nil || cfg.Logs == nil {
		return nil, fmt.Errorf("server requires a wizard, workspace files and a log source")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("server requires a token service")
	}
	if cfg.PDFTimeout <= 0 {
		cfg.PDFTimeout = report.DefaultExportTimeout
	}

	s := &Server{
		cfg:       cfg,
		startedAt: time.Now(),
		exportPDF: report.ExportPDF,
	}

	api := http.NewServeMux()
	api.HandleFunc("GET /version", s.handleVersion)
	api.HandleFunc("GET /state", s.handleState)
	api.HandleFunc("POST /navigate", s.handleNavigate)

	// Files
	api.HandleFunc("GET /files/filters", s.handleFileFilters)
	api.HandleFunc("GET /files", s.handleListFiles)
	api.HandleFunc("POST /files", s.handleUpload)
	api.HandleFunc("DELETE /files/{index}", s.handleDeleteFile)
	api.HandleFunc("POST /workspace/clear", s.handleClear)

	// Settings
	api.HandleFunc("GET /config", s.handleGetConfig)
	api.HandleFunc("PUT /config", s.handlePutConfig)

	// Pipeline
	api.HandleFunc("GET /stages", s.handleListStages)
	api.HandleFunc("POST /stages/{name}", s.handleRunStage)
	api.HandleFunc("POST /generate", s.handleGenerate)
	api.HandleFunc("POST /analyze", s.handleAnalyze)

	// Report and outputs
	api.HandleFunc("GET /report", s.handleReport)
	api.HandleFunc("GET /report.pdf", s.handleReportPDF)
	api.HandleFunc("POST /open", s.handleOpen)

	api.HandleFunc("GET /logs", s.handleLogs)

	// Run history
	api.HandleFunc("GET /runs", s.handleListRuns)
	api.HandleFunc("GET /runs/{id}/stages", s.handleListRunStages)

	auth := middleware.AuthMiddleware(cfg.Tokens.AsTokenValidator(), "/logs")

	root := http.NewServeMux()
	root.HandleFunc("GET /health", s.handleHealth)
	root.Handle("/", auth(api))

	s.handler = s.withLogging(s.withRecovery(s.withCORS(root)))
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // generation and the log stream outlive any fixed limit
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the fully wrapped request handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start begins listening for requests and blocks until SIGINT/SIGTERM
func (s *Server) Start() error {
	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[SERVER] Listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}
	log.Println("[SERVER] Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("[SERVER] Stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRecovery turns handler panics into a 500 JSON error
func (s *Server) withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Printf("[SERVER] panic in %s %s: %v\n%s", r.Method, r.URL.Path, rec, debug.Stack())
				s.errorResponse(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[SERVER] %s %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[SERVER] %s %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[SERVER] Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// fail maps err to its status and writes it
func (s *Server) fail(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[SERVER] Request failed: %v", err)
	}
	s.errorResponse(w, status, err.Error())
}
