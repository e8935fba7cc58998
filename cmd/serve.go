package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/predator4hack/ai-shark-sub001/internal/company"
	"github.com/predator4hack/ai-shark-sub001/internal/model"
	"github.com/predator4hack/ai-shark-sub001/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server for questionnaire requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "questionnaire")
		if err != nil {
			return err
		}
		defer env.Close()

		pipe := env.questionnairePipeline("")
		srvState := &server{
			base:  ctx,
			store: env.Store,
			ws:    env.Workspace,
			process: func(ctx context.Context, name string) error {
				res, err := pipe.Process(ctx, name)
				return questionnaireErr(res, err)
			},
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(srvState),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		srvState.wait()
		return nil
	},
}

// server holds what the HTTP handlers need. process runs one questionnaire
// job; jobs outlive the request and are bounded by base.
type server struct {
	base    context.Context
	store   store.Store
	ws      company.Workspace
	process func(ctx context.Context, companyName string) error
	jobs    sync.WaitGroup

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// claim marks name as having a job in flight. It returns false when one
// already is.
func (s *server) claim(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight == nil {
		s.inFlight = make(map[string]struct{})
	}
	if _, busy := s.inFlight[name]; busy {
		return false
	}
	s.inFlight[name] = struct{}{}
	return true
}

func (s *server) release(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, name)
}

func (s *server) wait() { s.jobs.Wait() }

func newRouter(s *server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSONStatus(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/companies/{name}/questionnaire", s.handleQuestionnaire)
	r.Get("/runs", s.handleListRuns)
	r.Get("/runs/{id}", s.handleGetRun)
	return r
}

// handleQuestionnaire starts a questionnaire job and answers 202 with the
// run ID once the run is recorded.
func (s *server) handleQuestionnaire(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, err := s.ws.Dir(name); err != nil {
		writeJSONStatus(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if !s.claim(name) {
		writeJSONStatus(w, http.StatusConflict, map[string]string{"error": "questionnaire already running", "company": name})
		return
	}

	started := make(chan string, 1)
	done := make(chan error, 1)
	s.jobs.Add(1)
	go func() {
		defer s.jobs.Done()
		defer s.release(name)
		err := store.Track(s.base, s.store, name, "questionnaire", func(ctx context.Context, run *model.Run) error {
			started <- run.ID
			return s.process(ctx, name)
		})
		if err != nil {
			zap.L().Error("questionnaire job failed", zap.String("company", name), zap.Error(err))
		} else {
			zap.L().Info("questionnaire job complete", zap.String("company", name))
		}
		done <- err
	}()

	accepted := func(id string) {
		writeJSONStatus(w, http.StatusAccepted, map[string]string{
			"status":  "accepted",
			"company": name,
			"run_id":  id,
		})
	}

	select {
	case id := <-started:
		accepted(id)
	case err := <-done:
		// The job may have finished before this select ran.
		select {
		case id := <-started:
			accepted(id)
		default:
			writeJSONStatus(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
	case <-r.Context().Done():
	}
}

// handleListRuns answers GET /runs?company=&command=&status=&limit=.
func (s *server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.RunFilter{
		Company: q.Get("company"),
		Command: q.Get("command"),
		Status:  model.RunStatus(q.Get("status")),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSONStatus(w, http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
			return
		}
		filter.Limit = n
	}
	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		writeJSONStatus(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSONStatus(w, http.StatusOK, runs)
}

func (s *server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrRunNotFound) {
		writeJSONStatus(w, http.StatusNotFound, map[string]string{"error": "run not found"})
		return
	}
	if err != nil {
		writeJSONStatus(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSONStatus(w, http.StatusOK, run)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
