package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"slawatch/internal/config"
	"slawatch/internal/domain"
	"slawatch/internal/infra/notify"
	"slawatch/internal/infra/redisq"
	"slawatch/internal/ports"
	"slawatch/internal/sla"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// adminEngine is the slice of the SLA engine the admin surface triggers.
type adminEngine interface {
	CheckBreaches(ctx context.Context) ([]sla.EscalationAction, error)
	Escalate(ctx context.Context, submissionID string) error
	ProcessEscalations(ctx context.Context) (sla.ProcessResult, error)
}

type submissionWriter interface {
	SaveSubmission(ctx context.Context, sub domain.Submission) error
}

type createSubmissionReq struct {
	ID         string `json:"id"`
	ReceivedAt *int64 `json:"received_at_ms"` // optional, defaults to now
	SLADays    int    `json:"sla_days"`
}

func NewServer() *Server {
	ctx := context.Background()
	cfg := config.Load()

	cli := redisq.New(cfg.Redis)
	if err := cli.Connect(ctx); err != nil {
		log.Ctx(ctx).Fatal().Msgf("something went wrong: %s", err)
	}

	store := redisq.NewSubmissionStore(cli)
	engine := sla.New(store, notify.NewWebhook(cfg.Notify))
	return &Server{router: newRouter(engine, cli, store)}
}

func newRouter(engine adminEngine, broker ports.QueueBroker, store submissionWriter) *chi.Mux {
	r := chi.NewRouter()

	r.Post("/admin/check-breaches", func(w http.ResponseWriter, req *http.Request) {
		actions, err := engine.CheckBreaches(req.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		ids := make([]string, 0, len(actions))
		for _, a := range actions {
			ids = append(ids, a.SubmissionID)
		}
		writeJSON(w, http.StatusOK, map[string]any{"count": len(ids), "breaches": ids})
	})

	r.Post("/admin/process-escalations", func(w http.ResponseWriter, req *http.Request) {
		res, err := engine.ProcessEscalations(req.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	})

	r.Post("/admin/escalate/{id}", func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "id")
		if err := engine.Escalate(req.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"submission_id": id, "processed": true})
	})

	r.Post("/admin/clear-queue", func(w http.ResponseWriter, req *http.Request) {
		removed, err := broker.Clear(req.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
	})

	r.Get("/admin/queue", func(w http.ResponseWriter, req *http.Request) {
		n, err := broker.Length(req.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"length": n})
	})

	r.Post("/admin/submissions", func(w http.ResponseWriter, req *http.Request) {
		var body createSubmissionReq
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if body.SLADays <= 0 {
			http.Error(w, "sla_days must be positive", http.StatusBadRequest)
			return
		}
		if body.ID == "" {
			body.ID = uuid.NewString()
		}
		receivedAt := time.Now().UTC()
		if body.ReceivedAt != nil {
			receivedAt = time.UnixMilli(*body.ReceivedAt).UTC()
		}
		sub := domain.Submission{
			ID:         body.ID,
			ReceivedAt: receivedAt,
			SLADays:    body.SLADays,
			Status:     domain.StatusOpen,
		}
		if err := store.SaveSubmission(req.Context(), sub); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"id": sub.ID})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrStoreUnavailable):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

type Server struct {
	router *chi.Mux
}

// Run method of the Server struct runs the HTTP server on the specified port. It initializes
// a new HTTP server instance with the specified port and the server's router.
func (s *Server) Run(port int) {
	addr := fmt.Sprintf(":%d", port)

	h := chainMiddleware(
		s.router,
		recoverHandler,
		loggerHandler(func(w http.ResponseWriter, r *http.Request) bool { return r.URL.Path == "/" }),
		realIPHandler,
		requestIDHandler,
		corsHandler,
	)

	httpServer := http.Server{
		Addr:         addr,
		Handler:      h,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	done := make(chan bool)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info().Msg("Server is shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(ctx); err != nil {
			log.Fatal().Err(err).Msg("Server forced to shutdown")
		}

		close(done)
	}()

	log.Info().Msgf("server serving on port %d", port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("Failed to listen and serve")
	}

	<-done
	log.Info().Msg("Server stopped")
}
