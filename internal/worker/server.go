package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"slawatch/internal/config"
	"slawatch/internal/infra/notify"
	"slawatch/internal/infra/redisq"
	"slawatch/internal/sla"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type Options struct {
	StatusPort int
	Config     Config
}

// Run wires the Redis-backed collaborators, starts a worker, and serves its
// status endpoint until the process is signalled.
func Run(opts Options) error {
	appCfg := config.Load()
	cli := redisq.New(appCfg.Redis)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Connect(ctx); err != nil {
		return err
	}

	store := redisq.NewSubmissionStore(cli)
	engine := sla.New(store, notify.NewWebhook(appCfg.Notify))
	w := New(cli, engine, redisq.NewAuditLog(cli), redisq.NewMover(cli, 1*time.Second), opts.Config)
	w.Start()

	r := chi.NewRouter()
	r.Get("/status", func(rw http.ResponseWriter, req *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(w.Status(req.Context()))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", opts.StatusPort), Handler: r}
	go func() {
		log.Info().Msgf("worker status endpoint serving on port %d", opts.StatusPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("status endpoint failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("worker is shutting down...")

	shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shCtx)
	w.Stop()
	return nil
}
