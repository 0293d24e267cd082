package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"github.com/hrline/taishokubot/internal/models"
	"github.com/hrline/taishokubot/internal/router"
	"github.com/hrline/taishokubot/pkg/worker"
)

type Dependencies struct {
	Router *router.Router `validate:"required"`
	Pool   *worker.Pool   `validate:"required"`
}

func (d *Dependencies) Validate() error {
	return validator.New().Struct(d)
}

// API exposes the inbound webhook. The platform gets a fixed "OK" for every
// delivery regardless of per-event outcomes: events are handed to the
// worker pool and the transport is never kept waiting on downstream
// failures.
type API struct {
	deps Dependencies
}

func New(deps Dependencies) (*API, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}
	return &API{deps: deps}, nil
}

func (a *API) Routes() *chi.Mux {
	mux := chi.NewRouter()

	mux.Use(middleware.Recoverer)

	mux.Get("/healthz", a.handleHealth)
	mux.Post("/webhook", a.handleWebhook)

	return mux
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (a *API) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var batch models.WebhookRequest

	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		// Ack anyway: a malformed delivery must not trigger redelivery
		// storms, and there is nothing to process.
		log.Warnf("api.handleWebhook: json.Decode: %v", err)
		a.ack(w)
		return
	}

	log.Debugf("api.handleWebhook: received %d events", len(batch.Events))

	for _, event := range batch.Events {
		event := event

		a.deps.Pool.Push(func(ctx context.Context) error {
			return a.deps.Router.HandleEvent(ctx, event)
		})
	}

	a.ack(w)
}

func (a *API) ack(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
