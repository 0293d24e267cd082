package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"

	"github.com/hrline/taishokubot/internal/admin"
	"github.com/hrline/taishokubot/internal/api"
	"github.com/hrline/taishokubot/internal/config"
	"github.com/hrline/taishokubot/internal/deps/line"
	"github.com/hrline/taishokubot/internal/dialogue"
	"github.com/hrline/taishokubot/internal/faq"
	"github.com/hrline/taishokubot/internal/gateway"
	"github.com/hrline/taishokubot/internal/models"
	"github.com/hrline/taishokubot/internal/router"
	"github.com/hrline/taishokubot/internal/session"
	"github.com/hrline/taishokubot/pkg/logger"
	"github.com/hrline/taishokubot/pkg/worker"
)

func main() {
	logger.Init()

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config.Load: %v", err)
	}

	var entries []models.FAQEntry

	if cfg.FAQPath != "" {
		entries, err = faq.Load(cfg.FAQPath)
		if err != nil {
			// The bot keeps running with an empty table: FAQ lookups just
			// resolve to nothing.
			log.Warnf("faq.Load: %v: continuing with empty FAQ table", err)
			entries = nil
		}
	}
	log.Infof("loaded %d FAQ entries", len(entries))

	lineClient, err := line.NewClient(
		line.Config{
			Token:    cfg.LineToken,
			Endpoint: cfg.LineEndpoint,
		},
		line.Dependencies{
			Client: resty.New(),
		})
	if err != nil {
		log.Fatalf("line.NewClient: %v", err)
	}

	gatewayClient, err := gateway.NewClient(
		gateway.Config{
			Endpoint: cfg.WorkflowEndpoint,
			Token:    cfg.WorkflowToken,
		},
		gateway.Dependencies{
			Client: resty.New(),
		})
	if err != nil {
		log.Fatalf("gateway.NewClient: %v", err)
	}

	machine, err := dialogue.NewMachine(dialogue.Dependencies{
		Gateway: gatewayClient,
	})
	if err != nil {
		log.Fatalf("dialogue.NewMachine: %v", err)
	}

	eventRouter, err := router.NewRouter(router.Dependencies{
		Sessions: session.NewStore(),
		FAQ:      faq.NewResolver(entries),
		Dialogue: machine,
		Admin:    admin.NewGate(cfg.AdminUserIDs),
		Gateway:  gatewayClient,
		Reply:    lineClient,
	})
	if err != nil {
		log.Fatalf("router.NewRouter: %v", err)
	}

	pool := worker.NewPool(ctx, worker.DefaultCount)

	server, err := api.New(api.Dependencies{
		Router: eventRouter,
		Pool:   pool,
	})
	if err != nil {
		log.Fatalf("api.New: %v", err)
	}

	go func() {
		log.Infof("webhook listening on :%s", cfg.Port)

		if err := http.ListenAndServe(":"+cfg.Port, server.Routes()); err != nil {
			log.Fatalf("http.ListenAndServe: %v", err)
		}
	}()

	exitSignal := make(chan os.Signal, 1)
	signal.Notify(exitSignal, syscall.SIGINT, syscall.SIGTERM)
	<-exitSignal

	pool.StopWait()
}
