package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"crm-segment-engine/internal/api"
	"crm-segment-engine/internal/campaign"
	"crm-segment-engine/internal/config"
	"crm-segment-engine/internal/listener"
	"crm-segment-engine/internal/segment"
	"crm-segment-engine/internal/storage"
	"crm-segment-engine/internal/translate"
)

func Run(cfg config.Config) {
	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage
	store, err := storage.New(rootCtx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init storage")
	}
	defer store.Close()

	custCache := storage.NewCustomerCache()
	engines := segment.NewManager()

	// NL translation boundary
	var rulesCache translate.RulesCache
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rulesCache = translate.NewRedisCache(rdb, cfg.TranslationCacheTTL())
		defer rdb.Close()
	} else {
		rulesCache = translate.NewMemoryCache(cfg.TranslationCacheTTL())
	}
	nl := translate.NewService(translate.NewGeminiClient(cfg), rulesCache)

	// Delivery vendor
	sender := campaign.NewSender(campaign.NewSimulatedVendor(time.Now().UnixNano(), 0.9), store)

	// HTTP
	h := api.NewHandler(store, custCache, engines, nl, sender)
	r := api.Router(h)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Listener (LISTEN/NOTIFY): keeps the cache and live engines in step
	// with customer writes from other actors.
	go listener.ListenAndRefresh(rootCtx, store, custCache, engines, cfg.Listener.Channel, cfg.Backoff())

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("http server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server crashed")
		}
	}()

	waitForSignal()
	log.Info().Msg("shutdown...")

	shCtx, shCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shCancel()
	cancel() // stop background goroutines
	_ = srv.Shutdown(shCtx)
}

func waitForSignal() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}
