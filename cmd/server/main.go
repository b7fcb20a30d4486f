package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wagerchess/internal/app"
	"wagerchess/internal/config"
	"wagerchess/internal/ports/chessrules"
	"wagerchess/internal/ports/contract"
	"wagerchess/internal/ports/rabbit"
	"wagerchess/internal/ports/redisstore"
	"wagerchess/internal/ports/ws"

	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.Sugar()

	if err := run(log); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

func run(log *zap.SugaredLogger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := redisstore.Open(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer store.Close()

	broker, err := rabbit.Dial(cfg.AMQPURL, log)
	if err != nil {
		return err
	}
	defer broker.Close()

	settlement, err := contract.Dial(cfg.NATSURL)
	if err != nil {
		return err
	}
	defer settlement.Close()

	var tokens *app.TokenService
	if cfg.TokenSecret != "" {
		tokens = app.NewTokenService(cfg.TokenSecret, cfg.TokenIssuer, cfg.TokenTTL)
	} else {
		log.Warnf("TOKEN_SECRET is empty, handshake auth disabled")
	}

	hub := ws.NewHub(log, tokens)
	svc := app.NewService(app.Deps{
		Store:      store,
		Broker:     broker,
		Gateway:    hub,
		Settlement: settlement,
		Rules:      chessrules.New(),
		Limits: app.Limits{
			ConcurrentGames: cfg.ConcurrentGameLimit,
			WagerMin:        cfg.WagerMin,
			WagerMax:        cfg.WagerMax,
			TimeControls:    cfg.TimeControls,
			RoundsMin:       cfg.RoundsMin,
			RoundsMax:       cfg.RoundsMax,
			RoundCooldown:   cfg.RoundCooldown,
			MaxEmitAttempts: cfg.MaxEmitAttempts,
		},
		Log: log,
	})
	hub.SetHandler(svc)

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Infof("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}
