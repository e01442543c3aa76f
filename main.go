package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ChromeUniverse/luccachat/internal/auth"
	"github.com/ChromeUniverse/luccachat/internal/config"
	"github.com/ChromeUniverse/luccachat/internal/handlers"
	"github.com/ChromeUniverse/luccachat/internal/logger"
	"github.com/ChromeUniverse/luccachat/internal/middleware"
	"github.com/ChromeUniverse/luccachat/internal/presence"
	"github.com/ChromeUniverse/luccachat/internal/store/sqlstore"
	"github.com/ChromeUniverse/luccachat/internal/ws"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	configPath = flag.String("config", "", "path to the YAML config file")
	addr       = flag.String("addr", "", "http service address, overrides the config file")
)

// onlineChecker answers presence lookups for the HTTP endpoint.
type onlineChecker interface {
	ws.Presence
	IsOnline(ctx context.Context, userID string) (bool, error)
}

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlstore.New(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer store.Close()

	var tracker onlineChecker = presence.Nop{}
	if cfg.Redis.Addr != "" {
		t := presence.New(presence.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.PresenceTTL,
		})
		if err := t.Ping(ctx); err != nil {
			return err
		}
		defer t.Close()
		tracker = t
	} else {
		log.Info("no redis address configured, presence tracking disabled")
	}

	verifier := auth.NewVerifier(cfg.Auth.Secret, cfg.Auth.MaxAge)
	registry := ws.NewRegistry()
	broadcaster := ws.NewBroadcaster(registry, log)
	gate := ws.NewGate(verifier, registry, tracker, broadcaster, log)
	h := handlers.New(store, broadcaster, log)
	dispatcher := handlers.NewDispatcher(h, gate, registry, broadcaster, cfg.StoreTimeout, log)
	wsServer := ws.NewServer(gate, registry, dispatcher, ws.Config{
		SendBuffer:      cfg.WS.SendBuffer,
		MaxMessageBytes: cfg.WS.MaxMessageBytes,
		AuthTimeout:     cfg.Auth.Timeout,
		AllowedOrigins:  cfg.WS.AllowedOrigins,
	}, log)

	r := mux.NewRouter()
	r.Use(middleware.Logging(log.Named("http")))
	r.Handle("/ws", wsServer).Methods("GET")
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{
			"connections":   wsServer.Connections(),
			"authenticated": registry.Len(),
		})
	}).Methods("GET")

	api := r.PathPrefix("/presence").Subrouter()
	api.Use(middleware.Bearer(verifier))
	api.HandleFunc("/{userId}", presenceHandler(tracker, log)).Methods("GET")

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Starting server", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "listen")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		wsServer.CloseAll()
		return errors.Wrap(err, "shutdown")
	})
	return g.Wait()
}

func presenceHandler(tracker onlineChecker, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := mux.Vars(r)["userId"]
		online, err := tracker.IsOnline(r.Context(), userID)
		if err != nil {
			log.Warn("presence lookup", zap.String("user", userID), zap.Error(err))
			http.Error(w, "presence unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"userId": userID, "online": online})
	}
}
