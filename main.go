// Package main, PWAChat feed sunucusunun giriş noktasıdır.
//
// Bu dosyanın görevi Dependency Injection "wire-up":
//  1. Config'i yükle, logger'ı kur
//  2. Database'i başlat (migration'lar embed edilmiştir)
//  3. Repository'leri oluştur, geliştirme profillerini seed et
//  4. Pub/sub broker'ı ve WebSocket Hub'ı başlat
//  5. Service, handler ve route'ları bağla
//  6. CORS + request logging ile HTTP Server'ı başlat
//  7. Graceful shutdown
//
// Global değişken YOK; her şey burada oluşturulup birbirine bağlanıyor.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"github.com/spf13/pflag"

	"github.com/realAndi/PWAChat/config"
	"github.com/realAndi/PWAChat/database"
	"github.com/realAndi/PWAChat/middleware"
	"github.com/realAndi/PWAChat/pkg/identity"
	"github.com/realAndi/PWAChat/pubsub"
	"github.com/realAndi/PWAChat/ws"
)

func main() {
	if err := run(); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "pwachat: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// ─── 1. Config + Logger ───
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}

	log, err := newLogger(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	mainLog := log.Named("main")
	mainLog.Infow("config loaded", "addr", cfg.Server.Addr(), "driver", cfg.Database.Driver, "identity", cfg.Identity.Mode)

	// ─── 2. Database ───
	db, err := database.New(database.Options{
		Driver: database.Dialect(cfg.Database.Driver),
		Path:   cfg.Database.Path,
		URL:    cfg.Database.URL,
	}, log.Named("database"))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	// ─── 3. Repository Layer ───
	repos := initRepositories(db)
	if err := seedParticipants(context.Background(), repos.Participant, cfg.DevParticipants, mainLog); err != nil {
		return err
	}

	// ─── 4. Broker + Hub ───
	//
	// Broker, service'lerin yayın yaptığı tek noktadır; her websocket
	// bağlantısı broker'a kendi aboneliğini açar. Hub yalnızca kayıt tutar.
	broker := pubsub.NewBroker(cfg.Chat.PubSubBufferSize, log.Named("pubsub"))
	defer broker.Close()

	hubCtx, stopHub := context.WithCancel(context.Background())
	hub := ws.NewHub(log.Named("ws"))

	// ─── 5. Service / Handler / Route ───
	verifier, err := identity.New(cfg.Identity.Mode, cfg.Identity.Secret)
	if err != nil {
		stopHub()
		return err
	}

	svcs := initServices(repos, broker, cfg, log)
	defer svcs.Participant.Close()
	limiters := initRateLimiters(cfg)
	defer limiters.Close()

	registerHubCallbacks(hub, svcs.Participant, log.Named("presence"))
	go hub.Run(hubCtx)

	h := initHandlers(svcs, hub, broker, verifier, cfg, log)

	mux := http.NewServeMux()
	initRoutes(mux, h, svcs, limiters, verifier, db.Conn)

	// ─── 6. CORS + HTTP Server ───
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.Origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", identity.HeaderProfileID},
		ExposedHeaders:   []string{"Retry-After", middleware.HeaderRequestID},
		AllowCredentials: false,
	})

	srv := &http.Server{
		Addr:        cfg.Server.Addr(),
		Handler:     middleware.Logging(log.Named("http"))(corsHandler.Handler(mux)),
		ReadTimeout: 15 * time.Second,
		// WriteTimeout yok: websocket bağlantıları uzun ömürlüdür, yazma
		// deadline'ları client pump'larında ayarlanır.
		IdleTimeout: 60 * time.Second,
	}

	// ─── 7. Graceful Shutdown ───
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		mainLog.Infow("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-done:
	case err := <-serveErr:
		if err != nil {
			stopHub()
			return fmt.Errorf("server error: %w", err)
		}
	}
	mainLog.Info("shutting down...")

	// Önce WebSocket bağlantılarını kapat, sonra HTTP server'ın mevcut
	// request'leri bitirmesini bekle (5 sn timeout).
	stopHub()
	<-hub.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	mainLog.Info("server stopped gracefully")
	return nil
}
