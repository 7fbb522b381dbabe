package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"libraryapi/internal/auth"
	"libraryapi/internal/book"
	"libraryapi/internal/catalogcache"
	"libraryapi/internal/httpx"
	"libraryapi/internal/loginlog"
	"libraryapi/internal/notify"
	"libraryapi/internal/session"
	"libraryapi/internal/user"
)

func main() {
	loadEnvFiles()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	dbPool := mustOpenDB(cfg.DatabaseDSN)
	defer dbPool.Close()

	userRepository := user.NewPostgresRepo(dbPool, cfg.DBTimeout)
	bookRepository := book.NewPostgresRepo(dbPool, cfg.DBTimeout)
	blacklistRepository := session.NewPostgresRepo(dbPool, cfg.DBTimeout)
	loginLogRepository := loginlog.NewPostgresRepo(dbPool, cfg.DBTimeout)

	userService := user.NewService(userRepository)
	sessionService := session.NewService(blacklistRepository)

	dispatcher := notify.NewDispatcher(cfg.NotifyBuffer,
		notify.NewLogListener(userService),
		loginlog.NewListener(loginLogRepository),
	)

	pageCache, err := catalogcache.New[book.Page](cfg.Cache)
	if err != nil {
		log.Fatalf("catalog cache: %v", err)
	}

	bookService := book.NewService(bookRepository, pageCache, dispatcher)
	authService := auth.NewService(cfg.JWTSecret, cfg.AccessTokenTTL, userService, sessionService, dispatcher)

	rateLimiter := httpx.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	router := newRouter(routeDeps{
		jwtSecret: cfg.JWTSecret,
		blacklist: sessionService,
		ready: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
			defer cancel()
			return dbPool.Ping(ctx)
		},
		books: book.NewHTTPHandler(bookService),
		users: user.NewHTTPHandler(userService),
		auth:  auth.NewHTTPHandler(authService),
	})

	httpServer := &http.Server{
		Addr: cfg.Addr,
		Handler: withMiddleware(router, middlewareConfig{
			allowedOrigins: cfg.AllowedOrigins,
			maxBodyBytes:   cfg.MaxBodyBytes,
			hsts:           cfg.EnableHSTS,
			rateLimiter:    rateLimiter,
		}),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The dispatcher outlives request contexts; Close drains it on shutdown.
	dispatcher.Start(context.Background())
	go sessionService.RunCleanup(ctx, time.Hour)
	go rateLimiter.Run(ctx, 5*time.Minute)

	go func() {
		log.Printf("Starting server on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
	dispatcher.Close()
	log.Println("server stopped")
}

func mustOpenDB(dsn string) *pgxpool.Pool {
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatalf("cannot create db pool: %v", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		log.Fatalf("cannot ping database (%s): %v", redactDSN(dsn), err)
	}
	log.Println("database connection OK")
	return pool
}
