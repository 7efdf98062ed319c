package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"tillgate.dev/internal/auth"
	"tillgate.dev/internal/blacklist"
	"tillgate.dev/internal/directory"
	"tillgate.dev/internal/httpapi"
	"tillgate.dev/internal/keyring"
	"tillgate.dev/internal/obs"
	"tillgate.dev/internal/session"
	"tillgate.dev/internal/store/pg"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	// Without a DSN the service runs on in-memory stores: fine for local
	// development, useless in production (secrets and sessions die with
	// the process).
	var db *sql.DB
	var (
		keyKV keyring.KV
		meta  session.MetaStore
		dir   directory.Directory
	)
	if dsn := os.Getenv("TILLGATE_PG_DSN"); dsn != "" {
		var err error
		db, err = pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		keyKV = pg.NewKeyKV(db)
		meta = pg.NewMeta(db)
		dir = pg.NewDirectory(db)
	} else {
		log.Println("TILLGATE_PG_DSN not set, using in-memory stores")
		keyKV = keyring.NewMemoryKV()
		meta = session.NewMemoryMeta()
		mem := directory.NewMemory()
		if login := os.Getenv("TILLGATE_DEV_LOGIN"); login != "" {
			if err := mem.Add(directory.Principal{
				ID:           1,
				Login:        login,
				DisplayName:  "Dev Principal",
				Capabilities: []string{directory.CapabilityManageSessions},
			}, os.Getenv("TILLGATE_DEV_PASSWORD")); err != nil {
				log.Fatalf("seed dev principal: %v", err)
			}
		}
		dir = mem
	}

	revoked := blacklist.NewMemory()
	defer revoked.Close()

	var opts []auth.Option
	if issuer := os.Getenv("TILLGATE_ISSUER"); issuer != "" {
		opts = append(opts, auth.WithIssuer(issuer))
	}
	if ttl := envDuration("TILLGATE_ACCESS_TTL"); ttl > 0 {
		opts = append(opts, auth.WithAccessTTL(ttl))
	}
	if ttl := envDuration("TILLGATE_REFRESH_TTL"); ttl > 0 {
		opts = append(opts, auth.WithRefreshTTL(ttl))
	}
	svc := auth.NewService(keyring.New(keyKV), session.NewStore(meta, nil), revoked, dir, opts...)

	api := httpapi.New(svc, dir, httpapi.ReadyProbe{DB: db}, version,
		httpapi.WithSecureCookies(os.Getenv("TILLGATE_SECURE_COOKIES") == "1"))

	handler := api.Handler()
	handler = httpapi.MaxBodyBytes(handler, 1<<20)
	handler = httpapi.RateLimit(handler, envInt("TILLGATE_RATE_BURST", 50), envInt("TILLGATE_RATE_PER_SEC", 25))
	handler = httpapi.SecurityHeaders(handler)
	handler = httpapi.CORS(handler)
	handler = httpapi.LoggingJSON(handler)
	handler = httpapi.RequestID(handler)

	addr := os.Getenv("TILLGATE_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting tillgate-api %s on %s", version, srv.Addr)

	// graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}

func envDuration(name string) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Fatalf("invalid %s: %v", name, err)
	}
	return d
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Fatalf("invalid %s: %v", name, err)
	}
	return n
}
