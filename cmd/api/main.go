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

	"github.com/Kvnbbg/cfa/internal/auth"
	"github.com/Kvnbbg/cfa/internal/config"
	"github.com/Kvnbbg/cfa/internal/httpapi"
	"github.com/Kvnbbg/cfa/internal/obs"
	"github.com/Kvnbbg/cfa/internal/store"
	"github.com/Kvnbbg/cfa/internal/store/pg"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	key, ephemeral, err := cfg.SigningKey()
	if err != nil {
		log.Fatalf("signing key: %v", err)
	}
	if ephemeral {
		obs.Warn("CFA_AUTH_SECRET not set; generated ephemeral signing key, issued tokens will not survive a restart", nil)
	}

	var (
		st    store.Store
		probe httpapi.ReadyProbe
	)
	if cfg.DatabaseDSN != "" {
		pgStore, err := pg.Open(cfg.DatabaseDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer pgStore.Close()
		st = pgStore
		probe = httpapi.ReadyProbe{DB: pgStore.DB()}
	} else {
		if cfg.Production() {
			log.Fatal("CFA_PG_DSN must be set in production")
		}
		obs.Warn("CFA_PG_DSN not set; using in-memory store", nil)
		st = store.NewInMemory()
	}

	authSvc, err := auth.NewService(st.Users(), key, auth.WithTTL(cfg.TokenTTL))
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	if !cfg.Production() {
		if err := bootstrapAdmin(context.Background(), cfg, st); err != nil {
			log.Fatalf("admin bootstrap: %v", err)
		}
	}

	api := httpapi.New(st, authSvc, probe, version)
	api.SetCORSOrigins(cfg.CORSOrigins)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting cfa-api %s on %s", version, srv.Addr)

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
	log.Println("Stopped")
}

// bootstrapAdmin ensures a development admin account exists. Skipped with a
// warning when the credentials are not configured.
func bootstrapAdmin(ctx context.Context, cfg config.Config, st store.Store) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		obs.Warn("admin bootstrap skipped; set CFA_ADMIN_EMAIL and CFA_ADMIN_PASSWORD to enable", nil)
		return nil
	}
	if _, err := st.Users().FindByEmail(ctx, cfg.AdminEmail); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	admin := &store.User{
		Email:        cfg.AdminEmail,
		PasswordHash: hash,
		FirstName:    "Admin",
		LastName:     "CFA",
		Role:         store.RoleAdmin,
	}
	if err := st.Users().Create(ctx, admin); err != nil {
		return err
	}
	obs.Info("admin user created", map[string]any{"email": admin.Email})
	return nil
}
