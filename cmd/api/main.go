package main

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"

	"github.com/nightjarhq/nightjar-backend/internal/config"
	"github.com/nightjarhq/nightjar-backend/internal/modules/assign"
	"github.com/nightjarhq/nightjar-backend/internal/modules/audit"
	"github.com/nightjarhq/nightjar-backend/internal/modules/capacity"
	"github.com/nightjarhq/nightjar-backend/internal/modules/catalog"
	"github.com/nightjarhq/nightjar-backend/internal/modules/ledger"
	"github.com/nightjarhq/nightjar-backend/internal/modules/member"
	"github.com/nightjarhq/nightjar-backend/internal/modules/notify"
	"github.com/nightjarhq/nightjar-backend/internal/modules/reveal"
	"github.com/nightjarhq/nightjar-backend/internal/modules/settings"
	"github.com/nightjarhq/nightjar-backend/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := config.NewLogger(cfg.LogLevel)

	// ── Document store ──────────────────────────────────────
	var docs store.Store
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("open database")
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			log.WithError(err).Fatal("ping database")
		}
		if err := store.Migrate(context.Background(), db); err != nil {
			log.WithError(err).Fatal("migrate document store")
		}
		docs = store.NewPostgres(db)
		log.Info("document store: postgres")
	} else {
		docs = store.NewMemory()
		log.Warn("document store: in-memory, data will not survive restarts")
	}

	// ── Phase 1: Audit & Members ────────────────────────────
	auditRepo := audit.NewDocRepository(docs)
	auditService := audit.NewService(auditRepo)

	memberRepo := member.NewDocRepository(docs)
	memberService := member.NewService(memberRepo, auditService, cfg.JWTSecret)

	// ── Router ──────────────────────────────────────────────
	// Middleware must be attached before any route registration.
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(member.Authenticator(memberService))

	member.NewHandler(memberService).RegisterRoutes(router)
	audit.NewHandler(auditService).RegisterRoutes(router)

	// ── Phase 2: Settings, Catalog & Capacity ───────────────
	settingsService := settings.NewService(docs, auditService)
	settings.NewHandler(settingsService).RegisterRoutes(router)

	catalogRepo := catalog.NewDocRepository(docs)
	catalogService := catalog.NewService(catalogRepo, auditService)
	catalog.NewHandler(catalogService).RegisterRoutes(router)

	capacityRepo := capacity.NewDocRepository(docs)
	capacityService := capacity.NewService(capacityRepo)
	capacity.NewHandler(capacityService).RegisterRoutes(router)

	// ── Phase 3: Notifications & Address Reveal ─────────────
	notifyService := notify.NewService(docs, log)
	notify.NewHandler(notifyService).RegisterRoutes(router)

	revealRepo := reveal.NewDocRepository(docs)
	revealService, err := reveal.NewService(revealRepo, memberRepo, cfg.RelayPrivateKey, log)
	if err != nil {
		log.WithError(err).Fatal("configure reveal service")
	}
	reveal.NewHandler(revealService).RegisterRoutes(router)

	// ── Phase 4: Request Ledger ─────────────────────────────
	ledgerRepo := ledger.NewDocRepository(docs)
	ledgerService := ledger.NewService(ledgerRepo, catalogRepo, auditService, notifyService, revealService, log)
	ledger.NewHandler(ledgerService).RegisterRoutes(router)

	// ── Phase 5: Assignment Engine ──────────────────────────
	assignService := assign.NewService(ledgerService, capacityRepo, settingsService, log)
	assign.NewHandler(assignService).RegisterRoutes(router)

	stopWatch := assignService.Watch(context.Background(), docs)
	defer stopWatch()

	// ── Start Server ────────────────────────────────────────
	addr := ":" + cfg.AppPort
	log.WithField("addr", addr).Info("nightjar api listening")
	if err := http.ListenAndServe(addr, router); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
