package wire

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/alanyang/prompt-vault/internal/adapter/memory"
	pgdb "github.com/alanyang/prompt-vault/internal/adapter/postgres"
	pgcategory "github.com/alanyang/prompt-vault/internal/adapter/postgres/category"
	pgeventbus "github.com/alanyang/prompt-vault/internal/adapter/postgres/eventbus"
	pgidempotency "github.com/alanyang/prompt-vault/internal/adapter/postgres/idempotency"
	pglocker "github.com/alanyang/prompt-vault/internal/adapter/postgres/locker"
	pgprompt "github.com/alanyang/prompt-vault/internal/adapter/postgres/prompt"
	pgtag "github.com/alanyang/prompt-vault/internal/adapter/postgres/tag"

	"github.com/alanyang/prompt-vault/internal/config"
	"github.com/alanyang/prompt-vault/internal/metrics"
	portcategory "github.com/alanyang/prompt-vault/internal/port/category"
	porteventbus "github.com/alanyang/prompt-vault/internal/port/eventbus"
	portidempotency "github.com/alanyang/prompt-vault/internal/port/idempotency"
	portlocker "github.com/alanyang/prompt-vault/internal/port/locker"
	portprompt "github.com/alanyang/prompt-vault/internal/port/prompt"
	porttag "github.com/alanyang/prompt-vault/internal/port/tag"

	categorysvc "github.com/alanyang/prompt-vault/internal/service/category"
	promptsvc "github.com/alanyang/prompt-vault/internal/service/prompt"
	tagsvc "github.com/alanyang/prompt-vault/internal/service/tag"

	"github.com/alanyang/prompt-vault/internal/transport"
	mcptransport "github.com/alanyang/prompt-vault/internal/transport/mcp"
)

// Version is reported by the MCP server; set with -ldflags at build time.
var Version = "dev"

// App holds the top-level resources needed to run and gracefully stop the server.
type App struct {
	Pool      *pgxpool.Pool // nil with memory storage
	Server    *http.Server
	PromptSvc *promptsvc.Service
	MCPServer *mcptransport.Server
	Registry  *prometheus.Registry
}

// Close releases the database pool, if any.
func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
	}
}

// adapters is one storage backend's set of port implementations.
type adapters struct {
	pool        *pgxpool.Pool
	prompts     portprompt.PromptRepository
	categories  portcategory.CategoryRepository
	tags        porttag.TagRepository
	bus         porteventbus.EventBus
	locker      portlocker.AdvisoryLocker
	idempotency interface {
		portidempotency.IdempotencyStore
		portidempotency.Pruner
	}
}

func postgresAdapters(ctx context.Context, cfg config.Config) (adapters, error) {
	pool, err := pgdb.Connect(ctx, cfg.DatabaseURL, cfg.DBConnectAttempts)
	if err != nil {
		return adapters{}, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pgdb.Migrate(ctx, pool); err != nil {
		pool.Close()
		return adapters{}, fmt.Errorf("migrating database: %w", err)
	}
	return adapters{
		pool:        pool,
		prompts:     pgprompt.New(pool),
		categories:  pgcategory.New(pool),
		tags:        pgtag.New(pool),
		bus:         pgeventbus.New(pool),
		locker:      pglocker.New(pool),
		idempotency: pgidempotency.New(pool),
	}, nil
}

func memoryAdapters() adapters {
	store := memory.NewStore()
	return adapters{
		prompts:     memory.NewPromptRepository(store),
		categories:  memory.NewCategoryRepository(store),
		tags:        memory.NewTagRepository(store),
		bus:         memory.NewEventBus(),
		locker:      memory.NewLocker(),
		idempotency: memory.NewIdempotencyStore(store),
	}
}

// Build is the composition root: the only place concrete types are wired to their
// interface dependencies.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	// ── Storage ──────────────────────────────────────────────────────────────
	var ad adapters
	switch cfg.Storage {
	case config.StoragePostgres:
		var err error
		if ad, err = postgresAdapters(ctx, cfg); err != nil {
			return nil, err
		}
	default:
		slog.Warn("using in-memory storage; prompts are lost on restart")
		ad = memoryAdapters()
	}

	// ── Metrics ──────────────────────────────────────────────────────────────
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// ── Services ─────────────────────────────────────────────────────────────
	promptSvcInstance := promptsvc.NewService(ad.prompts, ad.categories, ad.tags, ad.bus, ad.locker, m)
	categorySvcInstance := categorysvc.NewService(ad.categories, ad.bus)
	tagSvcInstance := tagsvc.NewService(ad.tags, ad.bus)

	if err := categorySvcInstance.SeedDefaults(ctx); err != nil {
		if ad.pool != nil {
			ad.pool.Close()
		}
		return nil, fmt.Errorf("seeding categories: %w", err)
	}

	mcpServer := mcptransport.New(promptSvcInstance, Version)

	// ── Transport ─────────────────────────────────────────────────────────────
	router := transport.NewRouter(ctx, transport.Deps{
		Prompts:     promptSvcInstance,
		Categories:  categorySvcInstance,
		Tags:        tagSvcInstance,
		Idempotency: ad.idempotency,
		EventBus:    ad.bus,
		Metrics:     m,
		Gatherer:    reg,
		MCP:         mcpServer.Handler(),
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	slog.Info("application wired", "port", cfg.Port, "storage", cfg.Storage)

	// ── Idempotency key reaper ────────────────────────────────────────────────
	startReaper(ctx, ad.idempotency, cfg.PruneInterval)

	return &App{
		Pool:      ad.pool,
		Server:    server,
		PromptSvc: promptSvcInstance,
		MCPServer: mcpServer,
		Registry:  reg,
	}, nil
}
