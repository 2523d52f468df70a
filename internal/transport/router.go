package transport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alanyang/prompt-vault/internal/domain/event"
	"github.com/alanyang/prompt-vault/internal/metrics"
	porteventbus "github.com/alanyang/prompt-vault/internal/port/eventbus"
	portidempotency "github.com/alanyang/prompt-vault/internal/port/idempotency"
	categorysvc "github.com/alanyang/prompt-vault/internal/service/category"
	promptsvc "github.com/alanyang/prompt-vault/internal/service/prompt"
	tagsvc "github.com/alanyang/prompt-vault/internal/service/tag"

	categoryhandler "github.com/alanyang/prompt-vault/internal/transport/category"
	prompthandler "github.com/alanyang/prompt-vault/internal/transport/prompt"
	taghandler "github.com/alanyang/prompt-vault/internal/transport/tag"
	wshandler "github.com/alanyang/prompt-vault/internal/transport/ws"
)

// Deps groups everything the HTTP surface is built from.
type Deps struct {
	Prompts     *promptsvc.Service
	Categories  *categorysvc.Service
	Tags        *tagsvc.Service
	Idempotency portidempotency.IdempotencyStore
	EventBus    porteventbus.EventBus
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	// MCP is mounted at /mcp when set.
	MCP http.Handler
}

func NewRouter(ctx context.Context, d Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestLogger(d.Metrics))
	r.Use(CORSMiddleware())
	r.Use(IdempotencyMiddleware(d.Idempotency))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}
	if d.MCP != nil {
		r.Any("/mcp", gin.WrapH(d.MCP))
	}

	api := r.Group("/api")

	prompthandler.Register(api.Group("/prompts"), d.Prompts)
	prompthandler.RegisterTransfer(api, d.Prompts)
	categoryhandler.Register(api.Group("/categories"), d.Categories)
	taghandler.Register(api.Group("/tags"), d.Tags)

	hub := wshandler.NewHub()
	hub.Register(api.Group("/ws"))

	// Bridge: one subscription per domain channel. The hub applies each
	// client's channel and entity filters.
	for _, ch := range event.Channels {
		c := ch
		if _, err := d.EventBus.Subscribe(ctx, c, func(_ context.Context, e event.Event) {
			hub.Broadcast(e)
		}); err != nil {
			slog.Error("failed to subscribe channel to WS hub", "channel", c, "error", err)
		}
	}

	return r
}
