package httpapi

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"newsroom/internal/ports"
	"newsroom/internal/usecase"
)

// Deps carries the use cases the HTTP surface exposes.
type Deps struct {
	Orchestrator *usecase.Orchestrator
	Collector    *usecase.Collector
	Scorer       *usecase.Scorer
	Generator    *usecase.Generator
	Validator    *usecase.Validator
	Publisher    *usecase.Publisher
	Scheduler    *usecase.Scheduler
	Items        ports.RawItemRepository
	Logger       *slog.Logger
}

// NewRouter builds the gin engine with all pipeline routes. The endpoints are
// invoked by trusted internal callers only; authentication is a boundary
// concern outside this service.
func NewRouter(deps Deps) *gin.Engine {
	h := &handlers{deps: deps}

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", h.health)

	router.POST("/pipeline/run", h.triggerRun)
	router.GET("/pipeline/status", h.status)
	router.POST("/pipeline/collect", h.collect)
	router.POST("/pipeline/score", h.score)
	router.POST("/pipeline/generate", h.generate)
	router.POST("/pipeline/validate", h.validate)
	router.POST("/pipeline/publish", h.publish)

	router.GET("/scheduler", h.schedulerStats)
	router.POST("/scheduler/trigger", h.schedulerTrigger)

	return router
}
