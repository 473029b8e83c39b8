package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"newsroom/internal/domain"
	"newsroom/internal/usecase"
)

type handlers struct {
	deps Deps
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "newsroom-pipeline",
	})
}

type runRequest struct {
	Mode  string `json:"mode"`
	Force bool   `json:"force"`
}

func (h *handlers) triggerRun(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	mode := domain.RunMode(req.Mode)
	if req.Mode == "" {
		mode = domain.ModeFull
	}

	run, err := h.deps.Orchestrator.Run(c.Request.Context(), mode, req.Force)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, runResponse(run))
}

func (h *handlers) status(c *gin.Context) {
	resp := gin.H{
		"status":    "active",
		"timestamp": time.Now().UTC(),
	}

	run, err := h.deps.Orchestrator.LatestStatus(c.Request.Context())
	if err == nil {
		resp["latest_run"] = runResponse(run)
	} else if !errors.Is(err, domain.ErrNotFound) {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *handlers) collect(c *gin.Context) {
	var only map[string]bool
	if csv := c.Query("sources"); csv != "" {
		only = map[string]bool{}
		for _, id := range strings.Split(csv, ",") {
			if id = strings.TrimSpace(id); id != "" {
				only[id] = true
			}
		}
	}

	report := h.deps.Collector.CollectAll(c.Request.Context(), only)

	if c.Query("include_raw") == "true" {
		limit := 50
		if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
			limit = v
		}
		items, err := h.deps.Items.Recent(c.Request.Context(), limit)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"collected": report.Collected,
			"sources":   report.Sources,
			"by_source": report.BySource,
			"items":     rawItemViews(items),
		})
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *handlers) score(c *gin.Context) {
	report, err := h.deps.Scorer.ScorePending(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

type generateRequest struct {
	RawContentID string `json:"raw_content_id"`
	Neighborhood string `json:"neighborhood"`
	Category     string `json:"category"`
}

func (h *handlers) generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	article, err := h.deps.Generator.Generate(c.Request.Context(), usecase.GenerateRequest{
		RawItemID: req.RawContentID,
		Region:    req.Neighborhood,
		Category:  req.Category,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"content_id": article.ID,
		"title":      article.Title,
		"confidence": article.Confidence,
	})
}

type validateRequest struct {
	ContentText string `json:"content_text"`
	Category    string `json:"category"`
}

func (h *handlers) validate(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	result, err := h.deps.Validator.Validate(req.ContentText, req.Category)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

type publishRequest struct {
	ContentID   string `json:"content_id"`
	AutoPublish bool   `json:"auto_publish"`
}

func (h *handlers) publish(c *gin.Context) {
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	result, err := h.deps.Publisher.Publish(c.Request.Context(), req.ContentID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *handlers) schedulerStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "active",
		"stats":  h.deps.Scheduler.Stats(),
	})
}

func (h *handlers) schedulerTrigger(c *gin.Context) {
	run := h.deps.Scheduler.RunDailyCycle(c.Request.Context(), time.Now())
	c.JSON(http.StatusOK, runResponse(run))
}

// respondError maps the error taxonomy to HTTP status codes.
func (h *handlers) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
		code = "invalid_request"
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
		code = "not_found"
	case errors.Is(err, domain.ErrPreconditionFailed):
		status = http.StatusConflict
		code = "precondition_failed"
	case errors.Is(err, domain.ErrUpstreamFailure):
		status = http.StatusBadGateway
		code = "upstream_failure"
	case errors.Is(err, domain.ErrStorageFailure):
		code = "storage_failure"
	}

	if h.deps.Logger != nil && status >= http.StatusInternalServerError {
		h.deps.Logger.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": code, "message": err.Error()})
}

func runResponse(run domain.PipelineRun) gin.H {
	return gin.H{
		"pipeline_run_id": run.RunID,
		"mode":            run.Mode,
		"collected":       run.Counts.Collected,
		"scored":          run.Counts.Scored,
		"generated":       run.Counts.Generated,
		"validated":       run.Counts.Validated,
		"published":       run.Counts.Published,
		"errors":          run.Errors,
		"worker_status":   run.WorkerStatus,
		"started_at":      run.StartedAt,
		"completed_at":    run.CompletedAt,
		"duration_ms":     run.Duration().Milliseconds(),
		"success":         run.Success(),
	}
}

type rawItemView struct {
	ID           string     `json:"id"`
	SourceID     string     `json:"source_id"`
	Title        string     `json:"title"`
	URL          string     `json:"url"`
	CategoryHint string     `json:"category_hint"`
	PublishedAt  time.Time  `json:"published_at"`
	CollectedAt  time.Time  `json:"collected_at"`
	Score        *float64   `json:"relevance_score,omitempty"`
	ScoredAt     *time.Time `json:"scored_at,omitempty"`
}

func rawItemViews(items []domain.RawItem) []rawItemView {
	views := make([]rawItemView, 0, len(items))
	for _, item := range items {
		views = append(views, rawItemView{
			ID:           item.ID,
			SourceID:     item.SourceID,
			Title:        item.Title,
			URL:          item.URL,
			CategoryHint: item.CategoryHint,
			PublishedAt:  item.PublishedAt,
			CollectedAt:  item.CollectedAt,
			Score:        item.RelevanceScore,
			ScoredAt:     item.ScoredAt,
		})
	}
	return views
}
