package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nitesh/news_service/internal/scheduler"
	"github.com/nitesh/news_service/internal/service"
)

type Handler struct {
	svc   *service.Service
	sched *scheduler.Scheduler
}

func NewHandler(svc *service.Service, sched *scheduler.Scheduler) *Handler {
	return &Handler{svc: svc, sched: sched}
}

func RegisterRoutes(r *gin.Engine, h *Handler) {
	r.GET("/fetchRSS", h.FetchRSS)
	r.POST("/fetchRSSCallable", h.FetchRSSCallable)

	v1 := r.Group("/v1")
	{
		v1.GET("/news/latest", h.Latest)
		v1.GET("/news/search", h.Search)
		v1.GET("/news/category", h.Category)
		v1.GET("/news/:id", h.Article)

		v1.GET("/sources", h.ListSources)
		v1.POST("/sources", h.AddSource)
		v1.PATCH("/sources/:id", h.UpdateSource)
		v1.DELETE("/sources/:id", h.DeleteSource)

		v1.GET("/sweeps", h.RecentSweeps)
		v1.GET("/sweeps/latest", h.LatestSweep)
		v1.POST("/sweeps", h.RunSweep)

		v1.GET("/scheduler", h.SchedulerStatus)
		v1.PUT("/scheduler/interval", h.SetInterval)
		v1.PUT("/scheduler/workers", h.SetWorkers)
	}
}

// FetchRSS: GET /fetchRSS?url=...&name=...&category=...&sourceId=...
func (h *Handler) FetchRSS(c *gin.Context) {
	feedURL := c.Query("url")
	if feedURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing 'url' query parameter"})
		return
	}
	_, err := h.svc.FetchRSS(c.Request.Context(), feedURL, c.Query("name"), c.Query("category"), c.Query("sourceId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch RSS feed", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type callableBody struct {
	Data service.CallableRequest `json:"data"`
}

// FetchRSSCallable: POST /fetchRSSCallable
// Body: {"data": {"url": ..., "name": ..., "category": ..., "sourceId": ...}}
func (h *Handler) FetchRSSCallable(c *gin.Context) {
	var body callableBody
	if err := c.ShouldBindJSON(&body); err != nil {
		callableError(c, http.StatusBadRequest, "INVALID_ARGUMENT", "Bad Request")
		return
	}
	n, err := h.svc.FetchCallable(c.Request.Context(), body.Data)
	if err != nil {
		var ve *service.ValidationError
		if errors.As(err, &ve) {
			callableError(c, http.StatusBadRequest, "INVALID_ARGUMENT", ve.Message)
			return
		}
		callableError(c, http.StatusInternalServerError, "INTERNAL", "Failed to fetch RSS: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": gin.H{"success": true, "count": n}})
}

func callableError(c *gin.Context, code int, status, msg string) {
	c.JSON(code, gin.H{"error": gin.H{"status": status, "message": msg}})
}

// Latest: GET /v1/news/latest?limit=50
func (h *Handler) Latest(c *gin.Context) {
	lim := parseLimit(c.DefaultQuery("limit", "50"))
	res, err := h.svc.Latest(c.Request.Context(), lim)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{"count": len(res), "limit": lim},
		"data": res,
	})
}

// Search: GET /v1/news/search?q=...&limit=10
func (h *Handler) Search(c *gin.Context) {
	q := c.Query("q")
	lim := parseLimit(c.DefaultQuery("limit", "10"))
	res, err := h.svc.Search(c.Request.Context(), q, lim)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{
			"query": q,
			"count": len(res),
			"limit": lim,
		},
		"data": res,
	})
}

// Category: GET /v1/news/category?category=Technology&limit=10
func (h *Handler) Category(c *gin.Context) {
	category := c.Query("category")
	lim := parseLimit(c.DefaultQuery("limit", "10"))
	res, err := h.svc.Category(c.Request.Context(), category, lim)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{
			"category": category,
			"count":    len(res),
			"limit":    lim,
		},
		"data": res,
	})
}

// Article: GET /v1/news/:id
func (h *Handler) Article(c *gin.Context) {
	a, err := h.svc.Article(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": a})
}

func (h *Handler) ListSources(c *gin.Context) {
	res, err := h.svc.Sources(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"meta": gin.H{"count": len(res)}, "data": res})
}

type addSourceBody struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Category string `json:"category"`
}

// AddSource: POST /v1/sources
// Registers the feed and ingests it once before responding.
func (h *Handler) AddSource(c *gin.Context) {
	var body addSourceBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
		return
	}
	src, err := h.svc.AddSource(c.Request.Context(), body.Name, body.URL, body.Category)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": src})
}

// UpdateSource: PATCH /v1/sources/:id
// Body: {"category": "..."}
func (h *Handler) UpdateSource(c *gin.Context) {
	var body struct {
		Category string `json:"category"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
		return
	}
	id := c.Param("id")
	if err := h.svc.UpdateSourceCategory(c.Request.Context(), id, body.Category); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "category": body.Category})
}

func (h *Handler) DeleteSource(c *gin.Context) {
	if err := h.svc.DeleteSource(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RecentSweeps: GET /v1/sweeps?limit=50
func (h *Handler) RecentSweeps(c *gin.Context) {
	lim := parseLimit(c.DefaultQuery("limit", "50"))
	res, err := h.svc.RecentReports(c.Request.Context(), lim)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"meta": gin.H{"count": len(res)}, "data": res})
}

func (h *Handler) LatestSweep(c *gin.Context) {
	r, err := h.svc.LatestReport(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": r})
}

// RunSweep: POST /v1/sweeps
// Runs a sweep synchronously and returns its report. The sweep outlives a
// client disconnect so every source is still attempted.
func (h *Handler) RunSweep(c *gin.Context) {
	r, err := h.sched.RunNow(context.WithoutCancel(c.Request.Context()))
	if errors.Is(err, scheduler.ErrSweepRunning) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": r})
}

func (h *Handler) SchedulerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.sched.Status()})
}

// SetInterval: PUT /v1/scheduler/interval
// Body: {"interval": "30m"}
func (h *Handler) SetInterval(c *gin.Context) {
	var body struct {
		Interval string `json:"interval"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
		return
	}
	d, err := time.ParseDuration(body.Interval)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid interval: " + body.Interval})
		return
	}
	if err := h.sched.SetInterval(d); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"interval": d.String()})
}

// SetWorkers: PUT /v1/scheduler/workers
// Body: {"workers": 8}
func (h *Handler) SetWorkers(c *gin.Context) {
	var body struct {
		Workers int `json:"workers"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
		return
	}
	if err := h.sched.SetWorkers(body.Workers); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"workers": body.Workers})
}

// fail maps service errors to status codes.
func fail(c *gin.Context, err error) {
	switch {
	case service.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// parseLimit ensures a sane integer limit, with bounds
func parseLimit(s string) int {
	l, err := strconv.Atoi(s)
	if err != nil || l <= 0 {
		return 10
	}
	if l > 200 {
		return 200
	}
	return l
}
