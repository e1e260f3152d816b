// Package adminapi is a thin Gin HTTP surface over the detection
// engine: health, engine stats, recent signal history, a per-symbol
// history query, history stats, and a POST route that triggers an
// immediate cleanup (the only route that changes state). It does not
// implement notification delivery, which remains an external
// subscriber's responsibility.
package adminapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"market-signal-engine/internal/detection"
	"market-signal-engine/internal/history"
	"market-signal-engine/internal/maintenance"
)

// Handler groups the admin API's dependencies.
type Handler struct {
	engine      *detection.Engine
	history     *history.Store
	maintenance *maintenance.Job
}

// New creates an admin API Handler.
func New(engine *detection.Engine, hist *history.Store, maint *maintenance.Job) *Handler {
	return &Handler{engine: engine, history: hist, maintenance: maint}
}

// Register wires the admin routes onto router under /api.
func (h *Handler) Register(router gin.IRouter) {
	api := router.Group("/api")
	{
		api.GET("/health", h.Health)

		detect := api.Group("/detection")
		{
			detect.GET("/stats", h.Stats)
		}

		hist := api.Group("/history")
		{
			hist.GET("/recent", h.GetRecent)
			hist.GET("/:symbol", h.GetBySymbol)
			hist.GET("/stats", h.GetStats)
			hist.POST("/cleanup", h.ForceCleanup)
		}
	}
}

// Health handles GET /api/health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Stats handles GET /api/detection/stats.
func (h *Handler) Stats(c *gin.Context) {
	s := h.engine.Stats()
	c.JSON(http.StatusOK, gin.H{
		"checks":    s.Checks,
		"signals":   s.Signals,
		"errors":    s.Errors,
		"symbols":   s.Symbols,
		"cooldowns": s.Cooldowns,
	})
}

// GetRecent handles GET /api/history/recent?limit=&symbol=&direction=.
func (h *Handler) GetRecent(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}
	symbol := c.Query("symbol")
	direction := c.Query("direction")

	records, err := h.history.GetRecent(limit, symbol, direction)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "failed to query history",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// GetBySymbol handles GET /api/history/:symbol?days=&limit=.
func (h *Handler) GetBySymbol(c *gin.Context) {
	symbol := c.Param("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}

	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil || days <= 0 {
		days = 7
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}

	records, err := h.history.GetBySymbol(symbol, days, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "failed to query history",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "records": records})
}

// GetStats handles GET /api/history/stats?days=.
func (h *Handler) GetStats(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil || days <= 0 {
		days = 7
	}

	stats, err := h.history.GetStats(days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "failed to compute history stats",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ForceCleanup handles POST /api/history/cleanup, triggering an
// immediate out-of-band maintenance pass.
func (h *Handler) ForceCleanup(c *gin.Context) {
	h.maintenance.RunNow()
	c.JSON(http.StatusOK, gin.H{"status": "cleanup triggered"})
}
