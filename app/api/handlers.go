package api

import (
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/news-comb/app/catalog"
	"github.com/lysyi3m/news-comb/app/database"
	"github.com/lysyi3m/news-comb/app/provider"
	"github.com/lysyi3m/news-comb/app/serving"
	"github.com/lysyi3m/news-comb/app/tasks"
)

func NewHandler(service *serving.Service, c *catalog.Catalog, configCache *provider.ConfigCache,
	store database.InteractionStore, scheduler tasks.TaskSchedulerInterface, defaultPageSize int) *Handler {
	return &Handler{
		service:         service,
		catalog:         c,
		configCache:     configCache,
		store:           store,
		scheduler:       scheduler,
		defaultPageSize: defaultPageSize,
	}
}

func (h *Handler) GetArticles(c *gin.Context) {
	page, pageSize, ok := h.pagination(c)
	if !ok {
		return
	}

	articles, err := h.service.GetPage(c.Request.Context(), "", page, pageSize)
	if err != nil {
		respondError(c, "get_articles", err)
		return
	}

	c.Header("X-Catalog-Size", strconv.Itoa(h.catalog.Size()))
	c.JSON(http.StatusOK, articles)
}

func (h *Handler) GetRecommendations(c *gin.Context) {
	page, pageSize, ok := h.pagination(c)
	if !ok {
		return
	}

	articles, err := h.service.GetPage(c.Request.Context(), c.Query("user_id"), page, pageSize)
	if err != nil {
		respondError(c, "recommend", err)
		return
	}

	c.JSON(http.StatusOK, RecommendResponse{Recommendations: articles})
}

func (h *Handler) Interact(c *gin.Context) {
	var req InteractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": "user_id, article_id and interaction are required",
		})
		return
	}

	kind, err := database.ParseInteractionKind(req.Interaction)
	if err != nil {
		respondError(c, "interact", err)
		return
	}

	event, err := h.service.RecordInteraction(c.Request.Context(), req.UserID, req.ArticleID, kind)
	if err != nil {
		respondError(c, "interact", err)
		return
	}

	c.JSON(http.StatusOK, InteractResponse{
		Message:       "Article " + string(kind) + "d successfully!",
		InteractionID: event.ID,
	})
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"articles":  h.catalog.Size(),
		"providers": h.configCache.GetConfigCount(),
	}

	if lastRefresh := h.catalog.LastRefresh(); !lastRefresh.IsZero() {
		health["last_refresh"] = lastRefresh.In(time.Local).Format(time.RFC3339)
	}

	status := http.StatusOK
	if err := h.store.Ping(c.Request.Context()); err != nil {
		slog.Error("Store health check failed", "error", err)
		health["store"] = "unavailable"
		status = http.StatusServiceUnavailable
	} else {
		health["store"] = "ok"
		if count, err := h.store.CountInteractions(c.Request.Context()); err == nil {
			health["interactions"] = count
		}
	}

	c.JSON(status, health)
}

func (h *Handler) APIListProviders(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	providers := make([]ProviderInfo, 0, len(configs))
	for _, providerConfig := range configs {
		providers = append(providers, ProviderInfo{
			Name:        providerConfig.Name,
			Type:        providerConfig.Type,
			URL:         providerConfig.URL,
			Enabled:     providerConfig.Settings.Enabled,
			MaxItems:    providerConfig.Settings.MaxItems,
			Timeout:     providerConfig.Settings.GetTimeout().String(),
			ProbeImages: providerConfig.Settings.ShouldProbeImages(),
		})
	}

	sort.Slice(providers, func(i, j int) bool {
		return providers[i].Name < providers[j].Name
	})

	c.JSON(http.StatusOK, map[string]interface{}{
		"providers": providers,
		"total":     len(providers),
	})
}

func (h *Handler) APIRefresh(c *gin.Context) {
	added, err := h.catalog.Refresh(c.Request.Context())
	if err != nil {
		slog.Error("Manual refresh failed", "added", added, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Refresh failed",
			"details": err.Error(),
			"added":   added,
			"size":    h.catalog.Size(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"added":   added,
		"size":    h.catalog.Size(),
	})
}

func (h *Handler) APIGetPreferences(c *gin.Context) {
	userID := c.Param("user_id")

	preferences, err := h.service.Preferences(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "get_preferences", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":     userID,
		"preferences": preferences,
	})
}

func (h *Handler) APIRebuildPreferences(c *gin.Context) {
	task := tasks.NewRebuildPreferencesTask(tasks.TriggerManual, h.store)
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Error enqueueing rebuild task", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue rebuild task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Preference rebuild enqueued",
		"task": gin.H{
			"id":   task.ID,
			"type": task.Type,
		},
	})
}

func (h *Handler) pagination(c *gin.Context) (int, int, bool) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page must be an integer"})
		return 0, 0, false
	}

	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(h.defaultPageSize)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page_size must be an integer"})
		return 0, 0, false
	}

	return page, pageSize, true
}

func respondError(c *gin.Context, operation string, err error) {
	switch {
	case errors.Is(err, catalog.ErrArticleNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
	case errors.Is(err, serving.ErrInvalidPagination), errors.Is(err, database.ErrInvalidInteraction):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, database.ErrStoreUnavailable):
		slog.Error("Store error", "operation", operation, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Store unavailable"})
	default:
		slog.Error("Request failed", "operation", operation, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
