package api

import (
	"github.com/lysyi3m/news-comb/app/catalog"
	"github.com/lysyi3m/news-comb/app/database"
	"github.com/lysyi3m/news-comb/app/provider"
	"github.com/lysyi3m/news-comb/app/serving"
	"github.com/lysyi3m/news-comb/app/tasks"
)

type Handler struct {
	service         *serving.Service
	catalog         *catalog.Catalog
	configCache     *provider.ConfigCache
	store           database.InteractionStore
	scheduler       tasks.TaskSchedulerInterface
	defaultPageSize int
}

type InteractRequest struct {
	UserID      string `json:"user_id" binding:"required"`
	ArticleID   string `json:"article_id" binding:"required"`
	Interaction string `json:"interaction" binding:"required"`
}

type InteractResponse struct {
	Message       string `json:"message"`
	InteractionID string `json:"interaction_id"`
}

type RecommendResponse struct {
	Recommendations []catalog.Article `json:"recommendations"`
}

type ProviderInfo struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	URL         string `json:"url"`
	Enabled     bool   `json:"enabled"`
	MaxItems    int    `json:"max_items"`
	Timeout     string `json:"timeout"`
	ProbeImages bool   `json:"probe_images"`
}
